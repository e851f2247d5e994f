package integration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PauloHFS/faceauth/internal/cmd"
	"github.com/PauloHFS/faceauth/internal/config"
	"github.com/PauloHFS/faceauth/internal/db"
	"github.com/PauloHFS/faceauth/internal/face"
	"github.com/PauloHFS/faceauth/internal/middleware"
	"github.com/PauloHFS/faceauth/internal/policies"
	"github.com/PauloHFS/faceauth/internal/services"
	"github.com/PauloHFS/faceauth/internal/storage"
	"github.com/PauloHFS/faceauth/internal/web"
	_ "github.com/mattn/go-sqlite3"
)

const (
	widthReference = 64
	widthMatch     = 56
	widthStranger  = 52
)

// O extrator falso devolve embeddings fixos pela largura da imagem.
func fakeExtractor(ctx context.Context, img face.Image, p face.ModelProfile) (face.Embedding, error) {
	switch img.Width {
	case widthMatch:
		return face.Embedding{1, 0.05}, nil
	case widthStranger:
		return face.Embedding{0, 1}, nil
	}
	return face.Embedding{1, 0}, nil
}

type TestServer struct {
	Pool   *db.DualPool
	Server *httptest.Server
	Deps   web.HandlerDeps
}

func setupTestServer(t *testing.T) *TestServer {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "integration.db")
	pool, err := db.NewDualPool(dbPath, config.DefaultSQLiteConfig(), db.WithReadPoolSize(2, 1))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := db.RunMigrations(ctx, pool.Write); err != nil {
		t.Fatal(err)
	}
	if err := db.Seed(ctx, pool.Write); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Env:            "test",
		Port:           "8080",
		AllowedOrigins: []string{"http://localhost:3000"},
		Face:           config.FaceConfig{VerifyTimeout: 5 * time.Second, MinImageBytes: 1000},
	}

	verifier, err := face.NewVerifier(face.ExtractorFunc(fakeExtractor), face.DefaultProfiles(),
		face.WithMinImageBytes(cfg.Face.MinImageBytes))
	if err != nil {
		t.Fatal(err)
	}

	faces := storage.NewFaceStore(filepath.Join(t.TempDir(), "faces"))
	deps := web.HandlerDeps{
		DB:             pool.Read,
		Queries:        pool.Queries(),
		SessionManager: cmd.NewSessionManager(cfg, pool),
		Auth:           services.NewAuthService(pool.QueriesWrite(), faces, verifier, cfg),
		Faces:          faces,
		Enforcer:       policies.MustDefault(),
		Config:         cfg,
	}

	server := httptest.NewServer(cmd.NewHandler(cfg, deps, middleware.NewRateLimiter()))

	t.Cleanup(func() {
		server.Close()
		pool.Close()
	})

	return &TestServer{Pool: pool, Server: server, Deps: deps}
}

// browser imita o front-end: guarda cookies e envia o token CSRF.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
	token  string
}

func (ts *TestServer) newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &browser{t: t, base: ts.Server.URL, client: &http.Client{Jar: jar}}
}

func (b *browser) fetchToken() {
	b.t.Helper()
	var body struct {
		Token string `json:"csrf_token"`
	}
	if code := b.getJSON(web.CSRFToken, &body); code != http.StatusOK {
		b.t.Fatalf("csrf token: status %d", code)
	}
	if body.Token == "" {
		b.t.Fatal("empty csrf token")
	}
	b.token = body.Token
}

type apiResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

func (b *browser) post(path string, form url.Values) (int, apiResponse) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		b.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", b.base)
	req.Header.Set("Referer", b.base+"/")
	if b.token != "" {
		req.Header.Set("X-CSRF-Token", b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatal(err)
	}
	defer resp.Body.Close()

	var body apiResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func (b *browser) getJSON(path string, v any) int {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	if err != nil {
		b.t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		_ = json.NewDecoder(resp.Body).Decode(v)
	}
	return resp.StatusCode
}

func faceImage(t *testing.T, w int) string {
	t.Helper()
	rng := rand.New(rand.NewPCG(uint64(w), 3))
	img := image.NewNRGBA(image.Rect(0, 0, w, w))
	for y := range w {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256)), A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := ts.Server.Client().Get(ts.Server.URL + web.Health)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := ts.Server.Client().Get(ts.Server.URL + web.Metrics)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestPostWithoutCSRFToken(t *testing.T) {
	ts := setupTestServer(t)
	b := ts.newBrowser(t)

	code, _ := b.post(web.LoginEmail, url.Values{
		"email":    {"admin@admin.com"},
		"username": {"admin"},
		"password": {"admin123"},
	})
	if code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, code)
	}
}

func TestDashboardRequiresAuth(t *testing.T) {
	ts := setupTestServer(t)
	b := ts.newBrowser(t)

	if code := b.getJSON(web.Dashboard, nil); code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, code)
	}
}

func TestTwoFactorLogin(t *testing.T) {
	ts := setupTestServer(t)
	b := ts.newBrowser(t)
	b.fetchToken()

	code, body := b.post(web.Register, url.Values{
		"username":          {"maria"},
		"email":             {"maria@example.com"},
		"password":          {"correct-horse"},
		"face_image_base64": {faceImage(t, widthReference)},
	})
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", code, body.Message)
	}

	code, body = b.post(web.LoginEmail, url.Values{
		"email":    {"maria@example.com"},
		"username": {"maria"},
		"password": {"correct-horse"},
	})
	if code != http.StatusOK || body.Redirect != web.LoginFacePage {
		t.Fatalf("login_email: got %d %+v", code, body)
	}

	code, _ = b.post(web.LoginFace, url.Values{"face_image_base64": {faceImage(t, widthStranger)}})
	if code != http.StatusUnauthorized {
		t.Errorf("stranger: expected 401, got %d", code)
	}

	code, body = b.post(web.LoginFace, url.Values{"face_image_base64": {faceImage(t, widthMatch)}})
	if code != http.StatusOK || body.Redirect != web.Dashboard {
		t.Fatalf("login_face: got %d %+v", code, body)
	}

	if code := b.getJSON(web.Dashboard, nil); code != http.StatusOK {
		t.Errorf("dashboard: expected 200, got %d", code)
	}

	var history struct {
		Items []struct {
			Verified bool   `json:"verified"`
			Profile  string `json:"model_profile"`
		} `json:"items"`
		TotalItems int `json:"total_items"`
	}
	if code := b.getJSON(web.Verifications, &history); code != http.StatusOK {
		t.Fatalf("verifications: expected 200, got %d", code)
	}
	if history.TotalItems != 2 {
		t.Fatalf("expected 2 recorded attempts, got %d", history.TotalItems)
	}
	if !history.Items[0].Verified || history.Items[0].Profile != "facenet-opencv" {
		t.Errorf("unexpected latest attempt %+v", history.Items[0])
	}

	code, _ = b.post(web.Logout, url.Values{})
	if code != http.StatusOK {
		t.Errorf("logout: expected 200, got %d", code)
	}
	if code := b.getJSON(web.Dashboard, nil); code != http.StatusUnauthorized {
		t.Errorf("after logout: expected 401, got %d", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.Server.URL+web.LoginEmail, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := ts.Server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow origin %q", got)
	}
}
