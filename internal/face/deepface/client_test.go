package deepface

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PauloHFS/faceauth/internal/face"
)

var facenet = face.ModelProfile{Name: "facenet-opencv", Model: "Facenet", Detector: "opencv", Metric: face.MetricCosine, Threshold: 0.6}

func testImage(w, h int) face.Image {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = byte(i % 251)
	}
	return face.Image{Width: w, Height: h, Pix: pix}
}

func TestExtract(t *testing.T) {
	var got representRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/represent" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"embedding": []float64{0.1, 0.2, 0.3}, "face_confidence": 0.98, "facial_area": map[string]int{"x": 1, "y": 2, "w": 3, "h": 4}},
				{"embedding": []float64{9, 9, 9}},
			},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/"})
	emb, err := c.Extract(context.Background(), testImage(20, 10), facenet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(emb) != 3 || emb[0] != 0.1 {
		t.Errorf("expected the first face's embedding, got %v", emb)
	}
	if got.ModelName != "Facenet" || got.DetectorBackend != "opencv" || got.EnforceDetection {
		t.Errorf("unexpected request body %+v", got)
	}
	if !strings.HasPrefix(got.Img, "data:image/jpeg;base64,") {
		t.Errorf("expected a jpeg data URI, got %.40s", got.Img)
	}
}

func TestExtractResizesLargeImages(t *testing.T) {
	var width, height int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req representRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(req.Img, "data:image/jpeg;base64,"))
		if err != nil {
			t.Fatal(err)
		}
		cfg, err := jpeg.DecodeConfig(strings.NewReader(string(raw)))
		if err != nil {
			t.Fatal(err)
		}
		width, height = cfg.Width, cfg.Height
		_, _ = w.Write([]byte(`{"results":[{"embedding":[1]}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, MaxImageSide: 50})
	if _, err := c.Extract(context.Background(), testImage(200, 100), facenet); err != nil {
		t.Fatal(err)
	}
	if width != 50 || height != 25 {
		t.Errorf("expected 50x25, got %dx%d", width, height)
	}
}

func TestExtractErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   face.FailureKind
	}{
		{"no face detected", http.StatusBadRequest, `{"error":"Exception while representing: Face could not be detected in numpy array."}`, face.NoFaceDetected},
		{"empty results", http.StatusOK, `{"results":[]}`, face.NoFaceDetected},
		{"server error", http.StatusInternalServerError, `{"error":"model weights missing"}`, face.ModelUnavailable},
		{"service unavailable", http.StatusServiceUnavailable, `busy`, face.ModelUnavailable},
		{"unknown model", http.StatusBadRequest, `{"error":"Invalid model_name passed - Foo"}`, face.ExtractionError},
		{"malformed body", http.StatusOK, `{"results": [`, face.ExtractionError},
		{"empty embedding", http.StatusOK, `{"results":[{"embedding":[]}]}`, face.ExtractionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(Config{BaseURL: srv.URL}).Extract(context.Background(), testImage(8, 8), facenet)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestExtractUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Config{BaseURL: url, Timeout: time.Second}).Extract(context.Background(), testImage(8, 8), facenet)
	if !errors.Is(err, face.ModelUnavailable) {
		t.Errorf("expected ModelUnavailable, got %v", err)
	}
}

func TestExtractCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(Config{BaseURL: srv.URL}).Extract(ctx, testImage(8, 8), facenet)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the context error, got %v", err)
	}
	if errors.Is(err, face.ModelUnavailable) {
		t.Error("cancellation must not be reported as an unavailable model")
	}
}

func TestBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	if _, err := New(Config{BaseURL: srv.URL, Token: "tok"}).Extract(context.Background(), testImage(8, 8), facenet); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Welcome to DeepFace API!"))
	}))
	defer srv.Close()

	if err := New(Config{BaseURL: srv.URL}).Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	if err := New(Config{BaseURL: down.URL}).Ping(context.Background()); !errors.Is(err, face.ModelUnavailable) {
		t.Errorf("expected ModelUnavailable, got %v", err)
	}
}
