package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PauloHFS/faceauth/internal/config"
	"github.com/PauloHFS/faceauth/internal/contextkeys"
	"github.com/PauloHFS/faceauth/internal/db"
	"github.com/PauloHFS/faceauth/internal/i18n"
	"github.com/PauloHFS/faceauth/internal/logging"
	"github.com/PauloHFS/faceauth/internal/middleware"
	"github.com/PauloHFS/faceauth/internal/policies"
	"github.com/PauloHFS/faceauth/internal/services"
	"github.com/PauloHFS/faceauth/internal/storage"
	"github.com/PauloHFS/faceauth/internal/validator"
	"github.com/alexedwards/scs/v2"
	"github.com/microcosm-cc/bluemonday"
)

const (
	maxBodyBytes    = 16 << 20
	maxMultipartMem = 8 << 20
	faceImageField  = "face_image_base64"
	faceUploadField = "face_image"
	defaultPageSize = 10
)

// Pinger é implementado pelo cliente do runtime de modelos.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HandlerDeps struct {
	DB             *sql.DB
	Queries        *db.Queries
	SessionManager *scs.SessionManager
	Auth           *services.AuthService
	Faces          *storage.FaceStore
	Enforcer       *policies.Enforcer
	Runtime        Pinger
	Config         *config.Config
}

// AppHandler é um tipo customizado que permite retornar erros dos handlers
type AppHandler func(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error

// Handle envolve nosso AppHandler para conformidade com http.HandlerFunc
func Handle(deps HandlerDeps, h AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(deps, w, r); err != nil {
			logging.Get().ErrorContext(r.Context(), "request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)

			writeMessage(w, r, http.StatusInternalServerError, "error", i18n.InternalError)
		}
	}
}

func RegisterRoutes(mux *http.ServeMux, deps HandlerDeps) {
	protected := func(h AppHandler) http.Handler {
		return middleware.RequireAuth(deps.SessionManager, deps.Queries,
			middleware.RequirePermission(deps.Enforcer, Handle(deps, h)))
	}

	// Auth
	mux.HandleFunc("POST "+Register, Handle(deps, handleRegister))
	mux.HandleFunc("POST "+LoginEmail, Handle(deps, handleLoginEmail))
	mux.HandleFunc("POST "+LoginFace, Handle(deps, handleLoginFace))
	mux.HandleFunc("POST "+Logout, Handle(deps, handleLogout))
	mux.HandleFunc("GET "+Logout, Handle(deps, handleLogout))
	mux.HandleFunc("GET "+CSRFToken, handleCSRFToken)

	// Protected Routes
	mux.Handle("GET "+Dashboard, protected(handleDashboard))
	mux.Handle("GET "+UserProfile, protected(handleUserProfile))
	mux.Handle("GET "+Verifications, protected(handleVerifications))
	mux.Handle("GET "+Faces+"{filename}", protected(handleFaceImage))

	mux.HandleFunc("GET "+Health, Handle(deps, handleHealth))
}

// --- Responses ---

var sanitizer = bluemonday.StrictPolicy()

type response struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	User     string `json:"user,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, outcome string, key i18n.Key) {
	writeJSON(w, status, response{Status: outcome, Message: i18n.T(r.Context(), key)})
}

func statusFor(f services.Failure) int {
	switch f {
	case services.FailureInvalid:
		return http.StatusBadRequest
	case services.FailureConflict:
		return http.StatusConflict
	case services.FailureUnauthorized:
		return http.StatusUnauthorized
	case services.FailureUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// displayName limpa nomes antes de devolvê-los em mensagens.
func displayName(name string) string {
	return sanitizer.Sanitize(name)
}

// readFaceImage aceita o data URI em face_image_base64 ou um arquivo
// multipart em face_image.
func readFaceImage(r *http.Request) ([]byte, error) {
	if v := r.FormValue(faceImageField); v != "" {
		return []byte(v), nil
	}
	if r.MultipartForm == nil {
		return nil, nil
	}

	file, header, err := r.FormFile(faceUploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	logging.AddToEvent(r.Context(),
		slog.String("upload_name", validator.SanitizeFilename(header.Filename)),
		slog.Int64("upload_size", header.Size),
	)
	if err := validator.ValidateImageUpload(header.Filename, header.Header.Get("Content-Type")); err != nil {
		return nil, err
	}
	return io.ReadAll(file)
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxMultipartMem)
	}
	return r.ParseForm()
}

// --- Handler Implementations ---

func handleRegister(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	if err := parseForm(w, r); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "error", i18n.InvalidInput)
		return nil
	}

	image, err := readFaceImage(r)
	if err != nil {
		logging.AddToEvent(r.Context(), slog.String("error_reason", "bad_upload"))
		writeMessage(w, r, http.StatusBadRequest, "error", i18n.InvalidImage)
		return nil
	}

	email := r.FormValue("email")
	emailDomain := ""
	if idx := strings.Index(email, "@"); idx > 0 {
		emailDomain = email[idx+1:]
	}
	logging.AddToEvent(r.Context(),
		slog.String("operation", "register"),
		slog.String("email_domain", emailDomain),
	)

	out := deps.Auth.Register(r.Context(), services.RegisterInput{
		Username:  r.FormValue("username"),
		Email:     email,
		Password:  r.FormValue("password"),
		FaceImage: image,
	})
	if !out.Success {
		logging.AddToEvent(r.Context(),
			slog.String("outcome", "error"),
			slog.String("error_reason", string(out.Error)),
		)
		writeJSON(w, statusFor(out.Failure), response{
			Status:  "error",
			Message: i18n.T(r.Context(), out.Error),
			Details: out.Details,
		})
		return nil
	}

	logging.AddToEvent(r.Context(), slog.String("outcome", "success"))
	writeJSON(w, http.StatusCreated, response{
		Status:   "success",
		Message:  i18n.T(r.Context(), i18n.Registered),
		Redirect: LoginEmailPage,
		User:     displayName(out.User.Username),
	})
	return nil
}

func handleLoginEmail(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	if err := parseForm(w, r); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "error", i18n.InvalidInput)
		return nil
	}
	logging.AddToEvent(r.Context(), slog.String("operation", "login_email"))

	out := deps.Auth.LoginPassword(r.Context(), services.LoginInput{
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	})
	if !out.Success {
		logging.AddToEvent(r.Context(),
			slog.String("outcome", "error"),
			slog.String("error_reason", string(out.Error)),
		)
		writeMessage(w, r, statusFor(out.Failure), "error", out.Error)
		return nil
	}

	sm := deps.SessionManager
	if err := sm.RenewToken(r.Context()); err != nil {
		return fmt.Errorf("failed to renew session: %w", err)
	}

	if out.RequiresFace {
		sm.Remove(r.Context(), contextkeys.SessionUserID)
		sm.Put(r.Context(), contextkeys.SessionPendingUserID, out.User.ID)
		logging.AddToEvent(r.Context(), slog.String("outcome", "face_required"))
		writeJSON(w, http.StatusOK, response{
			Status:   "success",
			Message:  i18n.T(r.Context(), i18n.FaceRequired),
			Redirect: LoginFacePage,
			User:     displayName(out.User.Username),
		})
		return nil
	}

	sm.Remove(r.Context(), contextkeys.SessionPendingUserID)
	sm.Put(r.Context(), contextkeys.SessionUserID, out.User.ID)
	logging.AddToEvent(r.Context(), slog.String("outcome", "success"))
	writeJSON(w, http.StatusOK, response{
		Status:   "success",
		Message:  i18n.T(r.Context(), i18n.LoginSuccess),
		Redirect: Dashboard,
		User:     displayName(out.User.Username),
	})
	return nil
}

func handleLoginFace(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	if err := parseForm(w, r); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "error", i18n.InvalidInput)
		return nil
	}
	logging.AddToEvent(r.Context(), slog.String("operation", "login_face"))

	image, err := readFaceImage(r)
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "error", i18n.InvalidImage)
		return nil
	}

	sm := deps.SessionManager
	out := deps.Auth.LoginFace(r.Context(), services.FaceLoginInput{
		PendingUserID: sm.GetInt64(r.Context(), contextkeys.SessionPendingUserID),
		Username:      r.FormValue("username"),
		FaceImage:     image,
	})
	if !out.Success {
		logging.AddToEvent(r.Context(),
			slog.String("outcome", "error"),
			slog.String("error_reason", string(out.Error)),
		)
		writeMessage(w, r, statusFor(out.Failure), "error", out.Error)
		return nil
	}

	if err := sm.RenewToken(r.Context()); err != nil {
		return fmt.Errorf("failed to renew session: %w", err)
	}
	sm.Remove(r.Context(), contextkeys.SessionPendingUserID)
	sm.Put(r.Context(), contextkeys.SessionUserID, out.User.ID)

	logging.AddToEvent(r.Context(), slog.String("outcome", "success"))
	writeJSON(w, http.StatusOK, response{
		Status:   "success",
		Message:  i18n.T(r.Context(), i18n.LoginSuccess),
		Redirect: Dashboard,
		User:     displayName(out.User.Username),
	})
	return nil
}

func handleLogout(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	if err := deps.SessionManager.Destroy(r.Context()); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	writeJSON(w, http.StatusOK, response{
		Status:   "success",
		Message:  i18n.T(r.Context(), i18n.LoggedOut),
		Redirect: LoginEmailPage,
	})
	return nil
}

func handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": middleware.CSRFToken(r.Context())})
}

func handleDashboard(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	user, _ := middleware.GetUser(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": i18n.T(r.Context(), i18n.Welcome) + ", " + displayName(user.Username),
		"user": map[string]any{
			"username": displayName(user.Username),
			"role":     user.RoleID,
		},
	})
	return nil
}

type userProfile struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	ImageExists bool   `json:"image_exists"`
	ImageURL    string `json:"image_url,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func handleUserProfile(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	user, _ := middleware.GetUser(r.Context())

	profile := userProfile{
		Username:  displayName(user.Username),
		Email:     user.Email,
		Role:      user.RoleID,
		CreatedAt: user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if user.ImagePath.Valid && deps.Faces.Exists(user.ImagePath.String) {
		profile.ImageExists = true
		profile.ImageURL = FaceURL(filepath.Base(user.ImagePath.String))
	}

	writeJSON(w, http.StatusOK, profile)
	return nil
}

func handleVerifications(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	user, _ := middleware.GetUser(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage == 0 {
		perPage = defaultPageSize
	}

	result, err := deps.Queries.ListFaceVerificationsPage(r.Context(), user.ID, db.PagingParams{
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		return fmt.Errorf("failed to list verifications: %w", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":        result.Items,
		"total_items":  result.TotalItems,
		"total_pages":  result.TotalPages(),
		"current_page": result.CurrentPage,
		"per_page":     result.PerPage,
	})
	return nil
}

func handleFaceImage(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	actor, _ := middleware.GetUser(r.Context())
	filename := r.PathValue("filename")

	path, err := deps.Faces.Path(filename)
	if err != nil {
		writeMessage(w, r, http.StatusNotFound, "error", i18n.NotFound)
		return nil
	}

	owner, err := faceOwner(r.Context(), deps.Queries, filename)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeMessage(w, r, http.StatusNotFound, "error", i18n.NotFound)
			return nil
		}
		return err
	}
	if !policies.CanViewFace(actor, owner) {
		logging.AddToEvent(r.Context(), slog.String("authz", "face_denied"))
		writeMessage(w, r, http.StatusForbidden, "error", i18n.Forbidden)
		return nil
	}

	data, err := deps.Faces.Read(path)
	if err != nil {
		if storage.IsNotFound(err) {
			writeMessage(w, r, http.StatusNotFound, "error", i18n.NotFound)
			return nil
		}
		return err
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "private, no-store")
	_, _ = w.Write(data)
	return nil
}

// faceOwner resolve o dono pelo nome do arquivo e confirma que é a
// referência registrada dele.
func faceOwner(ctx context.Context, q *db.Queries, filename string) (db.User, error) {
	const prefix = "registered_face_"
	if !strings.HasPrefix(filename, prefix) {
		return db.User{}, sql.ErrNoRows
	}
	username := strings.TrimSuffix(strings.TrimPrefix(filename, prefix), filepath.Ext(filename))

	owner, err := q.GetUserByUsername(ctx, username)
	if err != nil {
		return db.User{}, err
	}
	if !owner.ImagePath.Valid || filepath.Base(owner.ImagePath.String) != filename {
		return db.User{}, sql.ErrNoRows
	}
	return owner, nil
}

func handleHealth(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	status := http.StatusOK
	checks := map[string]string{"database": "ok", "face_runtime": "ok"}

	if err := deps.DB.PingContext(r.Context()); err != nil {
		logging.Get().ErrorContext(r.Context(), "health check failed: db unreachable", slog.Any("error", err))
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	// Sem o runtime o login facial cai, mas senha e admin seguem funcionando.
	if deps.Runtime != nil {
		if err := deps.Runtime.Ping(r.Context()); err != nil {
			logging.Get().WarnContext(r.Context(), "health check: face runtime unreachable", slog.Any("error", err))
			checks["face_runtime"] = "unavailable"
		}
	} else {
		checks["face_runtime"] = "not_configured"
	}

	outcome := "ok"
	if status != http.StatusOK {
		outcome = "error"
	}
	writeJSON(w, status, map[string]any{"status": outcome, "checks": checks})
	return nil
}
