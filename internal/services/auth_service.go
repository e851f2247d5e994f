package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/PauloHFS/faceauth/internal/config"
	"github.com/PauloHFS/faceauth/internal/db"
	"github.com/PauloHFS/faceauth/internal/face"
	"github.com/PauloHFS/faceauth/internal/i18n"
	"github.com/PauloHFS/faceauth/internal/logging"
	"github.com/PauloHFS/faceauth/internal/metrics"
	"github.com/PauloHFS/faceauth/internal/storage"
	"github.com/PauloHFS/faceauth/internal/validator"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// FaceVerifier is the part of face.Verifier the login flow needs.
type FaceVerifier interface {
	VerifyImages(ctx context.Context, reference, probe face.Image) (face.Result, error)
	MinImageBytes() int
}

// Failure tells the transport layer which class of error an output carries.
type Failure string

const (
	FailureInvalid      Failure = "invalid"
	FailureConflict     Failure = "conflict"
	FailureUnauthorized Failure = "unauthorized"
	FailureUnavailable  Failure = "unavailable"
	FailureInternal     Failure = "internal"
)

type AuthService struct {
	queries       *db.Queries
	store         *storage.FaceStore
	verifier      FaceVerifier
	verifyTimeout time.Duration
}

func NewAuthService(queries *db.Queries, store *storage.FaceStore, verifier FaceVerifier, cfg *config.Config) *AuthService {
	timeout := cfg.Face.VerifyTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AuthService{
		queries:       queries,
		store:         store,
		verifier:      verifier,
		verifyTimeout: timeout,
	}
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FaceImage []byte
}

type RegisterOutput struct {
	Success bool
	Failure Failure
	Error   i18n.Key
	Details string
	User    *db.User
}

func registerFailed(f Failure, key i18n.Key, details string) RegisterOutput {
	metrics.Registrations.WithLabelValues(string(f)).Inc()
	return RegisterOutput{Failure: f, Error: key, Details: details}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) RegisterOutput {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	if username == "" || email == "" || input.Password == "" || len(input.FaceImage) == 0 {
		return registerFailed(FailureInvalid, i18n.FieldsRequired, "")
	}

	validation := validator.ValidateRegistration(username, email, input.Password)
	if !validation.Valid {
		return registerFailed(FailureInvalid, i18n.InvalidInput, validation.Message())
	}

	img, err := face.DecodeImage(input.FaceImage, s.verifier.MinImageBytes())
	if err != nil {
		return registerFailed(FailureInvalid, imageErrorKey(err), "")
	}
	raw, err := face.DecodedBytes(input.FaceImage)
	if err != nil {
		return registerFailed(FailureInvalid, i18n.InvalidImage, "")
	}

	taken, err := s.queries.CountUsersByUsernameOrEmail(ctx, db.CountUsersByUsernameOrEmailParams{
		Username: username,
		Email:    email,
	})
	if err != nil {
		logging.Get().ErrorContext(ctx, "failed to check existing users", slog.Any("error", err))
		return registerFailed(FailureInternal, i18n.InternalError, "")
	}
	if taken > 0 {
		return registerFailed(FailureConflict, i18n.UserExists, "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return registerFailed(FailureInternal, i18n.InternalError, "")
	}

	saved, err := s.store.SaveReference(username, img.Format, raw)
	if err != nil {
		if storage.IsExists(err) {
			return registerFailed(FailureConflict, i18n.UserExists, "")
		}
		logging.Get().ErrorContext(ctx, "failed to store reference image", slog.Any("error", err))
		return registerFailed(FailureInternal, i18n.InternalError, "")
	}

	user, err := s.queries.CreateUser(ctx, db.CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       "user",
		ImagePath:    sql.NullString{String: saved.Path, Valid: true},
	})
	if err != nil {
		if rmErr := s.store.Delete(saved.Path); rmErr != nil {
			logging.Get().WarnContext(ctx, "failed to remove orphan reference image", slog.Any("error", rmErr))
		}
		if isUniqueViolation(err) {
			return registerFailed(FailureConflict, i18n.UserExists, "")
		}
		logging.Get().ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		return registerFailed(FailureInternal, i18n.InternalError, "")
	}

	metrics.Registrations.WithLabelValues("success").Inc()
	logging.AddToEvent(ctx, slog.Int64("user_id", user.ID))
	return RegisterOutput{Success: true, User: &user}
}

type LoginInput struct {
	Email    string
	Username string
	Password string
}

type LoginOutput struct {
	Success bool
	Failure Failure
	Error   i18n.Key
	User    *db.User
	// RequiresFace is set when the password factor passed and the account
	// must still complete face verification.
	RequiresFace bool
}

func (s *AuthService) LoginPassword(ctx context.Context, input LoginInput) LoginOutput {
	email := strings.TrimSpace(input.Email)
	username := strings.TrimSpace(input.Username)

	if email == "" || username == "" || input.Password == "" {
		metrics.LoginAttempts.WithLabelValues("password", "invalid").Inc()
		return LoginOutput{Failure: FailureInvalid, Error: i18n.FieldsRequired}
	}

	user, err := s.queries.GetUserByEmailAndUsername(ctx, db.GetUserByEmailAndUsernameParams{
		Email:    email,
		Username: username,
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.Get().ErrorContext(ctx, "failed to load user", slog.Any("error", err))
			return LoginOutput{Failure: FailureInternal, Error: i18n.InternalError}
		}
		metrics.LoginAttempts.WithLabelValues("password", "rejected").Inc()
		return LoginOutput{Failure: FailureUnauthorized, Error: i18n.InvalidCredentials}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		metrics.LoginAttempts.WithLabelValues("password", "rejected").Inc()
		return LoginOutput{Failure: FailureUnauthorized, Error: i18n.InvalidCredentials}
	}

	logging.AddToEvent(ctx, slog.Int64("user_id", user.ID), slog.String("role", user.RoleID))

	// Admins completam o login só com senha.
	if user.IsAdmin() {
		metrics.LoginAttempts.WithLabelValues("password", "success").Inc()
		return LoginOutput{Success: true, User: &user}
	}

	metrics.LoginAttempts.WithLabelValues("password", "face_required").Inc()
	return LoginOutput{Success: true, User: &user, RequiresFace: true}
}

type FaceLoginInput struct {
	// PendingUserID is the account that passed the password factor.
	PendingUserID int64
	Username      string
	FaceImage     []byte
}

type FaceLoginOutput struct {
	Success bool
	Failure Failure
	Error   i18n.Key
	User    *db.User
	Result  *face.Result
}

func faceFailed(outcome string, f Failure, key i18n.Key) FaceLoginOutput {
	metrics.LoginAttempts.WithLabelValues("face", outcome).Inc()
	return FaceLoginOutput{Failure: f, Error: key}
}

func (s *AuthService) LoginFace(ctx context.Context, input FaceLoginInput) FaceLoginOutput {
	if input.PendingUserID == 0 {
		return faceFailed("no_pending_login", FailureUnauthorized, i18n.FacePending)
	}
	if len(input.FaceImage) == 0 {
		return faceFailed("invalid", FailureInvalid, i18n.InvalidImage)
	}

	user, err := s.queries.GetUserByID(ctx, input.PendingUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return faceFailed("no_pending_login", FailureUnauthorized, i18n.FacePending)
		}
		logging.Get().ErrorContext(ctx, "failed to load pending user", slog.Any("error", err))
		return faceFailed("error", FailureInternal, i18n.InternalError)
	}
	if username := strings.TrimSpace(input.Username); username != "" && username != user.Username {
		return faceFailed("rejected", FailureUnauthorized, i18n.InvalidCredentials)
	}

	probe, err := face.DecodeImage(input.FaceImage, s.verifier.MinImageBytes())
	if err != nil {
		return faceFailed("invalid", FailureInvalid, imageErrorKey(err))
	}

	reference, err := s.referenceImage(ctx, user.Username)
	if err != nil {
		logging.Get().ErrorContext(ctx, "reference image unavailable",
			slog.String("username", user.Username),
			slog.Any("error", err),
		)
		return faceFailed("error", FailureUnavailable, i18n.FaceUnavailable)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	result, err := s.verifier.VerifyImages(verifyCtx, reference, probe)
	if err != nil {
		if face.IsInputError(err) {
			return faceFailed("invalid", FailureInvalid, imageErrorKey(err))
		}
		// Prazo estourado conta como indisponibilidade; cancelamento do cliente não.
		if ctx.Err() != nil {
			return faceFailed("cancelled", FailureInternal, i18n.InternalError)
		}
		return faceFailed("timeout", FailureUnavailable, i18n.FaceUnavailable)
	}

	s.audit(ctx, user.ID, result)

	if result.Verified {
		metrics.LoginAttempts.WithLabelValues("face", "success").Inc()
		return FaceLoginOutput{Success: true, User: &user, Result: &result}
	}

	// Falha dos dois tiers responde igual a um rosto diferente; o motivo
	// fica no log, nas métricas e na auditoria.
	outcome := "rejected"
	if result.Failed() {
		outcome = "failed"
	}
	out := faceFailed(outcome, FailureUnauthorized, i18n.FaceNotRecognized)
	out.Result = &result
	return out
}

// ReferenceImagePath returns where the reference image of username is stored.
func (s *AuthService) ReferenceImagePath(ctx context.Context, username string) (string, error) {
	path, err := s.queries.GetReferenceImagePath(ctx, username)
	if err != nil {
		return "", err
	}
	if !path.Valid || path.String == "" {
		return "", sql.ErrNoRows
	}
	return path.String, nil
}

func (s *AuthService) referenceImage(ctx context.Context, username string) (face.Image, error) {
	path, err := s.ReferenceImagePath(ctx, username)
	if err != nil {
		return face.Image{}, err
	}
	data, err := s.store.Read(path)
	if err != nil {
		return face.Image{}, err
	}
	// A referência já passou pela checagem de tamanho no cadastro.
	return face.DecodeImage(data, 0)
}

func (s *AuthService) audit(ctx context.Context, userID int64, r face.Result) {
	_, err := s.queries.CreateFaceVerification(ctx, db.CreateFaceVerificationParams{
		UserID:        userID,
		Verified:      r.Verified,
		Distance:      r.Distance,
		Threshold:     r.Threshold,
		Profile:       r.Profile,
		FailureReason: string(r.FailureReason),
	})
	if err != nil {
		logging.Get().WarnContext(ctx, "failed to record face verification", slog.Any("error", err))
	}
}

func imageErrorKey(err error) i18n.Key {
	if errors.Is(err, face.ImageTooSmall) {
		return i18n.ImageTooSmall
	}
	return i18n.InvalidImage
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
