package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PauloHFS/faceauth/internal/config"
	"github.com/PauloHFS/faceauth/internal/db"
	"github.com/PauloHFS/faceauth/internal/face"
	"github.com/PauloHFS/faceauth/internal/face/deepface"
	"github.com/PauloHFS/faceauth/internal/logging"
	"github.com/PauloHFS/faceauth/internal/middleware"
	"github.com/PauloHFS/faceauth/internal/policies"
	"github.com/PauloHFS/faceauth/internal/services"
	"github.com/PauloHFS/faceauth/internal/storage"
	"github.com/PauloHFS/faceauth/internal/tracing"
	"github.com/PauloHFS/faceauth/internal/web"
)

// NewVerifier monta a cadeia de extração: cliente do runtime, métricas,
// cache e, opcionalmente, serialização das inferências.
func NewVerifier(cfg *config.Config) (*face.Verifier, *deepface.Client, error) {
	profiles, err := cfg.FaceProfiles()
	if err != nil {
		return nil, nil, err
	}

	runtime := deepface.New(deepface.Config{
		BaseURL: cfg.Face.RuntimeURL,
		Timeout: cfg.Face.RuntimeTimeout,
		Token:   cfg.Face.RuntimeToken,
	})

	var extractor face.Extractor = face.NewInstrumentedExtractor(runtime)
	if cfg.Face.CacheSize > 0 {
		cached, err := face.NewCachingExtractor(extractor, cfg.Face.CacheSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		extractor = cached
	}
	if cfg.Face.SerializeInference {
		extractor = face.NewSerialExtractor(extractor)
	}

	verifier, err := face.NewVerifier(extractor, profiles, face.WithMinImageBytes(cfg.Face.MinImageBytes))
	if err != nil {
		return nil, nil, err
	}
	return verifier, runtime, nil
}

// NewHandler registra as rotas e aplica a pilha de middlewares.
func NewHandler(cfg *config.Config, deps web.HandlerDeps, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET "+web.Metrics, promhttp.Handler())
	web.RegisterRoutes(mux, deps)

	isProd := cfg.IsProd()

	handler := middleware.Recovery(
		limiter.Middleware(
			middleware.SecurityHeaders(isProd)(
				middleware.Logger(
					middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins))(
						middleware.Locale(
							deps.SessionManager.LoadAndSave(
								middleware.CSRF(middleware.InjectCSRF(mux), isProd),
							),
						),
					),
				),
			),
		),
	)

	return gzhttp.GzipHandler(handler)
}

func NewSessionManager(cfg *config.Config, pool *db.DualPool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(pool.Write)
	sm.Lifetime = 24 * time.Hour
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = cfg.IsProd()
	return sm
}

func RunServer() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logging.Init()
	logger := logging.Get()

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		panic(err)
	}

	// 1. DB (leituras e escrita separadas)
	pool, err := db.NewDualPool(cfg.DatabaseURL, cfg.SQLite)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		panic(err)
	}
	defer pool.Close()

	if err := db.RunMigrations(context.Background(), pool.Write); err != nil {
		logger.Error("failed to run migrations", "error", err)
		panic(err)
	}

	// 1.1 Garantir diretório das imagens de referência
	if err := os.MkdirAll(cfg.FacesDir, 0o750); err != nil {
		logger.Error("failed to create faces directory", "error", err)
		panic(err)
	}

	verifier, runtime, err := NewVerifier(cfg)
	if err != nil {
		logger.Error("invalid face configuration", "error", err)
		panic(err)
	}
	for i, p := range verifier.Profiles() {
		logger.Info("face profile loaded", slog.Int("tier", i+1), slog.String("profile", p.String()))
	}

	faces := storage.NewFaceStore(cfg.FacesDir)
	sessionManager := NewSessionManager(cfg, pool)

	deps := web.HandlerDeps{
		DB:             pool.Read,
		Queries:        pool.Queries(),
		SessionManager: sessionManager,
		Auth:           services.NewAuthService(pool.QueriesWrite(), faces, verifier, cfg),
		Faces:          faces,
		Enforcer:       policies.MustDefault(),
		Runtime:        runtime,
		Config:         cfg,
	}

	limiter := middleware.NewRateLimiter()
	stopLimiter := make(chan struct{})
	go limiter.Run(stopLimiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewHandler(cfg, deps, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		// Uma verificação completa pode levar até VerifyTimeout.
		WriteTimeout: cfg.Face.VerifyTimeout + 15*time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server started", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("server stopping")
	close(stopLimiter)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("failed to flush traces", "error", err)
	}

	logger.Info("server exited properly")
}
