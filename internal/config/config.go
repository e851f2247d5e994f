package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseURL    string
	FacesDir       string
	AllowedOrigins []string
	Env            string // "dev" or "prod"
	Face           FaceConfig
	Tracing        TracingConfig
	SQLite         SQLiteConfig
}

type FaceConfig struct {
	RuntimeURL     string
	RuntimeToken   string
	RuntimeTimeout time.Duration
	// VerifyTimeout bounds a whole verification, both tiers included.
	VerifyTimeout      time.Duration
	MinImageBytes      int
	ProfilesFile       string
	CacheSize          int
	SerializeInference bool
}

type TracingConfig struct {
	Exporter     string // none, stdout, otlp-http, otlp-grpc
	Endpoint     string
	ServiceName  string
	SampleRatio  float64
	InsecureOTLP bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", "./faceauth.db"),
		FacesDir:       getEnv("FACES_DIR", "faces"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		Env:            getEnv("APP_ENV", "dev"),
		Face: FaceConfig{
			RuntimeURL:   getEnv("FACE_RUNTIME_URL", "http://localhost:5005"),
			RuntimeToken: os.Getenv("FACE_RUNTIME_TOKEN"),
			ProfilesFile: os.Getenv("FACE_PROFILES_FILE"),
		},
		Tracing: TracingConfig{
			Exporter:    strings.ToLower(getEnv("OTEL_EXPORTER", "none")),
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "faceauth-api"),
		},
	}

	var err error
	if cfg.Face.RuntimeTimeout, err = getEnvDuration("FACE_RUNTIME_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Face.VerifyTimeout, err = getEnvDuration("FACE_VERIFY_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.Face.MinImageBytes, err = getEnvInt("FACE_MIN_IMAGE_BYTES", 1000); err != nil {
		return nil, err
	}
	if cfg.Face.CacheSize, err = getEnvInt("FACE_EMBEDDING_CACHE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.Face.SerializeInference, err = getEnvBool("FACE_SERIALIZE_INFERENCE", false); err != nil {
		return nil, err
	}
	if cfg.Tracing.InsecureOTLP, err = getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false); err != nil {
		return nil, err
	}
	if cfg.SQLite, err = loadSQLite(); err != nil {
		return nil, err
	}
	if cfg.Tracing.SampleRatio, err = getEnvFloat("OTEL_SAMPLE_RATIO", 1.0); err != nil {
		return nil, err
	}

	switch cfg.Tracing.Exporter {
	case "none", "stdout", "otlp-http", "otlp-grpc":
	default:
		return nil, fmt.Errorf("OTEL_EXPORTER inválido: %q", cfg.Tracing.Exporter)
	}

	// Validação Estrita para Produção
	if cfg.Env == "prod" {
		if _, ok := os.LookupEnv("FACE_RUNTIME_URL"); !ok {
			return nil, fmt.Errorf("produção: FACE_RUNTIME_URL é obrigatório")
		}
		if len(cfg.AllowedOrigins) == 0 {
			return nil, fmt.Errorf("produção: ALLOWED_ORIGINS é obrigatório")
		}
	}

	return cfg, nil
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
