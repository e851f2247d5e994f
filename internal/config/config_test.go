package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/PauloHFS/faceauth/internal/face"
)

func TestLoad(t *testing.T) {
	t.Run("DefaultValues", func(t *testing.T) {
		os.Clearenv()
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("expected port 8080, got %s", cfg.Port)
		}
		if cfg.Face.MinImageBytes != 1000 {
			t.Errorf("expected min image bytes 1000, got %d", cfg.Face.MinImageBytes)
		}
		if cfg.Face.VerifyTimeout != 60*time.Second {
			t.Errorf("expected 60s verify timeout, got %s", cfg.Face.VerifyTimeout)
		}
		if cfg.Tracing.Exporter != "none" {
			t.Errorf("expected tracing disabled, got %s", cfg.Tracing.Exporter)
		}
	})

	t.Run("ProductionValidation", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("APP_ENV", "prod")
		_, err := Load()
		if err == nil {
			t.Error("expected error when FACE_RUNTIME_URL is missing in production")
		}

		os.Setenv("FACE_RUNTIME_URL", "http://deepface:5005")
		_, err = Load()
		if err == nil {
			t.Error("expected error when ALLOWED_ORIGINS is missing in production")
		}

		os.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://admin.example.com" {
			t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
		}
		if !cfg.IsProd() {
			t.Error("expected prod config")
		}
	})

	t.Run("CustomValues", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("PORT", "9000")
		os.Setenv("FACE_VERIFY_TIMEOUT", "15s")
		os.Setenv("FACE_SERIALIZE_INFERENCE", "true")
		os.Setenv("OTEL_EXPORTER", "STDOUT")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Port != "9000" {
			t.Errorf("expected port 9000, got %s", cfg.Port)
		}
		if cfg.Face.VerifyTimeout != 15*time.Second {
			t.Errorf("expected 15s, got %s", cfg.Face.VerifyTimeout)
		}
		if !cfg.Face.SerializeInference {
			t.Error("expected serialized inference")
		}
		if cfg.Tracing.Exporter != "stdout" {
			t.Errorf("expected stdout exporter, got %s", cfg.Tracing.Exporter)
		}
	})

	t.Run("InvalidValues", func(t *testing.T) {
		for key, value := range map[string]string{
			"FACE_VERIFY_TIMEOUT":      "soon",
			"FACE_MIN_IMAGE_BYTES":     "lots",
			"FACE_SERIALIZE_INFERENCE": "sometimes",
			"OTEL_EXPORTER":            "zipkin",
			"SQLITE_CACHE_SIZE":        "big",
			"SQLITE_TEMP_STORE":        "DISK",
			"SQLITE_WAL_MODE":          "yes please",
			"SQLITE_SYNC_LEVEL":        "ALWAYS",
			"SQLITE_MMAP_SIZE":         "-1",
			"SYSTEM_RAM_MB":            "8G",
		} {
			os.Clearenv()
			os.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", key, value)
			}
		}
	})
}

func TestLoadSQLite(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("SYSTEM_RAM_MB", "4096")
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		want := DefaultSQLiteConfig()
		want.CacheSizeKB = -81 * 1024
		if cfg.SQLite != want {
			t.Errorf("got %+v, want %+v", cfg.SQLite, want)
		}
	})

	t.Run("CustomValues", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("SQLITE_CACHE_SIZE", "-4000")
		os.Setenv("SQLITE_TEMP_STORE", "file")
		os.Setenv("SQLITE_WAL_MODE", "false")
		os.Setenv("SQLITE_SYNC_LEVEL", "full")
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		got := cfg.SQLite
		if got.CacheSizeKB != -4000 || got.TempStore != "FILE" || got.WALMode || got.SyncLevel != "FULL" {
			t.Errorf("unexpected sqlite config %+v", got)
		}
		if pragmas := got.Pragmas(); !slices.Contains(pragmas, "PRAGMA journal_mode = DELETE") {
			t.Errorf("expected rollback journal, got %v", pragmas)
		}
	})

	t.Run("CacheSizeForRAM", func(t *testing.T) {
		tests := []struct {
			ramMB int
			want  int
		}{
			{128, -8 * 1024},
			{4096, -81 * 1024},
			{64 * 1024, -256 * 1024},
		}
		for _, tt := range tests {
			if got := cacheSizeForRAM(tt.ramMB); got != tt.want {
				t.Errorf("cacheSizeForRAM(%d) = %d, want %d", tt.ramMB, got, tt.want)
			}
		}
	})
}

func TestFaceProfiles(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg := &Config{}
		profiles, err := cfg.FaceProfiles()
		if err != nil {
			t.Fatal(err)
		}
		if len(profiles) != 2 || profiles[0].Model != "Facenet" {
			t.Errorf("unexpected defaults %v", profiles)
		}
	})

	t.Run("FromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profiles.yaml")
		doc := `profiles:
  - name: arcface-retina
    model: ArcFace
    detector: retinaface
    metric: euclidean_l2
    threshold: 1.13
    enforce_detection: true
`
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg := &Config{Face: FaceConfig{ProfilesFile: path}}
		profiles, err := cfg.FaceProfiles()
		if err != nil {
			t.Fatal(err)
		}
		want := face.ModelProfile{Name: "arcface-retina", Model: "ArcFace", Detector: "retinaface", Metric: face.MetricEuclideanL2, Threshold: 1.13, EnforceDetection: true}
		if len(profiles) != 1 || profiles[0] != want {
			t.Errorf("got %+v, want %+v", profiles, want)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		docs := map[string]string{
			"unknown field":  "profiles:\n  - name: a\n    model: Facenet\n    detector: opencv\n    metric: cosine\n    colour: red\n",
			"unknown metric": "profiles:\n  - name: a\n    model: Facenet\n    detector: opencv\n    metric: manhattan\n",
			"empty":          "profiles: []\n",
			"three tiers": "profiles:\n" +
				"  - {name: a, model: Facenet, detector: opencv, metric: cosine}\n" +
				"  - {name: b, model: Facenet, detector: opencv, metric: cosine}\n" +
				"  - {name: c, model: Facenet, detector: opencv, metric: cosine}\n",
		}
		for name, doc := range docs {
			t.Run(name, func(t *testing.T) {
				if _, err := ParseFaceProfiles([]byte(doc)); err == nil {
					t.Error("expected error")
				}
			})
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := LoadFaceProfiles(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
