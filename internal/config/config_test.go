package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()
	if cfg.Port != 8080 || cfg.StoreDriver != "sqlite" || cfg.MpesaMode != "simulator" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.STKPollAttempts != 12 || cfg.STKPollInterval != 5*time.Second {
		t.Errorf("unexpected poll defaults: %d x %s", cfg.STKPollAttempts, cfg.STKPollInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STK_POLL_INTERVAL", "2s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOW_STOCK_THRESHOLD", "not-a-number")

	cfg := config.Load()
	if cfg.Port != 9090 || cfg.STKPollInterval != 2*time.Second {
		t.Errorf("env not applied: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.LowStockThreshold != 5 {
		t.Errorf("bad int should fall back, got %d", cfg.LowStockThreshold)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	if err := config.Load().Validate(); err == nil {
		t.Error("postgres without DATABASE_URL should fail")
	}

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("MPESA_MODE", "daraja")
	if err := config.Load().Validate(); err == nil {
		t.Error("daraja without credentials should fail")
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TP_A=from-file\nTP_B=\"quoted\"\n# comment\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TP_A", "from-env")
	t.Setenv("TP_B", "")
	os.Unsetenv("TP_B")

	if err := config.LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("TP_A"); got != "from-env" {
		t.Errorf("TP_A = %q, environment should win", got)
	}
	if got := os.Getenv("TP_B"); got != "quoted" {
		t.Errorf("TP_B = %q, want quoted", got)
	}
}
