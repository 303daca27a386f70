package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pbaille/tripplan/internal/geocode"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"TRIPPLAN_DB", "TRIPPLAN_ADDR", "NOMINATIM_SERVER", "NOMINATIM_EMAIL", "GEOCODE_DELAY", "EXCHANGE_API", "WEATHER_API", "TRIPPLAN_DEBUG"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "tripplan.db" || cfg.Addr != ":8080" || cfg.GeocodeDelay != geocode.DefaultDelay {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("TRIPPLAN_ADDR", ":9999")
	unset(t, "TRIPPLAN_DB", "GEOCODE_DELAY")

	path := filepath.Join(t.TempDir(), ".env")
	content := "TRIPPLAN_DB=/tmp/florida.db\nTRIPPLAN_ADDR=:7000\nGEOCODE_DELAY=2s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/florida.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("environment should win over the file, addr = %q", cfg.Addr)
	}
	if cfg.GeocodeDelay != 2*time.Second {
		t.Errorf("delay = %s", cfg.GeocodeDelay)
	}
}

func TestLoadRejectsBadDelay(t *testing.T) {
	t.Setenv("GEOCODE_DELAY", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected a parse error")
	}
}

// unset removes keys for the duration of the test. godotenv never
// overrides a key that is present, even when empty.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}
