package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/throw"
)

func loadIn(t *testing.T) (Config, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PT_DATA_DIR", dir)
	return Load(filepath.Join(dir, "missing.env"))
}

func TestDefaults(t *testing.T) {
	cfg, err := loadIn(t)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TickHz != 60 || cfg.BroadcastHz != 30 {
		t.Errorf("cadence = %d/%d", cfg.TickHz, cfg.BroadcastHz)
	}
	if cfg.MetadataTimeout != 5*time.Second || cfg.MissPolicy != "retry" {
		t.Errorf("encounter settings = %v %q", cfg.MetadataTimeout, cfg.MissPolicy)
	}
	if hp := cfg.Encounter().Throw.HitPoint; hp != throw.HitAtContact {
		t.Errorf("hit point = %q, want contact", hp)
	}
	if cfg.HistoryDSN != filepath.Join(cfg.DataDir, "history.db") {
		t.Errorf("HistoryDSN = %q", cfg.HistoryDSN)
	}
	if cfg.PokeAPIBase != "https://pokeapi.co/api/v2" {
		t.Errorf("PokeAPIBase = %q", cfg.PokeAPIBase)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PT_TICK_HZ", "120")
	t.Setenv("PT_BROADCAST_HZ", "40")
	t.Setenv("PT_MISS_POLICY", "advance")
	t.Setenv("PT_METADATA_TIMEOUT", "2s")
	t.Setenv("PT_LANG", "pt-BR")
	t.Setenv("PT_POKEAPI_RETRIES", "0")
	t.Setenv("PT_HIT_POINT", "closest_approach")

	cfg, err := loadIn(t)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ec := cfg.Encounter()
	if ec.MissPolicy != encounter.MissAdvance || ec.MetadataTimeout != 2*time.Second ||
		ec.Throw.HitPoint != throw.HitAtClosestApproach {
		t.Errorf("Encounter() = %+v", ec)
	}
	if s := cfg.Session(); s.TickHz != 120 || s.BroadcastHz != 40 {
		t.Errorf("Session() = %+v", s)
	}
	if got := cfg.Printer().Tag().String(); got != "pt-BR" {
		t.Errorf("printer tag = %s", got)
	}
	if pc := cfg.PokeAPI(); pc.MaxRetries != -1 || pc.HTTPClient.Timeout != 15*time.Second {
		t.Errorf("PokeAPI() = %+v", pc)
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"PT_TICK_HZ", "0", "PT_TICK_HZ"},
		{"PT_BROADCAST_HZ", "90", "PT_BROADCAST_HZ"},
		{"PT_MISS_POLICY", "sometimes", "PT_MISS_POLICY"},
		{"PT_HIT_POINT", "apex", "PT_HIT_POINT"},
		{"PT_HISTORY_DRIVER", "mysql", "PT_HISTORY_DRIVER"},
		{"PT_POKEAPI_BASE", "not a url", "PT_POKEAPI_BASE"},
		{"PT_API_ADDR", "nowhere", "PT_API_ADDR"},
		{"PT_METADATA_TIMEOUT", "-1s", "PT_METADATA_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := loadIn(t)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestUnparsableValue(t *testing.T) {
	t.Setenv("PT_TICK_HZ", "fast")
	if _, err := loadIn(t); err == nil {
		t.Error("expected parse error")
	}
}

func TestPostgresNeedsDSN(t *testing.T) {
	t.Setenv("PT_HISTORY_DRIVER", "postgres")
	if _, err := loadIn(t); err == nil || !strings.Contains(err.Error(), "PT_HISTORY_DSN") {
		t.Errorf("err = %v", err)
	}
}

func TestDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PT_DATA_DIR", dir)
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("PT_CLIENT_SEED=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := os.LookupEnv("PT_CLIENT_SEED"); ok {
		t.Skip("PT_CLIENT_SEED already set in the environment")
	}
	t.Cleanup(func() { os.Unsetenv("PT_CLIENT_SEED") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClientSeed != "from-file" {
		t.Errorf("ClientSeed = %q", cfg.ClientSeed)
	}
}

func TestPaths(t *testing.T) {
	cfg := Config{DataDir: filepath.Join(t.TempDir(), "nested")}
	if err := cfg.EnsureDataDir(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.DataDir); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
	if filepath.Dir(cfg.CachePath()) != cfg.DataDir || filepath.Dir(cfg.SeedFallbackPath()) != cfg.DataDir {
		t.Error("paths should live in the data dir")
	}
}
