package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("JOBSEARCH_SERVER_URL", "http://jobs.internal:8080")
	t.Setenv("JOBSEARCH_MAX_JOBS", "80")
	t.Setenv("JOBSEARCH_MOCK_FALLBACK", "false")
	t.Setenv("JOBSEARCH_SAVED_STORE", "redis")

	cfg := DefaultConfig()
	if cfg.ServerURL != "http://jobs.internal:8080" {
		t.Fatalf("unexpected server url %q", cfg.ServerURL)
	}
	if cfg.MaxJobs != 80 || cfg.MockFallback || cfg.SavedStore != "redis" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadFileJSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
  // comments and trailing commas are fine
  source: "mock",
  results_ttl: "30m",
  allow_origins: ["http://localhost:5173",],
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Source != "mock" {
		t.Fatalf("expected source mock, got %q", cfg.Source)
	}
	if len(cfg.AllowOrigins) != 1 || cfg.AllowOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected origins %v", cfg.AllowOrigins)
	}
	ttl, err := cfg.TTL()
	if err != nil || ttl != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v %v", ttl, err)
	}
	if cfg.ListenAddr != ":3000" {
		t.Fatalf("expected default listen addr to survive, got %q", cfg.ListenAddr)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.SavedStore != "file" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestTTLDisabled(t *testing.T) {
	for _, value := range []string{"", "0"} {
		ttl, err := Config{ResultsTTL: value}.TTL()
		if err != nil || ttl != 0 {
			t.Fatalf("expected disabled ttl for %q, got %v %v", value, ttl, err)
		}
	}
	if _, err := (Config{ResultsTTL: "soon"}).TTL(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSavedDirOverride(t *testing.T) {
	dir, err := Config{DataDir: "/tmp/jobs"}.SavedDir()
	if err != nil || dir != "/tmp/jobs" {
		t.Fatalf("unexpected saved dir %q %v", dir, err)
	}
}

func TestLoadProxiesFromEnv(t *testing.T) {
	t.Setenv("JOBSEARCH_PROXIES", "http://a:1, ,http://b:2")
	proxies, err := LoadProxies("")
	if err != nil {
		t.Fatalf("LoadProxies() error = %v", err)
	}
	if len(proxies) != 2 || proxies[1] != "http://b:2" {
		t.Fatalf("unexpected proxies %v", proxies)
	}
}
