package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "127.0.0.1:8723" {
		t.Fatalf("Listen = %q", cfg.Listen)
	}
	if cfg.Scrape.CacheTTL != 2*time.Minute {
		t.Fatalf("CacheTTL = %v", cfg.Scrape.CacheTTL)
	}
	if cfg.Scrape.RefreshInterval != 5*time.Minute {
		t.Fatalf("RefreshInterval = %v", cfg.Scrape.RefreshInterval)
	}
	if cfg.Archive.Interval != time.Hour {
		t.Fatalf("Archive.Interval = %v", cfg.Archive.Interval)
	}
	if cfg.DBPath == "" {
		t.Fatal("DBPath empty")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homed.yaml")
	body := `
listen: "0.0.0.0:9000"
db_path: "/tmp/x.db"
browser:
  remote: "ws://127.0.0.1:9222/devtools/browser/abc"
scrape:
  cache_ttl: 30s
  refresh_interval: 1m
archive:
  disabled: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "0.0.0.0:9000" || cfg.DBPath != "/tmp/x.db" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Browser.Remote == "" {
		t.Fatal("Remote not parsed")
	}
	if cfg.Scrape.CacheTTL != 30*time.Second || cfg.Scrape.RefreshInterval != time.Minute {
		t.Fatalf("scrape = %+v", cfg.Scrape)
	}
	if !cfg.Archive.Disabled {
		t.Fatal("Archive.Disabled not parsed")
	}
	// Unset fields still default.
	if cfg.Scrape.MessageTimeout != 5*time.Second {
		t.Fatalf("MessageTimeout = %v", cfg.Scrape.MessageTimeout)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/homed.yaml"); err == nil {
		t.Fatal("missing file did not error")
	}
}
