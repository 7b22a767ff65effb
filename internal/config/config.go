// Package config loads the daemon configuration from a YAML file and fills
// in defaults so the rest of the code never checks for zero values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Listen  string        `yaml:"listen"`
	DBPath  string        `yaml:"db_path"`
	Browser BrowserConfig `yaml:"browser"`
	Scrape  ScrapeConfig  `yaml:"scrape"`
	Archive ArchiveConfig `yaml:"archive"`
}

// BrowserConfig controls the Chrome attachment.
type BrowserConfig struct {
	// Remote is the DevTools WebSocket URL of the user's browser, e.g.
	// ws://127.0.0.1:9222/devtools/browser/<id>. Empty launches a
	// private instance.
	Remote          string        `yaml:"remote"`
	Headless        bool          `yaml:"headless"`
	MemoryLimit     int64         `yaml:"memory_limit"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
}

// ScrapeConfig controls cache and refresh timing.
type ScrapeConfig struct {
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	MessageTimeout  time.Duration `yaml:"message_timeout"`
	LoadTimeout     time.Duration `yaml:"load_timeout"`
}

// ArchiveConfig controls the idle tab sweep.
type ArchiveConfig struct {
	Interval time.Duration `yaml:"interval"`
	Disabled bool          `yaml:"disabled"`
}

// LoadFile reads a YAML configuration file. A missing path returns the
// defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8723"
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath()
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Scrape.CacheTTL <= 0 {
		c.Scrape.CacheTTL = 2 * time.Minute
	}
	if c.Scrape.RefreshInterval <= 0 {
		c.Scrape.RefreshInterval = 5 * time.Minute
	}
	if c.Scrape.MessageTimeout <= 0 {
		c.Scrape.MessageTimeout = 5 * time.Second
	}
	if c.Scrape.LoadTimeout <= 0 {
		c.Scrape.LoadTimeout = 15 * time.Second
	}
	if c.Archive.Interval <= 0 {
		c.Archive.Interval = time.Hour
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "home.db"
	}
	return home + "/.local/share/homed/home.db"
}
