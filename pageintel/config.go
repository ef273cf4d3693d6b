package pageintel

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1genadam/tileshop-rag-sub001/pagefetch"
)

// Config configures the pipeline service.
type Config struct {
	// DBPath is the SQLite database file. Default: data/pageintel.db.
	DBPath string `yaml:"db_path"`

	// RefDataDir holds the externally editable reference data (aliases,
	// family→document mapping, classifier thresholds). Missing files fall
	// back to built-in defaults.
	RefDataDir string `yaml:"refdata_dir"`

	// WatchRefData hot-reloads the reference data on file changes.
	WatchRefData bool `yaml:"watch_refdata"`

	// Fetch settings.
	FetchTimeout time.Duration                    `yaml:"fetch_timeout"`
	MaxBytes     int64                            `yaml:"max_bytes"`
	UserAgent    string                           `yaml:"user_agent"`
	Sections     map[string]pagefetch.SectionSpec `yaml:"sections"`

	// BrowserRemoteURL switches section fetching to a rendered-page
	// browser fetcher attached to the given Chrome WebSocket endpoint
	// ("local" launches a headless instance).
	BrowserRemoteURL string `yaml:"browser_remote_url"`

	// Resource verification.
	ResourceTimeout time.Duration `yaml:"resource_timeout"`
	DeepVerifyPDF   bool          `yaml:"deep_verify_pdf"`

	// Batch extraction.
	Workers       int     `yaml:"workers"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`

	// RunRetention bounds the extraction run log; older rows are pruned.
	// Zero keeps everything.
	RunRetention time.Duration `yaml:"run_retention"`

	// API settings.
	APIAddr string `yaml:"api_addr"`

	// AdminPasswordHash (bcrypt) gates the mutating API endpoints
	// (reference-data reload). Empty disables them.
	AdminPasswordHash string `yaml:"admin_password_hash"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "data/pageintel.db"
	}
	if c.RefDataDir == "" {
		c.RefDataDir = "refdata"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "tileshop-pageintel/1.0"
	}
	if c.ResourceTimeout <= 0 {
		c.ResourceTimeout = 10 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 2
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 4
	}
	if c.APIAddr == "" {
		c.APIAddr = ":8089"
	}
}

// LoadConfig reads a YAML config file. A missing path returns defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("pageintel: read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("pageintel: parse config: %w", err)
		}
	}
	cfg.defaults()
	return cfg, nil
}
