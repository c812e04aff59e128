package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Search    SearchConfig   `yaml:"search"`
	Account   AccountConfig  `yaml:"account"`
	Database  DatabaseConfig `yaml:"database"`
	Snapshot  SnapshotConfig `yaml:"snapshot"`
	API       APIConfig      `yaml:"api"`
	LogLevel  string         `yaml:"log_level,omitempty"`
	AuthFile  string         `yaml:"auth_file"`
	AvatarCDN string         `yaml:"avatar_cdn"`
}

// SearchConfig configures the external search index boundary
type SearchConfig struct {
	Host        string  `yaml:"host"`
	APIKey      string  `yaml:"api_key"`
	Collection  string  `yaml:"collection"`
	BaseFilter  string  `yaml:"base_filter"`
	QueryBy     string  `yaml:"query_by,omitempty"`
	SortBy      string  `yaml:"sort_by,omitempty"`
	PageSize    int     `yaml:"page_size"`
	Capacity    int     `yaml:"capacity"`        // top-N bound of the trending set
	MaxWorkers  int     `yaml:"max_workers"`     // concurrent page fetches
	TimeoutSecs int     `yaml:"timeout_seconds"` // per request
	MaxRetries  int     `yaml:"max_retries"`     // per page before PageUnavailable
	RetrySecs   int     `yaml:"retry_seconds"`   // base backoff delay
	RatePerSec  float64 `yaml:"rate_per_sec"`    // request rate limit
	RateBurst   int     `yaml:"rate_burst"`      // rate limiter burst
}

// AccountConfig configures the authenticated tracked-bots API
type AccountConfig struct {
	BaseURL     string `yaml:"base_url"`
	TokenURL    string `yaml:"token_url,omitempty"` // OAuth endpoint for refresh grants
	AppID       string `yaml:"app_id,omitempty"`
	TimeoutSecs int    `yaml:"timeout_seconds"`
	MaxRetries  int    `yaml:"max_retries"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Provider string            `yaml:"provider"` // sqlite, mongodb
	URI      string            `yaml:"uri"`
	Database string            `yaml:"database"`
	Options  map[string]string `yaml:"options,omitempty"`
}

// SnapshotConfig configures the daily capture loop
type SnapshotConfig struct {
	CronExpr        string `yaml:"cron_expr"`
	Thresholds      []int  `yaml:"thresholds"`
	SuppressInitial bool   `yaml:"suppress_initial"` // skip the immediate first capture
}

// APIConfig configures the HTTP API server
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Host:        "https://search.example.net",
			Collection:  "public_characters_alias",
			BaseFilter:  "type:STANDARD",
			QueryBy:     "name,title,tags,creator_username,character_id",
			SortBy:      "num_messages_24h:desc",
			PageSize:    48,
			Capacity:    480,
			MaxWorkers:  4,
			TimeoutSecs: 15,
			MaxRetries:  3,
			RetrySecs:   2,
			RatePerSec:  2,
			RateBurst:   4,
		},
		Account: AccountConfig{
			BaseURL:     "https://prod.nd-api.com",
			TokenURL:    "https://auth.nd-api.com/oauth/token",
			TimeoutSecs: 10,
			MaxRetries:  3,
		},
		Database: DatabaseConfig{
			Provider: "sqlite",
			URI:      "botlens.db",
			Database: "botlens",
		},
		Snapshot: SnapshotConfig{
			CronExpr:   "@daily",
			Thresholds: []int{240, 480},
		},
		API: APIConfig{
			Addr: ":8080",
		},
		LogLevel:  "INFO",
		AuthFile:  "data/auth_credentials.json",
		AvatarCDN: "https://cdn.nd-api.com/avatars",
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("search.page_size must be positive")
	}
	if c.Search.Capacity <= 0 {
		return fmt.Errorf("search.capacity must be positive")
	}
	if c.Search.MaxWorkers <= 0 {
		c.Search.MaxWorkers = 4
	}
	if len(c.Snapshot.Thresholds) == 0 {
		c.Snapshot.Thresholds = []int{240, 480}
	}
	return nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".botlens/config.yaml"
	}
	return filepath.Join(home, ".botlens", "config.yaml")
}

// Exists checks if config file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Timeout returns the per-request search timeout.
func (c SearchConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// RetryDelay returns the base backoff delay between page retries.
func (c SearchConfig) RetryDelay() time.Duration { return time.Duration(c.RetrySecs) * time.Second }

// Timeout returns the per-request account API timeout.
func (c AccountConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }
