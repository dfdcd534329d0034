package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Tautulli TautulliConfig `toml:"tautulli"`
	Database DatabaseConfig `toml:"database"`
	Sync     SyncConfig     `toml:"sync"`
}

// TautulliConfig contains the Tautulli server connection settings.
type TautulliConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig contains sync tuning knobs.
type SyncConfig struct {
	PageSize     int     `toml:"page_size"`      // Records per remote page request
	RateLimit    float64 `toml:"rate_limit"`     // Remote requests per second
	RetryBaseSec int     `toml:"retry_base_sec"` // Base delay for lock-retry backoff
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then applies environment variable overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with defaults from the embedded example config,
// with environment variable overrides applied.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv overlays TAUTULLI_URL, TAUTULLI_API_KEY and STATX_DB_PATH onto the config.
// Environment variables win over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("TAUTULLI_URL"); v != "" {
		c.Tautulli.URL = v
	}
	if v := os.Getenv("TAUTULLI_API_KEY"); v != "" {
		c.Tautulli.APIKey = v
	}
	if v := os.Getenv("STATX_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	c.Tautulli.URL = strings.TrimRight(c.Tautulli.URL, "/")
}

// ValidateCredentials checks that the Tautulli connection settings are present.
// Called before any component that talks to the remote server is constructed.
func (c *Config) ValidateCredentials() error {
	if c.Tautulli.URL == "" || c.Tautulli.APIKey == "" {
		return fmt.Errorf("%w: TAUTULLI_URL and TAUTULLI_API_KEY must be set (env or config.toml)", ErrMissingCredentials)
	}
	return nil
}
