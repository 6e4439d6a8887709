package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// HostEnvVar overrides [APIConfig.Host] when set.
const HostEnvVar = "ORACLE_HOST"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API     APIConfig     `toml:"api"`
	Session SessionConfig `toml:"session"`
	Storage StorageConfig `toml:"storage"`
	Dev     DevConfig     `toml:"dev"`
	UI      UIConfig      `toml:"ui"`
}

// APIConfig controls how the client reaches the coaching API.
type APIConfig struct {
	Host          string        `toml:"host"`
	BaseURL       string        `toml:"base_url"`
	ProductionURL string        `toml:"production_url"`
	Timeout       time.Duration `toml:"timeout"`
	RetryAttempts int           `toml:"retry_attempts"`
	RetryDelay    time.Duration `toml:"retry_delay"`
	RateLimit     float64       `toml:"rate_limit"`
}

// SessionConfig contains session verification and navigation settings.
type SessionConfig struct {
	CheckInterval time.Duration `toml:"check_interval"`
	HistoryLimit  int           `toml:"history_limit"`
}

// StorageConfig contains durable client storage settings.
type StorageConfig struct {
	Path         string        `toml:"path"`
	SignalPath   string        `toml:"signal_path"`
	PollInterval time.Duration `toml:"poll_interval"`
}

// DevConfig contains settings for the local development API server.
type DevConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	LogPath      string `toml:"log_path"`
	StaticCursor bool   `toml:"static_cursor"` // disables cursor blinking in text fields
}

// Addr returns the host:port the development server listens on.
func (d DevConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.ApplyEnv()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if host := os.Getenv(HostEnvVar); host != "" {
		c.API.Host = host
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.API.RetryAttempts < 1:
		return fmt.Errorf("%w: api.retry_attempts must be at least 1", ErrInvalidConfig)
	case c.API.Timeout <= 0:
		return fmt.Errorf("%w: api.timeout must be positive", ErrInvalidConfig)
	case c.API.RetryDelay < 0:
		return fmt.Errorf("%w: api.retry_delay must not be negative", ErrInvalidConfig)
	case c.API.RateLimit < 0:
		return fmt.Errorf("%w: api.rate_limit must not be negative", ErrInvalidConfig)
	case c.Session.CheckInterval <= 0:
		return fmt.Errorf("%w: session.check_interval must be positive", ErrInvalidConfig)
	case c.Session.HistoryLimit < 1:
		return fmt.Errorf("%w: session.history_limit must be at least 1", ErrInvalidConfig)
	case c.Storage.Path == "":
		return fmt.Errorf("%w: storage.path is required", ErrInvalidConfig)
	}
	return nil
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
