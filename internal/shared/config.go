package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override provider credentials.
const (
	EnvClientID     = "LOOPAUTH_CLIENT_ID"
	EnvClientSecret = "LOOPAUTH_CLIENT_SECRET"
	EnvIssuer       = "LOOPAUTH_ISSUER"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Server   ServerConfig   `toml:"server"`
	Flow     FlowConfig     `toml:"flow"`
	Database DatabaseConfig `toml:"database"`
}

// ProviderConfig describes the identity provider the browser signs in with.
type ProviderConfig struct {
	Issuer        string   `toml:"issuer"`
	AuthURL       string   `toml:"auth_url"`
	TokenURL      string   `toml:"token_url"`
	DeviceAuthURL string   `toml:"device_auth_url"`
	ClientID      string   `toml:"client_id"`
	ClientSecret  string   `toml:"client_secret"`
	Scopes        []string `toml:"scopes"`
}

// ServerConfig contains local redirect server settings.
type ServerConfig struct {
	Host      string  `toml:"host"`
	Ports     []int   `toml:"ports"`
	MediaDir  string  `toml:"media_dir"`
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// FlowConfig controls how long a sign-in may take and what happens when the
// local server is unavailable.
type FlowConfig struct {
	Timeout        time.Duration `toml:"timeout"`
	DeviceFallback bool          `toml:"device_fallback"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Validate reports whether the provider section has enough information to start a sign-in.
func (p ProviderConfig) Validate() error {
	if p.ClientID == "" {
		return fmt.Errorf("%w: provider.client_id", ErrMissingCredentials)
	}
	if p.Issuer == "" && p.AuthURL == "" {
		return fmt.Errorf("%w: provider.issuer or provider.auth_url must be set", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

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

// ApplyEnv loads the given dotenv files (missing files are skipped) and lets
// LOOPAUTH_* variables override provider credentials.
//
// Values already present in the process environment win over dotenv files.
func ApplyEnv(config *Config, files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if v := os.Getenv(EnvClientID); v != "" {
		config.Provider.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		config.Provider.ClientSecret = v
	}
	if v := os.Getenv(EnvIssuer); v != "" {
		config.Provider.Issuer = v
	}
	return nil
}
