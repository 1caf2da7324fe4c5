package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file
// and overridden by environment variables.
type Config struct {
	LogLevel    string            `toml:"log_level" env:"MULTITUNE_LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database" envPrefix:"MULTITUNE_DATABASE_"`
	Server      ServerConfig      `toml:"server" envPrefix:"MULTITUNE_SERVER_"`
	Auth        AuthConfig        `toml:"auth" envPrefix:"MULTITUNE_AUTH_"`
	Sync        SyncConfig        `toml:"sync" envPrefix:"MULTITUNE_SYNC_"`
}

// CredentialsConfig contains OAuth client credentials per provider.
type CredentialsConfig struct {
	Spotify ProviderCredentials `toml:"spotify" envPrefix:"SPOTIFY_"`
	YouTube ProviderCredentials `toml:"youtube" envPrefix:"YOUTUBE_"`
}

// ProviderCredentials contains an OAuth client registration.
type ProviderCredentials struct {
	ClientID     string `toml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"REDIRECT_URI" validate:"omitempty,url"`
}

// Configured reports whether both client ID and secret are present.
func (p ProviderCredentials) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver" env:"DRIVER" validate:"required,oneof=sqlite3 postgres"`
	DSN          string `toml:"dsn" env:"DSN" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" env:"MAX_OPEN_CONNS" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"MAX_IDLE_CONNS" validate:"gte=0"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string `toml:"host" env:"HOST"`
	Port          int    `toml:"port" env:"PORT" validate:"min=1,max=65535"`
	FrontendURL   string `toml:"frontend_url" env:"FRONTEND_URL" validate:"omitempty,url"`
	AllowedOrigin string `toml:"allowed_origin" env:"ALLOWED_ORIGIN"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig contains session token settings.
type AuthConfig struct {
	JWTSecret string        `toml:"jwt_secret" env:"JWT_SECRET" validate:"required"`
	TokenTTL  time.Duration `toml:"token_ttl" env:"TOKEN_TTL" validate:"gt=0"`
}

// SyncConfig throttles outbound provider requests.
type SyncConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second" env:"REQUESTS_PER_SECOND" validate:"gte=0"`
	Burst             int     `toml:"burst" env:"BURST" validate:"gte=0"`
}

// Load builds the effective configuration: embedded defaults, then the TOML file at path (when it exists),
// then .env and process environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env: %v", ErrInvalidConfig, err)
	}

	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse environment: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their embedded default values.
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

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
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

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
