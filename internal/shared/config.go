package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Database    DatabaseConfig    `toml:"database"`
	Cache       CacheConfig       `toml:"cache"`
	Player      PlayerConfig      `toml:"player"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	APIURL       string `toml:"api_url"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	BaseURL        string   `toml:"base_url"`
	CORSOrigins    []string `toml:"cors_origins"`
	BotSecret      string   `toml:"bot_secret"`
	SecureCookies  bool     `toml:"secure_cookies"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Timeout returns the outbound request bound, 10 seconds when unset.
func (s ServerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// StorageConfig selects the refresh token store backend.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CacheConfig selects the access token cache.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// PlayerConfig tunes playback control behavior.
type PlayerConfig struct {
	SettleDelayMS int `toml:"settle_delay_ms"`
}

// SettleDelay is the pause after a device transfer before resuming.
func (p PlayerConfig) SettleDelay() time.Duration {
	if p.SettleDelayMS < 0 {
		return 0
	}
	return time.Duration(p.SettleDelayMS) * time.Millisecond
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Overrides holds values that take precedence over the file, typically sourced from the environment.
// Zero values leave the config untouched.
type Overrides struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BaseURL      string
	Host         string
	Port         int
	CORSOrigins  string
	BotSecret    string
	StorePath    string
	Environment  string
	LogLevel     string
}

// Apply copies every non-zero override onto c.
func (c *Config) Apply(o Overrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&c.Credentials.Spotify.ClientID, o.ClientID)
	set(&c.Credentials.Spotify.ClientSecret, o.ClientSecret)
	set(&c.Credentials.Spotify.RedirectURI, o.RedirectURI)
	set(&c.Server.BaseURL, o.BaseURL)
	set(&c.Server.Host, o.Host)
	set(&c.Server.BotSecret, o.BotSecret)
	set(&c.Storage.Path, o.StorePath)
	set(&c.Log.Level, o.LogLevel)

	if o.Port > 0 {
		c.Server.Port = o.Port
	}
	if o.CORSOrigins != "" {
		c.Server.CORSOrigins = SplitOrigins(o.CORSOrigins)
	}
	if strings.EqualFold(o.Environment, "production") {
		c.Server.SecureCookies = true
	}
}

// Validate checks the settings required to serve requests.
func (c *Config) Validate() error {
	missing := []string{}
	sp := c.Credentials.Spotify

	if sp.ClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}
	if sp.ClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}
	if sp.RedirectURI == "" {
		missing = append(missing, "SPOTIFY_REDIRECT_URI")
	}
	if c.Server.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}
	if c.Server.Port <= 0 {
		missing = append(missing, "PORT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	switch c.Storage.Backend {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	switch c.Cache.Backend {
	case "", "none", "memory", "redis":
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}

	return nil
}

// SplitOrigins parses a comma separated CORS allow-list.
func SplitOrigins(raw string) []string {
	origins := []string{}
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// LoadConfig reads the TOML file at path on top of the embedded defaults.
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
