package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Storage.Backend != "file" {
			t.Errorf("expected storage backend file, got %s", config.Storage.Backend)
		}

		if config.Storage.Path != "./data/refreshTokens.json" {
			t.Errorf("expected store path ./data/refreshTokens.json, got %s", config.Storage.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.APIURL != "https://api.spotify.com/v1" {
			t.Errorf("unexpected api url %s", config.Credentials.Spotify.APIURL)
		}

		if config.Cache.Backend != "none" {
			t.Errorf("expected access token cache disabled by default, got %s", config.Cache.Backend)
		}

		if config.Server.Timeout() != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", config.Server.Timeout())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Storage.Path != DefaultConfig().Storage.Path {
			t.Errorf("created config store path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[server]
port = 8080
base_url = "https://bot.example.com"
cors_origins = ["https://cliq.zoho.com"]

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "https://bot.example.com/callback"

[storage]
backend = "sqlite"

[player]
settle_delay_ms = 250
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.TokenURL != "https://accounts.spotify.com/api/token" {
			t.Errorf("expected token url default to survive, got %s", config.Credentials.Spotify.TokenURL)
		}
		if config.Storage.Backend != "sqlite" {
			t.Errorf("expected sqlite backend, got %s", config.Storage.Backend)
		}
		if config.Player.SettleDelay() != 250*time.Millisecond {
			t.Errorf("expected 250ms settle delay, got %v", config.Player.SettleDelay())
		}
		if err := config.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("LoadConfig Malformed", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestConfigApply(t *testing.T) {
	config := DefaultConfig()
	config.Credentials.Spotify.ClientID = "from_file"

	config.Apply(Overrides{
		ClientID:     "from_env",
		ClientSecret: "secret",
		RedirectURI:  "https://bot.example.com/callback",
		BaseURL:      "https://bot.example.com",
		Port:         9090,
		CORSOrigins:  " https://a.example.com, ,https://b.example.com ",
		BotSecret:    "s3cret",
		Environment:  "production",
	})

	if config.Credentials.Spotify.ClientID != "from_env" {
		t.Errorf("expected env to win, got %s", config.Credentials.Spotify.ClientID)
	}
	if config.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", config.Server.Port)
	}
	if len(config.Server.CORSOrigins) != 2 || config.Server.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("unexpected origins %v", config.Server.CORSOrigins)
	}
	if !config.Server.SecureCookies {
		t.Error("production environment should enable secure cookies")
	}
	if config.Storage.Path != "./data/refreshTokens.json" {
		t.Errorf("empty override should keep store path, got %s", config.Storage.Path)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		err := DefaultConfig().Validate()
		if !errors.Is(err, ErrMissingConfig) {
			t.Fatalf("expected ErrMissingConfig, got %v", err)
		}
		for _, name := range []string{"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET"} {
			if !strings.Contains(err.Error(), name) {
				t.Errorf("expected %s in %q", name, err.Error())
			}
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		config := DefaultConfig()
		config.Apply(Overrides{ClientID: "id", ClientSecret: "secret"})
		config.Storage.Backend = "mongo"

		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
