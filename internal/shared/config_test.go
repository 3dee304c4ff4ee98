package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./loopauth.db" {
			t.Errorf("expected database path ./loopauth.db, got %s", config.Database.Path)
		}

		if config.Server.Host != "127.0.0.1" {
			t.Errorf("expected server host 127.0.0.1, got %s", config.Server.Host)
		}

		if len(config.Server.Ports) != 0 {
			t.Errorf("expected no candidate ports, got %v", config.Server.Ports)
		}

		if config.Flow.Timeout != 2*time.Minute {
			t.Errorf("expected flow timeout 2m, got %v", config.Flow.Timeout)
		}

		if !config.Flow.DeviceFallback {
			t.Error("expected device fallback to be enabled by default")
		}

		if config.Provider.ClientID != "your_client_id" {
			t.Errorf("expected client_id your_client_id, got %s", config.Provider.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[provider]
issuer = "https://issuer.example.com"
client_id = "test_client_id"
scopes = ["openid"]

[server]
host = "localhost"
ports = [8400, 8401]
media_dir = "/srv/media"

[flow]
timeout = "30s"
device_fallback = false
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Provider.Issuer != "https://issuer.example.com" {
			t.Errorf("expected issuer, got %s", config.Provider.Issuer)
		}

		if len(config.Server.Ports) != 2 || config.Server.Ports[0] != 8400 {
			t.Errorf("expected ports [8400 8401], got %v", config.Server.Ports)
		}

		if config.Flow.Timeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", config.Flow.Timeout)
		}

		if config.Flow.DeviceFallback {
			t.Error("expected device fallback to be disabled")
		}

		if config.Database.Path != "./loopauth.db" {
			t.Errorf("expected unset sections to keep defaults, got database path %s", config.Database.Path)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("LoadConfig invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[provider\nclient_id ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestProviderConfigValidate(t *testing.T) {
	tt := []struct {
		name    string
		config  ProviderConfig
		wantErr error
	}{
		{
			name:    "missing client id",
			config:  ProviderConfig{AuthURL: "https://login.example.com/authorize"},
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "missing endpoints",
			config:  ProviderConfig{ClientID: "abc"},
			wantErr: ErrInvalidConfig,
		},
		{
			name:   "issuer only",
			config: ProviderConfig{ClientID: "abc", Issuer: "https://issuer.example.com"},
		},
		{
			name:   "auth url only",
			config: ProviderConfig{ClientID: "abc", AuthURL: "https://login.example.com/authorize"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Run("environment overrides credentials", func(t *testing.T) {
		t.Setenv(EnvClientID, "env-client")
		t.Setenv(EnvClientSecret, "env-secret")
		t.Setenv(EnvIssuer, "")

		config := DefaultConfig()
		if err := ApplyEnv(config); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}

		if config.Provider.ClientID != "env-client" {
			t.Errorf("expected client id env-client, got %s", config.Provider.ClientID)
		}
		if config.Provider.ClientSecret != "env-secret" {
			t.Errorf("expected client secret env-secret, got %s", config.Provider.ClientSecret)
		}
		if config.Provider.Issuer != "" {
			t.Errorf("expected empty issuer to be left alone, got %s", config.Provider.Issuer)
		}
	})

	t.Run("dotenv file is loaded", func(t *testing.T) {
		t.Setenv(EnvIssuer, "placeholder")
		os.Unsetenv(EnvIssuer)

		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte(EnvIssuer+"=https://dotenv.example.com\n"), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}

		config := DefaultConfig()
		if err := ApplyEnv(config, envPath, filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}

		if config.Provider.Issuer != "https://dotenv.example.com" {
			t.Errorf("expected issuer from dotenv, got %s", config.Provider.Issuer)
		}
	})
}
