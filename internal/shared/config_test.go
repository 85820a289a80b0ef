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

		if config.Database.Path != "./xtrobe.db" {
			t.Errorf("expected database path ./xtrobe.db, got %s", config.Database.Path)
		}

		if config.Database.Driver != "sqlite3" {
			t.Errorf("expected driver sqlite3, got %s", config.Database.Driver)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Store.Backend != "sql" {
			t.Errorf("expected store backend sql, got %s", config.Store.Backend)
		}

		if config.Store.Timeout.Duration != 3*time.Second {
			t.Errorf("expected store timeout 3s, got %v", config.Store.Timeout.Duration)
		}

		if config.Auth.TokenTTL.Duration != 24*time.Hour {
			t.Errorf("expected token ttl 24h, got %v", config.Auth.TokenTTL.Duration)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
driver = "postgres"
path = "postgres://localhost/xtrobe?sslmode=disable"
max_open_conns = 20
max_idle_conns = 10

[store]
backend = "redis"
timeout = "750ms"

[store.redis]
addr = "redis:6379"
db = 2

[server]
host = "0.0.0.0"
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Driver != "postgres" {
			t.Errorf("expected driver postgres, got %s", config.Database.Driver)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Store.Timeout.Duration != 750*time.Millisecond {
			t.Errorf("expected timeout 750ms, got %v", config.Store.Timeout.Duration)
		}

		if config.Store.Redis.Addr != "redis:6379" || config.Store.Redis.DB != 2 {
			t.Errorf("unexpected redis config: %+v", config.Store.Redis)
		}

		if config.Auth.Issuer != "xtrobe" {
			t.Errorf("expected unset sections to keep defaults, got issuer %q", config.Auth.Issuer)
		}
	})

	t.Run("LoadConfig InvalidDuration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[store]\ntimeout = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Fatal("expected error for invalid duration")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "etcd" }},
			{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }},
			{name: "redis without addr", mutate: func(c *Config) { c.Store.Backend = "redis"; c.Store.Redis.Addr = "" }},
			{name: "bad catalog url", mutate: func(c *Config) { c.Catalog.URL = "not a url" }},
			{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)

				err := config.Validate()
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("XTROBE_TEST_UNUSED=1\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}

		t.Setenv("XTROBE_STORE_BACKEND", "memory")
		t.Setenv("XTROBE_JWT_SECRET", "from-env")
		t.Setenv("XTROBE_SERVER_PORT", "9090")

		config := DefaultConfig()
		if err := config.ApplyEnv(envPath); err != nil {
			t.Fatalf("ApplyEnv failed: %v", err)
		}

		if config.Store.Backend != "memory" {
			t.Errorf("expected backend memory, got %s", config.Store.Backend)
		}
		if config.Auth.JWTSecret != "from-env" {
			t.Errorf("expected jwt secret from env, got %s", config.Auth.JWTSecret)
		}
		if config.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", config.Server.Port)
		}
	})

	t.Run("ApplyEnv MissingFile", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Errorf("missing env file should be ignored, got %v", err)
		}
	})

	t.Run("ApplyEnv InvalidPort", func(t *testing.T) {
		t.Setenv("XTROBE_SERVER_PORT", "http")

		config := DefaultConfig()
		if err := config.ApplyEnv(""); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
