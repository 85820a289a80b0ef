package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Store    StoreConfig    `toml:"store"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
//
// Path is a file path for the SQLite drivers and a connection string for postgres.
type DatabaseConfig struct {
	Driver       string `toml:"driver" validate:"oneof=sqlite3 sqlite postgres"`
	Path         string `toml:"path" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"gte=0"`
}

// StoreConfig selects the document store backing user progress.
type StoreConfig struct {
	Backend string      `toml:"backend" validate:"oneof=sql redis memory"`
	Timeout Duration    `toml:"timeout"`
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `toml:"addr" validate:"required_if=Enabled true"`
	Password string `toml:"password"`
	DB       int    `toml:"db" validate:"gte=0"`
	Prefix   string `toml:"prefix"`
	Enabled  bool   `toml:"-"`
}

// CatalogConfig locates the curriculum catalog.
type CatalogConfig struct {
	Path       string `toml:"path"`
	URL        string `toml:"url" validate:"omitempty,url"`
	MinVersion string `toml:"min_version"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port" validate:"gte=0,lte=65535"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RateLimit      float64  `toml:"rate_limit" validate:"gte=0"`
	Burst          int      `toml:"burst" validate:"gte=0"`
}

// AuthConfig contains bearer token settings.
type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret"`
	Issuer    string   `toml:"issuer"`
	TokenTTL  Duration `toml:"token_ttl"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] decoded from strings such as "3s" or "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
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
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads a .env file (when present) and overrides config values from XTROBE_* variables.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	setString(&c.Database.Driver, "XTROBE_DATABASE_DRIVER")
	setString(&c.Database.Path, "XTROBE_DATABASE_PATH")
	setString(&c.Store.Backend, "XTROBE_STORE_BACKEND")
	setString(&c.Store.Redis.Addr, "XTROBE_REDIS_ADDR")
	setString(&c.Store.Redis.Password, "XTROBE_REDIS_PASSWORD")
	setString(&c.Auth.JWTSecret, "XTROBE_JWT_SECRET")
	setString(&c.Catalog.Path, "XTROBE_CATALOG_PATH")
	setString(&c.Catalog.URL, "XTROBE_CATALOG_URL")
	setString(&c.Log.Level, "XTROBE_LOG_LEVEL")

	if v := os.Getenv("XTROBE_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: XTROBE_SERVER_PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	return nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	c.Store.Redis.Enabled = c.Store.Backend == "redis"

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Store.Timeout.Duration < 0 {
		return fmt.Errorf("%w: store.timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
