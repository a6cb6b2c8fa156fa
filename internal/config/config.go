package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (s ServerConfig) Addr() string {
	host := s.Host
	if host == "" {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, s.Port)
}

// DatabaseConfig selects the storage driver and DSN.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres | sqlite
	DSN    string `mapstructure:"dsn"`
}

// POSConfig configures the external point-of-sale client.
type POSConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	APISecret      string        `mapstructure:"api_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PageSize       int           `mapstructure:"page_size"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
}

// SyncConfig controls the reconciliation worker loop.
type SyncConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Config is the application-wide configuration.
type Config struct {
	Environment string         `mapstructure:"environment"`
	ServiceName string         `mapstructure:"service_name"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	POS         POSConfig      `mapstructure:"pos"`
	Sync        SyncConfig     `mapstructure:"sync"`

	// AdminAPIKey authenticates the admin surface. Stored hashed in
	// api_keys when seeded; plaintext only lives in deployment config.
	AdminAPIKey string `mapstructure:"admin_api_key"`
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from tally.yaml (working directory or /etc/tally)
// with TALLY_* environment variable overrides.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("tally")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/tally")
	v.SetEnvPrefix("TALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "development")
	v.SetDefault("service_name", "tally")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:tally.db?cache=shared")
	v.SetDefault("pos.request_timeout", 15*time.Second)
	v.SetDefault("pos.page_size", 50)
	v.SetDefault("pos.token_ttl", 20*time.Minute)
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.poll_interval", 5*time.Minute)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var Module = fx.Module("config",
	fx.Provide(Load),
)
