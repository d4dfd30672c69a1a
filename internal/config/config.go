package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/logwell/logwell/internal/apperr"
)

type Config struct {
	Primary       Primary              `koanf:"primary"`
	Server        ServerConfig         `koanf:"server"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Auth          AuthConfig           `koanf:"auth"`
	LogStore      LogStoreConfig       `koanf:"logstore"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env"`
}

type ServerConfig struct {
	Port               string   `koanf:"port"`
	ReadTimeout        int      `koanf:"read_timeout"`
	WriteTimeout       int      `koanf:"write_timeout"`
	IdleTimeout        int      `koanf:"idle_timeout"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	// PublicURL is the externally reachable base URL, used to build
	// the connection URL returned on application creation.
	PublicURL string `koanf:"public_url"`
}

type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime"`
}

type AuthConfig struct {
	// KeySecret keys the HMAC over raw API keys. Required; the process
	// refuses to start without it.
	KeySecret string `koanf:"key_secret"`
	// MaxApplicationsPerUser caps how many non-deleted applications one
	// user may own.
	MaxApplicationsPerUser int `koanf:"max_applications_per_user"`
}

type LogStoreConfig struct {
	Path           string `koanf:"path"`
	LockAttempts   int    `koanf:"lock_attempts"`
	LockRetryDelay int    `koanf:"lock_retry_delay_ms"`
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode)
}

// LockRetryDuration converts the configured delay to a duration.
func (l LogStoreConfig) LockRetryDuration() time.Duration {
	return time.Duration(l.LockRetryDelay) * time.Millisecond
}

// Load reads configuration from LOGWELL_-prefixed environment
// variables via koanf, applies defaults, and validates. A missing or
// short API key secret is a configuration error: it must stop the
// process before it serves traffic, never surface lazily per request.
func Load() (*Config, error) {
	k := koanf.New(".")
	err := k.Load(env.Provider("LOGWELL_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "LOGWELL_")), "__", ".")
	}), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "load environment", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "unmarshal config", err)
	}

	applyDefaults(cfg)

	if len(cfg.Auth.KeySecret) < 32 {
		return nil, apperr.New(apperr.KindConfiguration,
			"LOGWELL_AUTH__KEY_SECRET must be set to at least 32 bytes")
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "validate config", err)
	}

	if cfg.Observability == nil {
		cfg.Observability = DefaultObservabilityConfig()
	}
	cfg.Observability.ServiceName = "logwell"
	cfg.Observability.Environment = cfg.Primary.Env
	if err := cfg.Observability.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Primary.Env == "" {
		cfg.Primary.Env = "development"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:" + cfg.Server.Port
	}
	if cfg.Auth.MaxApplicationsPerUser == 0 {
		cfg.Auth.MaxApplicationsPerUser = 20
	}
	if cfg.LogStore.Path == "" {
		cfg.LogStore.Path = "data/logs.json"
	}
	if cfg.LogStore.LockAttempts == 0 {
		cfg.LogStore.LockAttempts = 5
	}
	if cfg.LogStore.LockRetryDelay == 0 {
		cfg.LogStore.LockRetryDelay = 100
	}
}
