package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// StorageDriver selects "mongo" or "memory". Memory keeps everything in
	// process and is meant for local runs and demos.
	StorageDriver string `env:"STORAGE_DRIVER, default=mongo"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Mail   MailConfig
	Routes RoutesConfig
}

type MongoConfig struct {
	URI        string        `env:"MONGO_URI,         default=mongodb://localhost:27017"`
	Database   string        `env:"MONGO_DB,          default=identity_system"`
	Timeout    time.Duration `env:"MONGO_TIMEOUT,     default=10s"`
	MaxRetries uint64        `env:"MONGO_MAX_RETRIES, default=5"`
}

type RedisConfig struct {
	Addr       string        `env:"REDIS_ADDR,        default=localhost:6379"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB,          default=0"`
	Timeout    time.Duration `env:"REDIS_TIMEOUT,     default=5s"`
	MaxRetries uint64        `env:"REDIS_MAX_RETRIES, default=5"`
}

type AuthConfig struct {
	SessionTTL             time.Duration `env:"SESSION_TTL,              default=24h"`
	BcryptCost             int           `env:"BCRYPT_COST,              default=10"`
	TokenExpirationMinutes int           `env:"TOKEN_EXPIRATION_MINUTES, default=30"`
	CookieSecure           bool          `env:"SESSION_COOKIE_SECURE,    default=false"`
}

// ResetWindow is the validity period of a password reset token.
func (a AuthConfig) ResetWindow() time.Duration {
	return time.Duration(a.TokenExpirationMinutes) * time.Minute
}

type MailConfig struct {
	BaseURL  string        `env:"BASE_URL,     default=http://localhost:8080"`
	SMTPAddr string        `env:"SMTP_ADDR"`
	From     string        `env:"MAIL_FROM,    default=no-reply@localhost"`
	Username string        `env:"SMTP_USERNAME"`
	Password string        `env:"SMTP_PASSWORD"`
	Timeout  time.Duration `env:"SMTP_TIMEOUT, default=10s"`
}

type RoutesConfig struct {
	PolicyFile         string `env:"ROUTE_POLICY_FILE"`
	AdminLandingPath   string `env:"ADMIN_LANDING_PATH,   default=/admin/dashboard"`
	VendorLandingPath  string `env:"VENDOR_LANDING_PATH,  default=/vendor/dashboard"`
	DefaultLandingPath string `env:"DEFAULT_LANDING_PATH, default=/"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("config: JWT_SECRET is required"))
	}
	if c.StorageDriver != StorageMongo && c.StorageDriver != StorageMemory {
		errs = append(errs, fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.Auth.TokenExpirationMinutes <= 0 {
		errs = append(errs, errors.New("config: TOKEN_EXPIRATION_MINUTES must be positive"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("config: SESSION_TTL must be positive"))
	}
	return errors.Join(errs...)
}
