package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const Production = "production"

type Config struct {
	Addr              string        `env:"APP_ADDR" envDefault:":8080"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	JWTSecret         string        `env:"JWT_SECRET"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	DataEncryptionKey string        `env:"DATA_ENCRYPTION_KEY"`
	Environment       string        `env:"APP_ENV" envDefault:"development"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string        `env:"LOG_FORMAT" envDefault:"json"`
	SeedAdminEmail    string        `env:"SEED_ADMIN_EMAIL" envDefault:"admin@openpay.local"`
	SeedAdminPassword string        `env:"SEED_ADMIN_PASSWORD"`
	RunMigrations     bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	RunSeed           bool          `env:"RUN_SEED" envDefault:"true"`
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	PayStubDir        string        `env:"PAYSTUB_DIR" envDefault:"storage/paystubs"`
	PayStubRetention  time.Duration `env:"PAYSTUB_RETENTION"`
	RetentionInterval time.Duration `env:"RETENTION_INTERVAL" envDefault:"24h"`
	MetricsEnabled    bool          `env:"METRICS_ENABLED" envDefault:"true"`
	LoginRateLimit    int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow   time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`
}

// LoadEnvFiles loads the dotenv files that exist and returns how many did.
// Variables already set in the environment win.
func LoadEnvFiles(files ...string) (int, error) {
	var existing []string
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads .env and .env.local when present, then parses the environment.
func Load() (Config, error) {
	if _, err := LoadEnvFiles(".env", ".env.local"); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == Production
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IsProduction() {
		if len(strings.TrimSpace(c.JWTSecret)) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return errors.New("DATA_ENCRYPTION_KEY must be set in production so pay stubs are encrypted at rest")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return errors.New("SEED_ADMIN_PASSWORD must be set or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return errors.New("MAX_BODY_BYTES must be at least 1024")
	}
	if c.LoginRateLimit > 0 && c.LoginRateWindow <= 0 {
		return errors.New("LOGIN_RATE_WINDOW must be positive when LOGIN_RATE_LIMIT is set")
	}
	if c.PayStubRetention < 0 {
		return errors.New("PAYSTUB_RETENTION must not be negative")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}
