package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"mathboard"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	JWTSecret  string `env:"JWT_SECRET" envDefault:"secret"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	// StoreDriver selects "postgres" or the process-local "memory" store.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// ReferenceTimezone is the zone streak days are counted in.
	ReferenceTimezone string `env:"REFERENCE_TIMEZONE" envDefault:"America/New_York"`
	// LevelTablePath points at a TOML level table; empty uses the built-in one.
	LevelTablePath    string `env:"LEVEL_TABLE_PATH"`
	ProfileCacheSize  int    `env:"PROFILE_CACHE_SIZE" envDefault:"1024"`
	StoreMaxRetries   int    `env:"STORE_MAX_RETRIES" envDefault:"5"`
	DefaultLanguage   string `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	LocalizedLanguage string `env:"LOCALIZED_LANGUAGE" envDefault:"ru"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ProfileCacheSize < 1 {
		return nil, fmt.Errorf("PROFILE_CACHE_SIZE must be positive, got %d", cfg.ProfileCacheSize)
	}
	if cfg.StoreMaxRetries < 1 {
		return nil, fmt.Errorf("STORE_MAX_RETRIES must be positive, got %d", cfg.StoreMaxRetries)
	}
	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, cfg.StoreDriver)
	}
	return &cfg, nil
}

// PostgresDSN builds the connection string for gorm's postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
