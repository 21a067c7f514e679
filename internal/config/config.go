package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5431"`
	DBUser     string `env:"DB_USER" envDefault:"workhub_user"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"workhub_pass"`
	DBName     string `env:"DB_NAME" envDefault:"workhub_db"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	ServerPort    string `env:"SERVER_PORT" envDefault:"8080"`

	JWTSecret   string `env:"JWT_SECRET" envDefault:"supersecretkey"`
	GrantSecret string `env:"GRANT_SECRET"`

	// Empty RedisURL keeps locks in-process, which is only safe with a
	// single API instance. Redis leases are renewed every LockTTL/3 while
	// held, so LockTTL only bounds how long a crashed holder blocks others.
	RedisURL string        `env:"REDIS_URL"`
	LockTTL  time.Duration `env:"LOCK_TTL" envDefault:"15s"`
	LockWait time.Duration `env:"LOCK_WAIT" envDefault:"5s"`

	DeleteParallelism int `env:"DELETE_PARALLELISM" envDefault:"4"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Workhub"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.GrantSecret == "" {
		cfg.GrantSecret = cfg.JWTSecret
	}
	if cfg.DeleteParallelism < 1 {
		cfg.DeleteParallelism = 1
	}
	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// MigrationURL is the pgx5 URL form golang-migrate expects.
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}
