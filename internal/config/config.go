// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME"`

	AMQPURL string `env:"AMQP_URL"`

	ResendAPIKey  string `env:"RESEND_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM"`
	EmailFromName string `env:"EMAIL_FROM_NAME" envDefault:"MailPacer"`

	// Pause between consecutive sends within one run. Keeps provider load
	// constant regardless of list size.
	SendDelay time.Duration `env:"SEND_DELAY" envDefault:"4s"`

	// Fallback display name when a contact has none.
	DefaultRecipientName string `env:"DEFAULT_RECIPIENT_NAME" envDefault:"Client"`

	// Keep-alive interval for progress streams.
	KeepAliveInterval time.Duration `env:"KEEPALIVE_INTERVAL" envDefault:"30s"`

	// How long a finished session keeps its subscriber state around.
	SessionRetention time.Duration `env:"SESSION_RETENTION" envDefault:"60s"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// EmailConfigured reports whether a real mail provider can be used.
func (c *Config) EmailConfigured() bool {
	return c.ResendAPIKey != "" && c.EmailFrom != ""
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}
