// Package config loads the runtime configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	DBPath     string `env:"DB_PATH" envDefault:"/data/envanter.db"`

	// AdminPasswordHash is the SHA-256 hex digest of the admin password.
	// There is no default: the binary refuses to start without it.
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH,required,notEmpty"`

	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"5m"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}
