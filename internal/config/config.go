package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server settings read from the environment at startup.
type Config struct {
	Port           string        `env:"CHOREBOARD_PORT"             envDefault:"8080"`
	DBPath         string        `env:"CHOREBOARD_DB_PATH"          envDefault:"choreboard.db"`
	LogLevel       string        `env:"CHOREBOARD_LOG_LEVEL"        envDefault:"info"`
	LogFormat      string        `env:"CHOREBOARD_LOG_FORMAT"       envDefault:"text"`
	SessionTTL     time.Duration `env:"CHOREBOARD_SESSION_TTL"      envDefault:"720h"`
	SecureCookies  bool          `env:"CHOREBOARD_SECURE_COOKIES"   envDefault:"false"`
	LoginRateLimit int           `env:"CHOREBOARD_LOGIN_RATE_LIMIT" envDefault:"10"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("CHOREBOARD_PORT must not be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("CHOREBOARD_DB_PATH must not be empty"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("CHOREBOARD_SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.LoginRateLimit < 1 {
		errs = append(errs, fmt.Errorf("CHOREBOARD_LOGIN_RATE_LIMIT must be at least 1, got %d", c.LoginRateLimit))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("CHOREBOARD_LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
