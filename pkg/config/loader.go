package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct using its
// `env` / `envDefault` tags. Durations, slices (comma separated) and
// booleans are decoded by the env library.
//
//	type Config struct {
//	    Port       int           `env:"HTTP_PORT" envDefault:"8080"`
//	    LockTTL    time.Duration `env:"CART_LOCK_TTL" envDefault:"10s"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
