package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverlay holds variables that do not map one-to-one onto Config fields.
type envOverlay struct {
	Port   string `env:"PORT"`
	AppEnv string `env:"APP_ENV"`
}

// parseEnv overlays environment variables onto config. Unset variables leave
// the current values untouched.
func parseEnv(config *Config) {
	if err := loadEnv(config); err != nil {
		panic(err)
	}
}

func loadEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	var o envOverlay
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.Port != "" {
		config.HTTPAddr = ":" + strings.TrimPrefix(o.Port, ":")
	}
	if o.AppEnv != "" {
		config.Production = strings.EqualFold(o.AppEnv, "production")
	}
	return nil
}
