// Package config loads process configuration from the environment.
//
// Every variable this project reads is namespaced under TABLETALLY_. Struct
// fields declare their variable and default via `env` and `envDefault` tags;
// command-line flags layered on top take precedence over both.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from environment variables according to its tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env into %T: %w", target, err)
	}
	return nil
}
