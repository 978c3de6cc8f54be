package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VINA_CONFIG is set
//  3. env (prefix VINA_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("VINA_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: VINA_ADDR, VINA_PARTNER_LIMIT, ...
	// Map env keys like VINA_PARTNER_LIMIT -> partner_limit (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("VINA_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "vina_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.PartnerLimit <= 0 || c.ExternalLimit <= 0:
		return fmt.Errorf("%w: result limits must be positive", ErrInvalidConfig)
	case c.VectorDimension <= 0:
		return fmt.Errorf("%w: vector_dimension must be positive", ErrInvalidConfig)
	case c.SearchCacheTTLSeconds <= 0 || c.GeocodeCacheTTLSeconds <= 0:
		return fmt.Errorf("%w: cache TTLs must be positive", ErrInvalidConfig)
	}
	return nil
}
