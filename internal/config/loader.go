package config

import (
	"context"
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
//  2. file (YAML) if QUIZBOARD_CONFIG is set
//  3. env (prefix QUIZBOARD_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("QUIZBOARD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, Wrap("config.load_file", err)
		}
	}

	// Environment variables: QUIZBOARD_ADDR, QUIZBOARD_SESSION_TTL_SECONDS, ...
	// Map env keys like QUIZBOARD_RETRY_ATTEMPTS -> retry_attempts (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("QUIZBOARD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "quizboard_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, Wrap("config.load_env", err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, Wrap("config.unmarshal", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return NewKind("config.validate", ErrMissingAddr)
	case c.SessionTTLSeconds < 1:
		return NewKind("config.validate", ErrInvalidTTL)
	case c.DispatchShards < 1:
		return NewKind("config.validate", ErrInvalidShards)
	case c.JudgeLatencyMaxMS < c.JudgeLatencyMinMS:
		return NewKind("config.validate", ErrInvalidLatencyRange)
	}
	return nil
}
