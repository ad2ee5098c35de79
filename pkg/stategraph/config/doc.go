/*
Package config provides type-safe extraction of run settings from
map[string]any structures decoded from YAML or JSON.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "max_steps":    200,
	    "node_timeout": "30s",
	    "tracing":      true,
	})

	steps   := cfg.Int("max_steps", 1000)
	timeout := cfg.Duration("node_timeout", 0)
	tracing := cfg.Bool("tracing", false)

Nested sections group related keys:

	checkpoint := cfg.Sub("checkpoint")
	path := checkpoint.String("path", "runs.db")

# Type Coercion

Duration handles multiple input types: string (via time.ParseDuration),
int/float64 interpreted as seconds, and time.Duration directly. Numeric
accessors accept reasonable conversions; Int refuses floats with a
fractional part rather than silently truncating.

All accessors return the supplied default when the key is missing or the
value cannot be converted.

# File Loading

	cfg, err := config.FromFile("run.yaml")

FromYAML and FromJSON parse raw bytes directly.

# Thread Safety

Config is safe for concurrent reads. The underlying map is not modified
after creation.
*/
package config
