package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/cfplan/internal/log"
)

// Config represents the complete plan builder configuration.
type Config struct {
	// Logging configuration
	Log log.Config `json:"log" yaml:"log"`

	// Planner configuration
	Planner PlannerConfig `json:"planner" yaml:"planner"`

	// Tuple packing configuration
	Tuple TupleConfig `json:"tuple" yaml:"tuple"`
}

// PlannerConfig controls how the implementor builds plans.
type PlannerConfig struct {
	// TempAliasPrefix prefixes generated column and table aliases.
	TempAliasPrefix string `json:"temp_alias_prefix" yaml:"temp_alias_prefix"`
	// RetainPKColumns is the retention flag of the root context.
	RetainPKColumns bool `json:"retain_pk_columns" yaml:"retain_pk_columns"`
	// ValueFamily names the column family of synthetic columns.
	ValueFamily string `json:"value_family" yaml:"value_family"`
}

// TupleConfig controls packed row encoding.
type TupleConfig struct {
	EnableCompression    bool `json:"enable_compression" yaml:"enable_compression"`
	CompressionThreshold int  `json:"compression_threshold" yaml:"compression_threshold"` // in bytes
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: log.DefaultConfig(),
		Planner: PlannerConfig{
			TempAliasPrefix: "$",
			RetainPKColumns: false,
			ValueFamily:     "_v",
		},
		Tuple: TupleConfig{
			EnableCompression:    true,
			CompressionThreshold: 256,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file, chosen by
// extension. Unset fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse json config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", filepath.Ext(path))
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides configuration from environment variables.
func (c *Config) ApplyEnv() {
	if val := os.Getenv("CFPLAN_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("CFPLAN_LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
	if val := os.Getenv("CFPLAN_TUPLE_COMPRESSION"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Tuple.EnableCompression = enabled
		}
	}
	if val := os.Getenv("CFPLAN_TUPLE_COMPRESSION_THRESHOLD"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.Tuple.CompressionThreshold = n
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	if c.Planner.TempAliasPrefix == "" {
		return fmt.Errorf("temp alias prefix must not be empty")
	}
	if c.Planner.ValueFamily == "" {
		return fmt.Errorf("value family must not be empty")
	}

	if c.Tuple.EnableCompression && c.Tuple.CompressionThreshold < 16 {
		return fmt.Errorf("compression threshold must be at least 16 bytes")
	}

	return nil
}
