package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvLogLevel   = "SBI_LOG_LEVEL"
	EnvHTTPAddr   = "SBI_HTTP_ADDR"
	EnvGRPCAddr   = "SBI_GRPC_ADDR"
	EnvSQLitePath = "SBI_SQLITE_PATH"
	EnvSeed       = "SBI_SEED"
)

// LoadConfig loads and parses a configuration file.
// An empty path yields Default().
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables are not overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides configuration fields from environment variables and
// re-validates the result. lookup is usually os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvHTTPAddr); ok {
		cfg.Server.HTTPAddr = v
	}
	if v, ok := lookup(EnvGRPCAddr); ok {
		cfg.Server.GRPCAddr = v
	}
	if v, ok := lookup(EnvSQLitePath); ok {
		cfg.Storage.SQLitePath = v
	}
	if v, ok := lookup(EnvSeed); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvSeed, v, err)
		}
		cfg.Sampling.Seed = seed
	}
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config after env overrides: %w", err)
	}
	return nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	if err := validateTask(&cfg.Task); err != nil {
		return fmt.Errorf("task validation failed: %w", err)
	}
	if err := validateSampling(&cfg.Sampling); err != nil {
		return fmt.Errorf("sampling validation failed: %w", err)
	}

	return nil
}

// validateTask validates the task section
func validateTask(t *Task) error {
	if t.Dim <= 0 {
		return fmt.Errorf("dim must be positive, got %d", t.Dim)
	}
	if t.PriorBound <= 0 || math.IsInf(t.PriorBound, 0) || math.IsNaN(t.PriorBound) {
		return fmt.Errorf("prior_bound must be a positive finite number, got %v", t.PriorBound)
	}
	if t.Mixture != nil {
		if err := validateMixture(t.Mixture); err != nil {
			return fmt.Errorf("mixture validation failed: %w", err)
		}
	}
	return nil
}

// validateMixture validates mixture component parameters
func validateMixture(m *Mixture) error {
	n := len(m.Weights)
	if n == 0 {
		return fmt.Errorf("at least one mixture component must be defined")
	}
	if len(m.LocsFactor) != n || len(m.Scales) != n {
		return fmt.Errorf("locs_factor, scales and weights must have the same length (got %d, %d, %d)",
			len(m.LocsFactor), len(m.Scales), n)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		if m.Scales[i] <= 0 {
			return fmt.Errorf("component %d: scale must be positive, got %v", i, m.Scales[i])
		}
		if m.Weights[i] < 0 {
			return fmt.Errorf("component %d: weight cannot be negative, got %v", i, m.Weights[i])
		}
		sum += m.Weights[i]
	}
	if sum <= 0 {
		return fmt.Errorf("mixture weights must not all be zero")
	}
	return nil
}

// validateSampling validates the sampling section
func validateSampling(s *Sampling) error {
	if s.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts cannot be negative, got %d", s.MaxAttempts)
	}
	if s.MaxSamples <= 0 {
		return fmt.Errorf("max_samples must be positive, got %d", s.MaxSamples)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", s.Workers)
	}
	if s.MaxSimulatorCalls != nil && *s.MaxSimulatorCalls < 0 {
		return fmt.Errorf("max_simulator_calls cannot be negative, got %d", *s.MaxSimulatorCalls)
	}
	if _, err := s.GetTimeout(); err != nil {
		return fmt.Errorf("invalid timeout %s: %w", s.Timeout, err)
	}
	return nil
}
