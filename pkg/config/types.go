package config

import (
	"fmt"
	"time"
)

// Config represents the sampler service configuration
type Config struct {
	LogLevel  string   `yaml:"log_level"`
	LogFormat string   `yaml:"log_format"` // json or text
	Task      Task     `yaml:"task"`
	Sampling  Sampling `yaml:"sampling"`
	Server    Server   `yaml:"server"`
	Storage   Storage  `yaml:"storage"`
}

// Task configures the Gaussian-mixture benchmark task
type Task struct {
	Dim        int      `yaml:"dim"`
	PriorBound float64  `yaml:"prior_bound"`
	Mixture    *Mixture `yaml:"mixture,omitempty"`
}

// Mixture overrides the simulator's mixture components.
// All three slices must have the same length.
type Mixture struct {
	LocsFactor []float64 `yaml:"locs_factor"`
	Scales     []float64 `yaml:"scales"`
	Weights    []float64 `yaml:"weights"`
}

// Sampling controls random streams and the rejection sampler
type Sampling struct {
	Seed              int64  `yaml:"seed"`                          // seed of observation 1; 0 keeps the task default
	MaxAttempts       int    `yaml:"max_attempts"`                  // 0 = unbounded
	Timeout           string `yaml:"timeout"`                       // e.g. "30s"; empty = none
	Workers           int    `yaml:"workers"`                       // observation setup parallelism
	MaxSimulatorCalls *int   `yaml:"max_simulator_calls,omitempty"` // nil = unlimited
	MaxSamples        int    `yaml:"max_samples"`                   // per-request sample/row limit
}

// Server holds listen addresses. An empty address disables that listener.
type Server struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// Storage configures where observations are kept
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"` // empty = in-memory
}

// GetTimeout parses the timeout duration. An empty value means no timeout.
func (s *Sampling) GetTimeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout cannot be negative: %s", s.Timeout)
	}
	return d, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Task: Task{
			Dim:        2,
			PriorBound: 10.0,
		},
		Sampling: Sampling{
			Seed:        0,
			MaxAttempts: 10_000_000,
			Workers:     4,
			MaxSamples:  1_000_000,
		},
		Server: Server{
			HTTPAddr: ":8080",
			GRPCAddr: ":50051",
		},
	}
}
