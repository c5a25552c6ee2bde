package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/couchcryptid/storm-grid-disruption/internal/grid"
)

// Config holds process-level settings, populated from environment variables.
// Per-run scenario inputs live in a TOML file, see Scenario.
type Config struct {
	LogLevel        string
	LogFormat       string
	MetricsAddr     string // empty disables the metrics endpoint
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeoutStr := envOrDefault("SHUTDOWN_TIMEOUT", "10s")
	shutdownTimeout, err := time.ParseDuration(shutdownTimeoutStr)
	if err != nil || shutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}

	cfg := &Config{
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		ShutdownTimeout: shutdownTimeout,
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Scenario describes one simulation run: the network and hazard inputs,
// the failure thresholds, and the output knobs.
type Scenario struct {
	NodesPath      string   `toml:"nodes_path"`
	EdgesPath      string   `toml:"edges_path"`
	FragmentsPath  string   `toml:"fragments_path"`
	WindFieldPaths []string `toml:"wind_field_paths"`
	OutputDir      string   `toml:"output_dir"`

	// FailureThresholds are intensity values in the wind field's units,
	// swept in ascending order.
	FailureThresholds []float64 `toml:"failure_thresholds"`

	// WeightColumn is "gdp" or "population"; empty selects gdp unless its
	// sum over targets is zero.
	WeightColumn string `toml:"weight_column"`

	// MaxSupplyFactor bounds the disruption output: targets at or above it
	// are considered unaffected and pruned before persistence.
	MaxSupplyFactor float64 `toml:"max_supply_factor"`

	// CompressionLevel for persisted result tensors, 1 (fastest) to 9
	// (smallest).
	CompressionLevel int `toml:"compression_level"`
}

// LoadScenario decodes and validates a scenario TOML file, filling
// defaults for the optional output knobs.
func LoadScenario(path string) (*Scenario, error) {
	var s Scenario
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}

	if s.NodesPath == "" || s.EdgesPath == "" || s.FragmentsPath == "" {
		return nil, errors.New("scenario: nodes_path, edges_path and fragments_path are required")
	}
	if len(s.WindFieldPaths) == 0 {
		return nil, errors.New("scenario: at least one wind field path is required")
	}
	if s.OutputDir == "" {
		return nil, errors.New("scenario: output_dir is required")
	}
	if len(s.FailureThresholds) == 0 {
		return nil, errors.New("scenario: at least one failure threshold is required")
	}
	for _, t := range s.FailureThresholds {
		if t <= 0 {
			return nil, fmt.Errorf("scenario: failure threshold %v must be positive", t)
		}
	}
	sort.Float64s(s.FailureThresholds)

	if s.WeightColumn != "" {
		if _, err := grid.ParseWeightColumn(s.WeightColumn); err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
	}

	if s.MaxSupplyFactor == 0 {
		s.MaxSupplyFactor = 0.95
	}
	if s.MaxSupplyFactor < 0 {
		return nil, fmt.Errorf("scenario: max_supply_factor %v must not be negative", s.MaxSupplyFactor)
	}

	if s.CompressionLevel == 0 {
		s.CompressionLevel = 9
	}
	if s.CompressionLevel < 1 || s.CompressionLevel > 9 {
		return nil, fmt.Errorf("scenario: compression_level %d outside [1, 9]", s.CompressionLevel)
	}

	return &s, nil
}
