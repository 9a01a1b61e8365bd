// pkg/config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ValidationError reports an unrecognized or out-of-range configuration option.
// It always surfaces before any pipeline stage runs.
type ValidationError struct {
	Option string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration option %q: %s", e.Option, e.Reason)
}

// Config is the full pipeline configuration passed explicitly into each
// orchestrator call. It is never held as ambient process-wide state, so
// multiple runs with different configs can coexist.
type Config struct {
	DatasetName string `json:"dataset_name"`

	Inspector InspectorConfig `json:"inspector"`
	Refiner   RefinerConfig   `json:"refiner"`
	Insight   InsightConfig   `json:"insight"`
	Artifacts ArtifactsConfig `json:"artifacts"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// InspectorConfig controls the read-only profiling and validation stage
type InspectorConfig struct {
	Enabled      bool          `json:"enabled"`
	Profile      bool          `json:"profile"`
	Expectations []Expectation `json:"expectations"`
}

// Expectation is a single named data-quality check. Each expectation is
// independently pass/fail and never fatal to the run.
type Expectation struct {
	ID     string   `json:"id"`
	Kind   string   `json:"kind"` // not_null | values_between | unique | row_count_min
	Column string   `json:"column,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// RefinerConfig controls the transformation engine. Individual steps are
// toggleable but their order is fixed and not configurable.
type RefinerConfig struct {
	Enabled bool `json:"enabled"`

	StandardizeNames bool     `json:"standardize_names"`
	RemoveDuplicates bool     `json:"remove_duplicates"`
	DuplicateKeys    []string `json:"duplicate_keys,omitempty"`

	HandleMissing      bool     `json:"handle_missing"`
	MissingStrategy    string   `json:"missing_strategy"` // drop | mean | median | mode | knn | smart
	MissingColumns     []string `json:"missing_columns,omitempty"`
	KNNNeighbors       int      `json:"knn_neighbors"`
	SmartSkewThreshold float64  `json:"smart_skew_threshold"`
	SmartDropThreshold float64  `json:"smart_drop_threshold"` // max tolerated missing share per column

	UnifyCategories bool     `json:"unify_categories"`
	UnifyColumns    []string `json:"unify_columns,omitempty"`
	FuzzyThreshold  float64  `json:"fuzzy_threshold"`

	Normalize           bool     `json:"normalize"`
	ColumnsToNormalize  []string `json:"columns_to_normalize,omitempty"`
	NormalizationMethod string   `json:"normalization_method"` // minmax | zscore
}

// InsightConfig controls the read-only summary and visualization stage
type InsightConfig struct {
	Enabled       bool `json:"enabled"`
	Summary       bool `json:"summary"`
	Histograms    bool `json:"histograms"`
	HistogramBins int  `json:"histogram_bins"`
	Correlations  bool `json:"correlations"`
}

// ArtifactsConfig selects and parameterizes the artifact store backend
type ArtifactsConfig struct {
	Backend     string `json:"backend"` // fs | postgres
	Dir         string `json:"dir"`
	PostgresDSN string `json:"postgres_dsn,omitempty"`
}

// Tunable constants for the smart missing-value strategy. Both have config
// overrides; the constants document the chosen defaults.
const (
	// DefaultSkewThreshold selects median over mean imputation when the
	// absolute sample skewness of a numeric column exceeds it.
	DefaultSkewThreshold = 1.0

	// DefaultMissingDropShare drops a column under the smart strategy when
	// more than this share of its cells is missing.
	DefaultMissingDropShare = 0.5
)

// Default returns a configuration with all three stages enabled and the
// refiner running its standard operation set, mirroring the defaults the
// CLI applies when no config file is given.
func Default() Config {
	return Config{
		DatasetName: "dataset",
		Inspector: InspectorConfig{
			Enabled: true,
			Profile: true,
		},
		Refiner: RefinerConfig{
			Enabled:             true,
			StandardizeNames:    true,
			RemoveDuplicates:    true,
			HandleMissing:       true,
			MissingStrategy:     "smart",
			KNNNeighbors:        5,
			SmartSkewThreshold:  DefaultSkewThreshold,
			SmartDropThreshold:  DefaultMissingDropShare,
			FuzzyThreshold:      85,
			NormalizationMethod: "minmax",
		},
		Insight: InsightConfig{
			Enabled:       true,
			Summary:       true,
			Histograms:    true,
			HistogramBins: 10,
			Correlations:  true,
		},
		Artifacts: ArtifactsConfig{
			Backend: "fs",
			Dir:     "data/artifacts",
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load reads a configuration from a JSON file, strictly rejecting unknown
// keys, and validates it. Defaults apply for any section left unset.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a configuration from raw JSON with unknown keys rejected
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	raw, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			return Config{}, &ValidationError{Option: unknownFieldName(err), Reason: "unrecognized option"}
		}
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// unknownFieldName extracts the offending key from a json unknown-field error
func unknownFieldName(err error) string {
	msg := err.Error()
	const marker = "unknown field "
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return msg
	}
	return strings.Trim(msg[idx+len(marker):], `"`)
}

// Validate checks every recognized option for range and enum membership.
// It returns a *ValidationError on the first violation.
func (c *Config) Validate() error {
	switch c.Refiner.MissingStrategy {
	case "drop", "mean", "median", "mode", "knn", "smart":
	default:
		return &ValidationError{
			Option: "refiner.missing_strategy",
			Reason: fmt.Sprintf("must be one of drop, mean, median, mode, knn, smart; got %q", c.Refiner.MissingStrategy),
		}
	}

	if c.Refiner.FuzzyThreshold < 0 || c.Refiner.FuzzyThreshold > 100 {
		return &ValidationError{
			Option: "refiner.fuzzy_threshold",
			Reason: fmt.Sprintf("must be within [0,100]; got %v", c.Refiner.FuzzyThreshold),
		}
	}

	if c.Refiner.KNNNeighbors <= 0 {
		return &ValidationError{
			Option: "refiner.knn_neighbors",
			Reason: fmt.Sprintf("must be positive; got %d", c.Refiner.KNNNeighbors),
		}
	}

	if c.Refiner.SmartDropThreshold < 0 || c.Refiner.SmartDropThreshold > 1 {
		return &ValidationError{
			Option: "refiner.smart_drop_threshold",
			Reason: fmt.Sprintf("must be within [0,1]; got %v", c.Refiner.SmartDropThreshold),
		}
	}

	switch c.Refiner.NormalizationMethod {
	case "minmax", "zscore":
	default:
		return &ValidationError{
			Option: "refiner.normalization_method",
			Reason: fmt.Sprintf("must be minmax or zscore; got %q", c.Refiner.NormalizationMethod),
		}
	}

	for i, exp := range c.Inspector.Expectations {
		opt := fmt.Sprintf("inspector.expectations[%d]", i)
		if exp.ID == "" {
			return &ValidationError{Option: opt + ".id", Reason: "expectation id is required"}
		}
		switch exp.Kind {
		case "not_null", "unique", "values_between":
			if exp.Column == "" {
				return &ValidationError{Option: opt + ".column", Reason: "column is required for " + exp.Kind}
			}
			if exp.Kind == "values_between" && exp.Min == nil && exp.Max == nil {
				return &ValidationError{Option: opt, Reason: "values_between requires min and/or max"}
			}
		case "row_count_min":
			if exp.Min == nil {
				return &ValidationError{Option: opt + ".min", Reason: "row_count_min requires min"}
			}
		default:
			return &ValidationError{
				Option: opt + ".kind",
				Reason: fmt.Sprintf("must be one of not_null, unique, values_between, row_count_min; got %q", exp.Kind),
			}
		}
	}

	if c.Insight.HistogramBins <= 0 {
		return &ValidationError{
			Option: "insight.histogram_bins",
			Reason: fmt.Sprintf("must be positive; got %d", c.Insight.HistogramBins),
		}
	}

	switch c.Artifacts.Backend {
	case "fs", "postgres":
	default:
		return &ValidationError{
			Option: "artifacts.backend",
			Reason: fmt.Sprintf("must be fs or postgres; got %q", c.Artifacts.Backend),
		}
	}
	if c.Artifacts.Backend == "postgres" && c.Artifacts.PostgresDSN == "" {
		return &ValidationError{Option: "artifacts.postgres_dsn", Reason: "required when backend is postgres"}
	}

	return nil
}

// getEnv reads an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// ApplyEnvOverrides overlays environment variables onto the config.
// Only operational knobs are overridable; stage behavior stays file-driven.
func (c *Config) ApplyEnvOverrides() {
	c.LogLevel = getEnv("REFINERY_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("REFINERY_LOG_FORMAT", c.LogFormat)
	c.Artifacts.Dir = getEnv("REFINERY_ARTIFACTS_DIR", c.Artifacts.Dir)
	c.Artifacts.PostgresDSN = getEnv("REFINERY_POSTGRES_DSN", c.Artifacts.PostgresDSN)
}
