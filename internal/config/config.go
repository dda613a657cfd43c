// Package config provides unified configuration loading for recuria.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/recuria/recuria/internal/engine"
	"github.com/recuria/recuria/internal/sequence"
	"gopkg.in/yaml.v3"
)

// Profile names.
const (
	// ProfileCompact keeps a short memory window and a short run.
	ProfileCompact = "compact"
	// ProfileExtended keeps a 200-decision window over 10000 steps.
	ProfileExtended = "extended"
)

// Store driver names.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// SystemLabels lists the configurable systems in run order.
var SystemLabels = []string{"a", "b", "c", "d"}

// RecuriaConfig contains all recuria configuration settings.
type RecuriaConfig struct {
	// Simulation contains the engine and input settings.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Systems maps a system label (a, b, c, d) to its initial weights.
	Systems map[string]WeightsConfig `json:"systems" yaml:"systems"`

	// Primes configures the precomputed primes asset.
	Primes PrimesConfig `json:"primes" yaml:"primes"`

	// Output configures the text table report.
	Output OutputConfig `json:"output" yaml:"output"`

	// Store configures the run history database.
	Store StoreConfig `json:"store" yaml:"store"`

	// Clock configures batch timestamps.
	Clock ClockConfig `json:"clock" yaml:"clock"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig holds the engine constants and the input settings.
type SimulationConfig struct {
	// MaxSteps is the length of every input sequence.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`

	// MemoryCapacity bounds each simulator's decision window.
	MemoryCapacity int `json:"memory_capacity" yaml:"memory_capacity"`

	// StabilityThreshold is the hysteresis threshold for self_eval adaptation.
	// Range: 0.0 to 1.0
	StabilityThreshold float64 `json:"stability_threshold" yaml:"stability_threshold"`

	// AdaptationStep is the self_eval step size.
	AdaptationStep float64 `json:"adaptation_step" yaml:"adaptation_step"`

	// BinarizeThreshold converts system A's stability into system B's input.
	// Range: 0.0 to 1.0
	BinarizeThreshold float64 `json:"binarize_threshold" yaml:"binarize_threshold"`

	// Seed seeds system C's random input. 0 picks a seed from the clock.
	Seed int64 `json:"seed" yaml:"seed"`

	// Pattern is the periodic input of system D.
	Pattern []float64 `json:"pattern" yaml:"pattern,flow"`
}

// WeightsConfig is a WeightSet as written in a config file. Every
// coefficient must be present.
type WeightsConfig struct {
	Input    *float64 `json:"input" yaml:"input"`
	State    *float64 `json:"state" yaml:"state"`
	SelfEval *float64 `json:"self_eval" yaml:"self_eval"`
}

// Weights converts an engine.WeightSet to its config form.
func Weights(w engine.WeightSet) WeightsConfig {
	return WeightsConfig{Input: &w.Input, State: &w.State, SelfEval: &w.SelfEval}
}

// WeightSet returns the engine form, or an error naming the first missing
// coefficient.
func (w WeightsConfig) WeightSet() (engine.WeightSet, error) {
	switch {
	case w.Input == nil:
		return engine.WeightSet{}, fmt.Errorf("missing input coefficient")
	case w.State == nil:
		return engine.WeightSet{}, fmt.Errorf("missing state coefficient")
	case w.SelfEval == nil:
		return engine.WeightSet{}, fmt.Errorf("missing self_eval coefficient")
	}
	return engine.WeightSet{Input: *w.Input, State: *w.State, SelfEval: *w.SelfEval}, nil
}

// PrimesConfig configures where primes come from.
type PrimesConfig struct {
	// File is a whitespace separated list of primes. When empty, primes are
	// generated up to the largest value the run needs.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// OutputConfig configures the text report.
type OutputConfig struct {
	// TableFile receives the per-step tables. The file is appended to.
	// Empty disables the table report.
	TableFile string `json:"table_file" yaml:"table_file"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	// Driver is "sqlite" (default) or "mysql". Empty disables persistence.
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the data source name. For sqlite an empty DSN uses
	// .recuria/recuria.db under the working directory.
	// Supports ${VAR} syntax for env vars.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// ClockConfig configures batch timestamps.
type ClockConfig struct {
	// NTPServer, when set, is queried for batch start and finish times.
	NTPServer string `json:"ntp_server,omitempty" yaml:"ntp_server,omitempty"`
}

// LoggingConfig configures recuria's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to .recuria/decisions.jsonl.
	// "trace" additionally logs every generated input sequence.
	Level string `json:"level" yaml:"level"`
}

// DefaultSystems returns the initial weights of systems A through D.
func DefaultSystems() map[string]engine.WeightSet {
	return map[string]engine.WeightSet{
		"a": {Input: 0.5, State: 0.3, SelfEval: 0.2},
		"b": {Input: 0.6, State: 0.2, SelfEval: 0.2},
		"c": {Input: 0.9, State: 0.05, SelfEval: 0.05},
		"d": {Input: 0.7, State: 0.15, SelfEval: 0.15},
	}
}

// Default returns a RecuriaConfig with the compact profile.
func Default() *RecuriaConfig {
	systems := make(map[string]WeightsConfig, len(SystemLabels))
	for label, w := range DefaultSystems() {
		systems[label] = Weights(w)
	}

	return &RecuriaConfig{
		Simulation: SimulationConfig{
			MaxSteps:           1000,
			MemoryCapacity:     engine.DefaultMemoryCapacity,
			StabilityThreshold: engine.DefaultStabilityThreshold,
			AdaptationStep:     engine.DefaultAdaptationStep,
			BinarizeThreshold:  sequence.DefaultBinarizeThreshold,
			Pattern:            []float64{1, 0, 1, 1},
		},
		Systems: systems,
		Output: OutputConfig{
			TableFile: "system_output.txt",
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ApplyProfile overwrites the run length and memory capacity with the
// values of a named profile.
func (c *RecuriaConfig) ApplyProfile(name string) error {
	switch name {
	case ProfileCompact:
		c.Simulation.MaxSteps = 1000
		c.Simulation.MemoryCapacity = engine.DefaultMemoryCapacity
	case ProfileExtended:
		c.Simulation.MaxSteps = 10000
		c.Simulation.MemoryCapacity = 200
	default:
		return fmt.Errorf("unknown profile: %s (valid: %s, %s)", name, ProfileCompact, ProfileExtended)
	}
	return nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.recuria/config.yaml -> environment variables
func Load() (*RecuriaConfig, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".recuria", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*RecuriaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.DSN = expandEnvVars(config.Store.DSN)

	return config, nil
}

// Encode writes the configuration as YAML.
func (c *RecuriaConfig) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// Engine returns the simulator configuration.
func (c *RecuriaConfig) Engine() engine.Config {
	return engine.Config{
		MemoryCapacity:     c.Simulation.MemoryCapacity,
		StabilityThreshold: c.Simulation.StabilityThreshold,
		AdaptationStep:     c.Simulation.AdaptationStep,
	}
}

// WeightSets returns the validated initial weights keyed by upper-case
// system label (A, B, C, D).
func (c *RecuriaConfig) WeightSets() (map[string]engine.WeightSet, error) {
	out := make(map[string]engine.WeightSet, len(SystemLabels))
	for _, label := range SystemLabels {
		wc, ok := c.Systems[label]
		if !ok {
			return nil, fmt.Errorf("systems.%s: not configured", label)
		}
		w, err := wc.WeightSet()
		if err != nil {
			return nil, fmt.Errorf("systems.%s: %w", label, err)
		}
		out[strings.ToUpper(label)] = w
	}
	return out, nil
}

// Validate checks that the configuration is valid.
func (c *RecuriaConfig) Validate() error {
	if c.Simulation.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.Simulation.MaxSteps)
	}

	if err := c.Engine().Validate(); err != nil {
		return err
	}

	if c.Simulation.BinarizeThreshold < 0 || c.Simulation.BinarizeThreshold > 1 {
		return fmt.Errorf("binarize_threshold must be between 0 and 1, got %f", c.Simulation.BinarizeThreshold)
	}

	if len(c.Simulation.Pattern) == 0 {
		return fmt.Errorf("pattern: %w", sequence.ErrEmptyPattern)
	}

	known := make(map[string]bool, len(SystemLabels))
	for _, l := range SystemLabels {
		known[l] = true
	}
	var unknown []string
	for label := range c.Systems {
		if !known[label] {
			unknown = append(unknown, label)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown systems: %s (valid: %s)", strings.Join(unknown, ", "), strings.Join(SystemLabels, ", "))
	}
	if _, err := c.WeightSets(); err != nil {
		return err
	}

	validDrivers := map[string]bool{"": true, DriverSQLite: true, DriverMySQL: true}
	if !validDrivers[c.Store.Driver] {
		return fmt.Errorf("invalid store driver: %s (valid: sqlite, mysql, or empty to disable)", c.Store.Driver)
	}
	if c.Store.Driver == DriverMySQL && c.Store.DSN == "" {
		return fmt.Errorf("store dsn is required for the mysql driver")
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *RecuriaConfig) error {
	if v := os.Getenv("RECURIA_PROFILE"); v != "" {
		if err := config.ApplyProfile(v); err != nil {
			return fmt.Errorf("RECURIA_PROFILE: %w", err)
		}
	}

	if v := os.Getenv("RECURIA_MAX_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.MaxSteps = n
		}
	}

	if v := os.Getenv("RECURIA_MEMORY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.MemoryCapacity = n
		}
	}

	if v := os.Getenv("RECURIA_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}

	if v := os.Getenv("RECURIA_PRIMES_FILE"); v != "" {
		config.Primes.File = v
	}

	if v := os.Getenv("RECURIA_STORE_DRIVER"); v != "" {
		config.Store.Driver = v
	}

	if v := os.Getenv("RECURIA_STORE_DSN"); v != "" {
		config.Store.DSN = expandEnvVars(v)
	}

	if v := os.Getenv("RECURIA_NTP_SERVER"); v != "" {
		config.Clock.NTPServer = v
	}

	if v := os.Getenv("RECURIA_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	return nil
}

// ApplyEnv applies the RECURIA_* environment overrides to c.
func (c *RecuriaConfig) ApplyEnv() error {
	return applyEnvOverrides(c)
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
