// Package config holds the run configuration: which model to simulate, how
// to integrate it and the values to start from.
package config

import (
	"bytes"
	"fmt"
	"maps"
	"math"
	"os"

	"github.com/san-kum/portsim/internal/system"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTEnd       = 10.0
	DefaultNSteps     = 10
	DefaultSampleStep = 0.1
	DefaultTolerance  = 1e-6
	DefaultRK4Step    = 0.01

	// MaxSteps bounds the samples a single run may record per variable.
	MaxSteps = 10_000_000
)

// ErrInvalid is returned by Validate. It is a configuration error in the
// sense of system.ErrConfig.
var ErrInvalid = fmt.Errorf("config: invalid configuration: %w", system.ErrConfig)

type SystemParameter struct {
	Name        string `yaml:"name"`
	Formula     string `yaml:"formula"`
	Description string `yaml:"description,omitempty"`
}

type Config struct {
	// Model is a model file path or builtin:<name>.
	Model      string  `yaml:"model"`
	Integrator string  `yaml:"integrator"`
	Solver     string  `yaml:"solver"`
	TEnd       float64 `yaml:"t_end"`
	NSteps     int     `yaml:"n_steps"`
	SampleStep float64 `yaml:"sample_step"`
	Tolerance  float64 `yaml:"tolerance"`
	RK4Step    float64 `yaml:"rk4_step"`

	TimeSymbol       string             `yaml:"time_symbol,omitempty"`
	InitialValues    map[string]float64 `yaml:"initial_values,omitempty"`
	Parameters       map[string]string  `yaml:"parameters,omitempty"`
	SystemParameters []SystemParameter  `yaml:"system_parameters,omitempty"`
	Metrics          []string           `yaml:"metrics,omitempty"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "builtin:logistic",
		Integrator: "continuous",
		Solver:     "rk45",
		TEnd:       DefaultTEnd,
		NSteps:     DefaultNSteps,
		SampleStep: DefaultSampleStep,
		Tolerance:  DefaultTolerance,
		RK4Step:    DefaultRK4Step,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: no model", ErrInvalid)
	}
	if !(c.TEnd > 0) || math.IsInf(c.TEnd, 0) {
		return fmt.Errorf("%w: t_end must be positive, got %g", ErrInvalid, c.TEnd)
	}
	switch c.Integrator {
	case "discrete":
		if c.TEnd != math.Trunc(c.TEnd) {
			return fmt.Errorf("%w: discrete t_end must be a whole number, got %g", ErrInvalid, c.TEnd)
		}
		if c.NSteps <= 0 {
			return fmt.Errorf("%w: n_steps must be positive, got %d", ErrInvalid, c.NSteps)
		}
		if c.TEnd*float64(c.NSteps) > MaxSteps {
			return fmt.Errorf("%w: t_end*n_steps must not exceed %d, got %g", ErrInvalid, MaxSteps, c.TEnd*float64(c.NSteps))
		}
	case "continuous":
		if c.Solver != "rk45" && c.Solver != "rk4" {
			return fmt.Errorf("%w: unknown solver %q", ErrInvalid, c.Solver)
		}
		if c.SampleStep < 0 || c.Tolerance < 0 || c.RK4Step < 0 {
			return fmt.Errorf("%w: sample_step, tolerance and rk4_step must not be negative", ErrInvalid)
		}
		if c.SampleStep > 0 && c.TEnd/c.SampleStep > MaxSteps {
			return fmt.Errorf("%w: t_end/sample_step must not exceed %d, got %g", ErrInvalid, MaxSteps, c.TEnd/c.SampleStep)
		}
	default:
		return fmt.Errorf("%w: unknown integrator %q", ErrInvalid, c.Integrator)
	}
	return nil
}

// Overlay copies the fields set in o onto c. Initial values and parameters
// are merged key by key and system parameters are appended; o is not
// modified.
func (c *Config) Overlay(o *Config) {
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.Integrator != "" {
		c.Integrator = o.Integrator
	}
	if o.Solver != "" {
		c.Solver = o.Solver
	}
	if o.TEnd > 0 {
		c.TEnd = o.TEnd
	}
	if o.NSteps > 0 {
		c.NSteps = o.NSteps
	}
	if o.SampleStep > 0 {
		c.SampleStep = o.SampleStep
	}
	if o.Tolerance > 0 {
		c.Tolerance = o.Tolerance
	}
	if o.RK4Step > 0 {
		c.RK4Step = o.RK4Step
	}
	if o.TimeSymbol != "" {
		c.TimeSymbol = o.TimeSymbol
	}
	if len(o.InitialValues) > 0 {
		merged := make(map[string]float64, len(c.InitialValues)+len(o.InitialValues))
		maps.Copy(merged, c.InitialValues)
		maps.Copy(merged, o.InitialValues)
		c.InitialValues = merged
	}
	if len(o.Parameters) > 0 {
		merged := make(map[string]string, len(c.Parameters)+len(o.Parameters))
		maps.Copy(merged, c.Parameters)
		maps.Copy(merged, o.Parameters)
		c.Parameters = merged
	}
	if len(o.SystemParameters) > 0 {
		c.SystemParameters = append(append([]SystemParameter(nil), c.SystemParameters...), o.SystemParameters...)
	}
	if len(o.Metrics) > 0 {
		c.Metrics = append([]string(nil), o.Metrics...)
	}
}

// Clone returns a deep copy, so presets are never modified through it.
func (c *Config) Clone() *Config {
	out := *c
	if c.InitialValues != nil {
		out.InitialValues = make(map[string]float64, len(c.InitialValues))
		for k, v := range c.InitialValues {
			out.InitialValues[k] = v
		}
	}
	if c.Parameters != nil {
		out.Parameters = make(map[string]string, len(c.Parameters))
		for k, v := range c.Parameters {
			out.Parameters[k] = v
		}
	}
	out.SystemParameters = append([]SystemParameter(nil), c.SystemParameters...)
	out.Metrics = append([]string(nil), c.Metrics...)
	return &out
}
