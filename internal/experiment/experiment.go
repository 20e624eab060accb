// Package experiment turns a run configuration into a finished simulation:
// it resolves the model, builds and compiles the System, applies initial
// values and parameters, integrates and summarizes the result.
package experiment

import (
	"context"
	"fmt"
	"maps"

	"github.com/san-kum/portsim/internal/config"
	"github.com/san-kum/portsim/internal/logging"
	"github.com/san-kum/portsim/internal/metrics"
	"github.com/san-kum/portsim/internal/modelfile"
	"github.com/san-kum/portsim/internal/models"
	"github.com/san-kum/portsim/internal/sim"
	"github.com/san-kum/portsim/internal/system"
)

type Experiment struct {
	cfg      *config.Config
	registry *Registry
}

// Outcome is everything a run produced.
type Outcome struct {
	System        *system.System
	Simulation    *sim.Simulation
	Result        *sim.Result
	Metrics       []metrics.Summary
	Integrator    string
	InitialValues map[string]float64
}

func New(cfg *config.Config, registry *Registry) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Experiment{cfg: cfg, registry: registry}
}

// ModelFile resolves the configured model and adds the configured system
// parameters and time symbol to it.
func (e *Experiment) ModelFile() (*modelfile.File, models.Model, error) {
	f, m, err := e.registry.Model(e.cfg.Model)
	if err != nil {
		return nil, nil, err
	}
	if e.cfg.TimeSymbol != "" {
		f.TimeSymbol = e.cfg.TimeSymbol
	}
	for _, p := range e.cfg.SystemParameters {
		f.SystemParameters = append(f.SystemParameters, modelfile.SystemParameter{
			Name:        p.Name,
			Formula:     p.Formula,
			Description: p.Description,
		})
	}
	return f, m, nil
}

// Compile builds the compiled System of the configured model.
func (e *Experiment) Compile(ctx context.Context) (*system.System, models.Model, error) {
	logger := logging.FromContext(ctx)
	f, m, err := e.ModelFile()
	if err != nil {
		return nil, nil, err
	}
	sys, err := f.System(logger)
	if err != nil {
		return nil, nil, err
	}
	root, err := f.Block()
	if err != nil {
		return nil, nil, err
	}
	if err := sys.Compile(root); err != nil {
		return nil, nil, fmt.Errorf("compile %s: %w", e.cfg.Model, err)
	}
	return sys, m, nil
}

// Run compiles and simulates the configured model.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)

	in, err := e.registry.Integrator(e.cfg)
	if err != nil {
		return nil, err
	}
	sys, m, err := e.Compile(ctx)
	if err != nil {
		return nil, err
	}
	s, err := sim.New(sys, sim.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	initial := make(map[string]float64)
	if m != nil {
		maps.Copy(initial, m.InitialValues())
	}
	maps.Copy(initial, e.cfg.InitialValues)
	if err := s.SetInitialValues(initial); err != nil {
		return nil, err
	}
	if err := s.SetParameters(e.cfg.Parameters); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Simulate(in); err != nil {
		return nil, err
	}

	result := s.Result()
	summaries, err := metrics.Summarize(result, e.cfg.Metrics...)
	if err != nil {
		return nil, err
	}
	logger.Debug("run summarized", "model", e.cfg.Model, "metrics", len(summaries))

	return &Outcome{
		System:        sys,
		Simulation:    s,
		Result:        result,
		Metrics:       summaries,
		Integrator:    in.Name(),
		InitialValues: initial,
	}, nil
}
