package experiment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/portsim/internal/config"
	"github.com/san-kum/portsim/internal/integrators"
	"github.com/san-kum/portsim/internal/modelfile"
	"github.com/san-kum/portsim/internal/models"
	"github.com/san-kum/portsim/internal/sim"
)

// BuiltinPrefix marks a model reference naming a library model.
const BuiltinPrefix = "builtin:"

type Registry struct {
	integrators map[string]func(*config.Config, integrators.Solver) sim.Integrator
	solvers     map[string]func(*config.Config) integrators.Solver
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func(*config.Config, integrators.Solver) sim.Integrator),
		solvers:     make(map[string]func(*config.Config) integrators.Solver),
	}

	r.integrators["discrete"] = func(cfg *config.Config, _ integrators.Solver) sim.Integrator {
		return integrators.NewDiscrete(int(cfg.TEnd), cfg.NSteps)
	}
	r.integrators["continuous"] = func(cfg *config.Config, s integrators.Solver) sim.Integrator {
		c := integrators.NewContinuous(cfg.TEnd, s)
		c.SampleStep = cfg.SampleStep
		return c
	}

	r.solvers["rk45"] = func(cfg *config.Config) integrators.Solver {
		s := integrators.NewRK45()
		if cfg.Tolerance > 0 {
			s.Tolerance = cfg.Tolerance
		}
		return s
	}
	r.solvers["rk4"] = func(cfg *config.Config) integrators.Solver {
		s := integrators.NewRK4()
		if cfg.RK4Step > 0 {
			s.Step = cfg.RK4Step
		}
		return s
	}
	return r
}

// Integrator builds the integrator and solver named by cfg.
func (r *Registry) Integrator(cfg *config.Config) (sim.Integrator, error) {
	fn, ok := r.integrators[cfg.Integrator]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", cfg.Integrator)
	}
	var solver integrators.Solver
	if cfg.Integrator == "continuous" {
		s, ok := r.solvers[cfg.Solver]
		if !ok {
			return nil, fmt.Errorf("unknown solver: %s", cfg.Solver)
		}
		solver = s(cfg)
	}
	return fn(cfg, solver), nil
}

// Model resolves a model reference. Builtin models are returned together
// with their library entry; files are read by extension.
func (r *Registry) Model(ref string) (*modelfile.File, models.Model, error) {
	if name, ok := strings.CutPrefix(ref, BuiltinPrefix); ok {
		m, err := models.Get(name)
		if err != nil {
			return nil, nil, err
		}
		b, err := m.Build()
		if err != nil {
			return nil, nil, fmt.Errorf("model %s: %w", name, err)
		}
		return modelfile.FromBlock(b, nil), m, nil
	}
	f, err := modelfile.Load(ref)
	if err != nil {
		return nil, nil, err
	}
	return f, nil, nil
}

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }

func (r *Registry) ListSolvers() []string { return sortedKeys(r.solvers) }

// ListModels names every builtin model as a model reference.
func (r *Registry) ListModels() []string {
	names := models.List()
	for i, n := range names {
		names[i] = BuiltinPrefix + n
	}
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
