// Package models is a library of ready-made blocks for population dynamics
// and mixing problems. Every model is a struct of default rates with a Build
// method returning a fresh block tree.
package models

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/san-kum/portsim/internal/block"
)

type Model interface {
	Name() string
	Description() string
	Build() (block.Block, error)
	// InitialValues are sensible starting values keyed by compiled variable name.
	InitialValues() map[string]float64
}

var builtins = map[string]func() Model{
	"malthusian":    func() Model { return NewMalthusian() },
	"logistic":      func() Model { return NewLogistic() },
	"predator_prey": func() Model { return NewPredatorPrey() },
	"tritrophic":    func() Model { return NewTritrophic() },
	"mixing_tank":   func() Model { return NewMixingTank() },
}

func Get(name string) (Model, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

func List() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// growth is dx/dt = r*x with r defaulting to rate.
func growth(name string, rate float64) (*block.VariableBlock, error) {
	b := block.NewVariable(name)
	if err := b.AddInputPorts(block.PortWithDefault("r", num(rate))); err != nil {
		return nil, err
	}
	if err := b.AddDifferentialAssignments(block.Assign("x", "r*x")); err != nil {
		return nil, err
	}
	return b, nil
}

// interaction couples two populations through mass action:
// dx/dt = r_1*x*y and dy/dt = r_2*x*y.
func interaction(name string, r1, r2 float64) (*block.VariableBlock, error) {
	b := block.NewVariable(name)
	if err := b.AddInputPorts(
		block.PortWithDefault("r_1", num(r1)),
		block.PortWithDefault("r_2", num(r2)),
	); err != nil {
		return nil, err
	}
	if err := b.AddDifferentialAssignments(
		block.Assign("x", "r_1*x*y"),
		block.Assign("y", "r_2*x*y"),
	); err != nil {
		return nil, err
	}
	return b, nil
}
