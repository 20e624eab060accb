package models

import (
	"fmt"

	"github.com/san-kum/portsim/internal/block"
)

// Malthusian is exponential growth dx/dt = r*x.
type Malthusian struct {
	Rate    float64
	Initial float64
}

func NewMalthusian() *Malthusian {
	return &Malthusian{Rate: 0.1, Initial: 1}
}

func (m *Malthusian) Name() string { return "malthusian" }

func (m *Malthusian) Description() string { return "exponential growth dx/dt = r*x" }

func (m *Malthusian) Build() (block.Block, error) {
	return growth("malthusian_pop", m.Rate)
}

func (m *Malthusian) InitialValues() map[string]float64 {
	return map[string]float64{"x": m.Initial}
}

// Logistic composes Malthusian growth with a density limit -r/K*x^2 through a
// variable wire, exposing r, K and x at its own ports.
type Logistic struct {
	Rate     float64
	Capacity float64
	Initial  float64
}

func NewLogistic() *Logistic {
	return &Logistic{Rate: 0.1, Capacity: 10, Initial: 1}
}

func (l *Logistic) Name() string { return "logistic" }

func (l *Logistic) Description() string { return "logistic growth dx/dt = r*x*(1 - x/K)" }

func (l *Logistic) Build() (block.Block, error) {
	return logistic("logistic_pop", l.Rate, l.Capacity)
}

func (l *Logistic) InitialValues() map[string]float64 {
	return map[string]float64{"x": l.Initial}
}

func logistic(name string, rate, capacity float64) (*block.CompositeBlock, error) {
	pop := block.NewVariable("pop")
	if err := pop.AddDifferentialAssignments(block.Assign("x", "r*x")); err != nil {
		return nil, err
	}
	limit := block.NewVariable("limit")
	if err := limit.AddDifferentialAssignments(block.Assign("x", "-r/K*pow(x, 2)")); err != nil {
		return nil, err
	}

	c := block.NewComposite(name)
	steps := []func() error{
		func() error { return c.AddChildren(pop, limit) },
		func() error {
			return c.AddInputPorts(block.PortWithDefault("r", num(rate)), block.PortWithDefault("K", num(capacity)))
		},
		func() error { return c.AddVariablePorts(block.Port("x")) },
		func() error { return c.AddDirectedWire("r", "pop.r", "limit.r") },
		func() error { return c.AddDirectedWire("K", "limit.K") },
		func() error { return c.AddVariableWire([]string{"pop.x", "limit.x"}, "x", "") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return c, nil
}

// PredatorPrey is the Lotka-Volterra ecosystem: logistic prey x, predator y
// with natural decline, coupled by mass action.
type PredatorPrey struct {
	PreyRate     float64
	PreyCapacity float64
	PredatorRate float64
	Predation    float64
	Conversion   float64
	PreyInitial  float64
	PredInitial  float64
}

func NewPredatorPrey() *PredatorPrey {
	return &PredatorPrey{
		PreyRate:     0.4,
		PreyCapacity: 10,
		PredatorRate: -0.2,
		Predation:    -0.2,
		Conversion:   0.1,
		PreyInitial:  10,
		PredInitial:  2,
	}
}

func (p *PredatorPrey) Name() string { return "predator_prey" }

func (p *PredatorPrey) Description() string {
	return "logistic prey x and predator y coupled by mass action"
}

func (p *PredatorPrey) Build() (block.Block, error) {
	prey, err := logistic("prey", p.PreyRate, p.PreyCapacity)
	if err != nil {
		return nil, err
	}
	pred, err := growth("pred", p.PredatorRate)
	if err != nil {
		return nil, err
	}
	inter, err := interaction("pred_prey", p.Predation, p.Conversion)
	if err != nil {
		return nil, err
	}

	eco := block.NewComposite("ecosystem")
	if err := eco.AddChildren(prey, pred, inter); err != nil {
		return nil, err
	}
	if err := eco.AddVariablePorts(block.Port("x"), block.Port("y")); err != nil {
		return nil, err
	}
	if err := eco.AddVariableWire([]string{"prey.x", "pred_prey.x"}, "x", ""); err != nil {
		return nil, err
	}
	if err := eco.AddVariableWire([]string{"pred.x", "pred_prey.y"}, "y", ""); err != nil {
		return nil, err
	}
	return eco, nil
}

func (p *PredatorPrey) InitialValues() map[string]float64 {
	return map[string]float64{"x": p.PreyInitial, "y": p.PredInitial}
}

// Tritrophic chains logistic prey x, a middle predator y and an apex
// predator z.
type Tritrophic struct {
	MidRate  float64
	ApexRate float64
}

func NewTritrophic() *Tritrophic {
	return &Tritrophic{MidRate: -0.8, ApexRate: -0.05}
}

func (t *Tritrophic) Name() string { return "tritrophic" }

func (t *Tritrophic) Description() string { return "prey x, middle predator y, apex predator z" }

func (t *Tritrophic) Build() (block.Block, error) {
	prey, err := logistic("prey", 0.4, 10)
	if err != nil {
		return nil, err
	}
	mid, err := growth("pred_mid", t.MidRate)
	if err != nil {
		return nil, err
	}
	apex, err := growth("pred_apex", t.ApexRate)
	if err != nil {
		return nil, err
	}
	preyMid, err := interaction("int_prey_mid", -0.4, 0.3)
	if err != nil {
		return nil, err
	}
	midApex, err := interaction("int_mid_apex", -0.2, 0.1)
	if err != nil {
		return nil, err
	}

	eco := block.NewComposite("ecosystem")
	if err := eco.AddChildren(prey, mid, apex, preyMid, midApex); err != nil {
		return nil, err
	}
	if err := eco.AddVariablePorts(block.Port("x"), block.Port("y"), block.Port("z")); err != nil {
		return nil, err
	}
	for _, w := range []block.VariableWire{
		block.Aggregate("x", "prey.x", "int_prey_mid.x"),
		block.Aggregate("y", "pred_mid.x", "int_prey_mid.y", "int_mid_apex.x"),
		block.Aggregate("z", "pred_apex.x", "int_mid_apex.y"),
	} {
		if err := eco.AddVariableWire(w.ChildPorts, w.ParentPort, w.OutputName); err != nil {
			return nil, err
		}
	}
	return eco, nil
}

func (t *Tritrophic) InitialValues() map[string]float64 {
	return map[string]float64{"x": 10, "y": 5, "z": 2}
}
