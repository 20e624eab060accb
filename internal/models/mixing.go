package models

import "github.com/san-kum/portsim/internal/block"

// MixingTank is a well-mixed tank of volume V holding salt mass M. Solution
// of concentration c flows in at r_0 and leaves at r_1. The three rates are
// required inputs: they have no defaults and must be set per simulation.
type MixingTank struct {
	Volume float64
	Mass   float64
}

func NewMixingTank() *MixingTank {
	return &MixingTank{Volume: 1000, Mass: 20}
}

func (m *MixingTank) Name() string { return "mixing_tank" }

func (m *MixingTank) Description() string {
	return "well-mixed tank with in-flow r_0 at concentration c and out-flow r_1"
}

func (m *MixingTank) Build() (block.Block, error) {
	in := block.NewVariable("pipe_in")
	if err := in.AddDifferentialAssignments(
		block.Assign("V", "r_0"),
		block.Assign("M", "r_0*c"),
	); err != nil {
		return nil, err
	}
	out := block.NewVariable("pipe_out")
	if err := out.AddDifferentialAssignments(
		block.Assign("V", "-r_1"),
		block.Assign("M", "-r_1*M/V"),
	); err != nil {
		return nil, err
	}

	tank := block.NewComposite("tank")
	if err := tank.AddChildren(in, out); err != nil {
		return nil, err
	}
	if err := tank.AddInputPorts(block.Port("r_0"), block.Port("r_1"), block.Port("c")); err != nil {
		return nil, err
	}
	if err := tank.AddVariablePorts(block.Port("V"), block.Port("M")); err != nil {
		return nil, err
	}
	for _, w := range []block.DirectedWire{
		block.Wire("r_0", "pipe_in.r_0"),
		block.Wire("r_1", "pipe_out.r_1"),
		block.Wire("c", "pipe_in.c"),
	} {
		if err := tank.AddDirectedWire(w.Source, w.Destinations...); err != nil {
			return nil, err
		}
	}
	for _, w := range []block.VariableWire{
		block.Aggregate("V", "pipe_in.V", "pipe_out.V"),
		block.Aggregate("M", "pipe_in.M", "pipe_out.M"),
	} {
		if err := tank.AddVariableWire(w.ChildPorts, w.ParentPort, w.OutputName); err != nil {
			return nil, err
		}
	}
	return tank, nil
}

func (m *MixingTank) InitialValues() map[string]float64 {
	return map[string]float64{"V": m.Volume, "M": m.Mass}
}
