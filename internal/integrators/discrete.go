package integrators

import "github.com/san-kum/portsim/internal/sim"

// Discrete advances TEnd time units of NSteps equal sub-steps each. Every
// sub-step snapshots the current values, evaluates all right-hand sides
// against that snapshot and only then commits old + rhs*step.
type Discrete struct {
	TEnd   int
	NSteps int
}

func NewDiscrete(tEnd, nSteps int) *Discrete {
	return &Discrete{TEnd: tEnd, NSteps: nSteps}
}

func (d *Discrete) Name() string { return "discrete" }

func (d *Discrete) Validate() error {
	if d.TEnd <= 0 {
		return configError("t_end must be a positive integer, got %d", d.TEnd)
	}
	if d.NSteps <= 0 {
		return configError("n_steps must be a positive integer, got %d", d.NSteps)
	}
	return nil
}

func (d *Discrete) Integrate(p sim.Problem) error {
	if err := d.Validate(); err != nil {
		return err
	}
	h := 1 / float64(d.NSteps)
	for unit := 0; unit < d.TEnd; unit++ {
		for k := 0; k < d.NSteps; k++ {
			t, y := p.Snapshot()
			dy := p.Evaluate()
			if err := p.Commit(t+h, y.AddScaled(h, dy)); err != nil {
				return err
			}
		}
	}
	return nil
}
