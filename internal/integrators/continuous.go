package integrators

import (
	"math"

	"github.com/san-kum/portsim/internal/sim"
)

// DefaultSampleStep is the spacing of the resampled output grid.
const DefaultSampleStep = 0.1

// Continuous hands the whole system to Solver over [t0, t0+TEnd], where t0
// is the latest committed time, then commits the dense solution sampled
// every SampleStep. The last sample is exactly t0+TEnd.
type Continuous struct {
	TEnd       float64
	SampleStep float64
	Solver     Solver
}

func NewContinuous(tEnd float64, solver Solver) *Continuous {
	return &Continuous{TEnd: tEnd, SampleStep: DefaultSampleStep, Solver: solver}
}

func (c *Continuous) Name() string {
	if c.Solver == nil {
		return "continuous"
	}
	return "continuous/" + c.Solver.Name()
}

func (c *Continuous) Validate() error {
	if !(c.TEnd > 0) || math.IsInf(c.TEnd, 0) {
		return configError("t_end must be positive, got %g", c.TEnd)
	}
	if c.SampleStep < 0 || math.IsNaN(c.SampleStep) {
		return configError("sample step must be positive, got %g", c.SampleStep)
	}
	return nil
}

func (c *Continuous) Integrate(p sim.Problem) error {
	if err := c.Validate(); err != nil {
		return err
	}
	h := c.SampleStep
	if h == 0 {
		h = DefaultSampleStep
	}
	solver := c.Solver
	if solver == nil {
		solver = NewRK45()
	}

	t0, y0 := p.Snapshot()
	t1 := t0 + c.TEnd
	dense, err := solver.Solve(func(t float64, y, dy sim.State) { p.Derivative(t, y, dy) }, t0, t1, y0)
	if err != nil {
		return err
	}

	for k := 1; ; k++ {
		t := t0 + float64(k)*h
		if t >= t1-h*1e-9 {
			break
		}
		if err := p.Commit(t, dense.At(t)); err != nil {
			return err
		}
	}
	return p.Commit(t1, dense.At(t1))
}
