// Package integrators advances simulations: a discrete forward stepper with
// a snapshot/commit protocol, and a continuous integrator that resamples the
// dense output of an ODE solver onto a fixed grid.
package integrators

import (
	"errors"
	"fmt"

	"github.com/san-kum/portsim/internal/sim"
)

var (
	// ErrStepTooSmall indicates the adaptive step fell below the minimum.
	ErrStepTooSmall = errors.New("integrators: adaptive timestep below minimum")

	// ErrStepLimit indicates a solver needed more steps than allowed.
	ErrStepLimit = errors.New("integrators: step limit exceeded")
)

// Func computes dy/dt at (t, y) into dy.
type Func func(t float64, y, dy sim.State)

// Solver integrates an initial value problem over [t0, t1].
type Solver interface {
	Name() string
	Solve(f Func, t0, t1 float64, y0 sim.State) (*Dense, error)
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", sim.ErrConfig, fmt.Sprintf(format, args...))
}

func unstable(t float64) error {
	return fmt.Errorf("%w at t=%.4f", sim.ErrUnstable, t)
}
