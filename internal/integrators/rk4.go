package integrators

import (
	"math"

	"github.com/san-kum/portsim/internal/sim"
)

// RK4 is the classic fixed-step fourth order Runge-Kutta method. The span is
// split into the fewest equal steps no longer than Step.
type RK4 struct {
	Step float64

	k1, k2, k3, k4 sim.State
	scratch        sim.State
}

func NewRK4() *RK4 {
	return &RK4{Step: 0.01}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(sim.State, n)
		r.k2 = make(sim.State, n)
		r.k3 = make(sim.State, n)
		r.k4 = make(sim.State, n)
		r.scratch = make(sim.State, n)
	}
}

func (r *RK4) Solve(f Func, t0, t1 float64, y0 sim.State) (*Dense, error) {
	if r.Step <= 0 {
		return nil, configError("rk4 step must be positive, got %g", r.Step)
	}
	if t1 <= t0 {
		return nil, configError("empty span [%g, %g]", t0, t1)
	}
	n := len(y0)
	r.ensureScratch(n)

	steps := int(math.Ceil((t1 - t0) / r.Step))
	dt := (t1 - t0) / float64(steps)

	d := &Dense{}
	y := y0.Clone()
	f(t0, y, r.k1)
	d.add(t0, y, r.k1)

	for i := 0; i < steps; i++ {
		t := t0 + float64(i)*dt

		for j := 0; j < n; j++ {
			r.scratch[j] = y[j] + dt*0.5*r.k1[j]
		}
		f(t+dt*0.5, r.scratch, r.k2)

		for j := 0; j < n; j++ {
			r.scratch[j] = y[j] + dt*0.5*r.k2[j]
		}
		f(t+dt*0.5, r.scratch, r.k3)

		for j := 0; j < n; j++ {
			r.scratch[j] = y[j] + dt*r.k3[j]
		}
		f(t+dt, r.scratch, r.k4)

		dt6 := dt / 6.0
		for j := 0; j < n; j++ {
			y[j] += dt6 * (r.k1[j] + 2*r.k2[j] + 2*r.k3[j] + r.k4[j])
		}

		tNext := t0 + float64(i+1)*dt
		if i == steps-1 {
			tNext = t1
		}
		if !y.IsValid() {
			return nil, unstable(tNext)
		}
		f(tNext, y, r.k1)
		d.add(tNext, y, r.k1)
	}
	return d, nil
}
