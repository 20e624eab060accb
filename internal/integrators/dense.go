package integrators

import (
	"sort"

	"github.com/san-kum/portsim/internal/sim"
)

// Dense is a continuous solution built from accepted solver steps. Between
// steps it interpolates with cubic Hermite polynomials through the values
// and derivatives at both ends.
type Dense struct {
	ts  []float64
	ys  []sim.State
	dys []sim.State
}

func (d *Dense) add(t float64, y, dy sim.State) {
	d.ts = append(d.ts, t)
	d.ys = append(d.ys, y.Clone())
	d.dys = append(d.dys, dy.Clone())
}

// Span returns the first and last time covered.
func (d *Dense) Span() (float64, float64) {
	if len(d.ts) == 0 {
		return 0, 0
	}
	return d.ts[0], d.ts[len(d.ts)-1]
}

// Steps is the number of accepted steps.
func (d *Dense) Steps() int {
	if len(d.ts) == 0 {
		return 0
	}
	return len(d.ts) - 1
}

// At evaluates the solution at t, clamped to the covered span.
func (d *Dense) At(t float64) sim.State {
	n := len(d.ts)
	switch {
	case n == 0:
		return nil
	case t <= d.ts[0]:
		return d.ys[0].Clone()
	case t >= d.ts[n-1]:
		return d.ys[n-1].Clone()
	}

	i := sort.SearchFloat64s(d.ts, t)
	if d.ts[i] == t {
		return d.ys[i].Clone()
	}
	i--
	h := d.ts[i+1] - d.ts[i]
	s := (t - d.ts[i]) / h
	s2, s3 := s*s, s*s*s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	y0, y1 := d.ys[i], d.ys[i+1]
	dy0, dy1 := d.dys[i], d.dys[i+1]
	out := make(sim.State, len(y0))
	for j := range out {
		out[j] = h00*y0[j] + h10*h*dy0[j] + h01*y1[j] + h11*h*dy1[j]
	}
	return out
}
