package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/portsim/internal/sim"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the adaptive Dormand-Prince 5(4) method. Steps whose estimated
// relative error exceeds Tolerance are retried with a smaller step.
type RK45 struct {
	Tolerance float64
	MaxSteps  int
	// InitialStep defaults to a hundredth of the span.
	InitialStep float64
	MinStep     float64

	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		Tolerance: 1e-6,
		MaxSteps:  100000,
		MinStep:   1e-12,
		safety:    0.9,
		minScale:  0.2,
		maxScale:  10.0,
	}
}

func (r *RK45) Name() string { return "rk45" }

// tuned fills the step controller fields a literal RK45 leaves zero.
func (r *RK45) tuned() *RK45 {
	c := *r
	def := NewRK45()
	if c.MinStep <= 0 {
		c.MinStep = def.MinStep
	}
	if c.safety == 0 {
		c.safety, c.minScale, c.maxScale = def.safety, def.minScale, def.maxScale
	}
	return &c
}

func (r *RK45) Solve(f Func, t0, t1 float64, y0 sim.State) (*Dense, error) {
	r = r.tuned()
	if r.Tolerance <= 0 {
		return nil, configError("rk45 tolerance must be positive, got %g", r.Tolerance)
	}
	if t1 <= t0 {
		return nil, configError("empty span [%g, %g]", t0, t1)
	}
	n := len(y0)
	dt := r.InitialStep
	if dt <= 0 {
		dt = (t1 - t0) / 100
	}

	d := &Dense{}
	t := t0
	y := y0.Clone()
	k1 := make(sim.State, n)
	f(t, y, k1)
	d.add(t, y, k1)

	for attempts := 0; t < t1; attempts++ {
		if r.MaxSteps > 0 && attempts >= r.MaxSteps {
			return nil, fmt.Errorf("%w: %d attempts reached t=%.4f of %.4f", ErrStepLimit, attempts, t, t1)
		}
		last := false
		if t+dt >= t1 {
			dt = t1 - t
			last = true
		}

		yNew, k7, errRatio := r.step(f, t, y, k1, dt)
		if !yNew.IsValid() || math.IsNaN(errRatio) {
			if last || dt <= r.MinStep {
				return nil, unstable(t + dt)
			}
			dt *= r.minScale
			continue
		}

		if errRatio <= 1 {
			if last {
				t = t1
			} else {
				t += dt
			}
			y, k1 = yNew, k7
			d.add(t, y, k1)
		}

		var scale float64
		switch {
		case errRatio > 1:
			scale = math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		case errRatio > 0:
			scale = math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
		default:
			scale = r.maxScale
		}
		dt *= scale
		if dt < r.MinStep && t < t1 {
			return nil, fmt.Errorf("%w: dt=%g at t=%.4f", ErrStepTooSmall, dt, t)
		}
	}
	return d, nil
}

// step takes one Dormand-Prince step from (t, x) with k1 = f(t, x). It
// returns the fifth order solution, the derivative there and the error
// relative to Tolerance.
func (r *RK45) step(f Func, t float64, x, k1 sim.State, dt float64) (sim.State, sim.State, float64) {
	n := len(x)
	k2 := make(sim.State, n)
	k3 := make(sim.State, n)
	k4 := make(sim.State, n)
	k5 := make(sim.State, n)
	k6 := make(sim.State, n)
	k7 := make(sim.State, n)
	tmp := make(sim.State, n)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*b21*k1[i]
	}
	f(t+a2*dt, tmp, k2)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	f(t+a3*dt, tmp, k3)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	f(t+a4*dt, tmp, k4)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	f(t+a5*dt, tmp, k5)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	f(t+dt, tmp, k6)

	xNew := make(sim.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}
	f(t+dt, xNew, k7)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := math.Abs(x[i]) + math.Abs(dt*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}
	return xNew, k7, errMax / r.Tolerance
}
