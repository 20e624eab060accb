package sim

import "math"

// State is one value per variable, in the simulation's variable order.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// AddScaled returns s + k*d.
func (s State) AddScaled(k float64, d State) State {
	out := make(State, len(s))
	for i := range s {
		out[i] = s[i] + k*d[i]
	}
	return out
}

// Problem is the numeric view of a simulation handed to an integrator.
// Snapshot, Evaluate and Commit form one discrete step: Evaluate reads only
// the values captured by the last Snapshot, so every right-hand side of a
// step sees the same state whatever order the variables are visited in.
type Problem interface {
	// Dim is the number of state variables.
	Dim() int
	// Snapshot copies the latest committed time and values into the step
	// buffer and returns them.
	Snapshot() (float64, State)
	// Evaluate computes every right-hand side from the step buffer.
	Evaluate() State
	// Derivative evaluates every right-hand side at (t, y) into dy.
	Derivative(t float64, y State, dy State)
	// Commit appends t and y to the time series.
	Commit(t float64, y State) error
}

// Integrator advances a Problem.
type Integrator interface {
	Name() string
	Integrate(p Problem) error
}
