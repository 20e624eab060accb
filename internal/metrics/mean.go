package metrics

import "math"

// Mean is the time average of a series, integrated with the trapezoidal
// rule. A single sample is its own mean.
type Mean struct {
	t0, tPrev, vPrev float64
	area             float64
	samples          int
}

func NewMean() *Mean { return &Mean{} }

func (m *Mean) Name() string { return "mean" }

func (m *Mean) Observe(t, v float64) {
	if m.samples == 0 {
		m.t0 = t
	} else {
		m.area += 0.5 * (v + m.vPrev) * (t - m.tPrev)
	}
	m.tPrev, m.vPrev = t, v
	m.samples++
}

func (m *Mean) Value() float64 {
	switch {
	case m.samples == 0:
		return math.NaN()
	case m.tPrev == m.t0:
		return m.vPrev
	}
	return m.area / (m.tPrev - m.t0)
}

func (m *Mean) Reset() { *m = Mean{} }

// Drift is the largest relative deviation from the first sample. It reads
// 0 for a series that starts at 0.
type Drift struct {
	initial  float64
	maxDrift float64
	samples  int
}

func NewDrift() *Drift { return &Drift{} }

func (d *Drift) Name() string { return "drift" }

func (d *Drift) Observe(_, v float64) {
	if d.samples == 0 {
		d.initial = v
	}
	d.samples++
	if d.initial != 0 {
		d.maxDrift = math.Max(d.maxDrift, math.Abs(v-d.initial)/math.Abs(d.initial))
	}
}

func (d *Drift) Value() float64 { return d.maxDrift }

func (d *Drift) Reset() { *d = Drift{} }
