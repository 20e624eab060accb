package metrics

import "math"

type Final struct {
	last    float64
	samples int
}

func NewFinal() *Final { return &Final{} }

func (f *Final) Name() string { return "final" }

func (f *Final) Observe(_, v float64) {
	f.last = v
	f.samples++
}

func (f *Final) Value() float64 {
	if f.samples == 0 {
		return math.NaN()
	}
	return f.last
}

func (f *Final) Reset() { *f = Final{} }

// Peak is the largest observed value.
type Peak struct {
	max     float64
	samples int
}

func NewPeak() *Peak { return &Peak{} }

func (p *Peak) Name() string { return "peak" }

func (p *Peak) Observe(_, v float64) {
	if p.samples == 0 || v > p.max {
		p.max = v
	}
	p.samples++
}

func (p *Peak) Value() float64 {
	if p.samples == 0 {
		return math.NaN()
	}
	return p.max
}

func (p *Peak) Reset() { *p = Peak{} }

// Trough is the smallest observed value.
type Trough struct {
	min     float64
	samples int
}

func NewTrough() *Trough { return &Trough{} }

func (m *Trough) Name() string { return "trough" }

func (m *Trough) Observe(_, v float64) {
	if m.samples == 0 || v < m.min {
		m.min = v
	}
	m.samples++
}

func (m *Trough) Value() float64 {
	if m.samples == 0 {
		return math.NaN()
	}
	return m.min
}

func (m *Trough) Reset() { *m = Trough{} }
