package metrics

import (
	"math"
	"math/cmplx"
)

// Period estimates the dominant oscillation period from the power spectrum
// of the series. Samples are resampled onto a uniform grid first. A series
// without oscillation, or with fewer than 8 samples, reads NaN.
type Period struct {
	ts, vs []float64
}

func NewPeriod() *Period { return &Period{} }

func (p *Period) Name() string { return "period" }

func (p *Period) Observe(t, v float64) {
	p.ts = append(p.ts, t)
	p.vs = append(p.vs, v)
}

func (p *Period) Reset() { *p = Period{} }

func (p *Period) Value() float64 {
	n := len(p.vs)
	if n < 8 || p.ts[n-1] <= p.ts[0] {
		return math.NaN()
	}
	dt := (p.ts[n-1] - p.ts[0]) / float64(n-1)

	size := 1
	for size < n {
		size *= 2
	}
	data := make([]float64, size)
	mean := 0.0
	for _, v := range p.vs {
		mean += v
	}
	mean /= float64(n)
	j := 0
	for i := 0; i < n; i++ {
		t := p.ts[0] + float64(i)*dt
		for j < n-2 && p.ts[j+1] < t {
			j++
		}
		data[i] = lerp(p.ts[j], p.vs[j], p.ts[j+1], p.vs[j+1], t) - mean
	}

	ps := powerSpectrum(data)
	peak := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > ps[peak] || peak == 0 {
			peak = k
		}
	}
	if peak == 0 || ps[peak] < 1e-12 {
		return math.NaN()
	}

	// Parabolic interpolation between the neighbouring bins.
	k := float64(peak)
	if peak+1 < len(ps) {
		a, b, c := ps[peak-1], ps[peak], ps[peak+1]
		if d := a - 2*b + c; d != 0 {
			k += 0.5 * (a - c) / d
		}
	}
	return float64(size) * dt / k
}

func lerp(t0, v0, t1, v1, t float64) float64 {
	if t1 == t0 {
		return v0
	}
	return v0 + (v1-v0)*(t-t0)/(t1-t0)
}

// fft is the radix-2 Cooley-Tukey transform; len(data) must be a power of 2.
func fft(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		out := make([]complex128, n)
		for i := range data {
			out[i] = complex(data[i], 0)
		}
		return out
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}
	feven := fft(even)
	fodd := fft(odd)

	out := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		out[k] = feven[k] + w*fodd[k]
		out[k+n/2] = feven[k] - w*fodd[k]
	}
	return out
}

func powerSpectrum(data []float64) []float64 {
	f := fft(data)
	ps := make([]float64, len(f)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(f[i])
	}
	return ps
}
