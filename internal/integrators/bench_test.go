package integrators

import (
	"testing"

	"github.com/san-kum/portsim/internal/sim"
)

func BenchmarkRK4(b *testing.B) {
	solver := NewRK4()
	y0 := sim.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := solver.Solve(oscillator, 0, 1, y0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRK45(b *testing.B) {
	solver := NewRK45()
	y0 := sim.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := solver.Solve(oscillator, 0, 1, y0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDenseAt(b *testing.B) {
	d, err := NewRK45().Solve(oscillator, 0, 10, sim.State{1.0, 0.0})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.At(float64(i%1000) / 100)
	}
}
