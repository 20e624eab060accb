// Package metrics summarizes the series of a finished run. A Metric observes
// one variable sample by sample, in time order.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/portsim/internal/sim"
)

type Metric interface {
	Name() string
	Observe(t, v float64)
	Value() float64
	Reset()
}

// Factory creates a fresh metric for one variable.
type Factory func() Metric

var factories = map[string]Factory{
	"final":  func() Metric { return NewFinal() },
	"peak":   func() Metric { return NewPeak() },
	"trough": func() Metric { return NewTrough() },
	"mean":   func() Metric { return NewMean() },
	"drift":  func() Metric { return NewDrift() },
	"period": func() Metric { return NewPeriod() },
}

// DefaultNames are the metrics recorded with every run.
var DefaultNames = []string{"final", "peak", "trough", "mean"}

func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func Lookup(name string) (Factory, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q (have %v)", name, Names())
	}
	return f, nil
}

// Summary holds the value of every requested metric for one variable.
type Summary struct {
	Variable string             `json:"variable"`
	Values   map[string]float64 `json:"values"`
}

// Summarize runs the named metrics over every series of r, in series order.
// Metrics without a value, such as the period of a series that does not
// oscillate, are left out of the summary.
func Summarize(r *sim.Result, names ...string) ([]Summary, error) {
	if len(names) == 0 {
		names = DefaultNames
	}
	fs := make([]Factory, len(names))
	for i, n := range names {
		f, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		fs[i] = f
	}

	out := make([]Summary, 0, len(r.Series))
	for _, s := range r.Series {
		sum := Summary{Variable: s.Name, Values: make(map[string]float64, len(fs))}
		for i, f := range fs {
			m := f()
			for j, v := range s.Values {
				if j < len(r.Time) {
					m.Observe(r.Time[j], v)
				}
			}
			if v := m.Value(); !math.IsNaN(v) {
				sum.Values[names[i]] = v
			}
		}
		out = append(out, sum)
	}
	return out, nil
}
