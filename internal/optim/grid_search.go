// Package optim sweeps parameters of a run configuration over a grid and
// ranks the grid points by one metric of one variable.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/portsim/internal/config"
	"github.com/san-kum/portsim/internal/experiment"
	"github.com/san-kum/portsim/internal/logging"
	"golang.org/x/sync/errgroup"
)

// ErrNoValue is recorded for a grid point whose run did not produce the
// objective metric.
var ErrNoValue = errors.New("optim: objective has no value")

// Axis is one swept parameter and the formulas it takes.
type Axis struct {
	Name   string
	Values []string
}

// ParseAxis reads name=a,b,c or name=start:stop:count. A range includes
// both ends.
func ParseAxis(s string) (Axis, error) {
	name, list, ok := strings.Cut(s, "=")
	name, list = strings.TrimSpace(name), strings.TrimSpace(list)
	if !ok || name == "" || list == "" {
		return Axis{}, fmt.Errorf("axis %q: expected name=values", s)
	}

	parts := strings.Split(list, ":")
	if len(parts) == 1 {
		var values []string
		for _, v := range strings.Split(list, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return Axis{}, fmt.Errorf("axis %s: no values", name)
		}
		return Axis{Name: name, Values: values}, nil
	}
	if len(parts) != 3 {
		return Axis{}, fmt.Errorf("axis %s: expected start:stop:count, got %q", name, list)
	}

	start, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Axis{}, fmt.Errorf("axis %s: %w", name, err)
	}
	stop, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Axis{}, fmt.Errorf("axis %s: %w", name, err)
	}
	count, err := strconv.Atoi(parts[2])
	if err != nil || count < 1 {
		return Axis{}, fmt.Errorf("axis %s: count must be a positive integer, got %q", name, parts[2])
	}

	a := Axis{Name: name}
	for i := 0; i < count; i++ {
		v := start
		if count > 1 {
			v = start + (stop-start)*float64(i)/float64(count-1)
		}
		a.Values = append(a.Values, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return a, nil
}

// Objective selects the number a grid point is ranked by.
type Objective struct {
	Variable string
	Metric   string
	Maximize bool
}

// ParseObjective reads variable:metric.
func ParseObjective(s string, maximize bool) (Objective, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return Objective{}, fmt.Errorf("objective %q: expected variable:metric", s)
	}
	return Objective{Variable: s[:i], Metric: s[i+1:], Maximize: maximize}, nil
}

// Point is one evaluated grid point. Err is set when its run failed.
type Point struct {
	Params map[string]string
	Value  float64
	Err    error
}

type GridSearch struct {
	axes    []Axis
	workers int
}

// NewGridSearch sweeps the cartesian product of axes, running at most
// workers simulations at once.
func NewGridSearch(axes []Axis, workers int) *GridSearch {
	if workers < 1 {
		workers = 1
	}
	return &GridSearch{axes: axes, workers: workers}
}

// Points enumerates the grid; the last axis varies fastest.
func (g *GridSearch) Points() []map[string]string {
	points := []map[string]string{{}}
	for _, a := range g.axes {
		next := make([]map[string]string, 0, len(points)*len(a.Values))
		for _, p := range points {
			for _, v := range a.Values {
				q := make(map[string]string, len(p)+1)
				for k, pv := range p {
					q[k] = pv
				}
				q[a.Name] = v
				next = append(next, q)
			}
		}
		points = next
	}
	return points
}

// Search runs base once per grid point with the point's parameters set.
// Failed runs are recorded in their Point; only cancellation aborts the
// search. Points are returned in grid order.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, registry *experiment.Registry, obj Objective) ([]Point, error) {
	if len(g.axes) == 0 {
		return nil, fmt.Errorf("%w: no parameters to sweep", config.ErrInvalid)
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	logger := logging.FromContext(ctx)

	grid := g.Points()
	results := make([]Point, len(grid))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, params := range grid {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg := base.Clone()
			if cfg.Parameters == nil {
				cfg.Parameters = make(map[string]string, len(params))
			}
			for k, v := range params {
				cfg.Parameters[k] = v
			}
			if len(cfg.Metrics) == 0 || !contains(cfg.Metrics, obj.Metric) {
				cfg.Metrics = append(cfg.Metrics, obj.Metric)
			}

			results[i] = Point{Params: params, Value: math.NaN()}
			out, err := experiment.New(cfg, registry).Run(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				results[i].Err = err
				logger.Debug("grid point failed", "params", params, "error", err)
				return nil
			}
			results[i].Value, results[i].Err = objectiveValue(out, obj)
			logger.Debug("grid point done", "params", params, "value", results[i].Value)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func objectiveValue(out *experiment.Outcome, obj Objective) (float64, error) {
	for _, s := range out.Metrics {
		if s.Variable != obj.Variable {
			continue
		}
		if v, ok := s.Values[obj.Metric]; ok {
			return v, nil
		}
		break
	}
	return math.NaN(), fmt.Errorf("%w: %s of %s", ErrNoValue, obj.Metric, obj.Variable)
}

// Rank orders the successful points best first. Ties keep grid order.
func Rank(points []Point, obj Objective) []Point {
	var ok []Point
	for _, p := range points {
		if p.Err == nil {
			ok = append(ok, p)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool {
		if obj.Maximize {
			return ok[i].Value > ok[j].Value
		}
		return ok[i].Value < ok[j].Value
	})
	return ok
}
