// Package sim runs compiled systems forward in time.
//
// A Simulation owns private copies of a System's variables and parameters.
// Parameters are substituted into the differential equations once, in
// dependency order, after which each right-hand side is a function of time
// and the state variables alone.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/san-kum/portsim/internal/expr"
	"github.com/san-kum/portsim/internal/omap"
	"github.com/san-kum/portsim/internal/system"
)

// Variable is a state variable with its series of committed values.
type Variable struct {
	Symbol      expr.Symbol
	Description string
	Expr        expr.Expr
	Series      []float64
}

// Parameter is a simulation's copy of a system parameter. After substitution
// Expr is free of other parameters.
type Parameter struct {
	Symbol      expr.Symbol
	Description string
	Expr        expr.Expr
	Class       system.Class
}

type Simulation struct {
	logger     *slog.Logger
	timeSymbol expr.Symbol
	funcs      *expr.Funcs
	order      []expr.Symbol

	time       []float64
	variables  *omap.Map[string, *Variable]
	parameters *omap.Map[string, *Parameter]

	substituted bool
	rhs         []expr.NumericFn
	// args is the step buffer: time first, then one value per variable.
	args []float64
}

type Option func(*Simulation)

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.logger = l
		}
	}
}

// New copies the variables and parameters of a compiled System. Every
// variable starts at 0 at time 0.
func New(sys *system.System, opts ...Option) (*Simulation, error) {
	if sys == nil || !sys.IsCompiled() {
		return nil, fmt.Errorf("%w: cannot simulate an uncompiled system", ErrConfig)
	}
	s := &Simulation{
		logger:     sys.Logger(),
		timeSymbol: sys.TimeSymbol(),
		funcs:      sys.Funcs(),
		order:      sys.Order(),
		time:       []float64{0},
		variables:  omap.New[string, *Variable](),
		parameters: omap.New[string, *Parameter](),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, v := range sys.Variables() {
		s.variables.Set(string(v.Symbol), &Variable{
			Symbol:      v.Symbol,
			Description: v.Description,
			Expr:        v.Expr,
			Series:      []float64{0},
		})
	}
	for _, p := range sys.Parameters() {
		s.parameters.Set(string(p.Symbol), &Parameter{
			Symbol:      p.Symbol,
			Description: p.Description,
			Expr:        p.Expr,
			Class:       p.Class,
		})
	}
	return s, nil
}

// SetInitialValues sets the starting values of the named variables. It
// must be called before the first integration.
func (s *Simulation) SetInitialValues(values map[string]float64) error {
	if len(s.time) > 1 {
		return fmt.Errorf("%w: initial values set after integration", ErrConfig)
	}
	var unknown []string
	for name := range values {
		if !s.variables.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown variables %v", ErrDependency, unknown)
	}
	for name, v := range values {
		vr, _ := s.variables.Get(name)
		vr.Series = []float64{v}
	}
	return nil
}

// SetParameters gives new values to default and required parameters. Each
// value is a formula over time and system parameters. It must be called
// before the substitution pass.
func (s *Simulation) SetParameters(values map[string]string) error {
	if s.substituted {
		return fmt.Errorf("%w: parameters set after substitution", ErrConfig)
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	parsed := make(map[string]expr.Expr, len(values))
	for _, name := range names {
		p, ok := s.parameters.Get(name)
		if !ok {
			return fmt.Errorf("%w: unknown parameter %s", ErrDependency, name)
		}
		if !p.Class.Settable() {
			return fmt.Errorf("%w: parameter %s is %s and cannot be set", ErrConfig, name, p.Class)
		}
		e, err := expr.Parse(values[name])
		if err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}
		var bad []string
		for _, sym := range expr.FreeSymbols(e) {
			if sym == s.timeSymbol {
				continue
			}
			if q, ok := s.parameters.Get(string(sym)); ok && q.Class == system.ClassSystem {
				continue
			}
			bad = append(bad, string(sym))
		}
		if len(bad) > 0 {
			return fmt.Errorf("%w: parameter %s may only use time and system parameters, got %v", ErrDependency, name, bad)
		}
		parsed[name] = e
	}

	for name, e := range parsed {
		p, _ := s.parameters.Get(name)
		p.Expr = e
		p.Class = system.ClassDefaultOptional
	}
	return nil
}

// Substitute splices parameter formulas into each other in dependency order
// and then into every differential equation, and compiles the results.
// Running it again does nothing.
func (s *Simulation) Substitute() error {
	if s.substituted {
		return nil
	}

	var missing []string
	s.parameters.Each(func(name string, p *Parameter) bool {
		if p.Expr == nil {
			missing = append(missing, name)
		}
		return true
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: required inputs without value: %v", ErrConfig, missing)
	}

	values := make(map[expr.Symbol]expr.Expr, len(s.order))
	for _, sym := range s.order {
		p, ok := s.parameters.Get(string(sym))
		if !ok {
			continue
		}
		p.Expr = expr.Subs(p.Expr, values)
		values[sym] = p.Expr
	}

	argOrder := make([]expr.Symbol, 0, s.variables.Len()+1)
	argOrder = append(argOrder, s.timeSymbol)
	s.variables.Each(func(_ string, v *Variable) bool {
		argOrder = append(argOrder, v.Symbol)
		return true
	})

	rhs := make([]expr.NumericFn, 0, s.variables.Len())
	var errs []error
	s.variables.Each(func(name string, v *Variable) bool {
		v.Expr = expr.Subs(v.Expr, values)
		fn, err := expr.Compile(v.Expr, argOrder, s.funcs)
		if err != nil {
			errs = append(errs, fmt.Errorf("d(%s)/dt: %w", name, err))
			return true
		}
		rhs = append(rhs, fn)
		return true
	})
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.rhs = rhs
	s.args = make([]float64, len(argOrder))
	s.substituted = true
	s.logger.Debug("substituted parameters", "parameters", len(values), "variables", len(rhs))
	return nil
}

// Simulate runs the substitution pass and then the integrator.
func (s *Simulation) Simulate(in Integrator) error {
	if err := s.Substitute(); err != nil {
		return err
	}
	start := time.Now()
	t0 := s.time[len(s.time)-1]
	s.logger.Info("simulation started", "integrator", in.Name(), "variables", s.variables.Len(), "t0", t0)

	if err := in.Integrate(stepper{s}); err != nil {
		s.logger.Error("simulation failed", "integrator", in.Name(), "error", err)
		return fmt.Errorf("%s integrator: %w", in.Name(), err)
	}

	s.logger.Info("simulation finished",
		"integrator", in.Name(),
		"t_end", s.time[len(s.time)-1],
		"samples", len(s.time),
		"elapsed", time.Since(start))
	return nil
}

func (s *Simulation) TimeSymbol() expr.Symbol { return s.timeSymbol }

// Time returns a copy of the time series.
func (s *Simulation) Time() []float64 { return append([]float64(nil), s.time...) }

// Variables returns copies of the variables in declaration order.
func (s *Simulation) Variables() []Variable {
	out := make([]Variable, 0, s.variables.Len())
	s.variables.Each(func(_ string, v *Variable) bool {
		c := *v
		c.Series = append([]float64(nil), v.Series...)
		out = append(out, c)
		return true
	})
	return out
}

func (s *Simulation) Variable(name string) (Variable, bool) {
	v, ok := s.variables.Get(name)
	if !ok {
		return Variable{}, false
	}
	c := *v
	c.Series = append([]float64(nil), v.Series...)
	return c, true
}

func (s *Simulation) Parameter(name string) (Parameter, bool) {
	p, ok := s.parameters.Get(name)
	if !ok {
		return Parameter{}, false
	}
	return *p, true
}

// Parameters returns copies of the parameters in system order.
func (s *Simulation) Parameters() []Parameter {
	out := make([]Parameter, 0, s.parameters.Len())
	s.parameters.Each(func(_ string, p *Parameter) bool {
		out = append(out, *p)
		return true
	})
	return out
}

// stepper is the Problem view of a substituted Simulation.
type stepper struct {
	s *Simulation
}

func (st stepper) Dim() int { return st.s.variables.Len() }

func (st stepper) Snapshot() (float64, State) {
	s := st.s
	s.args[0] = s.time[len(s.time)-1]
	y := make(State, 0, s.variables.Len())
	i := 1
	s.variables.Each(func(_ string, v *Variable) bool {
		s.args[i] = v.Series[len(v.Series)-1]
		y = append(y, s.args[i])
		i++
		return true
	})
	return s.args[0], y
}

func (st stepper) Evaluate() State {
	out := make(State, len(st.s.rhs))
	for i, fn := range st.s.rhs {
		out[i] = fn(st.s.args)
	}
	return out
}

func (st stepper) Derivative(t float64, y State, dy State) {
	args := make([]float64, len(y)+1)
	args[0] = t
	copy(args[1:], y)
	for i, fn := range st.s.rhs {
		dy[i] = fn(args)
	}
}

func (st stepper) Commit(t float64, y State) error {
	s := st.s
	if !y.IsValid() {
		var names []string
		i := 0
		s.variables.Each(func(name string, _ *Variable) bool {
			if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
				names = append(names, name)
			}
			i++
			return true
		})
		return &UnstableError{Time: t, Variables: names}
	}
	s.time = append(s.time, t)
	i := 0
	s.variables.Each(func(_ string, v *Variable) bool {
		v.Series = append(v.Series, y[i])
		i++
		return true
	})
	return nil
}
