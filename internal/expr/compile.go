package expr

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrUnknownSymbol is returned when a compiled expression references a
	// symbol missing from the argument ordering.
	ErrUnknownSymbol = errors.New("expr: unknown symbol")

	// ErrUnknownFunction is returned for calls to unregistered functions or
	// calls with the wrong number of arguments.
	ErrUnknownFunction = errors.New("expr: unknown function")

	// ErrDuplicateFunction is returned when registering a taken name.
	ErrDuplicateFunction = errors.New("expr: function already defined")
)

// NumericFn evaluates a compiled expression. args holds one value per symbol
// in the ordering given to Compile.
type NumericFn func(args []float64) float64

// Func is a numeric function callable from formulas. Arity -1 accepts one or
// more arguments.
type Func struct {
	Arity int
	Fn    func(args ...float64) float64
}

// Funcs is a function table.
type Funcs struct {
	m map[string]Func
}

func unary(f func(float64) float64) Func {
	return Func{Arity: 1, Fn: func(a ...float64) float64 { return f(a[0]) }}
}

// Builtins returns a table holding the standard math functions.
func Builtins() *Funcs {
	return &Funcs{m: map[string]Func{
		"exp":   unary(math.Exp),
		"log":   unary(math.Log),
		"sin":   unary(math.Sin),
		"cos":   unary(math.Cos),
		"tan":   unary(math.Tan),
		"atan":  unary(math.Atan),
		"sinh":  unary(math.Sinh),
		"cosh":  unary(math.Cosh),
		"tanh":  unary(math.Tanh),
		"sqrt":  unary(math.Sqrt),
		"abs":   unary(math.Abs),
		"floor": unary(math.Floor),
		"ceil":  unary(math.Ceil),
		"step": unary(func(x float64) float64 {
			if x >= 0 {
				return 1
			}
			return 0
		}),
		"pow": {Arity: 2, Fn: func(a ...float64) float64 { return math.Pow(a[0], a[1]) }},
		"min": {Arity: -1, Fn: func(a ...float64) float64 {
			m := a[0]
			for _, v := range a[1:] {
				m = math.Min(m, v)
			}
			return m
		}},
		"max": {Arity: -1, Fn: func(a ...float64) float64 {
			m := a[0]
			for _, v := range a[1:] {
				m = math.Max(m, v)
			}
			return m
		}},
	}}
}

// Register adds a function. Names already present are rejected.
func (f *Funcs) Register(name string, arity int, fn func(args ...float64) float64) error {
	if f.m == nil {
		f.m = make(map[string]Func)
	}
	if _, ok := f.m[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, name)
	}
	f.m[name] = Func{Arity: arity, Fn: fn}
	return nil
}

func (f *Funcs) Lookup(name string) (Func, bool) {
	if f == nil {
		return Func{}, false
	}
	fn, ok := f.m[name]
	return fn, ok
}

func (f *Funcs) Has(name string) bool {
	_, ok := f.Lookup(name)
	return ok
}

// Names returns the registered names in sorted order.
func (f *Funcs) Names() []string {
	out := make([]string, 0, len(f.m))
	for name := range f.m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (f *Funcs) Clone() *Funcs {
	c := &Funcs{m: make(map[string]Func, len(f.m))}
	for k, v := range f.m {
		c.m[k] = v
	}
	return c
}

// Compile builds a numeric closure for e. Every free symbol of e must appear
// in order, and every call must resolve in funcs.
func Compile(e Expr, order []Symbol, funcs *Funcs) (NumericFn, error) {
	index := make(map[Symbol]int, len(order))
	for i, s := range order {
		index[s] = i
	}
	c := &compiler{index: index, funcs: funcs}
	fn := c.build(e)

	var errs []error
	if len(c.unknownSyms) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownSymbol, joinSorted(c.unknownSyms)))
	}
	if len(c.unknownFuncs) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownFunction, joinSorted(c.unknownFuncs)))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return fn, nil
}

// Eval compiles and evaluates e against named values.
func Eval(e Expr, values map[Symbol]float64, funcs *Funcs) (float64, error) {
	order := make([]Symbol, 0, len(values))
	args := make([]float64, 0, len(values))
	for s, v := range values {
		order = append(order, s)
		args = append(args, v)
	}
	fn, err := Compile(e, order, funcs)
	if err != nil {
		return 0, err
	}
	return fn(args), nil
}

type compiler struct {
	index        map[Symbol]int
	funcs        *Funcs
	unknownSyms  map[string]struct{}
	unknownFuncs map[string]struct{}
}

func (c *compiler) missingSym(name string) {
	if c.unknownSyms == nil {
		c.unknownSyms = make(map[string]struct{})
	}
	c.unknownSyms[name] = struct{}{}
}

func (c *compiler) missingFunc(name string) {
	if c.unknownFuncs == nil {
		c.unknownFuncs = make(map[string]struct{})
	}
	c.unknownFuncs[name] = struct{}{}
}

func (c *compiler) build(e Expr) NumericFn {
	switch n := e.(type) {
	case *undefined:
		return func([]float64) float64 { return math.NaN() }

	case *num:
		v, _ := n.r.Float64()
		return func([]float64) float64 { return v }

	case *sym:
		i, ok := c.index[n.name]
		if !ok {
			c.missingSym(string(n.name))
			return nil
		}
		return func(args []float64) float64 { return args[i] }

	case *sum:
		terms := c.buildAll(n.terms)
		return func(args []float64) float64 {
			total := 0.0
			for _, t := range terms {
				total += t(args)
			}
			return total
		}

	case *prod:
		factors := c.buildAll(n.factors)
		return func(args []float64) float64 {
			total := 1.0
			for _, f := range factors {
				total *= f(args)
			}
			return total
		}

	case *power:
		base := c.build(n.base)
		if v, ok := Value(n.exp); ok {
			switch v {
			case -1:
				return func(args []float64) float64 { return 1 / base(args) }
			case 2:
				return func(args []float64) float64 {
					b := base(args)
					return b * b
				}
			}
		}
		exp := c.build(n.exp)
		return func(args []float64) float64 { return math.Pow(base(args), exp(args)) }

	case *call:
		f, ok := c.funcs.Lookup(n.name)
		if !ok || (f.Arity >= 0 && f.Arity != len(n.args)) || (f.Arity < 0 && len(n.args) == 0) {
			c.missingFunc(fmt.Sprintf("%s/%d", n.name, len(n.args)))
			return nil
		}
		args := c.buildAll(n.args)
		buf := make([]float64, len(args))
		return func(in []float64) float64 {
			for i, a := range args {
				buf[i] = a(in)
			}
			return f.Fn(buf...)
		}
	}
	return nil
}

func (c *compiler) buildAll(es []Expr) []NumericFn {
	out := make([]NumericFn, len(es))
	for i, e := range es {
		out[i] = c.build(e)
	}
	return out
}

func joinSorted(set map[string]struct{}) string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
