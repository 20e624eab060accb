// Package system wraps a compiled block tree with the symbols shared by the
// whole model: time, system parameters and utility functions. It classifies
// parameters and computes the order in which they must be substituted.
package system

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"

	"github.com/san-kum/portsim/internal/block"
	"github.com/san-kum/portsim/internal/dag"
	"github.com/san-kum/portsim/internal/expr"
	"github.com/san-kum/portsim/internal/omap"
)

// System is built in two phases: system parameters and utility functions are
// added, then Compile fixes the model. A compiled System does not change.
type System struct {
	logger     *slog.Logger
	timeSymbol expr.Symbol
	funcs      *expr.Funcs

	systemParams *omap.Map[string, Parameter]

	compiled   *block.Compiled
	variables  *omap.Map[string, Variable]
	parameters *omap.Map[string, Parameter]
	order      []expr.Symbol
}

type Option func(*System)

// WithTimeSymbol replaces the default time symbol T.
func WithTimeSymbol(name string) Option {
	return func(s *System) { s.timeSymbol = expr.Symbol(name) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(opts ...Option) *System {
	s := &System{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeSymbol:   block.DefaultTimeSymbol,
		funcs:        expr.Builtins(),
		systemParams: omap.New[string, Parameter](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSystemParameter defines a model-wide symbol. The formula may only use
// time and earlier system parameters; it is stored with those expanded, so
// every system parameter is a function of time alone.
func (s *System) AddSystemParameter(name, formula, description string) error {
	if s.compiled != nil {
		return configError("system parameter %s added after compile", name)
	}
	if err := s.checkGlobalName(name); err != nil {
		return err
	}
	e, err := expr.Parse(formula)
	if err != nil {
		return fmt.Errorf("system parameter %s: %w", name, err)
	}

	var undefined []string
	for _, sym := range expr.FreeSymbols(e) {
		if sym != s.timeSymbol && !s.systemParams.Has(string(sym)) {
			undefined = append(undefined, string(sym))
		}
	}
	if len(undefined) > 0 {
		return &block.DependencyError{
			Block:   "system parameter " + name,
			Reason:  "formula may only use time and earlier system parameters",
			Symbols: undefined,
		}
	}
	if err := s.checkFunctions(e); err != nil {
		return fmt.Errorf("system parameter %s: %w", name, err)
	}

	s.systemParams.Set(name, Parameter{
		Symbol:      expr.Symbol(name),
		Expr:        expr.Subs(e, s.systemValues()),
		Class:       ClassSystem,
		Description: description,
	})
	return nil
}

// AddUtilityFunction makes fn callable from every formula of the model.
// arity -1 accepts any positive number of arguments.
func (s *System) AddUtilityFunction(name string, arity int, fn func(args ...float64) float64) error {
	if s.compiled != nil {
		return configError("utility function %s added after compile", name)
	}
	if err := s.funcs.Register(name, arity, fn); err != nil {
		return fmt.Errorf("utility function: %w", err)
	}
	return nil
}

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (s *System) checkGlobalName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: system parameter %q", block.ErrInvalidName, name)
	}
	if expr.Symbol(name) == s.timeSymbol || s.systemParams.Has(name) {
		return &block.DuplicateError{Block: "system", What: "system parameter", Name: name}
	}
	return nil
}

func (s *System) systemValues() map[expr.Symbol]expr.Expr {
	m := make(map[expr.Symbol]expr.Expr, s.systemParams.Len())
	s.systemParams.Each(func(_ string, p Parameter) bool {
		m[p.Symbol] = p.Expr
		return true
	})
	return m
}

// checkFunctions reports calls to unknown functions or with a wrong number
// of arguments.
func (s *System) checkFunctions(e expr.Expr) error {
	_, err := expr.Compile(e, expr.FreeSymbols(e), s.funcs)
	return err
}

// Compile lowers root and builds the parameter table. Time and system
// parameters are global: they are neither prefixed nor turned into input
// ports. A System compiles once.
func (s *System) Compile(root block.Block) error {
	if s.compiled != nil {
		return configError("system already compiled")
	}

	globals := append([]string{string(s.timeSymbol)}, s.systemParams.Keys()...)
	c, err := block.Compile(root, block.WithLogger(s.logger), block.WithGlobalSymbols(globals...))
	if err != nil {
		return err
	}
	flat, err := c.Flatten()
	if err != nil {
		return err
	}

	variables := omap.New[string, Variable]()
	parameters := omap.New[string, Parameter]()
	taken := func(name string) error {
		if name == string(s.timeSymbol) || variables.Has(name) || parameters.Has(name) {
			return &block.DuplicateError{Block: root.Name(), What: "symbol", Name: name}
		}
		return nil
	}

	s.systemParams.Each(func(name string, p Parameter) bool {
		parameters.Set(name, p)
		return true
	})
	for _, a := range flat.Differentials {
		if err := taken(string(a.Symbol)); err != nil {
			return err
		}
		variables.Set(string(a.Symbol), Variable{Symbol: a.Symbol, Expr: a.Expr, Description: a.Description})
	}
	for _, a := range flat.Parameters {
		if err := taken(string(a.Symbol)); err != nil {
			return err
		}
		parameters.Set(string(a.Symbol), Parameter{
			Symbol:      a.Symbol,
			Expr:        a.Expr,
			Class:       classify(a),
			Description: a.Description,
		})
	}
	for _, r := range flat.Required {
		if err := taken(r.Name); err != nil {
			return err
		}
		parameters.Set(r.Name, Parameter{Symbol: expr.Symbol(r.Name), Class: ClassRequired, Description: r.Description})
	}

	if err := s.checkSymbols(root.Name(), variables, parameters); err != nil {
		return err
	}
	order, err := dependencyOrder(parameters)
	if err != nil {
		return err
	}

	s.compiled = c
	s.variables = variables
	s.parameters = parameters
	s.order = order

	s.logger.Info("compiled system",
		"root", root.Name(),
		"variables", variables.Len(),
		"parameters", parameters.Len(),
		"required", len(flat.Required))
	return nil
}

// checkSymbols rejects formulas referencing anything but variables,
// parameters and time, then formulas calling unknown functions.
func (s *System) checkSymbols(root string, variables *omap.Map[string, Variable], parameters *omap.Map[string, Parameter]) error {
	known := func(sym expr.Symbol) bool {
		return sym == s.timeSymbol || variables.Has(string(sym)) || parameters.Has(string(sym))
	}
	undefined := make(map[string]struct{})
	var exprs []expr.Expr
	variables.Each(func(_ string, v Variable) bool {
		exprs = append(exprs, v.Expr)
		return true
	})
	parameters.Each(func(_ string, p Parameter) bool {
		if p.Expr != nil {
			exprs = append(exprs, p.Expr)
		}
		return true
	})
	for _, e := range exprs {
		for _, sym := range expr.FreeSymbols(e) {
			if !known(sym) {
				undefined[string(sym)] = struct{}{}
			}
		}
	}
	if len(undefined) > 0 {
		names := make([]string, 0, len(undefined))
		for n := range undefined {
			names = append(names, n)
		}
		sort.Strings(names)
		return &block.DependencyError{Block: root, Reason: "formulas reference undefined symbols", Symbols: names}
	}

	var errs []error
	for _, e := range exprs {
		if err := s.checkFunctions(e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e, err))
		}
	}
	return errors.Join(errs...)
}

// dependencyOrder sorts parameters so that each comes after every parameter
// its formula uses.
func dependencyOrder(parameters *omap.Map[string, Parameter]) ([]expr.Symbol, error) {
	g := dag.New()
	for _, name := range parameters.Keys() {
		g.AddNode(name)
	}
	var err error
	parameters.Each(func(name string, p Parameter) bool {
		if p.Expr == nil {
			return true
		}
		for _, dep := range expr.FreeSymbols(p.Expr) {
			if parameters.Has(string(dep)) {
				if err = g.AddEdge(string(dep), name); err != nil {
					return false
				}
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sorted, err := g.Sort()
	if err != nil {
		var ce *dag.CycleError
		if errors.As(err, &ce) {
			return nil, &CyclicDependencyError{Path: ce.Path}
		}
		return nil, err
	}
	order := make([]expr.Symbol, len(sorted))
	for i, name := range sorted {
		order[i] = expr.Symbol(name)
	}
	return order, nil
}

func (s *System) IsCompiled() bool { return s.compiled != nil }

func (s *System) TimeSymbol() expr.Symbol { return s.timeSymbol }

func (s *System) Logger() *slog.Logger { return s.logger }

// Funcs returns a copy of the function table.
func (s *System) Funcs() *expr.Funcs { return s.funcs.Clone() }

// Compiled returns the compiled root, or nil before Compile.
func (s *System) Compiled() *block.Compiled { return s.compiled }

// Variables lists the state variables in declaration order.
func (s *System) Variables() []Variable {
	if s.variables == nil {
		return nil
	}
	return s.variables.Values()
}

// Parameters lists every parameter: system parameters first, then compiled
// parameters, then required inputs.
func (s *System) Parameters() []Parameter {
	if s.parameters == nil {
		return s.systemParams.Values()
	}
	return s.parameters.Values()
}

func (s *System) Variable(name string) (Variable, bool) {
	if s.variables == nil {
		return Variable{}, false
	}
	return s.variables.Get(name)
}

func (s *System) Parameter(name string) (Parameter, bool) {
	if s.parameters == nil {
		return s.systemParams.Get(name)
	}
	return s.parameters.Get(name)
}

// Order returns the parameter substitution order computed by Compile.
func (s *System) Order() []expr.Symbol {
	return append([]expr.Symbol(nil), s.order...)
}

// RequiredInputs names the parameters a simulation must set before running.
func (s *System) RequiredInputs() []string {
	var out []string
	for _, p := range s.Parameters() {
		if p.Class == ClassRequired {
			out = append(out, string(p.Symbol))
		}
	}
	return out
}
