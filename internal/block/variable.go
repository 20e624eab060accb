package block

import (
	"fmt"

	"github.com/san-kum/portsim/internal/equation"
	"github.com/san-kum/portsim/internal/expr"
	"github.com/san-kum/portsim/internal/omap"
)

// VariableBlock owns differential equations. Each variable is exposed at a
// variable port of the same name, or kept internal.
type VariableBlock struct {
	name          string
	opts          options
	inputs        leafInputs
	variablePorts *omap.Map[string, VariablePort]
	explicitPorts bool
	assignments   *omap.Map[string, equation.Assignment]
}

func NewVariable(name string, opts ...Option) *VariableBlock {
	return &VariableBlock{
		name:          name,
		opts:          newOptions(opts),
		inputs:        newLeafInputs(),
		variablePorts: omap.New[string, VariablePort](),
		assignments:   omap.New[string, equation.Assignment](),
	}
}

func (b *VariableBlock) Name() string                  { return b.name }
func (b *VariableBlock) InputPorts() []InputPort       { return b.inputs.list() }
func (b *VariableBlock) OutputPorts() []OutputPort     { return nil }
func (b *VariableBlock) VariablePorts() []VariablePort { return b.variablePorts.Values() }

func (b *VariableBlock) portTaken(name string) bool {
	return b.inputs.ports.Has(name) || b.variablePorts.Has(name)
}

func (b *VariableBlock) AddInputPorts(entries ...PortEntry) error {
	for _, e := range entries {
		p, err := e.input()
		if err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if b.portTaken(p.Name) || b.assignments.Has(p.Name) {
			return duplicateError(b.name, "port", p.Name)
		}
		b.inputs.add(p, false)
	}
	return nil
}

// AddVariablePorts declares the variables to expose. Once any port is
// declared explicitly, variables without a port stay internal.
func (b *VariableBlock) AddVariablePorts(entries ...PortEntry) error {
	if len(entries) > 0 && !b.explicitPorts {
		b.variablePorts = omap.New[string, VariablePort]()
	}
	for _, e := range entries {
		p, err := e.variable()
		if err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if b.variablePorts.Has(p.Name) || (b.inputs.ports.Has(p.Name) && !b.inputs.auto[p.Name]) {
			return duplicateError(b.name, "port", p.Name)
		}
		b.inputs.remove(p.Name)
		b.variablePorts.Set(p.Name, p)
		b.explicitPorts = true
	}
	return nil
}

// AddDifferentialAssignments adds one equation d(symbol)/dt = expression per
// entry. Free symbols that are neither variables nor inputs become input
// ports unless input port creation is disabled.
func (b *VariableBlock) AddDifferentialAssignments(entries ...AssignmentEntry) error {
	parsed := make([]equation.Assignment, 0, len(entries))
	seen := make(map[string]bool)
	for _, e := range entries {
		if err := validName("variable", e.Symbol); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if b.assignments.Has(e.Symbol) || seen[e.Symbol] {
			return duplicateError(b.name, "variable", e.Symbol)
		}
		if b.inputs.ports.Has(e.Symbol) && !b.inputs.auto[e.Symbol] {
			return duplicateError(b.name, "port", e.Symbol)
		}
		rhs, err := expr.Parse(e.Expression)
		if err != nil {
			return fmt.Errorf("%s: variable %s: %w", b.name, e.Symbol, err)
		}
		seen[e.Symbol] = true
		a := equation.NewDifferential(expr.Symbol(e.Symbol), rhs)
		a.Description = e.Description
		parsed = append(parsed, a)
	}

	for _, a := range parsed {
		name := string(a.Symbol)
		b.inputs.remove(name)
		b.assignments.Set(name, a)
		if !b.explicitPorts {
			b.variablePorts.Set(name, VariablePort{Name: name, Description: a.Description})
		}
	}
	if b.opts.createInputPorts {
		b.createInputPorts(parsed)
	}
	return nil
}

func (b *VariableBlock) createInputPorts(parsed []equation.Assignment) {
	for _, a := range parsed {
		for _, s := range a.FreeSymbols() {
			name := string(s)
			if b.assignments.Has(name) || b.portTaken(name) || b.opts.isGlobal(s) {
				continue
			}
			b.inputs.add(InputPort{Name: name}, true)
		}
	}
}

func (b *VariableBlock) compile(cs *compileState, prefix bool) (*Compiled, error) {
	if err := validName("block", b.name); err != nil {
		return nil, err
	}
	c := newCompiled(b.name)
	c.inputs = b.inputs.compiled(cs)

	var undefined []string
	known := func(s expr.Symbol) bool {
		return b.assignments.Has(string(s)) || c.inputs.Has(string(s)) || cs.isGlobal(s) || b.opts.isGlobal(s)
	}
	b.assignments.Each(func(_ string, a equation.Assignment) bool {
		for _, s := range a.FreeSymbols() {
			if !known(s) {
				undefined = append(undefined, string(s))
			}
		}
		return true
	})
	if len(undefined) > 0 {
		return nil, dependencyError(b.name, "formulas reference undefined symbols", dedupe(undefined))
	}

	var dangling []string
	b.variablePorts.Each(func(name string, p VariablePort) bool {
		a, ok := b.assignments.Get(name)
		if !ok {
			dangling = append(dangling, name)
			return true
		}
		c.variables.Set(name, CompiledVariable{Name: name, Description: p.Description, Assignment: a})
		return true
	})
	if len(dangling) > 0 {
		return nil, wiringError(b.name, "variable ports without a differential equation", dangling...)
	}
	b.assignments.Each(func(name string, a equation.Assignment) bool {
		if !b.variablePorts.Has(name) {
			c.internalVars.Set(name, a)
		}
		return true
	})

	cs.logger.Debug("compiled variable block",
		"block", b.name,
		"variables", c.variables.Len(),
		"internal", c.internalVars.Len(),
		"inputs", c.inputs.Len())

	if prefix {
		c.prefix()
	}
	return c, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
