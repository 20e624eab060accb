package block

import (
	"fmt"

	"github.com/san-kum/portsim/internal/equation"
	"github.com/san-kum/portsim/internal/expr"
	"github.com/san-kum/portsim/internal/omap"
)

// FunctionalBlock owns parameter assignments. Every parameter is exposed at
// an output port of the same name.
type FunctionalBlock struct {
	name        string
	opts        options
	inputs      leafInputs
	outputs     *omap.Map[string, OutputPort]
	assignments *omap.Map[string, equation.Assignment]
}

func NewFunctional(name string, opts ...Option) *FunctionalBlock {
	return &FunctionalBlock{
		name:        name,
		opts:        newOptions(opts),
		inputs:      newLeafInputs(),
		outputs:     omap.New[string, OutputPort](),
		assignments: omap.New[string, equation.Assignment](),
	}
}

func (b *FunctionalBlock) Name() string                  { return b.name }
func (b *FunctionalBlock) InputPorts() []InputPort       { return b.inputs.list() }
func (b *FunctionalBlock) OutputPorts() []OutputPort     { return b.outputs.Values() }
func (b *FunctionalBlock) VariablePorts() []VariablePort { return nil }

func (b *FunctionalBlock) AddInputPorts(entries ...PortEntry) error {
	for _, e := range entries {
		p, err := e.input()
		if err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if b.inputs.ports.Has(p.Name) || b.outputs.Has(p.Name) {
			return duplicateError(b.name, "port", p.Name)
		}
		b.inputs.add(p, false)
	}
	return nil
}

// AddParameterAssignments adds symbol = expression per entry and exposes the
// symbol at a new output port. Every free symbol must be an input port, or
// becomes one when input port creation is enabled. The batch is applied only
// if every entry is valid.
func (b *FunctionalBlock) AddParameterAssignments(entries ...AssignmentEntry) error {
	parsed := make([]equation.Assignment, 0, len(entries))
	seen := make(map[string]bool)
	var missing []string
	for _, e := range entries {
		if err := validName("parameter", e.Symbol); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if b.assignments.Has(e.Symbol) || seen[e.Symbol] {
			return duplicateError(b.name, "parameter", e.Symbol)
		}
		if b.inputs.ports.Has(e.Symbol) {
			return duplicateError(b.name, "port", e.Symbol)
		}
		rhs, err := expr.Parse(e.Expression)
		if err != nil {
			return fmt.Errorf("%s: parameter %s: %w", b.name, e.Symbol, err)
		}
		a, err := equation.NewFunctional(expr.Symbol(e.Symbol), rhs)
		if err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		a.Description = e.Description
		seen[e.Symbol] = true
		parsed = append(parsed, a)

		for _, s := range a.FreeSymbols() {
			name := string(s)
			if b.inputs.ports.Has(name) || b.opts.isGlobal(s) {
				continue
			}
			if b.outputs.Has(name) || seen[name] {
				return duplicateError(b.name, "port", name)
			}
			if !b.opts.createInputPorts {
				missing = append(missing, name)
			}
		}
	}
	if len(missing) > 0 {
		return dependencyError(b.name, "missing input ports", dedupe(missing))
	}

	for _, a := range parsed {
		name := string(a.Symbol)
		b.assignments.Set(name, a)
		b.outputs.Set(name, OutputPort{Name: name, Description: a.Description})
	}
	for _, a := range parsed {
		for _, s := range a.FreeSymbols() {
			if !b.inputs.ports.Has(string(s)) && !b.opts.isGlobal(s) {
				b.inputs.add(InputPort{Name: string(s)}, true)
			}
		}
	}
	return nil
}

func (b *FunctionalBlock) compile(cs *compileState, prefix bool) (*Compiled, error) {
	if err := validName("block", b.name); err != nil {
		return nil, err
	}
	c := newCompiled(b.name)
	c.inputs = b.inputs.compiled(cs)

	var undefined []string
	b.assignments.Each(func(_ string, a equation.Assignment) bool {
		for _, s := range a.FreeSymbols() {
			if !c.inputs.Has(string(s)) && !cs.isGlobal(s) && !b.opts.isGlobal(s) {
				undefined = append(undefined, string(s))
			}
		}
		return true
	})
	if len(undefined) > 0 {
		return nil, dependencyError(b.name, "formulas reference undefined symbols", dedupe(undefined))
	}

	b.assignments.Each(func(name string, a equation.Assignment) bool {
		p, _ := b.outputs.Get(name)
		c.outputs.Set(name, CompiledOutput{Name: name, Description: p.Description, Assignment: a})
		return true
	})

	cs.logger.Debug("compiled functional block",
		"block", b.name,
		"outputs", c.outputs.Len(),
		"inputs", c.inputs.Len())

	if prefix {
		c.prefix()
	}
	return c, nil
}
