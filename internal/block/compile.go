package block

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/san-kum/portsim/internal/equation"
	"github.com/san-kum/portsim/internal/expr"
	"github.com/san-kum/portsim/internal/omap"
)

// compileState is threaded through one Compile call. Nothing in it outlives
// the call, so independent compilations never share symbol tables.
type compileState struct {
	logger  *slog.Logger
	globals map[string]struct{}
}

func (cs *compileState) isGlobal(s expr.Symbol) bool {
	_, ok := cs.globals[string(s)]
	return ok
}

// CompileOption configures Compile.
type CompileOption func(*compileState)

func WithLogger(l *slog.Logger) CompileOption {
	return func(cs *compileState) {
		if l != nil {
			cs.logger = l
		}
	}
}

// WithGlobalSymbols sets the symbols shared by the whole model, replacing the
// default of the time symbol alone.
func WithGlobalSymbols(names ...string) CompileOption {
	return func(cs *compileState) {
		cs.globals = make(map[string]struct{}, len(names))
		for _, n := range names {
			cs.globals[n] = struct{}{}
		}
	}
}

// Compile lowers the block tree rooted at b into a Compiled block. The tree
// is not modified.
func Compile(b Block, opts ...CompileOption) (*Compiled, error) {
	cs := &compileState{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		globals: map[string]struct{}{DefaultTimeSymbol: {}},
	}
	for _, opt := range opts {
		opt(cs)
	}
	return b.compile(cs, false)
}

func (b *CompositeBlock) compile(cs *compileState, prefix bool) (*Compiled, error) {
	if err := validName("block", b.name); err != nil {
		return nil, err
	}
	c := newCompiled(b.name)

	children := omap.New[string, *Compiled]()
	for _, name := range b.children.Keys() {
		child, _ := b.children.Get(name)
		cc, err := child.compile(cs, true)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", b.name, err)
		}
		children.Set(name, cc)
	}

	b.inputs.Each(func(name string, p InputPort) bool {
		c.inputs.Set(name, CompiledInput{Name: p.Name, Description: p.Description, Default: p.Default})
		return true
	})

	unresolved := omap.New[string, CompiledInput]()
	unclaimed := omap.New[string, CompiledVariable]()
	childOutputs := make(map[string]CompiledOutput)
	childVariables := make(map[string]CompiledVariable)
	childInputs := make(map[string]bool)
	var err error
	children.Each(func(childName string, cc *Compiled) bool {
		cc.inputs.Each(func(key string, p CompiledInput) bool {
			unresolved.Set(expr.Join(childName, key), p)
			childInputs[expr.Join(childName, key)] = true
			return true
		})
		cc.variables.Each(func(key string, v CompiledVariable) bool {
			unclaimed.Set(expr.Join(childName, key), v)
			childVariables[expr.Join(childName, key)] = v
			return true
		})
		cc.outputs.Each(func(key string, o CompiledOutput) bool {
			childOutputs[expr.Join(childName, key)] = o
			err = c.addInternal(c.internalParams, o.Assignment)
			return err == nil
		})
		if err != nil {
			return false
		}
		for _, a := range cc.internalVars.Values() {
			if err = c.addInternal(c.internalVars, a); err != nil {
				return false
			}
		}
		for _, a := range cc.internalParams.Values() {
			if err = c.addInternal(c.internalParams, a); err != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	var ids identifications
	for _, w := range b.directed {
		if err := b.resolveDirected(c, w, &ids, unresolved, childInputs, childOutputs, childVariables); err != nil {
			return nil, err
		}
	}

	var missing []string
	unresolved.Each(func(key string, p CompiledInput) bool {
		if p.Default == nil {
			missing = append(missing, key)
			return true
		}
		var a equation.Assignment
		a, err = equation.NewDefault(expr.Symbol(p.Name), p.Default)
		if err != nil {
			return false
		}
		a.Description = p.Description
		err = c.addInternal(c.internalParams, a)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, wiringError(b.name, "unconnected input ports without default value", missing...)
	}

	for _, w := range b.aggregations {
		if err := b.resolveAggregation(c, w, &ids, unclaimed); err != nil {
			return nil, err
		}
	}

	var dangling []string
	b.outputs.Each(func(name string, _ OutputPort) bool {
		if !c.outputs.Has(name) {
			dangling = append(dangling, name)
		}
		return true
	})
	b.variablePorts.Each(func(name string, _ VariablePort) bool {
		if !c.variables.Has(name) {
			dangling = append(dangling, name)
		}
		return true
	})
	if len(dangling) > 0 {
		return nil, wiringError(b.name, "ports not fed by any wire", dangling...)
	}

	for _, v := range unclaimed.Values() {
		if err := c.addInternal(c.internalVars, v.Assignment); err != nil {
			return nil, err
		}
	}

	m, err := ids.resolve(b.name)
	if err != nil {
		return nil, err
	}
	c.rename(m)
	if err := c.rekey(); err != nil {
		return nil, err
	}

	cs.logger.Debug("compiled composite block",
		"block", b.name,
		"children", children.Len(),
		"identifications", len(m),
		"variables", c.variables.Len(),
		"outputs", c.outputs.Len(),
		"internal_variables", c.internalVars.Len(),
		"internal_parameters", c.internalParams.Len())

	if prefix {
		c.prefix()
	}
	return c, nil
}

func (c *Compiled) addInternal(pool *omap.Map[string, equation.Assignment], a equation.Assignment) error {
	key := string(a.Symbol)
	if c.internalVars.Has(key) || c.internalParams.Has(key) {
		return duplicateError(c.name, "internal symbol", key)
	}
	pool.Set(key, a)
	return nil
}

func (b *CompositeBlock) resolveDirected(
	c *Compiled,
	w DirectedWire,
	ids *identifications,
	unresolved *omap.Map[string, CompiledInput],
	childInputs map[string]bool,
	childOutputs map[string]CompiledOutput,
	childVariables map[string]CompiledVariable,
) error {
	var outputs []string
	for _, d := range w.Destinations {
		if b.outputs.Has(d) {
			outputs = append(outputs, d)
		}
	}
	if len(outputs) > 1 {
		return wiringError(b.name, "wire from "+w.Source+" has several output port destinations", outputs...)
	}

	var root expr.Symbol
	source, fromChildOutput := childOutputs[w.Source]
	switch {
	case len(outputs) == 1:
		if !fromChildOutput {
			return wiringError(b.name, "a wire to an output port must originate from a child output", w.Source, outputs[0])
		}
		root = expr.Symbol(outputs[0])
	case fromChildOutput:
		root = source.Assignment.Symbol
	case c.inputs.Has(w.Source):
		p, _ := c.inputs.Get(w.Source)
		root = expr.Symbol(p.Name)
	default:
		v, ok := childVariables[w.Source]
		if !ok {
			return wiringError(b.name, "invalid wire source", w.Source)
		}
		root = v.Assignment.Symbol
	}

	for _, d := range w.Destinations {
		switch {
		case unresolved.Has(d):
			p, _ := unresolved.Pop(d)
			ids.add(expr.Symbol(p.Name), root)
		case b.outputs.Has(d):
			if c.outputs.Has(d) {
				return wiringError(b.name, "output port fed by more than one wire", d)
			}
			a, ok := c.internalParams.Pop(string(source.Assignment.Symbol))
			if !ok {
				return wiringError(b.name, "child output already routed to another output port", w.Source)
			}
			port, _ := b.outputs.Get(d)
			c.outputs.Set(d, CompiledOutput{Name: d, Description: port.Description, Assignment: a})
			ids.add(source.Assignment.Symbol, root)
		case childInputs[d]:
			return wiringError(b.name, "input port already connected", d)
		default:
			return wiringError(b.name, "invalid wiring target", d)
		}
	}
	return nil
}

func (b *CompositeBlock) resolveAggregation(
	c *Compiled,
	w VariableWire,
	ids *identifications,
	unclaimed *omap.Map[string, CompiledVariable],
) error {
	target := w.ParentPort
	if target == "" {
		target = w.OutputName
	}
	agg := equation.NewDifferential(expr.Symbol(target), expr.Zero)

	var bad []string
	for _, cp := range w.ChildPorts {
		v, ok := unclaimed.Pop(cp)
		if !ok {
			bad = append(bad, cp)
			continue
		}
		combined, err := agg.Combine(v.Assignment)
		if err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		agg = combined
		if agg.Description == "" {
			agg.Description = v.Assignment.Description
		}
		ids.add(v.Assignment.Symbol, expr.Symbol(target))
	}
	if len(bad) > 0 {
		return wiringError(b.name, "not an unclaimed child variable port", bad...)
	}

	if w.ParentPort != "" {
		if c.variables.Has(w.ParentPort) {
			return wiringError(b.name, "variable port fed by more than one variable wire", w.ParentPort)
		}
		port, _ := b.variablePorts.Get(w.ParentPort)
		if port.Description != "" {
			agg.Description = port.Description
		}
		c.variables.Set(w.ParentPort, CompiledVariable{Name: w.ParentPort, Description: agg.Description, Assignment: agg})
		return nil
	}
	return c.addInternal(c.internalVars, agg)
}

type identification struct {
	old, new expr.Symbol
}

// identifications collects "old is the same quantity as new" records for one
// composite level.
type identifications []identification

func (ids *identifications) add(old, new expr.Symbol) {
	if old != new {
		*ids = append(*ids, identification{old: old, new: new})
	}
}

// resolve maps every identified symbol to the end of its chain, so that one
// substitution pass gives the same result in any identification order.
func (ids identifications) resolve(block string) (map[expr.Symbol]expr.Symbol, error) {
	next := make(map[expr.Symbol]expr.Symbol, len(ids))
	for _, id := range ids {
		if prev, ok := next[id.old]; ok && prev != id.new {
			return nil, wiringError(block, "symbol identified with two different symbols",
				string(id.old), string(prev), string(id.new))
		}
		next[id.old] = id.new
	}

	olds := make([]expr.Symbol, 0, len(next))
	for old := range next {
		olds = append(olds, old)
	}
	sort.Slice(olds, func(i, j int) bool { return olds[i] < olds[j] })

	out := make(map[expr.Symbol]expr.Symbol, len(next))
	for _, old := range olds {
		chain := []string{string(old)}
		visited := map[expr.Symbol]bool{old: true}
		cur := next[old]
		for {
			if visited[cur] {
				chain = append(chain, string(cur))
				return nil, wiringError(block, "cyclic symbol identification", strings.Join(chain, " -> "))
			}
			visited[cur] = true
			chain = append(chain, string(cur))
			n, ok := next[cur]
			if !ok {
				break
			}
			cur = n
		}
		out[old] = cur
	}
	return out, nil
}
