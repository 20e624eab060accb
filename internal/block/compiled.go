package block

import (
	"github.com/san-kum/portsim/internal/equation"
	"github.com/san-kum/portsim/internal/expr"
	"github.com/san-kum/portsim/internal/omap"
)

// Compiled is the fully resolved form of a block. Port maps are keyed by the
// port's local name; internal pools are keyed by symbol. A Compiled value is
// never modified after Compile returns it.
type Compiled struct {
	name           string
	inputs         *omap.Map[string, CompiledInput]
	outputs        *omap.Map[string, CompiledOutput]
	variables      *omap.Map[string, CompiledVariable]
	internalVars   *omap.Map[string, equation.Assignment]
	internalParams *omap.Map[string, equation.Assignment]
}

func newCompiled(name string) *Compiled {
	return &Compiled{
		name:           name,
		inputs:         omap.New[string, CompiledInput](),
		outputs:        omap.New[string, CompiledOutput](),
		variables:      omap.New[string, CompiledVariable](),
		internalVars:   omap.New[string, equation.Assignment](),
		internalParams: omap.New[string, equation.Assignment](),
	}
}

func (c *Compiled) Name() string                              { return c.name }
func (c *Compiled) Inputs() []CompiledInput                   { return c.inputs.Values() }
func (c *Compiled) Outputs() []CompiledOutput                 { return c.outputs.Values() }
func (c *Compiled) Variables() []CompiledVariable             { return c.variables.Values() }
func (c *Compiled) InternalVariables() []equation.Assignment  { return c.internalVars.Values() }
func (c *Compiled) InternalParameters() []equation.Assignment { return c.internalParams.Values() }

func (c *Compiled) Input(name string) (CompiledInput, bool)       { return c.inputs.Get(name) }
func (c *Compiled) Output(name string) (CompiledOutput, bool)     { return c.outputs.Get(name) }
func (c *Compiled) Variable(name string) (CompiledVariable, bool) { return c.variables.Get(name) }

// InternalParameter looks up an internal parameter by symbol.
func (c *Compiled) InternalParameter(symbol string) (equation.Assignment, bool) {
	return c.internalParams.Get(symbol)
}

// InternalVariable looks up an internal variable by symbol.
func (c *Compiled) InternalVariable(symbol string) (equation.Assignment, bool) {
	return c.internalVars.Get(symbol)
}

// Flattened is the equation set of a root compiled block.
type Flattened struct {
	Differentials []equation.Assignment
	Parameters    []equation.Assignment
	Required      []RequiredInput
}

// Flatten turns the root's unresolved inputs into default parameters or
// required inputs and lists every equation: variable ports, then internal
// variables; output ports, then internal parameters, then defaults.
func (c *Compiled) Flatten() (Flattened, error) {
	var f Flattened
	c.variables.Each(func(_ string, v CompiledVariable) bool {
		f.Differentials = append(f.Differentials, v.Assignment)
		return true
	})
	f.Differentials = append(f.Differentials, c.internalVars.Values()...)

	c.outputs.Each(func(_ string, o CompiledOutput) bool {
		f.Parameters = append(f.Parameters, o.Assignment)
		return true
	})
	f.Parameters = append(f.Parameters, c.internalParams.Values()...)

	var err error
	c.inputs.Each(func(_ string, p CompiledInput) bool {
		if p.Default == nil {
			f.Required = append(f.Required, RequiredInput{Name: p.Name, Description: p.Description})
			return true
		}
		var a equation.Assignment
		a, err = equation.NewDefault(expr.Symbol(p.Name), p.Default)
		if err != nil {
			return false
		}
		a.Description = p.Description
		f.Parameters = append(f.Parameters, a)
		return true
	})
	if err != nil {
		return Flattened{}, err
	}
	return f, nil
}

// rename applies a symbol mapping to every port and assignment.
func (c *Compiled) rename(m map[expr.Symbol]expr.Symbol) {
	if len(m) == 0 {
		return
	}
	sym := func(name string) string {
		if s, ok := m[expr.Symbol(name)]; ok {
			return string(s)
		}
		return name
	}
	for _, k := range c.inputs.Keys() {
		p, _ := c.inputs.Get(k)
		p.Name = sym(p.Name)
		c.inputs.Set(k, p)
	}
	for _, k := range c.outputs.Keys() {
		p, _ := c.outputs.Get(k)
		p.Name = sym(p.Name)
		p.Assignment = p.Assignment.Rename(m)
		c.outputs.Set(k, p)
	}
	for _, k := range c.variables.Keys() {
		p, _ := c.variables.Get(k)
		p.Name = sym(p.Name)
		p.Assignment = p.Assignment.Rename(m)
		c.variables.Set(k, p)
	}
	for _, pool := range []*omap.Map[string, equation.Assignment]{c.internalVars, c.internalParams} {
		for _, k := range pool.Keys() {
			a, _ := pool.Get(k)
			pool.Set(k, a.Rename(m))
		}
	}
}

// rekey re-indexes the internal pools by their current symbols.
func (c *Compiled) rekey() error {
	for _, pool := range []*omap.Map[string, equation.Assignment]{c.internalVars, c.internalParams} {
		fresh := omap.New[string, equation.Assignment]()
		var dup error
		pool.Each(func(_ string, a equation.Assignment) bool {
			if fresh.Has(string(a.Symbol)) {
				dup = duplicateError(c.name, "internal symbol", string(a.Symbol))
				return false
			}
			fresh.Set(string(a.Symbol), a)
			return true
		})
		if dup != nil {
			return dup
		}
		*pool = *fresh
	}
	return nil
}

// symbols lists every symbol owned by the block.
func (c *Compiled) symbols() []string {
	var out []string
	c.inputs.Each(func(_ string, p CompiledInput) bool { out = append(out, p.Name); return true })
	c.outputs.Each(func(_ string, p CompiledOutput) bool { out = append(out, p.Name); return true })
	c.variables.Each(func(_ string, p CompiledVariable) bool { out = append(out, p.Name); return true })
	c.internalVars.Each(func(_ string, a equation.Assignment) bool { out = append(out, string(a.Symbol)); return true })
	c.internalParams.Each(func(_ string, a equation.Assignment) bool { out = append(out, string(a.Symbol)); return true })
	return out
}

// prefix renames every owned symbol s to "name.s". Map keys are unchanged.
func (c *Compiled) prefix() {
	m := make(map[expr.Symbol]expr.Symbol)
	for _, s := range c.symbols() {
		m[expr.Symbol(s)] = expr.Symbol(expr.Join(c.name, s))
	}
	c.rename(m)
}
