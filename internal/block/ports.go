package block

import (
	"fmt"
	"regexp"

	"github.com/san-kum/portsim/internal/equation"
	"github.com/san-kum/portsim/internal/expr"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validName(kind, name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("%w: %s %q", ErrInvalidName, kind, name)
	}
	return nil
}

// InputPort consumes a parameter. Default is nil when the port has none.
type InputPort struct {
	Name        string
	Description string
	Default     expr.Expr
}

// OutputPort exposes a parameter computed inside the block.
type OutputPort struct {
	Name        string
	Description string
}

// VariablePort exposes the differential equation of a state variable.
type VariablePort struct {
	Name        string
	Description string
}

// CompiledInput is an input port after compilation; Name is the final symbol.
type CompiledInput struct {
	Name        string
	Description string
	Default     expr.Expr
}

// CompiledOutput carries the assignment feeding an output port.
type CompiledOutput struct {
	Name        string
	Description string
	Assignment  equation.Assignment
}

// CompiledVariable carries the differential equation exposed at a port.
type CompiledVariable struct {
	Name        string
	Description string
	Assignment  equation.Assignment
}

// RequiredInput is a root input that has neither a wire nor a default. A
// value must be supplied before simulation.
type RequiredInput struct {
	Name        string
	Description string
}

func (e PortEntry) input() (InputPort, error) {
	if err := validName("input port", e.Name); err != nil {
		return InputPort{}, err
	}
	p := InputPort{Name: e.Name, Description: e.Description}
	if e.Default != "" {
		d, err := expr.Parse(e.Default)
		if err != nil {
			return InputPort{}, fmt.Errorf("default of input port %s: %w", e.Name, err)
		}
		p.Default = d
	}
	return p, nil
}

func (e PortEntry) output() (OutputPort, error) {
	if err := validName("output port", e.Name); err != nil {
		return OutputPort{}, err
	}
	if e.Default != "" {
		return OutputPort{}, fmt.Errorf("%w: output port %s cannot carry a default value", ErrInvalidData, e.Name)
	}
	return OutputPort{Name: e.Name, Description: e.Description}, nil
}

func (e PortEntry) variable() (VariablePort, error) {
	if err := validName("variable port", e.Name); err != nil {
		return VariablePort{}, err
	}
	if e.Default != "" {
		return VariablePort{}, fmt.Errorf("%w: variable port %s cannot carry a default value", ErrInvalidData, e.Name)
	}
	return VariablePort{Name: e.Name, Description: e.Description}, nil
}

func inputEntry(p InputPort) PortEntry {
	e := PortEntry{Name: p.Name, Description: p.Description}
	if p.Default != nil {
		e.Default = p.Default.String()
	}
	return e
}
