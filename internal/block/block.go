// Package block implements ported blocks and the compiler that lowers a tree
// of blocks into one flat set of equations.
//
// A block exposes typed ports. Variable blocks own differential equations and
// expose state variables at variable ports. Functional blocks own algebraic
// parameters and expose each at an output port. Composite blocks hold
// children and the wires between them:
//
//   - a directed wire carries one symbol from a source port to destination
//     input ports or to one of the composite's own output ports;
//   - a variable wire superposes several child variable ports into one
//     variable by adding their right-hand sides.
//
// Compile walks the tree bottom-up. Children are compiled first with every
// owned symbol prefixed by the child's name, which keeps sibling symbols
// disjoint. Wires are then resolved into symbol identifications, unconnected
// inputs fall back to their default values, and the identifications are
// substituted everywhere in one pass. Identification chains are followed to
// their final symbol and cycles are rejected.
//
// Port, child and wire containers keep insertion order, so compilation is
// deterministic for a given construction sequence.
package block

import (
	"github.com/san-kum/portsim/internal/expr"
)

// DefaultTimeSymbol is treated as global unless other globals are given.
const DefaultTimeSymbol = "T"

// Block is one node of a model tree.
type Block interface {
	Name() string
	InputPorts() []InputPort
	OutputPorts() []OutputPort
	VariablePorts() []VariablePort
	// Data returns the interchange form of the block.
	Data() Data

	compile(cs *compileState, prefix bool) (*Compiled, error)
}

// Option configures leaf block construction.
type Option func(*options)

type options struct {
	globals          map[string]struct{}
	createInputPorts bool
}

func newOptions(opts []Option) options {
	o := options{
		globals:          map[string]struct{}{DefaultTimeSymbol: {}},
		createInputPorts: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithGlobals names symbols that are never turned into input ports, such as
// the time symbol and system parameters.
func WithGlobals(names ...string) Option {
	return func(o *options) {
		for _, n := range names {
			o.globals[n] = struct{}{}
		}
	}
}

// WithoutInputPortCreation stops leaf blocks from creating input ports for
// free symbols of their formulas.
func WithoutInputPortCreation() Option {
	return func(o *options) { o.createInputPorts = false }
}

func (o options) isGlobal(s expr.Symbol) bool {
	_, ok := o.globals[string(s)]
	return ok
}
