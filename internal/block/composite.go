package block

import (
	"fmt"
	"strings"

	"github.com/san-kum/portsim/internal/expr"
	"github.com/san-kum/portsim/internal/omap"
)

// CompositeBlock holds child blocks and the wires between them. It creates
// no ports on its own.
type CompositeBlock struct {
	name          string
	children      *omap.Map[string, Block]
	inputs        *omap.Map[string, InputPort]
	outputs       *omap.Map[string, OutputPort]
	variablePorts *omap.Map[string, VariablePort]
	directed      []DirectedWire
	aggregations  []VariableWire
}

func NewComposite(name string) *CompositeBlock {
	return &CompositeBlock{
		name:          name,
		children:      omap.New[string, Block](),
		inputs:        omap.New[string, InputPort](),
		outputs:       omap.New[string, OutputPort](),
		variablePorts: omap.New[string, VariablePort](),
	}
}

func (b *CompositeBlock) Name() string                  { return b.name }
func (b *CompositeBlock) InputPorts() []InputPort       { return b.inputs.Values() }
func (b *CompositeBlock) OutputPorts() []OutputPort     { return b.outputs.Values() }
func (b *CompositeBlock) VariablePorts() []VariablePort { return b.variablePorts.Values() }
func (b *CompositeBlock) Children() []Block             { return b.children.Values() }
func (b *CompositeBlock) DirectedWires() []DirectedWire { return append([]DirectedWire(nil), b.directed...) }
func (b *CompositeBlock) VariableWires() []VariableWire { return append([]VariableWire(nil), b.aggregations...) }

func (b *CompositeBlock) Child(name string) (Block, bool) {
	return b.children.Get(name)
}

func (b *CompositeBlock) portTaken(name string) bool {
	return b.inputs.Has(name) || b.outputs.Has(name) || b.variablePorts.Has(name)
}

func (b *CompositeBlock) AddChildren(children ...Block) error {
	for _, c := range children {
		if err := validName("block", c.Name()); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if b.children.Has(c.Name()) {
			return duplicateError(b.name, "child", c.Name())
		}
		b.children.Set(c.Name(), c)
	}
	return nil
}

func (b *CompositeBlock) AddInputPorts(entries ...PortEntry) error {
	for _, e := range entries {
		p, err := e.input()
		if err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if b.portTaken(p.Name) {
			return duplicateError(b.name, "port", p.Name)
		}
		b.inputs.Set(p.Name, p)
	}
	return nil
}

func (b *CompositeBlock) AddOutputPorts(entries ...PortEntry) error {
	for _, e := range entries {
		p, err := e.output()
		if err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if b.portTaken(p.Name) {
			return duplicateError(b.name, "port", p.Name)
		}
		b.outputs.Set(p.Name, p)
	}
	return nil
}

func (b *CompositeBlock) AddVariablePorts(entries ...PortEntry) error {
	for _, e := range entries {
		p, err := e.variable()
		if err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if b.portTaken(p.Name) {
			return duplicateError(b.name, "port", p.Name)
		}
		b.variablePorts.Set(p.Name, p)
	}
	return nil
}

type portKind int

const (
	noPort portKind = iota
	inputKind
	outputKind
	variableKind
)

func (k portKind) String() string {
	switch k {
	case inputKind:
		return "input"
	case outputKind:
		return "output"
	case variableKind:
		return "variable"
	}
	return "unknown"
}

// lookup resolves a wire endpoint. Own ports are plain names, child ports are
// "child.port".
func (b *CompositeBlock) lookup(name string) (kind portKind, own bool) {
	if childName, port, ok := strings.Cut(name, expr.Sep); ok {
		child, found := b.children.Get(childName)
		if !found {
			return noPort, false
		}
		for _, p := range child.InputPorts() {
			if p.Name == port {
				return inputKind, false
			}
		}
		for _, p := range child.OutputPorts() {
			if p.Name == port {
				return outputKind, false
			}
		}
		for _, p := range child.VariablePorts() {
			if p.Name == port {
				return variableKind, false
			}
		}
		return noPort, false
	}
	switch {
	case b.inputs.Has(name):
		return inputKind, true
	case b.outputs.Has(name):
		return outputKind, true
	case b.variablePorts.Has(name):
		return variableKind, true
	}
	return noPort, true
}

// AddDirectedWire connects source to destinations. The source must be an own
// input port or a child output or variable port. Destinations must be child
// input ports or own output ports.
func (b *CompositeBlock) AddDirectedWire(source string, destinations ...string) error {
	if len(destinations) == 0 {
		return wiringError(b.name, "directed wire without destination", source)
	}
	kind, own := b.lookup(source)
	switch {
	case kind == inputKind && own:
	case (kind == outputKind || kind == variableKind) && !own:
	default:
		return wiringError(b.name, fmt.Sprintf("invalid wire source (%s port, own=%v)", kind, own), source)
	}

	var bad, outputs []string
	for _, d := range destinations {
		dk, downOwn := b.lookup(d)
		switch {
		case dk == inputKind && !downOwn:
		case dk == outputKind && downOwn:
			outputs = append(outputs, d)
		default:
			bad = append(bad, d)
		}
	}
	if len(bad) > 0 {
		return wiringError(b.name, "invalid wire destinations from "+source, bad...)
	}
	if len(outputs) > 1 {
		return wiringError(b.name, "wire from "+source+" has several output port destinations", outputs...)
	}
	if len(outputs) == 1 && !(kind == outputKind && !own) {
		return wiringError(b.name, "a wire to an output port must originate from a child output", source, outputs[0])
	}
	b.directed = append(b.directed, DirectedWire{Source: source, Destinations: append([]string(nil), destinations...)})
	return nil
}

// AddVariableWire superposes child variable ports. With a parent port name
// the result is exposed at that own variable port, otherwise it is kept as
// the internal variable outputName.
func (b *CompositeBlock) AddVariableWire(childPorts []string, parentPort, outputName string) error {
	if len(childPorts) == 0 {
		return wiringError(b.name, "variable wire without child ports", parentPort+outputName)
	}
	var bad []string
	for _, cp := range childPorts {
		if kind, own := b.lookup(cp); kind != variableKind || own {
			bad = append(bad, cp)
		}
	}
	if len(bad) > 0 {
		return wiringError(b.name, "variable wire sources must be child variable ports", bad...)
	}
	switch {
	case parentPort != "":
		if !b.variablePorts.Has(parentPort) {
			return wiringError(b.name, "variable wire target must be an own variable port", parentPort)
		}
		outputName = ""
	case outputName != "":
		if err := validName("internal variable", outputName); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if b.portTaken(outputName) {
			return duplicateError(b.name, "port", outputName)
		}
	default:
		return wiringError(b.name, "variable wire needs a parent port or an output name", childPorts...)
	}
	b.aggregations = append(b.aggregations, VariableWire{
		ChildPorts: append([]string(nil), childPorts...),
		ParentPort: parentPort,
		OutputName: outputName,
	})
	return nil
}
