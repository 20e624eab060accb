package block

import (
	"fmt"

	"github.com/san-kum/portsim/internal/equation"
)

// Block types in interchange data.
const (
	TypeFunctional = "functional"
	TypeVariable   = "variable"
	TypeComposite  = "composite"
)

// Data is the structural interchange form of a block.
type Data struct {
	Metadata   Metadata   `json:"metadata" yaml:"metadata"`
	ObjectData ObjectData `json:"object_data" yaml:"object_data"`
}

type Metadata struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// ObjectData lists everything needed to rebuild a block. CreateInputPorts
// defaults to true when absent.
type ObjectData struct {
	Assignments      []AssignmentEntry `json:"assignments,omitempty" yaml:"assignments,omitempty"`
	InputPorts       []PortEntry       `json:"input_ports,omitempty" yaml:"input_ports,omitempty"`
	OutputPorts      []PortEntry       `json:"output_ports,omitempty" yaml:"output_ports,omitempty"`
	VariablePorts    []PortEntry       `json:"variable_ports,omitempty" yaml:"variable_ports,omitempty"`
	VariableWires    []VariableWire    `json:"variable_wires,omitempty" yaml:"variable_wires,omitempty"`
	DirectedWires    []DirectedWire    `json:"directed_wires,omitempty" yaml:"directed_wires,omitempty"`
	Children         []Data            `json:"children,omitempty" yaml:"children,omitempty"`
	CreateInputPorts *bool             `json:"create_input_ports,omitempty" yaml:"create_input_ports,omitempty"`
}

// Validate checks metadata and that only keys meaningful for the block type
// are populated, recursively.
func (d Data) Validate() error {
	if d.Metadata.Name == "" {
		return fmt.Errorf("%w: metadata has no name", ErrInvalidData)
	}
	od := d.ObjectData
	var stray []string
	check := func(key string, present bool) {
		if present {
			stray = append(stray, key)
		}
	}
	switch d.Metadata.Type {
	case TypeFunctional:
		check("output_ports", len(od.OutputPorts) > 0)
		check("variable_ports", len(od.VariablePorts) > 0)
		check("variable_wires", len(od.VariableWires) > 0)
		check("directed_wires", len(od.DirectedWires) > 0)
		check("children", len(od.Children) > 0)
	case TypeVariable:
		check("output_ports", len(od.OutputPorts) > 0)
		check("variable_wires", len(od.VariableWires) > 0)
		check("directed_wires", len(od.DirectedWires) > 0)
		check("children", len(od.Children) > 0)
	case TypeComposite:
		check("assignments", len(od.Assignments) > 0)
		check("create_input_ports", od.CreateInputPorts != nil)
		for _, c := range od.Children {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("%s: %w", d.Metadata.Name, err)
			}
		}
	case "":
		return fmt.Errorf("%w: metadata of %s has no type", ErrInvalidData, d.Metadata.Name)
	default:
		return fmt.Errorf("%w: %s has unknown type %q", ErrInvalidData, d.Metadata.Name, d.Metadata.Type)
	}
	if len(stray) > 0 {
		return fmt.Errorf("%w: %s block %s cannot have %v", ErrInvalidData, d.Metadata.Type, d.Metadata.Name, stray)
	}
	return nil
}

// FromData rebuilds a block. opts apply to every leaf block in the tree;
// a leaf's create_input_ports setting takes precedence.
func FromData(d Data, opts ...Option) (Block, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return fromData(d, opts)
}

func fromData(d Data, opts []Option) (Block, error) {
	od := d.ObjectData
	leafOpts := opts
	if od.CreateInputPorts != nil && !*od.CreateInputPorts {
		leafOpts = append(append([]Option(nil), opts...), WithoutInputPortCreation())
	} else if od.CreateInputPorts != nil {
		leafOpts = append(append([]Option(nil), opts...), func(o *options) { o.createInputPorts = true })
	}

	switch d.Metadata.Type {
	case TypeFunctional:
		b := NewFunctional(d.Metadata.Name, leafOpts...)
		if err := b.AddInputPorts(od.InputPorts...); err != nil {
			return nil, err
		}
		if err := b.AddParameterAssignments(od.Assignments...); err != nil {
			return nil, err
		}
		return b, nil

	case TypeVariable:
		b := NewVariable(d.Metadata.Name, leafOpts...)
		if err := b.AddInputPorts(od.InputPorts...); err != nil {
			return nil, err
		}
		if err := b.AddVariablePorts(od.VariablePorts...); err != nil {
			return nil, err
		}
		if err := b.AddDifferentialAssignments(od.Assignments...); err != nil {
			return nil, err
		}
		return b, nil

	case TypeComposite:
		b := NewComposite(d.Metadata.Name)
		for _, cd := range od.Children {
			child, err := fromData(cd, opts)
			if err != nil {
				return nil, err
			}
			if err := b.AddChildren(child); err != nil {
				return nil, err
			}
		}
		if err := b.AddInputPorts(od.InputPorts...); err != nil {
			return nil, err
		}
		if err := b.AddOutputPorts(od.OutputPorts...); err != nil {
			return nil, err
		}
		if err := b.AddVariablePorts(od.VariablePorts...); err != nil {
			return nil, err
		}
		for _, w := range od.DirectedWires {
			if err := b.AddDirectedWire(w.Source, w.Destinations...); err != nil {
				return nil, err
			}
		}
		for _, w := range od.VariableWires {
			if err := b.AddVariableWire(w.ChildPorts, w.ParentPort, w.OutputName); err != nil {
				return nil, err
			}
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidData, d.Metadata.Type)
}

func (b *FunctionalBlock) Data() Data {
	od := ObjectData{InputPorts: b.inputs.explicit()}
	b.assignments.Each(func(_ string, a equation.Assignment) bool {
		od.Assignments = append(od.Assignments, assignmentEntry(a))
		return true
	})
	if !b.opts.createInputPorts {
		od.CreateInputPorts = new(bool)
	}
	return Data{Metadata: Metadata{Name: b.name, Type: TypeFunctional}, ObjectData: od}
}

func (b *VariableBlock) Data() Data {
	od := ObjectData{InputPorts: b.inputs.explicit()}
	if b.explicitPorts {
		b.variablePorts.Each(func(_ string, p VariablePort) bool {
			od.VariablePorts = append(od.VariablePorts, PortEntry{Name: p.Name, Description: p.Description})
			return true
		})
	}
	b.assignments.Each(func(_ string, a equation.Assignment) bool {
		od.Assignments = append(od.Assignments, assignmentEntry(a))
		return true
	})
	if !b.opts.createInputPorts {
		od.CreateInputPorts = new(bool)
	}
	return Data{Metadata: Metadata{Name: b.name, Type: TypeVariable}, ObjectData: od}
}

func (b *CompositeBlock) Data() Data {
	var od ObjectData
	b.children.Each(func(_ string, c Block) bool {
		od.Children = append(od.Children, c.Data())
		return true
	})
	b.inputs.Each(func(_ string, p InputPort) bool {
		od.InputPorts = append(od.InputPorts, inputEntry(p))
		return true
	})
	b.outputs.Each(func(_ string, p OutputPort) bool {
		od.OutputPorts = append(od.OutputPorts, PortEntry{Name: p.Name, Description: p.Description})
		return true
	})
	b.variablePorts.Each(func(_ string, p VariablePort) bool {
		od.VariablePorts = append(od.VariablePorts, PortEntry{Name: p.Name, Description: p.Description})
		return true
	})
	od.DirectedWires = b.DirectedWires()
	od.VariableWires = b.VariableWires()
	return Data{Metadata: Metadata{Name: b.name, Type: TypeComposite}, ObjectData: od}
}

func assignmentEntry(a equation.Assignment) AssignmentEntry {
	return AssignmentEntry{Symbol: string(a.Symbol), Expression: a.Expr.String(), Description: a.Description}
}
