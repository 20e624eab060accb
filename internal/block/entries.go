package block

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PortEntry declares a port. Default holds a formula and is only meaningful
// for input ports.
//
// In YAML and JSON a port may be written as a bare name ("a"), as a sequence
// [name, default, description] or as a mapping. All forms decode to the same
// PortEntry.
type PortEntry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     string `json:"default_value,omitempty" yaml:"default_value,omitempty"`
}

// AssignmentEntry declares one equation. Accepted shorthand: the sequence
// [symbol, expression, description], or a mapping whose left-hand side key is
// one of symbol, variable or parameter.
type AssignmentEntry struct {
	Symbol      string `json:"symbol" yaml:"symbol"`
	Expression  string `json:"expression" yaml:"expression"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// DirectedWire connects one source port to one or more destinations.
// Shorthand: the sequence [source, destination...], where a destination may
// itself be a list.
type DirectedWire struct {
	Source       string   `json:"source" yaml:"source"`
	Destinations []string `json:"destinations" yaml:"destinations"`
}

// VariableWire aggregates child variable ports into a parent variable port
// or, when ParentPort is empty, into the internal variable OutputName.
// Shorthand: the sequence [child_ports, parent_port, output_name].
type VariableWire struct {
	ChildPorts []string `json:"child_ports" yaml:"child_ports"`
	ParentPort string   `json:"parent_port,omitempty" yaml:"parent_port,omitempty"`
	OutputName string   `json:"output_name,omitempty" yaml:"output_name,omitempty"`
}

// Port declares a port without default.
func Port(name string) PortEntry {
	return PortEntry{Name: name}
}

// PortWithDefault declares an input port with a default formula.
func PortWithDefault(name, def string) PortEntry {
	return PortEntry{Name: name, Default: def}
}

// Assign declares symbol = expression, or d(symbol)/dt = expression in a
// variable block.
func Assign(symbol, expression string) AssignmentEntry {
	return AssignmentEntry{Symbol: symbol, Expression: expression}
}

// Wire declares a directed wire.
func Wire(source string, destinations ...string) DirectedWire {
	return DirectedWire{Source: source, Destinations: destinations}
}

// Aggregate declares a variable wire into a parent variable port.
func Aggregate(parentPort string, childPorts ...string) VariableWire {
	return VariableWire{ChildPorts: childPorts, ParentPort: parentPort}
}

// AggregateInternal declares a variable wire into an internal variable.
func AggregateInternal(outputName string, childPorts ...string) VariableWire {
	return VariableWire{ChildPorts: childPorts, OutputName: outputName}
}

func (e *PortEntry) UnmarshalYAML(n *yaml.Node) error { return fromYAML(n, e.fromTree) }
func (e *PortEntry) UnmarshalJSON(b []byte) error     { return fromJSON(b, e.fromTree) }

func (e *AssignmentEntry) UnmarshalYAML(n *yaml.Node) error { return fromYAML(n, e.fromTree) }
func (e *AssignmentEntry) UnmarshalJSON(b []byte) error     { return fromJSON(b, e.fromTree) }

func (w *DirectedWire) UnmarshalYAML(n *yaml.Node) error { return fromYAML(n, w.fromTree) }
func (w *DirectedWire) UnmarshalJSON(b []byte) error     { return fromJSON(b, w.fromTree) }

func (w *VariableWire) UnmarshalYAML(n *yaml.Node) error { return fromYAML(n, w.fromTree) }
func (w *VariableWire) UnmarshalJSON(b []byte) error     { return fromJSON(b, w.fromTree) }

func (e *PortEntry) fromTree(v any) error {
	*e = PortEntry{}
	switch t := v.(type) {
	case string:
		e.Name = t
	case []any:
		if len(t) == 0 || len(t) > 3 {
			return fmt.Errorf("%w: port entry needs 1 to 3 items, got %d", ErrInvalidData, len(t))
		}
		fields := []*string{&e.Name, &e.Default, &e.Description}
		for i, item := range t {
			if err := optionalScalar(item, fields[i]); err != nil {
				return fmt.Errorf("port entry item %d: %w", i, err)
			}
		}
	case map[string]any:
		if err := checkKeys(t, "port", "name", "description", "default_value"); err != nil {
			return err
		}
		for key, dst := range map[string]*string{"name": &e.Name, "description": &e.Description, "default_value": &e.Default} {
			if err := optionalScalar(t[key], dst); err != nil {
				return fmt.Errorf("port %s: %w", key, err)
			}
		}
	default:
		return fmt.Errorf("%w: unsupported port entry %v", ErrInvalidData, v)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: port entry without name", ErrInvalidData)
	}
	return nil
}

func (e *AssignmentEntry) fromTree(v any) error {
	*e = AssignmentEntry{}
	switch t := v.(type) {
	case []any:
		if len(t) < 2 || len(t) > 3 {
			return fmt.Errorf("%w: assignment entry needs 2 or 3 items, got %d", ErrInvalidData, len(t))
		}
		fields := []*string{&e.Symbol, &e.Expression, &e.Description}
		for i, item := range t {
			if err := optionalScalar(item, fields[i]); err != nil {
				return fmt.Errorf("assignment item %d: %w", i, err)
			}
		}
	case map[string]any:
		if err := checkKeys(t, "assignment", "symbol", "variable", "parameter", "expression", "description"); err != nil {
			return err
		}
		lhs := 0
		for _, key := range []string{"symbol", "variable", "parameter"} {
			if _, ok := t[key]; ok {
				lhs++
				if err := optionalScalar(t[key], &e.Symbol); err != nil {
					return fmt.Errorf("assignment %s: %w", key, err)
				}
			}
		}
		if lhs > 1 {
			return fmt.Errorf("%w: assignment has more than one of symbol, variable, parameter", ErrInvalidData)
		}
		if err := optionalScalar(t["expression"], &e.Expression); err != nil {
			return fmt.Errorf("assignment expression: %w", err)
		}
		if err := optionalScalar(t["description"], &e.Description); err != nil {
			return fmt.Errorf("assignment description: %w", err)
		}
	default:
		return fmt.Errorf("%w: unsupported assignment entry %v", ErrInvalidData, v)
	}
	if e.Symbol == "" || e.Expression == "" {
		return fmt.Errorf("%w: assignment needs a symbol and an expression", ErrInvalidData)
	}
	return nil
}

func (w *DirectedWire) fromTree(v any) error {
	*w = DirectedWire{}
	switch t := v.(type) {
	case []any:
		if len(t) < 2 {
			return fmt.Errorf("%w: directed wire needs a source and a destination", ErrInvalidData)
		}
		if err := optionalScalar(t[0], &w.Source); err != nil {
			return fmt.Errorf("wire source: %w", err)
		}
		for _, item := range t[1:] {
			dests, err := stringList(item)
			if err != nil {
				return fmt.Errorf("wire destinations: %w", err)
			}
			w.Destinations = append(w.Destinations, dests...)
		}
	case map[string]any:
		if err := checkKeys(t, "directed wire", "source", "destinations"); err != nil {
			return err
		}
		if err := optionalScalar(t["source"], &w.Source); err != nil {
			return fmt.Errorf("wire source: %w", err)
		}
		dests, err := stringList(t["destinations"])
		if err != nil {
			return fmt.Errorf("wire destinations: %w", err)
		}
		w.Destinations = dests
	default:
		return fmt.Errorf("%w: unsupported directed wire %v", ErrInvalidData, v)
	}
	if w.Source == "" || len(w.Destinations) == 0 {
		return fmt.Errorf("%w: directed wire needs a source and a destination", ErrInvalidData)
	}
	return nil
}

func (w *VariableWire) fromTree(v any) error {
	*w = VariableWire{}
	var children any
	switch t := v.(type) {
	case []any:
		if len(t) < 2 || len(t) > 3 {
			return fmt.Errorf("%w: variable wire needs 2 or 3 items, got %d", ErrInvalidData, len(t))
		}
		children = t[0]
		if err := optionalScalar(t[1], &w.ParentPort); err != nil {
			return fmt.Errorf("variable wire parent: %w", err)
		}
		if len(t) == 3 {
			if err := optionalScalar(t[2], &w.OutputName); err != nil {
				return fmt.Errorf("variable wire output: %w", err)
			}
		}
	case map[string]any:
		if err := checkKeys(t, "variable wire", "child_ports", "parent_port", "output_name"); err != nil {
			return err
		}
		children = t["child_ports"]
		if err := optionalScalar(t["parent_port"], &w.ParentPort); err != nil {
			return fmt.Errorf("variable wire parent: %w", err)
		}
		if err := optionalScalar(t["output_name"], &w.OutputName); err != nil {
			return fmt.Errorf("variable wire output: %w", err)
		}
	default:
		return fmt.Errorf("%w: unsupported variable wire %v", ErrInvalidData, v)
	}
	ports, err := stringList(children)
	if err != nil {
		return fmt.Errorf("variable wire child ports: %w", err)
	}
	w.ChildPorts = ports
	if len(w.ChildPorts) == 0 {
		return fmt.Errorf("%w: variable wire without child ports", ErrInvalidData)
	}
	if w.ParentPort == "" && w.OutputName == "" {
		return fmt.Errorf("%w: variable wire needs a parent port or an output name", ErrInvalidData)
	}
	return nil
}

// fromYAML and fromJSON reduce a document to a tree of string scalars,
// []any and map[string]any so one normalizer serves both formats.
func fromYAML(n *yaml.Node, fn func(any) error) error {
	v, err := yamlTree(n)
	if err != nil {
		return err
	}
	return fn(v)
}

func fromJSON(b []byte, fn func(any) error) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	return fn(jsonTree(raw))
}

func yamlTree(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlTree(n.Content[0])
	case yaml.AliasNode:
		return yamlTree(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlTree(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if _, dup := out[key]; dup {
				return nil, fmt.Errorf("%w: line %d: duplicate key %s", ErrInvalidData, n.Content[i].Line, key)
			}
			v, err := yamlTree(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: line %d: unsupported node", ErrInvalidData, n.Line)
}

func jsonTree(v any) any {
	switch t := v.(type) {
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		for i := range t {
			t[i] = jsonTree(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = jsonTree(t[k])
		}
		return t
	}
	return v
}

func optionalScalar(v any, dst *string) error {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		*dst = t
		return nil
	}
	return fmt.Errorf("%w: expected a scalar, got %v", ErrInvalidData, v)
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected a name, got %v", ErrInvalidData, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: expected a name or a list of names, got %v", ErrInvalidData, v)
}

func checkKeys(m map[string]any, what string, allowed ...string) error {
	ok := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		ok[k] = true
	}
	var unknown []string
	for k := range m {
		if !ok[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown %s keys %v", ErrInvalidData, what, unknown)
	}
	return nil
}
