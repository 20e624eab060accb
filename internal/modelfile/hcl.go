package modelfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/san-kum/portsim/internal/block"
	"github.com/zclconf/go-cty/cty"
)

// HCL model files nest blocks the way the model nests them:
//
//	time_symbol = "T"
//
//	system_parameter "temp" {
//	  formula = "20 + sin(T)"
//	}
//
//	block "composite" "eco" {
//	  input_port "a" { default = 0.1 }
//	  variable_port "x" {}
//	  directed_wire "a" { destinations = ["prey.a"] }
//	  variable_wire {
//	    child_ports = ["prey.x"]
//	    parent_port = "x"
//	  }
//	  block "variable" "prey" {
//	    assign "x" { expression = "r*x - a*x" }
//	  }
//	}
//
// Defaults and formulas may be numbers or strings.

type hclFile struct {
	TimeSymbol       *string               `hcl:"time_symbol,optional"`
	SystemParameters []*hclSystemParameter `hcl:"system_parameter,block"`
	Blocks           []*hclBlock           `hcl:"block,block"`
}

type hclSystemParameter struct {
	Name        string    `hcl:"name,label"`
	Formula     cty.Value `hcl:"formula"`
	Description *string   `hcl:"description,optional"`
}

type hclBlock struct {
	Type             string             `hcl:"type,label"`
	Name             string             `hcl:"name,label"`
	CreateInputPorts *bool              `hcl:"create_input_ports,optional"`
	InputPorts       []*hclPort         `hcl:"input_port,block"`
	OutputPorts      []*hclPort         `hcl:"output_port,block"`
	VariablePorts    []*hclPort         `hcl:"variable_port,block"`
	Assignments      []*hclAssignment   `hcl:"assign,block"`
	DirectedWires    []*hclDirectedWire `hcl:"directed_wire,block"`
	VariableWires    []*hclVariableWire `hcl:"variable_wire,block"`
	Children         []*hclBlock        `hcl:"block,block"`
}

type hclPort struct {
	Name        string    `hcl:"name,label"`
	Default     cty.Value `hcl:"default,optional"`
	Description *string   `hcl:"description,optional"`
}

type hclAssignment struct {
	Symbol      string    `hcl:"symbol,label"`
	Expression  cty.Value `hcl:"expression"`
	Description *string   `hcl:"description,optional"`
}

type hclDirectedWire struct {
	Source       string   `hcl:"source,label"`
	Destinations []string `hcl:"destinations"`
}

type hclVariableWire struct {
	ChildPorts []string `hcl:"child_ports"`
	ParentPort *string  `hcl:"parent_port,optional"`
	OutputName *string  `hcl:"output_name,optional"`
}

func decodeHCL(src []byte, name string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, name)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %w", diags)
	}
	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %w", diags)
	}
	if len(parsed.Blocks) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one top-level block, got %d", block.ErrInvalidData, len(parsed.Blocks))
	}

	f := &File{}
	if parsed.TimeSymbol != nil {
		f.TimeSymbol = *parsed.TimeSymbol
	}
	for _, p := range parsed.SystemParameters {
		formula, err := formulaText(p.Formula)
		if err != nil || formula == "" {
			return nil, fmt.Errorf("%w: system parameter %s needs a formula", block.ErrInvalidData, p.Name)
		}
		f.SystemParameters = append(f.SystemParameters, SystemParameter{
			Name:        p.Name,
			Formula:     formula,
			Description: deref(p.Description),
		})
	}
	d, err := parsed.Blocks[0].data()
	if err != nil {
		return nil, err
	}
	f.Model = d
	return f, nil
}

func (b *hclBlock) data() (block.Data, error) {
	d := block.Data{Metadata: block.Metadata{Name: b.Name, Type: b.Type}}
	od := &d.ObjectData
	od.CreateInputPorts = b.CreateInputPorts

	var err error
	if od.InputPorts, err = ports(b.InputPorts); err != nil {
		return d, fmt.Errorf("%s: %w", b.Name, err)
	}
	if od.OutputPorts, err = ports(b.OutputPorts); err != nil {
		return d, fmt.Errorf("%s: %w", b.Name, err)
	}
	if od.VariablePorts, err = ports(b.VariablePorts); err != nil {
		return d, fmt.Errorf("%s: %w", b.Name, err)
	}
	for _, a := range b.Assignments {
		e, err := formulaText(a.Expression)
		if err != nil || e == "" {
			return d, fmt.Errorf("%w: %s: assignment %s needs an expression", block.ErrInvalidData, b.Name, a.Symbol)
		}
		od.Assignments = append(od.Assignments, block.AssignmentEntry{
			Symbol:      a.Symbol,
			Expression:  e,
			Description: deref(a.Description),
		})
	}
	for _, w := range b.DirectedWires {
		od.DirectedWires = append(od.DirectedWires, block.Wire(w.Source, w.Destinations...))
	}
	for _, w := range b.VariableWires {
		od.VariableWires = append(od.VariableWires, block.VariableWire{
			ChildPorts: w.ChildPorts,
			ParentPort: deref(w.ParentPort),
			OutputName: deref(w.OutputName),
		})
	}
	for _, c := range b.Children {
		cd, err := c.data()
		if err != nil {
			return d, err
		}
		od.Children = append(od.Children, cd)
	}
	return d, nil
}

func ports(in []*hclPort) ([]block.PortEntry, error) {
	var out []block.PortEntry
	for _, p := range in {
		def, err := formulaText(p.Default)
		if err != nil {
			return nil, fmt.Errorf("%w: port %s: %v", block.ErrInvalidData, p.Name, err)
		}
		out = append(out, block.PortEntry{Name: p.Name, Default: def, Description: deref(p.Description)})
	}
	return out, nil
}

// formulaText turns a number or string attribute into formula text. An
// absent attribute yields "".
func formulaText(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.IsKnown() {
		return "", fmt.Errorf("value is not known")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Number:
		return v.AsBigFloat().Text('g', -1), nil
	}
	return "", fmt.Errorf("expected a number or a formula string, got %s", v.Type().FriendlyName())
}

// formulaValue writes plain numbers as HCL numbers and anything else as a
// string.
func formulaValue(s string) cty.Value {
	if n, err := cty.ParseNumberVal(s); err == nil && n.AsBigFloat().Text('g', -1) == s {
		return n
	}
	return cty.StringVal(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func encodeHCL(f *File) []byte {
	out := hclwrite.NewEmptyFile()
	body := out.Body()
	if f.TimeSymbol != "" {
		body.SetAttributeValue("time_symbol", cty.StringVal(f.TimeSymbol))
		body.AppendNewline()
	}
	for _, p := range f.SystemParameters {
		pb := body.AppendNewBlock("system_parameter", []string{p.Name}).Body()
		pb.SetAttributeValue("formula", formulaValue(p.Formula))
		if p.Description != "" {
			pb.SetAttributeValue("description", cty.StringVal(p.Description))
		}
		body.AppendNewline()
	}
	writeBlock(body, f.Model)
	return hclwrite.Format(out.Bytes())
}

func writeBlock(parent *hclwrite.Body, d block.Data) {
	body := parent.AppendNewBlock("block", []string{d.Metadata.Type, d.Metadata.Name}).Body()
	od := d.ObjectData
	if od.CreateInputPorts != nil {
		body.SetAttributeValue("create_input_ports", cty.BoolVal(*od.CreateInputPorts))
	}
	writePorts(body, "input_port", od.InputPorts)
	writePorts(body, "output_port", od.OutputPorts)
	writePorts(body, "variable_port", od.VariablePorts)
	for _, a := range od.Assignments {
		ab := body.AppendNewBlock("assign", []string{a.Symbol}).Body()
		ab.SetAttributeValue("expression", formulaValue(a.Expression))
		if a.Description != "" {
			ab.SetAttributeValue("description", cty.StringVal(a.Description))
		}
	}
	for _, w := range od.DirectedWires {
		wb := body.AppendNewBlock("directed_wire", []string{w.Source}).Body()
		wb.SetAttributeValue("destinations", stringList(w.Destinations))
	}
	for _, w := range od.VariableWires {
		wb := body.AppendNewBlock("variable_wire", nil).Body()
		wb.SetAttributeValue("child_ports", stringList(w.ChildPorts))
		if w.ParentPort != "" {
			wb.SetAttributeValue("parent_port", cty.StringVal(w.ParentPort))
		}
		if w.OutputName != "" {
			wb.SetAttributeValue("output_name", cty.StringVal(w.OutputName))
		}
	}
	for _, c := range od.Children {
		body.AppendNewline()
		writeBlock(body, c)
	}
}

func writePorts(body *hclwrite.Body, kind string, ports []block.PortEntry) {
	for _, p := range ports {
		pb := body.AppendNewBlock(kind, []string{p.Name}).Body()
		if p.Default != "" {
			pb.SetAttributeValue("default", formulaValue(p.Default))
		}
		if p.Description != "" {
			pb.SetAttributeValue("description", cty.StringVal(p.Description))
		}
	}
}

func stringList(ss []string) cty.Value {
	if len(ss) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}

