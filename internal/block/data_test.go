package block

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"
)

func decodeYAML(doc string, v any) error {
	dec := yaml.NewDecoder(bytes.NewBufferString(doc))
	dec.KnownFields(true)
	return dec.Decode(v)
}

func flattenData(d Data) Flattened {
	b, err := FromData(d)
	Expect(err).NotTo(HaveOccurred())
	c, err := Compile(b)
	Expect(err).NotTo(HaveOccurred())
	flat, err := c.Flatten()
	Expect(err).NotTo(HaveOccurred())
	return flat
}

var _ = Describe("Data", func() {
	It("survives a YAML round trip", func() {
		d := predatorPrey().Data()
		out, err := yaml.Marshal(d)
		Expect(err).NotTo(HaveOccurred())

		var back Data
		Expect(decodeYAML(string(out), &back)).To(Succeed())
		Expect(back).To(Equal(d))

		rebuilt, err := FromData(back)
		Expect(err).NotTo(HaveOccurred())
		Expect(rebuilt.Data()).To(Equal(d))
	})

	It("survives a JSON round trip with the same equations", func() {
		d := predatorPrey().Data()
		out, err := json.Marshal(d)
		Expect(err).NotTo(HaveOccurred())

		var back Data
		Expect(json.Unmarshal(out, &back)).To(Succeed())

		want := flattenData(d)
		got := flattenData(back)
		Expect(equationsOf(got.Differentials)).To(Equal(equationsOf(want.Differentials)))
		Expect(equationsOf(got.Parameters)).To(Equal(equationsOf(want.Parameters)))
		Expect(got.Required).To(Equal(want.Required))
	})

	It("keeps a disabled input port creation", func() {
		f := NewFunctional("f", WithoutInputPortCreation())
		Expect(f.AddInputPorts(Port("x"))).To(Succeed())
		Expect(f.AddParameterAssignments(Assign("y", "x"))).To(Succeed())

		d := f.Data()
		Expect(d.ObjectData.CreateInputPorts).NotTo(BeNil())
		Expect(*d.ObjectData.CreateInputPorts).To(BeFalse())

		rebuilt, err := FromData(d)
		Expect(err).NotTo(HaveOccurred())
		g := rebuilt.(*FunctionalBlock)
		Expect(g.AddParameterAssignments(Assign("z", "w"))).To(MatchError(ErrDependency))
	})

	Describe("shorthand entries", func() {
		const doc = `
metadata: {name: eco, type: composite}
object_data:
  input_ports:
    - a
    - [b, "0.2", interaction]
    - {name: c, default_value: 1}
  variable_ports: [x]
  children:
    - metadata: {name: prey, type: variable}
      object_data:
        assignments:
          - [x, "c*x - a*x", growth]
    - metadata: {name: rates, type: functional}
      object_data:
        assignments:
          - {parameter: r, expression: "2*b"}
    - metadata: {name: sink, type: functional}
      object_data:
        assignments:
          - {symbol: s, expression: "q"}
  directed_wires:
    - [a, prey.a]
    - [c, [prey.c]]
    - [b, rates.b]
    - {source: rates.r, destinations: sink.q}
  variable_wires:
    - [[prey.x], x]
`

		It("decodes every form to its canonical entry", func() {
			var d Data
			Expect(decodeYAML(doc, &d)).To(Succeed())
			od := d.ObjectData
			Expect(od.InputPorts).To(Equal([]PortEntry{
				{Name: "a"},
				{Name: "b", Default: "0.2", Description: "interaction"},
				{Name: "c", Default: "1"},
			}))
			Expect(od.VariablePorts).To(Equal([]PortEntry{{Name: "x"}}))
			Expect(od.DirectedWires).To(Equal([]DirectedWire{
				Wire("a", "prey.a"),
				Wire("c", "prey.c"),
				Wire("b", "rates.b"),
				Wire("rates.r", "sink.q"),
			}))
			Expect(od.VariableWires).To(Equal([]VariableWire{Aggregate("x", "prey.x")}))
			Expect(od.Children[0].ObjectData.Assignments).To(Equal([]AssignmentEntry{
				{Symbol: "x", Expression: "c*x - a*x", Description: "growth"},
			}))
			Expect(od.Children[1].ObjectData.Assignments).To(Equal([]AssignmentEntry{Assign("r", "2*b")}))
		})

		It("decodes the JSON shorthand the same way", func() {
			const js = `{
				"input_ports": ["a", ["b", 0.2, "interaction"], {"name": "c", "default_value": 1}],
				"directed_wires": [["a", "prey.a"], ["c", ["prey.c"]]],
				"variable_wires": [[["prey.x"], "x"]]
			}`
			var od ObjectData
			Expect(json.Unmarshal([]byte(js), &od)).To(Succeed())
			Expect(od.InputPorts).To(Equal([]PortEntry{
				{Name: "a"},
				{Name: "b", Default: "0.2", Description: "interaction"},
				{Name: "c", Default: "1"},
			}))
			Expect(od.DirectedWires).To(Equal([]DirectedWire{Wire("a", "prey.a"), Wire("c", "prey.c")}))
			Expect(od.VariableWires).To(Equal([]VariableWire{Aggregate("x", "prey.x")}))
		})

		It("builds a model from the shorthand", func() {
			var d Data
			Expect(decodeYAML(doc, &d)).To(Succeed())
			flat := flattenData(d)
			Expect(flat.Differentials).To(HaveLen(1))
			Expect(flat.Differentials[0].Expr).To(sameExpr("c*x - a*x"))
			Expect(equationsOf(flat.Parameters)).To(Equal(map[string]string{
				"rates.r": "2*b",
				"sink.s":  "rates.r",
				"b":       "0.2",
				"c":       "1",
			}))
			Expect(flat.Required).To(Equal([]RequiredInput{{Name: "a"}}))
		})
	})

	DescribeTable("rejects malformed entries",
		func(doc string) {
			var d Data
			Expect(decodeYAML(doc, &d)).To(MatchError(ErrInvalidData))
		},
		Entry("unknown port key", `
metadata: {name: f, type: functional}
object_data:
  input_ports: [{name: x, unit: m}]`),
		Entry("assignment with two left-hand sides", `
metadata: {name: f, type: functional}
object_data:
  assignments: [{symbol: y, parameter: z, expression: "1"}]`),
		Entry("assignment without expression", `
metadata: {name: f, type: functional}
object_data:
  assignments: [[y]]`),
		Entry("wire without destination", `
metadata: {name: c, type: composite}
object_data:
  directed_wires: [[a]]`),
		Entry("duplicate mapping keys", `
metadata: {name: f, type: functional}
object_data:
  input_ports: [{name: x, name: y}]`),
	)

	DescribeTable("validates block types",
		func(d Data) {
			Expect(d.Validate()).To(MatchError(ErrInvalidData))
			_, err := FromData(d)
			Expect(err).To(MatchError(ErrInvalidData))
		},
		Entry("missing name", Data{Metadata: Metadata{Type: TypeFunctional}}),
		Entry("missing type", Data{Metadata: Metadata{Name: "f"}}),
		Entry("unknown type", Data{Metadata: Metadata{Name: "f", Type: "spline"}}),
		Entry("functional with children", Data{
			Metadata:   Metadata{Name: "f", Type: TypeFunctional},
			ObjectData: ObjectData{Children: []Data{{Metadata: Metadata{Name: "g", Type: TypeFunctional}}}},
		}),
		Entry("composite with assignments", Data{
			Metadata:   Metadata{Name: "c", Type: TypeComposite},
			ObjectData: ObjectData{Assignments: []AssignmentEntry{Assign("y", "1")}},
		}),
		Entry("invalid child", Data{
			Metadata:   Metadata{Name: "c", Type: TypeComposite},
			ObjectData: ObjectData{Children: []Data{{Metadata: Metadata{Name: "v", Type: TypeVariable}, ObjectData: ObjectData{OutputPorts: []PortEntry{Port("o")}}}}},
		}),
	)
})
