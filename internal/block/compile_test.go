package block

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/portsim/internal/equation"
	"github.com/san-kum/portsim/internal/expr"
)

func mustFunctional(name string, inputs []PortEntry, assigns ...AssignmentEntry) *FunctionalBlock {
	b := NewFunctional(name)
	Expect(b.AddInputPorts(inputs...)).To(Succeed())
	Expect(b.AddParameterAssignments(assigns...)).To(Succeed())
	return b
}

func mustVariable(name string, assigns ...AssignmentEntry) *VariableBlock {
	b := NewVariable(name)
	Expect(b.AddDifferentialAssignments(assigns...)).To(Succeed())
	return b
}

// equationsOf renders assignments as "symbol: rhs" strings.
func equationsOf(as []equation.Assignment) map[string]string {
	out := make(map[string]string, len(as))
	for _, a := range as {
		out[string(a.Symbol)] = a.Expr.String()
	}
	return out
}

func sameExpr(formula string) OmegaMatcher {
	return WithTransform(func(e expr.Expr) bool {
		return expr.Equal(e, expr.MustParse(formula))
	}, BeTrue())
}

// predatorPrey builds a two-species model with shared interaction terms.
func predatorPrey() *CompositeBlock {
	prey := mustVariable("prey", Assign("x", "r*x"))
	pred := mustVariable("pred", Assign("y", "-d*y"))
	inter := mustVariable("inter", Assign("x", "-a*x*y"), Assign("y", "b*x*y"))
	rates := mustFunctional("rates", []PortEntry{PortWithDefault("base", "0.5")},
		Assign("r", "base*2"), Assign("d", "base/2"))

	eco := NewComposite("eco")
	Expect(eco.AddChildren(prey, pred, inter, rates)).To(Succeed())
	Expect(eco.AddInputPorts(PortWithDefault("a", "0.1"), Port("b"))).To(Succeed())
	Expect(eco.AddVariablePorts(Port("x"), Port("y"))).To(Succeed())
	Expect(eco.AddDirectedWire("rates.r", "prey.r")).To(Succeed())
	Expect(eco.AddDirectedWire("rates.d", "pred.d")).To(Succeed())
	Expect(eco.AddDirectedWire("a", "inter.a")).To(Succeed())
	Expect(eco.AddDirectedWire("b", "inter.b")).To(Succeed())
	Expect(eco.AddVariableWire([]string{"prey.x", "inter.x"}, "x", "")).To(Succeed())
	Expect(eco.AddVariableWire([]string{"pred.y", "inter.y"}, "y", "")).To(Succeed())
	return eco
}

var _ = Describe("Compile", func() {
	Describe("variable aggregation", func() {
		It("adds the right-hand sides of aggregated equations", func() {
			c1 := mustVariable("c1", Assign("x", "0.1*x"))
			c2 := mustVariable("c2", Assign("x", "-0.05*x"))
			root := NewComposite("root")
			Expect(root.AddChildren(c1, c2)).To(Succeed())
			Expect(root.AddVariablePorts(Port("x"))).To(Succeed())
			Expect(root.AddVariableWire([]string{"c1.x", "c2.x"}, "x", "")).To(Succeed())

			c, err := Compile(root)
			Expect(err).NotTo(HaveOccurred())
			flat, err := c.Flatten()
			Expect(err).NotTo(HaveOccurred())
			Expect(flat.Differentials).To(HaveLen(1))
			Expect(flat.Differentials[0].Symbol).To(Equal(expr.Symbol("x")))
			Expect(flat.Differentials[0].Expr).To(sameExpr("0.05*x"))
		})

		It("stores an aggregation without parent port as an internal variable", func() {
			c1 := mustVariable("c1", Assign("n", "1"))
			c2 := mustVariable("c2", Assign("n", "n"))
			root := NewComposite("root")
			Expect(root.AddChildren(c1, c2)).To(Succeed())
			Expect(root.AddVariableWire([]string{"c1.n", "c2.n"}, "", "n")).To(Succeed())

			c, err := Compile(root)
			Expect(err).NotTo(HaveOccurred())
			a, ok := c.InternalVariable("n")
			Expect(ok).To(BeTrue())
			Expect(a.Expr).To(sameExpr("1 + n"))
		})

		It("keeps unclaimed child variables as internal variables", func() {
			root := NewComposite("root")
			Expect(root.AddChildren(mustVariable("c1", Assign("x", "-x")))).To(Succeed())

			c, err := Compile(root)
			Expect(err).NotTo(HaveOccurred())
			Expect(equationsOf(c.InternalVariables())).To(Equal(map[string]string{"c1.x": "-c1.x"}))
		})

		It("rejects claiming one child port twice", func() {
			root := NewComposite("root")
			Expect(root.AddChildren(mustVariable("c1", Assign("x", "-x")))).To(Succeed())
			Expect(root.AddVariablePorts(Port("x"), Port("z"))).To(Succeed())
			Expect(root.AddVariableWire([]string{"c1.x"}, "x", "")).To(Succeed())
			Expect(root.AddVariableWire([]string{"c1.x"}, "z", "")).To(Succeed())

			_, err := Compile(root)
			Expect(err).To(MatchError(ErrWiring))
			Expect(err).To(MatchError(ContainSubstring("c1.x")))
		})
	})

	Describe("input resolution", func() {
		It("names every unconnected input without default", func() {
			f := mustFunctional("f", nil, Assign("y", "2*x"))
			g := mustFunctional("g", nil, Assign("z", "w"))
			root := NewComposite("root")
			Expect(root.AddChildren(f, g)).To(Succeed())

			_, err := Compile(root)
			Expect(err).To(MatchError(ErrWiring))
			var we *WiringError
			Expect(errors.As(err, &we)).To(BeTrue())
			Expect(we.Names).To(Equal([]string{"f.x", "g.w"}))
		})

		It("fills unconnected inputs from their default value", func() {
			f := mustFunctional("f", []PortEntry{PortWithDefault("x", "5")}, Assign("y", "2*x"))
			root := NewComposite("root")
			Expect(root.AddChildren(f)).To(Succeed())

			c, err := Compile(root)
			Expect(err).NotTo(HaveOccurred())

			def, ok := c.InternalParameter("f.x")
			Expect(ok).To(BeTrue())
			Expect(def.Kind).To(Equal(equation.DefaultParameter))
			Expect(def.Expr.String()).To(Equal("5"))

			y, ok := c.InternalParameter("f.y")
			Expect(ok).To(BeTrue())
			Expect(y.Kind).To(Equal(equation.Functional))
			Expect(y.Expr.String()).To(Equal("2*f.x"))
		})

		It("turns root inputs into defaults or required inputs", func() {
			f0 := mustFunctional("f0", nil, Assign("r", "a"))
			f1 := mustFunctional("f1", nil, Assign("r", "2*a"))
			root := NewComposite("root")
			Expect(root.AddChildren(f0, f1)).To(Succeed())
			Expect(root.AddInputPorts(Port("a"), PortWithDefault("unused", "3"))).To(Succeed())
			Expect(root.AddDirectedWire("a", "f0.a", "f1.a")).To(Succeed())

			c, err := Compile(root)
			Expect(err).NotTo(HaveOccurred())
			flat, err := c.Flatten()
			Expect(err).NotTo(HaveOccurred())

			Expect(equationsOf(flat.Parameters)).To(Equal(map[string]string{
				"f0.r":   "a",
				"f1.r":   "2*a",
				"unused": "3",
			}))
			Expect(flat.Required).To(Equal([]RequiredInput{{Name: "a"}}))
		})
	})

	Describe("directed wires", func() {
		It("routes a child output through an own output port", func() {
			f := mustFunctional("f", []PortEntry{PortWithDefault("x", "3")}, Assign("y", "2*x"))
			inner := NewComposite("inner")
			Expect(inner.AddChildren(f)).To(Succeed())
			Expect(inner.AddOutputPorts(Port("out"))).To(Succeed())
			Expect(inner.AddDirectedWire("f.y", "out")).To(Succeed())

			g := mustFunctional("g", nil, Assign("z", "w + 1"))
			outer := NewComposite("outer")
			Expect(outer.AddChildren(inner, g)).To(Succeed())
			Expect(outer.AddDirectedWire("inner.out", "g.w")).To(Succeed())

			c, err := Compile(outer)
			Expect(err).NotTo(HaveOccurred())
			params := equationsOf(c.InternalParameters())
			Expect(params).To(HaveKeyWithValue("inner.out", "2*inner.f.x"))
			Expect(params).To(HaveKeyWithValue("inner.f.x", "3"))
			z, ok := c.InternalParameter("g.z")
			Expect(ok).To(BeTrue())
			Expect(z.Expr).To(sameExpr("inner.out + 1"))
		})

		It("resolves a child output wired to an output port and to a sibling", func() {
			f := mustFunctional("f", []PortEntry{PortWithDefault("x", "3")}, Assign("y", "2*x"))
			g := mustFunctional("g", nil, Assign("z", "w*w"))
			root := NewComposite("root")
			Expect(root.AddChildren(f, g)).To(Succeed())
			Expect(root.AddOutputPorts(Port("out"))).To(Succeed())
			Expect(root.AddDirectedWire("f.y", "g.w", "out")).To(Succeed())

			c, err := Compile(root)
			Expect(err).NotTo(HaveOccurred())
			out, ok := c.Output("out")
			Expect(ok).To(BeTrue())
			Expect(out.Assignment.Symbol).To(Equal(expr.Symbol("out")))
			Expect(out.Assignment.Expr.String()).To(Equal("2*f.x"))
			z, _ := c.InternalParameter("g.z")
			Expect(z.Expr.String()).To(Equal("pow(out, 2)"))
		})

		It("rejects a wire to an output port from an own input", func() {
			root := NewComposite("root")
			Expect(root.AddInputPorts(Port("a"))).To(Succeed())
			Expect(root.AddOutputPorts(Port("o"))).To(Succeed())
			Expect(root.AddDirectedWire("a", "o")).To(MatchError(ContainSubstring("must originate from a child output")))
		})

		It("rejects several output destinations on one wire", func() {
			root := NewComposite("root")
			Expect(root.AddChildren(mustFunctional("f", nil, Assign("y", "1")))).To(Succeed())
			Expect(root.AddOutputPorts(Port("o1"), Port("o2"))).To(Succeed())
			err := root.AddDirectedWire("f.y", "o1", "o2")
			Expect(err).To(MatchError(ErrWiring))
			Expect(err).To(MatchError(ContainSubstring("o1, o2")))
		})

		It("rejects invalid sources and destinations", func() {
			root := NewComposite("root")
			Expect(root.AddChildren(mustFunctional("f", nil, Assign("y", "x")))).To(Succeed())
			Expect(root.AddInputPorts(Port("a"))).To(Succeed())
			Expect(root.AddDirectedWire("f.x", "f.x")).To(MatchError(ErrWiring))
			Expect(root.AddDirectedWire("a", "a")).To(MatchError(ErrWiring))
			Expect(root.AddDirectedWire("a", "nope.x")).To(MatchError(ErrWiring))
		})

		It("rejects a child input connected twice", func() {
			root := NewComposite("root")
			Expect(root.AddChildren(mustFunctional("f", nil, Assign("y", "x")))).To(Succeed())
			Expect(root.AddInputPorts(Port("a"), Port("b"))).To(Succeed())
			Expect(root.AddDirectedWire("a", "f.x")).To(Succeed())
			Expect(root.AddDirectedWire("b", "f.x")).To(Succeed())

			_, err := Compile(root)
			Expect(err).To(MatchError(ErrWiring))
			Expect(err).To(MatchError(ContainSubstring("already connected: f.x")))
		})

		It("rejects an output port no wire feeds", func() {
			root := NewComposite("root")
			Expect(root.AddChildren(mustFunctional("f", []PortEntry{PortWithDefault("x", "1")}, Assign("y", "x")))).To(Succeed())
			Expect(root.AddOutputPorts(Port("o"))).To(Succeed())

			_, err := Compile(root)
			Expect(err).To(MatchError(ErrWiring))
			Expect(err).To(MatchError(ContainSubstring("o")))
		})
	})

	Describe("a composed model", func() {
		It("lowers the whole tree into flat equations", func() {
			c, err := Compile(predatorPrey())
			Expect(err).NotTo(HaveOccurred())
			flat, err := c.Flatten()
			Expect(err).NotTo(HaveOccurred())

			Expect(flat.Differentials).To(HaveLen(2))
			Expect(flat.Differentials[0].Symbol).To(Equal(expr.Symbol("x")))
			Expect(flat.Differentials[0].Expr).To(sameExpr("rates.r*x - a*x*y"))
			Expect(flat.Differentials[1].Symbol).To(Equal(expr.Symbol("y")))
			Expect(flat.Differentials[1].Expr).To(sameExpr("b*x*y - rates.d*y"))

			Expect(equationsOf(flat.Parameters)).To(Equal(map[string]string{
				"rates.r":    "2*rates.base",
				"rates.d":    "0.5*rates.base",
				"rates.base": "0.5",
				"a":          "0.1",
			}))
			Expect(flat.Required).To(Equal([]RequiredInput{{Name: "b"}}))
		})

		It("prefixes everything but global symbols when nested", func() {
			f := NewFunctional("f")
			Expect(f.AddParameterAssignments(Assign("y", "2*temp + k"))).To(Succeed())
			inner := NewComposite("inner")
			Expect(inner.AddChildren(f)).To(Succeed())
			Expect(inner.AddInputPorts(PortWithDefault("k", "1"))).To(Succeed())
			Expect(inner.AddDirectedWire("k", "f.k")).To(Succeed())
			outer := NewComposite("outer")
			Expect(outer.AddChildren(inner)).To(Succeed())

			c, err := Compile(outer, WithGlobalSymbols("T", "temp"))
			Expect(err).NotTo(HaveOccurred())
			y, ok := c.InternalParameter("inner.f.y")
			Expect(ok).To(BeTrue())
			Expect(y.Expr).To(sameExpr("2*temp + inner.k"))
			k, ok := c.InternalParameter("inner.k")
			Expect(ok).To(BeTrue())
			Expect(k.Kind).To(Equal(equation.DefaultParameter))
		})

		It("does not modify the source tree", func() {
			eco := predatorPrey()
			before := eco.Data()

			first, err := Compile(eco)
			Expect(err).NotTo(HaveOccurred())
			second, err := Compile(eco)
			Expect(err).NotTo(HaveOccurred())

			Expect(eco.Data()).To(Equal(before))
			a, _ := first.Flatten()
			b, _ := second.Flatten()
			Expect(equationsOf(a.Differentials)).To(Equal(equationsOf(b.Differentials)))
			Expect(equationsOf(a.Parameters)).To(Equal(equationsOf(b.Parameters)))
		})
	})

	Describe("identifications", func() {
		It("follows chains to the final symbol", func() {
			var ids identifications
			ids.add("a", "b")
			ids.add("b", "c")
			ids.add("c", "c")

			m, err := ids.resolve("blk")
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(Equal(map[expr.Symbol]expr.Symbol{"a": "c", "b": "c"}))
		})

		It("rejects cycles", func() {
			var ids identifications
			ids.add("b", "a")
			ids.add("a", "b")

			_, err := ids.resolve("blk")
			Expect(err).To(MatchError(ErrWiring))
			Expect(err).To(MatchError(ContainSubstring("a -> b -> a")))
		})

		It("rejects a symbol identified with two others", func() {
			var ids identifications
			ids.add("a", "b")
			ids.add("a", "c")

			_, err := ids.resolve("blk")
			Expect(err).To(MatchError(ErrWiring))
		})
	})
})
