package block

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/portsim/internal/equation"
	"github.com/san-kum/portsim/internal/expr"
)

func inputNames(ports []InputPort) []string {
	out := make([]string, len(ports))
	for i, p := range ports {
		out[i] = p.Name
	}
	return out
}

func variableNames(ports []VariablePort) []string {
	out := make([]string, len(ports))
	for i, p := range ports {
		out[i] = p.Name
	}
	return out
}

var _ = Describe("VariableBlock", func() {
	It("exposes every variable and turns free symbols into input ports", func() {
		b := NewVariable("prey")
		Expect(b.AddDifferentialAssignments(Assign("x", "r*x - a*x*y"))).To(Succeed())

		Expect(variableNames(b.VariablePorts())).To(Equal([]string{"x"}))
		Expect(inputNames(b.InputPorts())).To(Equal([]string{"a", "r", "y"}))
	})

	It("does not create a port for the time symbol", func() {
		b := NewVariable("v")
		Expect(b.AddDifferentialAssignments(Assign("x", "sin(T)*x"))).To(Succeed())
		Expect(b.InputPorts()).To(BeEmpty())
	})

	It("turns a pending input into a variable when the variable is added later", func() {
		b := NewVariable("v")
		Expect(b.AddDifferentialAssignments(Assign("x", "-y"))).To(Succeed())
		Expect(inputNames(b.InputPorts())).To(Equal([]string{"y"}))

		Expect(b.AddDifferentialAssignments(Assign("y", "x"))).To(Succeed())
		Expect(b.InputPorts()).To(BeEmpty())
		Expect(variableNames(b.VariablePorts())).To(Equal([]string{"x", "y"}))
	})

	It("rejects two assignments for one variable", func() {
		b := NewVariable("v")
		Expect(b.AddDifferentialAssignments(Assign("x", "1"))).To(Succeed())
		Expect(b.AddDifferentialAssignments(Assign("x", "2"))).To(MatchError(ErrDuplicate))
		Expect(b.AddDifferentialAssignments(Assign("z", "1"), Assign("z", "2"))).To(MatchError(ErrDuplicate))
	})

	It("rejects two ports with the same name", func() {
		b := NewVariable("v")
		Expect(b.AddInputPorts(Port("r"))).To(Succeed())
		Expect(b.AddInputPorts(Port("r"))).To(MatchError(ErrDuplicate))
		Expect(b.AddVariablePorts(Port("r"))).To(MatchError(ErrDuplicate))
	})

	It("rejects hierarchical port names", func() {
		b := NewVariable("v")
		Expect(b.AddInputPorts(Port("a.b"))).To(MatchError(ErrInvalidName))
	})

	It("keeps variables without an explicit port internal", func() {
		b := NewVariable("v")
		Expect(b.AddVariablePorts(Port("x"))).To(Succeed())
		Expect(b.AddDifferentialAssignments(Assign("x", "-x"), Assign("z", "x - z"))).To(Succeed())

		c, err := Compile(b)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Variables()).To(HaveLen(1))
		Expect(c.Variables()[0].Name).To(Equal("x"))
		Expect(c.InternalVariables()).To(HaveLen(1))
		Expect(c.InternalVariables()[0].Symbol).To(Equal(expr.Symbol("z")))
	})

	It("fails to compile when formulas reference undefined symbols", func() {
		b := NewVariable("v", WithoutInputPortCreation())
		Expect(b.AddDifferentialAssignments(Assign("x", "m + k*x"))).To(Succeed())

		_, err := Compile(b)
		Expect(err).To(MatchError(ErrDependency))
		Expect(err).To(MatchError(ContainSubstring("k, m")))
	})

	It("fails to compile an explicit variable port without equation", func() {
		b := NewVariable("v")
		Expect(b.AddVariablePorts(Port("x"), Port("w"))).To(Succeed())
		Expect(b.AddDifferentialAssignments(Assign("x", "1"))).To(Succeed())

		_, err := Compile(b)
		Expect(err).To(MatchError(ErrWiring))
		Expect(err).To(MatchError(ContainSubstring("w")))
	})
})

var _ = Describe("FunctionalBlock", func() {
	It("exposes each parameter at an output port", func() {
		b := NewFunctional("f")
		Expect(b.AddParameterAssignments(Assign("y", "2*x"), Assign("z", "x + w"))).To(Succeed())

		Expect(b.OutputPorts()).To(Equal([]OutputPort{{Name: "y"}, {Name: "z"}}))
		Expect(inputNames(b.InputPorts())).To(Equal([]string{"x", "w"}))
	})

	It("rejects duplicate parameters", func() {
		b := NewFunctional("f")
		Expect(b.AddParameterAssignments(Assign("y", "1"))).To(Succeed())
		Expect(b.AddParameterAssignments(Assign("y", "2"))).To(MatchError(ErrDuplicate))
	})

	It("rejects self-referencing parameters", func() {
		b := NewFunctional("f")
		Expect(b.AddParameterAssignments(Assign("y", "y + 1"))).To(MatchError(equation.ErrSelfReference))
	})

	It("names every missing input port when creation is disabled", func() {
		b := NewFunctional("f", WithoutInputPortCreation())
		Expect(b.AddInputPorts(Port("a"))).To(Succeed())

		err := b.AddParameterAssignments(Assign("y", "a*x"), Assign("z", "q"))
		Expect(err).To(MatchError(ErrDependency))
		Expect(err).To(MatchError(ContainSubstring("q, x")))
		Expect(b.OutputPorts()).To(BeEmpty())
	})

	It("leaves global symbols alone", func() {
		b := NewFunctional("f", WithGlobals("temp"))
		Expect(b.AddParameterAssignments(Assign("y", "2*temp + T"))).To(Succeed())
		Expect(b.InputPorts()).To(BeEmpty())
	})
})
