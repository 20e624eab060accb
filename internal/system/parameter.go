package system

import (
	"strings"

	"github.com/san-kum/portsim/internal/equation"
	"github.com/san-kum/portsim/internal/expr"
)

// Class tells where a parameter's value comes from and whether a simulation
// may replace it.
type Class int

const (
	// ClassFunctional is the output of a functional block.
	ClassFunctional Class = iota
	// ClassDefaultExposable is a default value of a nested input port.
	ClassDefaultExposable
	// ClassDefaultOptional is a default value of a top-level input port.
	ClassDefaultOptional
	// ClassRequired is a top-level input port without value.
	ClassRequired
	// ClassComposite is any other parameter assignment.
	ClassComposite
	// ClassSystem is a system parameter.
	ClassSystem
)

var classNames = [...]string{
	ClassFunctional:       "functional",
	ClassDefaultExposable: "default_exposable",
	ClassDefaultOptional:  "default_optional",
	ClassRequired:         "required",
	ClassComposite:        "composite",
	ClassSystem:           "system",
}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return "unknown"
	}
	return classNames[c]
}

// Settable reports whether a simulation may assign a new value.
func (c Class) Settable() bool {
	return c == ClassDefaultExposable || c == ClassDefaultOptional || c == ClassRequired
}

func classify(a equation.Assignment) Class {
	switch a.Kind {
	case equation.Functional:
		return ClassFunctional
	case equation.DefaultParameter:
		if strings.Contains(string(a.Symbol), expr.Sep) {
			return ClassDefaultExposable
		}
		return ClassDefaultOptional
	}
	return ClassComposite
}

// Parameter is an algebraic quantity of a compiled System. Expr is nil for
// a required input.
type Parameter struct {
	Symbol      expr.Symbol
	Expr        expr.Expr
	Class       Class
	Description string
}

func (p Parameter) String() string {
	if p.Expr == nil {
		return string(p.Symbol) + " = ?"
	}
	return string(p.Symbol) + " = " + p.Expr.String()
}

// Variable is a state variable with its governing equation d(Symbol)/dt = Expr.
type Variable struct {
	Symbol      expr.Symbol
	Expr        expr.Expr
	Description string
}

func (v Variable) String() string {
	return "d(" + string(v.Symbol) + ")/dt = " + v.Expr.String()
}
