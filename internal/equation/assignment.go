// Package equation holds assignments: bindings of a symbol to an expression,
// either as a differential equation or as an algebraic parameter.
package equation

import (
	"errors"
	"fmt"

	"github.com/san-kum/portsim/internal/expr"
)

// ErrSelfReference is returned when a parameter appears in its own
// right-hand side.
var ErrSelfReference = errors.New("equation: parameter references itself")

// Kind distinguishes how an assignment's symbol is governed.
type Kind int

const (
	// Differential means d(symbol)/dt = expression.
	Differential Kind = iota
	// Parameter means symbol = expression.
	Parameter
	// Functional is a parameter produced by a functional block output.
	Functional
	// DefaultParameter is a parameter filled from an unconnected input's default.
	DefaultParameter
)

func (k Kind) String() string {
	switch k {
	case Differential:
		return "differential"
	case Parameter:
		return "parameter"
	case Functional:
		return "functional"
	case DefaultParameter:
		return "default"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Assignment binds Symbol to Expr. Values are immutable; every transform
// returns a new Assignment.
type Assignment struct {
	Symbol      expr.Symbol
	Expr        expr.Expr
	Kind        Kind
	Description string
}

// SelfReferenceError names the offending parameter.
type SelfReferenceError struct {
	Symbol expr.Symbol
	Expr   expr.Expr
}

func (e *SelfReferenceError) Error() string {
	return fmt.Sprintf("%v: %s = %s", ErrSelfReference, e.Symbol, e.Expr)
}

func (e *SelfReferenceError) Unwrap() error { return ErrSelfReference }

func NewDifferential(s expr.Symbol, e expr.Expr) Assignment {
	return Assignment{Symbol: s, Expr: e, Kind: Differential}
}

func NewParameter(s expr.Symbol, e expr.Expr) (Assignment, error) {
	return newParameter(s, e, Parameter)
}

func NewFunctional(s expr.Symbol, e expr.Expr) (Assignment, error) {
	return newParameter(s, e, Functional)
}

func NewDefault(s expr.Symbol, e expr.Expr) (Assignment, error) {
	return newParameter(s, e, DefaultParameter)
}

func newParameter(s expr.Symbol, e expr.Expr, k Kind) (Assignment, error) {
	if expr.HasSymbol(e, s) {
		return Assignment{}, &SelfReferenceError{Symbol: s, Expr: e}
	}
	return Assignment{Symbol: s, Expr: e, Kind: k}, nil
}

// IsParameter reports whether a is any of the algebraic kinds.
func (a Assignment) IsParameter() bool {
	return a.Kind != Differential
}

// Combine superposes two differential equations by adding right-hand sides.
func (a Assignment) Combine(other Assignment) (Assignment, error) {
	if a.Kind != Differential || other.Kind != Differential {
		return Assignment{}, fmt.Errorf("equation: combine needs two differential assignments, got %s and %s", a.Kind, other.Kind)
	}
	out := a
	out.Expr = expr.Add(a.Expr, other.Expr)
	return out, nil
}

// Substitute applies m to the right-hand side. When the left-hand symbol is a
// key of m whose image is a bare symbol, the assignment is renamed too.
func (a Assignment) Substitute(m map[expr.Symbol]expr.Expr) Assignment {
	out := a
	out.Expr = expr.Subs(a.Expr, m)
	if r, ok := m[a.Symbol]; ok {
		if s, ok := expr.AsSymbol(r); ok {
			out.Symbol = s
		}
	}
	return out
}

// Rename applies a symbol-to-symbol mapping to both sides.
func (a Assignment) Rename(m map[expr.Symbol]expr.Symbol) Assignment {
	out := a
	out.Expr = expr.Rename(a.Expr, m)
	if s, ok := m[a.Symbol]; ok {
		out.Symbol = s
	}
	return out
}

// FreeSymbols returns the symbols of the right-hand side.
func (a Assignment) FreeSymbols() []expr.Symbol {
	return expr.FreeSymbols(a.Expr)
}

func (a Assignment) String() string {
	if a.Kind == Differential {
		return fmt.Sprintf("d(%s)/dt = %s", a.Symbol, a.Expr)
	}
	return fmt.Sprintf("%s = %s", a.Symbol, a.Expr)
}
