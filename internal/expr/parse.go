package expr

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math/big"
	"strings"
)

// ErrParse is returned for formulas that cannot be read.
var ErrParse = errors.New("expr: invalid formula")

// Parse reads an infix formula.
func Parse(src string) (Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("%w: empty formula", ErrParse)
	}
	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrParse, src, err)
	}
	e, err := convert(node)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrParse, src, err)
	}
	return e, nil
}

// MustParse is Parse for formulas known to be valid.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func convert(node ast.Expr) (Expr, error) {
	switch n := node.(type) {
	case *ast.ParenExpr:
		return convert(n.X)

	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return nil, fmt.Errorf("unsupported literal %s", n.Value)
		}
		r, ok := new(big.Rat).SetString(strings.ReplaceAll(n.Value, "_", ""))
		if !ok {
			return nil, fmt.Errorf("bad number %s", n.Value)
		}
		return &num{r: r}, nil

	case *ast.Ident:
		return Sym(Symbol(n.Name)), nil

	case *ast.SelectorExpr:
		name, err := dottedName(n)
		if err != nil {
			return nil, err
		}
		return Sym(Symbol(name)), nil

	case *ast.UnaryExpr:
		x, err := convert(n.X)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.SUB:
			return Neg(x), nil
		case token.ADD:
			return x, nil
		}
		return nil, fmt.Errorf("unsupported operator %s", n.Op)

	case *ast.BinaryExpr:
		x, err := convert(n.X)
		if err != nil {
			return nil, err
		}
		y, err := convert(n.Y)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.ADD:
			return Add(x, y), nil
		case token.SUB:
			return Sub(x, y), nil
		case token.MUL:
			return Mul(x, y), nil
		case token.QUO:
			return Div(x, y), nil
		case token.XOR:
			return nil, fmt.Errorf("use pow(base, exponent) for powers")
		}
		return nil, fmt.Errorf("unsupported operator %s", n.Op)

	case *ast.CallExpr:
		fn, ok := n.Fun.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("function name must be a plain identifier")
		}
		if n.Ellipsis.IsValid() {
			return nil, fmt.Errorf("variadic call to %s", fn.Name)
		}
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			e, err := convert(a)
			if err != nil {
				return nil, err
			}
			args[i] = e
		}
		if fn.Name == "pow" && len(args) != 2 {
			return nil, fmt.Errorf("pow takes 2 arguments, got %d", len(args))
		}
		return Call(fn.Name, args...), nil
	}
	return nil, fmt.Errorf("unsupported syntax %T", node)
}

func dottedName(n ast.Expr) (string, error) {
	switch x := n.(type) {
	case *ast.Ident:
		return x.Name, nil
	case *ast.SelectorExpr:
		head, err := dottedName(x.X)
		if err != nil {
			return "", err
		}
		return head + Sep + x.Sel.Name, nil
	}
	return "", fmt.Errorf("unsupported name syntax %T", n)
}
