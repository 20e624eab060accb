package expr

import (
	"math/big"
	"sort"
	"strings"
)

// Symbol names one quantity. Two symbols are equal iff their names are equal.
type Symbol string

// Sep separates the levels of a hierarchical symbol name.
const Sep = "."

// Join builds a hierarchical name from its parts.
func Join(parts ...string) string {
	return strings.Join(parts, Sep)
}

// Expr is an immutable symbolic expression.
type Expr interface {
	String() string
	rank() int
}

const (
	rankNum = iota
	rankSym
	rankCall
	rankPow
	rankMul
	rankAdd
	rankUndefined
)

type num struct{ r *big.Rat }

type sym struct{ name Symbol }

type call struct {
	name string
	args []Expr
}

type power struct {
	base Expr
	exp  Expr
}

type prod struct{ factors []Expr }

type sum struct{ terms []Expr }

// undefined is the value of an indeterminate form such as 0/0. It absorbs
// every operation it takes part in and evaluates to NaN.
type undefined struct{}

func (*num) rank() int   { return rankNum }
func (*sym) rank() int   { return rankSym }
func (*call) rank() int  { return rankCall }
func (*power) rank() int { return rankPow }
func (*prod) rank() int  { return rankMul }
func (*sum) rank() int   { return rankAdd }

func (*undefined) rank() int { return rankUndefined }

var (
	Zero     Expr = &num{r: new(big.Rat)}
	One      Expr = &num{r: big.NewRat(1, 1)}
	MinusOne Expr = &num{r: big.NewRat(-1, 1)}

	// Undefined is the result of raising zero to a negative power.
	Undefined Expr = &undefined{}
)

// Rat returns the exact constant r.
func Rat(r *big.Rat) Expr {
	return &num{r: new(big.Rat).Set(r)}
}

// Int returns the integer constant i.
func Int(i int64) Expr {
	return &num{r: big.NewRat(i, 1)}
}

// Float returns the constant f, represented exactly.
func Float(f float64) Expr {
	r := new(big.Rat)
	if r.SetFloat64(f) == nil {
		return &num{r: new(big.Rat)}
	}
	return &num{r: r}
}

// Sym returns the symbol expression for name.
func Sym(name Symbol) Expr {
	return &sym{name: name}
}

// Number reports the exact value of e when e is a constant.
func Number(e Expr) (*big.Rat, bool) {
	n, ok := e.(*num)
	if !ok {
		return nil, false
	}
	return new(big.Rat).Set(n.r), true
}

// IsUndefined reports whether e is the indeterminate constant.
func IsUndefined(e Expr) bool {
	_, ok := e.(*undefined)
	return ok
}

// IsNumber reports whether e is a constant.
func IsNumber(e Expr) bool {
	_, ok := e.(*num)
	return ok
}

// Value returns the float value of a constant expression.
func Value(e Expr) (float64, bool) {
	n, ok := e.(*num)
	if !ok {
		return 0, false
	}
	f, _ := n.r.Float64()
	return f, true
}

// AsSymbol reports the symbol when e is a bare symbol.
func AsSymbol(e Expr) (Symbol, bool) {
	s, ok := e.(*sym)
	if !ok {
		return "", false
	}
	return s.name, true
}

// Equal reports structural equality of two canonical expressions.
func Equal(a, b Expr) bool {
	return compare(a, b) == 0
}

// FreeSymbols returns the sorted distinct symbols occurring in e.
func FreeSymbols(e Expr) []Symbol {
	seen := make(map[Symbol]struct{})
	walk(e, func(n Expr) {
		if s, ok := n.(*sym); ok {
			seen[s.name] = struct{}{}
		}
	})
	out := make([]Symbol, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasSymbol reports whether s occurs free in e.
func HasSymbol(e Expr, s Symbol) bool {
	found := false
	walk(e, func(n Expr) {
		if v, ok := n.(*sym); ok && v.name == s {
			found = true
		}
	})
	return found
}

// Calls returns the sorted distinct function names called in e.
func Calls(e Expr) []string {
	seen := make(map[string]struct{})
	walk(e, func(n Expr) {
		if c, ok := n.(*call); ok {
			seen[c.name] = struct{}{}
		}
	})
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func walk(e Expr, fn func(Expr)) {
	fn(e)
	switch n := e.(type) {
	case *call:
		for _, a := range n.args {
			walk(a, fn)
		}
	case *power:
		walk(n.base, fn)
		walk(n.exp, fn)
	case *prod:
		for _, f := range n.factors {
			walk(f, fn)
		}
	case *sum:
		for _, t := range n.terms {
			walk(t, fn)
		}
	}
}

// Subs replaces symbols simultaneously and returns the simplified result.
func Subs(e Expr, m map[Symbol]Expr) Expr {
	if len(m) == 0 {
		return e
	}
	switch n := e.(type) {
	case *num:
		return n
	case *sym:
		if r, ok := m[n.name]; ok {
			return r
		}
		return n
	case *call:
		args := make([]Expr, len(n.args))
		for i, a := range n.args {
			args[i] = Subs(a, m)
		}
		return Call(n.name, args...)
	case *power:
		return Pow(Subs(n.base, m), Subs(n.exp, m))
	case *prod:
		fs := make([]Expr, len(n.factors))
		for i, f := range n.factors {
			fs[i] = Subs(f, m)
		}
		return Mul(fs...)
	case *sum:
		ts := make([]Expr, len(n.terms))
		for i, t := range n.terms {
			ts[i] = Subs(t, m)
		}
		return Add(ts...)
	}
	return e
}

// Rename substitutes symbols for symbols.
func Rename(e Expr, m map[Symbol]Symbol) Expr {
	if len(m) == 0 {
		return e
	}
	sm := make(map[Symbol]Expr, len(m))
	for k, v := range m {
		sm[k] = Sym(v)
	}
	return Subs(e, sm)
}

func compare(a, b Expr) int {
	ra, rb := a.rank(), b.rank()
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case *num:
		return x.r.Cmp(b.(*num).r)
	case *sym:
		return strings.Compare(string(x.name), string(b.(*sym).name))
	case *call:
		y := b.(*call)
		if c := strings.Compare(x.name, y.name); c != 0 {
			return c
		}
		return compareList(x.args, y.args)
	case *power:
		y := b.(*power)
		if c := compare(x.base, y.base); c != 0 {
			return c
		}
		return compare(x.exp, y.exp)
	case *prod:
		return compareList(x.factors, b.(*prod).factors)
	case *sum:
		return compareList(x.terms, b.(*sum).terms)
	}
	return 0
}

func compareList(a, b []Expr) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func sortExprs(es []Expr) {
	sort.SliceStable(es, func(i, j int) bool { return compare(es[i], es[j]) < 0 })
}
