package expr

import "math/big"

// maxFoldExponent bounds exact folding of integer powers of constants.
const maxFoldExponent = 64

// Add returns the canonical sum of terms.
func Add(terms ...Expr) Expr {
	constant := new(big.Rat)
	type group struct {
		rest  Expr
		coeff *big.Rat
	}
	var groups []*group
	undef := false

	var collect func(e Expr)
	collect = func(e Expr) {
		switch t := e.(type) {
		case *undefined:
			undef = true
		case *num:
			constant.Add(constant, t.r)
		case *sum:
			for _, x := range t.terms {
				collect(x)
			}
		default:
			c, rest := splitCoeff(t)
			for _, g := range groups {
				if Equal(g.rest, rest) {
					g.coeff.Add(g.coeff, c)
					return
				}
			}
			groups = append(groups, &group{rest: rest, coeff: c})
		}
	}
	for _, t := range terms {
		collect(t)
	}
	if undef {
		return Undefined
	}

	out := make([]Expr, 0, len(groups)+1)
	for _, g := range groups {
		if g.coeff.Sign() == 0 {
			continue
		}
		out = append(out, scale(g.coeff, g.rest))
	}
	if constant.Sign() != 0 {
		out = append(out, &num{r: constant})
	}
	switch len(out) {
	case 0:
		return Zero
	case 1:
		return out[0]
	}
	sortExprs(out)
	return &sum{terms: out}
}

// Mul returns the canonical product of factors.
func Mul(factors ...Expr) Expr {
	coeff := big.NewRat(1, 1)
	type group struct {
		base Expr
		exp  []Expr
	}
	var groups []*group
	undef := false

	var collect func(e Expr)
	collect = func(e Expr) {
		switch f := e.(type) {
		case *undefined:
			undef = true
		case *num:
			coeff.Mul(coeff, f.r)
		case *prod:
			for _, x := range f.factors {
				collect(x)
			}
		default:
			base, exp := splitPow(f)
			for _, g := range groups {
				if Equal(g.base, base) {
					g.exp = append(g.exp, exp)
					return
				}
			}
			groups = append(groups, &group{base: base, exp: []Expr{exp}})
		}
	}
	for _, f := range factors {
		collect(f)
	}
	// 0*x folds to 0 only while nothing is indeterminate.
	if undef {
		return Undefined
	}
	if coeff.Sign() == 0 {
		return Zero
	}

	out := make([]Expr, 0, len(groups))
	for _, g := range groups {
		exp := g.exp[0]
		if len(g.exp) > 1 {
			exp = Add(g.exp...)
		}
		switch p := Pow(g.base, exp).(type) {
		case *undefined:
			return Undefined
		case *num:
			coeff.Mul(coeff, p.r)
		case *prod:
			for _, f := range p.factors {
				if n, ok := f.(*num); ok {
					coeff.Mul(coeff, n.r)
					continue
				}
				out = append(out, f)
			}
		default:
			out = append(out, p)
		}
	}
	if coeff.Sign() == 0 {
		return Zero
	}

	isOne := coeff.Cmp(big.NewRat(1, 1)) == 0
	switch {
	case len(out) == 0:
		return &num{r: coeff}
	case len(out) == 1 && isOne:
		return out[0]
	case len(out) == 1:
		if s, ok := out[0].(*sum); ok {
			terms := make([]Expr, len(s.terms))
			for i, t := range s.terms {
				terms[i] = Mul(&num{r: coeff}, t)
			}
			return Add(terms...)
		}
	}
	sortExprs(out)
	if !isOne {
		out = append([]Expr{&num{r: coeff}}, out...)
	}
	return &prod{factors: out}
}

// Pow returns base raised to exp.
func Pow(base, exp Expr) Expr {
	if IsUndefined(base) || IsUndefined(exp) {
		return Undefined
	}
	if b, ok := base.(*num); ok && b.r.Cmp(big.NewRat(1, 1)) == 0 {
		return One
	}
	e, ok := exp.(*num)
	if !ok {
		return &power{base: base, exp: exp}
	}
	if e.r.Sign() == 0 {
		return One
	}
	if e.r.Cmp(big.NewRat(1, 1)) == 0 {
		return base
	}
	if b, ok := base.(*num); ok && b.r.Sign() == 0 && e.r.Sign() < 0 {
		return Undefined
	}
	if !e.r.IsInt() || !e.r.Num().IsInt64() {
		return &power{base: base, exp: exp}
	}
	n := e.r.Num().Int64()
	switch b := base.(type) {
	case *num:
		if r, ok := ratPow(b.r, n); ok {
			return &num{r: r}
		}
	case *power:
		return Pow(b.base, Mul(b.exp, exp))
	case *prod:
		fs := make([]Expr, len(b.factors))
		for i, f := range b.factors {
			fs[i] = Pow(f, exp)
		}
		return Mul(fs...)
	}
	return &power{base: base, exp: exp}
}

// Call returns the application of the named function to args. Constant
// arguments to functions with exact rational results are folded.
func Call(name string, args ...Expr) Expr {
	if name == "pow" && len(args) == 2 {
		return Pow(args[0], args[1])
	}
	for _, a := range args {
		if IsUndefined(a) {
			return Undefined
		}
	}
	rats := make([]*big.Rat, 0, len(args))
	for _, a := range args {
		n, ok := a.(*num)
		if !ok {
			break
		}
		rats = append(rats, n.r)
	}
	if len(rats) == len(args) {
		if r, ok := foldExact(name, rats); ok {
			return &num{r: r}
		}
	}
	cp := make([]Expr, len(args))
	copy(cp, args)
	return &call{name: name, args: cp}
}

func Neg(e Expr) Expr { return Mul(MinusOne, e) }

func Sub(a, b Expr) Expr { return Add(a, Neg(b)) }

func Div(a, b Expr) Expr { return Mul(a, Pow(b, MinusOne)) }

func splitCoeff(e Expr) (*big.Rat, Expr) {
	p, ok := e.(*prod)
	if !ok {
		return big.NewRat(1, 1), e
	}
	c, ok := p.factors[0].(*num)
	if !ok {
		return big.NewRat(1, 1), e
	}
	rest := p.factors[1:]
	if len(rest) == 1 {
		return new(big.Rat).Set(c.r), rest[0]
	}
	return new(big.Rat).Set(c.r), &prod{factors: rest}
}

func splitPow(e Expr) (Expr, Expr) {
	if p, ok := e.(*power); ok {
		return p.base, p.exp
	}
	return e, One
}

func scale(c *big.Rat, e Expr) Expr {
	if c.Cmp(big.NewRat(1, 1)) == 0 {
		return e
	}
	return Mul(&num{r: c}, e)
}

func ratPow(r *big.Rat, n int64) (*big.Rat, bool) {
	if n > maxFoldExponent || n < -maxFoldExponent {
		return nil, false
	}
	if r.Sign() == 0 {
		if n < 0 {
			return nil, false
		}
		return new(big.Rat), true
	}
	k := n
	if k < 0 {
		k = -k
	}
	e := big.NewInt(k)
	numer := new(big.Int).Exp(r.Num(), e, nil)
	denom := new(big.Int).Exp(r.Denom(), e, nil)
	if n < 0 {
		numer, denom = denom, numer
	}
	return new(big.Rat).SetFrac(numer, denom), true
}

func foldExact(name string, args []*big.Rat) (*big.Rat, bool) {
	switch name {
	case "abs":
		if len(args) == 1 {
			return new(big.Rat).Abs(args[0]), true
		}
	case "min", "max":
		if len(args) == 0 {
			return nil, false
		}
		best := args[0]
		for _, a := range args[1:] {
			c := a.Cmp(best)
			if (name == "min" && c < 0) || (name == "max" && c > 0) {
				best = a
			}
		}
		return new(big.Rat).Set(best), true
	case "floor":
		if len(args) == 1 {
			return ratFloor(args[0]), true
		}
	case "ceil":
		if len(args) == 1 {
			f := ratFloor(new(big.Rat).Neg(args[0]))
			return f.Neg(f), true
		}
	case "step":
		if len(args) == 1 {
			if args[0].Sign() >= 0 {
				return big.NewRat(1, 1), true
			}
			return new(big.Rat), true
		}
	}
	return nil, false
}

// ratFloor relies on big.Int.Div being Euclidean, which is floor division
// for a positive divisor.
func ratFloor(r *big.Rat) *big.Rat {
	q := new(big.Int).Div(r.Num(), r.Denom())
	return new(big.Rat).SetInt(q)
}
