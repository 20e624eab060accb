package expr

import (
	"math/big"
	"strings"
)

func (n *num) String() string { return formatRat(n.r) }

func (s *sym) String() string { return string(s.name) }

// Printed as the form it parses back from.
func (*undefined) String() string { return "0/0" }

func (c *call) String() string {
	var b strings.Builder
	b.WriteString(c.name)
	b.WriteByte('(')
	for i, a := range c.args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (p *power) String() string {
	if e, ok := p.exp.(*num); ok && e.r.Sign() < 0 {
		return formatProduct(big.NewRat(1, 1), []Expr{p})
	}
	return "pow(" + p.base.String() + ", " + p.exp.String() + ")"
}

func (p *prod) String() string {
	coeff := big.NewRat(1, 1)
	factors := p.factors
	if n, ok := factors[0].(*num); ok {
		coeff = n.r
		factors = factors[1:]
	}
	return formatProduct(coeff, factors)
}

func (s *sum) String() string {
	var b strings.Builder
	for i, t := range s.terms {
		c, _ := splitCoeff(t)
		if n, ok := t.(*num); ok {
			c = n.r
		}
		switch {
		case i == 0:
			b.WriteString(t.String())
		case c.Sign() < 0:
			b.WriteString(" - ")
			b.WriteString(Neg(t).String())
		default:
			b.WriteString(" + ")
			b.WriteString(t.String())
		}
	}
	return b.String()
}

func formatProduct(coeff *big.Rat, factors []Expr) string {
	var numer, denom []string
	for _, f := range factors {
		if p, ok := f.(*power); ok {
			if e, ok := p.exp.(*num); ok && e.r.Sign() < 0 {
				inv := Pow(p.base, &num{r: new(big.Rat).Neg(e.r)})
				denom = append(denom, factorString(inv))
				continue
			}
		}
		numer = append(numer, factorString(f))
	}

	var b strings.Builder
	c := new(big.Rat).Set(coeff)
	if c.Sign() < 0 {
		b.WriteByte('-')
		c.Neg(c)
	}
	isOne := c.Cmp(big.NewRat(1, 1)) == 0
	switch {
	case len(numer) == 0:
		b.WriteString(formatRat(c))
	case isOne:
		b.WriteString(strings.Join(numer, "*"))
	default:
		b.WriteString(formatRat(c))
		b.WriteByte('*')
		b.WriteString(strings.Join(numer, "*"))
	}
	switch len(denom) {
	case 0:
	case 1:
		b.WriteByte('/')
		b.WriteString(denom[0])
	default:
		b.WriteString("/(")
		b.WriteString(strings.Join(denom, "*"))
		b.WriteByte(')')
	}
	return b.String()
}

func factorString(e Expr) string {
	switch e.(type) {
	case *sum, *prod:
		return "(" + e.String() + ")"
	case *num:
		if n := e.(*num); n.r.Sign() < 0 || !n.r.IsInt() {
			return "(" + e.String() + ")"
		}
	}
	return e.String()
}

// formatRat prints integers plainly, terminating fractions as decimals and
// everything else as p/q, all of which parse back to the same value.
func formatRat(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	d := new(big.Int).Set(r.Denom())
	two, five := big.NewInt(2), big.NewInt(5)
	zero := new(big.Int)
	mod := new(big.Int)
	twos, fives := 0, 0
	for mod.Mod(d, two).Cmp(zero) == 0 {
		d.Quo(d, two)
		twos++
	}
	for mod.Mod(d, five).Cmp(zero) == 0 {
		d.Quo(d, five)
		fives++
	}
	if d.Cmp(big.NewInt(1)) == 0 {
		return r.FloatString(max(twos, fives))
	}
	return r.Num().String() + "/" + r.Denom().String()
}
