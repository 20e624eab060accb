package system

import (
	"fmt"
	"strings"
)

// Describe renders the compiled model: its differential equations, then its
// parameters grouped by class, then the required inputs.
func (s *System) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "time: %s\n", s.timeSymbol)

	if vars := s.Variables(); len(vars) > 0 {
		b.WriteString("variables:\n")
		for _, v := range vars {
			fmt.Fprintf(&b, "  %s\n", v)
		}
	}

	params := s.Parameters()
	for _, c := range []Class{ClassSystem, ClassFunctional, ClassComposite, ClassDefaultOptional, ClassDefaultExposable} {
		first := true
		for _, p := range params {
			if p.Class != c {
				continue
			}
			if first {
				fmt.Fprintf(&b, "%s parameters:\n", c)
				first = false
			}
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}

	if req := s.RequiredInputs(); len(req) > 0 {
		fmt.Fprintf(&b, "required inputs: %s\n", strings.Join(req, ", "))
	}
	return b.String()
}
