package block

import (
	"github.com/san-kum/portsim/internal/expr"
	"github.com/san-kum/portsim/internal/omap"
)

// leafInputs tracks the input ports of a leaf block, remembering which were
// created automatically from free symbols.
type leafInputs struct {
	ports *omap.Map[string, InputPort]
	auto  map[string]bool
}

func newLeafInputs() leafInputs {
	return leafInputs{ports: omap.New[string, InputPort](), auto: make(map[string]bool)}
}

func (l *leafInputs) add(p InputPort, auto bool) {
	l.ports.Set(p.Name, p)
	if auto {
		l.auto[p.Name] = true
	}
}

func (l *leafInputs) remove(name string) {
	l.ports.Delete(name)
	delete(l.auto, name)
}

func (l *leafInputs) list() []InputPort {
	return l.ports.Values()
}

// explicit returns the ports declared by the modeler; auto-created ports are
// recreated from the formulas when a block is rebuilt from data.
func (l *leafInputs) explicit() []PortEntry {
	var out []PortEntry
	l.ports.Each(func(name string, p InputPort) bool {
		if !l.auto[name] {
			out = append(out, inputEntry(p))
		}
		return true
	})
	return out
}

// compiled returns the ports to expose, dropping auto-created ports whose
// symbol turned out to be global for this compilation.
func (l *leafInputs) compiled(cs *compileState) *omap.Map[string, CompiledInput] {
	out := omap.New[string, CompiledInput]()
	l.ports.Each(func(name string, p InputPort) bool {
		if l.auto[name] && cs.isGlobal(expr.Symbol(name)) {
			return true
		}
		out.Set(name, CompiledInput{Name: p.Name, Description: p.Description, Default: p.Default})
		return true
	})
	return out
}
