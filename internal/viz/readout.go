package viz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/san-kum/portsim/internal/metrics"
	"github.com/san-kum/portsim/internal/sim"
	"github.com/san-kum/portsim/internal/system"
)

var classOrder = []system.Class{
	system.ClassSystem,
	system.ClassFunctional,
	system.ClassComposite,
	system.ClassDefaultOptional,
	system.ClassDefaultExposable,
}

// Readout renders a compiled System: its differential equations, then its
// parameters grouped by class, then the inputs still missing a value.
func Readout(st Styles, sys *system.System) string {
	var b strings.Builder
	b.WriteString(st.Header.Render("model"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", st.Label.Render("time:"), st.Value.Render(string(sys.TimeSymbol())))

	if vars := sys.Variables(); len(vars) > 0 {
		b.WriteString("\n" + st.Title.Render("variables") + "\n")
		for _, v := range vars {
			b.WriteString("  " + v.String() + "\n")
			if v.Description != "" {
				b.WriteString("    " + st.Muted.Render(v.Description) + "\n")
			}
		}
	}

	params := sys.Parameters()
	for _, c := range classOrder {
		var lines []string
		for _, p := range params {
			if p.Class == c {
				lines = append(lines, "  "+st.Class(c).Render(p.String()))
			}
		}
		if len(lines) > 0 {
			b.WriteString("\n" + st.Title.Render(c.String()+" parameters") + "\n")
			b.WriteString(strings.Join(lines, "\n") + "\n")
		}
	}

	if req := sys.RequiredInputs(); len(req) > 0 {
		b.WriteString("\n" + st.Warning.Render("required inputs: "+strings.Join(req, ", ")) + "\n")
	}
	return b.String()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// ResultTable renders one row per variable with its metrics and a
// sparkline of its series. Columns follow names, which default to
// metrics.DefaultNames.
func ResultTable(st Styles, r *sim.Result, summaries []metrics.Summary, names []string) string {
	if len(names) == 0 {
		names = metrics.DefaultNames
	}
	byVar := make(map[string]metrics.Summary, len(summaries))
	for _, s := range summaries {
		byVar[s.Variable] = s
	}

	headers := append([]string{"variable"}, names...)
	headers = append(headers, "trend")
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.Label).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return st.Title.Padding(0, 1)
			case col == 0:
				return st.Value.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, series := range r.Series {
		row := []string{series.Name}
		sum, ok := byVar[series.Name]
		for _, n := range names {
			v, have := sum.Values[n]
			if !ok || !have {
				row = append(row, "-")
				continue
			}
			row = append(row, formatValue(v))
		}
		row = append(row, st.Sparkline(series.Values, 20))
		t.Row(row...)
	}
	return t.String()
}

// RunHeader is the one-line description printed above a run's results.
func RunHeader(st Styles, model, integrator string, r *sim.Result) string {
	span := "-"
	if n := len(r.Time); n > 0 {
		span = fmt.Sprintf("%s=%s..%s", r.TimeSymbol, formatValue(r.Time[0]), formatValue(r.Time[n-1]))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		st.Label.Render("model ")+st.Value.Render(model),
		st.Label.Render("  integrator ")+st.Value.Render(integrator),
		st.Label.Render("  span ")+st.Value.Render(span),
		st.Label.Render(fmt.Sprintf("  samples %d", len(r.Time))),
	)
}
