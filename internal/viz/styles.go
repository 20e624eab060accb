package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/portsim/internal/system"
)

// Styles are the lipgloss styles of one theme.
type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Panel    lipgloss.Style
	classes  map[system.Class]lipgloss.Style
	sparkLow lipgloss.Style
	sparkMid lipgloss.Style
	sparkHi  lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Secondary),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Text).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Muted),
		Label: lipgloss.NewStyle().Foreground(t.Muted),
		Value: lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		Muted: lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Warning),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Error),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		classes: map[system.Class]lipgloss.Style{
			system.ClassSystem:           lipgloss.NewStyle().Foreground(t.Accent),
			system.ClassFunctional:       lipgloss.NewStyle().Foreground(t.Primary),
			system.ClassComposite:        lipgloss.NewStyle().Foreground(t.Primary),
			system.ClassDefaultOptional:  lipgloss.NewStyle().Foreground(t.Text),
			system.ClassDefaultExposable: lipgloss.NewStyle().Foreground(t.Text).Underline(true),
			system.ClassRequired:         lipgloss.NewStyle().Foreground(t.Warning),
		},
		sparkLow: lipgloss.NewStyle().Foreground(t.Error),
		sparkMid: lipgloss.NewStyle().Foreground(t.Warning),
		sparkHi:  lipgloss.NewStyle().Foreground(t.Secondary),
	}
}

// Class returns the style parameters of class c are printed with.
func (s Styles) Class(c system.Class) lipgloss.Style {
	if st, ok := s.classes[c]; ok {
		return st
	}
	return s.Label
}

// Sparkline renders values as a one-line bar chart, sampled down to width.
func (s Styles) Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))

		c := string(chars[idx])
		switch {
		case norm > 0.7:
			b.WriteString(s.sparkHi.Render(c))
		case norm > 0.3:
			b.WriteString(s.sparkMid.Render(c))
		default:
			b.WriteString(s.sparkLow.Render(c))
		}
	}
	return b.String()
}

// Separator is a muted rule of the given width.
func (s Styles) Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return s.Label.Render(left + " ◆ " + right)
}
