package viz

import (
	"strings"
	"testing"

	"github.com/san-kum/portsim/internal/metrics"
	"github.com/san-kum/portsim/internal/models"
	"github.com/san-kum/portsim/internal/sim"
	"github.com/san-kum/portsim/internal/system"
)

func compiled(t *testing.T, name string) *system.System {
	t.Helper()
	m, err := models.Get(name)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Build()
	if err != nil {
		t.Fatal(err)
	}
	sys := system.New()
	if err := sys.Compile(b); err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return sys
}

func circle() *sim.Result {
	r := &sim.Result{TimeSymbol: "T", Series: []sim.Series{{Name: "x"}, {Name: "y"}}}
	for i := 0; i <= 8; i++ {
		r.Time = append(r.Time, float64(i))
	}
	r.Series[0].Values = []float64{1, 0.7, 0, -0.7, -1, -0.7, 0, 0.7, 1}
	r.Series[1].Values = []float64{0, 0.7, 1, 0.7, 0, -0.7, -1, -0.7, 0}
	return r
}

func TestReadout(t *testing.T) {
	st := NewStyles(GetTheme("minimal"))

	out := Readout(st, compiled(t, "malthusian"))
	for _, want := range []string{"time:", "d(x)/dt = r*x", "default_optional parameters", "r = 0.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected readout to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "required inputs") {
		t.Errorf("malthusian has no required inputs, got:\n%s", out)
	}

	out = Readout(st, compiled(t, "mixing_tank"))
	if !strings.Contains(out, "required inputs: ") || !strings.Contains(out, "r_0") {
		t.Errorf("expected the tank's required inputs, got:\n%s", out)
	}
}

func TestResultTable(t *testing.T) {
	r := circle()
	sums, err := metrics.Summarize(r, "final", "peak")
	if err != nil {
		t.Fatal(err)
	}
	out := ResultTable(NewStyles(DefaultTheme), r, sums, []string{"final", "peak"})
	for _, want := range []string{"variable", "final", "peak", "trend", "x", "y"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected table to contain %q, got:\n%s", want, out)
		}
	}

	out = ResultTable(NewStyles(DefaultTheme), r, nil, nil)
	if !strings.Contains(out, "mean") || !strings.Contains(out, "-") {
		t.Errorf("expected default columns with missing values, got:\n%s", out)
	}
}

func TestSparkline(t *testing.T) {
	st := NewStyles(DefaultTheme)
	if got := st.Sparkline(nil, 4); got != "────" {
		t.Errorf("expected empty line, got %q", got)
	}
	got := st.Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8)
	for _, c := range "▁█" {
		if !strings.ContainsRune(got, c) {
			t.Errorf("expected %q in %q", c, got)
		}
	}
}

func TestPlot(t *testing.T) {
	r := circle()
	out, err := Plot(r, []string{"x"}, PlotOptions{Width: 20, Height: 5})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "x, T from 0 to 8") {
		t.Errorf("expected caption, got:\n%s", out)
	}

	out, err = Plot(r, nil, PlotOptions{Overlay: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "x") || !strings.Contains(out, "y") {
		t.Errorf("expected legends, got:\n%s", out)
	}

	if _, err := Plot(r, []string{"z"}, PlotOptions{}); err == nil {
		t.Error("expected error for unknown series")
	}
}

func TestPhasePortrait(t *testing.T) {
	out, err := PhasePortrait(circle(), "x", "y", 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) < 6 {
		t.Fatalf("expected 5 canvas rows and a legend, got:\n%s", out)
	}
	if !strings.Contains(lines[5], "x: -1..1") {
		t.Errorf("expected bounds legend, got %q", lines[5])
	}
	if _, err := PhasePortrait(circle(), "x", "q", 10, 5); err == nil {
		t.Error("expected error for unknown series")
	}
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(2, 1)
	c.DrawLine(0, 0, 3, 3)
	for i := 0; i < 4; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("expected dot (%d,%d) set", i, i)
		}
	}
	if c.IsSet(3, 0) {
		t.Error("expected dot (3,0) clear")
	}
	c.Set(10, 10)
	if got := c.String(); got != "⠑⢄\n" {
		t.Errorf("unexpected canvas %q", got)
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("retro").Name != "retro" {
		t.Error("expected retro theme")
	}
	if GetTheme("nope").Name != DefaultTheme.Name {
		t.Error("expected fallback to the default theme")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("expected one name per theme")
	}
}

func TestPhaseSVG(t *testing.T) {
	out, err := PhaseSVG(circle(), "x", "y", 200, 100, "#00ffff")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "<?xml") || !strings.Contains(out, `stroke="#00ffff"`) {
		t.Errorf("unexpected svg header:\n%s", out)
	}
	if got := strings.Count(out, " L"); got != 8 {
		t.Errorf("expected 8 line segments, got %d", got)
	}
	// x=1 maps to 2.2/2.4 of the width, y=0 to mid-height.
	if !strings.Contains(out, "M183.3,50.0") {
		t.Errorf("expected path to start at (183.3,50.0):\n%s", out)
	}
}
