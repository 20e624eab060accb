package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/portsim/internal/sim"
)

// PlotOptions sizes the charts. Zero values take the defaults.
type PlotOptions struct {
	Width  int
	Height int
	// Overlay draws every series into one chart instead of one each.
	Overlay bool
}

const (
	defaultPlotWidth  = 80
	defaultPlotHeight = 10
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Yellow,
	asciigraph.Green,
	asciigraph.Red,
	asciigraph.Blue,
	asciigraph.Magenta,
}

func (o PlotOptions) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = defaultPlotWidth
	}
	if h <= 0 {
		h = defaultPlotHeight
	}
	return w, h
}

// pick returns the named series of r, or all of them when names is empty.
func pick(r *sim.Result, names []string) ([]sim.Series, error) {
	if len(names) == 0 {
		return r.Series, nil
	}
	out := make([]sim.Series, 0, len(names))
	for _, n := range names {
		s, ok := r.Get(n)
		if !ok {
			return nil, fmt.Errorf("no series %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// Plot charts the named series of r against sample index.
func Plot(r *sim.Result, names []string, opts PlotOptions) (string, error) {
	series, err := pick(r, names)
	if err != nil {
		return "", err
	}
	if len(series) == 0 || len(r.Time) == 0 {
		return "", fmt.Errorf("no data to plot")
	}
	w, h := opts.size()
	span := fmt.Sprintf("%s from %g to %g", r.TimeSymbol, r.Time[0], r.Time[len(r.Time)-1])

	if opts.Overlay {
		data := make([][]float64, len(series))
		legends := make([]string, len(series))
		colors := make([]asciigraph.AnsiColor, len(series))
		for i, s := range series {
			data[i] = s.Values
			legends[i] = s.Name
			colors[i] = seriesColors[i%len(seriesColors)]
		}
		return asciigraph.PlotMany(data,
			asciigraph.Width(w),
			asciigraph.Height(h),
			asciigraph.SeriesColors(colors...),
			asciigraph.SeriesLegends(legends...),
			asciigraph.Caption(span),
		), nil
	}

	var out string
	for i, s := range series {
		if i > 0 {
			out += "\n\n"
		}
		out += asciigraph.Plot(s.Values,
			asciigraph.Width(w),
			asciigraph.Height(h),
			asciigraph.Caption(fmt.Sprintf("%s, %s", s.Name, span)),
		)
	}
	return out, nil
}

// PhasePortrait draws the trajectory of y against x on a Braille canvas of
// width by height cells.
func PhasePortrait(r *sim.Result, x, y string, width, height int) (string, error) {
	sx, ok := r.Get(x)
	if !ok {
		return "", fmt.Errorf("no series %q", x)
	}
	sy, ok := r.Get(y)
	if !ok {
		return "", fmt.Errorf("no series %q", y)
	}
	n := min(len(sx.Values), len(sy.Values))
	if n == 0 {
		return "", fmt.Errorf("no data to plot")
	}

	c := NewCanvas(width, height)
	xmin, xmax := bounds(sx.Values[:n])
	ymin, ymax := bounds(sy.Values[:n])
	px := func(v float64) int { return scale(v, xmin, xmax, c.Width*2-1) }
	py := func(v float64) int { return c.Height*4 - 1 - scale(v, ymin, ymax, c.Height*4-1) }

	prevX, prevY := px(sx.Values[0]), py(sy.Values[0])
	c.Set(prevX, prevY)
	for i := 1; i < n; i++ {
		cx, cy := px(sx.Values[i]), py(sy.Values[i])
		c.DrawLine(prevX, prevY, cx, cy)
		prevX, prevY = cx, cy
	}

	return fmt.Sprintf("%s%s: %g..%g  %s: %g..%g\n", c, x, xmin, xmax, y, ymin, ymax), nil
}

func bounds(vs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func scale(v, lo, hi float64, size int) int {
	if hi == lo {
		return size / 2
	}
	return int(math.Round((v - lo) / (hi - lo) * float64(size)))
}
