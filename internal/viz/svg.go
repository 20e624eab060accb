package viz

import (
	"fmt"
	"strings"

	"github.com/san-kum/portsim/internal/sim"
)

// PhaseSVG renders the trajectory of y against x as an SVG path, with a
// tenth of each range as padding.
func PhaseSVG(r *sim.Result, x, y string, width, height int, stroke string) (string, error) {
	sx, ok := r.Get(x)
	if !ok {
		return "", fmt.Errorf("no series %q", x)
	}
	sy, ok := r.Get(y)
	if !ok {
		return "", fmt.Errorf("no series %q", y)
	}
	n := min(len(sx.Values), len(sy.Values))
	if n < 2 {
		return "", fmt.Errorf("phase portrait needs two samples, have %d", n)
	}

	minX, maxX := bounds(sx.Values[:n])
	minY, maxY := bounds(sy.Values[:n])
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, stroke)

	for i := 0; i < n; i++ {
		px := (sx.Values[i] - minX) / rangeX * float64(width)
		py := float64(height) - (sy.Values[i]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", px, py)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", px, py)
		}
	}

	fmt.Fprintf(&sb, `"/>
<text x="4" y="%d" fill="#888888" font-size="10">%s / %s</text>
</svg>
`, height-4, x, y)
	return sb.String(), nil
}
