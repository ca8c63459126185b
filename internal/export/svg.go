// Package export renders telemetry and drive view canvases as SVG.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/rigsim/internal/viz"
)

// CanvasToSVG converts a Braille canvas to SVG, one dot per set pixel.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	pw, ph := canvas.PixelSize()
	width := float64(pw) * scale
	height := float64(ph) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height)

	dotRadius := scale * 0.4
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
				float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius)
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Series is one telemetry column against time.
type Series struct {
	Name   string
	Times  []float64
	Values []float64
	Color  string
}

// SeriesToSVG plots series on shared axes with 10% padding. Series with
// fewer than two points are skipped.
func SeriesToSVG(series []Series, width, height int) string {
	minX, maxX, minY, maxY, ok := bounds(series)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
	if !ok {
		sb.WriteString("</svg>")
		return sb.String()
	}

	rangeX, rangeY := maxX-minX, maxY-minY
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	for i, s := range series {
		if len(s.Values) < 2 {
			continue
		}
		color := s.Color
		if color == "" {
			color = palette[i%len(palette)]
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" data-name="%s" d="M`, color, s.Name)
		for j, v := range s.Values {
			t := float64(j)
			if j < len(s.Times) {
				t = s.Times[j]
			}
			x := (t - minX) / rangeX * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if j == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}
	sb.WriteString("</svg>")
	return sb.String()
}

func WriteSeriesSVG(w io.Writer, series []Series, width, height int) error {
	_, err := io.WriteString(w, SeriesToSVG(series, width, height))
	return err
}

var palette = []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff8800", "#8888ff"}

func bounds(series []Series) (minX, maxX, minY, maxY float64, ok bool) {
	for _, s := range series {
		if len(s.Values) < 2 {
			continue
		}
		for j, v := range s.Values {
			t := float64(j)
			if j < len(s.Times) {
				t = s.Times[j]
			}
			if !ok {
				minX, maxX, minY, maxY, ok = t, t, v, v, true
				continue
			}
			minX, maxX = min(minX, t), max(maxX, t)
			minY, maxY = min(minY, v), max(maxY, v)
		}
	}
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}
	return
}
