package svg

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

var (
	// ErrNoSeries is returned when nothing can be plotted.
	ErrNoSeries = errors.New("svg: at least one series required")
	// ErrLabelMismatch is returned when a series length differs from the labels.
	ErrLabelMismatch = errors.New("svg: series length must match labels")
	// ErrViewport is returned when padding leaves no drawing area.
	ErrViewport = errors.New("svg: viewport too small")
)

// frame holds the geometry shared by every chart kind.
type frame struct {
	width, height int
	padding       float64
	plotW, plotH  float64
	min, max      float64
	ticks         int
	axis, grid    string
}

func newFrame(labels []string, series []Series, opts Opts) (frame, error) {
	if len(series) == 0 || len(labels) == 0 {
		return frame{}, ErrNoSeries
	}
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return frame{}, fmt.Errorf("%w: %q has %d values for %d labels", ErrLabelMismatch, s.Name, len(s.Values), len(labels))
		}
	}
	f := frame{
		width:   orInt(opts.Width, DefaultWidth),
		height:  orInt(opts.Height, DefaultHeight),
		padding: opts.Padding,
		ticks:   orInt(opts.Ticks, DefaultTicks),
		axis:    fallback(opts.AxisColor, "#475569"),
		grid:    fallback(opts.GridColor, "#cbd5e1"),
	}
	if f.padding <= 0 {
		f.padding = DefaultPadding
	}
	f.plotW = float64(f.width) - 2*f.padding
	f.plotH = float64(f.height) - 2*f.padding
	if f.plotW <= 0 || f.plotH <= 0 {
		return frame{}, ErrViewport
	}

	// The value axis always includes zero.
	for _, s := range series {
		for _, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			f.min = math.Min(f.min, v)
			f.max = math.Max(f.max, v)
		}
	}
	if almostEqual(f.max, f.min) {
		f.max = f.min + 1
	}
	return f, nil
}

// y maps a value onto the vertical pixel axis.
func (f frame) y(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return f.padding + f.plotH - (v-f.min)*f.plotH/(f.max-f.min)
}

func (f frame) zeroY() float64 { return f.y(0) }

func (f frame) bottom() float64 { return f.padding + f.plotH }

func (f frame) open(b *strings.Builder, opts Opts, kind string) {
	titleID := makeID(opts.Title, kind+"-title")
	descID := makeID(opts.Title, kind+"-desc")
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, f.width, f.height, titleID, descID)
	fmt.Fprintf(b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(opts.Title, "Gráfico")))
	fmt.Fprintf(b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(opts.Description))
}

func (f frame) gridLines(b *strings.Builder) {
	for i := 0; i <= f.ticks; i++ {
		value := f.min + (f.max-f.min)*float64(i)/float64(f.ticks)
		y := f.y(value)
		fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`, f.padding, y, f.padding+f.plotW, y, f.grid)
		fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, f.padding-6, y+4, f.axis, FormatTick(value))
	}
	fmt.Fprintf(b, `<g stroke="%s" stroke-width="1">`, f.axis)
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"></line>`, f.padding, f.padding, f.padding, f.bottom())
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"></line>`, f.padding, f.zeroY(), f.padding+f.plotW, f.zeroY())
	b.WriteString("</g>")
}

func (f frame) xLabel(b *strings.Builder, x float64, label string) {
	fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, x, f.bottom()+14, f.axis, template.HTMLEscapeString(label))
}

func (f frame) legend(b *strings.Builder, series []Series) {
	if len(series) < 2 {
		return
	}
	x := f.padding
	y := math.Max(f.padding-14, 12)
	for i, s := range series {
		fmt.Fprintf(b, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"></rect>`, x, y-8, colorOf(s, i))
		fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10">%s</text>`, x+14, y, f.axis, template.HTMLEscapeString(s.Name))
		x += 24 + 6*float64(len([]rune(s.Name)))
	}
}

func colorOf(s Series, i int) string {
	return fallback(s.Color, palette[i%len(palette)])
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

// FormatTick abbreviates axis values the pt-BR way: 1,5 mi, 12 mil.
func FormatTick(v float64) string {
	abs := math.Abs(v)
	var s string
	switch {
	case abs >= 1_000_000_000:
		s = fmt.Sprintf("%.1f bi", v/1_000_000_000)
	case abs >= 1_000_000:
		s = fmt.Sprintf("%.1f mi", v/1_000_000)
	case abs >= 1_000:
		s = fmt.Sprintf("%.0f mil", v/1_000)
	case almostEqual(v, math.Round(v)):
		s = fmt.Sprintf("%.0f", v)
	default:
		s = fmt.Sprintf("%.2f", v)
	}
	return strings.Replace(s, ".", ",", 1)
}
