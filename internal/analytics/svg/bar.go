package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bars renders a grouped bar chart with one bar per series in each group.
func Bars(labels []string, series []Series, opts Opts) (template.HTML, error) {
	f, err := newFrame(labels, series, opts)
	if err != nil {
		return "", err
	}
	group := f.plotW / float64(len(labels))
	bar := group * 0.8 / float64(len(series))

	var b strings.Builder
	f.open(&b, opts, "bar")
	f.gridLines(&b)
	for i, label := range labels {
		left := f.padding + float64(i)*group + group*0.1
		for j, s := range series {
			y, h := f.barSpan(s.Values[i])
			fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" aria-label="%s %s"></rect>`,
				left+float64(j)*bar, y, bar, h, colorOf(s, j), template.HTMLEscapeString(s.Name), template.HTMLEscapeString(label))
		}
		f.xLabel(&b, left+group*0.4, label)
	}
	f.legend(&b, series)
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// barSpan returns the top and height of a bar clamped to the plot area.
func (f frame) barSpan(v float64) (float64, float64) {
	zero := f.zeroY()
	top := math.Max(math.Min(f.y(v), zero), f.padding)
	end := math.Min(math.Max(f.y(v), zero), f.bottom())
	return top, math.Max(end-top, 0)
}
