package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Lines renders one polyline per series over shared labels.
func Lines(labels []string, series []Series, opts Opts) (template.HTML, error) {
	f, err := newFrame(labels, series, opts)
	if err != nil {
		return "", err
	}
	xAt := func(i int) float64 {
		if len(labels) == 1 {
			return f.padding + f.plotW/2
		}
		return f.padding + float64(i)*f.plotW/float64(len(labels)-1)
	}

	var b strings.Builder
	f.open(&b, opts, "line")
	f.gridLines(&b)
	for i, s := range series {
		color := colorOf(s, i)
		var path strings.Builder
		for j, v := range s.Values {
			cmd := "L"
			if j == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, xAt(j), f.y(v))
		}
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"></path>`, strings.TrimSpace(path.String()), color)
		if opts.ShowDots {
			for j, v := range s.Values {
				fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"></circle>`, xAt(j), f.y(v), color)
			}
		}
	}
	for i, label := range labels {
		f.xLabel(&b, xAt(i), label)
	}
	f.legend(&b, series)
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
