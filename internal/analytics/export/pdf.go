package export

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/simplesdash/simplesdash/internal/analytics"
	"github.com/simplesdash/simplesdash/internal/analytics/svg"
	"github.com/simplesdash/simplesdash/internal/series"
)

// Renderer converts HTML to PDF; report.Client satisfies it.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// PDFExporter renders the report as HTML and hands it to Gotenberg.
type PDFExporter struct {
	Renderer Renderer
}

// NewPDFExporter wires a renderer.
func NewPDFExporter(r Renderer) *PDFExporter {
	return &PDFExporter{Renderer: r}
}

// Render returns the PDF bytes for rep.
func (p *PDFExporter) Render(ctx context.Context, rep analytics.Report) ([]byte, error) {
	if p == nil || p.Renderer == nil {
		return nil, errors.New("export: pdf renderer not configured")
	}
	data, err := p.Renderer.RenderHTML(ctx, BuildHTML(rep))
	if err != nil {
		return nil, fmt.Errorf("export: render pdf: %w", err)
	}
	return data, nil
}

// BuildHTML lays the report out as a printable page.
func BuildHTML(rep analytics.Report) string {
	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{text-align:left;background:#f5f5f5;}section{margin-bottom:24px;} .metric-label{text-align:left;} .highlight{background:#fff8e1;} .charts svg{width:100%;height:auto;margin-bottom:12px;}")
	b.WriteString("</style></head><body>")
	b.WriteString(fmt.Sprintf("<h1>Simples Nacional %s (%s a %s)</h1>", templateEscape(rep.LegalName), templateEscape(rep.From), templateEscape(rep.To)))

	b.WriteString("<section><h2>Resumo</h2><table><tbody>")
	writeMetricRow(&b, "CNPJ", rep.CNPJ)
	writeMetricRow(&b, "Receita total", formatFloat(rep.Totals.Revenue))
	writeMetricRow(&b, "Tributos", formatFloat(rep.Totals.Tax))
	writeMetricRow(&b, "Alíquota efetiva média %", formatRate(rep.Totals.AverageEffectiveRate))
	writeMetricRow(&b, "Faixa atual", bracketLabel(rep.Latest.Bracket, rep.Latest.OverLimit))
	writeMetricRow(&b, "Distância para a próxima faixa", formatFloat(rep.Latest.DistanceToNextBracket))
	writeMetricRow(&b, "Tendência", string(rep.Signal.Direction))
	b.WriteString("</tbody></table></section>")

	writeCharts(&b, rep)

	if len(rep.Months) > 0 {
		b.WriteString("<section><h2>Meses</h2><table><thead><tr><th>Período</th><th>CNPJ</th><th>Receita</th><th>Tributos</th><th>Alíquota %</th><th>Faixa</th></tr></thead><tbody>")
		for _, m := range rep.Months {
			if m.Highlighted {
				b.WriteString("<tr class=\"highlight\"><td class=\"metric-label\">")
			} else {
				b.WriteString("<tr><td class=\"metric-label\">")
			}
			b.WriteString(templateEscape(m.Key.Label()))
			b.WriteString("</td><td class=\"metric-label\">")
			b.WriteString(templateEscape(m.Identification.CNPJ))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(m.TotalRevenue))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(m.TotalTax))
			b.WriteString("</td><td>")
			b.WriteString(formatRate(m.Analysis.EffectiveRate))
			b.WriteString("</td><td>")
			b.WriteString(bracketLabel(m.Analysis.Bracket, m.Analysis.OverLimit))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table></section>")
	}

	if rows := rep.Comparisons[series.GranularityQuarterly]; len(rows) > 0 {
		b.WriteString("<section><h2>Comparativo trimestral</h2><table><thead><tr><th>Trimestre</th><th>Atual</th><th>Anterior</th><th>Variação</th><th>Variação %</th></tr></thead><tbody>")
		for _, c := range rows {
			b.WriteString("<tr><td class=\"metric-label\">")
			b.WriteString(templateEscape(fmt.Sprintf("%s/%d", c.Label, c.Year)))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(c.CurrentValue))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(c.PriorValue))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(c.AbsoluteDelta))
			b.WriteString("</td><td>")
			b.WriteString(formatRate(c.PercentDelta))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table></section>")
	}

	if len(rep.TaxComposition) > 0 {
		b.WriteString("<section><h2>Composição tributária</h2><table><tbody>")
		for _, s := range rep.TaxComposition {
			writeMetricRow(&b, s.Label, formatRate(s.Percent)+"%")
		}
		b.WriteString("</tbody></table></section>")
	}

	b.WriteString("</body></html>")
	return b.String()
}

// writeCharts embeds the monthly charts. A chart that cannot be drawn is
// left out of the page.
func writeCharts(b *strings.Builder, rep analytics.Report) {
	if len(rep.Months) == 0 {
		return
	}
	labels := make([]string, len(rep.Months))
	revenue := make([]float64, len(rep.Months))
	tax := make([]float64, len(rep.Months))
	rate := make([]float64, len(rep.Months))
	for i, m := range rep.Months {
		labels[i] = m.Key.Label()
		revenue[i] = m.TotalRevenue
		tax[i] = m.TotalTax
		rate[i] = m.Analysis.EffectiveRate
	}

	bars, err := svg.Bars(labels, []svg.Series{
		{Name: "Receita", Values: revenue},
		{Name: "Tributos", Values: tax},
	}, svg.Opts{Title: "Receita e tributos", Description: "Receita e tributos por mês"})
	lines, lineErr := svg.Lines(labels, []svg.Series{
		{Name: "Alíquota efetiva %", Values: rate},
	}, svg.Opts{Title: "Alíquota efetiva", Description: "Alíquota efetiva por mês", Height: 180, ShowDots: true})
	if err != nil && lineErr != nil {
		return
	}
	b.WriteString("<section class=\"charts\"><h2>Evolução</h2>")
	if err == nil {
		b.WriteString(string(bars))
	}
	if lineErr == nil {
		b.WriteString(string(lines))
	}
	b.WriteString("</section>")
}

func writeMetricRow(b *strings.Builder, label string, value string) {
	b.WriteString("<tr><td class=\"metric-label\">")
	b.WriteString(templateEscape(label))
	b.WriteString("</td><td>")
	b.WriteString(templateEscape(value))
	b.WriteString("</td></tr>")
}

func templateEscape(v string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(v)
}
