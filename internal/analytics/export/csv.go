package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/simplesdash/simplesdash/internal/analytics"
	"github.com/simplesdash/simplesdash/internal/series"
)

// WriteReportCSV writes months, revenue series, tax series and comparisons
// as consecutive sections separated by a blank line.
func WriteReportCSV(w io.Writer, rep analytics.Report) error {
	sections := []func() error{
		func() error { return WriteMonthsCSV(w, rep) },
		func() error { return WriteSeriesCSV(w, analytics.MetricRevenue, rep.Revenue) },
		func() error { return WriteSeriesCSV(w, analytics.MetricTax, rep.Tax) },
		func() error { return WriteComparisonsCSV(w, rep.Comparisons) },
	}
	for i, write := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := write(); err != nil {
			return err
		}
	}
	return nil
}

var monthHeader = []string{
	"Period", "CNPJ", "Legal Name", "Revenue", "Foreign Revenue", "Total Tax", "Effective Rate %",
	"Bracket", "Merchandise", "Services", "Industry", "Revenue Source", "Tax Source",
}

// WriteMonthsCSV serialises the per-month records.
func WriteMonthsCSV(w io.Writer, rep analytics.Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(monthHeader); err != nil {
		return err
	}
	for _, row := range monthRows(rep) {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSeriesCSV emits one metric at every granularity as long-format rows.
func WriteSeriesCSV(w io.Writer, metric string, set analytics.SeriesSet) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Metric", "Granularity", "Year", "Bucket", "Value", "Months"}); err != nil {
		return err
	}
	for _, row := range seriesRows(metric, set) {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteComparisonsCSV prints the year-over-year rows.
func WriteComparisonsCSV(w io.Writer, set analytics.ComparisonSet) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Granularity", "Bucket", "Year", "Prior Year", "Current", "Prior", "Delta", "Delta %", "Flagged"}); err != nil {
		return err
	}
	for _, row := range comparisonRows(set) {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func monthRows(rep analytics.Report) [][]string {
	rows := make([][]string, 0, len(rep.Months))
	for _, m := range rep.Months {
		rev := m.Attribution.Revenue
		rows = append(rows, []string{
			m.Period,
			m.Identification.CNPJ,
			m.Identification.LegalName,
			formatFloat(m.Revenue.CurrentPeriod),
			formatFloat(m.Revenue.ForeignMarket.CurrentPeriod),
			formatFloat(m.TotalTax),
			formatRate(m.Analysis.EffectiveRate),
			bracketLabel(m.Analysis.Bracket, m.Analysis.OverLimit),
			formatFloat(rev.Merchandise.Total()),
			formatFloat(rev.Services.Total()),
			formatFloat(rev.Industry.Total()),
			string(m.Attribution.RevenueSource),
			string(m.Attribution.TaxSource),
		})
	}
	return rows
}

func seriesRows(metric string, set analytics.SeriesSet) [][]string {
	var rows [][]string
	for _, g := range series.Granularities {
		c, ok := set[g]
		if !ok {
			continue
		}
		for _, year := range c.Years {
			for _, b := range year.Buckets {
				rows = append(rows, []string{
					metric,
					string(g),
					strconv.Itoa(year.Year),
					b.Label,
					formatFloat(b.Value),
					strconv.Itoa(len(b.Months)),
				})
			}
		}
	}
	return rows
}

func comparisonRows(set analytics.ComparisonSet) [][]string {
	var rows [][]string
	for _, g := range series.Granularities {
		for _, c := range set[g] {
			rows = append(rows, []string{
				string(g),
				c.Label,
				strconv.Itoa(c.Year),
				strconv.Itoa(c.PriorYear),
				formatFloat(c.CurrentValue),
				formatFloat(c.PriorValue),
				formatFloat(c.AbsoluteDelta),
				formatRate(c.PercentDelta),
				strconv.FormatBool(c.Flagged),
			})
		}
	}
	return rows
}

func formatFloat(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func formatRate(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

func bracketLabel(bracket int, overLimit bool) string {
	if overLimit {
		return "over limit"
	}
	return strconv.Itoa(bracket)
}
