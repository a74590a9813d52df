package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/simplesdash/simplesdash/internal/analytics"
)

const (
	sheetSummary     = "Resumo"
	sheetMonths      = "Meses"
	sheetSeries      = "Series"
	sheetComparisons = "Comparacoes"
)

// WriteWorkbook renders the report as an XLSX workbook with one sheet per
// section.
func WriteWorkbook(w io.Writer, rep analytics.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	for _, name := range []string{sheetMonths, sheetSeries, sheetComparisons} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F5F5F5"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	summary := [][]string{
		{"Metric", "Value"},
		{"CNPJ", rep.CNPJ},
		{"Legal Name", rep.LegalName},
		{"View", rep.View},
		{"From", rep.From},
		{"To", rep.To},
		{"Total Revenue", formatFloat(rep.Totals.Revenue)},
		{"Total Tax", formatFloat(rep.Totals.Tax)},
		{"Average Effective Rate %", formatRate(rep.Totals.AverageEffectiveRate)},
		{"Latest Bracket", bracketLabel(rep.Latest.Bracket, rep.Latest.OverLimit)},
		{"Transition Risk", strconv.FormatBool(rep.Latest.TransitionRisk)},
		{"Signal", string(rep.Signal.Direction)},
		{"Invalid Files", strconv.Itoa(len(rep.Diagnostics.InvalidFiles))},
	}
	if err := writeSheet(f, sheetSummary, summary, header); err != nil {
		return err
	}
	months := append([][]string{monthHeader}, monthRows(rep)...)
	if err := writeSheet(f, sheetMonths, months, header); err != nil {
		return err
	}
	seriesSheet := [][]string{{"Metric", "Granularity", "Year", "Bucket", "Value", "Months"}}
	seriesSheet = append(seriesSheet, seriesRows(analytics.MetricRevenue, rep.Revenue)...)
	seriesSheet = append(seriesSheet, seriesRows(analytics.MetricTax, rep.Tax)...)
	if err := writeSheet(f, sheetSeries, seriesSheet, header); err != nil {
		return err
	}
	comparisons := [][]string{{"Granularity", "Bucket", "Year", "Prior Year", "Current", "Prior", "Delta", "Delta %", "Flagged"}}
	comparisons = append(comparisons, comparisonRows(rep.Comparisons)...)
	if err := writeSheet(f, sheetComparisons, comparisons, header); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, rows [][]string, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("export: sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 {
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return err
		}
		last, err := excelize.ColumnNumberToName(len(rows[0]))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
			return err
		}
	}
	return nil
}

// cellValue stores fixed-point amounts as numbers; identifiers such as
// CNPJ stay text.
func cellValue(v string) any {
	if !strings.Contains(v, ".") {
		return v
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
