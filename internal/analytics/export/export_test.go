package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/simplesdash/simplesdash/internal/analytics"
	"github.com/simplesdash/simplesdash/internal/filing"
)

func sampleReport() analytics.Report {
	mk := func(label string, revenue, tax float64) filing.MonthlyFiling {
		return filing.MonthlyFiling{
			Filename:       label,
			Identification: filing.Identification{CNPJ: "01234567000189", LegalName: "Padaria <Central>", Period: label},
			Revenue:        filing.Revenue{CurrentPeriod: revenue, CurrentPeriodReported: true},
			Taxes:          filing.TaxSet{ISS: tax},
		}
	}
	batch := filing.Batch{Filings: []filing.MonthlyFiling{
		mk("01/2023", 8000, 500),
		mk("01/2024", 10000, 800),
		mk("02/2024", 12000, 1000),
	}}
	return analytics.Prepare(batch).View(analytics.ViewFilter{}, nil)
}

func TestWriteMonthsCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteMonthsCSV(buf, sampleReport()); err != nil {
		t.Fatalf("months csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(records))
	}
	if records[3][0] != "2024-02" || records[3][3] != "12000.00" || records[3][6] != "8.3333" {
		t.Fatalf("unexpected row %v", records[3])
	}
}

func TestWriteSeriesAndComparisonsCSV(t *testing.T) {
	rep := sampleReport()
	buf := &bytes.Buffer{}
	if err := WriteSeriesCSV(buf, analytics.MetricRevenue, rep.Revenue); err != nil {
		t.Fatalf("series csv error: %v", err)
	}
	if !strings.Contains(buf.String(), "revenue,annual,2024,2024,22000.00,2") {
		t.Fatalf("expected annual row, got %s", buf.String())
	}
	buf.Reset()
	if err := WriteComparisonsCSV(buf, rep.Comparisons); err != nil {
		t.Fatalf("comparison csv error: %v", err)
	}
	if !strings.Contains(buf.String(), "quarterly,T1,2024,2023,22000.00,8000.00,14000.00,175.0000,false") {
		t.Fatalf("expected quarterly comparison, got %s", buf.String())
	}
}

func TestWriteReportCSVSections(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteReportCSV(buf, sampleReport()); err != nil {
		t.Fatalf("report csv error: %v", err)
	}
	sections := strings.Split(buf.String(), "\n\n")
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(sections))
	}
	if !strings.HasPrefix(sections[0], "Period,CNPJ") {
		t.Fatalf("unexpected months header: %s", sections[0])
	}
	if !strings.HasPrefix(sections[2], "Metric,Granularity") || !strings.Contains(sections[2], "tax,") {
		t.Fatalf("unexpected tax section: %s", sections[2])
	}
}

func TestWriteWorkbook(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteWorkbook(buf, sampleReport()); err != nil {
		t.Fatalf("workbook error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()
	if got := f.GetSheetList(); len(got) != 4 || got[0] != sheetSummary {
		t.Fatalf("unexpected sheets %v", got)
	}
	cnpj, err := f.GetCellValue(sheetSummary, "B2")
	if err != nil || cnpj != "01234567000189" {
		t.Fatalf("expected CNPJ kept as text, got %q (%v)", cnpj, err)
	}
	rows, err := f.GetRows(sheetMonths)
	if err != nil || len(rows) != 4 {
		t.Fatalf("unexpected month rows %v (%v)", rows, err)
	}
}

type stubRenderer struct {
	html string
	err  error
}

func (s *stubRenderer) RenderHTML(_ context.Context, html string) ([]byte, error) {
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("PDF"), nil
}

func TestPDFExporterRender(t *testing.T) {
	renderer := &stubRenderer{}
	data, err := NewPDFExporter(renderer).Render(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("pdf render error: %v", err)
	}
	if string(data) != "PDF" {
		t.Fatalf("unexpected payload %q", string(data))
	}
	if !strings.Contains(renderer.html, "Padaria &lt;Central&gt;") || !strings.Contains(renderer.html, "Comparativo trimestral") {
		t.Fatalf("unexpected html %s", renderer.html)
	}
	if strings.Count(renderer.html, "<svg") != 2 {
		t.Fatalf("expected revenue and rate charts in html")
	}

	failing := &stubRenderer{err: errors.New("boom")}
	if _, err := NewPDFExporter(failing).Render(context.Background(), sampleReport()); err == nil {
		t.Fatalf("expected render error")
	}
	var nilExporter *PDFExporter
	if _, err := nilExporter.Render(context.Background(), sampleReport()); err == nil {
		t.Fatalf("expected error for nil exporter")
	}
}
