package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/simplesdash/simplesdash/internal/analytics"
	"github.com/simplesdash/simplesdash/internal/analytics/export"
	"github.com/simplesdash/simplesdash/internal/filing"
	"github.com/simplesdash/simplesdash/internal/series"
)

// Output formats supported by the report command.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ExitSkipped is returned when the report was produced but some inputs
// were dropped.
const ExitSkipped = 10

// ReportBuilder produces a report from a request.
type ReportBuilder interface {
	Build(ctx context.Context, req analytics.Request) (analytics.Report, error)
}

// ReportOptions configures the report command execution.
type ReportOptions struct {
	Inputs  []string
	History string
	CNPJ    string
	All     bool
	Format  string
	Output  string
	Stdout  io.Writer
	Stderr  io.Writer
}

// ParseReportArgs reads the report flags. Positional arguments are the
// upload files.
func ParseReportArgs(args []string, stderr io.Writer) (ReportOptions, error) {
	var opts ReportOptions
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.History, "history", "", "revenue history JSON file")
	fs.StringVar(&opts.CNPJ, "cnpj", "", "company to report on")
	fs.BoolVar(&opts.All, "all", false, "consolidate every company")
	fs.StringVar(&opts.Format, "format", FormatJSON, "output format: json, csv or xlsx")
	fs.StringVar(&opts.Output, "o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return ReportOptions{}, err
	}
	opts.Inputs = fs.Args()
	opts.Stderr = stderr
	return opts, nil
}

// ReportCommand builds a report from local upload files and writes it in
// the requested format.
func ReportCommand(ctx context.Context, builder ReportBuilder, opts ReportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV && format != FormatXLSX {
		_, _ = fmt.Fprintf(opts.Stderr, "report: unsupported format %q\n", opts.Format)
		return 1
	}
	if len(opts.Inputs) == 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "report: at least one input file is required")
		return 1
	}

	req, err := loadRequest(opts)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}
	rep, err := builder.Build(ctx, req)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: build: %v\n", err)
		return 1
	}

	out := opts.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
			return 1
		}
		defer f.Close()
		out = f
	}
	if err := writeReport(out, format, rep); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: write %s: %v\n", format, err)
		return 1
	}

	if skipped := skippedInputs(rep.Diagnostics); skipped > 0 {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %d input(s) skipped\n", skipped)
		return ExitSkipped
	}
	return 0
}

func loadRequest(opts ReportOptions) (analytics.Request, error) {
	var batch filing.Batch
	for _, path := range opts.Inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return analytics.Request{}, err
		}
		decoded, err := filing.DecodeUpload(data)
		if err != nil {
			return analytics.Request{}, fmt.Errorf("%s: %w", path, err)
		}
		batch.Merge(decoded, filepath.Base(path))
	}
	req := analytics.Request{
		Batch:  batch,
		Filter: analytics.ViewFilter{CNPJ: filing.DigitsOnly(opts.CNPJ), AllCompanies: opts.All},
	}
	if opts.History != "" {
		data, err := os.ReadFile(opts.History)
		if err != nil {
			return analytics.Request{}, err
		}
		points, err := series.DecodeHistory(data)
		if err != nil {
			return analytics.Request{}, fmt.Errorf("%s: %w", opts.History, err)
		}
		req.History = points
	}
	return req, nil
}

func writeReport(w io.Writer, format string, rep analytics.Report) error {
	switch format {
	case FormatCSV:
		return export.WriteReportCSV(w, rep)
	case FormatXLSX:
		return export.WriteWorkbook(w, rep)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
}

func skippedInputs(d analytics.Diagnostics) int {
	return len(d.InvalidFiles) + len(d.Duplicates) + len(d.UnparseablePeriods)
}
