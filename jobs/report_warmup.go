package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/simplesdash/simplesdash/internal/analytics"
	"github.com/simplesdash/simplesdash/internal/filing"
	"github.com/simplesdash/simplesdash/internal/filingstore"
	jobmetrics "github.com/simplesdash/simplesdash/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportBuilder is satisfied by *analytics.Service.
type ReportBuilder interface {
	Build(ctx context.Context, req analytics.Request) (analytics.Report, error)
}

// ReportWarmupJob primes the report cache for stored file sets: one
// company view per CNPJ plus the all-companies view when a set holds more
// than one company.
type ReportWarmupJob struct {
	Reports ReportBuilder
	Store   filingstore.Store
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reports ReportBuilder, store filingstore.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{
		Reports: reports,
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil || j.Store == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	scope := payload.FileSetID
	if scope == "" {
		scope = "all"
	}
	logger := j.logger().With(slog.String("fileset", scope))
	logger.Info("starting report warmup")
	start := j.now()

	ids := []string{payload.FileSetID}
	if payload.FileSetID == "" {
		listed, err := j.Store.List(ctx)
		if err != nil {
			resultErr = err
			logger.Error("list file sets", slog.Any("error", err))
			return resultErr
		}
		ids = listed
	}

	warmed := 0
	for _, id := range ids {
		n, err := j.warmFileSet(ctx, id)
		if errors.Is(err, filingstore.ErrNotFound) {
			logger.Warn("file set vanished before warmup", slog.String("id", id))
			if payload.FileSetID != "" {
				resultErr = fmt.Errorf("report warmup %s: %w", id, asynq.SkipRetry)
				return resultErr
			}
			continue
		}
		if err != nil {
			resultErr = err
			logger.Error("warm file set", slog.String("id", id), slog.Any("error", err))
			return resultErr
		}
		warmed += n
	}

	logger.Info("completed report warmup", slog.Int("filesets", len(ids)), slog.Int("reports", warmed), slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *ReportWarmupJob) warmFileSet(ctx context.Context, id string) (int, error) {
	doc, err := j.Store.Load(ctx, id)
	if err != nil {
		return 0, err
	}
	setCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	companies := filing.GroupByCompany(doc.Batch.Filings)
	warmed := 0
	for _, set := range companies {
		req := analytics.Request{Batch: doc.Batch, Filter: analytics.ViewFilter{CNPJ: set.CNPJ}}
		if _, err := j.Reports.Build(setCtx, req); err != nil {
			return warmed, err
		}
		warmed++
	}
	j.metrics().AddWarmed(analytics.ViewCompany, warmed)
	if len(companies) > 1 {
		req := analytics.Request{Batch: doc.Batch, Filter: analytics.ViewFilter{AllCompanies: true}}
		if _, err := j.Reports.Build(setCtx, req); err != nil {
			return warmed, err
		}
		j.metrics().AddWarmed(analytics.ViewAll, 1)
		warmed++
	}
	return warmed, nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
