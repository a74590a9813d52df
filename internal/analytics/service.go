package analytics

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/simplesdash/simplesdash/internal/classify"
	"github.com/simplesdash/simplesdash/internal/filing"
	"github.com/simplesdash/simplesdash/internal/series"
	"github.com/simplesdash/simplesdash/internal/variance"
)

// ErrEmptyRequest is returned when a request carries no files at all.
var ErrEmptyRequest = errors.New("analytics: empty request")

// Cache sources reported to the Recorder.
const (
	SourceMemo   = "memo"
	SourceRedis  = "redis"
	SourceBuild  = "build"
	SourceShared = "shared"
)

// Recorder receives report build telemetry.
type Recorder interface {
	ObserveReport(source string, elapsed time.Duration)
	ObserveDiagnostics(d Diagnostics)
}

// Request is one report build.
type Request struct {
	Batch   filing.Batch          `json:"batch"`
	Filter  ViewFilter            `json:"filter"`
	History []series.HistoryPoint `json:"history,omitempty"`
}

// Config configures the Service.
type Config struct {
	MemoTTL time.Duration
	Options Options
}

// Service builds reports and memoises them by content hash.
type Service struct {
	cache   *Cache
	memo    *memoCache
	opts    Options
	logger  *slog.Logger
	metrics Recorder
}

// NewService wires the Redis cache (optional) with an in-process memo.
func NewService(cache *Cache, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	opts := cfg.Options
	if opts.Classifier == nil {
		opts.Classifier = classify.New(classify.Options{})
	}
	return &Service{cache: cache, memo: newMemoCache(cfg.MemoTTL), opts: opts, logger: logger}
}

// WithMetrics attaches a telemetry recorder.
func (s *Service) WithMetrics(r Recorder) *Service {
	s.metrics = r
	return s
}

// Prepare builds a Dataset with the service options.
func (s *Service) Prepare(batch filing.Batch) Dataset {
	return PrepareWith(batch, s.opts)
}

// Build returns the report for req, from cache when possible.
func (s *Service) Build(ctx context.Context, req Request) (Report, error) {
	if len(req.Batch.Filings) == 0 && len(req.Batch.Invalid) == 0 {
		return Report{}, ErrEmptyRequest
	}
	start := time.Now()
	key, err := s.ContentKey(req)
	if err != nil {
		return Report{}, err
	}
	if rep, ok := s.memo.Get(key); ok {
		s.observe(SourceMemo, start)
		return rep, nil
	}
	source := SourceBuild
	rep, shared, err := s.memo.do(ctx, key, func(ctx context.Context) (Report, error) {
		var out Report
		redisKey, err := s.cache.BuildKey(ctx, "reports", key)
		if err == nil {
			var hit bool
			hit, err = s.cache.FetchJSON(ctx, redisKey, &out, func(context.Context) (any, error) {
				return s.assemble(req), nil
			})
			if hit {
				source = SourceRedis
			}
		}
		if err != nil {
			s.logger.Warn("report cache unavailable", slog.String("key", key), slog.Any("error", err))
			out = s.assemble(req)
		}
		s.memo.Set(key, out)
		return out, nil
	})
	if err != nil {
		return Report{}, err
	}
	if shared {
		source = SourceShared
	}
	s.observe(source, start)
	return rep, nil
}

func (s *Service) assemble(req Request) Report {
	rep := PrepareWith(req.Batch, s.opts).View(req.Filter, req.History)
	d := rep.Diagnostics
	if n := len(d.InvalidFiles) + len(d.UnparseablePeriods) + len(d.UnparseableLabels); n > 0 {
		s.logger.Warn("report built with skipped input",
			slog.String("cnpj", rep.CNPJ),
			slog.Int("invalid_files", len(d.InvalidFiles)),
			slog.Int("duplicates", len(d.Duplicates)),
			slog.Int("unparseable_periods", len(d.UnparseablePeriods)),
			slog.Any("unparseable_labels", d.UnparseableLabels),
		)
	}
	if s.metrics != nil {
		s.metrics.ObserveDiagnostics(d)
	}
	return rep
}

func (s *Service) observe(source string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveReport(source, time.Since(start))
	}
}

// Invalidate drops both cache layers.
func (s *Service) Invalidate(ctx context.Context) error {
	s.memo.Bust()
	return s.cache.Bump(ctx)
}

// ListenForInvalidation clears the in-process memo whenever another
// process bumps the Redis version.
func (s *Service) ListenForInvalidation(ctx context.Context) error {
	return s.cache.ListenForInvalidation(ctx, func(version int64) {
		s.memo.Bust()
		s.logger.Debug("report memo cleared", slog.Int64("version", version))
	})
}

type fingerprint struct {
	Request
	DefaultKind     classify.Kind    `json:"defaultKind"`
	SignalThreshold float64          `json:"signalThreshold"`
	Variance        variance.Options `json:"variance"`
}

// ContentKey hashes the canonical JSON of the request and the options that
// affect the result.
func (s *Service) ContentKey(req Request) (string, error) {
	payload, err := json.Marshal(fingerprint{
		Request:         req,
		DefaultKind:     s.opts.Classifier.DefaultKind(),
		SignalThreshold: s.opts.SignalThreshold,
		Variance:        s.opts.Variance,
	})
	if err != nil {
		return "", fmt.Errorf("analytics: hash request: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
