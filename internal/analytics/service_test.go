package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/simplesdash/simplesdash/internal/filing"
)

type recorder struct {
	mu      sync.Mutex
	sources []string
	diags   int
}

func (r *recorder) ObserveReport(source string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
}

func (r *recorder) ObserveDiagnostics(Diagnostics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags++
}

func newTestService(t *testing.T, memoTTL time.Duration) (*Service, *recorder, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	rec := &recorder{}
	svc := NewService(cache, Config{MemoTTL: memoTTL}, nil).WithMetrics(rec)
	return svc, rec, func() {
		_ = client.Close()
		mr.Close()
	}
}

func testRequest() Request {
	return Request{Batch: filing.Batch{Filings: []filing.MonthlyFiling{
		sampleFiling("1", "01/2024", 10000, 800),
		sampleFiling("1", "02/2024", 12000, 1000),
	}}}
}

func TestBuildUsesMemoThenRedis(t *testing.T) {
	svc, rec, cleanup := newTestService(t, time.Minute)
	defer cleanup()
	ctx := context.Background()

	first, err := svc.Build(ctx, testRequest())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := svc.Build(ctx, testRequest())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if first.Totals != second.Totals {
		t.Fatalf("expected identical totals")
	}
	if rec.sources[0] != SourceBuild || rec.sources[1] != SourceMemo {
		t.Fatalf("unexpected sources %v", rec.sources)
	}
	if rec.diags != 1 {
		t.Fatalf("expected a single assembly, got %d", rec.diags)
	}

	// Dropping only the memo should fall back to Redis.
	svc.memo.Bust()
	if _, err := svc.Build(ctx, testRequest()); err != nil {
		t.Fatalf("build: %v", err)
	}
	if rec.sources[2] != SourceRedis || rec.diags != 1 {
		t.Fatalf("expected redis hit, got %v (assemblies %d)", rec.sources, rec.diags)
	}

	// Invalidate bumps the Redis version so the next build recomputes.
	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := svc.Build(ctx, testRequest()); err != nil {
		t.Fatalf("build: %v", err)
	}
	if rec.sources[3] != SourceBuild || rec.diags != 2 {
		t.Fatalf("expected rebuild after bump, got %v", rec.sources)
	}
}

func TestBuildWithoutRedis(t *testing.T) {
	svc := NewService(nil, Config{}, nil)
	rep, err := svc.Build(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if rep.Totals.Revenue != 22000 {
		t.Fatalf("unexpected totals %+v", rep.Totals)
	}
	if svc.memo.Len() != 0 {
		t.Fatalf("memo must stay empty with zero TTL")
	}
}

func TestBuildRejectsEmptyRequest(t *testing.T) {
	svc := NewService(nil, Config{}, nil)
	if _, err := svc.Build(context.Background(), Request{}); !errors.Is(err, ErrEmptyRequest) {
		t.Fatalf("expected ErrEmptyRequest, got %v", err)
	}
}

func TestContentKeyDependsOnFilter(t *testing.T) {
	svc := NewService(nil, Config{}, nil)
	req := testRequest()
	a, err := svc.ContentKey(req)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	b, _ := svc.ContentKey(req)
	req.Filter.AllCompanies = true
	c, _ := svc.ContentKey(req)
	if a != b || a == c || len(a) != 64 {
		t.Fatalf("unexpected keys %s %s %s", a, b, c)
	}
}
