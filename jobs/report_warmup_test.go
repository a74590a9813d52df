package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/simplesdash/simplesdash/internal/analytics"
	"github.com/simplesdash/simplesdash/internal/filing"
	"github.com/simplesdash/simplesdash/internal/filingstore"
	jobmetrics "github.com/simplesdash/simplesdash/internal/jobs"
)

type countingBuilder struct {
	mu      sync.Mutex
	filters []analytics.ViewFilter
	err     error
}

func (b *countingBuilder) Build(_ context.Context, req analytics.Request) (analytics.Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters = append(b.filters, req.Filter)
	return analytics.Report{}, b.err
}

func filingFor(cnpj, period string) filing.MonthlyFiling {
	return filing.MonthlyFiling{
		Filename:       cnpj + "-" + period,
		Identification: filing.Identification{CNPJ: cnpj, Period: period},
		Revenue:        filing.Revenue{CurrentPeriod: 1000, CurrentPeriodReported: true},
	}
}

func newWarmupFixture(t *testing.T) (*ReportWarmupJob, *countingBuilder, filingstore.Store) {
	t.Helper()
	store, err := filingstore.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	builder := &countingBuilder{}
	job := NewReportWarmupJob(builder, store, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	return job, builder, store
}

func TestReportWarmupSingleFileSet(t *testing.T) {
	job, builder, store := newWarmupFixture(t)
	doc, err := filingstore.Create(context.Background(), store, filing.FromFilings([]filing.MonthlyFiling{
		filingFor("1", "01/2024"),
		filingFor("2", "01/2024"),
	}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	task, err := NewReportWarmupTask(doc.ID)
	if err != nil {
		t.Fatalf("task: %v", err)
	}

	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(builder.filters) != 3 {
		t.Fatalf("expected two company views and one all view, got %+v", builder.filters)
	}
	if !builder.filters[2].AllCompanies {
		t.Fatalf("expected all-companies view last")
	}
}

func TestReportWarmupAllStoredSets(t *testing.T) {
	job, builder, store := newWarmupFixture(t)
	for _, cnpj := range []string{"1", "2"} {
		if _, err := filingstore.Create(context.Background(), store, filing.FromFilings([]filing.MonthlyFiling{filingFor(cnpj, "02/2024")})); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	task, _ := NewReportWarmupTask("")
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(builder.filters) != 2 {
		t.Fatalf("expected one build per set, got %d", len(builder.filters))
	}
}

func TestReportWarmupMissingSetSkipsRetry(t *testing.T) {
	job, _, _ := newWarmupFixture(t)
	task, _ := NewReportWarmupTask("6f1c2a8e-3b7d-4e0f-9a51-2c4d6e8f0a1b")
	err := job.Handle(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestReportWarmupPropagatesBuildErrors(t *testing.T) {
	job, builder, store := newWarmupFixture(t)
	builder.err = errors.New("redis down")
	doc, _ := filingstore.Create(context.Background(), store, filing.FromFilings([]filing.MonthlyFiling{filingFor("1", "01/2024")}))
	task, _ := NewReportWarmupTask(doc.ID)
	if err := job.Handle(context.Background(), task); err == nil {
		t.Fatal("expected build error")
	}
}

func TestReportWarmupRejectsBadPayload(t *testing.T) {
	job, _, _ := newWarmupFixture(t)
	err := job.Handle(context.Background(), asynq.NewTask(TaskReportWarmup, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, f.err
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestClientEnqueueWarmup(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}
	if err := client.EnqueueWarmup(context.Background(), "abc"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(fake.tasks[0].Payload(), &payload); err != nil || payload.FileSetID != "abc" {
		t.Fatalf("unexpected payload %+v err=%v", payload, err)
	}
	if fake.tasks[0].Type() != TaskReportWarmup {
		t.Fatalf("unexpected task type %s", fake.tasks[0].Type())
	}

	fake.err = asynq.ErrDuplicateTask
	if err := client.EnqueueWarmup(context.Background(), "abc"); err != nil {
		t.Fatalf("duplicate should be ignored, got %v", err)
	}
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestJobsHealth(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body queueHealth
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Pending != 4 {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	r = chi.NewRouter()
	NewHandler(fakeInspector{err: errors.New("redis down")}, nil).MountRoutes(r)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
