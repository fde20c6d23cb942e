package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/harborline/harborline/internal/jobs"
	"github.com/harborline/harborline/internal/shipping"
)

var errBoom = errors.New("boom")

type fakeShipping struct {
	institutes []int64
	results    map[int64]shipping.RefreshResult
	refreshed  []int64
	dashboards []int64
	failOn     int64
}

func (f *fakeShipping) InstituteIDs(context.Context) ([]int64, error) {
	return f.institutes, nil
}

func (f *fakeShipping) RefreshFlowSummaries(_ context.Context, id int64) (shipping.RefreshResult, error) {
	if id == f.failOn {
		return shipping.RefreshResult{}, errBoom
	}
	f.refreshed = append(f.refreshed, id)
	return f.results[id], nil
}

func (f *fakeShipping) Dashboard(_ context.Context, id int64) (shipping.DashboardResponse, error) {
	if id == f.failOn {
		return shipping.DashboardResponse{}, errBoom
	}
	f.dashboards = append(f.dashboards, id)
	return shipping.DashboardResponse{}, nil
}

func newMetrics(t *testing.T) (*jobmetrics.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return jobmetrics.NewMetrics(reg), reg
}

func TestFlowRefreshAllInstitutes(t *testing.T) {
	svc := &fakeShipping{
		institutes: []int64{1, 2},
		results: map[int64]shipping.RefreshResult{
			1: {Scanned: 3, Refreshed: 1, Unbalanced: 2},
			2: {Scanned: 1},
		},
	}
	metrics, reg := newMetrics(t)
	job := NewFlowRefreshJob(svc, nil, metrics)
	task, err := NewFlowRefreshTask("")
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []int64{1, 2}, svc.refreshed)

	count, err := testutil.GatherAndCount(reg, "harborline_unbalanced_cycles_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = testutil.GatherAndCount(reg, "harborline_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFlowRefreshSingleInstituteFailure(t *testing.T) {
	svc := &fakeShipping{failOn: 7}
	metrics, reg := newMetrics(t)
	job := NewFlowRefreshJob(svc, nil, metrics)
	task, err := NewFlowRefreshTask("7")
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, errBoom)

	count, err := testutil.GatherAndCount(reg, "harborline_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFlowRefreshRejectsBadPayloads(t *testing.T) {
	job := NewFlowRefreshJob(&fakeShipping{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskFlowRefresh, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewFlowRefreshTask("-3")
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))

	var nilJob *FlowRefreshJob
	assert.Error(t, nilJob.Handle(context.Background(), task))
}

func TestDashboardWarmup(t *testing.T) {
	svc := &fakeShipping{institutes: []int64{3, 4}}
	metrics, _ := newMetrics(t)
	job := NewDashboardWarmupJob(svc, nil, metrics)

	task, err := NewDashboardWarmupTask("all")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []int64{3, 4}, svc.dashboards)

	svc.failOn = 5
	task, err = NewDashboardWarmupTask("5")
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), errBoom)
}

type fakeCleaner struct {
	retention time.Duration
	err       error
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.retention = olderThan
	return 4, f.err
}

func TestIdempotencyCleanup(t *testing.T) {
	cleaner := &fakeCleaner{}
	metrics, _ := newMetrics(t)
	job := NewIdempotencyCleanupJob(cleaner, nil, metrics)

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, cleaner.retention)

	cleaner.err = errBoom
	assert.ErrorIs(t, job.Handle(context.Background(), task), errBoom)

	_, err = NewIdempotencyCleanupTask(0)
	assert.Error(t, err)

	bad := asynq.NewTask(TaskIdempotencyCleanup, []byte(`{"retention":"soon"}`))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

func TestWarmupTaskIDStableWithinWindow(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	id := warmupTaskID(1, base)
	assert.Equal(t, id, warmupTaskID(1, base.Add(10*time.Second)))
	assert.NotEqual(t, id, warmupTaskID(2, base))
	assert.NotEqual(t, id, warmupTaskID(1, base.Add(warmupDedupWindow)))
}

func TestTaskPayloads(t *testing.T) {
	task, err := NewDashboardWarmupTask("")
	require.NoError(t, err)
	assert.Equal(t, TaskDashboardWarmup, task.Type())

	var payload InstitutePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "all", payload.Institute)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestJobsHealth(t *testing.T) {
	serve := func(h *Handler) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rec
	}

	rec := serve(NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Failed: 1}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, queueHealth{Queue: QueueDefault, Pending: 3, Failed: 1}, body)

	rec = serve(NewHandler(fakeInspector{err: errBoom}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(NewHandler(nil, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
