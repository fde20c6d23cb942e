package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/harborline/harborline/internal/jobs"
	"github.com/harborline/harborline/internal/shipping"
)

// FlowRefresher is the shipping behaviour the refresh job needs.
type FlowRefresher interface {
	RefreshFlowSummaries(ctx context.Context, instituteID int64) (shipping.RefreshResult, error)
	InstituteIDs(ctx context.Context) ([]int64, error)
}

// FlowRefreshJob keeps stored flow summaries in step with the trees.
type FlowRefreshJob struct {
	Service FlowRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewFlowRefreshJob constructs the job handler.
func NewFlowRefreshJob(service FlowRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *FlowRefreshJob {
	return &FlowRefreshJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the flow refresh job.
func (j *FlowRefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("flow refresh: dependencies not configured")
	}
	var payload InstitutePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskFlowRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	institutes, err := resolveInstitutes(payload.Institute, func() ([]int64, error) {
		return j.Service.InstituteIDs(ctx)
	})
	if err != nil {
		resultErr = err
		j.log().Error("resolve institutes", slog.String("institute", payload.Institute), slog.Any("error", err))
		return resultErr
	}
	if len(institutes) == 0 {
		j.log().Info("no institutes with shipments")
		return resultErr
	}

	start := j.now()
	var total shipping.RefreshResult
	for _, id := range institutes {
		result, err := j.Service.RefreshFlowSummaries(ctx, id)
		if err != nil {
			resultErr = err
			j.log().Error("refresh flow summaries", slog.Int64("institute_id", id), slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddUnbalanced(id, result.Unbalanced)
		if result.Unbalanced > 0 {
			j.log().Warn("unbalanced shipments detected", slog.Int64("institute_id", id), slog.Int("count", result.Unbalanced))
		}
		total.Scanned += result.Scanned
		total.Refreshed += result.Refreshed
		total.Unbalanced += result.Unbalanced
	}

	j.log().Info("refreshed flow summaries",
		slog.Int("institutes", len(institutes)),
		slog.Int("scanned", total.Scanned),
		slog.Int("refreshed", total.Refreshed),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *FlowRefreshJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *FlowRefreshJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskFlowRefresh))
	}
	return slog.Default().With(slog.String("job", TaskFlowRefresh))
}

func (j *FlowRefreshJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
