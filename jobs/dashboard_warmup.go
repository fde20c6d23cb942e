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

// DashboardBuilder is the shipping behaviour the warmup job needs.
type DashboardBuilder interface {
	Dashboard(ctx context.Context, instituteID int64) (shipping.DashboardResponse, error)
	InstituteIDs(ctx context.Context) ([]int64, error)
}

// DashboardWarmupJob pre-populates dashboard caches.
type DashboardWarmupJob struct {
	Service DashboardBuilder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(service DashboardBuilder, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Service: service, Logger: logger, Metrics: metrics, Timeout: 20 * time.Second}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload InstitutePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("institute", payload.Institute))
	institutes, err := resolveInstitutes(payload.Institute, func() ([]int64, error) {
		return j.Service.InstituteIDs(ctx)
	})
	if err != nil {
		resultErr = err
		logger.Error("resolve institutes", slog.Any("error", err))
		return resultErr
	}

	warmed := 0
	for _, id := range institutes {
		if err := j.warm(ctx, id); err != nil {
			resultErr = err
			logger.Error("warm dashboard", slog.Int64("institute_id", id), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}
	logger.Info("completed dashboard warmup", slog.Int("institutes", warmed))
	return resultErr
}

func (j *DashboardWarmupJob) warm(ctx context.Context, instituteID int64) error {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	_, err := j.Service.Dashboard(ctx, instituteID)
	return err
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
