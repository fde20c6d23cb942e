package jobs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/harborline/harborline/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskFlowRefresh rewrites drifted flow summaries and counts unbalanced cycles.
	TaskFlowRefresh = "shipping:flow_refresh"
	// TaskDashboardWarmup rebuilds cached dashboards.
	TaskDashboardWarmup = "shipping:dashboard_warmup"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// warmupDedupWindow collapses warmup requests for one institute.
const warmupDedupWindow = 30 * time.Second

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// InstitutePayload targets one institute or, with "all", every institute.
type InstitutePayload struct {
	Institute string `json:"institute"`
}

// CleanupPayload configures idempotency key retention.
type CleanupPayload struct {
	Retention string `json:"retention"`
}

// NewFlowRefreshTask creates a flow refresh task for institute ("all" or an ID).
func NewFlowRefreshTask(institute string) (*asynq.Task, error) {
	return newInstituteTask(TaskFlowRefresh, institute)
}

// NewDashboardWarmupTask creates a dashboard warmup task for institute ("all" or an ID).
func NewDashboardWarmupTask(institute string) (*asynq.Task, error) {
	return newInstituteTask(TaskDashboardWarmup, institute)
}

func newInstituteTask(typ, institute string) (*asynq.Task, error) {
	if institute == "" {
		institute = "all"
	}
	body, err := json.Marshal(InstitutePayload{Institute: institute})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault)), nil
}

// NewIdempotencyCleanupTask creates a cleanup task removing keys older than retention.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}
	body, err := json.Marshal(CleanupPayload{Retention: retention.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// warmupTaskID is stable per institute and dedup window so bursts of writes
// enqueue a single warmup.
func warmupTaskID(instituteID int64, now time.Time) string {
	bucket := now.UTC().Truncate(warmupDedupWindow).Unix()
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("WARMUP:%d:%d", instituteID, bucket))).String()
}

// resolveInstitutes expands a payload into institute IDs.
func resolveInstitutes(institute string, all func() ([]int64, error)) ([]int64, error) {
	if institute == "" || institute == "all" {
		return all()
	}
	id, err := strconv.ParseInt(institute, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid institute id %s", institute)
	}
	if id <= 0 {
		return nil, fmt.Errorf("institute id must be positive")
	}
	return []int64{id}, nil
}
