package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/harborline/harborline/jobs"
)

// enqueuer is the slice of jobs.Client the enqueue command uses.
type enqueuer interface {
	EnqueueFlowRefresh(ctx context.Context, institute string) (*asynq.TaskInfo, error)
	EnqueueDashboardWarmup(ctx context.Context, instituteID int64) error
}

// runEnqueue handles `worker enqueue <job> [institute]`.
func runEnqueue(ctx context.Context, client enqueuer, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: worker enqueue <%s|%s> [institute]", jobs.TaskFlowRefresh, jobs.TaskDashboardWarmup)
	}
	institute := "all"
	if len(args) > 1 {
		institute = args[1]
	}
	switch args[0] {
	case jobs.TaskFlowRefresh:
		info, err := client.EnqueueFlowRefresh(ctx, institute)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return err
	case jobs.TaskDashboardWarmup:
		var id int64
		if _, err := fmt.Sscan(institute, &id); err != nil || id <= 0 {
			return fmt.Errorf("%s needs a positive institute id", jobs.TaskDashboardWarmup)
		}
		if err := client.EnqueueDashboardWarmup(ctx, id); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "enqueued %s institute=%d\n", jobs.TaskDashboardWarmup, id)
		return err
	default:
		return fmt.Errorf("unsupported job %s", args[0])
	}
}
