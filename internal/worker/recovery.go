package worker

import (
	"context"
	"time"

	"github.com/botcast/worker/internal/repo"
)

// RecoverStuckTasks scans for tasks a crashed worker left Running and
// transitions them to Failed, since Pop's compare-and-set has no lease or
// visibility timeout (SPEC_FULL.md §7). Call once at worker startup,
// before the loop begins polling.
func RecoverStuckTasks(ctx context.Context, tasks repo.TaskRepo) (int, error) {
	stuck, err := tasks.FindStuckRunning(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var recovered int
	for i := range stuck {
		t := stuck[i]
		t.Status = repo.TaskFailed
		t.ExecutedAt = &now
		if err := tasks.Update(ctx, &t); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}
