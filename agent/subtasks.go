package agent

import (
	"context"

	"github.com/morgusai/orchestron/executor"
)

// RunSubtasks fans independent subtasks out over the bounded-concurrency
// executor, one fresh conversation per subtask. The factory must return a
// new Orchestrator per call: conversations are single-threaded and cannot
// be shared across parallel subtasks.
//
// Outcomes come back in input order. A subtask ending in StatusError
// counts as a task failure (and is retried when the config says so);
// max-iterations outcomes count as completed, since partial work is still
// work.
func RunSubtasks(
	ctx context.Context,
	subtasks []string,
	factory func() *Orchestrator,
	cfg executor.Config,
) (*executor.Result[string, *Outcome], error) {
	work := func(ctx context.Context, task string) (*Outcome, error) {
		o := factory()
		outcome, err := o.RunSync(ctx, task)
		if err != nil {
			return outcome, err
		}
		return outcome, nil
	}

	return executor.Run(ctx, subtasks, work, cfg)
}
