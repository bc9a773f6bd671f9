package job

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/tracing"
	"github.com/hupe1980/taskmesh/memory"
)

// ConcurrentJob runs all of its tasks at the same time. Every task receives
// the root input; tasks cannot reference each other.
//
// Failure is fail-fast: the first task error cancels the context shared by the
// remaining tasks, Run waits for all of them to return and reports that first
// error.
type ConcurrentJob struct {
	tasks
}

// NewConcurrentJob creates an empty concurrent job.
func NewConcurrentJob(optFns ...func(o *Options)) *ConcurrentJob {
	return &ConcurrentJob{tasks: newTasks(optFns...)}
}

// AddTask registers task and returns the job for chaining. Registration errors
// are recorded and reported by Err and Run.
func (j *ConcurrentJob) AddTask(task core.Task) *ConcurrentJob {
	if err := j.add(task, RootPlaceholder); err != nil {
		j.record(err)
	}

	return j
}

// MustAddTask is like AddTask but panics on a registration error.
func (j *ConcurrentJob) MustAddTask(task core.Task) *ConcurrentJob {
	if err := j.add(task, RootPlaceholder); err != nil {
		panic(err)
	}

	return j
}

// Err reports the registration errors collected so far.
func (j *ConcurrentJob) Err() error { return j.err() }

// Run starts every task with input and waits for all of them.
func (j *ConcurrentJob) Run(ctx context.Context, input string) (err error) {
	if err := j.Err(); err != nil {
		return err
	}

	runID := uuid.NewString()

	ctx, span := tracing.StartJobSpan(ctx, runID, "concurrent", len(j.list))
	defer func() { tracing.End(span, err) }()

	j.logger.Info("job.run.start", "run_id", runID, "kind", "concurrent", "tasks", len(j.list))

	g, gctx := errgroup.WithContext(ctx)

	for _, jt := range j.list {
		g.Go(func() error {
			return j.execute(gctx, runID, jt, input)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	j.logger.Info("job.run.done", "run_id", runID, "kind", "concurrent")

	return nil
}

// TaskInput returns the input recorded for the named task.
func (j *ConcurrentJob) TaskInput(name string) (core.TaskInput, bool) {
	return j.memory.TaskInput(name)
}

// TaskOutput returns the output recorded for the named task.
func (j *ConcurrentJob) TaskOutput(name string) (core.TaskOutput, bool) {
	return j.memory.TaskOutput(name)
}

// Memory returns the job's memory.
func (j *ConcurrentJob) Memory() *memory.InMemoryStore { return j.memory }

// Tasks returns the registered task names in order.
func (j *ConcurrentJob) Tasks() []string { return j.taskNames() }
