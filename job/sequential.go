package job

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/tracing"
	"github.com/hupe1980/taskmesh/memory"
)

// SequentialJob runs its tasks strictly one after another in registration
// order. Each task's template is resolved against the memory left by all
// earlier tasks, so later tasks can reference earlier results.
//
// A SequentialJob is not safe for concurrent use.
type SequentialJob struct {
	tasks
}

// NewSequentialJob creates an empty sequential job.
func NewSequentialJob(optFns ...func(o *Options)) *SequentialJob {
	return &SequentialJob{tasks: newTasks(optFns...)}
}

// AddTask registers task with an optional input template (default
// "{{root}}") and returns the job for chaining. Registration errors are
// recorded and reported by Err and Run.
func (j *SequentialJob) AddTask(task core.Task, template ...string) *SequentialJob {
	tmpl := RootPlaceholder

	switch len(template) {
	case 0:
	case 1:
		tmpl = template[0]
	default:
		j.record(fmt.Errorf("at most one input template allowed, got %d", len(template)))
		return j
	}

	if err := j.add(task, tmpl); err != nil {
		j.record(err)
	}

	return j
}

// MustAddTask is like AddTask but panics on a registration error.
func (j *SequentialJob) MustAddTask(task core.Task, template ...string) *SequentialJob {
	before := len(j.errs)
	j.AddTask(task, template...)

	if len(j.errs) > before {
		panic(j.errs[len(j.errs)-1])
	}

	return j
}

// Err reports the registration errors collected so far.
func (j *SequentialJob) Err() error { return j.err() }

// Run executes every task in order with input as the root value. The first
// task failure stops the run and is returned as *core.TaskError; memory keeps
// everything recorded before the failure.
func (j *SequentialJob) Run(ctx context.Context, input string) (err error) {
	if err := j.Err(); err != nil {
		return err
	}

	runID := uuid.NewString()

	ctx, span := tracing.StartJobSpan(ctx, runID, "sequential", len(j.list))
	defer func() { tracing.End(span, err) }()

	j.logger.Info("job.run.start", "run_id", runID, "kind", "sequential", "tasks", len(j.list))

	for _, jt := range j.list {
		if err := ctx.Err(); err != nil {
			return err
		}

		resolved, err := Resolve(jt.template, input, j.memory)
		if err != nil {
			j.logger.Error("job.task.resolve_failed", "run_id", runID, "task", jt.task.Name(), "error", err)
			return &core.TaskError{Task: jt.task.Name(), Err: err}
		}

		if left := Unresolved(resolved); len(left) > 0 {
			j.logger.Warn("job.placeholder.unresolved", "run_id", runID, "task", jt.task.Name(), "placeholders", left)
		}

		if err := j.execute(ctx, runID, jt, resolved); err != nil {
			return err
		}
	}

	j.logger.Info("job.run.done", "run_id", runID, "kind", "sequential")

	return nil
}

// TaskInput returns the resolved input recorded for the named task.
func (j *SequentialJob) TaskInput(name string) (core.TaskInput, bool) {
	return j.memory.TaskInput(name)
}

// TaskOutput returns the output recorded for the named task.
func (j *SequentialJob) TaskOutput(name string) (core.TaskOutput, bool) {
	return j.memory.TaskOutput(name)
}

// Memory returns the job's memory.
func (j *SequentialJob) Memory() *memory.InMemoryStore { return j.memory }

// Tasks returns the registered task names in order.
func (j *SequentialJob) Tasks() []string { return j.taskNames() }
