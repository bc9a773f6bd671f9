package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/tracing"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/memory"
)

// Options configures a job.
type Options struct {
	// Logger receives job and task lifecycle events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// jobTask pairs a registered task with its input template.
type jobTask struct {
	task     core.Task
	template string
}

// tasks holds the registration state shared by both job variants.
type tasks struct {
	list   []jobTask
	names  map[string]struct{}
	errs   []error
	memory *memory.InMemoryStore
	logger logging.Logger
}

func newTasks(optFns ...func(o *Options)) tasks {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return tasks{
		names:  make(map[string]struct{}),
		memory: memory.NewInMemoryStore(),
		logger: logging.OrNoOp(opts.Logger),
	}
}

func (t *tasks) add(task core.Task, template string) error {
	if task == nil {
		return fmt.Errorf("%w: task", core.ErrMissingArgument)
	}

	name := task.Name()
	if err := core.ValidateTaskName(name); err != nil {
		return err
	}

	if _, exists := t.names[name]; exists {
		return fmt.Errorf("%w: %q", core.ErrDuplicateTask, name)
	}

	t.names[name] = struct{}{}
	t.list = append(t.list, jobTask{task: task, template: template})

	return nil
}

func (t *tasks) record(err error) {
	t.errs = append(t.errs, err)
	t.logger.Error("job.task.register_failed", "error", err)
}

// err joins every registration error.
func (t *tasks) err() error {
	return errors.Join(t.errs...)
}

// execute runs one registered task with an already resolved input and
// records the input and output in memory.
func (t *tasks) execute(ctx context.Context, runID string, jt jobTask, input string) error {
	name := jt.task.Name()

	ctx, span := tracing.StartTaskSpan(ctx, runID, name)

	in := core.TaskInput{Content: input}
	t.memory.AddTaskInput(name, in)

	t.logger.Debug("job.task.start", "run_id", runID, "task", name)

	out, err := jt.task.Execute(ctx, in)
	tracing.End(span, err)

	if err != nil {
		t.logger.Error("job.task.error", "run_id", runID, "task", name, "error", err)
		return &core.TaskError{Task: name, Err: err}
	}

	t.memory.AddTaskOutput(name, out)
	t.logger.Debug("job.task.done", "run_id", runID, "task", name)

	return nil
}

func (t *tasks) taskNames() []string {
	names := make([]string, len(t.list))
	for i, jt := range t.list {
		names[i] = jt.task.Name()
	}

	return names
}
