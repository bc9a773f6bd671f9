// Package taskmesh provides a small façade over the job, task and agent
// packages. Most applications interact with this package by:
//  1. Creating a TaskMesh via New() (optionally with a structured logger)
//  2. Building tasks (TextGen, Agent or any core.Task) through it
//  3. Composing them in a Sequential or Concurrent job and calling Run
//
// Every component created through the façade shares the same logger. The
// underlying packages can be used directly when finer control is needed.
package taskmesh

import (
	"github.com/hupe1980/taskmesh/agent"
	"github.com/hupe1980/taskmesh/job"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/task"
)

// Options configures the TaskMesh instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// TaskMesh builds jobs and tasks sharing one configuration.
type TaskMesh struct {
	opts Options
}

// New creates a TaskMesh.
func New(optFns ...func(o *Options)) *TaskMesh {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &TaskMesh{opts: opts}
}

// Logger returns the shared logger.
func (m *TaskMesh) Logger() logging.Logger { return m.opts.Logger }

// Sequential returns an empty sequential job.
func (m *TaskMesh) Sequential() *job.SequentialJob {
	return job.NewSequentialJob(m.jobOptions)
}

// Concurrent returns an empty concurrent job.
func (m *TaskMesh) Concurrent() *job.ConcurrentJob {
	return job.NewConcurrentJob(m.jobOptions)
}

// TextGen creates a single-turn text generation task.
func (m *TaskMesh) TextGen(name string, chat model.Chat) (*task.TextGen, error) {
	return task.NewTextGen(name, chat, func(o *task.TextGenOptions) {
		o.Logger = m.opts.Logger
	})
}

// Agent creates a function-calling agent. The shared logger is applied
// before optFns, so callers may still override it.
func (m *TaskMesh) Agent(name string, chat model.Chat, optFns ...func(o *agent.Options)) (*agent.FunctionAgent, error) {
	fns := append([]func(o *agent.Options){func(o *agent.Options) {
		o.Logger = m.opts.Logger
	}}, optFns...)

	return agent.New(name, chat, fns...)
}

func (m *TaskMesh) jobOptions(o *job.Options) { o.Logger = m.opts.Logger }
