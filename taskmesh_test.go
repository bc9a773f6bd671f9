package taskmesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/agent"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/testutil"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
)

func TestNew_DefaultsToNoOpLogger(t *testing.T) {
	m := New(func(o *Options) { o.Logger = nil })
	assert.IsType(t, logging.NoOpLogger{}, m.Logger())
}

func TestTaskMesh_SequentialPipeline(t *testing.T) {
	logger := &testutil.CaptureLogger{}
	m := New(func(o *Options) { o.Logger = logger })

	outline, err := m.TextGen("outline", model.NewMockChat())
	require.NoError(t, err)

	writer, err := m.Agent("writer", model.NewMockChat(), func(o *agent.Options) { o.MaxTurns = 2 })
	require.NoError(t, err)
	assert.Equal(t, 2, writer.MaxTurns())

	j := m.Sequential().
		AddTask(outline, "Outline {{root}}").
		AddTask(writer, "Expand: {{outline.output}}")

	require.NoError(t, j.Run(context.Background(), "Go"))

	out, ok := j.TaskOutput("writer")
	require.True(t, ok)
	assert.Equal(t, "Mock response to: Expand: Mock response to: Outline Go", out.Content)

	_, found := logger.Find("job.run.start")
	assert.True(t, found)
}

func TestTaskMesh_Concurrent(t *testing.T) {
	m := New()

	a, err := m.TextGen("a", model.NewMockChat())
	require.NoError(t, err)

	b, err := m.TextGen("b", model.NewMockChat())
	require.NoError(t, err)

	j := m.Concurrent().AddTask(a).AddTask(b)
	require.NoError(t, j.Run(context.Background(), "hi"))

	for _, name := range []string{"a", "b"} {
		out, ok := j.TaskOutput(name)
		require.True(t, ok)
		assert.Equal(t, "Mock response to: hi", out.Content)
	}
}

func TestTaskMesh_ConfigurationErrors(t *testing.T) {
	m := New()

	_, err := m.TextGen("", model.NewMockChat())
	assert.ErrorIs(t, err, core.ErrInvalidTaskName)

	_, err = m.Agent("a", model.NewMockChat(), func(o *agent.Options) { o.MaxTurns = 0 })
	assert.ErrorIs(t, err, core.ErrInvalidMaxTurns)
}
