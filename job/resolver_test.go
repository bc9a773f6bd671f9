package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/memory"
)

func TestResolve(t *testing.T) {
	mem := memory.NewInMemoryStore()
	mem.AddTaskInput("a", core.TaskInput{Content: "A-IN"})
	mem.AddTaskOutput("a", core.TaskOutput{Content: "A-OUT"})
	mem.AddTaskInput("web.search", core.TaskInput{Content: "query"})
	mem.AddTaskOutput("web.search", core.TaskOutput{Content: "hits"})

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"root", "Q: {{root}}", "Q: X"},
		{"chained output", "ctx={{a.output}}", "ctx=A-OUT"},
		{"input", "was {{a.input}}", "was A-IN"},
		{"every occurrence", "{{root}}/{{root}} {{a.output}}{{a.output}}", "X/X A-OUTA-OUT"},
		{"dotted name", "{{web.search.input}} -> {{web.search.output}}", "query -> hits"},
		{"unknown task verbatim", "{{missing.output}} {{a.outptu}}", "{{missing.output}} {{a.outptu}}"},
		{"no placeholders", "plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.template, "X", mem)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_RootContentFeedsLaterPasses(t *testing.T) {
	mem := memory.NewInMemoryStore()
	mem.AddTaskOutput("a", core.TaskOutput{Content: "A-OUT"})

	got, err := Resolve("{{root}}", "see {{a.output}}", mem)
	require.NoError(t, err)
	assert.Equal(t, "see A-OUT", got)
}

func TestResolve_NestedPlaceholders(t *testing.T) {
	mem := memory.NewInMemoryStore()
	mem.AddTaskInput("a", core.TaskInput{Content: "{{b.input}}"})
	mem.AddTaskInput("b", core.TaskInput{Content: "B"})
	mem.AddTaskOutput("x", core.TaskOutput{Content: "{{y.output}}!"})
	mem.AddTaskOutput("y", core.TaskOutput{Content: "Y"})

	got, err := Resolve("{{a.input}} {{x.output}}", "root", mem)
	require.NoError(t, err)
	assert.Equal(t, "B Y!", got)
}

func TestResolve_SelfReferenceTerminates(t *testing.T) {
	mem := memory.NewInMemoryStore()
	mem.AddTaskOutput("loop", core.TaskOutput{Content: "again {{loop.output}}"})

	got, err := Resolve("{{loop.output}}", "root", mem)
	require.NoError(t, err)
	assert.Equal(t, "again {{loop.output}}", got)
}

func TestResolve_NonTextContent(t *testing.T) {
	mem := memory.NewInMemoryStore()
	mem.AddTaskInput("docs", core.TaskInput{Content: "q"})
	mem.AddTaskOutput("docs", core.TaskOutput{Content: []string{"d1", "d2"}})

	_, err := Resolve("ctx={{docs.output}}", "root", mem)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNonTextContent)

	// Not referenced: non-text content is ignored.
	got, err := Resolve("in={{docs.input}}", "root", mem)
	require.NoError(t, err)
	assert.Equal(t, "in=q", got)
}

func TestUnresolved(t *testing.T) {
	assert.Nil(t, Unresolved("done"))
	assert.Equal(t, []string{"{{x.output}}", "{{typo}}"}, Unresolved("{{x.output}} and {{typo}}"))
}
