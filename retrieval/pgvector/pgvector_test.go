package pgvector

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

type fakeRows struct {
	values []string
	pos    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.values[r.pos-1]
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	return []any{r.values[r.pos-1]}, nil
}

type fakeQuerier struct {
	rows []string
	err  error
	sql  string
	args []any
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql = sql
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return &fakeRows{values: q.rows}, nil
}

func constantEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0.5, -2}, nil
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[1,0.5,-2]", VectorLiteral([]float32{1, 0.5, -2}))
	assert.Equal(t, "[]", VectorLiteral(nil))
}

func TestNew_BuildsQuery(t *testing.T) {
	r, err := New("search", &fakeQuerier{}, constantEmbedding, func(o *Options) {
		o.Table = "public.docs"
	})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "content" FROM "public"."docs" ORDER BY "embedding" <=> $1::vector LIMIT $2`,
		r.SQL())
}

func TestNew_WhereAndDistance(t *testing.T) {
	r, err := New("search", &fakeQuerier{}, constantEmbedding, func(o *Options) {
		o.Table = "docs"
		o.ContentColumn = "body"
		o.EmbeddingColumn = "vec"
		o.Distance = L2
		o.Where = "tenant = $2 AND lang = $3"
		o.WhereArgs = []any{"acme", "en"}
	})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "body" FROM "docs" WHERE tenant = $2 AND lang = $3 ORDER BY "vec" <-> $1::vector LIMIT $4`,
		r.SQL())
}

func TestNew_ConfigurationErrors(t *testing.T) {
	withTable := func(o *Options) { o.Table = "docs" }

	_, err := New("search", nil, constantEmbedding, withTable)
	assert.ErrorIs(t, err, core.ErrMissingArgument)

	_, err = New("search", &fakeQuerier{}, nil, withTable)
	assert.ErrorIs(t, err, core.ErrMissingArgument)

	_, err = New("search", &fakeQuerier{}, constantEmbedding)
	assert.ErrorIs(t, err, core.ErrMissingArgument)

	_, err = New(" ", &fakeQuerier{}, constantEmbedding, withTable)
	assert.ErrorIs(t, err, core.ErrInvalidTaskName)

	_, err = New("search", &fakeQuerier{}, constantEmbedding, withTable, func(o *Options) {
		o.Distance = "manhattan"
	})
	assert.ErrorContains(t, err, "unsupported distance")
}

func TestRetriever_Execute(t *testing.T) {
	q := &fakeQuerier{rows: []string{"alpha", "beta"}}

	r, err := New("search", q, constantEmbedding, func(o *Options) {
		o.Table = "docs"
		o.Limit = 2
		o.Where = "tenant = $2"
		o.WhereArgs = []any{"acme"}
	})
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), core.TaskInput{Content: "query"})
	require.NoError(t, err)

	assert.Equal(t, "[0] alpha\n\n[1] beta", out.Content)
	assert.Equal(t, []string{"alpha", "beta"}, out.RawOutput)
	assert.Equal(t, []any{"[1,0.5,-2]", "acme", 2}, q.args)
}

func TestRetriever_Errors(t *testing.T) {
	boom := errors.New("connection refused")

	r, err := New("search", &fakeQuerier{err: boom}, constantEmbedding, func(o *Options) { o.Table = "docs" })
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), core.TaskInput{Content: "query"})
	assert.ErrorIs(t, err, boom)

	_, err = r.Execute(context.Background(), core.TaskInput{Content: []byte("query")})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	failingEmbed := func(context.Context, string) ([]float32, error) { return nil, boom }

	r, err = New("search", &fakeQuerier{}, failingEmbed, func(o *Options) { o.Table = "docs" })
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), core.TaskInput{Content: "query"})
	assert.ErrorIs(t, err, boom)
}
