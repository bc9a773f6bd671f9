// Package pgvector provides a retrieval task that runs nearest-neighbour
// queries against a PostgreSQL table using the pgvector extension.
package pgvector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/retrieval"
)

// Compile-time interface check.
var _ core.Task = (*Retriever)(nil)

// Distance names a pgvector distance operator.
type Distance string

const (
	// Cosine uses the <=> operator.
	Cosine Distance = "cosine"
	// L2 uses the <-> operator.
	L2 Distance = "l2"
	// InnerProduct uses the <#> operator (negative inner product).
	InnerProduct Distance = "inner_product"
)

func (d Distance) operator() (string, error) {
	switch d {
	case Cosine:
		return "<=>", nil
	case L2:
		return "<->", nil
	case InnerProduct:
		return "<#>", nil
	default:
		return "", fmt.Errorf("unsupported distance %q", string(d))
	}
}

// Querier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Connect opens a connection pool for dsn and checks it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

// Options configures a Retriever.
type Options struct {
	retrieval.Options
	// Table holds the documents. It may be schema qualified ("public.docs").
	Table string
	// ContentColumn holds the document text.
	ContentColumn string
	// EmbeddingColumn holds the vector.
	EmbeddingColumn string
	Distance        Distance
	// Where is an optional SQL filter appended to the query. Its parameters
	// start at $2 and are bound from WhereArgs.
	Where     string
	WhereArgs []any
}

// Retriever embeds the task input and returns the closest rows of Table.
// RawOutput holds the retrieved contents in distance order.
type Retriever struct {
	name  string
	db    Querier
	embed retrieval.EmbeddingFunc
	opts  Options
	sql   string
}

// New creates a pgvector retrieval task.
func New(name string, db Querier, embed retrieval.EmbeddingFunc, optFns ...func(o *Options)) (*Retriever, error) {
	opts := Options{
		Options:         retrieval.DefaultOptions(),
		ContentColumn:   "content",
		EmbeddingColumn: "embedding",
		Distance:        Cosine,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Normalize()

	if err := core.ValidateTaskName(name); err != nil {
		return nil, err
	}

	if db == nil {
		return nil, fmt.Errorf("%w: db", core.ErrMissingArgument)
	}

	if embed == nil {
		return nil, fmt.Errorf("%w: embedding function", core.ErrMissingArgument)
	}

	if strings.TrimSpace(opts.Table) == "" {
		return nil, fmt.Errorf("%w: table", core.ErrMissingArgument)
	}

	sql, err := buildQuery(opts)
	if err != nil {
		return nil, err
	}

	return &Retriever{name: name, db: db, embed: embed, opts: opts, sql: sql}, nil
}

// Name implements core.Task.
func (r *Retriever) Name() string { return r.name }

// SQL returns the query the retriever runs.
func (r *Retriever) SQL() string { return r.sql }

// Execute implements core.Task.
func (r *Retriever) Execute(ctx context.Context, input core.TaskInput) (core.TaskOutput, error) {
	query, err := retrieval.QueryText(input)
	if err != nil {
		return core.TaskOutput{}, err
	}

	vec, err := r.embed(ctx, query)
	if err != nil {
		return core.TaskOutput{}, fmt.Errorf("embed query: %w", err)
	}

	args := make([]any, 0, 2+len(r.opts.WhereArgs))
	args = append(args, VectorLiteral(vec))
	args = append(args, r.opts.WhereArgs...)
	args = append(args, r.opts.Limit)

	r.opts.Logger.Debug("retrieval.query", "task", r.name, "backend", "pgvector", "limit", r.opts.Limit)

	rows, err := r.db.Query(ctx, r.sql, args...)
	if err != nil {
		return core.TaskOutput{}, fmt.Errorf("query %s: %w", r.opts.Table, err)
	}

	docs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return core.TaskOutput{}, fmt.Errorf("scan rows: %w", err)
	}

	return retrieval.Finish(ctx, r.opts.Options, query, docs, docs)
}

// VectorLiteral renders v in pgvector's text format, e.g. "[1,0.5,-2]".
func VectorLiteral(v []float32) string {
	var b strings.Builder

	b.WriteByte('[')

	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}

	b.WriteByte(']')

	return b.String()
}

func buildQuery(opts Options) (string, error) {
	op, err := opts.Distance.operator()
	if err != nil {
		return "", err
	}

	table := pgx.Identifier(strings.Split(opts.Table, ".")).Sanitize()
	content := pgx.Identifier{opts.ContentColumn}.Sanitize()
	embedding := pgx.Identifier{opts.EmbeddingColumn}.Sanitize()

	var b strings.Builder

	fmt.Fprintf(&b, "SELECT %s FROM %s", content, table)

	if w := strings.TrimSpace(opts.Where); w != "" {
		fmt.Fprintf(&b, " WHERE %s", w)
	}

	fmt.Fprintf(&b, " ORDER BY %s %s $1::vector LIMIT $%d", embedding, op, 2+len(opts.WhereArgs))

	return b.String(), nil
}
