// Package chromem provides a retrieval task backed by an in-process
// chromem-go vector collection.
package chromem

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/retrieval"
)

// Compile-time interface check.
var _ core.Task = (*Retriever)(nil)

// Options configures a Retriever.
type Options struct {
	retrieval.Options
	// Where filters on document metadata.
	Where map[string]string
	// WhereDocument filters on document content ($contains / $not_contains).
	WhereDocument map[string]string
}

// Retriever queries a chromem collection with the task input and returns the
// formatted documents. RawOutput holds the []chromem.Result.
type Retriever struct {
	name       string
	collection *chromem.Collection
	opts       Options
}

// OpenCollection gets or creates the named collection in db, embedding
// documents and queries with embed.
func OpenCollection(db *chromem.DB, name string, embed retrieval.EmbeddingFunc) (*chromem.Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: db", core.ErrMissingArgument)
	}

	if embed == nil {
		return nil, fmt.Errorf("%w: embedding function", core.ErrMissingArgument)
	}

	c, err := db.GetOrCreateCollection(name, nil, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return c, nil
}

// New creates a retrieval task over collection.
func New(name string, collection *chromem.Collection, optFns ...func(o *Options)) (*Retriever, error) {
	opts := Options{Options: retrieval.DefaultOptions()}
	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Normalize()

	if err := core.ValidateTaskName(name); err != nil {
		return nil, err
	}

	if collection == nil {
		return nil, fmt.Errorf("%w: collection", core.ErrMissingArgument)
	}

	return &Retriever{name: name, collection: collection, opts: opts}, nil
}

// Name implements core.Task.
func (r *Retriever) Name() string { return r.name }

// Execute implements core.Task.
func (r *Retriever) Execute(ctx context.Context, input core.TaskInput) (core.TaskOutput, error) {
	query, err := retrieval.QueryText(input)
	if err != nil {
		return core.TaskOutput{}, err
	}

	// chromem rejects nResults above the collection size.
	n := min(r.opts.Limit, r.collection.Count())

	r.opts.Logger.Debug("retrieval.query", "task", r.name, "backend", "chromem", "limit", n)

	var results []chromem.Result
	if n > 0 {
		results, err = r.collection.Query(ctx, query, n, r.opts.Where, r.opts.WhereDocument)
		if err != nil {
			return core.TaskOutput{}, fmt.Errorf("query collection: %w", err)
		}
	}

	docs := make([]string, len(results))
	for i, res := range results {
		docs[i] = res.Content
	}

	return retrieval.Finish(ctx, r.opts.Options, query, docs, results)
}
