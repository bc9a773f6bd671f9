// Package retrieval contains the pieces shared by the vector retrieval tasks
// in the chromem and pgvector sub-packages: embedding functions, an OpenAI
// embedder with an LRU cache, and document post-processing.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/rerank"
)

// DefaultLimit is the number of documents retrieved when no limit is set.
const DefaultLimit = 10

// EmbeddingFunc turns a text into an embedding vector.
type EmbeddingFunc func(ctx context.Context, text string) ([]float32, error)

// DocProcessor turns the retrieved documents into the task's text output.
type DocProcessor func(docs []string) string

// DefaultDocProcessor numbers documents from zero and separates them with a
// blank line:
//
//	[0] first document
//
//	[1] second document
func DefaultDocProcessor(docs []string) string {
	var b strings.Builder

	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i, d)
	}

	return b.String()
}

// Options are shared by the retrieval tasks.
type Options struct {
	// Limit is the maximum number of documents to retrieve.
	Limit int
	// Reranker optionally reorders the retrieved documents.
	Reranker rerank.Reranker
	// DocProcessor formats the documents. Defaults to DefaultDocProcessor.
	DocProcessor DocProcessor
	Logger       logging.Logger
}

// DefaultOptions returns the baseline options.
func DefaultOptions() Options {
	return Options{
		Limit:        DefaultLimit,
		DocProcessor: DefaultDocProcessor,
		Logger:       logging.NoOpLogger{},
	}
}

// Normalize fills zero values with defaults.
func (o *Options) Normalize() {
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}

	if o.DocProcessor == nil {
		o.DocProcessor = DefaultDocProcessor
	}

	o.Logger = logging.OrNoOp(o.Logger)
}

// QueryText extracts the query from a task input.
func QueryText(input core.TaskInput) (string, error) {
	text, ok := input.Text()
	if !ok {
		return "", fmt.Errorf("%w: got %T", core.ErrInvalidInput, input.Content)
	}

	return text, nil
}

// Finish reranks docs (when configured) and formats them into the task output.
func Finish(ctx context.Context, opts Options, query string, docs []string, raw any) (core.TaskOutput, error) {
	if opts.Reranker != nil && len(docs) > 0 {
		ranked, err := opts.Reranker.Rerank(ctx, query, docs)
		if err != nil {
			return core.TaskOutput{}, fmt.Errorf("rerank: %w", err)
		}
		docs = ranked
	}

	return core.TaskOutput{Content: opts.DocProcessor(docs), RawOutput: raw}, nil
}
