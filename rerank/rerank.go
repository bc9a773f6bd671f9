// Package rerank reorders retrieved documents by relevance to a query.
//
// CohereReranker calls the Cohere rerank API through the official SDK. Cached wraps
// any Reranker with an in-process ristretto cache keyed by query and
// documents.
package rerank

import "context"

// Reranker reorders docs by relevance to query. Implementations return a new
// slice and never modify document content.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]string, error)
}

// Func adapts a plain function to Reranker.
type Func func(ctx context.Context, query string, docs []string) ([]string, error)

// Rerank implements Reranker.
func (f Func) Rerank(ctx context.Context, query string, docs []string) ([]string, error) {
	return f(ctx, query, docs)
}

// reorder returns docs in the order given by indices. Out of range indices
// are skipped.
func reorder(docs []string, indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(docs) {
			continue
		}
		out = append(out, docs[i])
	}

	return out
}
