package rerank

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/hupe1980/taskmesh/core"
)

// Compile-time interface check.
var _ Reranker = (*Cached)(nil)

// CachedOptions configures Cached.
type CachedOptions struct {
	// MaxEntries bounds the number of cached rankings.
	MaxEntries int64
	// TTL expires entries; zero keeps them until evicted.
	TTL time.Duration
}

// Cached memoizes the ranking produced by another Reranker. Entries are keyed
// by query and the exact document list, so any change to the documents is a
// miss.
type Cached struct {
	next  Reranker
	cache *ristretto.Cache[string, []string]
	ttl   time.Duration
}

// NewCached wraps next with a ristretto cache.
func NewCached(next Reranker, optFns ...func(o *CachedOptions)) (*Cached, error) {
	opts := CachedOptions{MaxEntries: 1024}
	for _, fn := range optFns {
		fn(&opts)
	}

	if next == nil {
		return nil, fmt.Errorf("%w: reranker", core.ErrMissingArgument)
	}

	if opts.MaxEntries < 1 {
		opts.MaxEntries = 1
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []string]{
		NumCounters: opts.MaxEntries * 10, // ~10x expected items
		MaxCost:     opts.MaxEntries,
		BufferItems: 64,
		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create rerank cache: %w", err)
	}

	return &Cached{next: next, cache: c, ttl: opts.TTL}, nil
}

// Rerank implements Reranker.
func (c *Cached) Rerank(ctx context.Context, query string, docs []string) ([]string, error) {
	key := cacheKey(query, docs)

	if hit, ok := c.cache.Get(key); ok {
		return slices.Clone(hit), nil
	}

	ranked, err := c.next.Rerank(ctx, query, docs)
	if err != nil {
		return nil, err
	}

	c.cache.SetWithTTL(key, slices.Clone(ranked), 1, c.ttl)
	c.cache.Wait()

	return ranked, nil
}

// Close releases the cache.
func (c *Cached) Close() { c.cache.Close() }

func cacheKey(query string, docs []string) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:%s", len(query), query)

	for _, d := range docs {
		_, _ = fmt.Fprintf(h, "|%d:%s", len(d), d)
	}

	return hex.EncodeToString(h.Sum(nil))
}
