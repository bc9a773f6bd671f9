package retrieval

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// EmbedderOptions configures OpenAIEmbedder.
type EmbedderOptions struct {
	Model     openai.EmbeddingModel
	CacheSize int
	APIKey    string
	BaseURL   string
}

// OpenAIEmbedder creates embeddings with the OpenAI embeddings API and keeps
// recent results in an LRU cache.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	cache  *lru.Cache[string, []float32]
}

// NewOpenAIEmbedder creates an embedder using a new client without retries.
func NewOpenAIEmbedder(optFns ...func(o *EmbedderOptions)) (*OpenAIEmbedder, error) {
	opts := EmbedderOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)

	return NewOpenAIEmbedderFromClient(&client, optFns...)
}

// NewOpenAIEmbedderFromClient creates an embedder from an existing client.
func NewOpenAIEmbedderFromClient(client *openai.Client, optFns ...func(o *EmbedderOptions)) (*OpenAIEmbedder, error) {
	opts := EmbedderOptions{
		Model:     openai.EmbeddingModelTextEmbedding3Small,
		CacheSize: 10000,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.CacheSize < 1 {
		opts.CacheSize = 1
	}

	cache, err := lru.New[string, []float32](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &OpenAIEmbedder{client: client, model: opts.Model, cache: cache}, nil
}

// Embed returns the embedding for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return vecs[0], nil
}

// EmbedBatch returns embeddings for texts in order, calling the API only for
// texts not in the cache.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided")
	}

	results := make([][]float32, len(texts))
	var (
		missIdx   []int
		missTexts []string
	)

	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			results[i] = cached
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: missTexts},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(resp.Data) != len(missTexts) {
		return nil, fmt.Errorf("openai embeddings: expected %d vectors, got %d", len(missTexts), len(resp.Data))
	}

	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(missTexts) {
			return nil, fmt.Errorf("openai embeddings: invalid index %d", d.Index)
		}

		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}

		idx := missIdx[d.Index]
		results[idx] = vec
		e.cache.Add(texts[idx], vec)
	}

	return results, nil
}

// Func returns Embed as an EmbeddingFunc.
func (e *OpenAIEmbedder) Func() EmbeddingFunc { return e.Embed }
