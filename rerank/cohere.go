package rerank

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	coherecore "github.com/cohere-ai/cohere-go/v2/core"
	"github.com/cohere-ai/cohere-go/v2/option"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// DefaultCohereModel is the rerank model used when none is configured.
const DefaultCohereModel = "rerank-english-v2.0"

// Compile-time interface check.
var _ Reranker = (*CohereReranker)(nil)

// CohereOptions configures CohereReranker.
type CohereOptions struct {
	Model string
	// TopN limits the number of returned documents. Zero returns all.
	TopN int
	// APIKey, BaseURL and HTTPClient are only used by NewCohereReranker.
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     logging.Logger
}

// CohereReranker reorders documents with the Cohere rerank API.
type CohereReranker struct {
	client *cohereclient.Client
	opts   CohereOptions
}

// APIError is returned when the Cohere API answers with an error status.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cohere rerank: status %d: %v", e.StatusCode, e.Err)
}

// Unwrap returns the SDK error.
func (e *APIError) Unwrap() error { return e.Err }

func defaultCohereOptions() CohereOptions {
	return CohereOptions{
		Model:  DefaultCohereModel,
		Logger: logging.NoOpLogger{},
	}
}

// NewCohereReranker creates a reranker using a new official client. SDK
// retries are disabled.
func NewCohereReranker(optFns ...func(o *CohereOptions)) (*CohereReranker, error) {
	opts := defaultCohereOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: cohere api key", core.ErrMissingArgument)
	}

	clientOpts := []option.RequestOption{
		option.WithToken(opts.APIKey),
		option.WithMaxAttempts(1),
	}

	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")))
	}

	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return NewCohereRerankerFromClient(cohereclient.NewClient(clientOpts...), optFns...)
}

// NewCohereRerankerFromClient creates a reranker from an existing client.
func NewCohereRerankerFromClient(client *cohereclient.Client, optFns ...func(o *CohereOptions)) (*CohereReranker, error) {
	opts := defaultCohereOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if client == nil {
		return nil, fmt.Errorf("%w: cohere client", core.ErrMissingArgument)
	}

	if opts.Model == "" {
		opts.Model = DefaultCohereModel
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &CohereReranker{client: client, opts: opts}, nil
}

// Rerank implements Reranker.
func (r *CohereReranker) Rerank(ctx context.Context, query string, docs []string) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}

	indices, err := r.rank(ctx, query, docs)
	if err != nil {
		return nil, err
	}

	return reorder(docs, indices), nil
}

func (r *CohereReranker) rank(ctx context.Context, query string, docs []string) ([]int, error) {
	items := make([]*cohere.RerankRequestDocumentsItem, len(docs))
	for i, d := range docs {
		items[i] = &cohere.RerankRequestDocumentsItem{String: d}
	}

	returnDocuments := false

	req := &cohere.RerankRequest{
		Model:           &r.opts.Model,
		Query:           query,
		Documents:       items,
		ReturnDocuments: &returnDocuments,
	}

	if r.opts.TopN > 0 {
		topN := r.opts.TopN
		req.TopN = &topN
	}

	r.opts.Logger.Debug("rerank.request", "model", r.opts.Model, "docs", len(docs))

	resp, err := r.client.Rerank(ctx, req)
	if err != nil {
		r.opts.Logger.Error("rerank.error", "model", r.opts.Model, "error", err)
		return nil, classifyError(err)
	}

	indices := make([]int, len(resp.Results))
	for i, res := range resp.Results {
		indices[i] = res.Index
	}

	return indices, nil
}

// classifyError keeps the HTTP status of API failures.
func classifyError(err error) error {
	var apiErr *coherecore.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.StatusCode, Err: err}
	}

	return fmt.Errorf("cohere rerank: %w", err)
}
