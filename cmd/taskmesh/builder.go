package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	chromemdb "github.com/philippgille/chromem-go"

	"github.com/hupe1980/taskmesh/agent"
	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/job"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	anthropicchat "github.com/hupe1980/taskmesh/model/anthropic"
	coherechat "github.com/hupe1980/taskmesh/model/cohere"
	openaichat "github.com/hupe1980/taskmesh/model/openai"
	"github.com/hupe1980/taskmesh/rerank"
	"github.com/hupe1980/taskmesh/retrieval"
	"github.com/hupe1980/taskmesh/retrieval/chromem"
	"github.com/hupe1980/taskmesh/retrieval/pgvector"
	"github.com/hupe1980/taskmesh/task"
)

// runnable is the part of a job the CLI drives.
type runnable interface {
	Run(ctx context.Context, input string) error
	TaskOutput(name string) (core.TaskOutput, bool)
	Tasks() []string
}

// builder turns a job file into tasks wired to the configured provider.
type builder struct {
	cfg    *config.Config
	logger logging.Logger

	// newChat, embed and db are replaced in tests.
	newChat func(systemPrompt string) model.Chat
	embed   retrieval.EmbeddingFunc
	db      pgvector.Querier

	reranker rerank.Reranker
	closers  []func()
}

func newBuilder(cfg *config.Config, logger logging.Logger) *builder {
	b := &builder{cfg: cfg, logger: logging.OrNoOp(logger)}
	b.newChat = b.providerChat

	return b
}

// Close releases caches created while building.
func (b *builder) Close() {
	for _, fn := range b.closers {
		fn()
	}
}

func (b *builder) providerChat(systemPrompt string) model.Chat {
	p := b.cfg.Provider

	if systemPrompt == "" {
		systemPrompt = p.SystemPrompt
	}

	switch p.Name {
	case config.ProviderCohere:
		return coherechat.NewChat(func(o *coherechat.Options) {
			if p.Model != "" {
				o.Model = p.Model
			}
			o.Temperature = p.Temperature
			o.MaxTokens = int(p.MaxTokens)
			o.SystemPrompt = systemPrompt
			o.APIKey = p.APIKey
			o.BaseURL = p.BaseURL
		})
	case config.ProviderAnthropic:
		return anthropicchat.NewChat(func(o *anthropicchat.Options) {
			if p.Model != "" {
				o.Model = anthropicsdk.Model(p.Model)
			}
			o.Temperature = p.Temperature
			o.MaxTokens = p.MaxTokens
			o.SystemPrompt = systemPrompt
			o.APIKey = p.APIKey
			o.BaseURL = p.BaseURL
		})
	}

	return openaichat.NewChat(func(o *openaichat.Options) {
		if p.Model != "" {
			o.Model = p.Model
		}
		o.Temperature = p.Temperature
		o.MaxCompletionTokens = p.MaxTokens
		o.SystemPrompt = systemPrompt
		o.APIKey = p.APIKey
		o.BaseURL = p.BaseURL
	})
}

func (b *builder) job(ctx context.Context, jf *config.JobFile) (runnable, error) {
	opts := func(o *job.Options) { o.Logger = b.logger }

	if jf.Mode == config.ModeConcurrent {
		j := job.NewConcurrentJob(opts)

		for _, spec := range jf.Tasks {
			t, err := b.task(ctx, spec)
			if err != nil {
				return nil, err
			}
			j.AddTask(t)
		}

		return j, j.Err()
	}

	j := job.NewSequentialJob(opts)

	for _, spec := range jf.Tasks {
		t, err := b.task(ctx, spec)
		if err != nil {
			return nil, err
		}

		if spec.Input != "" {
			j.AddTask(t, spec.Input)
		} else {
			j.AddTask(t)
		}
	}

	return j, j.Err()
}

func (b *builder) task(ctx context.Context, spec config.TaskSpec) (core.Task, error) {
	switch spec.Kind {
	case config.KindTextGen:
		return task.NewTextGen(spec.Name, b.newChat(spec.SystemPrompt), func(o *task.TextGenOptions) {
			o.Logger = b.logger
		})
	case config.KindAgent:
		tools, err := builtinTools(spec.Tools)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", spec.Name, err)
		}

		return agent.New(spec.Name, b.newChat(spec.SystemPrompt), func(o *agent.Options) {
			o.MaxTurns = b.cfg.Agent.MaxTurns
			if spec.MaxTurns > 0 {
				o.MaxTurns = spec.MaxTurns
			}
			o.Tools = tools
			o.Logger = b.logger
		})
	case config.KindRetrieve:
		return b.retriever(ctx, spec)
	default:
		return nil, fmt.Errorf("task %s: unknown kind %q", spec.Name, spec.Kind)
	}
}

func (b *builder) retriever(ctx context.Context, spec config.TaskSpec) (core.Task, error) {
	embed, err := b.embedding()
	if err != nil {
		return nil, err
	}

	reranker, err := b.rerank()
	if err != nil {
		return nil, err
	}

	limit := b.cfg.Retrieval.Limit
	if spec.Limit > 0 {
		limit = spec.Limit
	}

	if spec.Table != "" {
		db, err := b.postgres(ctx)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", spec.Name, err)
		}

		return pgvector.New(spec.Name, db, embed, func(o *pgvector.Options) {
			o.Table = spec.Table
			o.Where = spec.Where
			o.Distance = pgvector.Distance(b.cfg.Retrieval.Distance)
			o.Limit = limit
			o.Reranker = reranker
			o.Logger = b.logger
		})
	}

	collection, err := chromem.OpenCollection(chromemdb.NewDB(), spec.Name, embed)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", spec.Name, err)
	}

	r, err := chromem.New(spec.Name, collection, func(o *chromem.Options) {
		o.Limit = limit
		o.Reranker = reranker
		o.Logger = b.logger
	})
	if err != nil {
		return nil, err
	}

	return &seededRetriever{Retriever: r, collection: collection, docs: spec.Documents}, nil
}

func (b *builder) embedding() (retrieval.EmbeddingFunc, error) {
	if b.embed != nil {
		return b.embed, nil
	}

	apiKey := ""
	if b.cfg.Provider.Name == config.ProviderOpenAI {
		apiKey = b.cfg.Provider.APIKey
	}

	e, err := retrieval.NewOpenAIEmbedder(func(o *retrieval.EmbedderOptions) {
		o.Model = openaisdk.EmbeddingModel(b.cfg.Retrieval.EmbeddingModel)
		o.CacheSize = b.cfg.Retrieval.EmbeddingCacheSize
		o.APIKey = apiKey
	})
	if err != nil {
		return nil, err
	}

	b.embed = e.Func()

	return b.embed, nil
}

// postgres returns a shared pool, checked with a ping when first opened.
func (b *builder) postgres(ctx context.Context) (pgvector.Querier, error) {
	if b.db != nil {
		return b.db, nil
	}

	if b.cfg.Retrieval.DSN == "" {
		return nil, fmt.Errorf("%w: retrieval.dsn", core.ErrMissingArgument)
	}

	pool, err := pgvector.Connect(ctx, b.cfg.Retrieval.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	b.closers = append(b.closers, pool.Close)
	b.db = pool

	return b.db, nil
}

func (b *builder) rerank() (rerank.Reranker, error) {
	rc := b.cfg.Retrieval.Rerank
	if b.reranker != nil || rc.APIKey == "" {
		return b.reranker, nil
	}

	cohere, err := rerank.NewCohereReranker(func(o *rerank.CohereOptions) {
		o.APIKey = rc.APIKey
		o.Model = rc.Model
		if rc.BaseURL != "" {
			o.BaseURL = rc.BaseURL
		}
		o.Logger = b.logger
	})
	if err != nil {
		return nil, err
	}

	cached, err := rerank.NewCached(cohere, func(o *rerank.CachedOptions) {
		o.MaxEntries = rc.CacheSize
	})
	if err != nil {
		return nil, err
	}

	b.closers = append(b.closers, cached.Close)
	b.reranker = cached

	return b.reranker, nil
}

// seededRetriever embeds its documents into the collection on first use so
// that building a job never calls the embedding provider.
type seededRetriever struct {
	*chromem.Retriever
	collection *chromemdb.Collection
	docs       []string

	once sync.Once
	err  error
}

func (s *seededRetriever) Execute(ctx context.Context, input core.TaskInput) (core.TaskOutput, error) {
	s.once.Do(func() {
		docs := make([]chromemdb.Document, len(s.docs))
		for i, content := range s.docs {
			docs[i] = chromemdb.Document{ID: strconv.Itoa(i), Content: content}
		}

		if err := s.collection.AddDocuments(ctx, docs, 4); err != nil {
			s.err = fmt.Errorf("seed collection: %w", err)
		}
	})

	if s.err != nil {
		return core.TaskOutput{}, s.err
	}

	return s.Retriever.Execute(ctx, input)
}
