package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	"github.com/kailas-cloud/docqa/internal/db"
	dbredis "github.com/kailas-cloud/docqa/internal/db/redis"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/loader"
	"github.com/kailas-cloud/docqa/internal/metrics"
	budgetrepo "github.com/kailas-cloud/docqa/internal/repository/budget"
	chunkrepo "github.com/kailas-cloud/docqa/internal/repository/chunk"
	"github.com/kailas-cloud/docqa/internal/repository/embcache"
	"github.com/kailas-cloud/docqa/internal/repository/memory"
	milvusrepo "github.com/kailas-cloud/docqa/internal/repository/milvus"
	openaiTransport "github.com/kailas-cloud/docqa/internal/transport/openai"
	answeruc "github.com/kailas-cloud/docqa/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/docqa/internal/usecase/embedding"
	evaluationuc "github.com/kailas-cloud/docqa/internal/usecase/evaluation"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/docqa/internal/usecase/indexing"
	qauc "github.com/kailas-cloud/docqa/internal/usecase/qa"
	retrievaluc "github.com/kailas-cloud/docqa/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/docqa/internal/usecase/usage"
)

// vectorIndex is what every index backend offers the composition root.
type vectorIndex interface {
	EnsureIndex(ctx context.Context) error
	Reset(ctx context.Context) (int, error)
	indexinguc.Index
	retrievaluc.Searcher
}

// embedder is a decorated chain usable for both single and batch calls.
type embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// components is the wired application graph.
type components struct {
	cfg     config.Config
	index   vectorIndex
	indexer *indexinguc.Service
	qa      *qauc.Service
	usage   *usageuc.Service
	health  *healthuc.Service
	closers []func()
}

// Close releases database connections in reverse order of creation.
func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// wire builds the application graph from cfg. The caller must Close the result.
func wire(ctx context.Context, cfg config.Config, logger *zap.Logger) (*components, error) {
	metrics.Register()

	c := &components{cfg: cfg}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		c.closers = append(c.closers, store.Close)
		logger.Info("Connected to database",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("addrs", cfg.Database.Addrs),
		)
	}

	index, pinger, err := openIndex(ctx, cfg, store, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	if closer, ok := index.(interface{ Close(context.Context) error }); ok {
		c.closers = append(c.closers, func() { _ = closer.Close(context.Background()) })
	}
	if err := index.EnsureIndex(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("ensure index: %w", err)
	}
	c.index = index

	// Single BudgetTracker shared by both embedders and the usage service.
	budget := buildBudget(ctx, cfg, store, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker embeddinguc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	var cache db.KVStore
	if store != nil && cfg.Embedding.Cache {
		cache = store
	}
	embCfg := cfg.Embedding
	provCfg := cfg.Providers[embCfg.Provider]
	docEmbedder := buildEmbedder(embCfg, provCfg, embCfg.DocumentInstruction, cache, budgetChecker, logger)
	queryEmbedder := buildEmbedder(embCfg, provCfg, embCfg.QueryInstruction, cache, budgetChecker, logger)
	logger.Info("Embedders created",
		zap.String("provider", embCfg.Provider),
		zap.String("model", embCfg.Model),
		zap.Int("dimensions", embCfg.Dimensions),
	)

	c.indexer = indexinguc.New(loader.Load, docEmbedder, index, indexinguc.Options{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		BatchSize:    embCfg.BatchSize,
	}, logger)

	answerGen := buildGenerator(cfg, cfg.LLM.Provider, cfg.LLM.Model, "answer", logger)
	retriever := retrievaluc.New(queryEmbedder, index)
	assembler := answeruc.New(answerGen, cfg.RAG.SystemPrompt, cfg.LLM.Temperature)

	// nil interface disables evaluation
	var evaluator qauc.Evaluator
	if cfg.Evaluation.Enabled {
		judgeGen := buildGenerator(cfg, cfg.Evaluation.Provider, cfg.Evaluation.Model, "judge", logger)
		judge := evaluationuc.NewJudge(judgeGen, queryEmbedder, cfg.Evaluation.RelevancyQuestions)
		evaluator = evaluationuc.New(judge, cfg.Evaluation.FaithfulnessThreshold, logger)
	}
	c.qa = qauc.New(retriever, assembler, evaluator, cfg.RAG.RetrievalK, logger)

	c.usage = usageuc.New(budgetReader)
	c.health = healthuc.New(pinger,
		openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      embCfg.Model,
			Dimensions: embCfg.Dimensions,
			Provider:   embCfg.Provider,
			Logger:     logger,
		}),
		answerGen,
	)
	return c, nil
}

// openStore connects to Redis or Valkey. Other drivers have no key-value store.
func openStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	if !cfg.UsesKV() {
		return nil, nil
	}
	flavor := dbredis.FlavorValkey
	if cfg.Database.Driver == "redis" {
		flavor = dbredis.FlavorRedis
	}
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
		Flavor:   flavor,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	return store, nil
}

// openIndex selects the vector index backend by driver.
func openIndex(
	ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger,
) (vectorIndex, healthuc.IndexPinger, error) {
	switch cfg.Database.Driver {
	case "valkey", "redis":
		repo := chunkrepo.New(store, chunkrepo.Config{
			Collection:      cfg.Database.Collection,
			Dimensions:      cfg.Embedding.Dimensions,
			HNSWM:           cfg.Index.HNSWM,
			HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
		})
		return repo, store, nil
	case "milvus":
		repo, err := milvusrepo.New(ctx, milvusrepo.Config{
			Address:         cfg.Database.Addrs[0],
			DBName:          cfg.Database.Name,
			Password:        cfg.Database.Password,
			Collection:      cfg.Database.Collection,
			Dimensions:      cfg.Embedding.Dimensions,
			HNSWM:           cfg.Index.HNSWM,
			HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect milvus: %w", err)
		}
		return repo, repo, nil
	case "memory":
		logger.Warn("Using in-memory vector index, chunks are lost on exit")
		idx := memory.New(cfg.Embedding.Dimensions)
		return idx, idx, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// buildBudget returns nil when the embedding provider has no limits.
// Counters persist only when a key-value store is available.
func buildBudget(
	ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger,
) *embeddinguc.BudgetTracker {
	provName := cfg.Embedding.Provider
	budgetCfg := cfg.Providers[provName].Budget
	if budgetCfg.DailyTokenLimit <= 0 && budgetCfg.MonthlyTokenLimit <= 0 {
		return nil
	}
	budget := embeddinguc.NewBudgetTracker(
		provName,
		embeddinguc.Limits{Daily: budgetCfg.DailyTokenLimit, Monthly: budgetCfg.MonthlyTokenLimit},
		embeddinguc.ParseBudgetAction(budgetCfg.Action),
		logger,
	)
	if store != nil {
		budget.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
	}
	return budget
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	provCfg config.ProviderConfig,
	instruction string,
	cache db.KVStore,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) embedder {
	var chain embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embCfg.Provider,
		Logger:     logger,
	})

	if cache != nil {
		chain = embcache.New(chain, cache, embCfg.Model, 0, metrics.EmbeddingCacheTotal, logger)
	}

	chain = embeddinguc.NewInstrumentedEmbedder(chain, embCfg.Provider, embCfg.Model, budget, logger).
		WithMaxBatch(embCfg.BatchSize)

	// outermost, so the cache key includes the instruction
	if instruction != "" {
		return domain.NewInstructionEmbedder(chain, instruction)
	}
	return chain
}

func buildGenerator(cfg config.Config, provider, model, purpose string, logger *zap.Logger) *openaiTransport.Generator {
	provCfg := cfg.Providers[provider]
	return openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:    provCfg.APIKey,
		BaseURL:   provCfg.BaseURL,
		Model:     model,
		Provider:  provider,
		Purpose:   purpose,
		MaxTokens: cfg.LLM.MaxTokens,
		Logger:    logger,
	})
}
