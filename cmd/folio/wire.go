package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/foliolabs/folio"
	"github.com/foliolabs/folio/cache"
	"github.com/foliolabs/folio/cache/rediscache"
	"github.com/foliolabs/folio/cache/sqlitecache"
	"github.com/foliolabs/folio/ingest"
	"github.com/foliolabs/folio/ingest/pdf"
	"github.com/foliolabs/folio/internal/config"
	"github.com/foliolabs/folio/observer"
	"github.com/foliolabs/folio/provider/gemini"
	"github.com/foliolabs/folio/provider/openai"
	"github.com/foliolabs/folio/store/postgres"
	"github.com/foliolabs/folio/store/sqlite"
)

// app holds the wired pipeline and everything that must be released
// with it.
type app struct {
	cfg    config.Config
	engine *folio.Engine
	embeds *cache.EmbeddingCache

	closers  []io.Closer
	pool     *pgxpool.Pool
	shutdown func(context.Context) error
}

// wireApp builds the pipeline from config: embedding provider, index
// backend, cache tier, ingestor, retriever, engine. Components are
// wrapped with observability when the observer is enabled.
func wireApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	a := &app{cfg: cfg}

	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		inst, shutdown, err = observer.Init(ctx)
		if err != nil {
			return nil, fmt.Errorf("init observability: %w", err)
		}
		a.shutdown = shutdown
	}

	// Embedding provider: rate limited innermost, then retried, then
	// instrumented.
	embedding, model := buildProvider(cfg.Embedding)
	if cfg.Embedding.RequestsPerMinute > 0 || cfg.Embedding.TextsPerMinute > 0 {
		embedding = folio.WithEmbeddingRateLimit(embedding,
			folio.RPM(cfg.Embedding.RequestsPerMinute),
			folio.TextsPerMinute(cfg.Embedding.TextsPerMinute),
		)
	}
	embedding = folio.WithEmbeddingRetry(embedding, folio.RetryLogger(logger))
	if inst != nil {
		embedding = observer.WrapEmbedding(embedding, model, inst)
	}

	// Index backend.
	var index folio.Index
	switch cfg.Index.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Index.DSN)
		if err != nil {
			a.release()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		var iopts []postgres.Option
		if cfg.Embedding.Dimensions > 0 {
			iopts = append(iopts, postgres.WithEmbeddingDimension(cfg.Embedding.Dimensions))
		}
		index = postgres.New(pool, iopts...)
	default:
		index = sqlite.Open(cfg.Index.Path, sqlite.WithLogger(logger))
	}
	if inst != nil {
		index = observer.WrapIndex(index, cfg.Index.Backend, inst)
	}

	// Persistent cache tier.
	var store cache.Store
	switch cfg.Cache.Tier {
	case "sqlite":
		s, err := sqlitecache.Open(ctx, cfg.Cache.Path, sqlitecache.WithLogger(logger))
		if err != nil {
			a.release()
			return nil, fmt.Errorf("open cache store: %w", err)
		}
		a.closers = append(a.closers, s)
		store = s
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		a.closers = append(a.closers, client)
		store = rediscache.New(client)
	default:
		s, err := cache.NewFSStore(cfg.Cache.Dir)
		if err != nil {
			a.release()
			return nil, fmt.Errorf("open cache store: %w", err)
		}
		store = s
	}
	if inst != nil {
		store = observer.WrapStore(store, cfg.Cache.Tier, inst)
	}

	ttl, err := cfg.Cache.ParseTTL()
	if err != nil {
		a.release()
		return nil, err
	}
	embeds, err := cache.NewEmbeddingCache(
		cache.WithStore(store),
		cache.WithTTL(ttl),
		cache.WithCapacity(cfg.Cache.Capacity),
		cache.WithLogger(logger),
	)
	if err != nil {
		a.release()
		return nil, fmt.Errorf("build embedding cache: %w", err)
	}
	a.embeds = embeds
	var embedCache folio.EmbeddingCache = embeds
	if inst != nil {
		embedCache = observer.WrapCache(embeds, inst)
	}

	// Chunker.
	copts := []ingest.ChunkerOption{
		ingest.WithChunkSize(cfg.Chunking.Size),
		ingest.WithChunkOverlap(cfg.Chunking.Overlap),
	}
	var chunker ingest.Chunker
	switch cfg.Chunking.Strategy {
	case "recursive":
		chunker, err = ingest.NewRecursiveChunker(copts...)
	default:
		chunker, err = ingest.NewSemanticChunker(copts...)
	}
	if err != nil {
		a.release()
		return nil, err
	}
	if inst != nil {
		chunker = observer.WrapChunker(chunker, cfg.Chunking.Strategy, inst)
	}

	ingestor := ingest.NewIngestor(index, embedding,
		ingest.WithChunker(chunker),
		ingest.WithExtractor(ingest.TypePDF, pdf.NewExtractor()),
		ingest.WithEmbeddingCache(embedCache),
		ingest.WithBatchSize(cfg.Embedding.BatchSize),
		ingest.WithLogger(logger),
	)

	retriever := folio.NewRetriever(index, embedding,
		folio.WithMinScore(float32(cfg.Retrieval.MinScore)),
		folio.WithQueryCache(embedCache),
		folio.WithRetrieverLogger(logger),
	)

	a.engine = folio.NewEngine(index, ingestor, retriever, folio.WithEngineLogger(logger))
	return a, nil
}

// buildProvider constructs the configured embedding provider and reports
// the effective model name for observability.
func buildProvider(ec config.EmbeddingConfig) (folio.EmbeddingProvider, string) {
	switch ec.Provider {
	case "gemini":
		var opts []gemini.Option
		if ec.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(ec.BaseURL))
		}
		if ec.Dimensions > 0 {
			opts = append(opts, gemini.WithDimensions(ec.Dimensions))
		}
		model := ec.Model
		if model == "" {
			model = gemini.DefaultModel
		}
		return gemini.New(ec.APIKey, ec.Model, opts...), model
	default:
		var opts []openai.Option
		if ec.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(ec.BaseURL))
		}
		if ec.Dimensions > 0 {
			opts = append(opts, openai.WithDimensions(ec.Dimensions))
		}
		model := ec.Model
		if model == "" {
			model = openai.DefaultModel
		}
		return openai.New(ec.APIKey, ec.Model, opts...), model
	}
}

// release frees everything wired so far. Used on wiring failure and by
// Close.
func (a *app) release() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.closers = nil
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.shutdown != nil {
		_ = a.shutdown(context.Background())
		a.shutdown = nil
	}
}

// Close releases the engine and every backend the app opened.
func (a *app) Close() error {
	var errs []error
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
		a.shutdown = nil
	}
	return errors.Join(errs...)
}
