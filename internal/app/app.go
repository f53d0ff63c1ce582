// Package app assembles the application: config, logging, tracing,
// database, embedder, model server client and the question pipeline,
// in dependency order with cleanup on partial failure.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/twnlp/dbqa/db"
	"github.com/twnlp/dbqa/internal/chatmodel"
	"github.com/twnlp/dbqa/internal/config"
	"github.com/twnlp/dbqa/internal/docstore"
	"github.com/twnlp/dbqa/internal/embed"
	"github.com/twnlp/dbqa/internal/ingest"
	"github.com/twnlp/dbqa/internal/llama"
	"github.com/twnlp/dbqa/internal/observability"
	"github.com/twnlp/dbqa/internal/rag"
)

// App holds the wired components. Close releases them in reverse
// order.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Store    *docstore.Store
	Embedder *embed.Service
	Model    *chatmodel.Model
	Pipeline *rag.Pipeline
	Ingest   *ingest.Service

	otelShutdown func(context.Context) error
}

// Setup wires the application from cfg. On error everything already
// initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.otelShutdown = shutdown

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	a.Pool = pool
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	embedder, err := embed.New(ctx, cfg.OllamaHost, cfg.EmbedderModel, logger)
	if err != nil {
		return nil, err
	}
	a.Embedder = embedder

	a.Store = docstore.New(pool, embedder, logger)

	client := llama.New(cfg.LlamaServer, llama.Params{
		MaxLength:         cfg.MaxLength,
		Temperature:       cfg.Temperature,
		TopP:              cfg.TopP,
		RepetitionPenalty: cfg.RepetitionPenalty,
	}, logger)

	model, err := chatmodel.New(client, client, chatmodel.Params{
		InputTokenLimit: cfg.InputTokenLimit,
		PrependPersona:  cfg.PrependPersona,
		StopPhrases:     cfg.StopPhrases,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("building chat model: %w", err)
	}
	a.Model = model

	a.Pipeline = rag.New(a.Store, model, cfg.TopK, logger)
	a.Ingest = ingest.NewService(a.Store, embedder,
		ingest.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap), logger)

	return a, nil
}

// Close releases held resources. Safe to call on a partially built
// App.
func (a *App) Close() error {
	var errs []error
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}
