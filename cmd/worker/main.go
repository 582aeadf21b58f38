package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/vetassist/docpipeline/internal/config"
	"github.com/vetassist/docpipeline/internal/database"
	"github.com/vetassist/docpipeline/internal/embedding"
	"github.com/vetassist/docpipeline/internal/ingest"
	"github.com/vetassist/docpipeline/internal/llm"
	"github.com/vetassist/docpipeline/internal/queue"
	"github.com/vetassist/docpipeline/internal/queue/workers"
	"github.com/vetassist/docpipeline/internal/rag"
	"github.com/vetassist/docpipeline/internal/storage"
	"github.com/vetassist/docpipeline/internal/vectorstore"
	"github.com/vetassist/docpipeline/pkg/chunker"
	"github.com/vetassist/docpipeline/pkg/tokenizer"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	codec, err := tokenizer.NewCL100K()
	if err != nil {
		slog.Error("failed to load tokenizer", "error", err)
		os.Exit(1)
	}

	gw := llm.NewGateway(cfg.LLM)
	store := storage.NewSupabaseStorage(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey)
	docSvc := ingest.NewService(db, store, cfg.Storage.Bucket)

	orch := ingest.NewOrchestrator(
		docSvc,
		chunker.New(codec),
		embedding.NewService(gw, cfg.LLM.EmbeddingModel),
		vectorstore.NewPgVectorStore(db),
		rag.NewSummarizer(gw, cfg.LLM.DefaultModel),
		store,
		cfg.Storage.Bucket,
		cfg.Ingest.ChunkMaxTokens,
	)

	sweeper := ingest.NewSweeper(docSvc.SweepAbandoned, cfg.Ingest.SweepAfter, cfg.Ingest.SweepAfter)
	go sweeper.Run(ctx)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewRegistry()

	ingestWorker := workers.NewIngestWorker(orch)
	registry.RegisterFunc(queue.TypeDocumentIngest, ingestWorker.ProcessTask)

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
