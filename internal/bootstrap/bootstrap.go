// Package bootstrap wires the configured backends into ready use cases. The
// api and worker binaries share this assembly so a single-binary deployment
// and a split one build the exact same graph.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/antonved/knowledge-engine/internal/config"
	"github.com/antonved/knowledge-engine/internal/core/grounding"
	"github.com/antonved/knowledge-engine/internal/core/ports"
	"github.com/antonved/knowledge-engine/internal/core/usecase"
	"github.com/antonved/knowledge-engine/internal/infrastructure/chunking"
	"github.com/antonved/knowledge-engine/internal/infrastructure/embedding/hash"
	"github.com/antonved/knowledge-engine/internal/infrastructure/embedding/openai"
	channelqueue "github.com/antonved/knowledge-engine/internal/infrastructure/queue/channel"
	natsqueue "github.com/antonved/knowledge-engine/internal/infrastructure/queue/nats"
	"github.com/antonved/knowledge-engine/internal/infrastructure/repository/memstore"
	"github.com/antonved/knowledge-engine/internal/infrastructure/repository/postgres"
	"github.com/antonved/knowledge-engine/internal/infrastructure/resilience"
	vectormemory "github.com/antonved/knowledge-engine/internal/infrastructure/vector/memory"
)

type App struct {
	Config config.Config

	Repo        ports.DocumentRepository
	Tenants     ports.TenantStore
	Provisioner ports.TenantProvisioner
	Queue       ports.JobQueue
	Vectors     ports.VectorStore

	SubmitUC  *usecase.SubmitDocumentUseCase
	ProcessUC *usecase.ProcessDocumentUseCase
	QueryUC   *usecase.QueryUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	var (
		repo        ports.DocumentRepository
		tenants     ports.TenantStore
		provisioner ports.TenantProvisioner
		closeFn     = func() {}
	)

	switch cfg.StoreBackend {
	case "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		docRepo := postgres.NewDocumentRepository(db)
		if err := docRepo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		tenantRepo := postgres.NewTenantRepository(db, cfg.QueryWindow)
		repo = docRepo
		tenants = tenantRepo
		provisioner = tenantRepo
		closeFn = func() { _ = db.Close() }
	case "memory":
		tenantStore := memstore.NewTenantStore(cfg.QueryWindow)
		repo = memstore.NewDocumentStore()
		tenants = tenantStore
		provisioner = tenantStore
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	var queue ports.JobQueue
	var closeQueue func()
	switch cfg.QueueBackend {
	case "nats":
		q, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			closeFn()
			return nil, fmt.Errorf("init nats queue: %w", err)
		}
		queue = q
		closeQueue = q.Close
	case "channel":
		q, err := channelqueue.New(cfg.ChannelQueueBuffer, cfg.ChannelQueueWorkers)
		if err != nil {
			closeFn()
			return nil, fmt.Errorf("init channel queue: %w", err)
		}
		queue = q
		closeQueue = q.Close
	default:
		closeFn()
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}

	var embedder ports.Embedder
	switch cfg.EmbedderBackend {
	case "openai":
		embedder = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbedModel, cfg.EmbedDimension, executor)
	case "hash":
		embedder = hash.NewEmbedder(cfg.EmbedDimension)
	default:
		closeQueue()
		closeFn()
		return nil, fmt.Errorf("unknown embedder backend %q", cfg.EmbedderBackend)
	}

	vectors := vectormemory.NewStore()
	chunker := chunking.NewSplitter(cfg.ChunkMaxWords)
	tracker := usecase.NewJobTracker()
	engine := grounding.NewEngine(grounding.DefaultConfig())

	submitUC := usecase.NewSubmitDocumentUseCase(repo, tenants, queue, tracker)
	processUC := usecase.NewProcessDocumentUseCase(repo, chunker, embedder, vectors, tracker, usecase.ProcessConfig{
		BatchSize:  cfg.EmbedBatchSize,
		BatchPause: time.Duration(cfg.BatchPauseMS) * time.Millisecond,
	})
	queryUC := usecase.NewQueryUseCase(tenants, embedder, vectors, engine, usecase.QueryConfig{
		TopK:          cfg.SearchTopK,
		MinSimilarity: cfg.MinSimilarity,
	})

	storeClose := closeFn
	return &App{
		Config: cfg,

		Repo:        repo,
		Tenants:     tenants,
		Provisioner: provisioner,
		Queue:       queue,
		Vectors:     vectors,

		SubmitUC:  submitUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

		closeFn: func() {
			closeQueue()
			storeClose()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
