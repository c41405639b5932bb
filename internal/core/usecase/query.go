package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/antonved/knowledge-engine/internal/core/domain"
	"github.com/antonved/knowledge-engine/internal/core/grounding"
	"github.com/antonved/knowledge-engine/internal/core/ports"
)

type QueryConfig struct {
	TopK          int
	MinSimilarity float64
}

// QueryUseCase answers a question against one tenant's knowledge base.
// Retrieval failures degrade to the grounding engine's canned response;
// conversational continuity beats exposing internal failure detail.
type QueryUseCase struct {
	tenants  ports.TenantStore
	embedder ports.Embedder
	vectors  ports.VectorStore
	engine   *grounding.Engine
	cfg      QueryConfig
}

func NewQueryUseCase(
	tenants ports.TenantStore,
	embedder ports.Embedder,
	vectors ports.VectorStore,
	engine *grounding.Engine,
	cfg QueryConfig,
) *QueryUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &QueryUseCase{
		tenants:  tenants,
		embedder: embedder,
		vectors:  vectors,
		engine:   engine,
		cfg:      cfg,
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, tenantID, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query",
			errors.New("question is required"))
	}

	// Quota is the one error the caller must see; everything past this
	// point degrades gracefully.
	if err := uc.tenants.ReserveQuery(ctx, tenantID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("reserve query: %w", err)
	}

	queryVector, err := uc.embedder.Embed(ctx, question)
	if err != nil {
		slog.Warn("query embedding failed, serving default answer",
			"tenant_id", tenantID, "error", err)
		return uc.defaultAnswer(question), nil
	}

	matches, err := uc.vectors.Search(ctx, tenantID, queryVector, ports.SearchOptions{
		Limit:         uc.cfg.TopK,
		MinSimilarity: uc.cfg.MinSimilarity,
	})
	if err != nil {
		slog.Error("vector search failed, serving default answer",
			"tenant_id", tenantID, "error", err)
		return uc.defaultAnswer(question), nil
	}

	answer := uc.engine.Answer(question, matches)
	return &answer, nil
}

func (uc *QueryUseCase) defaultAnswer(question string) *domain.Answer {
	answer := uc.engine.Answer(question, nil)
	return &answer
}
