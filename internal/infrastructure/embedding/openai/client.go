// Package openai adapts an OpenAI-compatible embeddings API to
// ports.Embedder, with typed error kinds and retry/backoff handled by the
// resilience executor.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/antonved/knowledge-engine/internal/core/domain"
	"github.com/antonved/knowledge-engine/internal/infrastructure/resilience"
)

type Client struct {
	api       *goopenai.Client
	model     goopenai.EmbeddingModel
	dimension int
	executor  *resilience.Executor
}

// New builds an embedding client. baseURL may point at any OpenAI-compatible
// provider; empty keeps the default. dimension is the provider-defined vector
// size; responses of any other size are rejected.
func New(apiKey, baseURL, model string, dimension int, executor *resilience.Executor) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:       goopenai.NewClientWithConfig(cfg),
		model:     goopenai.EmbeddingModel(model),
		dimension: dimension,
		executor:  executor,
	}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed: expected 1 vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out [][]float32
	call := func(ctx context.Context) error {
		resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
			Input: texts,
			Model: c.model,
		})
		if err != nil {
			return classifyAPIError("create embeddings", err)
		}
		if len(resp.Data) != len(texts) {
			return domain.WrapError(domain.ErrInvalidInput, "create embeddings",
				fmt.Errorf("vectors/texts mismatch: %d/%d", len(resp.Data), len(texts)))
		}

		vectors := make([][]float32, len(texts))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(vectors) {
				return fmt.Errorf("create embeddings: response index %d out of range", item.Index)
			}
			if c.dimension > 0 && len(item.Embedding) != c.dimension {
				return domain.WrapError(domain.ErrDimensionMismatch, "create embeddings",
					fmt.Errorf("provider returned %d dims, configured %d", len(item.Embedding), c.dimension))
			}
			vectors[item.Index] = item.Embedding
		}
		out = vectors
		return nil
	}

	if err := c.executor.Execute(ctx, "embeddings.create", call, classifyEmbedError); err != nil {
		return nil, err
	}
	return out, nil
}
