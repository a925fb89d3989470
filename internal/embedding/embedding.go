// Package embedding wraps a langchaingo embedder behind the provider
// contract the retrieval core consumes. Query-time and ingest-time
// embeddings share one model, so their dimensions always agree.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docqa/internal/config"
	"docqa/internal/models"
)

type Provider struct {
	embedder *embeddings.EmbedderImpl

	mu        sync.Mutex
	dimension int
}

// New builds the embedder once from configuration; the result is a
// long-lived client injected wherever embeddings are needed.
func New(cfg config.LLMConfig) (*Provider, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	return &Provider{embedder: embedder}, nil
}

func newEmbedder(cfg config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	default:
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
			openai.WithEmbeddingModel(cfg.Model),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	}
}

func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingProvider, err)
	}
	return vector, nil
}

func (p *Provider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingProvider, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", models.ErrEmbeddingProvider, len(vectors), len(texts))
	}
	return vectors, nil
}

// Dimension reports the model's output size, learned once by embedding a
// probe string and memoized for the provider's lifetime.
func (p *Provider) Dimension(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dimension != 0 {
		return p.dimension, nil
	}
	vector, err := p.EmbedQuery(ctx, "dimension probe")
	if err != nil {
		return 0, err
	}
	if len(vector) == 0 {
		return 0, fmt.Errorf("%w: embedder returned an empty vector", models.ErrEmbeddingProvider)
	}
	p.dimension = len(vector)
	return p.dimension, nil
}
