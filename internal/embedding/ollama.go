package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	olla "github.com/ollama/ollama/api"

	"docuchat/internal/config"
)

// Ollama uses a local Ollama server for embeddings, one text per request.
type Ollama struct {
	client    *olla.Client
	model     string
	dimension int
}

var _ Embedder = (*Ollama)(nil)

func NewOllama(cfg config.OllamaEmbeddingConfig, dimension int) (*Ollama, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: invalid base URL: %w", err)
	}
	hc := &http.Client{Timeout: 60 * time.Second}
	return &Ollama{
		client:    olla.NewClient(parsedURL, hc),
		model:     cfg.Model,
		dimension: dimension,
	}, nil
}

func (m *Ollama) Dimension() int { return m.dimension }

func (m *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := m.client.Embeddings(ctx, &olla.EmbeddingRequest{
		Model:  m.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	vector := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

func (m *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return batchBySingles(ctx, m, texts)
}
