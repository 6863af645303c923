package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"docuchat/internal/config"
)

// HuggingFace calls the HF Inference feature-extraction pipeline.
type HuggingFace struct {
	client    *http.Client
	model     string
	apiKey    string
	baseURL   string
	dimension int
}

var _ Embedder = (*HuggingFace)(nil)

// NewHuggingFace creates the client. baseURL defaults to the public
// inference endpoint.
func NewHuggingFace(cfg config.HuggingFaceEmbeddingConfig, dimension int) (*HuggingFace, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("huggingface embedding: api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co/pipeline/feature-extraction/"
	}
	return &HuggingFace{
		client:    &http.Client{},
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		dimension: dimension,
	}, nil
}

func (m *HuggingFace) Dimension() int { return m.dimension }

func (m *HuggingFace) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *HuggingFace) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	payload := map[string]any{
		"inputs":  texts,
		"options": map[string]bool{"wait_for_model": true},
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+m.model, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding endpoint returned %d: %s", resp.StatusCode, body)
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding endpoint returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
