package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"docuchat/internal/config"
	"docuchat/internal/models"
	"docuchat/pkg/logger"
)

// Reranker scores candidates against the query with a cross-encoder behind
// the HF inference API. When disabled it is an identity pass; when the
// endpoint fails the original order is kept.
type Reranker struct {
	client  *http.Client
	url     string
	apiKey  string
	enabled bool
	log     *logger.Logger
}

func NewReranker(cfg config.RetrievalConfig) *Reranker {
	url := cfg.RerankerBaseURL
	if url == "" {
		url = "https://router.huggingface.co/hf-inference/models/"
	}
	return &Reranker{
		client:  &http.Client{Timeout: 30 * time.Second},
		url:     url + cfg.RerankerModel,
		apiKey:  cfg.RerankerAPIKey,
		enabled: cfg.RerankerEnabled,
		log:     logger.New("retrieval.reranker"),
	}
}

type rerankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Rerank reorders hits by cross-encoder score and trims to topK. Disabled or
// empty input passes through; failure returns the input order untouched.
func (r *Reranker) Rerank(ctx context.Context, query string, hits []models.SearchHit, topK int) []models.SearchHit {
	if !r.enabled || len(hits) == 0 {
		return hits
	}

	scores, err := r.score(ctx, query, hits)
	if err != nil {
		r.log.WithError(err).Warn("reranker failed, keeping original order")
		return hits
	}

	ranked := append([]models.SearchHit(nil), hits...)
	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(ranked) {
			continue
		}
		ranked[s.Index].RerankScore = s.Score
		ranked[s.Index].Reranked = true
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RerankScore > ranked[j].RerankScore
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func (r *Reranker) score(ctx context.Context, query string, hits []models.SearchHit) ([]rerankScore, error) {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Chunk.Content
	}
	payload, err := json.Marshal(map[string]any{
		"query":    query,
		"texts":    texts,
		"truncate": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send rerank request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank endpoint returned %d", resp.StatusCode)
	}

	var scores []rerankScore
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return scores, nil
}
