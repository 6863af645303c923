package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"docuchat/internal/config"
	"docuchat/internal/embedding"
	"docuchat/internal/models"
	"docuchat/internal/store"
	"docuchat/pkg/logger"
)

// rrfK dampens rank influence in reciprocal rank fusion.
const rrfK = 60

// Search strategies. Auto follows the configured default.
const (
	StrategyAuto   = "auto"
	StrategyVector = "vector"
	StrategyHybrid = "hybrid"
)

// Retriever serves document search over both the vector index and the
// full-text index, fused with RRF when hybrid mode is on.
type Retriever struct {
	chunks   store.ChunkStore
	vectors  store.VectorIndex
	embedder embedding.Embedder
	reranker *Reranker
	cfg      config.RetrievalConfig
	log      *logger.Logger
}

func NewRetriever(
	chunks store.ChunkStore,
	vectors store.VectorIndex,
	embedder embedding.Embedder,
	reranker *Reranker,
	cfg config.RetrievalConfig,
) *Retriever {
	return &Retriever{
		chunks:   chunks,
		vectors:  vectors,
		embedder: embedder,
		reranker: reranker,
		cfg:      cfg,
		log:      logger.New("retrieval"),
	}
}

// Search returns the best chunks for the query, owner-scoped. count <= 0
// falls back to the configured default; strategy "" means auto.
func (r *Retriever) Search(ctx context.Context, owner, query string, filter store.SearchFilter, count int, strategy string) ([]models.SearchHit, error) {
	if count <= 0 {
		count = r.cfg.Count
	}
	useHybrid := strategy == StrategyHybrid ||
		((strategy == StrategyAuto || strategy == "") && r.cfg.HybridEnabled)

	var hits []models.SearchHit
	if useHybrid {
		// Extra candidates from each leg give fusion and reranking room.
		fetchCount := count * 2

		var vectorHits, ftsHits []models.SearchHit
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			vectorHits, err = r.vectorSearch(gctx, owner, query, filter, fetchCount)
			return err
		})
		g.Go(func() error {
			var err error
			ftsHits, err = r.fullTextSearch(gctx, owner, query, filter, fetchCount)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		hits = reciprocalRankFusion(vectorHits, ftsHits)
	} else {
		var err error
		hits, err = r.vectorSearch(ctx, owner, query, filter, count)
		if err != nil {
			return nil, err
		}
	}

	hits = r.reranker.Rerank(ctx, query, hits, count)
	if len(hits) > count {
		hits = hits[:count]
	}
	return hits, nil
}

func (r *Retriever) vectorSearch(ctx context.Context, owner, query string, filter store.SearchFilter, count int) ([]models.SearchHit, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	raw, err := r.vectors.Search(ctx, owner, vector, filter, count)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raw))
	similarity := make(map[string]float64, len(raw))
	for _, h := range raw {
		if h.Similarity < r.cfg.Threshold {
			continue
		}
		ids = append(ids, h.ChunkID)
		similarity[h.ChunkID] = h.Similarity
	}
	rows, err := r.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Chunk, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}

	// Keep the index ranking order.
	hits := make([]models.SearchHit, 0, len(ids))
	for _, id := range ids {
		chunk, ok := byID[id]
		if !ok {
			continue
		}
		hits = append(hits, toHit(chunk, similarity[id]))
	}
	return hits, nil
}

func (r *Retriever) fullTextSearch(ctx context.Context, owner, query string, filter store.SearchFilter, count int) ([]models.SearchHit, error) {
	rows, err := r.chunks.FullTextSearch(ctx, owner, query, filter, count)
	if err != nil {
		return nil, err
	}
	hits := make([]models.SearchHit, 0, len(rows))
	for _, c := range rows {
		hits = append(hits, toHit(c, 0))
	}
	return hits, nil
}

func toHit(chunk models.Chunk, similarity float64) models.SearchHit {
	var meta models.ChunkMetadata
	_ = json.Unmarshal(chunk.Metadata, &meta)
	return models.SearchHit{Chunk: chunk, Meta: meta, Similarity: similarity}
}

// reciprocalRankFusion merges ranked lists. score(d) = sum over lists of
// 1/(k + rank + 1), deduplicated by chunk id, sorted descending.
func reciprocalRankFusion(lists ...[]models.SearchHit) []models.SearchHit {
	scores := make(map[string]float64)
	byID := make(map[string]models.SearchHit)
	var order []string

	for _, list := range lists {
		for rank, hit := range list {
			id := hit.Chunk.ID
			if _, seen := scores[id]; !seen {
				order = append(order, id)
				byID[id] = hit
			}
			scores[id] += 1.0 / float64(rrfK+rank+1)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	fused := make([]models.SearchHit, 0, len(order))
	for _, id := range order {
		hit := byID[id]
		hit.RRFScore = scores[id]
		fused = append(fused, hit)
	}
	return fused
}
