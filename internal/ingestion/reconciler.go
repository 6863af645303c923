package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"docuchat/internal/models"
	"docuchat/internal/store"
	"docuchat/pkg/logger"
)

// insertBatchSize caps one chunk insert round-trip.
const insertBatchSize = 50

// ContentHash is the chunk identity used for incremental re-ingestion.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// NewChunk is one chunk candidate entering reconciliation. Vector is only
// set for chunks that were actually embedded.
type NewChunk struct {
	Chunk  models.Chunk
	Vector []float32
}

// Plan is the outcome of comparing new chunks against the stored set.
type Plan struct {
	Inserts   []NewChunk
	DeleteIDs []string
	Skipped   int
}

// Reconciler diffs chunk content hashes so unchanged chunks keep their rows
// and embeddings across re-uploads.
type Reconciler struct {
	chunks  store.ChunkStore
	vectors store.VectorIndex
	log     *logger.Logger
}

func NewReconciler(chunks store.ChunkStore, vectors store.VectorIndex) *Reconciler {
	return &Reconciler{
		chunks:  chunks,
		vectors: vectors,
		log:     logger.New("ingestion.reconciler"),
	}
}

// PlanFor compares the candidate chunks against what is stored for the
// document. Candidates whose hash already exists are skipped; stored hashes
// no candidate matches become deletions.
func (r *Reconciler) PlanFor(ctx context.Context, documentID string, candidates []NewChunk) (*Plan, error) {
	existing, err := r.chunks.ExistingRefs(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch existing chunks: %w", err)
	}
	existingByHash := make(map[string]store.ChunkRef, len(existing))
	for _, ref := range existing {
		existingByHash[ref.ContentHash] = ref
	}

	plan := &Plan{}
	matched := make(map[string]bool)
	for _, cand := range candidates {
		if _, ok := existingByHash[cand.Chunk.ContentHash]; ok {
			plan.Skipped++
			matched[cand.Chunk.ContentHash] = true
			continue
		}
		plan.Inserts = append(plan.Inserts, cand)
	}
	for hash, ref := range existingByHash {
		if !matched[hash] {
			plan.DeleteIDs = append(plan.DeleteIDs, ref.ID)
		}
	}
	return plan, nil
}

// Apply runs deletions first, then inserts rows and vectors in batches.
// Re-running with identical content is a no-op.
func (r *Reconciler) Apply(ctx context.Context, documentID string, plan *Plan) error {
	if len(plan.DeleteIDs) > 0 {
		if err := r.chunks.DeleteByIDs(ctx, plan.DeleteIDs); err != nil {
			return fmt.Errorf("delete stale chunks: %w", err)
		}
		if err := r.vectors.DeleteByIDs(ctx, plan.DeleteIDs); err != nil {
			return fmt.Errorf("delete stale vectors: %w", err)
		}
		r.log.WithField("document_id", documentID).
			WithField("deleted", len(plan.DeleteIDs)).
			Info("removed stale chunks")
	}

	for start := 0; start < len(plan.Inserts); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(plan.Inserts) {
			end = len(plan.Inserts)
		}
		batch := plan.Inserts[start:end]

		rows := make([]models.Chunk, len(batch))
		records := make([]store.VectorRecord, len(batch))
		for i, cand := range batch {
			rows[i] = cand.Chunk
			var meta models.ChunkMetadata
			_ = json.Unmarshal(cand.Chunk.Metadata, &meta)
			records[i] = store.VectorRecord{
				ChunkID:    cand.Chunk.ID,
				DocumentID: cand.Chunk.DocumentID,
				Owner:      cand.Chunk.Owner,
				Topics:     meta.Topics,
				DocType:    meta.DocumentType,
				Vector:     cand.Vector,
			}
		}
		if err := r.chunks.InsertBatch(ctx, rows); err != nil {
			return fmt.Errorf("insert chunk batch: %w", err)
		}
		if err := r.vectors.Upsert(ctx, records); err != nil {
			return fmt.Errorf("insert vector batch: %w", err)
		}
	}

	r.log.WithField("document_id", documentID).
		WithField("inserted", len(plan.Inserts)).
		WithField("skipped", plan.Skipped).
		Info("reconciliation applied")
	return nil
}
