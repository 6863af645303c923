package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"docuchat/internal/embedding"
	"docuchat/internal/models"
	"docuchat/internal/store"
	"docuchat/pkg/logger"
)

// MaxFileSize caps uploads at 10MB.
const MaxFileSize = 10 * 1024 * 1024

const errorMessageLimit = 500

// Service runs the document pipeline: extract, chunk, metadata, embed,
// reconcile. Processing happens in a detached goroutine; progress is written
// to the document row and broadcast over the status publisher.
type Service struct {
	documents store.DocumentStore
	chunks    store.ChunkStore
	vectors   store.VectorIndex
	blobs     store.BlobStore
	status    store.StatusPublisher
	embedder  embedding.Embedder
	metadata  *MetadataExtractor
	chunker   *Chunker
	log       *logger.Logger
}

func NewService(
	documents store.DocumentStore,
	chunks store.ChunkStore,
	vectors store.VectorIndex,
	blobs store.BlobStore,
	status store.StatusPublisher,
	embedder embedding.Embedder,
	metadata *MetadataExtractor,
	chunker *Chunker,
) *Service {
	return &Service{
		documents: documents,
		chunks:    chunks,
		vectors:   vectors,
		blobs:     blobs,
		status:    status,
		embedder:  embedder,
		metadata:  metadata,
		chunker:   chunker,
		log:       logger.New("ingestion.service"),
	}
}

// ProcessAsync launches background processing for a stored document and
// returns immediately. The caller observes progress via the document status.
func (s *Service) ProcessAsync(doc *models.Document) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.process(ctx, doc); err != nil {
			msg := err.Error()
			if len(msg) > errorMessageLimit {
				msg = msg[:errorMessageLimit]
			}
			s.setStatus(ctx, doc, models.StatusFailed, msg)
			s.log.WithError(err).WithField("document_id", doc.ID).Error("document processing failed")
		}
	}()
}

func (s *Service) process(ctx context.Context, doc *models.Document) error {
	s.setStatus(ctx, doc, models.StatusExtracting, "")
	blob, err := s.blobs.Get(ctx, doc.StoragePath)
	if err != nil {
		return fmt.Errorf("download blob: %w", err)
	}
	data, err := io.ReadAll(blob)
	blob.Close()
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	text, err := ExtractText(data, doc.MimeType)
	if err != nil {
		return err
	}

	s.setStatus(ctx, doc, models.StatusChunking, "")
	pieces := s.chunker.Split(text)
	if len(pieces) == 0 {
		return fmt.Errorf("no chunks generated")
	}

	meta := s.metadata.Extract(ctx, text, doc.Filename)
	if err := s.documents.SetMetadata(ctx, doc.ID, meta, doc.ChunkCount); err != nil {
		return fmt.Errorf("store document metadata: %w", err)
	}

	s.setStatus(ctx, doc, models.StatusEmbedding, "")
	candidates, err := s.buildCandidates(doc, pieces, meta)
	if err != nil {
		return err
	}

	reconciler := NewReconciler(s.chunks, s.vectors)
	plan, err := reconciler.PlanFor(ctx, doc.ID, candidates)
	if err != nil {
		return err
	}

	// Embed only the chunks that will actually be inserted.
	if len(plan.Inserts) > 0 {
		texts := make([]string, len(plan.Inserts))
		for i, cand := range plan.Inserts {
			texts[i] = cand.Chunk.Content
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		for i := range plan.Inserts {
			plan.Inserts[i].Vector = vectors[i]
		}
	}

	if err := reconciler.Apply(ctx, doc.ID, plan); err != nil {
		return err
	}

	finalCount := plan.Skipped + len(plan.Inserts)
	if err := s.documents.SetMetadata(ctx, doc.ID, meta, finalCount); err != nil {
		return fmt.Errorf("store chunk count: %w", err)
	}
	s.setStatus(ctx, doc, models.StatusCompleted, "")
	s.log.WithField("document_id", doc.ID).
		WithField("inserted", len(plan.Inserts)).
		WithField("deleted", len(plan.DeleteIDs)).
		WithField("skipped", plan.Skipped).
		Info("document processed")
	return nil
}

func (s *Service) buildCandidates(doc *models.Document, pieces []string, meta models.DocumentMetadata) ([]NewChunk, error) {
	chunkMeta := models.ChunkMetadata{
		DocumentID:   doc.ID,
		Filename:     doc.Filename,
		Title:        meta.Title,
		DocumentType: meta.DocumentType,
		Topics:       meta.Topics,
	}
	candidates := make([]NewChunk, 0, len(pieces))
	for i, content := range pieces {
		chunkMeta.ChunkIndex = i
		raw, err := json.Marshal(chunkMeta)
		if err != nil {
			return nil, fmt.Errorf("encode chunk metadata: %w", err)
		}
		candidates = append(candidates, NewChunk{
			Chunk: models.Chunk{
				ID:          uuid.New().String(),
				DocumentID:  doc.ID,
				Owner:       doc.Owner,
				ChunkIndex:  i,
				Content:     content,
				ContentHash: ContentHash(content),
				TokenCount:  EstimateTokens(content),
				Metadata:    datatypes.JSON(raw),
				CreatedAt:   time.Now(),
			},
		})
	}
	return candidates, nil
}

// DeleteDocument removes a document with its chunks, vectors and blob. Blob
// removal is best effort.
func (s *Service) DeleteDocument(ctx context.Context, owner, id string) error {
	doc, err := s.documents.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	chunkIDs, err := s.chunks.DeleteByDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.vectors.DeleteByIDs(ctx, chunkIDs); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil {
		s.log.WithError(err).WithField("document_id", id).Warn("blob removal failed")
	}
	return s.documents.Delete(ctx, owner, id)
}

// setStatus writes the row and publishes the transition. Publish failures
// are logged, never fatal.
func (s *Service) setStatus(ctx context.Context, doc *models.Document, status, errMsg string) {
	if err := s.documents.UpdateStatus(ctx, doc.ID, status, errMsg); err != nil {
		s.log.WithError(err).WithField("document_id", doc.ID).Error("status update failed")
	}
	if s.status == nil {
		return
	}
	event := store.StatusEvent{
		DocumentID: doc.ID,
		Owner:      doc.Owner,
		Status:     status,
		Error:      errMsg,
	}
	if err := s.status.PublishStatus(ctx, event); err != nil {
		s.log.WithError(err).WithField("document_id", doc.ID).Warn("status publish failed")
	}
}
