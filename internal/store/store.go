package store

import (
	"context"
	"errors"
	"io"

	"docuchat/internal/models"
)

// ErrNotFound is returned when a requested record does not exist or belongs
// to another owner.
var ErrNotFound = errors.New("store: not found")

// ChunkRef is the minimal chunk identity used by the reconciler.
type ChunkRef struct {
	ID          string
	ContentHash string
	ChunkIndex  int
}

// SearchFilter narrows retrieval to a metadata subset. Zero value matches
// everything owned by the caller.
type SearchFilter struct {
	DocumentIDs  []string
	DocumentType string
	Topics       []string
}

// VectorHit is one raw similarity result before hydration.
type VectorHit struct {
	ChunkID    string
	Similarity float64
}

// VectorRecord is one chunk entry for the similarity index.
type VectorRecord struct {
	ChunkID    string
	DocumentID string
	Owner      string
	Topics     []string
	DocType    string
	Vector     []float32
}

// StatusEvent is published on every document status transition.
type StatusEvent struct {
	DocumentID string `json:"document_id"`
	Owner      string `json:"owner"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// DocumentStore persists document records. All reads are owner-scoped.
type DocumentStore interface {
	// CreateOrReuse returns the existing document for (owner, filename) when
	// one exists, resetting it for re-ingestion; otherwise it inserts doc.
	// The returned bool reports whether an existing record was reused.
	CreateOrReuse(ctx context.Context, doc *models.Document) (*models.Document, bool, error)
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
	SetMetadata(ctx context.Context, id string, meta models.DocumentMetadata, chunkCount int) error
	Get(ctx context.Context, owner, id string) (*models.Document, error)
	ListByOwner(ctx context.Context, owner string) ([]models.Document, error)
	Delete(ctx context.Context, owner, id string) error
}

// ChunkStore persists chunk rows and serves the full-text leg of retrieval.
type ChunkStore interface {
	ExistingRefs(ctx context.Context, documentID string) ([]ChunkRef, error)
	InsertBatch(ctx context.Context, chunks []models.Chunk) error
	DeleteByIDs(ctx context.Context, ids []string) error
	DeleteByDocument(ctx context.Context, documentID string) ([]string, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Chunk, error)
	FullTextSearch(ctx context.Context, owner, query string, filter SearchFilter, limit int) ([]models.Chunk, error)
}

// VectorIndex is the embedding similarity side of retrieval.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []VectorRecord) error
	DeleteByIDs(ctx context.Context, chunkIDs []string) error
	Search(ctx context.Context, owner string, vector []float32, filter SearchFilter, topK int) ([]VectorHit, error)
}

// ThreadStore persists conversations.
type ThreadStore interface {
	Create(ctx context.Context, thread *models.Thread) error
	Get(ctx context.Context, owner, id string) (*models.Thread, error)
	ListByOwner(ctx context.Context, owner string) ([]models.Thread, error)
	SetTitle(ctx context.Context, id, title string) error
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, owner, id string) error
}

// MessageStore persists thread messages in creation order.
type MessageStore interface {
	Append(ctx context.Context, msg *models.Message) error
	ListByThread(ctx context.Context, threadID string) ([]models.Message, error)
	CountByThread(ctx context.Context, threadID string) (int64, error)
	DeleteByThread(ctx context.Context, threadID string) error
}

// BlobStore keeps the original uploaded files.
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// StatusPublisher broadcasts document status transitions to subscribers.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, event StatusEvent) error
}
