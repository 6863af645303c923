package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Document processing lifecycle states, in pipeline order.
const (
	StatusPending    = "pending"
	StatusExtracting = "extracting"
	StatusChunking   = "chunking"
	StatusEmbedding  = "embedding"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document is the owner-scoped record of one uploaded file.
type Document struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Owner       string         `gorm:"size:128;index:idx_owner_filename" json:"owner"`
	Filename    string         `gorm:"size:512;index:idx_owner_filename" json:"filename"`
	MimeType    string         `gorm:"size:128" json:"mime_type"`
	SizeBytes   int64          `json:"size_bytes"`
	StoragePath string         `gorm:"size:1024" json:"storage_path"`
	Status      string         `gorm:"size:16" json:"status"`
	Error       string         `gorm:"size:512" json:"error,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentMetadata is the LLM-extracted description of a document.
type DocumentMetadata struct {
	Title        string   `json:"title"`
	DocumentType string   `json:"document_type"`
	Topics       []string `json:"topics"`
	Entities     []string `json:"entities"`
	Language     string   `json:"language"`
	Summary      string   `json:"summary"`
}

var validDocumentTypes = map[string]bool{
	"article": true, "report": true, "tutorial": true, "notes": true,
	"email": true, "code": true, "data": true, "other": true,
}

// Validate normalises an extracted metadata record in place and reports
// whether it is usable. Unknown document types collapse to "other".
func (m *DocumentMetadata) Validate() error {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return fmt.Errorf("metadata missing title")
	}
	m.DocumentType = strings.ToLower(strings.TrimSpace(m.DocumentType))
	if !validDocumentTypes[m.DocumentType] {
		m.DocumentType = "other"
	}
	if len(m.Topics) == 0 {
		m.Topics = []string{"general"}
	}
	if len(m.Topics) > 5 {
		m.Topics = m.Topics[:5]
	}
	if m.Entities == nil {
		m.Entities = []string{}
	}
	if m.Language == "" {
		m.Language = "en"
	}
	return nil
}

// FallbackMetadata builds deterministic metadata when LLM extraction fails.
func FallbackMetadata(filename string) DocumentMetadata {
	title := filename
	if i := strings.LastIndex(title, "."); i > 0 {
		title = title[:i]
	}
	return DocumentMetadata{
		Title:        title,
		DocumentType: "other",
		Topics:       []string{"general"},
		Entities:     []string{},
		Language:     "en",
		Summary:      "Document: " + filename,
	}
}

// ChunkMetadata travels with each chunk into the vector index and search hits.
type ChunkMetadata struct {
	DocumentID   string   `json:"document_id"`
	Filename     string   `json:"filename"`
	Title        string   `json:"title"`
	DocumentType string   `json:"document_type"`
	Topics       []string `json:"topics"`
	ChunkIndex   int      `json:"chunk_index"`
}

// Chunk is one retrievable piece of a document.
type Chunk struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	DocumentID  string         `gorm:"size:36;index" json:"document_id"`
	Owner       string         `gorm:"size:128;index" json:"owner"`
	ChunkIndex  int            `json:"chunk_index"`
	Content     string         `gorm:"type:text" json:"content"`
	ContentHash string         `gorm:"size:64;index" json:"content_hash"`
	TokenCount  int            `json:"token_count"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SearchHit is one retrieval result with its scoring trail.
type SearchHit struct {
	Chunk       Chunk         `json:"chunk"`
	Meta        ChunkMetadata `json:"metadata"`
	Similarity  float64       `json:"similarity,omitempty"`
	RRFScore    float64       `json:"rrf_score,omitempty"`
	RerankScore float64       `json:"rerank_score,omitempty"`
	Reranked    bool          `json:"reranked"`
}

// Thread is one conversation, owner-scoped.
type Thread struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	Title     string    `bson:"title" json:"title"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one persisted turn of a thread.
type Message struct {
	ID        string    `bson:"_id" json:"id"`
	ThreadID  string    `bson:"thread_id" json:"thread_id"`
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
