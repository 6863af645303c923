package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docuchat/internal/ingestion"
	"docuchat/internal/models"
	"docuchat/internal/store"
)

// extToMime backs extension-based detection when the upload carries no
// usable content type.
var extToMime = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".json":     "application/json",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".html":     "text/html",
	".htm":      "text/html",
}

func resolveMimeType(filename, declared string, content []byte) string {
	if declared != "" && ingestion.SupportedMimeType(declared) {
		return declared
	}
	if m, ok := extToMime[strings.ToLower(filepath.Ext(filename))]; ok {
		return m
	}
	return mimetype.Detect(content).String()
}

// UploadDocument stores the file, records the document and kicks off
// background ingestion. Re-uploading the same filename reuses the record
// so the reconciler can skip unchanged chunks.
func (h *Handler) UploadDocument(c *gin.Context) {
	owner := ownerOf(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if fileHeader.Size > ingestion.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large. Maximum size is 10MB."})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, ingestion.MaxFileSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(content) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is empty."})
		return
	}
	if len(content) > ingestion.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large. Maximum size is 10MB."})
		return
	}

	mimeType := resolveMimeType(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), content)
	if !ingestion.SupportedMimeType(mimeType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Unsupported file type: %s. Allowed: .txt, .md, .csv, .json, .pdf, .docx, .html", mimeType),
		})
		return
	}

	id := uuid.New().String()
	doc := &models.Document{
		ID:          id,
		Owner:       owner,
		Filename:    fileHeader.Filename,
		MimeType:    mimeType,
		SizeBytes:   int64(len(content)),
		StoragePath: fmt.Sprintf("%s/%s/%s", owner, id, fileHeader.Filename),
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
	}
	doc, reused, err := h.documents.CreateOrReuse(c.Request.Context(), doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if reused {
		// Replacing the blob in place keeps the storage path stable.
		_ = h.blobs.Delete(c.Request.Context(), doc.StoragePath)
	}
	if err := h.blobs.Put(c.Request.Context(), doc.StoragePath, bytes.NewReader(content), int64(len(content)), mimeType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.ingestion.ProcessAsync(doc)
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.ListByOwner(c.Request.Context(), ownerOf(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) GetDocument(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), ownerOf(c), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	err := h.ingestion.DeleteDocument(c.Request.Context(), ownerOf(c), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// DocumentStatusStream relays ingestion status transitions for the caller's
// documents as server-sent events until the client disconnects.
func (h *Handler) DocumentStatusStream(c *gin.Context) {
	if h.statusSource == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "status streaming is not configured"})
		return
	}
	events, err := h.statusSource.SubscribeStatus(c.Request.Context(), ownerOf(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent("status", event)
		return true
	})
}
