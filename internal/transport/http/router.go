package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"docuchat/internal/chat"
	"docuchat/internal/ingestion"
	"docuchat/internal/store"
)

// StatusSource feeds the per-owner document status stream. Optional; the
// endpoint reports not configured when absent.
type StatusSource interface {
	SubscribeStatus(ctx context.Context, owner string) (<-chan store.StatusEvent, error)
}

// Handler groups the API endpoints over their backing services.
type Handler struct {
	documents    store.DocumentStore
	threads      store.ThreadStore
	messages     store.MessageStore
	blobs        store.BlobStore
	ingestion    *ingestion.Service
	orchestrator *chat.Orchestrator
	statusSource StatusSource
}

func NewHandler(
	documents store.DocumentStore,
	threads store.ThreadStore,
	messages store.MessageStore,
	blobs store.BlobStore,
	ingestionSvc *ingestion.Service,
	orchestrator *chat.Orchestrator,
	statusSource StatusSource,
) *Handler {
	return &Handler{
		documents:    documents,
		threads:      threads,
		messages:     messages,
		blobs:        blobs,
		ingestion:    ingestionSvc,
		orchestrator: orchestrator,
		statusSource: statusSource,
	}
}

// SetupRouter wires the API routes onto a Gin engine.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(OwnerRequired())
	{
		documents := api.Group("/documents")
		{
			documents.POST("/upload", h.UploadDocument)
			documents.GET("", h.ListDocuments)
			documents.GET("/status", h.DocumentStatusStream)
			documents.GET("/:id", h.GetDocument)
			documents.DELETE("/:id", h.DeleteDocument)
		}

		threads := api.Group("/threads")
		{
			threads.GET("", h.ListThreads)
			threads.POST("", h.CreateThread)
			threads.PATCH("/:id", h.UpdateThread)
			threads.DELETE("/:id", h.DeleteThread)
			threads.GET("/:id/messages", h.ListMessages)
		}

		api.POST("/chat", h.Chat)
	}

	return r
}
