package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docuchat/internal/models"
	"docuchat/internal/store"
)

type createThreadRequest struct {
	Title string `json:"title"`
}

type updateThreadRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *Handler) CreateThread(c *gin.Context) {
	var req createThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == "" {
		req.Title = "New conversation"
	}
	now := time.Now()
	thread := &models.Thread{
		ID:        uuid.New().String(),
		Owner:     ownerOf(c),
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.threads.Create(c.Request.Context(), thread); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, thread)
}

func (h *Handler) ListThreads(c *gin.Context) {
	threads, err := h.threads.ListByOwner(c.Request.Context(), ownerOf(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if threads == nil {
		threads = []models.Thread{}
	}
	c.JSON(http.StatusOK, threads)
}

func (h *Handler) UpdateThread(c *gin.Context) {
	var req updateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	thread, err := h.threads.Get(c.Request.Context(), ownerOf(c), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.threads.SetTitle(c.Request.Context(), thread.ID, req.Title); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	thread.Title = req.Title
	c.JSON(http.StatusOK, thread)
}

func (h *Handler) DeleteThread(c *gin.Context) {
	owner := ownerOf(c)
	id := c.Param("id")
	if _, err := h.threads.Get(c.Request.Context(), owner, id); errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.messages.DeleteByThread(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.threads.Delete(c.Request.Context(), owner, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListMessages(c *gin.Context) {
	owner := ownerOf(c)
	id := c.Param("id")
	if _, err := h.threads.Get(c.Request.Context(), owner, id); errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	messages, err := h.messages.ListByThread(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}
