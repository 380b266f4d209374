package handler

import (
	"context"
	"net/http"
	"time"

	"libhub/internal/httpapi/middleware"
	"libhub/internal/httpapi/service"

	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	svc service.HistoryService
}

func NewHistoryHandler(svc service.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

func (h *HistoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/views", middleware.RequireScopes("read:history"), h.ListViews)
	rg.GET("/searches", middleware.RequireScopes("read:history"), h.ListSearches)
}

// ListViews returns the user's recently consulted books, newest first.
func (h *HistoryHandler) ListViews(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	views, err := h.svc.ListViews(ctx, userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": views})
}

// ListSearches returns the user's recent search terms, newest first.
func (h *HistoryHandler) ListSearches(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	searches, err := h.svc.ListSearches(ctx, userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"searches": searches})
}
