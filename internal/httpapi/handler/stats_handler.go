package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"libhub/internal/httpapi/repository"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	stats *repository.StatsRepository
}

func NewStatsHandler(stats *repository.StatsRepository) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/popular", h.PopularBooks)
}

// PopularBooks serves the most-consulted catalog items. The stats pool is
// optional at startup, so this endpoint may be unavailable.
func (h *StatsHandler) PopularBooks(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats not available"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	books, err := h.stats.PopularBooks(ctx, limit)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats not available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"popular": books})
}
