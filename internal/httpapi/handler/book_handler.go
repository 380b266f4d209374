package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"libhub/internal/httpapi/dto"
	"libhub/internal/httpapi/middleware"
	"libhub/internal/httpapi/models"
	"libhub/internal/httpapi/service"

	"github.com/gin-gonic/gin"
)

type BookHandler struct {
	svc        service.BookService
	historySvc service.HistoryService
}

func NewBookHandler(svc service.BookService, historySvc service.HistoryService) *BookHandler {
	return &BookHandler{svc: svc, historySvc: historySvc}
}

func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", middleware.RequireScopes("read:catalog"), h.List)
	rg.GET("/search", middleware.RequireScopes("read:catalog"), h.Search)
	rg.GET("/:id", middleware.RequireScopes("read:catalog"), h.Get)
	rg.GET("/:id/similar", middleware.RequireScopes("read:catalog"), h.Similar)
	rg.GET("/:id/comments", middleware.RequireScopes("read:catalog"), h.Comments)
	rg.POST("/:id/comments", middleware.RequireScopes("read:catalog"), h.AddComment)
	rg.POST("/", middleware.RequireScopes("write:catalog"), h.Create)
	rg.PATCH("/:id/stock", middleware.RequireScopes("write:catalog"), h.AdjustStock)
}

// List returns the paginated catalog, optionally filtered by collection
func (h *BookHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if collection := c.Query("collection"); collection != "" {
		books, err := h.svc.ListCollection(ctx, collection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items := make([]dto.BookResponse, 0, len(books))
		for _, b := range books {
			items = append(items, dto.FromBookModel(b))
		}
		c.JSON(http.StatusOK, dto.BookListResponse{Items: items, Total: int64(len(items)), Page: 1})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	books, total, err := h.svc.List(ctx, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]dto.BookResponse, 0, len(books))
	for _, b := range books {
		items = append(items, dto.FromBookModel(b))
	}
	c.JSON(http.StatusOK, dto.BookListResponse{Items: items, Total: total, Page: page})
}

// Get returns one book and records the view in the member's history
func (h *BookHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if userID, exists := c.Get("userID"); exists {
		// history is advisory; a failed append never fails the read
		_ = h.historySvc.RecordView(ctx, userID.(string), book)
	}

	c.JSON(http.StatusOK, book)
}

// Search resolves an exact normalized-title match and records the search term
func (h *BookHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if userID, exists := c.Get("userID"); exists {
		_ = h.historySvc.RecordSearch(ctx, userID.(string), q)
	}

	book, err := h.svc.FindExact(ctx, q)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.FromBookModel(*book))
}

// Similar returns fuzzy token-overlap recommendations for a book
func (h *BookHandler) Similar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	similar, err := h.svc.Similar(ctx, book.Title, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": similar})
}

// Create adds a catalog item (staff only)
func (h *BookHandler) Create(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	book := &models.Book{
		Title:      req.Title,
		Category:   req.Category,
		ImageURL:   req.ImageURL,
		Collection: req.Collection,
		Stock:      req.Stock,
	}
	if err := h.svc.Create(ctx, book); err != nil {
		if errors.Is(err, service.ErrBookExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "book already in catalog"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dto.FromBookModel(*book))
}

// AdjustStock applies a staff stock correction to a catalog item
func (h *BookHandler) AdjustStock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.AdjustStock(ctx, id, req.Delta); err != nil {
		if errors.Is(err, service.ErrStockTooLow) {
			c.JSON(http.StatusConflict, gin.H{"error": "stock adjustment would go below zero"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Comments lists a book's comments
func (h *BookHandler) Comments(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	comments, err := h.svc.Comments(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "total": len(comments)})
}

// AddComment appends a comment to a book
func (h *BookHandler) AddComment(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	var req dto.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.AddComment(ctx, id, userID.(string), req.Content); err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "comment added"})
}
