package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"libhub/internal/httpapi/dto"
	"libhub/internal/httpapi/middleware"
	"libhub/internal/httpapi/service"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	svc service.ReservationService
}

func NewReservationHandler(svc service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

func (h *ReservationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/slots", middleware.RequireScopes("write:reservations"), h.Slots)
	rg.POST("/", middleware.RequireScopes("write:reservations"), h.Reserve)
	rg.DELETE("/slots/:index", middleware.RequireScopes("write:reservations"), h.Cancel)
	rg.POST("/slots/:index/borrow", middleware.RequireScopes("write:circulation"), h.MarkBorrowed)
	rg.POST("/slots/:index/return", middleware.RequireScopes("write:circulation"), h.MarkReturned)
}

// Slots lists the member's three reservation slots
func (h *ReservationHandler) Slots(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	slots, err := h.svc.Slots(ctx, userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load slots, try again"})
		return
	}

	out := make([]dto.SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, dto.FromSlotModel(s))
	}
	c.JSON(http.StatusOK, dto.SlotListResponse{Slots: out})
}

// Reserve allocates a slot for the requested title
func (h *ReservationHandler) Reserve(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req dto.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	slotIndex, err := h.svc.Reserve(ctx, userID.(string), req.Title)
	if err != nil {
		status, msg := reserveErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, dto.ReserveResponse{
		SlotIndex: slotIndex,
		Message:   "reservation confirmed",
	})
}

// Cancel frees a reserved slot
func (h *ReservationHandler) Cancel(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	slotIndex, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot index"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Cancel(ctx, userID.(string), slotIndex); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSlot):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNothingToCancel):
			c.JSON(http.StatusConflict, gin.H{"error": "no reservation to cancel in this slot"})
		case errors.Is(err, service.ErrCorruptState):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "reservation could not be processed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cancellation failed, try again"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkBorrowed records a pickup (staff only, acts on the member in the path)
func (h *ReservationHandler) MarkBorrowed(c *gin.Context) {
	memberID := c.Query("user_id")
	if memberID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	slotIndex, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot index"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	slot, err := h.svc.MarkBorrowed(ctx, memberID, slotIndex)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSlot):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotReserved):
			c.JSON(http.StatusConflict, gin.H{"error": "slot is not reserved"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed, try again"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.FromSlotModel(*slot))
}

// MarkReturned records a return (staff only)
func (h *ReservationHandler) MarkReturned(c *gin.Context) {
	memberID := c.Query("user_id")
	if memberID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	slotIndex, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot index"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.MarkReturned(ctx, memberID, slotIndex); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSlot):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotBorrowed):
			c.JSON(http.StatusConflict, gin.H{"error": "slot is not borrowed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed, try again"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func reserveErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "user not authenticated"
	case errors.Is(err, service.ErrOutOfStock):
		return http.StatusConflict, "no copies available"
	case errors.Is(err, service.ErrSlotLimitReached):
		return http.StatusConflict, "all three reservation slots are in use"
	case errors.Is(err, service.ErrAlreadyReserved):
		return http.StatusConflict, "book already reserved"
	case errors.Is(err, service.ErrNoFreeSlot):
		return http.StatusConflict, "no free reservation slot"
	case errors.Is(err, service.ErrBookNotFound):
		return http.StatusNotFound, "book not found"
	default:
		return http.StatusInternalServerError, "reservation failed, try again"
	}
}
