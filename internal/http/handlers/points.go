package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"coinmine/internal/domain"
	"coinmine/internal/repository"
	"coinmine/internal/service"

	"github.com/gin-gonic/gin"
)

type PointsRequest struct {
	AccountID        int64  `json:"account_id" binding:"required"`
	Delta            int64  `json:"delta" binding:"required"`
	Category         string `json:"category" binding:"required"`
	RelatedAccountID *int64 `json:"related_account_id"`
}

// AddPoints credits progression points, cascading level-ups if thresholds are
// crossed. Called by reward-trigger controllers under the service key.
func (h *Handler) AddPoints(c *gin.Context) {
	var req PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	res, err := h.PointsSvc.AddPoints(c.Request.Context(), req.AccountID, req.Delta,
		domain.PointsCategory(req.Category), req.RelatedAccountID)
	if err != nil {
		h.pointsError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// DeductPoints removes points without demoting the level
func (h *Handler) DeductPoints(c *gin.Context) {
	var req PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	res, err := h.PointsSvc.DeductPoints(c.Request.Context(), req.AccountID, req.Delta,
		domain.PointsCategory(req.Category), req.RelatedAccountID)
	if err != nil {
		h.pointsError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) pointsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDelta):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delta"})
	case errors.Is(err, service.ErrInvalidCategory):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
	case errors.Is(err, service.ErrInsufficientPoints):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient points"})
	case errors.Is(err, repository.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "points update failed"})
	}
}

// MyLevel returns the caller's level, progress and the full level table
func (h *Handler) MyLevel(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	acct, err := h.Accounts.GetByID(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	levels := h.Composer.Levels()
	cfg := levels.At(acct.Level)

	c.JSON(http.StatusOK, gin.H{
		"level":      acct.Level,
		"points":     acct.LevelPoints,
		"max_points": cfg.MaxPoints,
		"multiplier": cfg.RateMultiplier,
		"max_level":  levels.MaxLevel(),
		"levels":     levels.All(),
	})
}

// MyPointsEvents returns recent point events, newest first
func (h *Handler) MyPointsEvents(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	events, err := h.PointsSvc.Events(c.Request.Context(), accountID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
