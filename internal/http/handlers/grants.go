package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"coinmine/internal/domain"
	"coinmine/internal/repository"
	"coinmine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateGrantRequest struct {
	AccountID       int64  `json:"account_id" binding:"required"`
	Type            string `json:"type" binding:"required"`
	BaseRate        string `json:"base_rate" binding:"required"`
	DurationSeconds int64  `json:"duration_seconds" binding:"required"`
	BonusEligible   bool   `json:"bonus_eligible"`
}

// CreateGrant opens a new accrual grant. Called by reward-trigger controllers
// (ad view, check-in, purchase) under the service key; for paid tiers the
// caller sends the frozen pre-multiplied rate.
func (h *Handler) CreateGrant(c *gin.Context) {
	var req CreateGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	baseRate, err := decimal.NewFromString(req.BaseRate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base_rate"})
		return
	}

	g, err := h.GrantSvc.CreateGrant(c.Request.Context(), req.AccountID,
		domain.GrantType(req.Type), baseRate,
		time.Duration(req.DurationSeconds)*time.Second, req.BonusEligible)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidGrant):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grant parameters"})
		case errors.Is(err, service.ErrDurationCapExceeded):
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration exceeds cap"})
		case errors.Is(err, service.ErrAccountUnavailable):
			c.JSON(http.StatusForbidden, gin.H{"error": "account is not active"})
		case errors.Is(err, repository.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create grant"})
		}
		return
	}

	c.JSON(http.StatusCreated, g)
}

type ExtendGrantRequest struct {
	AdditionalSeconds int64 `json:"additional_seconds" binding:"required"`
}

// ExtendGrant pushes a mining grant's expiry later, subject to the duration cap
func (h *Handler) ExtendGrant(c *gin.Context) {
	grantID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grant id"})
		return
	}

	var req ExtendGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	newExpiry, err := h.GrantSvc.ExtendGrant(c.Request.Context(), grantID,
		time.Duration(req.AdditionalSeconds)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrGrantNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "grant not found"})
		case errors.Is(err, service.ErrInvalidGrant):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid extension"})
		case errors.Is(err, service.ErrDurationCapExceeded):
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration exceeds cap"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to extend grant"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"expires_at": newExpiry})
}

// MyGrants lists the caller's currently mining grants with their effective rates
func (h *Handler) MyGrants(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()

	acct, err := h.Accounts.GetByID(ctx, accountID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	grants, err := h.Grants.ActiveByAccount(ctx, accountID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load grants"})
		return
	}

	out := make([]gin.H, 0, len(grants))
	for _, g := range grants {
		out = append(out, gin.H{
			"id":              g.ID,
			"type":            g.Type,
			"base_rate":       g.BaseRate,
			"rate_per_second": h.Composer.GrantRate(acct, g, now),
			"created_at":      g.CreatedAt,
			"expires_at":      g.ExpiresAt,
			"bonus_eligible":  g.BonusEligible,
		})
	}

	c.JSON(http.StatusOK, gin.H{"grants": out})
}

// ClaimBonus opens the caller's daily bonus window
func (h *Handler) ClaimBonus(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	until, err := h.GrantSvc.ActivateDailyBonus(c.Request.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountUnavailable):
			c.JSON(http.StatusForbidden, gin.H{"error": "account is not active"})
		case errors.Is(err, repository.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to claim bonus"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"bonus_until": until})
}
