package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"coinmine/internal/repository"
	"coinmine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Balance returns the live estimated balance: settled value plus rate times
// elapsed seconds. Clients poll this or subscribe on /ws/balance.
func (h *Handler) Balance(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	est, err := h.Estimator.EstimatedBalance(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to estimate balance"})
		return
	}

	c.JSON(http.StatusOK, est)
}

// Me returns the account profile together with the live estimate
func (h *Handler) Me(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	acct, err := h.Accounts.GetByID(ctx, accountID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	est, err := h.Estimator.EstimatedBalance(ctx, accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to estimate balance"})
		return
	}

	levels := h.Composer.Levels()
	c.JSON(http.StatusOK, gin.H{
		"id":               acct.ID,
		"tg_id":            acct.TgID,
		"username":         acct.Username,
		"level":            acct.Level,
		"level_points":     acct.LevelPoints,
		"level_max_points": levels.At(acct.Level).MaxPoints,
		"lifetime_earned":  acct.LifetimeEarned,
		"bonus_until":      acct.BonusUntil,
		"created_at":       acct.CreatedAt,
		"estimate":         est,
	})
}

// Ledger returns recent ledger entries, newest first
func (h *Handler) Ledger(c *gin.Context) {
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

	entries, err := h.BalanceSvc.History(c.Request.Context(), accountID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ledger"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type DebitRequest struct {
	Amount string `json:"amount" binding:"required"`
	Note   string `json:"note"`
}

// Debit spends settled balance (purchases, withdrawals). Estimated accrual is
// not spendable until settlement lands it.
func (h *Handler) Debit(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req DebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	note := req.Note
	if note == "" {
		note = "debit"
	}

	newBalance, err := h.BalanceSvc.Debit(c.Request.Context(), accountID, amount, note)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientFunds):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		case errors.Is(err, repository.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "debit failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": newBalance})
}
