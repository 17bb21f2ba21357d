package handlers

import (
	"errors"
	"net/http"

	"coinmine/internal/domain"
	"coinmine/internal/jobs"
	"coinmine/internal/logger"
	"coinmine/internal/repository"
	"coinmine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TriggerSettlement runs one settlement cycle immediately. Shares the
// distributed lock with the scheduler, so an overlapping run is refused.
func (h *Handler) TriggerSettlement(c *gin.Context) {
	run, err := h.Runner.RunSettlement(c.Request.Context())
	if err != nil {
		if errors.Is(err, jobs.ErrJobLocked) {
			c.JSON(http.StatusConflict, gin.H{"error": "settlement is already running"})
			return
		}
		logger.Error("manual settlement failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement failed"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// TriggerRebate runs one referral rebate cycle immediately
func (h *Handler) TriggerRebate(c *gin.Context) {
	run, err := h.Runner.RunReferralRebate(c.Request.Context())
	if err != nil {
		if errors.Is(err, jobs.ErrJobLocked) {
			c.JSON(http.StatusConflict, gin.H{"error": "rebate is already running"})
			return
		}
		logger.Error("manual rebate failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rebate failed"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// ReloadLevels re-reads the level table from the database and swaps it in.
// A broken table is rejected and the old one stays active.
func (h *Handler) ReloadLevels(c *gin.Context) {
	rows, err := h.PointsRpo.LoadLevelConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load level config"})
		return
	}

	table, err := domain.NewLevelTable(rows)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	h.Composer.SetLevels(table)
	logger.Info("level table reloaded", "levels", table.MaxLevel())
	c.JSON(http.StatusOK, gin.H{"levels": table.MaxLevel()})
}

type AdjustRequest struct {
	AccountID int64  `json:"account_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Note      string `json:"note" binding:"required"`
}

// Adjust applies a signed operator correction to an account's settled balance
func (h *Handler) Adjust(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id, amount and note are required"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	newBalance, err := h.BalanceSvc.ManualAdjust(c.Request.Context(), req.AccountID, amount, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount or missing note"})
		case errors.Is(err, repository.ErrInsufficientFunds):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		case errors.Is(err, repository.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "adjustment failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": newBalance})
}
