package handlers

import (
	"errors"
	"net/http"
	"os"

	"coinmine/internal/repository"
	"coinmine/internal/service"

	"github.com/gin-gonic/gin"
)

// ReferralCode returns the caller's referral code, minting one on first use
func (h *Handler) ReferralCode(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	code, err := h.Referrals.Code(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get referral code"})
		return
	}

	link := ""
	if botUsername := os.Getenv("BOT_USERNAME"); botUsername != "" {
		link = "https://t.me/" + botUsername + "?start=ref_" + code
	}

	c.JSON(http.StatusOK, gin.H{"code": code, "link": link})
}

// ReferralStats returns referee count and lifetime rebate earnings
func (h *Handler) ReferralStats(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.Referrals.Stats(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

type BindReferralRequest struct {
	Code string `json:"code" binding:"required"`
}

// BindReferral attaches the caller to the owner of the code. The binding is
// permanent; a second attempt fails.
func (h *Handler) BindReferral(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req BindReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	err := h.Referrals.Bind(c.Request.Context(), accountID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReferralNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral code"})
		case errors.Is(err, service.ErrSelfReferral):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot use your own code"})
		case errors.Is(err, repository.ErrAlreadyBound):
			c.JSON(http.StatusConflict, gin.H{"error": "already referred"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to bind referral"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "referral bound"})
}
