package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"coinmine/internal/domain"
	"coinmine/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"init_data"`
}

// Auth exchanges Telegram WebApp init data for a JWT, creating the account on
// first sight. New accounts start at level 1 with a zero balance.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	// DEV MODE: init_data is a bare tg id, no signature check
	if os.Getenv("DEV_MODE") == "true" {
		tgID, err := strconv.ParseInt(req.InitData, 10, 64)
		if err != nil {
			tgID = 12345
		}
		h.issueToken(c, tgID, "devuser"+strconv.FormatInt(tgID, 10))
		return
	}

	if len(req.InitData) > 4096 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data too long"})
		return
	}

	values, ok := service.ValidateTelegramInitData(req.InitData, h.BotToken)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or stale telegram data"})
		return
	}

	userRaw := values.Get("user")
	if userRaw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user not found"})
		return
	}

	userValues, _ := url.ParseQuery("user=" + userRaw)
	userJSON := userValues.Get("user")

	var tgUser struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal([]byte(userJSON), &tgUser); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user json"})
		return
	}

	h.issueToken(c, tgUser.ID, tgUser.Username)
}

func (h *Handler) issueToken(c *gin.Context, tgID int64, username string) {
	ctx := c.Request.Context()

	acct, err := h.Accounts.GetByTgID(ctx, tgID)
	if err != nil {
		acct = &domain.Account{
			TgID:     tgID,
			Username: username,
		}
		if err := h.Accounts.Create(ctx, acct); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
			return
		}
	}

	if acct.Status != domain.AccountNormal {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is not active"})
		return
	}

	token, err := service.GenerateJWT(acct.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"account": gin.H{
			"id":       acct.ID,
			"tg_id":    acct.TgID,
			"username": acct.Username,
			"level":    acct.Level,
		},
	})
}
