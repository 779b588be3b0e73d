package handlers

import (
	"net/http"
	"time"

	"blindbox/internal/service"
	"blindbox/internal/telegram"

	"github.com/gin-gonic/gin"
)

const maxInitDataLen = 4096

type AuthRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

// Auth exchanges Telegram WebApp init data for a JWT, creating the account
// on first login. In dev mode the hash is not checked.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}
	if len(req.InitData) > maxInitDataLen {
		badRequest(c, "init_data too long")
		return
	}

	var (
		tgUser *telegram.WebAppUser
		err    error
	)
	if h.devMode {
		tgUser, err = telegram.ParseUnsigned(req.InitData)
	} else {
		tgUser, err = telegram.ValidateInitData(req.InitData, h.botToken, time.Now())
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or stale telegram data"})
		return
	}

	ctx := c.Request.Context()
	acc, created, err := h.svc.Accounts.LoginTelegram(ctx, tgUser.ID, tgUser.Username, tgUser.FirstName)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := service.GenerateJWT(acc.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.svc.Audit.LogLogin(ctx, acc.ID, c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"created": created,
		"user":    acc,
	})
}
