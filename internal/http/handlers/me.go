package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	acc, err := h.svc.Accounts.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// MyRewards lists the caller's winning redemptions, newest first.
func (h *Handler) MyRewards(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	recs, err := h.svc.Redemption.Rewards(c.Request.Context(), id, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": recs})
}

func (h *Handler) MyTransactions(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	txs, err := h.svc.Accounts.History(c.Request.Context(), id, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
