package handlers

import (
	"net/http"
	"strconv"

	"blindbox/internal/domain"

	"github.com/gin-gonic/gin"
)

type SetCeilingRequest struct {
	Value *uint64 `json:"value" binding:"required"`
}

// SetCeiling overwrites one inventory counter.
func (h *Handler) SetCeiling(c *gin.Context) {
	caller, ok := accountID(c)
	if !ok {
		return
	}
	counter, err := domain.ParseCounter(c.Param("counter"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req SetCeilingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "value is required")
		return
	}

	if err := h.svc.Admin.SetCeiling(c.Request.Context(), caller, counter, *req.Value); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counter": counter, "value": *req.Value})
}

type SetIssuerRequest struct {
	AccountID int64 `json:"account_id" binding:"required"`
}

func (h *Handler) SetIssuer(c *gin.Context) {
	caller, ok := accountID(c)
	if !ok {
		return
	}
	var req SetIssuerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "account_id is required")
		return
	}
	if err := h.svc.Admin.SetIssuer(c.Request.Context(), caller, req.AccountID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issuer": req.AccountID})
}

func parseAccountParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("account"), 10, 64)
	if err != nil {
		badRequest(c, "invalid account id")
		return 0, false
	}
	return id, true
}

func (h *Handler) AddBlacklist(c *gin.Context) {
	caller, ok := accountID(c)
	if !ok {
		return
	}
	target, ok := parseAccountParam(c)
	if !ok {
		return
	}
	if err := h.svc.Admin.AddBlacklist(c.Request.Context(), caller, target); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account_id": target, "blacklisted": true})
}

func (h *Handler) RemoveBlacklist(c *gin.Context) {
	caller, ok := accountID(c)
	if !ok {
		return
	}
	target, ok := parseAccountParam(c)
	if !ok {
		return
	}
	if err := h.svc.Admin.RemoveBlacklist(c.Request.Context(), caller, target); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": target, "blacklisted": false})
}

func (h *Handler) Blacklist(c *gin.Context) {
	caller, ok := accountID(c)
	if !ok {
		return
	}
	ids, err := h.svc.Admin.Blacklist(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{"accounts": ids})
}

// Boxes lists unopened ids of ?pool= (default standard).
func (h *Handler) Boxes(c *gin.Context) {
	caller, ok := accountID(c)
	if !ok {
		return
	}
	pool, err := domain.ParsePool(c.DefaultQuery("pool", string(domain.PoolStandard)))
	if err != nil {
		respondError(c, err)
		return
	}
	ids, err := h.svc.Admin.Boxes(c.Request.Context(), caller, pool, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if ids == nil {
		ids = []domain.BoxID{}
	}
	c.JSON(http.StatusOK, gin.H{"pool": pool, "ids": ids})
}

// Inventory lists every counter with its remaining value and maximum.
func (h *Handler) Inventory(c *gin.Context) {
	caller, ok := accountID(c)
	if !ok {
		return
	}
	items, err := h.svc.Admin.Inventory(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": items})
}

// AuditLog lists recent audit entries, optionally filtered by ?category=.
func (h *Handler) AuditLog(c *gin.Context) {
	logs, err := h.svc.Audit.Recent(c.Request.Context(), c.Query("category"), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
