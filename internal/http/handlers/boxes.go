package handlers

import (
	"net/http"
	"strconv"

	"blindbox/internal/domain"
	"blindbox/internal/errs"

	"github.com/gin-gonic/gin"
)

func parseBoxID(c *gin.Context) (domain.BoxID, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "invalid box id")
		return 0, false
	}
	return domain.BoxID(n), true
}

// Redeem opens a box for the caller.
func (h *Handler) Redeem(c *gin.Context) {
	caller, ok := accountID(c)
	if !ok {
		return
	}
	id, ok := parseBoxID(c)
	if !ok {
		return
	}

	res, err := h.svc.Redemption.Redeem(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type GenerateRequest struct {
	Pool  string `json:"pool" binding:"required"`
	Count uint32 `json:"count" binding:"required"`
}

// Generate adds ids to a pool. Only the issuer may call it.
func (h *Handler) Generate(c *gin.Context) {
	caller, ok := accountID(c)
	if !ok {
		return
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "pool and count are required")
		return
	}
	pool, err := domain.ParsePool(req.Pool)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.svc.Allocator.Generate(c.Request.Context(), caller, pool, req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Pools(c *gin.Context) {
	pools, err := h.svc.Status.Pools(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pools": pools})
}

// Odds publishes the nominal tier probabilities and the reward table.
func (h *Handler) Odds(c *gin.Context) {
	tiers, table := h.svc.Status.Odds()
	c.JSON(http.StatusOK, gin.H{"tiers": tiers, "table": table})
}

// BoxReward returns what an opened id yielded, across both pools.
func (h *Handler) BoxReward(c *gin.Context) {
	id, ok := parseBoxID(c)
	if !ok {
		return
	}
	recs, err := h.svc.Redemption.BoxRewards(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(recs) == 0 {
		respondError(c, errs.Wrapf(errs.ErrNotFound, "no reward for box %d", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": recs})
}

// Events lists recent domain events, newest first.
func (h *Handler) Events(c *gin.Context) {
	evts, err := h.svc.Status.Events(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evts})
}
