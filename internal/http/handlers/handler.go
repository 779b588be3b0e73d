package handlers

import (
	"net/http"
	"strconv"

	"blindbox/internal/config"
	"blindbox/internal/errs"
	"blindbox/internal/http/middleware"
	"blindbox/internal/logger"
	"blindbox/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Services bundles what the handlers call into.
type Services struct {
	Accounts   *service.AccountService
	Allocator  *service.Allocator
	Redemption *service.RedemptionService
	Admin      *service.AdminService
	Status     *service.StatusService
	Audit      *service.AuditService
}

type Handler struct {
	svc      Services
	botToken string
	devMode  bool
}

func NewHandler(svc Services, cfg *config.Config) *Handler {
	return &Handler{
		svc:      svc,
		botToken: cfg.Auth.BotToken,
		devMode:  cfg.App.DevMode,
	}
}

// accountID returns the caller set by the JWT middleware, aborting with 401 if absent.
func accountID(c *gin.Context) (int64, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}

// queryLimit parses ?limit= clamped to [1, maxLimit].
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	return min(n, maxLimit)
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorTable = []errorMapping{
	{errs.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{errs.ErrBlacklisted, http.StatusForbidden, "blacklisted"},
	{errs.ErrBoxNotFound, http.StatusNotFound, "box_not_found"},
	{errs.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{errs.ErrNotFound, http.StatusNotFound, "not_found"},
	{errs.ErrPoolNotEmpty, http.StatusConflict, "pool_not_empty"},
	{errs.ErrAlreadyBlacklisted, http.StatusConflict, "already_blacklisted"},
	{errs.ErrNotBlacklisted, http.StatusConflict, "not_blacklisted"},
	{errs.ErrAlreadyExists, http.StatusConflict, "already_exists"},
	{errs.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed"},
	{errs.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
	{errs.ErrKeepAlive, http.StatusPaymentRequired, "keep_alive"},
	{errs.ErrCapacityExceeded, http.StatusUnprocessableEntity, "capacity_exceeded"},
	{errs.ErrInvalidPool, http.StatusBadRequest, "invalid_pool"},
	{errs.ErrInvalidCounter, http.StatusBadRequest, "invalid_counter"},
	{errs.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
}

// statusFor maps a service error to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	if errs.IsInvariant(err) {
		return http.StatusInternalServerError, "internal"
	}
	for _, m := range errorTable {
		if errs.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// respondError writes the mapped error. Internal errors are logged and
// their message is not exposed.
func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "bad_request"})
}
