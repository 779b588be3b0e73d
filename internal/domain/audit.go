package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64          `db:"id" json:"id"`
	ActorID   int64          `db:"actor_id" json:"actor_id"`
	Action    string         `db:"action" json:"action"`
	Category  string         `db:"category" json:"category"`
	Details   map[string]any `db:"details" json:"details"`
	IP        string         `db:"ip" json:"ip,omitempty"`
	UserAgent string         `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth       = "auth"
	AuditCategoryAdmin      = "admin"
	AuditCategoryIssuance   = "issuance"
	AuditCategoryRedemption = "redemption"
)

// Audit actions
const (
	AuditActionLogin = "login"

	AuditActionSetCeiling      = "set_ceiling"
	AuditActionSetIssuer       = "set_issuer"
	AuditActionBlacklistAdd    = "blacklist_add"
	AuditActionBlacklistRemove = "blacklist_remove"

	AuditActionGenerate = "generate_ids"

	AuditActionRedeemWin    = "redeem_win"
	AuditActionRedeemNoWin  = "redeem_no_win"
	AuditActionRedeemDenied = "redeem_denied"
)
