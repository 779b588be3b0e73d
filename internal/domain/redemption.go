package domain

import "time"

// Outcome of a single redemption.
const (
	OutcomeWon   = "won"
	OutcomeNoWin = "no_win"
)

// RedemptionRecord is the immutable record of a winning redemption.
type RedemptionRecord struct {
	ID        int64          `db:"id" json:"id"`
	Pool      Pool           `db:"pool" json:"pool"`
	BoxID     BoxID          `db:"box_id" json:"box_id"`
	AccountID int64          `db:"account_id" json:"account_id"`
	Reward    RewardCategory `json:"reward"`
	Quantity  uint64         `db:"quantity" json:"quantity"`
	Payout    uint64         `db:"payout" json:"payout,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// RedemptionResult is what a redeemer sees.
type RedemptionResult struct {
	Pool    Pool              `json:"pool"`
	BoxID   BoxID             `json:"box_id"`
	Outcome string            `json:"outcome"`
	Record  *RedemptionRecord `json:"record,omitempty"`
	Fee     uint64            `json:"fee"`
}

func (r RedemptionResult) Won() bool {
	return r.Outcome == OutcomeWon
}
