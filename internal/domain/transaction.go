package domain

import "time"

// Ledger transaction types.
const (
	TxRedemptionFee = "redemption_fee"
	TxRewardPayout  = "reward_payout"
	TxTransferOut   = "transfer_out"
	TxTransferIn    = "transfer_in"
	TxInitialGrant  = "initial_grant"
)

type Transaction struct {
	ID        int64          `db:"id" json:"id"`
	AccountID int64          `db:"account_id" json:"account_id"`
	Type      string         `db:"type" json:"type"`
	Amount    int64          `db:"amount" json:"amount"`
	Meta      map[string]any `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
