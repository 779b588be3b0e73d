package domain

import "time"

// Account is a ledger holder. Accounts are created on first Telegram login.
type Account struct {
	ID        int64     `db:"id" json:"id"`
	TgID      int64     `db:"tg_id" json:"tg_id"`
	Username  string    `db:"username" json:"username"`
	FirstName string    `db:"first_name" json:"first_name"`
	Balance   uint64    `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TransferMode controls whether a transfer may drain the payer below the existential deposit.
type TransferMode int

const (
	KeepAlive TransferMode = iota
	AllowDeath
)
