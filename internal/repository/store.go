package repository

import (
	"context"

	"blindbox/internal/domain"
)

// Store runs units of work against the backing state. fn may be called more
// than once when the backend retries a conflicting transaction, so it must not
// have side effects outside the Tx.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Boxes() Boxes
	Inventory() Inventory
	Blacklist() Blacklist
	Settings() Settings
	Redemptions() Redemptions
	Accounts() Accounts
	Events() Events
	Audit() Audit
}

// Boxes holds the unopened ids of both pools and their cached counts.
type Boxes interface {
	Exists(ctx context.Context, pool domain.Pool, id domain.BoxID) (bool, error)
	// Insert reports false when the id is already present.
	Insert(ctx context.Context, pool domain.Pool, id domain.BoxID) (bool, error)
	// Remove reports false when the id was not present.
	Remove(ctx context.Context, pool domain.Pool, id domain.BoxID) (bool, error)
	// Count returns the cached count and locks the pool row for the rest of the Tx.
	Count(ctx context.Context, pool domain.Pool) (uint32, error)
	SetCount(ctx context.Context, pool domain.Pool, n uint32) error
	// AddCount fails with ErrArithmeticOverflow past MaxUint32.
	AddCount(ctx context.Context, pool domain.Pool, n uint32) (uint32, error)
	// DecrementCount fails with ErrCounterUnderflow at zero.
	DecrementCount(ctx context.Context, pool domain.Pool) (uint32, error)
	List(ctx context.Context, pool domain.Pool, limit int) ([]domain.BoxID, error)
}

type Inventory interface {
	// TryDeduct subtracts amount only if remaining >= amount.
	TryDeduct(ctx context.Context, counter domain.Counter, amount uint64) (bool, error)
	Set(ctx context.Context, counter domain.Counter, value uint64) error
	Get(ctx context.Context, counter domain.Counter) (uint64, error)
	All(ctx context.Context) (map[domain.Counter]uint64, error)
}

type Blacklist interface {
	Contains(ctx context.Context, account int64) (bool, error)
	// Add reports false when the account is already listed.
	Add(ctx context.Context, account int64) (bool, error)
	// Remove reports false when the account was not listed.
	Remove(ctx context.Context, account int64) (bool, error)
	List(ctx context.Context) ([]int64, error)
}

type Settings interface {
	// Issuer returns ok=false when no issuer has been set.
	Issuer(ctx context.Context) (id int64, ok bool, err error)
	SetIssuer(ctx context.Context, id int64) error
	// NextNonce returns the current generation nonce and advances it.
	NextNonce(ctx context.Context) (uint64, error)
}

type Redemptions interface {
	Create(ctx context.Context, rec *domain.RedemptionRecord) error
	ByAccount(ctx context.Context, account int64, limit int) ([]*domain.RedemptionRecord, error)
	ByBox(ctx context.Context, pool domain.Pool, id domain.BoxID) ([]*domain.RedemptionRecord, error)
}

// Accounts is the value-transfer ledger.
type Accounts interface {
	Create(ctx context.Context, a *domain.Account, initialBalance uint64) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByTgID(ctx context.Context, tgID int64) (*domain.Account, error)
	Balance(ctx context.Context, id int64) (uint64, error)
	// Transfer moves amount and records both sides. With KeepAlive the payer
	// must keep at least the existential deposit.
	Transfer(ctx context.Context, from, to int64, amount uint64, mode domain.TransferMode, txType string, meta map[string]any) error
	History(ctx context.Context, id int64, limit int) ([]*domain.Transaction, error)
}

type Events interface {
	Append(ctx context.Context, evt *domain.Event) error
	Recent(ctx context.Context, limit int) ([]domain.Event, error)
}

type Audit interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	Recent(ctx context.Context, limit int) ([]*domain.AuditLog, error)
	ByCategory(ctx context.Context, category string, limit int) ([]*domain.AuditLog, error)
}
