// Package memory is an in-process implementation of repository.Store.
// A single mutex serializes units of work; a failed unit of work is undone
// step by step.
package memory

import (
	"context"
	"sync"
	"time"

	"blindbox/internal/domain"
	"blindbox/internal/repository"
)

// TreasuryID is the account seeded at construction, matching the SQL schema.
const TreasuryID int64 = 1

type state struct {
	boxes        map[domain.Pool]map[domain.BoxID]struct{}
	counts       map[domain.Pool]uint32
	inventory    map[domain.Counter]uint64
	blacklist    map[int64]struct{}
	issuer       int64
	issuerSet    bool
	nonce        uint64
	redemptions  []*domain.RedemptionRecord
	accounts     map[int64]*domain.Account
	transactions []*domain.Transaction
	events       []domain.Event
	audit        []*domain.AuditLog
	seq          int64
}

func newState() *state {
	st := &state{
		boxes:     make(map[domain.Pool]map[domain.BoxID]struct{}),
		counts:    make(map[domain.Pool]uint32),
		inventory: make(map[domain.Counter]uint64),
		blacklist: make(map[int64]struct{}),
		accounts:  make(map[int64]*domain.Account),
		seq:       TreasuryID,
	}
	for _, p := range domain.Pools {
		st.boxes[p] = make(map[domain.BoxID]struct{})
		st.counts[p] = 0
	}
	for _, c := range domain.Counters {
		st.inventory[c] = 0
	}
	st.accounts[TreasuryID] = &domain.Account{ID: TreasuryID, Username: "treasury"}
	return st
}

// checkpoint records the scalars and append-only slice lengths at the start
// of a unit of work. Map mutations register their own undo steps.
type checkpoint struct {
	issuer       int64
	issuerSet    bool
	nonce        uint64
	seq          int64
	redemptions  int
	transactions int
	events       int
	audit        int
}

func (s *state) checkpoint() checkpoint {
	return checkpoint{
		issuer:       s.issuer,
		issuerSet:    s.issuerSet,
		nonce:        s.nonce,
		seq:          s.seq,
		redemptions:  len(s.redemptions),
		transactions: len(s.transactions),
		events:       len(s.events),
		audit:        len(s.audit),
	}
}

func (s *state) rollback(cp checkpoint, undo []func()) {
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	s.issuer, s.issuerSet, s.nonce, s.seq = cp.issuer, cp.issuerSet, cp.nonce, cp.seq
	clear(s.redemptions[cp.redemptions:])
	s.redemptions = s.redemptions[:cp.redemptions]
	clear(s.transactions[cp.transactions:])
	s.transactions = s.transactions[:cp.transactions]
	clear(s.events[cp.events:])
	s.events = s.events[:cp.events]
	clear(s.audit[cp.audit:])
	s.audit = s.audit[:cp.audit]
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

type Store struct {
	mu                 sync.Mutex
	st                 *state
	existentialDeposit uint64
	now                func() time.Time
}

func New(existentialDeposit uint64) *Store {
	return &Store{
		st:                 newState(),
		existentialDeposit: existentialDeposit,
		now:                time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.st.checkpoint()
	tx := &memTx{st: s.st, ed: s.existentialDeposit, now: s.now}
	if err := fn(ctx, tx); err != nil {
		s.st.rollback(cp, tx.undo)
		return err
	}
	return nil
}

type memTx struct {
	st   *state
	ed   uint64
	now  func() time.Time
	undo []func()
}

func (t *memTx) onRollback(fn func()) { t.undo = append(t.undo, fn) }

func (t *memTx) Boxes() repository.Boxes             { return boxes{t} }
func (t *memTx) Inventory() repository.Inventory     { return inventory{t} }
func (t *memTx) Blacklist() repository.Blacklist     { return blacklist{t} }
func (t *memTx) Settings() repository.Settings       { return settings{t} }
func (t *memTx) Redemptions() repository.Redemptions { return redemptions{t} }
func (t *memTx) Accounts() repository.Accounts       { return accounts{t} }
func (t *memTx) Events() repository.Events           { return events{t} }
func (t *memTx) Audit() repository.Audit             { return audit{t} }
