package memory

import (
	"context"
	"maps"
	"math"
	"slices"

	"blindbox/internal/domain"
	"blindbox/internal/errs"
	"blindbox/internal/repository"
)

type boxes struct{ *memTx }

func (b boxes) set(pool domain.Pool) (map[domain.BoxID]struct{}, error) {
	set, ok := b.st.boxes[pool]
	if !ok {
		return nil, errs.Wrapf(errs.ErrInvalidPool, "pool %s", pool)
	}
	return set, nil
}

func (b boxes) Exists(_ context.Context, pool domain.Pool, id domain.BoxID) (bool, error) {
	set, err := b.set(pool)
	if err != nil {
		return false, err
	}
	_, ok := set[id]
	return ok, nil
}

func (b boxes) Insert(_ context.Context, pool domain.Pool, id domain.BoxID) (bool, error) {
	set, err := b.set(pool)
	if err != nil {
		return false, err
	}
	if _, ok := set[id]; ok {
		return false, nil
	}
	set[id] = struct{}{}
	b.onRollback(func() { delete(set, id) })
	return true, nil
}

func (b boxes) Remove(_ context.Context, pool domain.Pool, id domain.BoxID) (bool, error) {
	set, err := b.set(pool)
	if err != nil {
		return false, err
	}
	if _, ok := set[id]; !ok {
		return false, nil
	}
	delete(set, id)
	b.onRollback(func() { set[id] = struct{}{} })
	return true, nil
}

func (b boxes) Count(_ context.Context, pool domain.Pool) (uint32, error) {
	if _, err := b.set(pool); err != nil {
		return 0, err
	}
	return b.st.counts[pool], nil
}

func (b boxes) SetCount(_ context.Context, pool domain.Pool, n uint32) error {
	if _, err := b.set(pool); err != nil {
		return err
	}
	b.restoreCount(pool)
	b.st.counts[pool] = n
	return nil
}

func (b boxes) AddCount(_ context.Context, pool domain.Pool, n uint32) (uint32, error) {
	if _, err := b.set(pool); err != nil {
		return 0, err
	}
	cur := b.st.counts[pool]
	if cur > math.MaxUint32-n {
		return 0, errs.Wrapf(errs.ErrArithmeticOverflow, "pool %s count + %d", pool, n)
	}
	b.restoreCount(pool)
	b.st.counts[pool] = cur + n
	return cur + n, nil
}

func (b boxes) DecrementCount(_ context.Context, pool domain.Pool) (uint32, error) {
	if _, err := b.set(pool); err != nil {
		return 0, err
	}
	cur := b.st.counts[pool]
	if cur == 0 {
		return 0, errs.Wrapf(errs.ErrCounterUnderflow, "pool %s count", pool)
	}
	b.restoreCount(pool)
	b.st.counts[pool] = cur - 1
	return cur - 1, nil
}

func (b boxes) restoreCount(pool domain.Pool) {
	prev := b.st.counts[pool]
	b.onRollback(func() { b.st.counts[pool] = prev })
}

func (b boxes) List(_ context.Context, pool domain.Pool, limit int) ([]domain.BoxID, error) {
	set, err := b.set(pool)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	ids := slices.Sorted(maps.Keys(set))
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type inventory struct{ *memTx }

func (i inventory) TryDeduct(_ context.Context, counter domain.Counter, amount uint64) (bool, error) {
	if i.st.inventory[counter] < amount {
		return false, nil
	}
	i.restore(counter)
	i.st.inventory[counter] -= amount
	return true, nil
}

func (i inventory) Set(_ context.Context, counter domain.Counter, value uint64) error {
	i.restore(counter)
	i.st.inventory[counter] = value
	return nil
}

func (i inventory) restore(counter domain.Counter) {
	prev, ok := i.st.inventory[counter]
	i.onRollback(func() {
		if ok {
			i.st.inventory[counter] = prev
		} else {
			delete(i.st.inventory, counter)
		}
	})
}

func (i inventory) Get(_ context.Context, counter domain.Counter) (uint64, error) {
	return i.st.inventory[counter], nil
}

func (i inventory) All(context.Context) (map[domain.Counter]uint64, error) {
	return maps.Clone(i.st.inventory), nil
}

type blacklist struct{ *memTx }

func (b blacklist) Contains(_ context.Context, account int64) (bool, error) {
	_, ok := b.st.blacklist[account]
	return ok, nil
}

func (b blacklist) Add(_ context.Context, account int64) (bool, error) {
	if _, ok := b.st.blacklist[account]; ok {
		return false, nil
	}
	b.st.blacklist[account] = struct{}{}
	b.onRollback(func() { delete(b.st.blacklist, account) })
	return true, nil
}

func (b blacklist) Remove(_ context.Context, account int64) (bool, error) {
	if _, ok := b.st.blacklist[account]; !ok {
		return false, nil
	}
	delete(b.st.blacklist, account)
	b.onRollback(func() { b.st.blacklist[account] = struct{}{} })
	return true, nil
}

func (b blacklist) List(context.Context) ([]int64, error) {
	return slices.Sorted(maps.Keys(b.st.blacklist)), nil
}

type settings struct{ *memTx }

func (s settings) Issuer(context.Context) (int64, bool, error) {
	return s.st.issuer, s.st.issuerSet, nil
}

func (s settings) SetIssuer(_ context.Context, id int64) error {
	s.st.issuer, s.st.issuerSet = id, true
	return nil
}

func (s settings) NextNonce(context.Context) (uint64, error) {
	n := s.st.nonce
	s.st.nonce++
	return n, nil
}

type redemptions struct{ *memTx }

func (r redemptions) Create(_ context.Context, rec *domain.RedemptionRecord) error {
	rec.ID = r.st.nextID()
	rec.CreatedAt = r.now()
	cp := *rec
	r.st.redemptions = append(r.st.redemptions, &cp)
	return nil
}

func (r redemptions) ByAccount(_ context.Context, account int64, limit int) ([]*domain.RedemptionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*domain.RedemptionRecord
	for i := len(r.st.redemptions) - 1; i >= 0 && len(out) < limit; i-- {
		if rec := r.st.redemptions[i]; rec.AccountID == account {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r redemptions) ByBox(_ context.Context, pool domain.Pool, id domain.BoxID) ([]*domain.RedemptionRecord, error) {
	var out []*domain.RedemptionRecord
	for i := len(r.st.redemptions) - 1; i >= 0; i-- {
		if rec := r.st.redemptions[i]; rec.Pool == pool && rec.BoxID == id {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

type accounts struct{ *memTx }

func (a accounts) Create(_ context.Context, acc *domain.Account, initialBalance uint64) error {
	if acc.TgID != 0 {
		for _, existing := range a.st.accounts {
			if existing.TgID == acc.TgID {
				return errs.Wrapf(errs.ErrAlreadyExists, "account tg_id=%d", acc.TgID)
			}
		}
	}
	acc.ID = a.st.nextID()
	acc.Balance = initialBalance
	acc.CreatedAt = a.now()
	cp := *acc
	a.st.accounts[acc.ID] = &cp
	id := acc.ID
	a.onRollback(func() { delete(a.st.accounts, id) })
	if initialBalance > 0 {
		a.record(acc.ID, domain.TxInitialGrant, int64(initialBalance), nil)
	}
	return nil
}

func (a accounts) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	acc, ok := a.st.accounts[id]
	if !ok {
		return nil, errs.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (a accounts) GetByTgID(_ context.Context, tgID int64) (*domain.Account, error) {
	for _, acc := range a.st.accounts {
		if tgID != 0 && acc.TgID == tgID {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, errs.ErrAccountNotFound
}

func (a accounts) Balance(_ context.Context, id int64) (uint64, error) {
	acc, ok := a.st.accounts[id]
	if !ok {
		return 0, errs.ErrAccountNotFound
	}
	return acc.Balance, nil
}

func (a accounts) Transfer(_ context.Context, from, to int64, amount uint64, mode domain.TransferMode, txType string, meta map[string]any) error {
	if amount == 0 {
		return errs.ErrInvalidAmount
	}
	payer, ok := a.st.accounts[from]
	if !ok {
		return errs.Wrapf(errs.ErrAccountNotFound, "account %d", from)
	}
	payee, ok := a.st.accounts[to]
	if !ok {
		return errs.Wrapf(errs.ErrAccountNotFound, "account %d", to)
	}
	if err := repository.CheckDebit(payer.Balance, amount, mode, a.ed); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if amount > math.MaxInt64 || payee.Balance > math.MaxInt64-amount {
		return errs.Wrapf(errs.ErrArithmeticOverflow, "credit account %d", to)
	}
	payerPrev, payeePrev := payer.Balance, payee.Balance
	a.onRollback(func() { payer.Balance, payee.Balance = payerPrev, payeePrev })
	payer.Balance -= amount
	payee.Balance += amount

	outMeta := maps.Clone(meta)
	if outMeta == nil {
		outMeta = make(map[string]any)
	}
	outMeta["to_account_id"] = to
	outMeta["direction"] = domain.TxTransferOut
	a.record(from, txType, -int64(amount), outMeta)

	inMeta := maps.Clone(meta)
	if inMeta == nil {
		inMeta = make(map[string]any)
	}
	inMeta["from_account_id"] = from
	inMeta["direction"] = domain.TxTransferIn
	a.record(to, txType, int64(amount), inMeta)
	return nil
}

func (a accounts) record(account int64, txType string, amount int64, meta map[string]any) {
	a.st.transactions = append(a.st.transactions, &domain.Transaction{
		ID:        a.st.nextID(),
		AccountID: account,
		Type:      txType,
		Amount:    amount,
		Meta:      meta,
		CreatedAt: a.now(),
	})
}

func (a accounts) History(_ context.Context, id int64, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*domain.Transaction
	for i := len(a.st.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if tx := a.st.transactions[i]; tx.AccountID == id {
			out = append(out, tx)
		}
	}
	return out, nil
}

type events struct{ *memTx }

func (e events) Append(_ context.Context, evt *domain.Event) error {
	evt.ID = e.st.nextID()
	evt.CreatedAt = e.now()
	e.st.events = append(e.st.events, *evt)
	return nil
}

func (e events) Recent(_ context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Event
	for i := len(e.st.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, e.st.events[i])
	}
	return out, nil
}

type audit struct{ *memTx }

func (a audit) Create(_ context.Context, log *domain.AuditLog) error {
	log.ID = a.st.nextID()
	log.CreatedAt = a.now()
	cp := *log
	a.st.audit = append(a.st.audit, &cp)
	return nil
}

func (a audit) Recent(_ context.Context, limit int) ([]*domain.AuditLog, error) {
	return a.filter("", limit), nil
}

func (a audit) ByCategory(_ context.Context, category string, limit int) ([]*domain.AuditLog, error) {
	return a.filter(category, limit), nil
}

func (a audit) filter(category string, limit int) []*domain.AuditLog {
	if limit <= 0 {
		limit = 100
	}
	var out []*domain.AuditLog
	for i := len(a.st.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if l := a.st.audit[i]; category == "" || l.Category == category {
			out = append(out, l)
		}
	}
	return out
}
