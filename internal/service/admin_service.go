package service

import (
	"context"

	"blindbox/internal/domain"
	"blindbox/internal/errs"
	"blindbox/internal/events"
	"blindbox/internal/logger"
	"blindbox/internal/metrics"
	"blindbox/internal/repository"
)

// AdminService provides admin-only mutations of inventory ceilings, the
// issuer and the blacklist. Every mutation is audited in the same unit of work.
type AdminService struct {
	store   repository.Store
	pub     events.Publisher
	isAdmin func(int64) bool
	maxima  map[domain.Counter]uint64
}

// NewAdminService creates a new admin service
func NewAdminService(store repository.Store, pub events.Publisher, isAdmin func(int64) bool, maxima map[domain.Counter]uint64) *AdminService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &AdminService{store: store, pub: pub, isAdmin: isAdmin, maxima: maxima}
}

func (s *AdminService) authorize(caller int64) error {
	if s.isAdmin == nil || !s.isAdmin(caller) {
		return errs.Wrapf(errs.ErrPermissionDenied, "account %d is not an admin", caller)
	}
	return nil
}

// SetCeiling sets the remaining amount of counter. value may not exceed the
// configured maximum for that counter.
func (s *AdminService) SetCeiling(ctx context.Context, caller int64, counter domain.Counter, value uint64) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	if !counter.Valid() {
		return errs.Wrapf(errs.ErrInvalidCounter, "counter %q", counter)
	}
	if limit, ok := s.maxima[counter]; !ok || value > limit {
		return errs.Wrapf(errs.ErrCapacityExceeded, "%s: %d > %d", counter, value, s.maxima[counter])
	}

	var previous uint64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if previous, err = tx.Inventory().Get(ctx, counter); err != nil {
			return err
		}
		if err := tx.Inventory().Set(ctx, counter, value); err != nil {
			return err
		}
		return tx.Audit().Create(ctx, &domain.AuditLog{
			ActorID:  caller,
			Action:   domain.AuditActionSetCeiling,
			Category: domain.AuditCategoryAdmin,
			Details:  map[string]any{"counter": string(counter), "value": value, "previous": previous},
		})
	})
	if err != nil {
		return err
	}

	metrics.InventoryRemaining.WithLabelValues(string(counter)).Set(float64(value))
	logger.Info("ceiling set", "admin", caller, "counter", counter, "value", value, "previous", previous)
	return nil
}

func (s *AdminService) SetIssuer(ctx context.Context, caller, account int64) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().GetByID(ctx, account); err != nil {
			return err
		}
		if err := tx.Settings().SetIssuer(ctx, account); err != nil {
			return err
		}
		return tx.Audit().Create(ctx, &domain.AuditLog{
			ActorID:  caller,
			Action:   domain.AuditActionSetIssuer,
			Category: domain.AuditCategoryAdmin,
			Details:  map[string]any{"issuer": account},
		})
	})
	if err != nil {
		return err
	}
	logger.Info("issuer set", "admin", caller, "issuer", account)
	return nil
}

// AddBlacklist fails with ErrAlreadyBlacklisted, leaving state untouched, when
// the account is already listed.
func (s *AdminService) AddBlacklist(ctx context.Context, caller, account int64) error {
	return s.mutateBlacklist(ctx, caller, account, true)
}

// RemoveBlacklist fails with ErrNotBlacklisted when the account is not listed.
func (s *AdminService) RemoveBlacklist(ctx context.Context, caller, account int64) error {
	return s.mutateBlacklist(ctx, caller, account, false)
}

func (s *AdminService) mutateBlacklist(ctx context.Context, caller, account int64, add bool) error {
	if err := s.authorize(caller); err != nil {
		return err
	}

	var evt domain.Event
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		action := domain.AuditActionBlacklistRemove
		if add {
			action = domain.AuditActionBlacklistAdd
			ok, err := tx.Blacklist().Add(ctx, account)
			if err != nil {
				return err
			}
			if !ok {
				return errs.Wrapf(errs.ErrAlreadyBlacklisted, "account %d", account)
			}
			evt = domain.BlacklistAddedEvent(account)
		} else {
			ok, err := tx.Blacklist().Remove(ctx, account)
			if err != nil {
				return err
			}
			if !ok {
				return errs.Wrapf(errs.ErrNotBlacklisted, "account %d", account)
			}
			evt = domain.BlacklistRemovedEvent(account)
		}

		if err := tx.Events().Append(ctx, &evt); err != nil {
			return err
		}
		return tx.Audit().Create(ctx, &domain.AuditLog{
			ActorID:  caller,
			Action:   action,
			Category: domain.AuditCategoryAdmin,
			Details:  map[string]any{"account": account},
		})
	})
	if err != nil {
		return err
	}

	logger.Info("blacklist updated", "admin", caller, "account", account, "added", add)
	s.pub.Publish(ctx, evt)
	return nil
}

// Blacklist lists barred accounts.
func (s *AdminService) Blacklist(ctx context.Context, caller int64) ([]int64, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	var ids []int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		ids, err = tx.Blacklist().List(ctx)
		return err
	})
	return ids, err
}

// Boxes lists up to limit unopened ids of pool, ascending.
func (s *AdminService) Boxes(ctx context.Context, caller int64, pool domain.Pool, limit int) ([]domain.BoxID, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if !pool.Valid() {
		return nil, errs.Wrapf(errs.ErrInvalidPool, "pool %q", pool)
	}
	var ids []domain.BoxID
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		ids, err = tx.Boxes().List(ctx, pool, limit)
		return err
	})
	return ids, err
}

// Inventory returns every counter with its remaining amount and configured maximum.
func (s *AdminService) Inventory(ctx context.Context, caller int64) ([]domain.InventoryItem, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	var all map[domain.Counter]uint64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		all, err = tx.Inventory().All(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveInventory(all)
	items := make([]domain.InventoryItem, 0, len(domain.Counters))
	for _, c := range domain.Counters {
		items = append(items, domain.InventoryItem{Counter: c, Remaining: all[c], Maximum: s.maxima[c]})
	}
	return items, nil
}
