package service

import (
	"context"

	"blindbox/internal/domain"
	"blindbox/internal/errs"
	"blindbox/internal/repository"
)

// AccountService manages ledger accounts behind Telegram identities.
type AccountService struct {
	store          repository.Store
	initialBalance uint64
}

func NewAccountService(store repository.Store, initialBalance uint64) *AccountService {
	return &AccountService{store: store, initialBalance: initialBalance}
}

// LoginTelegram returns the account for tgID, creating and funding it on first login.
func (s *AccountService) LoginTelegram(ctx context.Context, tgID int64, username, firstName string) (*domain.Account, bool, error) {
	var (
		acc     *domain.Account
		created bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		created = false
		existing, err := tx.Accounts().GetByTgID(ctx, tgID)
		if err == nil {
			acc = existing
			return nil
		}
		if !errs.Is(err, errs.ErrAccountNotFound) {
			return err
		}

		acc = &domain.Account{TgID: tgID, Username: username, FirstName: firstName}
		if err := tx.Accounts().Create(ctx, acc, s.initialBalance); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return acc, created, nil
}

// Create makes an account without a Telegram identity.
func (s *AccountService) Create(ctx context.Context, username string, balance uint64) (*domain.Account, error) {
	acc := &domain.Account{Username: username}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Accounts().Create(ctx, acc, balance)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (*domain.Account, error) {
	var acc *domain.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		acc, err = tx.Accounts().GetByID(ctx, id)
		return err
	})
	return acc, err
}

// ByTelegram returns the account linked to tgID.
func (s *AccountService) ByTelegram(ctx context.Context, tgID int64) (*domain.Account, error) {
	var acc *domain.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		acc, err = tx.Accounts().GetByTgID(ctx, tgID)
		return err
	})
	return acc, err
}

func (s *AccountService) History(ctx context.Context, id int64, limit int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Accounts().History(ctx, id, limit)
		return err
	})
	return out, err
}
