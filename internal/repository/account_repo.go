package repository

import (
	"context"
	"errors"
	"maps"

	"blindbox/internal/domain"
	"blindbox/internal/errs"

	"github.com/jackc/pgx/v5"
)

// AccountRepository is the Postgres ledger. Balances live on the accounts
// row; every movement is mirrored into transactions.
type AccountRepository struct {
	db                 Querier
	existentialDeposit uint64
	transactions       *TransactionRepository
}

func NewAccountRepository(db Querier, existentialDeposit uint64) *AccountRepository {
	return &AccountRepository{
		db:                 db,
		existentialDeposit: existentialDeposit,
		transactions:       NewTransactionRepository(db),
	}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account, initialBalance uint64) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO accounts (tg_id, username, first_name, balance)
		 VALUES (NULLIF($1::bigint, 0), $2, $3, $4)
		 RETURNING id, created_at`,
		a.TgID, a.Username, a.FirstName, int64(initialBalance),
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Wrapf(errs.Mark(err, errs.ErrAlreadyExists), "account tg_id=%d", a.TgID)
		}
		return errs.Wrap(err, "create account")
	}
	a.Balance = initialBalance

	if initialBalance > 0 {
		return r.transactions.Create(ctx, &domain.Transaction{
			AccountID: a.ID,
			Type:      domain.TxInitialGrant,
			Amount:    int64(initialBalance),
		})
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT id, COALESCE(tg_id, 0), COALESCE(username, ''), COALESCE(first_name, ''), balance, created_at
		 FROM accounts
		 WHERE id = $1`,
		id,
	))
}

func (r *AccountRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.Account, error) {
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT id, COALESCE(tg_id, 0), COALESCE(username, ''), COALESCE(first_name, ''), balance, created_at
		 FROM accounts
		 WHERE tg_id = $1`,
		tgID,
	))
}

func (r *AccountRepository) scanOne(row pgx.Row) (*domain.Account, error) {
	var (
		a       domain.Account
		balance int64
	)
	if err := row.Scan(&a.ID, &a.TgID, &a.Username, &a.FirstName, &balance, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrAccountNotFound
		}
		return nil, errs.Wrap(err, "get account")
	}
	a.Balance = uint64(balance)
	return &a, nil
}

func (r *AccountRepository) Balance(ctx context.Context, id int64) (uint64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrAccountNotFound
		}
		return 0, errs.Wrap(err, "get balance")
	}
	return uint64(balance), nil
}

// Transfer locks both rows in id order to avoid deadlocks between opposite transfers.
func (r *AccountRepository) Transfer(ctx context.Context, from, to int64, amount uint64, mode domain.TransferMode, txType string, meta map[string]any) error {
	if amount == 0 {
		return errs.ErrInvalidAmount
	}

	firstID, secondID := from, to
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	balances := make(map[int64]uint64, 2)
	for _, id := range []int64{firstID, secondID} {
		if _, seen := balances[id]; seen {
			continue
		}
		var balance int64
		err := r.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.Wrapf(errs.ErrAccountNotFound, "account %d", id)
			}
			return errs.Wrap(err, "lock account")
		}
		balances[id] = uint64(balance)
	}

	if err := CheckDebit(balances[from], amount, mode, r.existentialDeposit); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	if _, err := r.db.Exec(ctx, `UPDATE accounts SET balance = balance - $1 WHERE id = $2`, int64(amount), from); err != nil {
		return errs.Wrap(err, "debit account")
	}
	if _, err := r.db.Exec(ctx, `UPDATE accounts SET balance = balance + $1 WHERE id = $2`, int64(amount), to); err != nil {
		return errs.Wrap(err, "credit account")
	}

	outMeta := maps.Clone(meta)
	if outMeta == nil {
		outMeta = make(map[string]any)
	}
	outMeta["to_account_id"] = to
	outMeta["direction"] = domain.TxTransferOut
	if err := r.transactions.Create(ctx, &domain.Transaction{
		AccountID: from,
		Type:      txType,
		Amount:    -int64(amount),
		Meta:      outMeta,
	}); err != nil {
		return err
	}

	inMeta := maps.Clone(meta)
	if inMeta == nil {
		inMeta = make(map[string]any)
	}
	inMeta["from_account_id"] = from
	inMeta["direction"] = domain.TxTransferIn
	return r.transactions.Create(ctx, &domain.Transaction{
		AccountID: to,
		Type:      txType,
		Amount:    int64(amount),
		Meta:      inMeta,
	})
}

func (r *AccountRepository) History(ctx context.Context, id int64, limit int) ([]*domain.Transaction, error) {
	return r.transactions.GetByAccountID(ctx, id, limit)
}

// CheckDebit validates a debit of amount from balance under mode.
func CheckDebit(balance, amount uint64, mode domain.TransferMode, existentialDeposit uint64) error {
	if balance < amount {
		return errs.ErrInsufficientFunds
	}
	if mode == domain.KeepAlive && balance-amount < existentialDeposit {
		return errs.ErrKeepAlive
	}
	return nil
}

