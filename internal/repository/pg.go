package repository

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"blindbox/internal/errs"
	"blindbox/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
	pgErrCodeUniqueViolation      = "23505"
)

var (
	errTransactionBegin   = errs.New("failed to begin transaction")
	errTransactionCommit  = errs.New("failed to commit transaction")
	errMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock.PgxPoolIface implements it.
type Pool interface {
	Querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PgStore runs units of work in Postgres transactions and retries
// serialization failures and deadlocks with backoff.
type PgStore struct {
	pool               Pool
	existentialDeposit uint64
	maxRetries         int
	backoff            time.Duration
}

func NewPgStore(pool Pool, existentialDeposit uint64) *PgStore {
	return &PgStore{
		pool:               pool,
		existentialDeposit: existentialDeposit,
		maxRetries:         3,
		backoff:            50 * time.Millisecond,
	}
}

func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the underlying pool for read paths outside a unit of work.
func (s *PgStore) Pool() Pool { return s.pool }

// WithinTx uses ReadCommitted; row locks and guarded updates give the
// per-row atomicity the domain needs.
func (s *PgStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		pgxTx, err := s.pool.BeginTx(ctx, opts)
		if err != nil {
			return errs.Mark(err, errTransactionBegin)
		}

		err = fn(ctx, s.bind(pgxTx))
		if err == nil {
			if err = pgxTx.Commit(ctx); err == nil {
				return nil
			}
			err = errs.Mark(err, errTransactionCommit)
		}

		if rbErr := pgxTx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Warn("rollback failed", "attempt", attempt+1, "error", rbErr)
		}

		if !isRetryable(err) {
			return err
		}
		if attempt == s.maxRetries {
			logger.Error("transaction failed after max retries", "attempts", attempt+1, "error", err)
			return errs.Mark(err, errMaxRetriesExceeded)
		}

		wait := backoff(attempt, s.backoff)
		logger.Warn("retrying transaction", "attempt", attempt+1, "wait_ms", wait.Milliseconds(), "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return errMaxRetriesExceeded
}

func (s *PgStore) bind(q Querier) Tx {
	return &pgTx{q: q, existentialDeposit: s.existentialDeposit}
}

type pgTx struct {
	q                  Querier
	existentialDeposit uint64
}

func (t *pgTx) Boxes() Boxes             { return NewBoxRepository(t.q) }
func (t *pgTx) Inventory() Inventory     { return NewInventoryRepository(t.q) }
func (t *pgTx) Blacklist() Blacklist     { return NewBlacklistRepository(t.q) }
func (t *pgTx) Settings() Settings       { return NewSettingsRepository(t.q) }
func (t *pgTx) Redemptions() Redemptions { return NewRedemptionRepository(t.q) }
func (t *pgTx) Accounts() Accounts       { return NewAccountRepository(t.q, t.existentialDeposit) }
func (t *pgTx) Events() Events           { return NewEventRepository(t.q) }
func (t *pgTx) Audit() Audit             { return NewAuditRepository(t.q) }

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errs.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgErrCodeSerializationFailure || pgErr.Code == pgErrCodeDeadlockDetected
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errs.As(err, &pgErr) && pgErr.Code == pgErrCodeUniqueViolation
}

func backoff(attempt int, base time.Duration) time.Duration {
	wait := time.Duration(1<<attempt) * base
	jitter := rand.Int64N(int64(wait/5) + 1)
	return wait + time.Duration(jitter)
}
