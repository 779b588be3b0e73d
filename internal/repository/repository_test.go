package repository

import (
	"context"
	"testing"
	"time"

	"blindbox/internal/domain"
	"blindbox/internal/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestInventoryRepository_TryDeduct(t *testing.T) {
	mock := newMock(t)
	r := NewInventoryRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(`UPDATE inventory SET remaining = remaining - \$2`).
		WithArgs("collectible_asset", int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"remaining"}).AddRow(int64(0)))
	ok, err := r.TryDeduct(ctx, domain.CounterCollectibleAsset, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(`UPDATE inventory SET remaining = remaining - \$2`).
		WithArgs("collectible_asset", int64(1)).
		WillReturnError(pgx.ErrNoRows)
	ok, err = r.TryDeduct(ctx, domain.CounterCollectibleAsset, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_AllFillsMissingCounters(t *testing.T) {
	mock := newMock(t)
	r := NewInventoryRepository(mock)

	mock.ExpectQuery(`SELECT counter, remaining FROM inventory`).
		WillReturnRows(pgxmock.NewRows([]string{"counter", "remaining"}).
			AddRow("wearable_hat", int64(12)))
	all, err := r.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, len(domain.Counters))
	assert.Equal(t, uint64(12), all[domain.CounterWearableHat])
	assert.Equal(t, uint64(0), all[domain.CounterCollectibleAsset])
}

func TestBoxRepository_DecrementCountUnderflow(t *testing.T) {
	mock := newMock(t)
	r := NewBoxRepository(mock)

	mock.ExpectQuery(`UPDATE pools SET remaining = remaining - 1`).
		WithArgs("standard").
		WillReturnError(pgx.ErrNoRows)
	_, err := r.DecrementCount(context.Background(), domain.PoolStandard)
	require.ErrorIs(t, err, errs.ErrCounterUnderflow)
}

func TestBoxRepository_AddCountOverflow(t *testing.T) {
	mock := newMock(t)
	r := NewBoxRepository(mock)

	mock.ExpectQuery(`UPDATE pools SET remaining = remaining \+ \$2`).
		WithArgs("special", int64(3), int64(4294967295)).
		WillReturnError(pgx.ErrNoRows)
	_, err := r.AddCount(context.Background(), domain.PoolSpecial, 3)
	require.ErrorIs(t, err, errs.ErrArithmeticOverflow)
}

func TestBoxRepository_InsertAndRemove(t *testing.T) {
	mock := newMock(t)
	r := NewBoxRepository(mock)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO boxes \(pool, box_id\) VALUES \(\$1, \$2\) ON CONFLICT DO NOTHING`).
		WithArgs("standard", int64(42)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO boxes`).
		WithArgs("standard", int64(42)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(`DELETE FROM boxes WHERE pool = \$1 AND box_id = \$2`).
		WithArgs("standard", int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	inserted, err := r.Insert(ctx, domain.PoolStandard, 42)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = r.Insert(ctx, domain.PoolStandard, 42)
	require.NoError(t, err)
	assert.False(t, inserted)
	removed, err := r.Remove(ctx, domain.PoolStandard, 42)
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistRepository_AddIsIdempotentAtStorage(t *testing.T) {
	mock := newMock(t)
	r := NewBlacklistRepository(mock)

	mock.ExpectExec(`INSERT INTO blacklist`).WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	added, err := r.Add(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestSettingsRepository_IssuerUnset(t *testing.T) {
	mock := newMock(t)
	r := NewSettingsRepository(mock)

	var none *int64
	mock.ExpectQuery(`SELECT issuer_id FROM settings WHERE id = 1`).
		WillReturnRows(pgxmock.NewRows([]string{"issuer_id"}).AddRow(none))
	_, ok, err := r.Issuer(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettingsRepository_NextNonce(t *testing.T) {
	mock := newMock(t)
	r := NewSettingsRepository(mock)

	mock.ExpectQuery(`INSERT INTO settings \(id, nonce\)`).
		WillReturnRows(pgxmock.NewRows([]string{"nonce"}).AddRow(int64(5)))
	n, err := r.NextNonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)
}

func TestAccountRepository_TransferKeepAlive(t *testing.T) {
	mock := newMock(t)
	r := NewAccountRepository(mock, 10)

	mock.ExpectQuery(`SELECT balance FROM accounts WHERE id = \$1 FOR UPDATE`).WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(0)))
	mock.ExpectQuery(`SELECT balance FROM accounts WHERE id = \$1 FOR UPDATE`).WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(105)))

	err := r.Transfer(context.Background(), 5, 1, 100, domain.KeepAlive, domain.TxRedemptionFee, nil)
	require.ErrorIs(t, err, errs.ErrKeepAlive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Transfer(t *testing.T) {
	mock := newMock(t)
	r := NewAccountRepository(mock, 1)
	now := time.Now()

	mock.ExpectQuery(`SELECT balance FROM accounts WHERE id = \$1 FOR UPDATE`).WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(0)))
	mock.ExpectQuery(`SELECT balance FROM accounts WHERE id = \$1 FOR UPDATE`).WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(500)))
	mock.ExpectExec(`UPDATE accounts SET balance = balance - \$1 WHERE id = \$2`).WithArgs(int64(100), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE accounts SET balance = balance \+ \$1 WHERE id = \$2`).WithArgs(int64(100), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(5), domain.TxRedemptionFee, int64(-100), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(1), domain.TxRedemptionFee, int64(100), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), now))

	err := r.Transfer(context.Background(), 5, 1, 100, domain.KeepAlive, domain.TxRedemptionFee, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	r := NewAccountRepository(mock, 1)

	mock.ExpectQuery(`SELECT id, COALESCE\(tg_id, 0\)`).WithArgs(int64(77)).
		WillReturnError(pgx.ErrNoRows)
	_, err := r.GetByID(context.Background(), 77)
	require.ErrorIs(t, err, errs.ErrAccountNotFound)
}

func TestRedemptionRepository_Create(t *testing.T) {
	mock := newMock(t)
	r := NewRedemptionRepository(mock)
	now := time.Now()

	rec := &domain.RedemptionRecord{
		Pool:      domain.PoolSpecial,
		BoxID:     3,
		AccountID: 8,
		Reward:    domain.RewardCategory{Kind: domain.RewardWearableHat, Variant: 2},
		Quantity:  1,
	}
	mock.ExpectQuery(`INSERT INTO redemptions`).
		WithArgs("special", int64(3), int64(8), "wearable_hat", int16(2), int64(1), int64(0)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))

	require.NoError(t, r.Create(context.Background(), rec))
	assert.Equal(t, int64(11), rec.ID)
	assert.Equal(t, now, rec.CreatedAt)
}

func TestPgStore_RetriesSerializationFailure(t *testing.T) {
	mock := newMock(t)
	s := NewPgStore(mock, 1)
	s.backoff = time.Millisecond
	opts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

	mock.ExpectBeginTx(opts)
	mock.ExpectExec(`DELETE FROM blacklist`).WithArgs(int64(4)).
		WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectRollback()
	mock.ExpectBeginTx(opts)
	mock.ExpectExec(`DELETE FROM blacklist`).WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	calls := 0
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		calls++
		_, err := tx.Blacklist().Remove(ctx, 4)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_DomainErrorRollsBackWithoutRetry(t *testing.T) {
	mock := newMock(t)
	s := NewPgStore(mock, 1)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectRollback()

	calls := 0
	err := s.WithinTx(context.Background(), func(context.Context, Tx) error {
		calls++
		return errs.ErrBoxNotFound
	})
	require.ErrorIs(t, err, errs.ErrBoxNotFound)
	assert.Equal(t, 1, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}
