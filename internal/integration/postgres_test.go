package integration

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"blindbox/internal/config"
	"blindbox/internal/db"
	"blindbox/internal/domain"
	"blindbox/internal/errs"
	"blindbox/internal/events"
	"blindbox/internal/game"
	"blindbox/internal/random"
	"blindbox/internal/repository"
	"blindbox/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID int64 = 900

// fixedSource pins selected draw purposes and leaves the rest keyed.
type fixedSource struct {
	values   map[string]uint32
	fallback random.Source
}

func (s fixedSource) Random(tag []byte) [32]byte {
	rest := bytes.TrimPrefix(tag, []byte("blindbox/"))
	if v, ok := s.values[string(rest[:bytes.IndexByte(rest, 0)])]; ok {
		var out [32]byte
		binary.LittleEndian.PutUint32(out[:4], v)
		return out
	}
	return s.fallback.Random(tag)
}

type env struct {
	pool     *pgxpool.Pool
	store    repository.Store
	accounts *service.AccountService
	admin    *service.AdminService
	alloc    *service.Allocator
	redeem   *service.RedemptionService
	cfg      *config.Config
}

func setup(t *testing.T, src random.Source) *env {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx, dsn))
	pool, err := db.Connect(ctx, dsn, 20)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	reset(t, pool)

	cfg := &config.Config{
		Boxes:      config.BoxesConfig{MaxGenerationAttempts: 500, MaxSpecialAttempts: 1000},
		Redemption: config.RedemptionConfig{Fee: 100},
		Ledger:     config.LedgerConfig{TreasuryID: 1, ExistentialDeposit: 1, InitialBalance: 1000},
		Auth:       config.AuthConfig{AdminIDs: []int64{adminID}},
		Maxima:     config.DefaultMaxima(),
		Table:      game.DefaultTable(),
	}
	store := repository.NewPgStore(pool, cfg.Ledger.ExistentialDeposit)
	drawer := random.NewDrawer(src)
	selector := game.NewSelector(cfg.Table)
	pub := events.Nop{}

	return &env{
		pool:     pool,
		store:    store,
		accounts: service.NewAccountService(store, cfg.Ledger.InitialBalance),
		admin:    service.NewAdminService(store, pub, cfg.IsAdmin, cfg.Maxima),
		alloc:    service.NewAllocator(store, drawer, pub, cfg.Boxes),
		redeem:   service.NewRedemptionService(store, selector, drawer, pub, service.NewAuditService(store), cfg),
		cfg:      cfg,
	}
}

func reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		TRUNCATE boxes, redemptions, blacklist, events, audit_logs, transactions;
		DELETE FROM accounts WHERE id <> 1;
		UPDATE accounts SET balance = 0 WHERE id = 1;
		UPDATE pools SET remaining = 0;
		UPDATE inventory SET remaining = 0;
		UPDATE settings SET issuer_id = NULL, nonce = 0;
	`)
	require.NoError(t, err)
}

func (e *env) players(t *testing.T, n int) []int64 {
	t.Helper()
	out := make([]int64, n)
	for i := range out {
		acc, err := e.accounts.Create(context.Background(), "player", 1000)
		require.NoError(t, err)
		out[i] = acc.ID
	}
	return out
}

func (e *env) issue(t *testing.T, pool domain.Pool, n uint32) []domain.BoxID {
	t.Helper()
	ctx := context.Background()
	issuer, err := e.accounts.Create(ctx, "issuer", 0)
	require.NoError(t, err)
	require.NoError(t, e.admin.SetIssuer(ctx, adminID, issuer.ID))

	res, err := e.alloc.Generate(ctx, issuer.ID, pool, n)
	require.NoError(t, err)
	require.True(t, res.Complete)
	return res.IDs
}

func TestPostgres_SingleCollectibleUnderConcurrency(t *testing.T) {
	src := fixedSource{
		values:   map[string]uint32{game.PurposeOpen: 1, game.PurposeSecond: 10000},
		fallback: random.NewKeyed([]byte("integration")),
	}
	e := setup(t, src)
	ctx := context.Background()
	require.NoError(t, e.admin.SetCeiling(ctx, adminID, domain.CounterCollectibleAsset, 1))

	const n = 30
	ids := e.issue(t, domain.PoolStandard, n)
	players := e.players(t, n)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.redeem.Redeem(ctx, players[i], ids[i])
			if assert.NoError(t, err) && res.Won() {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	var remaining, treasury int64
	require.NoError(t, e.pool.QueryRow(ctx, `SELECT remaining FROM inventory WHERE counter = 'collectible_asset'`).Scan(&remaining))
	require.NoError(t, e.pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = 1`).Scan(&treasury))
	assert.Zero(t, remaining)
	assert.Equal(t, int64(n*100), treasury)

	var count int64
	require.NoError(t, e.pool.QueryRow(ctx, `SELECT remaining FROM pools WHERE kind = 'standard'`).Scan(&count))
	assert.Zero(t, count)
}

func TestPostgres_SameBoxRedeemedOnce(t *testing.T) {
	e := setup(t, random.NewKeyed([]byte("integration")))
	ctx := context.Background()

	ids := e.issue(t, domain.PoolSpecial, 1)
	players := e.players(t, 10)

	var (
		wg       sync.WaitGroup
		ok       atomic.Int32
		notFound atomic.Int32
	)
	for _, p := range players {
		wg.Add(1)
		go func(p int64) {
			defer wg.Done()
			_, err := e.redeem.Redeem(ctx, p, ids[0])
			switch {
			case err == nil:
				ok.Add(1)
			case errs.Is(err, errs.ErrBoxNotFound):
				notFound.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(9), notFound.Load())
}
