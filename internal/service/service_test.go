package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"blindbox/internal/config"
	"blindbox/internal/domain"
	"blindbox/internal/events"
	"blindbox/internal/game"
	"blindbox/internal/random"
	"blindbox/internal/repository"
	"blindbox/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

const adminID int64 = 900

// scriptSource returns fixed values for scripted purposes and falls back to a
// keyed source for everything else.
type scriptSource struct {
	values   map[string]uint32
	fallback random.Source
}

func (s scriptSource) Random(tag []byte) [32]byte {
	rest := bytes.TrimPrefix(tag, []byte("blindbox/"))
	purpose := string(rest[:bytes.IndexByte(rest, 0)])
	v, ok := s.values[purpose]
	if !ok {
		return s.fallback.Random(tag)
	}
	var out [32]byte
	binary.LittleEndian.PutUint32(out[:4], v)
	return out
}

func script(values map[string]uint32) random.Source {
	return scriptSource{values: values, fallback: random.NewKeyed([]byte("test"))}
}

// outcome scripts
var (
	noWin       = map[string]uint32{game.PurposeOpen: 5}
	collectible = map[string]uint32{game.PurposeOpen: 1, game.PurposeSecond: 10000}
	hatOdd      = map[string]uint32{game.PurposeOpen: 1, game.PurposeSecond: 15, game.PurposeVariant: 3}
	utility7    = map[string]uint32{game.PurposeOpen: 1, game.PurposeSecond: 4, game.PurposeUtility: 28}
)

type fixture struct {
	store     *memory.Store
	cfg       *config.Config
	alloc     *Allocator
	redeem    *RedemptionService
	admin     *AdminService
	accounts  *AccountService
	status    *StatusService
	published []domain.Event
	mu        sync.Mutex
}

func newFixture(t *testing.T, src random.Source, opts ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := &config.Config{
		Boxes:      config.BoxesConfig{MaxGenerationAttempts: 50, MaxSpecialAttempts: 1000},
		Redemption: config.RedemptionConfig{Fee: 100},
		Ledger:     config.LedgerConfig{TreasuryID: memory.TreasuryID, ExistentialDeposit: 1, InitialBalance: 10000},
		Auth:       config.AuthConfig{AdminIDs: []int64{adminID}},
		Maxima:     config.DefaultMaxima(),
		Table:      game.DefaultTable(),
	}
	for _, o := range opts {
		o(cfg)
	}

	f := &fixture{store: memory.New(cfg.Ledger.ExistentialDeposit), cfg: cfg}
	pub := events.Func(func(_ context.Context, evts ...domain.Event) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.published = append(f.published, evts...)
	})

	drawer := random.NewDrawer(src)
	selector := game.NewSelector(cfg.Table)
	f.alloc = NewAllocator(f.store, drawer, pub, cfg.Boxes)
	f.redeem = NewRedemptionService(f.store, selector, drawer, pub, NewAuditService(f.store), cfg)
	f.admin = NewAdminService(f.store, pub, cfg.IsAdmin, cfg.Maxima)
	f.accounts = NewAccountService(f.store, cfg.Ledger.InitialBalance)
	f.status = NewStatusService(f.store, selector)
	return f
}

func (f *fixture) account(t *testing.T, balance uint64) int64 {
	t.Helper()
	acc, err := f.accounts.Create(context.Background(), "player", balance)
	require.NoError(t, err)
	return acc.ID
}

// issuer creates a funded issuer account and registers it.
func (f *fixture) issuer(t *testing.T, balance uint64) int64 {
	t.Helper()
	id := f.account(t, balance)
	require.NoError(t, f.admin.SetIssuer(context.Background(), adminID, id))
	return id
}

func (f *fixture) generate(t *testing.T, issuer int64, pool domain.Pool, n uint32) []domain.BoxID {
	t.Helper()
	res, err := f.alloc.Generate(context.Background(), issuer, pool, n)
	require.NoError(t, err)
	require.True(t, res.Complete)
	return res.IDs
}

func (f *fixture) balance(t *testing.T, id int64) uint64 {
	t.Helper()
	acc, err := f.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func (f *fixture) inventory(t *testing.T, c domain.Counter) uint64 {
	t.Helper()
	var v uint64
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		v, err = tx.Inventory().Get(ctx, c)
		return err
	}))
	return v
}

func (f *fixture) exists(t *testing.T, pool domain.Pool, id domain.BoxID) bool {
	t.Helper()
	var ok bool
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		ok, err = tx.Boxes().Exists(ctx, pool, id)
		return err
	}))
	return ok
}

func (f *fixture) count(t *testing.T, pool domain.Pool) uint32 {
	t.Helper()
	pools, err := f.status.Pools(context.Background())
	require.NoError(t, err)
	for _, p := range pools {
		if p.Pool == pool {
			return p.Remaining
		}
	}
	t.Fatalf("pool %s missing", pool)
	return 0
}

func (f *fixture) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.published))
	for i, e := range f.published {
		out[i] = e.Type
	}
	return out
}
