package service

import (
	"context"
	"sync"
	"testing"

	"blindbox/internal/config"
	"blindbox/internal/domain"
	"blindbox/internal/errs"
	"blindbox/internal/events"
	"blindbox/internal/game"
	"blindbox/internal/random"
	"blindbox/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeem_UnknownBox(t *testing.T) {
	f := newFixture(t, script(noWin))
	player := f.account(t, 1000)

	_, err := f.redeem.Redeem(context.Background(), player, 12345)
	require.ErrorIs(t, err, errs.ErrBoxNotFound)
	assert.Equal(t, uint64(1000), f.balance(t, player))
}

func TestRedeem_NoWinConsumesBoxAndFee(t *testing.T) {
	f := newFixture(t, script(noWin))
	issuer := f.issuer(t, 0)
	ids := f.generate(t, issuer, domain.PoolStandard, 2)
	player := f.account(t, 1000)

	res, err := f.redeem.Redeem(context.Background(), player, ids[0])
	require.NoError(t, err)
	assert.False(t, res.Won())
	assert.Nil(t, res.Record)
	assert.Equal(t, domain.PoolStandard, res.Pool)

	assert.False(t, f.exists(t, domain.PoolStandard, ids[0]))
	assert.Equal(t, uint32(1), f.count(t, domain.PoolStandard))
	assert.Equal(t, uint64(900), f.balance(t, player))
	assert.Equal(t, uint64(100), f.balance(t, f.cfg.Ledger.TreasuryID))
	assert.Contains(t, f.eventTypes(), domain.EventTypeGoodLuckNextTime)
}

func TestRedeem_ExactlyOnce(t *testing.T) {
	f := newFixture(t, script(hatOdd))
	ctx := context.Background()
	require.NoError(t, f.admin.SetCeiling(ctx, adminID, domain.CounterWearableHat, 10))
	issuer := f.issuer(t, 0)
	ids := f.generate(t, issuer, domain.PoolSpecial, 1)
	player := f.account(t, 1000)

	res, err := f.redeem.Redeem(ctx, player, ids[0])
	require.NoError(t, err)
	require.True(t, res.Won())
	assert.Equal(t, domain.RewardCategory{Kind: domain.RewardWearableHat, Variant: 2}, res.Record.Reward)
	assert.Equal(t, uint64(1), res.Record.Quantity)

	_, err = f.redeem.Redeem(ctx, player, ids[0])
	require.ErrorIs(t, err, errs.ErrBoxNotFound)

	recs, err := f.redeem.BoxRewards(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, uint64(9), f.inventory(t, domain.CounterWearableHat))
	assert.Equal(t, uint64(900), f.balance(t, player), "second attempt must not charge")
}

func TestRedeem_StandardPoolCheckedFirst(t *testing.T) {
	f := newFixture(t, script(map[string]uint32{PurposeIDs: 5, "open": 5}))
	issuer := f.issuer(t, 0)
	f.generate(t, issuer, domain.PoolSpecial, 1)
	f.generate(t, issuer, domain.PoolStandard, 1)
	player := f.account(t, 1000)

	res, err := f.redeem.Redeem(context.Background(), player, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.PoolStandard, res.Pool)
	assert.True(t, f.exists(t, domain.PoolSpecial, 5))

	res, err = f.redeem.Redeem(context.Background(), player, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.PoolSpecial, res.Pool)
}

// Collectible ceiling of one with many concurrent winners: exactly one gets it.
func TestRedeem_SingleCollectibleUnderConcurrency(t *testing.T) {
	f := newFixture(t, script(collectible))
	ctx := context.Background()
	require.NoError(t, f.admin.SetCeiling(ctx, adminID, domain.CounterCollectibleAsset, 1))
	issuer := f.issuer(t, 0)

	const n = 20
	ids := f.generate(t, issuer, domain.PoolStandard, n)
	players := make([]int64, n)
	for i := range players {
		players[i] = f.account(t, 1000)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.redeem.Redeem(ctx, players[i], ids[i])
			if !assert.NoError(t, err) {
				return
			}
			if res.Won() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Zero(t, f.inventory(t, domain.CounterCollectibleAsset))
	assert.Zero(t, f.count(t, domain.PoolStandard))
}

func TestRedeem_ExhaustedTierDoesNotFallThrough(t *testing.T) {
	f := newFixture(t, script(collectible))
	ctx := context.Background()
	for _, c := range domain.Counters {
		if c != domain.CounterCollectibleAsset {
			require.NoError(t, f.admin.SetCeiling(ctx, adminID, c, f.cfg.Maxima[c]))
		}
	}
	issuer := f.issuer(t, 0)
	ids := f.generate(t, issuer, domain.PoolStandard, 1)
	player := f.account(t, 1000)

	res, err := f.redeem.Redeem(ctx, player, ids[0])
	require.NoError(t, err)
	assert.False(t, res.Won())
	assert.Equal(t, f.cfg.Maxima[domain.CounterWearableShoes], f.inventory(t, domain.CounterWearableShoes))
}

func TestRedeem_UtilityPayout(t *testing.T) {
	f := newFixture(t, script(utility7))
	ctx := context.Background()
	require.NoError(t, f.admin.SetCeiling(ctx, adminID, domain.CounterUtilityCurrencyB, 1))
	issuer := f.issuer(t, 100000)
	ids := f.generate(t, issuer, domain.PoolStandard, 2)
	player := f.account(t, 1000)

	res, err := f.redeem.Redeem(ctx, player, ids[0])
	require.NoError(t, err)
	require.True(t, res.Won())
	assert.Equal(t, domain.RewardUtilityCurrencyB, res.Record.Reward.Kind)
	assert.Equal(t, uint64(70000), res.Record.Quantity)
	assert.Equal(t, uint64(70000), res.Record.Payout)

	assert.Zero(t, f.inventory(t, domain.CounterUtilityCurrencyB))
	assert.Equal(t, uint64(1000-100+70000), f.balance(t, player))
	assert.Equal(t, uint64(30000), f.balance(t, issuer))

	// counter is exhausted: the same draw now wins nothing
	res, err = f.redeem.Redeem(ctx, player, ids[1])
	require.NoError(t, err)
	assert.False(t, res.Won())

	rewards, err := f.redeem.Rewards(ctx, player, 10)
	require.NoError(t, err)
	assert.Len(t, rewards, 1)
}

func TestRedeem_PayoutFailureRollsBack(t *testing.T) {
	f := newFixture(t, script(utility7))
	ctx := context.Background()
	require.NoError(t, f.admin.SetCeiling(ctx, adminID, domain.CounterUtilityCurrencyB, 1))
	issuer := f.issuer(t, 100)
	ids := f.generate(t, issuer, domain.PoolStandard, 1)
	player := f.account(t, 1000)

	_, err := f.redeem.Redeem(ctx, player, ids[0])
	require.ErrorIs(t, err, errs.ErrPaymentFailed)

	assert.True(t, f.exists(t, domain.PoolStandard, ids[0]))
	assert.Equal(t, uint64(1), f.inventory(t, domain.CounterUtilityCurrencyB))
	assert.Equal(t, uint64(1000), f.balance(t, player))
}

func TestRedeem_FeeFailureChangesNothing(t *testing.T) {
	f := newFixture(t, script(hatOdd))
	ctx := context.Background()
	require.NoError(t, f.admin.SetCeiling(ctx, adminID, domain.CounterWearableHat, 5))
	issuer := f.issuer(t, 0)
	ids := f.generate(t, issuer, domain.PoolStandard, 1)

	// 100 would reap the account under KeepAlive
	poor := f.account(t, 100)
	_, err := f.redeem.Redeem(ctx, poor, ids[0])
	require.ErrorIs(t, err, errs.ErrPaymentFailed)
	require.ErrorIs(t, err, errs.ErrKeepAlive)

	assert.True(t, f.exists(t, domain.PoolStandard, ids[0]))
	assert.Equal(t, uint32(1), f.count(t, domain.PoolStandard))
	assert.Equal(t, uint64(5), f.inventory(t, domain.CounterWearableHat))
	assert.Equal(t, uint64(100), f.balance(t, poor))
}

func TestRedeem_BlacklistedBeforeFee(t *testing.T) {
	f := newFixture(t, script(noWin))
	ctx := context.Background()
	issuer := f.issuer(t, 0)
	ids := f.generate(t, issuer, domain.PoolStandard, 1)
	player := f.account(t, 1000)
	require.NoError(t, f.admin.AddBlacklist(ctx, adminID, player))

	_, err := f.redeem.Redeem(ctx, player, ids[0])
	require.ErrorIs(t, err, errs.ErrBlacklisted)
	assert.Equal(t, uint64(1000), f.balance(t, player))
	assert.True(t, f.exists(t, domain.PoolStandard, ids[0]))

	require.NoError(t, f.admin.RemoveBlacklist(ctx, adminID, player))
	_, err = f.redeem.Redeem(ctx, player, ids[0])
	require.NoError(t, err)
}

func TestRedeem_ChargeBlacklistedKeepsFee(t *testing.T) {
	f := newFixture(t, script(noWin), func(c *config.Config) { c.Redemption.ChargeBlacklisted = true })
	ctx := context.Background()
	issuer := f.issuer(t, 0)
	ids := f.generate(t, issuer, domain.PoolStandard, 1)
	player := f.account(t, 1000)
	require.NoError(t, f.admin.AddBlacklist(ctx, adminID, player))

	_, err := f.redeem.Redeem(ctx, player, ids[0])
	require.ErrorIs(t, err, errs.ErrBlacklisted)
	assert.Equal(t, uint64(900), f.balance(t, player))
	assert.True(t, f.exists(t, domain.PoolStandard, ids[0]))

	logs, err := NewAuditService(f.store).Recent(ctx, domain.AuditCategoryRedemption, 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, domain.AuditActionRedeemDenied, logs[0].Action)
}

// failingLedger makes every transfer fail with err.
type failingLedger struct {
	repository.Store
	err error
}

func (s failingLedger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, failingTx{Tx: tx, err: s.err})
	})
}

type failingTx struct {
	repository.Tx
	err error
}

func (t failingTx) Accounts() repository.Accounts {
	return failingAccounts{Accounts: t.Tx.Accounts(), err: t.err}
}

type failingAccounts struct {
	repository.Accounts
	err error
}

func (a failingAccounts) Transfer(context.Context, int64, int64, uint64, domain.TransferMode, string, map[string]any) error {
	return a.err
}

func TestRedeem_StorageFailureIsNotPaymentFailure(t *testing.T) {
	f := newFixture(t, script(noWin))
	ctx := context.Background()
	issuer := f.issuer(t, 0)
	ids := f.generate(t, issuer, domain.PoolStandard, 1)
	player := f.account(t, 1000)

	connErr := errs.New("lock account: conn closed")
	svc := NewRedemptionService(failingLedger{Store: f.store, err: connErr}, game.NewSelector(f.cfg.Table),
		random.NewDrawer(script(noWin)), events.Nop{}, NewAuditService(f.store), f.cfg)

	_, err := svc.Redeem(ctx, player, ids[0])
	require.ErrorIs(t, err, connErr)
	assert.False(t, errs.Is(err, errs.ErrPaymentFailed))
	assert.True(t, f.exists(t, domain.PoolStandard, ids[0]))

	_, err = svc.Redeem(ctx, player, 4242)
	require.ErrorIs(t, err, errs.ErrBoxNotFound)

	refused := NewRedemptionService(failingLedger{Store: f.store, err: errs.ErrInsufficientFunds}, game.NewSelector(f.cfg.Table),
		random.NewDrawer(script(noWin)), events.Nop{}, NewAuditService(f.store), f.cfg)
	_, err = refused.Redeem(ctx, player, ids[0])
	require.ErrorIs(t, err, errs.ErrPaymentFailed)
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)
	assert.Equal(t, uint64(1000), f.balance(t, player))
}
