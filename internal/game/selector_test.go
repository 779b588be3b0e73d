package game

import (
	"context"
	"sync"
	"testing"

	"blindbox/internal/domain"
	"blindbox/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDrawer returns a fixed value per purpose and records calls.
type scriptedDrawer struct {
	values map[string]uint32
	calls  []string
}

func (d *scriptedDrawer) Draw(purpose string, _ ...uint64) uint32 {
	d.calls = append(d.calls, purpose)
	return d.values[purpose]
}

type fakeInventory struct {
	mu        sync.Mutex
	remaining map[domain.Counter]uint64
	err       error
}

func newFakeInventory(init map[domain.Counter]uint64) *fakeInventory {
	m := make(map[domain.Counter]uint64, len(init))
	for k, v := range init {
		m[k] = v
	}
	return &fakeInventory{remaining: m}
}

func (f *fakeInventory) TryDeduct(_ context.Context, c domain.Counter, amount uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.remaining[c] < amount {
		return false, nil
	}
	f.remaining[c] -= amount
	return true, nil
}

func fullInventory() *fakeInventory {
	return newFakeInventory(map[domain.Counter]uint64{
		domain.CounterScarceCurrencyA:  200000,
		domain.CounterUtilityCurrencyB: 100,
		domain.CounterCollectibleAsset: 5,
		domain.CounterWearableHat:      200,
		domain.CounterWearableJacket:   200,
		domain.CounterWearablePants:    200,
		domain.CounterWearableShoes:    200,
	})
}

func TestMatchTier_ExhaustivePartition(t *testing.T) {
	const maxRange = 10000
	rules := []struct {
		tier Tier
		hit  func(r uint32) bool
	}{
		{TierCollectible, func(r uint32) bool { return r%maxRange == 0 }},
		{TierShoes, func(r uint32) bool { return r%20 == 0 }},
		{TierSplit, func(r uint32) bool { return r%10 == 0 }},
		{TierHat, func(r uint32) bool { return r%5 == 0 }},
		{TierUtility, func(r uint32) bool { return r%4 == 0 }},
	}

	counts := make(map[Tier]int)
	for r := uint32(0); r <= maxRange; r++ {
		want := TierNone
		for _, rule := range rules {
			if rule.hit(r) {
				want = rule.tier
				break
			}
		}
		got := MatchTier(r, maxRange)
		require.Equal(t, want, got, "r=%d", r)
		counts[got]++
	}

	assert.Equal(t, 2, counts[TierCollectible])
	assert.Equal(t, 499, counts[TierShoes])
	assert.Equal(t, 500, counts[TierSplit])
	assert.Equal(t, 1000, counts[TierHat])
	assert.Equal(t, 2000, counts[TierUtility])
	assert.Equal(t, 6000, counts[TierNone])

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, maxRange+1, total)
}

func TestSelector_NoWinRate(t *testing.T) {
	s := NewSelector(DefaultTable())
	noWin := 0
	for first := uint32(0); first < 10000; first++ {
		if s.NoWin(first) {
			noWin++
		}
	}
	assert.Equal(t, 2000, noWin)
}

func TestSelector_NoWinReducesFirst(t *testing.T) {
	s := NewSelector(DefaultTable())
	// 10001 % 10001 == 0
	assert.True(t, s.NoWin(10001))
	assert.False(t, s.NoWin(10002))
}

func TestSelector_Open_FirstStageLossTouchesNothing(t *testing.T) {
	s := NewSelector(DefaultTable())
	inv := fullInventory()
	d := &scriptedDrawer{values: map[string]uint32{PurposeOpen: 15}}

	out, err := s.Open(context.Background(), inv, d, 1)
	require.NoError(t, err)
	assert.False(t, out.Won)
	assert.Equal(t, TierNone, out.Tier)
	assert.Equal(t, []string{PurposeOpen}, d.calls)
	assert.Equal(t, uint64(5), inv.remaining[domain.CounterCollectibleAsset])
}

func TestSelector_Resolve_Collectible(t *testing.T) {
	s := NewSelector(DefaultTable())
	inv := newFakeInventory(map[domain.Counter]uint64{domain.CounterCollectibleAsset: 1})
	d := &scriptedDrawer{}

	out, err := s.Resolve(context.Background(), inv, d, 10000)
	require.NoError(t, err)
	require.True(t, out.Won)
	assert.Equal(t, domain.RewardCollectibleAsset, out.Reward.Kind)
	assert.Equal(t, uint64(1), out.Quantity)
	assert.Equal(t, uint64(0), inv.remaining[domain.CounterCollectibleAsset])

	// inventory exhausted: no win, no fall-through
	out, err = s.Resolve(context.Background(), inv, d, 0)
	require.NoError(t, err)
	assert.False(t, out.Won)
	assert.Equal(t, TierCollectible, out.Tier)
}

func TestSelector_Resolve_WearableVariantByParity(t *testing.T) {
	s := NewSelector(DefaultTable())
	cases := []struct {
		name    string
		r       uint32
		split   uint32
		variant uint32
		kind    domain.RewardKind
		want    domain.Variant
	}{
		{"shoes even", 40, 0, 8, domain.RewardWearableShoes, 1},
		{"shoes odd", 40, 0, 9, domain.RewardWearableShoes, 2},
		{"hat even", 15, 0, 2, domain.RewardWearableHat, 1},
		{"jacket odd", 30, 1, 3, domain.RewardWearableJacket, 2},
		{"pants even", 30, 2, 4, domain.RewardWearablePants, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &scriptedDrawer{values: map[string]uint32{PurposeSplit: tc.split, PurposeVariant: tc.variant}}
			out, err := s.Resolve(context.Background(), fullInventory(), d, tc.r)
			require.NoError(t, err)
			require.True(t, out.Won)
			assert.Equal(t, tc.kind, out.Reward.Kind)
			assert.Equal(t, tc.want, out.Reward.Variant)
			assert.Equal(t, uint64(1), out.Quantity)
		})
	}
}

func TestSelector_Resolve_ScarceNeedsFullAmount(t *testing.T) {
	s := NewSelector(DefaultTable())
	d := &scriptedDrawer{values: map[string]uint32{PurposeSplit: 3}}

	inv := newFakeInventory(map[domain.Counter]uint64{domain.CounterScarceCurrencyA: 499})
	out, err := s.Resolve(context.Background(), inv, d, 30)
	require.NoError(t, err)
	assert.False(t, out.Won)
	assert.Equal(t, uint64(499), inv.remaining[domain.CounterScarceCurrencyA])

	inv = newFakeInventory(map[domain.Counter]uint64{domain.CounterScarceCurrencyA: 500})
	out, err = s.Resolve(context.Background(), inv, d, 30)
	require.NoError(t, err)
	require.True(t, out.Won)
	assert.Equal(t, uint64(500), out.Quantity)
	assert.Equal(t, uint64(0), inv.remaining[domain.CounterScarceCurrencyA])
}

func TestSelector_Resolve_UtilityChargesOneUnit(t *testing.T) {
	s := NewSelector(DefaultTable())
	inv := newFakeInventory(map[domain.Counter]uint64{domain.CounterUtilityCurrencyB: 1})
	// 28 % 21 == 7
	d := &scriptedDrawer{values: map[string]uint32{PurposeUtility: 28}}

	out, err := s.Resolve(context.Background(), inv, d, 4)
	require.NoError(t, err)
	require.True(t, out.Won)
	assert.Equal(t, TierUtility, out.Tier)
	assert.Equal(t, uint64(7*10000), out.Quantity)
	assert.Equal(t, uint64(7*10000), out.Payout)
	assert.Equal(t, uint64(0), inv.remaining[domain.CounterUtilityCurrencyB])
}

func TestSelector_Resolve_UtilityOverflow(t *testing.T) {
	s := NewSelector(Table{MaxRange: 10000, MaxUtilityAmount: ^uint32(0), UtilityUnit: ^uint64(0)})
	d := &scriptedDrawer{values: map[string]uint32{PurposeUtility: 2}}
	_, err := s.Resolve(context.Background(), fullInventory(), d, 4)
	require.ErrorIs(t, err, errs.ErrArithmeticOverflow)
}

func TestSelector_Resolve_InventoryError(t *testing.T) {
	s := NewSelector(DefaultTable())
	inv := fullInventory()
	inv.err = errs.New("db down")
	_, err := s.Resolve(context.Background(), inv, &scriptedDrawer{}, 10000)
	require.Error(t, err)
}

func TestSelector_Odds_SumToOne(t *testing.T) {
	s := NewSelector(DefaultTable())
	sum := 0.0
	for _, o := range s.Odds() {
		sum += o.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
