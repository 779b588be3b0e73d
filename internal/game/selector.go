package game

import (
	"context"
	"math/bits"

	"blindbox/internal/domain"
	"blindbox/internal/errs"
)

// Draw purposes. Each fresh draw uses its own purpose so that values taken
// for different decisions are independent.
const (
	PurposeOpen    = "open"
	PurposeSecond  = "second"
	PurposeVariant = "variant"
	PurposeSplit   = "split"
	PurposeUtility = "utility_amount"
)

// Drawer produces a uint32 from a purpose and seeds.
type Drawer interface {
	Draw(purpose string, seeds ...uint64) uint32
}

// Inventory is the check-and-deduct view the selector needs.
type Inventory interface {
	TryDeduct(ctx context.Context, counter domain.Counter, amount uint64) (bool, error)
}

// Table holds the constants of the reward schedule.
type Table struct {
	MaxRange         uint32 `json:"max_range"`
	ScarceAmount     uint64 `json:"scarce_amount"`
	MaxUtilityAmount uint32 `json:"max_utility_amount"`
	UtilityUnit      uint64 `json:"utility_unit"`
}

// DefaultTable returns the production reward schedule
func DefaultTable() Table {
	return Table{
		MaxRange:         10000,
		ScarceAmount:     500,
		MaxUtilityAmount: 20,
		UtilityUnit:      10000,
	}
}

// Tier is the bucket a second-stage draw falls into.
type Tier int

const (
	TierNone Tier = iota
	TierCollectible
	TierShoes
	TierSplit
	TierHat
	TierUtility
)

func (t Tier) String() string {
	switch t {
	case TierCollectible:
		return "collectible"
	case TierShoes:
		return "shoes"
	case TierSplit:
		return "split"
	case TierHat:
		return "hat"
	case TierUtility:
		return "utility"
	default:
		return "none"
	}
}

// MatchTier maps r in [0, maxRange] to exactly one tier. Order matters:
// the first matching rule wins.
func MatchTier(r, maxRange uint32) Tier {
	switch {
	case r%maxRange == 0:
		return TierCollectible
	case r%20 == 0:
		return TierShoes
	case r%10 == 0:
		return TierSplit
	case r%5 == 0:
		return TierHat
	case r%4 == 0:
		return TierUtility
	default:
		return TierNone
	}
}

// Outcome is the result of one selection.
type Outcome struct {
	Won      bool
	Tier     Tier
	Reward   domain.RewardCategory
	Quantity uint64
	Payout   uint64
	// First and Second are the raw stage values, kept for auditing.
	First  uint32
	Second uint32
}

type Selector struct {
	table Table
}

func NewSelector(t Table) *Selector {
	if t.MaxRange == 0 {
		t.MaxRange = DefaultTable().MaxRange
	}
	return &Selector{table: t}
}

func (s *Selector) Table() Table { return s.table }

// NoWin reports whether a first-stage draw loses outright.
func (s *Selector) NoWin(first uint32) bool {
	return s.reduce(first)%5 == 0
}

// SecondDraw derives the second-stage value from the reduced first draw.
func (s *Selector) SecondDraw(d Drawer, first uint32) uint32 {
	return s.reduce(d.Draw(PurposeSecond, uint64(s.reduce(first))))
}

func (s *Selector) reduce(v uint32) uint32 {
	if s.table.MaxRange == ^uint32(0) {
		return v
	}
	return v % (s.table.MaxRange + 1)
}

// Open runs both stages for a box. The seed is normally the box id.
func (s *Selector) Open(ctx context.Context, inv Inventory, d Drawer, seed uint32) (Outcome, error) {
	first := d.Draw(PurposeOpen, uint64(seed))
	if s.NoWin(first) {
		return Outcome{Tier: TierNone, First: first}, nil
	}
	second := s.SecondDraw(d, first)
	out, err := s.Resolve(ctx, inv, d, second)
	out.First = first
	return out, err
}

// Resolve evaluates the tier for r and deducts its inventory. A tier whose
// counter cannot cover the charge yields no win; later tiers are not tried.
func (s *Selector) Resolve(ctx context.Context, inv Inventory, d Drawer, r uint32) (Outcome, error) {
	tier := MatchTier(r, s.table.MaxRange)
	out := Outcome{Tier: tier, Second: r}

	var charge uint64
	switch tier {
	case TierNone:
		return out, nil
	case TierCollectible:
		out.Reward = domain.RewardCategory{Kind: domain.RewardCollectibleAsset}
		out.Quantity, charge = 1, 1
	case TierShoes:
		out.Reward = domain.RewardCategory{
			Kind:    domain.RewardWearableShoes,
			Variant: domain.VariantFromParity(d.Draw(PurposeVariant, uint64(r))),
		}
		out.Quantity, charge = 1, 1
	case TierSplit:
		switch d.Draw(PurposeSplit, uint64(r)) % 3 {
		case 0:
			out.Reward = domain.RewardCategory{Kind: domain.RewardScarceCurrencyA}
			out.Quantity, charge = s.table.ScarceAmount, s.table.ScarceAmount
		case 1:
			out.Reward = domain.RewardCategory{
				Kind:    domain.RewardWearableJacket,
				Variant: domain.VariantFromParity(d.Draw(PurposeVariant, uint64(r))),
			}
			out.Quantity, charge = 1, 1
		default:
			out.Reward = domain.RewardCategory{
				Kind:    domain.RewardWearablePants,
				Variant: domain.VariantFromParity(d.Draw(PurposeVariant, uint64(r))),
			}
			out.Quantity, charge = 1, 1
		}
	case TierHat:
		out.Reward = domain.RewardCategory{
			Kind:    domain.RewardWearableHat,
			Variant: domain.VariantFromParity(d.Draw(PurposeVariant, uint64(r))),
		}
		out.Quantity, charge = 1, 1
	case TierUtility:
		q := uint64(d.Draw(PurposeUtility, uint64(r))) % (uint64(s.table.MaxUtilityAmount) + 1)
		hi, amount := bits.Mul64(q, s.table.UtilityUnit)
		if hi != 0 {
			return Outcome{}, errs.Wrapf(errs.ErrArithmeticOverflow, "utility amount %d x %d", q, s.table.UtilityUnit)
		}
		out.Reward = domain.RewardCategory{Kind: domain.RewardUtilityCurrencyB}
		out.Quantity, out.Payout = amount, amount
		// the utility counter tracks wins, not currency
		charge = 1
	}

	counter, ok := domain.CounterFor(out.Reward.Kind)
	if !ok {
		return Outcome{}, errs.Wrapf(errs.ErrInvalidCounter, "reward %s", out.Reward.Kind)
	}
	deducted, err := inv.TryDeduct(ctx, counter, charge)
	if err != nil {
		return Outcome{}, err
	}
	if !deducted {
		return Outcome{Tier: tier, Second: r}, nil
	}
	out.Won = true
	return out, nil
}

// TierInfo describes one tier for clients.
type TierInfo struct {
	Tier        string   `json:"tier"`
	Rule        string   `json:"rule"`
	Rewards     []string `json:"rewards"`
	Probability float64  `json:"probability"`
}

// Odds returns the nominal probability of each tier, ignoring inventory.
// Stage one passes 4/5 of draws; stage two is uniform over [0, MaxRange].
func (s *Selector) Odds() []TierInfo {
	counts := make(map[Tier]int)
	for r := uint32(0); ; r++ {
		counts[MatchTier(r, s.table.MaxRange)]++
		if r == s.table.MaxRange {
			break
		}
	}
	total := float64(s.table.MaxRange) + 1
	pass := 0.8
	p := func(t Tier) float64 { return pass * float64(counts[t]) / total }
	return []TierInfo{
		{Tier: TierCollectible.String(), Rule: "r % max_range == 0", Rewards: []string{string(domain.RewardCollectibleAsset)}, Probability: p(TierCollectible)},
		{Tier: TierShoes.String(), Rule: "r % 20 == 0", Rewards: []string{string(domain.RewardWearableShoes)}, Probability: p(TierShoes)},
		{Tier: TierSplit.String(), Rule: "r % 10 == 0", Rewards: []string{string(domain.RewardScarceCurrencyA), string(domain.RewardWearableJacket), string(domain.RewardWearablePants)}, Probability: p(TierSplit)},
		{Tier: TierHat.String(), Rule: "r % 5 == 0", Rewards: []string{string(domain.RewardWearableHat)}, Probability: p(TierHat)},
		{Tier: TierUtility.String(), Rule: "r % 4 == 0", Rewards: []string{string(domain.RewardUtilityCurrencyB)}, Probability: p(TierUtility)},
		{Tier: TierNone.String(), Rule: "otherwise", Probability: 1 - pass + p(TierNone)},
	}
}
