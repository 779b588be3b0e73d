package domain

import (
	"strings"

	"blindbox/internal/errs"
)

// RewardKind is the category of a prize.
type RewardKind string

const (
	RewardScarceCurrencyA  RewardKind = "scarce_currency_a"
	RewardUtilityCurrencyB RewardKind = "utility_currency_b"
	RewardCollectibleAsset RewardKind = "collectible_asset"
	RewardWearableHat      RewardKind = "wearable_hat"
	RewardWearableJacket   RewardKind = "wearable_jacket"
	RewardWearablePants    RewardKind = "wearable_pants"
	RewardWearableShoes    RewardKind = "wearable_shoes"
)

// Counter names one inventory ceiling.
type Counter string

const (
	CounterScarceCurrencyA  Counter = "scarce_currency_a"
	CounterUtilityCurrencyB Counter = "utility_currency_b"
	CounterCollectibleAsset Counter = "collectible_asset"
	CounterWearableHat      Counter = "wearable_hat"
	CounterWearableJacket   Counter = "wearable_jacket"
	CounterWearablePants    Counter = "wearable_pants"
	CounterWearableShoes    Counter = "wearable_shoes"
)

// Counters is every inventory counter in display order.
var Counters = []Counter{
	CounterScarceCurrencyA,
	CounterUtilityCurrencyB,
	CounterCollectibleAsset,
	CounterWearableHat,
	CounterWearableJacket,
	CounterWearablePants,
	CounterWearableShoes,
}

var counterByKind = map[RewardKind]Counter{
	RewardScarceCurrencyA:  CounterScarceCurrencyA,
	RewardUtilityCurrencyB: CounterUtilityCurrencyB,
	RewardCollectibleAsset: CounterCollectibleAsset,
	RewardWearableHat:      CounterWearableHat,
	RewardWearableJacket:   CounterWearableJacket,
	RewardWearablePants:    CounterWearablePants,
	RewardWearableShoes:    CounterWearableShoes,
}

// CounterFor returns the inventory counter a reward kind draws from.
// Both variants of a garment share one counter.
func CounterFor(k RewardKind) (Counter, bool) {
	c, ok := counterByKind[k]
	return c, ok
}

func (c Counter) Valid() bool {
	for _, known := range Counters {
		if c == known {
			return true
		}
	}
	return false
}

func ParseCounter(s string) (Counter, error) {
	c := Counter(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", errs.Wrapf(errs.ErrInvalidCounter, "counter %q", s)
	}
	return c, nil
}

// Variant is the cosmetic style of a wearable (1 or 2). Zero for non-wearables.
type Variant uint8

// VariantFromParity maps an even draw to variant 1 and an odd draw to variant 2.
func VariantFromParity(n uint32) Variant {
	if n%2 == 0 {
		return 1
	}
	return 2
}

// RewardCategory is a reward kind plus its variant.
type RewardCategory struct {
	Kind    RewardKind `json:"kind"`
	Variant Variant    `json:"variant,omitempty"`
}

func (r RewardCategory) String() string {
	switch r.Variant {
	case 1:
		return string(r.Kind) + "_1"
	case 2:
		return string(r.Kind) + "_2"
	default:
		return string(r.Kind)
	}
}

// InventoryItem is the remaining amount of one counter.
type InventoryItem struct {
	Counter   Counter `json:"counter"`
	Remaining uint64  `json:"remaining"`
	Maximum   uint64  `json:"maximum,omitempty"`
}
