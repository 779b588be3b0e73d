// Package metrics holds the Prometheus collectors for the lottery engine.
package metrics

import (
	"blindbox/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blindbox_redemptions_total",
			Help: "Redemptions by pool and outcome",
		},
		[]string{"pool", "outcome"},
	)
	RedemptionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blindbox_redemption_errors_total",
			Help: "Redemptions rejected or failed, by reason",
		},
		[]string{"reason"},
	)
	RewardsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blindbox_rewards_awarded_total",
			Help: "Rewards awarded by category",
		},
		[]string{"category"},
	)
	BoxesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blindbox_boxes_generated_total",
			Help: "Box ids minted by pool",
		},
		[]string{"pool"},
	)
	PoolRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blindbox_pool_remaining",
			Help: "Unopened boxes per pool",
		},
		[]string{"pool"},
	)
	InventoryRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blindbox_inventory_remaining",
			Help: "Remaining inventory per counter",
		},
		[]string{"counter"},
	)
)

func init() {
	prometheus.MustRegister(Redemptions)
	prometheus.MustRegister(RedemptionErrors)
	prometheus.MustRegister(RewardsAwarded)
	prometheus.MustRegister(BoxesGenerated)
	prometheus.MustRegister(PoolRemaining)
	prometheus.MustRegister(InventoryRemaining)
}

// ObservePool records the remaining count of a pool.
func ObservePool(pool domain.Pool, remaining uint32) {
	PoolRemaining.WithLabelValues(string(pool)).Set(float64(remaining))
}

// ObserveInventory records a snapshot of every counter.
func ObserveInventory(inv map[domain.Counter]uint64) {
	for c, v := range inv {
		InventoryRemaining.WithLabelValues(string(c)).Set(float64(v))
	}
}
