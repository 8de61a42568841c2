// Package metrics exposes the Prometheus instrumentation updated during
// trading cycles and served at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Cycles counts trigger invocations by outcome (ok|busy|market_closed).
	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_cycles_total",
			Help: "Trigger invocations by outcome",
		},
		[]string{"outcome"},
	)

	// OrdersSubmitted counts limit orders placed.
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_orders_submitted_total",
			Help: "Limit orders submitted to the brokerage",
		},
		[]string{"symbol", "side"},
	)

	// FillsObserved counts fills seen by the reconciler.
	FillsObserved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_fills_observed_total",
			Help: "Order fills observed during reconciliation",
		},
		[]string{"symbol", "side"},
	)

	// BuySkips counts buy decisions that ended in a policy no-op, by reason.
	BuySkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_buy_skips_total",
			Help: "Buy decisions skipped, split by reason",
		},
		[]string{"symbol", "reason"},
	)

	// DeployedCapital is the capital locked plus reserved per symbol.
	DeployedCapital = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridbot_deployed_capital_usd",
			Help: "Capital locked in open lots plus reserved against unfilled buys",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(Cycles, OrdersSubmitted, FillsObserved, BuySkips, DeployedCapital)
}
