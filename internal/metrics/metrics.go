// Package metrics exposes Prometheus counters the bot updates during
// operation, served at /metrics by the web server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ticks counts reconciliation loop passes, split by outcome.
	Ticks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandbot_ticks_total",
			Help: "Reconciliation loop ticks",
		},
		[]string{"outcome"}, // ok|error
	)

	// Orders counts orders submitted to the exchange.
	Orders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandbot_orders_total",
			Help: "Orders placed",
		},
		[]string{"side"}, // BUY|SELL
	)

	// OrdersRejected counts orders rejected locally before submission.
	OrdersRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bandbot_orders_rejected_total",
			Help: "Orders rejected locally (below exchange minimums)",
		},
	)

	// PositionState mirrors the state machine: 0 flat, 1 order pending, 2 open.
	PositionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bandbot_position_state",
			Help: "Current position state (0=flat, 1=order pending, 2=open)",
		},
	)

	// LastPrice is the latest closed-candle close used for trigger comparison.
	LastPrice = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bandbot_last_price",
			Help: "Last closed-candle close price",
		},
	)
)
