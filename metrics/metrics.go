// Package metrics provides Prometheus instrumentation for the simulator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

var (
	// TradesTotal counts fully closed trades, partitioned by exit reason.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "futsim_trades_total",
		Help: "Total number of closed trades",
	}, []string{"reason"})

	// OrdersRejected counts orders the execution simulator declined.
	OrdersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "futsim_orders_rejected_total",
		Help: "Orders declined by the execution simulator",
	})

	// OrderLatency tracks simulated order latency in milliseconds.
	OrderLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "futsim_order_latency_ms",
		Help:    "Simulated order latency in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 75, 100, 150, 250},
	})

	// CandlesProcessed counts simulation steps.
	CandlesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "futsim_candles_processed_total",
		Help: "Candles advanced by the simulation driver",
	})

	// AccountBalance tracks the current simulated balance.
	AccountBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "futsim_account_balance",
		Help: "Current simulated account balance",
	})

	// DrawdownPercent tracks drawdown as a percent of the hard ceiling.
	DrawdownPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "futsim_drawdown_percent",
		Help: "Trailing drawdown as percent of the configured ceiling",
	})

	// RiskSizeMultiplier tracks the composite risk throttle output.
	RiskSizeMultiplier = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "futsim_risk_size_multiplier",
		Help: "Composite risk-throttle size multiplier",
	})

	// GapLossDollars accumulates gap-through-stop losses, kept separate
	// from ordinary slippage.
	GapLossDollars = promauto.NewCounter(prometheus.CounterOpts{
		Name: "futsim_gap_loss_dollars_total",
		Help: "Cumulative dollars lost to gaps through resting stops",
	})

	// WebSocketClients tracks connected analytics stream clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "futsim_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})
)
