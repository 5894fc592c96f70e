// Package metrics exposes Prometheus counters and gauges the engine
// updates during operation, served at /metrics in the Prometheus text
// exposition format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_cycles_total",
			Help: "Trading cycles executed",
		},
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Order submissions by outcome (submitted|rejected|retries_exhausted)",
		},
		[]string{"result"},
	)

	riskDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_risk_denials_total",
			Help: "Intents denied by the risk gate, split by reason",
		},
		[]string{"reason"},
	)

	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Resolved trades by result (win|loss)",
		},
		[]string{"result"},
	)

	verificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_fill_verifications_total",
			Help: "Fill verification outcomes (filled|cancelled|timed_out|failed)",
		},
		[]string{"outcome"},
	)

	pnlGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_pnl_usd",
			Help: "Cumulative realized PnL in USD",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_open_positions",
			Help: "Unresolved trades currently held",
		},
	)

	killSwitch = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_kill_switch",
			Help: "1 when the loss kill switch has halted trading",
		},
	)

	lastCycleTS = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_last_cycle_timestamp_seconds",
			Help: "Unix time of the most recent completed cycle",
		},
	)
)

func init() {
	prometheus.MustRegister(cyclesTotal, ordersTotal, riskDenials, tradesTotal,
		verificationsTotal, pnlGauge, openPositions, killSwitch, lastCycleTS)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncCycle()                      { cyclesTotal.Inc() }
func IncOrder(result string)         { ordersTotal.WithLabelValues(result).Inc() }
func IncRiskDenial(reason string)    { riskDenials.WithLabelValues(reason).Inc() }
func IncTrade(result string)         { tradesTotal.WithLabelValues(result).Inc() }
func IncVerification(outcome string) { verificationsTotal.WithLabelValues(outcome).Inc() }
func SetPnL(v float64)               { pnlGauge.Set(v) }
func SetOpenPositions(n int)         { openPositions.Set(float64(n)) }
func SetLastCycleTime(unixSec int64) { lastCycleTS.Set(float64(unixSec)) }

func SetKillSwitch(on bool) {
	if on {
		killSwitch.Set(1)
	} else {
		killSwitch.Set(0)
	}
}
