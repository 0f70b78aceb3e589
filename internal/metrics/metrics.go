// Package metrics counts rounds, payouts and daily claims.
// Collectors are registered on a caller supplied registry; nothing here serves HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Rounds   *prometheus.CounterVec
	Wagered  *prometheus.CounterVec
	Paid     *prometheus.CounterVec
	Claims   *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spinroyale",
			Name:      "rounds_total",
			Help:      "Rounds played by game and outcome.",
		}, []string{"game", "outcome"}),
		Wagered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spinroyale",
			Name:      "wagered_coins_total",
			Help:      "Coins debited as stakes.",
		}, []string{"game"}),
		Paid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spinroyale",
			Name:      "paid_coins_total",
			Help:      "Coins credited as winnings or rewards.",
		}, []string{"game"}),
		Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spinroyale",
			Name:      "daily_claims_total",
			Help:      "Daily claim attempts by category and result.",
		}, []string{"category", "result"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spinroyale",
			Name:      "ledger_failures_total",
			Help:      "Ledger operations that failed after retries.",
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{m.Rounds, m.Wagered, m.Paid, m.Claims, m.Failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Nop returns metrics registered on a private registry.
func Nop() *Metrics {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) Round(game, outcome string) {
	m.Rounds.WithLabelValues(game, outcome).Inc()
}

func (m *Metrics) Wager(game string, coins int64) {
	if coins > 0 {
		m.Wagered.WithLabelValues(game).Add(float64(coins))
	}
}

func (m *Metrics) Payout(game string, coins int64) {
	if coins > 0 {
		m.Paid.WithLabelValues(game).Add(float64(coins))
	}
}

func (m *Metrics) Claim(category, result string) {
	m.Claims.WithLabelValues(category, result).Inc()
}

func (m *Metrics) Failure(op string) {
	m.Failures.WithLabelValues(op).Inc()
}
