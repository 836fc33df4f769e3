package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LendingMetrics struct {
	operations   *prometheus.CounterVec
	liquidations *prometheus.CounterVec
	flashLoans   *prometheus.CounterVec
	stakeOps     *prometheus.CounterVec
	penaltyTaken *prometheus.CounterVec
	rewardsPaid  *prometheus.GaugeVec
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_operations_total",
				Help: "Count of lending operations by kind and asset.",
			}, []string{"op", "asset"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_liquidations_total",
				Help: "Count of executed liquidations by asset.",
			}, []string{"asset"}),
			flashLoans: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_flash_loans_total",
				Help: "Count of successful flash loans by asset.",
			}, []string{"asset"}),
			stakeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_operations_total",
				Help: "Count of staking operations by kind.",
			}, []string{"op"}),
			penaltyTaken: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_penalties_total",
				Help: "Count of early-exit penalties applied by tier.",
			}, []string{"tier"}),
			rewardsPaid: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "staking_rewards_paid",
				Help: "Cumulative staking reward payouts by mode.",
			}, []string{"mode"}),
		}
		prometheus.MustRegister(
			lendingRegistry.operations,
			lendingRegistry.liquidations,
			lendingRegistry.flashLoans,
			lendingRegistry.stakeOps,
			lendingRegistry.penaltyTaken,
			lendingRegistry.rewardsPaid,
		)
	})
	return lendingRegistry
}

func (m *LendingMetrics) ObserveOperation(op, asset string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if asset == "" {
		asset = "unknown"
	}
	m.operations.WithLabelValues(op, asset).Inc()
}

func (m *LendingMetrics) ObserveLiquidation(asset string) {
	if m == nil {
		return
	}
	if asset == "" {
		asset = "unknown"
	}
	m.liquidations.WithLabelValues(asset).Inc()
}

func (m *LendingMetrics) ObserveFlashLoan(asset string) {
	if m == nil {
		return
	}
	if asset == "" {
		asset = "unknown"
	}
	m.flashLoans.WithLabelValues(asset).Inc()
}

func (m *LendingMetrics) ObserveStakeOperation(op string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.stakeOps.WithLabelValues(op).Inc()
}

func (m *LendingMetrics) ObservePenalty(tier string) {
	if m == nil {
		return
	}
	if tier == "" {
		tier = "unknown"
	}
	m.penaltyTaken.WithLabelValues(tier).Inc()
}

func (m *LendingMetrics) AddRewardsPaid(mode string, amount float64) {
	if m == nil {
		return
	}
	if mode == "" {
		mode = "unknown"
	}
	m.rewardsPaid.WithLabelValues(mode).Add(amount)
}
