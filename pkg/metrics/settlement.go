package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// SettlementMetrics records settlement, wallet and inventory activity.
type SettlementMetrics struct {
	settlements     *prometheus.CounterVec
	shortages       *prometheus.CounterVec
	walletMutations *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Settlement attempts by payment method and result.",
	}, []string{"payment_method", "result"})
	shortages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_shortages_total",
		Help: "Line items recorded as stock shortages.",
	}, []string{"reason"})
	walletMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_mutations_total",
		Help: "Committed wallet ledger entries by transaction type.",
	}, []string{"type"})
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_gateway_duration_seconds",
		Help:    "Latency of inventory service calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reg.MustRegister(settlements, shortages, walletMutations, gatewayDuration)
	return &SettlementMetrics{
		settlements:     settlements,
		shortages:       shortages,
		walletMutations: walletMutations,
		gatewayDuration: gatewayDuration,
	}
}

// IncSettlement counts one settlement attempt.
func (m *SettlementMetrics) IncSettlement(paymentMethod, result string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(paymentMethod), normalizeLabel(result)).Inc()
}

// IncShortage counts one line item that could not be fully withdrawn.
func (m *SettlementMetrics) IncShortage(reason string) {
	if m == nil || m.shortages == nil {
		return
	}
	m.shortages.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncWalletMutation counts one committed ledger entry.
func (m *SettlementMetrics) IncWalletMutation(txType string) {
	if m == nil || m.walletMutations == nil {
		return
	}
	m.walletMutations.WithLabelValues(normalizeLabel(txType)).Inc()
}

// ObserveGateway records the latency of an inventory service call.
func (m *SettlementMetrics) ObserveGateway(op string, duration time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
