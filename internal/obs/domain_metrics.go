package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutIntentsTotal counts intents applied to checkout flows by outcome.
	CheckoutIntentsTotal *prometheus.CounterVec
	// OrdersConfirmedTotal counts confirmed orders.
	OrdersConfirmedTotal prometheus.Counter
	// OrderTotalMinor observes confirmed order totals in minor currency units.
	OrderTotalMinor prometheus.Histogram
	// EmptyCartRejectionsTotal counts confirm attempts on an empty cart.
	EmptyCartRejectionsTotal prometheus.Counter
	// ActiveSessions tracks live shopping sessions.
	ActiveSessions prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers checkout Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutIntentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_intents_total",
			Help:      "Count of checkout intents by outcome.",
		}, []string{"intent", "result"})
		OrdersConfirmedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_confirmed_total",
			Help:      "Number of confirmed orders.",
		})
		OrderTotalMinor = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_minor",
			Help:      "Confirmed order totals in minor currency units.",
			Buckets:   []float64{1000, 2500, 5000, 10000, 25000, 50000, 100000},
		})
		EmptyCartRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_cart_rejections_total",
			Help:      "Confirm attempts rejected because the cart was empty.",
		})
		ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Shopping sessions currently held in memory.",
		})

		mustRegisterCollector(reg, CheckoutIntentsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutIntentsTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersConfirmedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OrdersConfirmedTotal = v
			}
		})
		mustRegisterCollector(reg, OrderTotalMinor, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				OrderTotalMinor = v
			}
		})
		mustRegisterCollector(reg, EmptyCartRejectionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				EmptyCartRejectionsTotal = v
			}
		})
		mustRegisterCollector(reg, ActiveSessions, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				ActiveSessions = v
			}
		})
	})
}

// DomainMetricsRegistered reports whether MustRegisterDomainMetrics ran.
func DomainMetricsRegistered() bool {
	return CheckoutIntentsTotal != nil
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
