package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/frontdesk/internal/config"
	"go.uber.org/fx"
)

const (
	OpStart  = "start"
	OpQuote  = "quote"
	OpSave   = "save"
	OpPay    = "pay"
	OpCancel = "cancel"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

func ConfigFromApp(cfg config.Config) Config {
	return Config{ServiceName: cfg.AppName, Environment: cfg.Environment}
}

// Metrics exposes front-desk instruments. A nil *Metrics is a no-op.
type Metrics struct {
	transitions    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	pricingChanges *prometheus.CounterVec
	collected      prometheus.Counter
	auditDropped   *prometheus.CounterVec
}

var Module = fx.Module("metrics",
	fx.Provide(
		ConfigFromApp,
		func() prometheus.Registerer { return prometheus.DefaultRegisterer },
		New,
	),
)

func New(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "frontdesk"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_checkout_transitions_total",
		Help:        "Checkout transitions by operation and result.",
		ConstLabels: constLabels,
	}, []string{"op", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "frontdesk_checkout_duration_seconds",
		Help:        "Checkout transition latency including persistence.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"op"})
	pricingChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_pricing_changes_total",
		Help:        "Pricing configuration saves and restores.",
		ConstLabels: constLabels,
	}, []string{"kind"})
	collected := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "frontdesk_collected_amount_total",
		Help:        "Money collected by Pay transitions, in whole currency units.",
		ConstLabels: constLabels,
	})
	auditDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_audit_dropped_total",
		Help:        "Audit entries dropped before reaching the store.",
		ConstLabels: constLabels,
	}, []string{"reason"})

	registerer.MustRegister(transitions, duration, pricingChanges, collected, auditDropped)

	return &Metrics{
		transitions:    transitions,
		duration:       duration,
		pricingChanges: pricingChanges,
		collected:      collected,
		auditDropped:   auditDropped,
	}
}

// ObserveTransition records one checkout operation with its classified result.
func (m *Metrics) ObserveTransition(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(op, ClassifyResult(err)).Inc()
	if elapsed < 0 {
		elapsed = 0
	}
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) IncPricingChange(kind string) {
	if m == nil {
		return
	}
	m.pricingChanges.WithLabelValues(strings.TrimSpace(kind)).Inc()
}

func (m *Metrics) AddCollected(amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.collected.Add(float64(amount))
}

func (m *Metrics) IncAuditDropped(reason string) {
	if m == nil {
		return
	}
	m.auditDropped.WithLabelValues(reason).Inc()
}
