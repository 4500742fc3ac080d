package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

// Metrics holds all Prometheus metrics for the POS ledger.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	salesTotal      *prometheus.CounterVec
	salesAmount     *prometheus.CounterVec
	shiftEvents     *prometheus.CounterVec
	accountTxTotal  *prometheus.CounterVec
	stkOutcomes     *prometheus.CounterVec
	activeShifts    prometheus.Gauge
	ledgerDrift     prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tellerpos_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tellerpos_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tellerpos_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tellerpos_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		salesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tellerpos_sales_total",
				Help: "Sales committed, by outcome.",
			},
			[]string{"status"},
		),
		salesAmount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tellerpos_sales_amount_total",
				Help: "Sale amounts committed, by shift payment bucket.",
			},
			[]string{"method"},
		),
		shiftEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tellerpos_shift_events_total",
				Help: "Shift lifecycle events.",
			},
			[]string{"event"},
		),
		accountTxTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tellerpos_account_transactions_total",
				Help: "Account transactions appended, by type.",
			},
			[]string{"type"},
		),
		stkOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tellerpos_stk_outcomes_total",
				Help: "M-Pesa STK push terminal outcomes.",
			},
			[]string{"status"},
		),
		activeShifts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tellerpos_active_shifts",
			Help: "Shifts currently open.",
		}),
		ledgerDrift: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tellerpos_ledger_drift_accounts",
			Help: "Accounts whose cached balance disagrees with their transaction log at the last integrity check.",
		}),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSale counts a sale attempt with its outcome ("success" or "error").
func (m *Metrics) IncrSale(status string) {
	m.salesTotal.WithLabelValues(status).Inc()
}

// AddSaleAmount adds a committed amount under its shift bucket.
func (m *Metrics) AddSaleAmount(key domain.ShiftPaymentKey, amount float64) {
	m.salesAmount.WithLabelValues(string(key)).Add(amount)
}

// ShiftOpened counts a shift start and bumps the active gauge.
func (m *Metrics) ShiftOpened() {
	m.shiftEvents.WithLabelValues("opened").Inc()
	m.activeShifts.Inc()
}

// ShiftClosed counts a shift close and lowers the active gauge.
func (m *Metrics) ShiftClosed() {
	m.shiftEvents.WithLabelValues("closed").Inc()
	m.activeShifts.Dec()
}

// IncrAccountTx counts appended account transactions.
func (m *Metrics) IncrAccountTx(t domain.TransactionType, n int) {
	m.accountTxTotal.WithLabelValues(string(t)).Add(float64(n))
}

// IncrSTKOutcome counts a terminal STK result.
func (m *Metrics) IncrSTKOutcome(status domain.STKStatus) {
	m.stkOutcomes.WithLabelValues(string(status)).Inc()
}

// SetLedgerDrift records the number of drifting accounts.
func (m *Metrics) SetLedgerDrift(n int) {
	m.ledgerDrift.Set(float64(n))
}

// GetPOSSnapshot returns a snapshot of POS counters suitable for the
// GET /v1/metrics/pos endpoint.
func (m *Metrics) GetPOSSnapshot() *domain.POSMetrics {
	success := getCounterValue(m.salesTotal, "success")
	failed := getCounterValue(m.salesTotal, "error")

	byMethod := make(map[string]float64)
	for _, key := range []domain.ShiftPaymentKey{
		domain.ShiftKeyCash, domain.ShiftKeyMpesa, domain.ShiftKeyMpesaTill,
		domain.ShiftKeyPochiBiashara, domain.ShiftKeyCard, domain.ShiftKeyBankTransfer,
		domain.ShiftKeyCredit,
	} {
		if v := getCounterValue(m.salesAmount, string(key)); v > 0 {
			byMethod[string(key)] = v
		}
	}

	errorRate := float64(0)
	if success+failed > 0 {
		errorRate = failed / (success + failed)
	}

	hits := getCounterValue(m.cacheHits, "stk_status")
	misses := getCounterValue(m.cacheMisses, "stk_status")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.POSMetrics{
		SalesCommitted:   int64(success),
		SalesFailed:      int64(failed),
		SaleErrorRate:    errorRate,
		AmountByMethod:   byMethod,
		ShiftsOpened:     int64(getCounterValue(m.shiftEvents, "opened")),
		ShiftsClosed:     int64(getCounterValue(m.shiftEvents, "closed")),
		ActiveShifts:     int64(getGaugeValue(m.activeShifts)),
		STKSucceeded:     int64(getCounterValue(m.stkOutcomes, string(domain.STKSuccess))),
		STKFailed:        int64(getCounterValue(m.stkOutcomes, string(domain.STKFailed))),
		STKTimedOut:      int64(getCounterValue(m.stkOutcomes, string(domain.STKTimedOut))),
		STKCacheHitRate:  hitRate,
		LedgerDriftCount: int64(getGaugeValue(m.ledgerDrift)),
		Period:           "since_start",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil && m.Gauge.Value != nil {
		return *m.Gauge.Value
	}
	return 0
}
