package metrics

import (
	"strings"
	"time"

	"StockDesk/pkg/fanout"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stockdesk"

// Recorder implements domain.repository.Metrics and fanout.Observer using Prometheus.
type Recorder struct {
	fetches     *prometheus.HistogramVec
	fetchFails  *prometheus.CounterVec
	publishes   *prometheus.HistogramVec
	trades      *prometheus.CounterVec
	journal     *prometheus.CounterVec
	cache       *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Recorder{
		fetches: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of individual view fetches",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"key"},
		),
		fetchFails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_failures_total",
				Help:      "Failed view fetches",
			},
			[]string{"key"},
		),
		publishes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "view_publish_seconds",
				Help:      "Time from aggregation start to publish",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"view", "state"},
		),
		trades: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_total",
				Help:      "Trade attempts by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		journal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "journal_writes_total",
				Help:      "Trade events handed to the journal backend",
			},
			[]string{"backend", "outcome"},
		),
		cache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Market data cache lookups",
			},
			[]string{"endpoint", "result"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// ObserveFetch implements fanout.Observer.
func (r *Recorder) ObserveFetch(key string, elapsed time.Duration, err error) {
	label := keyLabel(key)
	r.fetches.WithLabelValues(label).Observe(elapsed.Seconds())
	if err != nil {
		r.fetchFails.WithLabelValues(label).Inc()
	}
}

// ObservePublish implements fanout.Observer.
func (r *Recorder) ObservePublish(name string, state fanout.State, elapsed time.Duration) {
	r.publishes.WithLabelValues(name, state.String()).Observe(elapsed.Seconds())
}

func (r *Recorder) RecordTrade(action string, ok bool) {
	r.trades.WithLabelValues(action, outcome(ok)).Inc()
}

func (r *Recorder) RecordJournal(backend string, ok bool) {
	r.journal.WithLabelValues(backend, outcome(ok)).Inc()
}

func (r *Recorder) RecordCache(endpoint string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(endpoint, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// keyLabel keeps label cardinality bounded: "quote:AAPL" is recorded as "quote".
func keyLabel(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
