package metrics

import (
	"sync"
	"time"

	xhttp "StockDesk/pkg/http"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stockdesk",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of upstream API calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockdesk",
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Upstream API failures by kind",
		},
		[]string{"provider", "endpoint", "kind"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(UpstreamLatency, UpstreamErrors)
	})
}

// ObserveUpstream records one upstream call.
func ObserveUpstream(provider, endpoint string, start time.Time, err error) {
	UpstreamLatency.WithLabelValues(provider, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		UpstreamErrors.WithLabelValues(provider, endpoint, xhttp.KindOf(err)).Inc()
	}
}
