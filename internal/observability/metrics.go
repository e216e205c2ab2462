package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

var (
	registerOnce sync.Once

	transfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xferctl",
			Subsystem: "transfer",
			Name:      "transfers_total",
			Help:      "Transfers processed by outcome.",
		},
		[]string{"status"},
	)
	transferBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xferctl",
			Subsystem: "transfer",
			Name:      "bytes_received_total",
			Help:      "Payload bytes written to completed destination files.",
		},
	)
	transferDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "xferctl",
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Completed transfer duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(transfersTotal, transferBytes, transferDuration)
	})
}

func RecordTransferComplete(bytes uint64, duration time.Duration) {
	RegisterMetrics()
	transfersTotal.WithLabelValues(StatusComplete).Inc()
	transferBytes.Add(float64(bytes))
	transferDuration.Observe(duration.Seconds())
}

func RecordTransferFailed() {
	RegisterMetrics()
	transfersTotal.WithLabelValues(StatusFailed).Inc()
}
