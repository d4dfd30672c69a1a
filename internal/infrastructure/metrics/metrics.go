package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestTotal tracks ingested records by outcome
	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logwell_ingest_total",
		Help: "Total number of ingest requests processed",
	}, []string{"status"})

	// QueryDuration tracks log query processing time
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "logwell_query_duration_seconds",
		Help:    "Histogram of log query duration",
		Buckets: prometheus.DefBuckets,
	})

	// LockRetries counts log store writer lock contention retries
	LockRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logwell_store_lock_retries_total",
		Help: "Total number of log store lock acquisition retries",
	})

	// BroadcastDelivered counts realtime events delivered to sessions
	BroadcastDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logwell_broadcast_delivered_total",
		Help: "Total number of realtime events delivered",
	})

	// BroadcastDropped counts events dropped because a session buffer was full
	BroadcastDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logwell_broadcast_dropped_total",
		Help: "Total number of realtime events dropped",
	})

	// SessionsActive tracks currently connected realtime sessions
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "logwell_realtime_sessions_active",
		Help: "Number of connected realtime sessions",
	})
)
