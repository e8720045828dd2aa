package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EvaluationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sentitrade",
			Subsystem: "engine",
			Name:      "latency_seconds",
			Help:      "Latency of engine endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EvaluationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentitrade",
			Subsystem: "engine",
			Name:      "errors_total",
			Help:      "Errors by engine endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EvaluationLatency, EvaluationErrors)
	})
}
