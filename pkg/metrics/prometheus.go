package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	samplesIngested   *prometheus.CounterVec
	signalTransitions *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	lastPrice         *prometheus.GaugeVec
	lastSentiment     *prometheus.GaugeVec
	latency           *prometheus.HistogramVec
	backtestBars      prometheus.Counter
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		samplesIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentitrade_samples_ingested_total",
				Help: "Ingested samples by kind and asset",
			},
			[]string{"kind", "asset"},
		),
		signalTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentitrade_signal_transitions_total",
				Help: "Signal lifecycle transitions",
			},
			[]string{"asset", "from", "to"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentitrade_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sentitrade_last_price",
				Help: "Last observed price for an asset",
			},
			[]string{"asset"},
		),
		lastSentiment: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sentitrade_last_sentiment_score",
				Help: "Last observed sentiment score for an asset",
			},
			[]string{"asset"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentitrade_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backtestBars: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sentitrade_backtest_bars_total",
				Help: "Bars simulated across backtest runs",
			},
		),
	}
}

// RecordSampleIngested records an ingested tick or sentiment sample.
func (r *Recorder) RecordSampleIngested(kind, asset string) {
	r.samplesIngested.WithLabelValues(kind, asset).Inc()
}

// RecordSignalTransition records a lifecycle transition.
func (r *Recorder) RecordSignalTransition(asset, from, to string) {
	r.signalTransitions.WithLabelValues(asset, from, to).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an asset.
func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordLastSentiment records the last sentiment score for an asset.
func (r *Recorder) RecordLastSentiment(asset string, score float64) {
	r.lastSentiment.WithLabelValues(asset).Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordBacktestBars adds simulated bars to the running total.
func (r *Recorder) RecordBacktestBars(n int) {
	if n > 0 {
		r.backtestBars.Add(float64(n))
	}
}
