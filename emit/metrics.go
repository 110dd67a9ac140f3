package emit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects scheduler execution metrics for Prometheus
// scraping. All metrics are namespaced with "dflow_":
//
//   - inflight_frontiers (gauge): frontiers created but not yet exhausted.
//   - queue_depth (gauge): entries waiting in a scheduler queue, labeled by
//     queue ("task" or "timer").
//   - task_latency_ms (histogram): task body duration in milliseconds,
//     labeled by status (success/error).
//   - timer_fires_total (counter): fired timer deadlines.
//   - backpressure_events_total (counter): ingress submissions that
//     blocked on a full connector.
//   - panics_total (counter): recovered action and task panics.
//
// It is not itself an Emitter — the dispatcher calls its typed observation
// methods directly, so hot-path metric updates skip Event allocation. To
// expose the metrics, register them with a prometheus.Registry and serve
// it via promhttp.
type PrometheusMetrics struct {
	inflightFrontiers prometheus.Gauge
	queueDepth        *prometheus.GaugeVec
	taskLatency       *prometheus.HistogramVec
	timerFires        prometheus.Counter
	backpressure      prometheus.Counter
	panics            prometheus.Counter
}

// NewPrometheusMetrics creates and registers all scheduler metrics with
// registry; nil means prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		inflightFrontiers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dflow",
			Name:      "inflight_frontiers",
			Help:      "Number of frontiers created but not yet exhausted.",
		}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dflow",
			Name:      "queue_depth",
			Help:      "Entries waiting in a scheduler queue.",
		}, []string{"queue"}),
		taskLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dflow",
			Name:      "task_latency_ms",
			Help:      "Task body execution duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"status"}),
		timerFires: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dflow",
			Name:      "timer_fires_total",
			Help:      "Total fired timer deadlines.",
		}),
		backpressure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dflow",
			Name:      "backpressure_events_total",
			Help:      "Ingress submissions that observed a full connector.",
		}),
		panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dflow",
			Name:      "panics_total",
			Help:      "Recovered action and task panics.",
		}),
	}
}

// FrontierOpened records a new frontier entering the dispatcher.
func (m *PrometheusMetrics) FrontierOpened() {
	if m == nil {
		return
	}
	m.inflightFrontiers.Inc()
}

// FrontierClosed records a frontier becoming exhausted.
func (m *PrometheusMetrics) FrontierClosed() {
	if m == nil {
		return
	}
	m.inflightFrontiers.Dec()
}

// QueueDepth records the current depth of the named queue.
func (m *PrometheusMetrics) QueueDepth(queue string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// TaskFinished records one task body completing with the given outcome.
func (m *PrometheusMetrics) TaskFinished(duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.taskLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// TimerFired records one fired timer deadline.
func (m *PrometheusMetrics) TimerFired() {
	if m == nil {
		return
	}
	m.timerFires.Inc()
}

// Backpressure records a submission that found the connector full.
func (m *PrometheusMetrics) Backpressure() {
	if m == nil {
		return
	}
	m.backpressure.Inc()
}

// PanicRecovered records one recovered panic.
func (m *PrometheusMetrics) PanicRecovered() {
	if m == nil {
		return
	}
	m.panics.Inc()
}
