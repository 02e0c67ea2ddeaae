package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so each process exports only its own series.
type Metrics struct {
	registry       *prometheus.Registry
	recordOps      *prometheus.CounterVec
	workerRestarts *prometheus.CounterVec
	workersAlive   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pms",
			Name:      "record_operations_total",
			Help:      "Record operations by entity, operation and resulting status code.",
		}, []string{"entity", "op", "code"}),
		workerRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pms",
			Name:      "worker_restarts_total",
			Help:      "Worker processes replaced by the supervisor, by exit reason.",
		}, []string{"reason"}),
		workersAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pms",
			Name:      "workers_alive",
			Help:      "Worker processes currently running.",
		}),
	}
	m.registry.MustRegister(
		m.recordOps,
		m.workerRestarts,
		m.workersAlive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRecordOp counts one finished record operation.
func (m *Metrics) ObserveRecordOp(entity, op string, statusCode int) {
	m.recordOps.WithLabelValues(entity, op, strconv.Itoa(statusCode)).Inc()
}

// WorkerRestarted counts one replacement spawned by the supervisor.
func (m *Metrics) WorkerRestarted(reason string) {
	m.workerRestarts.WithLabelValues(reason).Inc()
}

// WorkersAlive records the current pool size.
func (m *Metrics) WorkersAlive(n int) {
	m.workersAlive.Set(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
