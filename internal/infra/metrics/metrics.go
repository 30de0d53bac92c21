// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	lockRetries     prometheus.Counter
	lockBusy        prometheus.Counter
}

// New builds a private registry with process/go collectors and the ledger's own series.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_commands_total",
			Help: "Provider callback commands by command and result code.",
		}, []string{"command", "code"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provider_command_duration_seconds",
			Help:    "Provider callback handling latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		lockRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_lock_retries_total",
			Help: "Scope lock attempts that found the key held and backed off.",
		}),
		lockBusy: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_lock_busy_total",
			Help: "Operations that gave up after exhausting the scope lock retry budget.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.commands,
		m.commandDuration,
		m.lockRetries,
		m.lockBusy,
	)

	return m
}

// ObserveCommand records one provider command with its rendered result code ("OK" on success).
func (m *Metrics) ObserveCommand(command, code string, d time.Duration) {
	if m == nil {
		return
	}

	m.commands.WithLabelValues(command, code).Inc()
	m.commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

func (m *Metrics) LockRetried() {
	if m == nil {
		return
	}

	m.lockRetries.Inc()
}

func (m *Metrics) LockBusy() {
	if m == nil {
		return
	}

	m.lockBusy.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
