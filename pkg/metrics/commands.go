package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommandMetrics records outcomes for sale command handlers.
type CommandMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewCommandMetrics registers the command metrics on the provided registerer.
func NewCommandMetrics(reg prometheus.Registerer) *CommandMetrics {
	if reg == nil {
		return &CommandMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sale_command_duration_seconds",
		Help:    "Duration of sale command handlers in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_command_success",
		Help: "Successful sale command executions.",
	}, []string{"command"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_command_failure",
		Help: "Failed sale command executions.",
	}, []string{"command"})
	reg.MustRegister(duration, success, failure)
	return &CommandMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named command.
func (c *CommandMetrics) ObserveDuration(command string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(command)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named command.
func (c *CommandMetrics) IncSuccess(command string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(command)).Inc()
}

// IncFailure increments the failure counter for the named command.
func (c *CommandMetrics) IncFailure(command string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(command)).Inc()
}

func normalizeLabel(command string) string {
	if command == "" {
		return "unknown"
	}
	return command
}
