// Package metrics counts engine decisions with Prometheus collectors.
// A Collector is an event sink, so it sees exactly what the event log sees.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andywolf/agenda/internal/events"
)

const namespace = "agenda"

// Collector turns engine events into counters on its own registry.
type Collector struct {
	registry *prometheus.Registry

	turns       *prometheus.CounterVec
	activations *prometheus.CounterVec
	completions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// New creates a collector with a private registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Evaluated conversation turns by outcome.",
		}, []string{"agent", "outcome"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activations_total",
			Help:      "Priority activations by effect kind.",
		}, []string{"agent", "priority", "effect"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Priorities reported completed.",
		}, []string{"agent", "priority"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Turns aborted by a capability or task failure.",
		}, []string{"agent"}),
	}
	c.registry.MustRegister(c.turns, c.activations, c.completions, c.failures)
	return c
}

// WriteOne updates the counters for one event.
func (c *Collector) WriteOne(ev events.Event) error {
	switch ev.Type {
	case events.EventActivated:
		c.turns.WithLabelValues(ev.AgentID, string(ev.Type)).Inc()
		c.activations.WithLabelValues(ev.AgentID, ev.PriorityID, ev.Effect).Inc()
	case events.EventIdle:
		c.turns.WithLabelValues(ev.AgentID, string(ev.Type)).Inc()
	case events.EventFailed:
		c.turns.WithLabelValues(ev.AgentID, string(ev.Type)).Inc()
		c.failures.WithLabelValues(ev.AgentID).Inc()
	case events.EventCompleted:
		c.completions.WithLabelValues(ev.AgentID, ev.PriorityID).Inc()
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

// WriteTextfile writes the current counters in the text exposition format,
// suitable for the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
