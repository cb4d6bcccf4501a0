package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/gate"
)

const namespace = "collapse_engine"

// #region collector
// Collector exports engine activity on a private registry. It is an engine observer.
type Collector struct {
	registry *prometheus.Registry

	// Labels: source (auto, manual)
	CollapsesTotal *prometheus.CounterVec
	// Labels: reason (colliding, cooldown, below_ceiling)
	TriggersRefusedTotal *prometheus.CounterVec
	// Labels: stage (mutation stage name)
	MutationStagesTotal *prometheus.CounterVec
	MutatedChars        prometheus.Histogram
	ResetsTotal         prometheus.Counter

	Stress      prometheus.Gauge
	Stability   prometheus.Gauge
	Generation  prometheus.Gauge
	Keystrokes  prometheus.Gauge
	IsColliding prometheus.Gauge
}

// NewCollector registers every metric on a fresh registry, alongside the Go runtime
// and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		CollapsesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collapses_total",
			Help:      "Accepted collapse triggers by source",
		}, []string{"source"}),
		TriggersRefusedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_refused_total",
			Help:      "Refused collapse triggers by veto",
		}, []string{"reason"}),
		MutationStagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutation_stages_total",
			Help:      "Mutation stages that changed the text",
		}, []string{"stage"}),
		MutatedChars: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutated_chars",
			Help:      "Characters inserted plus deleted per mutation",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		ResetsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Session resets",
		}),
		Stress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stress",
			Help:      "Current stress score",
		}),
		Stability: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stability",
			Help:      "Current stability score",
		}),
		Generation: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Current generation",
		}),
		Keystrokes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "keystrokes",
			Help:      "Keystrokes in the current generation",
		}),
		IsColliding: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "colliding",
			Help:      "1 while a collapse episode is in progress",
		}),
	}
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// #endregion collector

// #region observe
// OnEvent updates the counters for ev and refreshes the gauges from its snapshot.
func (c *Collector) OnEvent(ev engine.Event) {
	switch ev.Kind {
	case engine.EventCollapseStarted:
		source := gate.SourceAuto
		if ev.Record != nil {
			source = ev.Record.Source
		}
		c.CollapsesTotal.WithLabelValues(string(source)).Inc()
	case engine.EventTriggerRefused:
		if ev.Decision != nil {
			for _, v := range ev.Decision.VetoSignals {
				c.TriggersRefusedTotal.WithLabelValues(string(v.Type)).Inc()
			}
		}
	case engine.EventMutationComputed:
		if ev.Mutation != nil {
			for _, stage := range ev.Mutation.Applied {
				c.MutationStagesTotal.WithLabelValues(stage).Inc()
			}
			c.MutatedChars.Observe(float64(ev.Mutation.Diff.Inserted + ev.Mutation.Diff.Deleted))
		}
	case engine.EventReset:
		c.ResetsTotal.Inc()
	}

	s := ev.Snapshot
	c.Stress.Set(s.Stress)
	c.Stability.Set(s.Stability)
	c.Generation.Set(float64(s.Generation))
	c.Keystrokes.Set(float64(s.TotalKeystrokes))
	if s.IsCrashing {
		c.IsColliding.Set(1)
	} else {
		c.IsColliding.Set(0)
	}
}

// #endregion observe
