// Metrics adapts Solid's engine.OutEvent stream onto go-kit's metrics
// interfaces (github.com/go-kit/kit/metrics), backed by an
// rcrowley/go-metrics registry — the pairing lets /status (see server.go)
// dump a plain JSON snapshot via the registry's own Each, while every
// counter/gauge update elsewhere in this package goes through the
// vendor-neutral go-kit interface.
//
// Grounded on the teacher's MetricSet (libs/metric/metric_set.go): a
// label-keyed registry queried by JSONMetrics (rpc/metric.go). Solid's
// Metrics plays the same role with a fixed, known set of labels instead
// of a dynamically registered one, since the engine's event vocabulary is
// closed.
package rpc

import (
	"github.com/go-kit/kit/metrics"
	rcrowley "github.com/rcrowley/go-metrics"
)

// Metrics tracks the counters and gauges a host typically wants exposed
// for a Solid node.
type Metrics struct {
	registry rcrowley.Registry

	ProposalsSeen metrics.Counter
	AcceptsSeen   metrics.Counter
	Commits       metrics.Counter
	Skips         metrics.Counter
	OutOfSyncs    metrics.Counter

	Height metrics.Gauge
	Skip   metrics.Gauge
}

// NewMetrics builds a Metrics with a fresh rcrowley registry backing
// every counter/gauge.
func NewMetrics() *Metrics {
	reg := rcrowley.NewRegistry()
	return &Metrics{
		registry:      reg,
		ProposalsSeen: registerCounter(reg, "solid_proposals_seen"),
		AcceptsSeen:   registerCounter(reg, "solid_accepts_seen"),
		Commits:       registerCounter(reg, "solid_commits"),
		Skips:         registerCounter(reg, "solid_skips"),
		OutOfSyncs:    registerCounter(reg, "solid_out_of_syncs"),
		Height:        registerGauge(reg, "solid_height"),
		Skip:          registerGauge(reg, "solid_skip"),
	}
}

// Snapshot returns the current value of every registered metric, keyed by
// name, for JSON serving from /status.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	m.registry.Each(func(name string, i interface{}) {
		switch v := i.(type) {
		case rcrowley.Counter:
			out[name] = v.Count()
		case rcrowley.Gauge:
			out[name] = v.Value()
		}
	})
	return out
}

func registerCounter(reg rcrowley.Registry, name string) metrics.Counter {
	return &rcrowleyCounter{c: rcrowley.NewRegisteredCounter(name, reg)}
}

func registerGauge(reg rcrowley.Registry, name string) metrics.Gauge {
	return &rcrowleyGauge{g: rcrowley.NewRegisteredGauge(name, reg)}
}

// rcrowleyCounter implements go-kit's metrics.Counter over an rcrowley
// counter. With is a no-op returning the receiver: Solid's metrics carry
// no label dimensions, so there is nothing to specialize.
type rcrowleyCounter struct {
	c rcrowley.Counter
}

func (r *rcrowleyCounter) With(labelValues ...string) metrics.Counter { return r }
func (r *rcrowleyCounter) Add(delta float64)                          { r.c.Inc(int64(delta)) }

// rcrowleyGauge implements go-kit's metrics.Gauge over an rcrowley gauge.
type rcrowleyGauge struct {
	g rcrowley.Gauge
}

func (r *rcrowleyGauge) With(labelValues ...string) metrics.Gauge { return r }
func (r *rcrowleyGauge) Set(value float64)                        { r.g.Update(int64(value)) }
func (r *rcrowleyGauge) Add(delta float64)                        { r.g.Update(r.g.Value() + int64(delta)) }

// Observe updates the relevant counters/gauges for a single engine.OutEvent.
// Hosts call this from whatever loop drains the engine's output channel,
// alongside network.Pump and any store/network dispatch.
func (m *Metrics) Observe(kind string, height, skips uint64) {
	switch kind {
	case "proposal":
		m.ProposalsSeen.Add(1)
	case "accept":
		m.AcceptsSeen.Add(1)
	case "commit":
		m.Commits.Add(1)
	case "skip":
		m.Skips.Add(1)
	case "out_of_sync":
		m.OutOfSyncs.Add(1)
	}
	m.Height.Set(float64(height))
	m.Skip.Set(float64(skips))
}
