// Package promstats exports the counters of an [unco.Scheduler] to
// Prometheus.
package promstats

import (
	"github.com/b97tsk/unco"
	"github.com/prometheus/client_golang/prometheus"
)

// A StatsSource reports scheduler statistics. *unco.Scheduler is one.
type StatsSource interface {
	Stats() unco.Stats
}

const (
	namespace = "unco"
	subsystem = "scheduler"
)

type metric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(st *unco.Stats) float64
}

type collector struct {
	src     StatsSource
	metrics []metric
}

// NewCollector returns a [prometheus.Collector] that reads the statistics of
// src on every scrape. Every metric carries a "world" label set to world.
//
// Scrapes happen on the goroutine serving them; src must be safe to read
// from there. See [Locked].
func NewCollector(world string, src StatsSource) prometheus.Collector {
	labels := prometheus.Labels{"world": world}

	counter := func(name, help string, f func(st *unco.Stats) uint64) metric {
		return metric{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, labels),
			kind:  prometheus.CounterValue,
			value: func(st *unco.Stats) float64 { return float64(f(st)) },
		}
	}
	gauge := func(name, help string, f func(st *unco.Stats) int) metric {
		return metric{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, labels),
			kind:  prometheus.GaugeValue,
			value: func(st *unco.Stats) float64 { return float64(f(st)) },
		}
	}

	return &collector{
		src: src,
		metrics: []metric{
			counter("updates_total", "Updates that advanced at least one generator.", func(st *unco.Stats) uint64 { return st.Updates }),
			counter("advances_total", "Generator steps.", func(st *unco.Stats) uint64 { return st.Advances }),
			counter("frames_requested_total", "Generators handed to the scheduler.", func(st *unco.Stats) uint64 { return st.FramesRequested }),
			counter("frames_finished_total", "Generators that finished.", func(st *unco.Stats) uint64 { return st.FramesFinished }),
			counter("frames_faulted_total", "Generators that panicked.", func(st *unco.Stats) uint64 { return st.FramesFaulted }),
			counter("frames_closed_total", "Generators closed by their creator while handed over.", func(st *unco.Stats) uint64 { return st.FramesClosed }),
			counter("frames_pruned_total", "Generators dropped because their owner went away.", func(st *unco.Stats) uint64 { return st.FramesPruned }),
			counter("tasks_started_total", "Tasks started.", func(st *unco.Stats) uint64 { return st.TasksStarted }),
			counter("tasks_finished_total", "Tasks that finished.", func(st *unco.Stats) uint64 { return st.TasksFinished }),
			counter("tasks_faulted_total", "Tasks that panicked.", func(st *unco.Stats) uint64 { return st.TasksFaulted }),
			counter("tasks_registered_total", "Tasks handed over to the registry.", func(st *unco.Stats) uint64 { return st.TasksRegistered }),
			counter("tasks_unregistered_total", "Registered tasks that ended by themselves.", func(st *unco.Stats) uint64 { return st.TasksUnregistered }),
			counter("tasks_pruned_total", "Registered tasks pruned because their owner went away.", func(st *unco.Stats) uint64 { return st.TasksPruned }),
			counter("tasks_abandoned_total", "Tasks released before they could finish.", func(st *unco.Stats) uint64 { return st.TasksAbandoned }),
			gauge("active_frames", "Generators in the active list.", func(st *unco.Stats) int { return st.ActiveFrames }),
			gauge("pending_frames", "Generators waiting for the next update.", func(st *unco.Stats) int { return st.PendingFrames }),
			gauge("registered_tasks", "Tasks kept alive by the registry.", func(st *unco.Stats) int { return st.RegisteredTasks }),
		},
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(&st))
	}
}
