package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds adaptation counters for direct instrumentation in the
// session loop.
type Metrics struct {
	Decisions       prometheus.Counter
	Switches        prometheus.Counter
	DiscardRequests prometheus.Counter
	DiscardedChunks prometheus.Counter
	Rebuffers       prometheus.Counter
	StallSeconds    prometheus.Counter
	SelectedBitrate prometheus.Histogram
}

// New creates and registers adaptation metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "abrkit",
			Subsystem: "session",
			Name:      "decisions_total",
			Help:      "Total format selection decisions.",
		}),
		Switches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "abrkit",
			Subsystem: "session",
			Name:      "switches_total",
			Help:      "Decisions that changed the selected format.",
		}),
		DiscardRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "abrkit",
			Subsystem: "session",
			Name:      "discard_requests_total",
			Help:      "Evaluator requests to drop buffered chunks.",
		}),
		DiscardedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "abrkit",
			Subsystem: "session",
			Name:      "discarded_chunks_total",
			Help:      "Buffered chunks dropped to switch quality faster.",
		}),
		Rebuffers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "abrkit",
			Subsystem: "session",
			Name:      "rebuffers_total",
			Help:      "Times playback stalled on an empty buffer.",
		}),
		StallSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "abrkit",
			Subsystem: "session",
			Name:      "stall_seconds_total",
			Help:      "Cumulative playback stall time.",
		}),
		SelectedBitrate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "abrkit",
			Subsystem: "session",
			Name:      "selected_bitrate_bits",
			Help:      "Bitrate of the selected format per decision.",
			Buckets:   prometheus.ExponentialBuckets(100_000, 2, 8),
		}),
	}

	reg.MustRegister(
		m.Decisions,
		m.Switches,
		m.DiscardRequests,
		m.DiscardedChunks,
		m.Rebuffers,
		m.StallSeconds,
		m.SelectedBitrate,
	)

	return m
}
