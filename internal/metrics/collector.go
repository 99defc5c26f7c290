package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shapedtime/abrkit/internal/simulate"
)

// SessionCollector implements prometheus.Collector for session state.
// It polls Runner.Snapshot() lazily on each Prometheus scrape rather than
// maintaining duplicate state.
type SessionCollector struct {
	runner *simulate.Runner

	positionSeconds *prometheus.Desc
	bufferedSeconds *prometheus.Desc
	queueChunks     *prometheus.Desc
	currentBitrate  *prometheus.Desc
	sessionDone     *prometheus.Desc
}

// NewSessionCollector creates a collector that scrapes session stats on
// demand.
func NewSessionCollector(runner *simulate.Runner) *SessionCollector {
	return &SessionCollector{
		runner: runner,

		positionSeconds: prometheus.NewDesc(
			"abrkit_session_position_seconds",
			"Current playback position on the media timeline.",
			nil, nil,
		),
		bufferedSeconds: prometheus.NewDesc(
			"abrkit_session_buffered_seconds",
			"Duration of media buffered ahead of the playhead.",
			nil, nil,
		),
		queueChunks: prometheus.NewDesc(
			"abrkit_session_queue_chunks",
			"Number of buffered, unplayed chunks.",
			nil, nil,
		),
		currentBitrate: prometheus.NewDesc(
			"abrkit_session_current_bitrate_bits",
			"Bitrate of the currently selected format.",
			nil, nil,
		),
		sessionDone: prometheus.NewDesc(
			"abrkit_session_done",
			"Whether playback has completed (0 or 1).",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.positionSeconds
	ch <- c.bufferedSeconds
	ch <- c.queueChunks
	ch <- c.currentBitrate
	ch <- c.sessionDone
}

// Collect implements prometheus.Collector.
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.runner.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.positionSeconds, prometheus.GaugeValue,
		float64(stats.PositionUs)/1e6)
	ch <- prometheus.MustNewConstMetric(c.bufferedSeconds, prometheus.GaugeValue,
		float64(stats.BufferedUs)/1e6)
	ch <- prometheus.MustNewConstMetric(c.queueChunks, prometheus.GaugeValue,
		float64(stats.QueueLen))
	ch <- prometheus.MustNewConstMetric(c.currentBitrate, prometheus.GaugeValue,
		float64(stats.Bitrate))

	done := 0.0
	if stats.Done {
		done = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.sessionDone, prometheus.GaugeValue, done)
}
