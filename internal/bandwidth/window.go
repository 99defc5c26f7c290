package bandwidth

import (
	"slices"
	"sync"
)

const (
	defaultMaxSamples = 30
	defaultMinSamples = 5
)

// SlidingWindowMeter estimates available bandwidth from transfer rate
// samples pushed in by whoever owns the downloads. The estimate is the
// median of a bounded window of recent samples, which resists the spikes
// and dips a single transfer can produce.
//
// Safe for concurrent use: the download loop records samples while the
// evaluation path reads the estimate.
type SlidingWindowMeter struct {
	mu         sync.Mutex
	samples    []int64
	maxSamples int
	minSamples int
}

// NewSlidingWindowMeter creates a meter with a 30-sample window that
// reports NoEstimate until 5 samples have been recorded.
func NewSlidingWindowMeter() *SlidingWindowMeter {
	return &SlidingWindowMeter{
		maxSamples: defaultMaxSamples,
		minSamples: defaultMinSamples,
	}
}

// Record adds an observed transfer rate in bits per second. The oldest
// sample is evicted once the window is full. Non-positive rates are
// ignored.
func (m *SlidingWindowMeter) Record(bitsPerSec int64) {
	if m == nil || bitsPerSec <= 0 {
		return
	}

	m.mu.Lock()
	m.samples = append(m.samples, bitsPerSec)
	if len(m.samples) > m.maxSamples {
		m.samples = m.samples[1:]
	}
	m.mu.Unlock()
}

// BitrateEstimate returns the median of the recorded samples, or
// NoEstimate if too few samples exist for a reliable figure.
func (m *SlidingWindowMeter) BitrateEstimate() int64 {
	if m == nil {
		return NoEstimate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.samples) < m.minSamples {
		return NoEstimate
	}

	sorted := make([]int64, len(m.samples))
	copy(sorted, m.samples)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

// Reset discards all recorded samples, returning the meter to the
// no-estimate state.
func (m *SlidingWindowMeter) Reset() {
	if m == nil {
		return
	}

	m.mu.Lock()
	m.samples = m.samples[:0]
	m.mu.Unlock()
}
