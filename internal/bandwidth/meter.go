package bandwidth

// NoEstimate is reported by a Meter that cannot yet provide an estimate,
// typically because playback has only just started.
const NoEstimate int64 = -1

// Meter provides an estimate of the currently available network bandwidth.
// Implementations must be safe to read from the evaluation path without
// blocking.
type Meter interface {
	// BitrateEstimate returns the estimated available bandwidth in bits
	// per second, or NoEstimate.
	BitrateEstimate() int64
}

// FixedMeter always reports the same estimate. Useful for tests and for
// replaying recorded traces.
type FixedMeter struct {
	Bitrate int64
}

// BitrateEstimate returns the configured bitrate.
func (m FixedMeter) BitrateEstimate() int64 {
	return m.Bitrate
}
