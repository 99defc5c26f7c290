// Package abr decides which encoded format a segmented streaming client
// should use for its next downloaded chunk, balancing quality against
// rebuffer risk using a bandwidth estimate and buffer-occupancy signals.
package abr

// Trigger is the sticky reason code for the currently selected format.
// It explains why the active selection was made, and must only change in
// the same evaluation that changes the selected format.
type Trigger int

const (
	// TriggerInitial marks the initial format selection.
	TriggerInitial Trigger = 0
	// TriggerManual marks a user-initiated format selection.
	TriggerManual Trigger = 1
	// TriggerAdaptive marks an automatic format selection.
	TriggerAdaptive Trigger = 2
	// TriggerCustomBase is the first value available for
	// implementation-defined trigger codes.
	TriggerCustomBase Trigger = 10000
)

// String returns a human-readable trigger name
func (t Trigger) String() string {
	switch t {
	case TriggerInitial:
		return "initial"
	case TriggerManual:
		return "manual"
	case TriggerAdaptive:
		return "adaptive"
	default:
		if t >= TriggerCustomBase {
			return "custom"
		}
		return "unknown"
	}
}

// Evaluation carries the result of a format evaluation across calls.
// It is owned by the caller and passed by reference into every Evaluate
// call for the lifetime of a playback session.
type Evaluation struct {
	// QueueSize is the desired size of the buffered chunk queue. The
	// caller sets it to the current queue length before each evaluation;
	// an evaluator may shrink it to request that the tail of the buffer
	// be discarded and re-fetched at a different quality. Evaluators
	// never grow it.
	QueueSize int

	// Trigger is the sticky reason for the current format selection.
	Trigger Trigger

	// Format is the selected format. Nil before the first evaluation;
	// non-nil on return from every Evaluate call.
	Format *Format
}

// NewEvaluation creates an evaluation ready for a session's first call.
func NewEvaluation() *Evaluation {
	return &Evaluation{Trigger: TriggerInitial}
}

// Evaluator selects from a number of available formats during playback.
//
// Evaluate is synchronous and non-blocking: it must return quickly and
// deterministically on whatever goroutine drives the buffering loop. An
// evaluator instance must be used by exactly one playback track at a time;
// tracks that adapt independently each need their own instance and their
// own Evaluation record.
type Evaluator interface {
	// Enable marks the start of a period of active use.
	Enable()

	// Disable marks the end of a period of active use. Evaluators that
	// acquire resources in Enable must release them here.
	Disable()

	// Evaluate updates the supplied evaluation.
	//
	// On entry, evaluation holds the currently selected format (nil for
	// the first call), the most recent trigger (TriggerInitial for the
	// first call) and the current queue size. The queue is a read-only
	// view of the currently buffered chunks in playback order; formats
	// is non-empty and ordered by decreasing bitrate.
	Evaluate(queue []*MediaChunk, playbackPositionUs int64, formats []*Format, evaluation *Evaluation)
}
