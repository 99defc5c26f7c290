package abr

// RoundRobinEvaluator cycles deterministically through the formats from
// lowest to highest quality (highest to lowest array index), advancing
// once every third call to damp switch frequency. Like RandomEvaluator it
// is a test and demo strategy; it never consults bandwidth or buffer state.
//
// Cursor state is per instance. Tracks that must rotate independently
// each need their own evaluator.
type RoundRobinEvaluator struct {
	cursor int
	calls  int
}

// NewRoundRobinEvaluator creates an evaluator with its cursor at the
// lowest-quality format.
func NewRoundRobinEvaluator() *RoundRobinEvaluator {
	return &RoundRobinEvaluator{}
}

// Enable implements Evaluator.
func (e *RoundRobinEvaluator) Enable() {}

// Disable implements Evaluator.
func (e *RoundRobinEvaluator) Disable() {}

// Evaluate selects the format at the current cursor position. On every
// third call the cursor advances after the selection is made, so the new
// position takes effect on the following call.
func (e *RoundRobinEvaluator) Evaluate(queue []*MediaChunk, playbackPositionUs int64,
	formats []*Format, evaluation *Evaluation) {
	e.calls++
	evaluation.Format = formats[len(formats)-e.cursor%len(formats)-1]
	if e.calls%3 == 0 {
		e.cursor = (e.cursor + 1) % len(formats)
	}
}
