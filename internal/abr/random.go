package abr

import (
	"math/rand"
	"time"
)

// RandomEvaluator selects uniformly between the available formats on each
// call. It exists for testing and demos, not production adaptation.
type RandomEvaluator struct {
	rnd *rand.Rand
}

// NewRandomEvaluator creates an evaluator seeded from the current time.
func NewRandomEvaluator() *RandomEvaluator {
	return NewRandomEvaluatorSeed(time.Now().UnixNano())
}

// NewRandomEvaluatorSeed creates an evaluator with a fixed seed, for
// reproducible runs.
func NewRandomEvaluatorSeed(seed int64) *RandomEvaluator {
	return &RandomEvaluator{rnd: rand.New(rand.NewSource(seed))}
}

// Enable implements Evaluator.
func (e *RandomEvaluator) Enable() {}

// Disable implements Evaluator.
func (e *RandomEvaluator) Disable() {}

// Evaluate picks a uniformly random format. The trigger flips to
// TriggerAdaptive only when the pick differs from the previous selection,
// preserving trigger stickiness.
func (e *RandomEvaluator) Evaluate(queue []*MediaChunk, playbackPositionUs int64,
	formats []*Format, evaluation *Evaluation) {
	pick := formats[e.rnd.Intn(len(formats))]
	if evaluation.Format != nil && evaluation.Format.ID != pick.ID {
		evaluation.Trigger = TriggerAdaptive
	}
	evaluation.Format = pick
}
