package abr

import "log/slog"

// FixedEvaluator always selects the format matching a configured pixel
// height. A height of 0 selects the lowest-quality format. It never
// consults bandwidth or buffer state.
type FixedEvaluator struct {
	height int
	warned bool
	log    *slog.Logger
}

// NewFixedEvaluator creates an evaluator pinned to the given pixel height.
// Height 0 pins to the lowest quality.
func NewFixedEvaluator(height int) *FixedEvaluator {
	return &FixedEvaluator{
		height: height,
		log:    slog.With("component", "fixed-evaluator", "height", height),
	}
}

// Enable implements Evaluator.
func (e *FixedEvaluator) Enable() {}

// Disable implements Evaluator.
func (e *FixedEvaluator) Disable() {}

// Evaluate selects the format whose height equals the configured target.
// If the catalog has no exact match, the format with the closest height is
// selected instead, so a selection always exists. When several formats sit
// at the same distance — duplicate heights included — the last (lowest
// bitrate, by the catalog ordering) wins.
func (e *FixedEvaluator) Evaluate(queue []*MediaChunk, playbackPositionUs int64,
	formats []*Format, evaluation *Evaluation) {
	if e.height == 0 {
		// Formats are sorted by decreasing bitrate, so the last entry
		// is the lowest quality.
		evaluation.Format = formats[len(formats)-1]
		return
	}

	best := formats[0]
	bestDiff := absInt(formats[0].Height - e.height)
	for _, f := range formats[1:] {
		if diff := absInt(f.Height - e.height); diff <= bestDiff {
			best = f
			bestDiff = diff
		}
	}

	if bestDiff != 0 && !e.warned {
		e.log.Warn("no format matches configured height, using closest",
			"selected", best.ID,
			"selected_height", best.Height,
		)
		e.warned = true
	}

	evaluation.Format = best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
