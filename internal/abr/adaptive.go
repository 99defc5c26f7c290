package abr

import (
	"log/slog"
	"time"

	"github.com/shapedtime/abrkit/internal/bandwidth"
)

// Defaults for AdaptiveConfig.
const (
	DefaultMaxInitialBitrate               = 800_000
	DefaultMinDurationForQualityIncrease   = 10 * time.Second
	DefaultMaxDurationForQualityDecrease   = 25 * time.Second
	DefaultMinDurationToRetainAfterDiscard = 25 * time.Second
	DefaultBandwidthFraction               = 0.75
)

// Thresholds below which buffered content is considered safe to discard
// when switching up from an SD stream.
const (
	hdHeight = 720
	hdWidth  = 1280
)

// AdaptiveConfig holds tuning for the adaptive evaluator.
type AdaptiveConfig struct {
	// MaxInitialBitrate is the bitrate assumed before the bandwidth
	// meter can provide an estimate.
	MaxInitialBitrate int

	// MinDurationForQualityIncrease is the minimum buffered duration
	// required before switching to a higher-quality format.
	MinDurationForQualityIncrease time.Duration

	// MaxDurationForQualityDecrease is the buffered duration at or above
	// which a switch to a lower-quality format is deferred.
	MaxDurationForQualityDecrease time.Duration

	// MinDurationToRetainAfterDiscard is the minimum duration of already
	// buffered media that must be kept when discarding buffered chunks
	// to switch up quality faster.
	MinDurationToRetainAfterDiscard time.Duration

	// BandwidthFraction is the fraction of the estimated bandwidth
	// treated as usable, leaving headroom for estimation error.
	BandwidthFraction float64
}

// DefaultAdaptiveConfig returns the recommended tuning.
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		MaxInitialBitrate:               DefaultMaxInitialBitrate,
		MinDurationForQualityIncrease:   DefaultMinDurationForQualityIncrease,
		MaxDurationForQualityDecrease:   DefaultMaxDurationForQualityDecrease,
		MinDurationToRetainAfterDiscard: DefaultMinDurationToRetainAfterDiscard,
		BandwidthFraction:               DefaultBandwidthFraction,
	}
}

// AdaptiveEvaluator selects the best quality the current network
// conditions and buffer state allow. Each call computes the ideal format
// for the effective bandwidth estimate, then applies hysteresis: upgrades
// are deferred until enough media is buffered to absorb the larger chunks,
// downgrades are deferred while the buffer holds a comfortable cushion.
// When upgrading with a deep buffer it may also request that buffered
// sub-HD chunks be discarded and re-fetched at the new quality.
//
// Intended for video tracks. All state between calls lives in the
// Evaluation record, so the evaluator itself is stateless per call.
type AdaptiveEvaluator struct {
	meter bandwidth.Meter

	maxInitialBitrate                 int
	minDurationForQualityIncreaseUs   int64
	maxDurationForQualityDecreaseUs   int64
	minDurationToRetainAfterDiscardUs int64
	bandwidthFraction                 float64

	// Decision hooks (nil-safe)
	OnSwitch  func(from, to *Format) // called when the selected format changes
	OnDiscard func(retained int)     // called with the requested queue size

	log *slog.Logger
}

// NewAdaptiveEvaluator creates an adaptive evaluator reading estimates
// from meter. Zero-valued config fields fall back to the defaults.
func NewAdaptiveEvaluator(meter bandwidth.Meter, cfg AdaptiveConfig) *AdaptiveEvaluator {
	def := DefaultAdaptiveConfig()
	if cfg.MaxInitialBitrate == 0 {
		cfg.MaxInitialBitrate = def.MaxInitialBitrate
	}
	if cfg.MinDurationForQualityIncrease == 0 {
		cfg.MinDurationForQualityIncrease = def.MinDurationForQualityIncrease
	}
	if cfg.MaxDurationForQualityDecrease == 0 {
		cfg.MaxDurationForQualityDecrease = def.MaxDurationForQualityDecrease
	}
	if cfg.MinDurationToRetainAfterDiscard == 0 {
		cfg.MinDurationToRetainAfterDiscard = def.MinDurationToRetainAfterDiscard
	}
	if cfg.BandwidthFraction == 0 {
		cfg.BandwidthFraction = def.BandwidthFraction
	}

	return &AdaptiveEvaluator{
		meter:                             meter,
		maxInitialBitrate:                 cfg.MaxInitialBitrate,
		minDurationForQualityIncreaseUs:   cfg.MinDurationForQualityIncrease.Microseconds(),
		maxDurationForQualityDecreaseUs:   cfg.MaxDurationForQualityDecrease.Microseconds(),
		minDurationToRetainAfterDiscardUs: cfg.MinDurationToRetainAfterDiscard.Microseconds(),
		bandwidthFraction:                 cfg.BandwidthFraction,
		log:                               slog.With("component", "adaptive-evaluator"),
	}
}

// Enable implements Evaluator.
func (e *AdaptiveEvaluator) Enable() {}

// Disable implements Evaluator.
func (e *AdaptiveEvaluator) Disable() {}

// Evaluate implements Evaluator.
func (e *AdaptiveEvaluator) Evaluate(queue []*MediaChunk, playbackPositionUs int64,
	formats []*Format, evaluation *Evaluation) {
	var bufferedDurationUs int64
	if len(queue) > 0 {
		bufferedDurationUs = queue[len(queue)-1].EndTimeUs - playbackPositionUs
	}

	current := evaluation.Format
	ideal := e.determineIdealFormat(formats, e.meter.BitrateEstimate())

	isHigher := current != nil && ideal.Bitrate > current.Bitrate
	isLower := current != nil && ideal.Bitrate < current.Bitrate

	if isHigher {
		if bufferedDurationUs < e.minDurationForQualityIncreaseUs {
			// The ideal format is a higher quality, but we have
			// insufficient buffer to safely switch up. Defer for now.
			ideal = current
		} else if bufferedDurationUs >= e.minDurationToRetainAfterDiscardUs {
			// Switching up from an SD stream with a deep buffer.
			// Consider discarding buffered chunks from the first one
			// that is lower bandwidth, lower resolution and not HD,
			// so the higher quality reaches the screen sooner. The
			// chunk next to the playhead is never discarded.
			for i := 1; i < len(queue); i++ {
				chunk := queue[i]
				durationBeforeUs := chunk.StartTimeUs - playbackPositionUs
				if durationBeforeUs >= e.minDurationToRetainAfterDiscardUs &&
					chunk.Format.Bitrate < ideal.Bitrate &&
					chunk.Format.Height < ideal.Height &&
					chunk.Format.Height < hdHeight &&
					chunk.Format.Width < hdWidth {
					evaluation.QueueSize = i
					if e.OnDiscard != nil {
						e.OnDiscard(i)
					}
					break
				}
			}
		}
	} else if isLower && bufferedDurationUs >= e.maxDurationForQualityDecreaseUs {
		// The ideal format is a lower quality, but the buffer holds
		// enough cushion to defer switching down.
		ideal = current
	}

	if current != nil && ideal.ID != current.ID {
		evaluation.Trigger = TriggerAdaptive
		if e.OnSwitch != nil {
			e.OnSwitch(current, ideal)
		}
		e.log.Debug("format switch",
			"from", current.ID,
			"to", ideal.ID,
			"buffered_us", bufferedDurationUs,
		)
	}
	evaluation.Format = ideal
}

// determineIdealFormat returns the highest-bitrate format affordable under
// the effective bandwidth estimate, ignoring buffer health. If no format
// is affordable, the lowest-quality format is returned, so a selection
// always exists.
func (e *AdaptiveEvaluator) determineIdealFormat(formats []*Format, bitrateEstimate int64) *Format {
	effective := e.effectiveBitrateEstimate(bitrateEstimate)
	for _, f := range formats {
		if int64(f.Bitrate) <= effective {
			return f
		}
	}
	return formats[len(formats)-1]
}

// effectiveBitrateEstimate applies the bandwidth safety fraction, or
// substitutes the configured initial bitrate when no estimate exists.
func (e *AdaptiveEvaluator) effectiveBitrateEstimate(bitrateEstimate int64) int64 {
	if bitrateEstimate == bandwidth.NoEstimate {
		return int64(e.maxInitialBitrate)
	}
	return int64(float64(bitrateEstimate) * e.bandwidthFraction)
}
