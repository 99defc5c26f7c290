// Package simulate drives a format evaluator through a virtual playback
// session: a synthetic bandwidth trace feeds the meter, downloads and
// playback advance on a simulated clock, and every selection decision is
// recorded. No real time passes and no I/O happens.
package simulate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shapedtime/abrkit/internal/abr"
	"github.com/shapedtime/abrkit/internal/bandwidth"
)

// Config shapes the simulated session
type Config struct {
	ChunkDuration time.Duration // media duration of each chunk
	MaxBuffer     time.Duration // fetch-ahead limit
	MediaDuration time.Duration // total media length
	HistorySize   int           // decisions retained for inspection
}

// DefaultConfig returns sensible defaults for a simulated session
func DefaultConfig() Config {
	return Config{
		ChunkDuration: 4 * time.Second,
		MaxBuffer:     40 * time.Second,
		MediaDuration: 10 * time.Minute,
		HistorySize:   256,
	}
}

// TraceSegment is one leg of the synthetic bandwidth trace. Once the
// trace is exhausted the last segment's bitrate holds.
type TraceSegment struct {
	Duration time.Duration
	Bitrate  int64 // bits per second
}

// Decision is one recorded evaluator invocation.
type Decision struct {
	Elapsed    time.Duration // simulated wall time of the decision
	PositionUs int64
	BufferedUs int64
	FormatID   string
	Bitrate    int
	Trigger    abr.Trigger
	Discarded  int  // chunks dropped on the evaluator's request
	Switched   bool // format differs from the previous decision
}

// Stats is a point-in-time snapshot of the session.
type Stats struct {
	Elapsed         time.Duration
	PositionUs      int64
	BufferedUs      int64
	QueueLen        int
	FormatID        string
	Bitrate         int
	Trigger         abr.Trigger
	Decisions       uint64
	Switches        uint64
	DiscardRequests uint64
	DiscardedChunks uint64
	Rebuffers       uint64
	Done            bool
}

// Runner owns one simulated playback session: the buffered chunk queue,
// the playhead, the evaluation record and the bandwidth meter. It is the
// "buffering loop" the evaluator contract expects — exactly one Runner
// drives one Evaluator.
type Runner struct {
	mu        sync.Mutex
	evaluator abr.Evaluator
	eval      *abr.Evaluation
	meter     *bandwidth.SlidingWindowMeter
	formats   []*abr.Format
	trace     []TraceSegment
	cfg       Config

	queue       []*abr.MediaChunk
	positionUs  int64
	nextFetchUs int64
	elapsed     time.Duration
	started     bool
	done        bool

	decisions []Decision
	stats     Stats

	// Event hooks (nil-safe)
	OnDecision func(Decision)
	OnRebuffer func(stall time.Duration)

	log *slog.Logger
}

// NewRunner creates a session for the given evaluator and candidate
// formats. The trace must be non-empty and the formats sorted by
// decreasing bitrate.
func NewRunner(evaluator abr.Evaluator, formats []*abr.Format, trace []TraceSegment, cfg Config) *Runner {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	return &Runner{
		evaluator: evaluator,
		eval:      abr.NewEvaluation(),
		meter:     bandwidth.NewSlidingWindowMeter(),
		formats:   formats,
		trace:     trace,
		cfg:       cfg,
		log:       slog.With("component", "simulate-runner"),
	}
}

// SetEvaluator installs the evaluator. The adaptive strategy reads the
// runner's meter at construction, so the runner may be built first and
// the evaluator attached afterwards, before Run.
func (r *Runner) SetEvaluator(e abr.Evaluator) {
	r.evaluator = e
}

// Meter returns the session's bandwidth meter, for wiring into an
// adaptive evaluator before the run starts.
func (r *Runner) Meter() *bandwidth.SlidingWindowMeter {
	return r.meter
}

// Formats returns the candidate catalog.
func (r *Runner) Formats() []*abr.Format {
	return r.formats
}

// Run steps the session until the media has fully played or the context
// is cancelled. It brackets the evaluator with Enable/Disable.
func (r *Runner) Run(ctx context.Context) error {
	r.evaluator.Enable()
	defer r.evaluator.Disable()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.mu.Lock()
		finished := r.step()
		r.mu.Unlock()

		if finished {
			r.log.Info("playback finished",
				"elapsed", r.stats.Elapsed,
				"decisions", r.stats.Decisions,
				"switches", r.stats.Switches,
				"rebuffers", r.stats.Rebuffers,
			)
			return nil
		}
	}
}

// step advances the session by one download or one drain interval and
// reports whether playback completed. Caller holds r.mu.
func (r *Runner) step() bool {
	mediaUs := r.cfg.MediaDuration.Microseconds()

	r.dropPlayed()

	if r.positionUs >= mediaUs {
		r.done = true
		r.syncStats()
		return true
	}

	bufferedUs := r.bufferedUs()
	if r.nextFetchUs < mediaUs && bufferedUs < r.cfg.MaxBuffer.Microseconds() {
		r.fetchChunk()
	} else {
		// Buffer full or everything fetched: let playback drain.
		r.advancePlayback(r.cfg.ChunkDuration)
	}

	r.syncStats()
	return false
}

// fetchChunk runs one selection decision and simulates downloading the
// chosen chunk at the trace bandwidth.
func (r *Runner) fetchChunk() {
	prev := r.eval.Format

	r.eval.QueueSize = len(r.queue)
	r.evaluator.Evaluate(r.queue, r.positionUs, r.formats, r.eval)

	// Honor a discard request: drop the tail and re-fetch it at the
	// newly selected quality.
	discarded := 0
	if r.eval.QueueSize < len(r.queue) {
		discarded = len(r.queue) - r.eval.QueueSize
		r.queue = r.queue[:r.eval.QueueSize]
		if len(r.queue) > 0 {
			r.nextFetchUs = r.queue[len(r.queue)-1].EndTimeUs
		} else {
			r.nextFetchUs = r.positionUs
		}
		r.stats.DiscardRequests++
		r.stats.DiscardedChunks += uint64(discarded)
	}

	format := r.eval.Format

	chunkUs := r.cfg.ChunkDuration.Microseconds()
	if remaining := r.cfg.MediaDuration.Microseconds() - r.nextFetchUs; remaining < chunkUs {
		chunkUs = remaining
	}

	// Download at the trace rate; playback continues while the chunk
	// transfers.
	bits := int64(format.Bitrate) * chunkUs / 1_000_000
	rate := r.bitrateAt(r.elapsed)
	downloadTime := time.Duration(bits * int64(time.Second) / rate)
	r.meter.Record(rate)
	r.advancePlayback(downloadTime)

	r.queue = append(r.queue, &abr.MediaChunk{
		Format:      format,
		StartTimeUs: r.nextFetchUs,
		EndTimeUs:   r.nextFetchUs + chunkUs,
	})
	r.nextFetchUs += chunkUs
	r.started = true

	switched := prev != nil && prev.ID != format.ID
	r.stats.Decisions++
	if switched {
		r.stats.Switches++
	}

	d := Decision{
		Elapsed:    r.elapsed,
		PositionUs: r.positionUs,
		BufferedUs: r.bufferedUs(),
		FormatID:   format.ID,
		Bitrate:    format.Bitrate,
		Trigger:    r.eval.Trigger,
		Discarded:  discarded,
		Switched:   switched,
	}
	r.decisions = append(r.decisions, d)
	if len(r.decisions) > r.cfg.HistorySize {
		r.decisions = r.decisions[1:]
	}
	if r.OnDecision != nil {
		r.OnDecision(d)
	}
}

// advancePlayback moves the playhead d forward in media time, stalling at
// the end of the buffer when it runs dry.
func (r *Runner) advancePlayback(d time.Duration) {
	r.elapsed += d

	targetUs := r.positionUs + d.Microseconds()
	endUs := r.bufferedEndUs()
	if targetUs > endUs {
		// A stall at the end of the media is playback finishing, not a
		// rebuffer. Before the first chunk lands it is startup delay.
		if r.started && endUs < r.cfg.MediaDuration.Microseconds() {
			stall := time.Duration(targetUs-endUs) * time.Microsecond
			r.stats.Rebuffers++
			if r.OnRebuffer != nil {
				r.OnRebuffer(stall)
			}
			r.log.Debug("rebuffer", "position_us", endUs, "stall", stall)
		}
		targetUs = endUs
	}
	if targetUs > r.positionUs {
		r.positionUs = targetUs
	}
}

// dropPlayed removes queue entries the playhead has fully passed.
func (r *Runner) dropPlayed() {
	for len(r.queue) > 0 && r.queue[0].EndTimeUs <= r.positionUs {
		r.queue = r.queue[1:]
	}
}

func (r *Runner) bufferedUs() int64 {
	if len(r.queue) == 0 {
		return 0
	}
	return r.queue[len(r.queue)-1].EndTimeUs - r.positionUs
}

// bufferedEndUs returns the media timestamp playback can reach before
// stalling.
func (r *Runner) bufferedEndUs() int64 {
	if len(r.queue) == 0 {
		return r.positionUs
	}
	return r.queue[len(r.queue)-1].EndTimeUs
}

// bitrateAt returns the trace bandwidth at the given simulated wall time.
func (r *Runner) bitrateAt(elapsed time.Duration) int64 {
	for _, seg := range r.trace {
		if elapsed < seg.Duration {
			return seg.Bitrate
		}
		elapsed -= seg.Duration
	}
	return r.trace[len(r.trace)-1].Bitrate
}

func (r *Runner) syncStats() {
	r.stats.Elapsed = r.elapsed
	r.stats.PositionUs = r.positionUs
	r.stats.BufferedUs = r.bufferedUs()
	r.stats.QueueLen = len(r.queue)
	if r.eval.Format != nil {
		r.stats.FormatID = r.eval.Format.ID
		r.stats.Bitrate = r.eval.Format.Bitrate
	}
	r.stats.Trigger = r.eval.Trigger
	r.stats.Done = r.done
}

// Snapshot returns the current session stats.
func (r *Runner) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Decisions returns a copy of the recorded decision history, oldest
// first.
func (r *Runner) Decisions() []Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Decision, len(r.decisions))
	copy(out, r.decisions)
	return out
}
