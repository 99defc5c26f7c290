package simulate

import (
	"context"
	"testing"
	"time"

	"github.com/shapedtime/abrkit/internal/abr"
)

func testFormats() []*abr.Format {
	return []*abr.Format{
		{ID: "720p", Bitrate: 2_000_000, Width: 1280, Height: 720},
		{ID: "480p", Bitrate: 800_000, Width: 854, Height: 480},
		{ID: "360p", Bitrate: 300_000, Width: 640, Height: 360},
	}
}

func shortConfig() Config {
	return Config{
		ChunkDuration: 4 * time.Second,
		MaxBuffer:     20 * time.Second,
		MediaDuration: 1 * time.Minute,
		HistorySize:   1024,
	}
}

func TestRunPlaysToCompletion(t *testing.T) {
	r := NewRunner(abr.NewFixedEvaluator(0), testFormats(),
		[]TraceSegment{{Duration: time.Hour, Bitrate: 5_000_000}}, shortConfig())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	stats := r.Snapshot()
	if !stats.Done {
		t.Error("Done = false, want true")
	}
	if stats.PositionUs != (1 * time.Minute).Microseconds() {
		t.Errorf("PositionUs = %d, want %d", stats.PositionUs, (1 * time.Minute).Microseconds())
	}
	if stats.Decisions == 0 {
		t.Error("Decisions = 0, want > 0")
	}
	if stats.FormatID != "360p" {
		t.Errorf("FormatID = %s, want 360p (fixed at lowest quality)", stats.FormatID)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	r := NewRunner(abr.NewFixedEvaluator(0), testFormats(),
		[]TraceSegment{{Duration: time.Hour, Bitrate: 5_000_000}}, shortConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Run(ctx); err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestFastNetworkNeverRebuffers(t *testing.T) {
	cfg := shortConfig()
	r := NewRunner(abr.NewFixedEvaluator(720), testFormats(),
		[]TraceSegment{{Duration: time.Hour, Bitrate: 50_000_000}}, cfg)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got := r.Snapshot().Rebuffers; got != 0 {
		t.Errorf("Rebuffers = %d, want 0 with 25x headroom", got)
	}
}

func TestStarvedNetworkRebuffers(t *testing.T) {
	cfg := shortConfig()
	// Top-rung format pinned over a link at a tenth of its bitrate.
	r := NewRunner(abr.NewFixedEvaluator(720), testFormats(),
		[]TraceSegment{{Duration: time.Hour, Bitrate: 200_000}}, cfg)

	var stalls int
	r.OnRebuffer = func(time.Duration) { stalls++ }

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if r.Snapshot().Rebuffers == 0 {
		t.Error("Rebuffers = 0, want > 0 on a starved link")
	}
	if stalls == 0 {
		t.Error("OnRebuffer never called")
	}
}

func TestAdaptiveFollowsBandwidthDrop(t *testing.T) {
	formats := testFormats()
	cfg := shortConfig()
	cfg.MediaDuration = 3 * time.Minute

	// Generous first leg, then a collapse to well under the lowest rung.
	trace := []TraceSegment{
		{Duration: 30 * time.Second, Bitrate: 10_000_000},
		{Duration: time.Hour, Bitrate: 200_000},
	}

	r := NewRunner(nil, formats, trace, cfg)
	r.SetEvaluator(abr.NewAdaptiveEvaluator(r.Meter(), abr.AdaptiveConfig{}))

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	stats := r.Snapshot()
	if stats.Switches == 0 {
		t.Error("Switches = 0, want at least one adaptive switch")
	}
	if stats.FormatID != "360p" {
		t.Errorf("final FormatID = %s, want 360p after bandwidth collapse", stats.FormatID)
	}
	if stats.Trigger != abr.TriggerAdaptive {
		t.Errorf("Trigger = %v, want adaptive", stats.Trigger)
	}
}

func TestDecisionHistoryBounded(t *testing.T) {
	cfg := shortConfig()
	cfg.MediaDuration = 5 * time.Minute
	cfg.HistorySize = 10

	r := NewRunner(abr.NewFixedEvaluator(0), testFormats(),
		[]TraceSegment{{Duration: time.Hour, Bitrate: 5_000_000}}, cfg)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got := len(r.Decisions()); got != 10 {
		t.Errorf("len(Decisions()) = %d, want bounded at 10", got)
	}
	if r.Snapshot().Decisions <= 10 {
		t.Errorf("Decisions counter = %d, want > history bound", r.Snapshot().Decisions)
	}
}

func TestOnDecisionHook(t *testing.T) {
	r := NewRunner(abr.NewFixedEvaluator(0), testFormats(),
		[]TraceSegment{{Duration: time.Hour, Bitrate: 5_000_000}}, shortConfig())

	var seen []Decision
	r.OnDecision = func(d Decision) { seen = append(seen, d) }

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if uint64(len(seen)) != r.Snapshot().Decisions {
		t.Errorf("OnDecision calls = %d, want %d", len(seen), r.Snapshot().Decisions)
	}
	for i, d := range seen {
		if d.FormatID != "360p" {
			t.Fatalf("decision %d: FormatID = %s, want 360p", i, d.FormatID)
		}
	}
}

func TestBitrateAt(t *testing.T) {
	r := NewRunner(nil, testFormats(), []TraceSegment{
		{Duration: 10 * time.Second, Bitrate: 100},
		{Duration: 5 * time.Second, Bitrate: 200},
	}, shortConfig())

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int64
	}{
		{"start", 0, 100},
		{"inside first leg", 9 * time.Second, 100},
		{"boundary starts second leg", 10 * time.Second, 200},
		{"inside second leg", 14 * time.Second, 200},
		{"past trace end holds last", time.Hour, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.bitrateAt(tt.elapsed); got != tt.want {
				t.Errorf("bitrateAt(%v) = %d, want %d", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestDiscardRequestTruncatesQueue(t *testing.T) {
	formats := testFormats()
	r := NewRunner(&discardingEvaluator{formats: formats}, formats,
		[]TraceSegment{{Duration: time.Hour, Bitrate: 50_000_000}}, shortConfig())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	stats := r.Snapshot()
	if stats.DiscardRequests == 0 {
		t.Fatal("DiscardRequests = 0, want > 0")
	}
	if stats.DiscardedChunks == 0 {
		t.Fatal("DiscardedChunks = 0, want > 0")
	}
	if !stats.Done {
		t.Error("Done = false: discards must not wedge the session")
	}
}

// discardingEvaluator selects the lowest quality and asks to drop the
// queue tail whenever more than two chunks are buffered.
type discardingEvaluator struct {
	formats []*abr.Format
}

func (e *discardingEvaluator) Enable()  {}
func (e *discardingEvaluator) Disable() {}

func (e *discardingEvaluator) Evaluate(queue []*abr.MediaChunk, playbackPositionUs int64,
	formats []*abr.Format, evaluation *abr.Evaluation) {
	if len(queue) > 2 {
		evaluation.QueueSize = 2
	}
	evaluation.Format = formats[len(formats)-1]
}
