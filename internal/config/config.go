package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shapedtime/abrkit/internal/catalog"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Strategy StrategyConfig       `yaml:"strategy"`
	Adaptive AdaptiveConfig       `yaml:"adaptive"`
	Playback PlaybackConfig       `yaml:"playback"`
	Formats  []catalog.FormatSpec `yaml:"formats"`
	Trace    []TraceSegment       `yaml:"trace"`
}

type ServerConfig struct {
	HTTPPort    int `yaml:"http_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// StrategyConfig selects and parameterizes the format evaluator.
type StrategyConfig struct {
	// Name is one of "adaptive", "fixed", "random", "roundrobin".
	Name string `yaml:"name"`

	// FixedHeight pins the fixed strategy to a pixel height (0 = lowest
	// quality).
	FixedHeight int `yaml:"fixed_height"`

	// RandomSeed seeds the random strategy; 0 seeds from the clock.
	RandomSeed int64 `yaml:"random_seed"`

	// Constraints are boolean expressions over br, w and h that narrow
	// the candidate catalog, e.g. "br <= 4000000 && h < 1080".
	Constraints []string `yaml:"constraints"`
}

// AdaptiveConfig tunes the adaptive strategy. Durations are milliseconds.
// Fields left at zero fall back to the built-in defaults (bandwidth
// fraction 0.75); there is no way to configure a fraction of literally 0,
// which would make every format unaffordable.
type AdaptiveConfig struct {
	MaxInitialBitrate                 int     `yaml:"max_initial_bitrate"`
	MinDurationForQualityIncreaseMs   int     `yaml:"min_duration_for_quality_increase"`
	MaxDurationForQualityDecreaseMs   int     `yaml:"max_duration_for_quality_decrease"`
	MinDurationToRetainAfterDiscardMs int     `yaml:"min_duration_to_retain_after_discard"`
	BandwidthFraction                 float64 `yaml:"bandwidth_fraction"`
}

// PlaybackConfig shapes the simulated playback session.
type PlaybackConfig struct {
	ChunkDurationMs int `yaml:"chunk_duration"` // per-chunk media duration
	MaxBufferMs     int `yaml:"max_buffer"`     // stop fetching beyond this
	MediaDurationMs int `yaml:"media_duration"` // total media length
}

// TraceSegment is one leg of the synthetic bandwidth trace.
type TraceSegment struct {
	DurationMs int   `yaml:"duration"`
	Bitrate    int64 `yaml:"bitrate"` // bits per second
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    4545,
			MetricsPort: 9345,
		},
		Strategy: StrategyConfig{
			Name: "adaptive",
		},
		Playback: PlaybackConfig{
			ChunkDurationMs: 4000,
			MaxBufferMs:     40000,
			MediaDurationMs: 600000, // 10 minutes
		},
		Formats: []catalog.FormatSpec{
			{ID: "1080p", Bitrate: 4_800_000, Width: 1920, Height: 1080},
			{ID: "720p", Bitrate: 2_000_000, Width: 1280, Height: 720},
			{ID: "480p", Bitrate: 800_000, Width: 854, Height: 480},
			{ID: "360p", Bitrate: 300_000, Width: 640, Height: 360},
		},
		Trace: []TraceSegment{
			{DurationMs: 60000, Bitrate: 1_200_000},
			{DurationMs: 120000, Bitrate: 6_000_000},
			{DurationMs: 60000, Bitrate: 500_000},
			{DurationMs: 120000, Bitrate: 3_000_000},
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks for configuration values the session cannot run with.
func (c *Config) Validate() error {
	switch c.Strategy.Name {
	case "adaptive", "fixed", "random", "roundrobin":
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy.Name)
	}

	if len(c.Formats) == 0 {
		return fmt.Errorf("at least one format is required")
	}
	if len(c.Trace) == 0 {
		return fmt.Errorf("at least one bandwidth trace segment is required")
	}
	for i, seg := range c.Trace {
		if seg.DurationMs <= 0 {
			return fmt.Errorf("trace segment %d: duration must be positive", i)
		}
		if seg.Bitrate <= 0 {
			return fmt.Errorf("trace segment %d: bitrate must be positive", i)
		}
	}

	if c.Playback.ChunkDurationMs <= 0 {
		return fmt.Errorf("chunk duration must be positive")
	}
	if c.Playback.MediaDurationMs < c.Playback.ChunkDurationMs {
		return fmt.Errorf("media duration must cover at least one chunk")
	}
	if c.Playback.MaxBufferMs < c.Playback.ChunkDurationMs {
		return fmt.Errorf("max buffer must cover at least one chunk")
	}

	if f := c.Adaptive.BandwidthFraction; f < 0 || f > 1 {
		return fmt.Errorf("bandwidth fraction must be within [0, 1], got %v", f)
	}

	return nil
}
