package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shapedtime/abrkit/internal/abr"
	"github.com/shapedtime/abrkit/internal/api"
	"github.com/shapedtime/abrkit/internal/catalog"
	"github.com/shapedtime/abrkit/internal/config"
	"github.com/shapedtime/abrkit/internal/metrics"
	"github.com/shapedtime/abrkit/internal/simulate"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting abrsim", "config", *configPath)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	// Build the candidate catalog
	formats, err := catalog.FromSpecs(cfg.Formats)
	if err != nil {
		slog.Error("Failed to build catalog", "error", err)
		os.Exit(1)
	}
	formats, err = catalog.Filter(formats, cfg.Strategy.Constraints)
	if err != nil {
		slog.Error("Failed to apply catalog constraints", "error", err)
		os.Exit(1)
	}
	slog.Info("Catalog ready", "formats", len(formats),
		"top_bitrate", formats[0].Bitrate,
		"bottom_bitrate", formats[len(formats)-1].Bitrate,
	)

	// Build the session
	trace := make([]simulate.TraceSegment, 0, len(cfg.Trace))
	for _, seg := range cfg.Trace {
		trace = append(trace, simulate.TraceSegment{
			Duration: time.Duration(seg.DurationMs) * time.Millisecond,
			Bitrate:  seg.Bitrate,
		})
	}
	runner := simulate.NewRunner(nil, formats, trace, simulate.Config{
		ChunkDuration: time.Duration(cfg.Playback.ChunkDurationMs) * time.Millisecond,
		MaxBuffer:     time.Duration(cfg.Playback.MaxBufferMs) * time.Millisecond,
		MediaDuration: time.Duration(cfg.Playback.MediaDurationMs) * time.Millisecond,
	})

	evaluator, err := buildEvaluator(cfg, runner)
	if err != nil {
		slog.Error("Failed to build evaluator", "error", err)
		os.Exit(1)
	}
	runner.SetEvaluator(evaluator)
	slog.Info("Evaluator ready", "strategy", cfg.Strategy.Name)

	// Initialize metrics
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	registry.MustRegister(metrics.NewSessionCollector(runner))

	runner.OnDecision = func(d simulate.Decision) {
		m.Decisions.Inc()
		m.SelectedBitrate.Observe(float64(d.Bitrate))
		if d.Switched {
			m.Switches.Inc()
		}
		if d.Discarded > 0 {
			m.DiscardRequests.Inc()
			m.DiscardedChunks.Add(float64(d.Discarded))
		}
	}
	runner.OnRebuffer = func(stall time.Duration) {
		m.Rebuffers.Inc()
		m.StallSeconds.Add(stall.Seconds())
	}

	// Start servers
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()
	metricsServer := metrics.NewServer(cfg.Server.MetricsPort, registry)
	go func() {
		if err := metricsServer.ListenAndServe(metricsCtx); err != nil {
			slog.Error("Metrics server error", "error", err)
		}
	}()

	apiServer := api.NewServer(runner)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: apiServer.Handler(),
	}
	go func() {
		slog.Info("Starting debug API server", "port", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Debug API server error", "error", err)
		}
	}()

	// Run the session
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := runner.Run(runCtx); err != nil && err != context.Canceled {
			slog.Error("Session error", "error", err)
		}
	}()

	slog.Info("abrsim is ready",
		"api_url", fmt.Sprintf("http://localhost:%d/api", cfg.Server.HTTPPort),
		"metrics_url", fmt.Sprintf("http://localhost:%d/metrics", cfg.Server.MetricsPort),
	)

	// Wait for shutdown signal or session completion
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig)
		cancelRun()
		<-done
	case <-done:
		slog.Info("Session complete, shutting down")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Debug API server shutdown error", "error", err)
	}
	stopMetrics()

	slog.Info("abrsim stopped")
}

// buildEvaluator constructs the strategy named in the config.
func buildEvaluator(cfg *config.Config, runner *simulate.Runner) (abr.Evaluator, error) {
	switch cfg.Strategy.Name {
	case "adaptive":
		return abr.NewAdaptiveEvaluator(runner.Meter(), abr.AdaptiveConfig{
			MaxInitialBitrate:               cfg.Adaptive.MaxInitialBitrate,
			MinDurationForQualityIncrease:   time.Duration(cfg.Adaptive.MinDurationForQualityIncreaseMs) * time.Millisecond,
			MaxDurationForQualityDecrease:   time.Duration(cfg.Adaptive.MaxDurationForQualityDecreaseMs) * time.Millisecond,
			MinDurationToRetainAfterDiscard: time.Duration(cfg.Adaptive.MinDurationToRetainAfterDiscardMs) * time.Millisecond,
			BandwidthFraction:               cfg.Adaptive.BandwidthFraction,
		}), nil
	case "fixed":
		return abr.NewFixedEvaluator(cfg.Strategy.FixedHeight), nil
	case "random":
		if cfg.Strategy.RandomSeed != 0 {
			return abr.NewRandomEvaluatorSeed(cfg.Strategy.RandomSeed), nil
		}
		return abr.NewRandomEvaluator(), nil
	case "roundrobin":
		return abr.NewRoundRobinEvaluator(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy.Name)
	}
}
