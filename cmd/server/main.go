// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Command server runs the CloudSentry detection engine.
//
// Startup order:
//
//  1. Configuration (defaults, optional YAML file, CLOUDSENTRY_* env vars)
//  2. Logging
//  3. Detection engine (feature extractor, profile store, correlator,
//     anomaly pipeline)
//  4. NATS transport (optional, embedded server in standalone mode)
//  5. HTTP API
//
// The messaging layer and the API run as separate branches of a
// supervision tree; SIGINT/SIGTERM triggers a graceful shutdown of both.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raskell-io/cloudsentry/internal/api"
	"github.com/raskell-io/cloudsentry/internal/config"
	"github.com/raskell-io/cloudsentry/internal/correlation"
	"github.com/raskell-io/cloudsentry/internal/features"
	"github.com/raskell-io/cloudsentry/internal/ingest"
	"github.com/raskell-io/cloudsentry/internal/logging"
	"github.com/raskell-io/cloudsentry/internal/models"
	"github.com/raskell-io/cloudsentry/internal/notify"
	"github.com/raskell-io/cloudsentry/internal/pipeline"
	"github.com/raskell-io/cloudsentry/internal/profile"
	"github.com/raskell-io/cloudsentry/internal/supervisor"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	bootstrapSamples := flag.Int("bootstrap-samples", 0,
		"train the engine on n synthetic sample events at startup (0 disables)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("version", version).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Bool("webhook_enabled", cfg.Webhook.Enabled).
		Msg("starting CloudSentry")

	engine := buildEngine(cfg)

	if *bootstrapSamples > 0 {
		if err := bootstrapTraining(engine, cfg.Detection.Seed, *bootstrapSamples); err != nil {
			logging.Error().Err(err).Msg("bootstrap training failed")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree := supervisor.NewTree(
		slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		supervisor.DefaultTreeConfig(),
	)

	if cfg.NATS.Enabled {
		cleanup, err := wireMessaging(ctx, cfg, messagingEngine(cfg, engine), tree)
		if err != nil {
			logging.Error().Err(err).Msg("messaging layer initialization failed")
			os.Exit(1)
		}
		defer cleanup()
	}

	handler := api.NewHandler(engine, cfg.Server.MaxDetectEvents)
	router := api.NewRouter(handler, api.RouterConfig{RateLimitPerMin: cfg.Server.RateLimitPerMin})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	tree.AddAPIService(supervisor.NewHTTPService(
		api.NewServer(addr, router, cfg.Server.Timeout),
		10*time.Second,
	))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervision tree terminated")
		os.Exit(1)
	}
	logging.Info().Msg("shutdown complete")
}

// buildEngine assembles the detection pipeline from configuration.
func buildEngine(cfg *config.Config) *pipeline.Pipeline {
	return pipeline.New(
		pipeline.Config{
			EnsembleSize:        cfg.Detection.EnsembleSize,
			SubsampleSize:       cfg.Detection.SubsampleSize,
			SubsampleCap:        cfg.Detection.SubsampleCap,
			Seed:                cfg.Detection.Seed,
			ConfidenceThreshold: cfg.Detection.ConfidenceThreshold,
			AnomalySeverity:     models.Severity(cfg.Detection.AnomalySeverity),
			HistoryCapacity:     cfg.Detection.HistoryCapacity,
			PassTimeout:         cfg.Detection.PassTimeout,
		},
		features.NewExtractor(cfg.Features.UsualRegion),
		profile.NewStore(profile.Config{
			UnusualHoursTolerance:  cfg.Profile.UnusualHoursTolerance,
			UnusualHoursConfidence: cfg.Profile.UnusualHoursConfidence,
			RareEventConfidence:    cfg.Profile.RareEventConfidence,
			TopK:                   cfg.Profile.TopK,
		}),
		correlation.NewCorrelator(correlatorConfig(cfg)),
	)
}

// correlatorConfig merges the intel tables with the detection thresholds.
func correlatorConfig(cfg *config.Config) correlation.Config {
	patterns := make([]correlation.SequencePattern, 0, len(cfg.Intel.SequencePatterns))
	for _, p := range cfg.Intel.SequencePatterns {
		patterns = append(patterns, correlation.SequencePattern{
			Kind:       models.SignalKind(p.Kind),
			Steps:      p.Steps,
			Severity:   models.Severity(p.Severity),
			Confidence: p.Confidence,
		})
	}
	return correlation.Config{
		KnownMaliciousIPs:     cfg.Intel.KnownMaliciousIPs,
		SuspiciousUserAgents:  cfg.Intel.SuspiciousUserAgents,
		CriticalOperations:    cfg.Intel.CriticalOperations,
		SequencePatterns:      patterns,
		MaliciousIPConfidence: cfg.Intel.MaliciousIPConfidence,
		UserAgentConfidence:   cfg.Intel.UserAgentConfidence,
		CriticalOpConfidence:  cfg.Intel.CriticalOpConfidence,
		BruteForceThreshold:   cfg.Detection.BruteForceThreshold,
		OffHoursThreshold:     cfg.Detection.OffHoursThreshold,
		RegionThreshold:       cfg.Detection.RegionThreshold,
		BruteForceConfidence:  cfg.Intel.BruteForceConfidence,
		OffHoursConfidence:    cfg.Intel.OffHoursConfidence,
		GeoAnomalyConfidence:  cfg.Intel.GeoAnomalyConfidence,
	}
}

// bootstrapTraining fits the model on generated sample traffic so a
// standalone instance can score events before any real training batch
// arrives.
func bootstrapTraining(engine *pipeline.Pipeline, seed int64, n int) error {
	events := ingest.NewSampleGenerator(seed).Generate(n, time.Now().UTC())
	summary, err := engine.Train(events)
	if err != nil {
		return fmt.Errorf("training on %d sample events: %w", n, err)
	}
	logging.Info().
		Int("samples", summary.Samples).
		Int("trees", summary.Trees).
		Msg("engine bootstrapped on synthetic samples")
	return nil
}

// messagingEngine wraps the pipeline for the streaming path, attaching
// the webhook notifier when one is configured.
func messagingEngine(cfg *config.Config, engine *pipeline.Pipeline) *streamEngine {
	se := &streamEngine{engine: engine}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		se.notifier = notify.NewNotifier(notify.Config{
			URL:         cfg.Webhook.URL,
			Headers:     cfg.Webhook.Headers,
			MinSeverity: models.Severity(cfg.Webhook.MinSeverity),
			RateLimit:   cfg.Webhook.RateLimit,
			Timeout:     cfg.Webhook.Timeout,
		})
		logging.Info().Str("url", cfg.Webhook.URL).Msg("webhook notifier enabled")
	}
	return se
}

// streamEngine runs detection passes for consumed batches and pushes the
// resulting reports to the webhook notifier. Notification failures are
// logged, never propagated: a broken webhook must not nack event batches.
type streamEngine struct {
	engine   *pipeline.Pipeline
	notifier *notify.Notifier
}

func (s *streamEngine) Run(ctx context.Context, events []*models.Event) (*models.ThreatReport, error) {
	report, err := s.engine.Run(ctx, events)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if nerr := s.notifier.Notify(ctx, report); nerr != nil && !errors.Is(nerr, notify.ErrBelowMinSeverity) {
			logging.Warn().Err(nerr).Msg("webhook notification failed")
		}
	}
	return report, nil
}
