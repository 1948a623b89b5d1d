// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package pipeline orchestrates one detection pass: event validation,
// concurrent anomaly scoring, behavioral evaluation and pattern
// correlation, then dedup, ranking and report assembly. It also keeps
// the bounded report history the monitoring surface reads from.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/raskell-io/cloudsentry/internal/anomaly"
	"github.com/raskell-io/cloudsentry/internal/correlation"
	"github.com/raskell-io/cloudsentry/internal/features"
	"github.com/raskell-io/cloudsentry/internal/logging"
	"github.com/raskell-io/cloudsentry/internal/metrics"
	"github.com/raskell-io/cloudsentry/internal/models"
	"github.com/raskell-io/cloudsentry/internal/profile"
)

// ErrEmptyInput is returned when a batch contains no valid events.
var ErrEmptyInput = errors.New("pipeline: no valid events in batch")

// Config holds the pipeline orchestration parameters.
type Config struct {
	// EnsembleSize is the number of partition trees built per training run.
	EnsembleSize int

	// SubsampleSize is the per-tree training subsample size.
	SubsampleSize int

	// SubsampleCap bounds SubsampleSize regardless of configuration.
	SubsampleCap int

	// Seed feeds the deterministic training RNG.
	Seed int64

	// ConfidenceThreshold is the minimum min-max confidence for a scored
	// event to be reported as a statistical anomaly.
	ConfidenceThreshold float64

	// AnomalySeverity is attached to statistical-anomaly signals.
	AnomalySeverity models.Severity

	// HistoryCapacity bounds the rolling report history.
	HistoryCapacity int

	// PassTimeout bounds one detection pass; 0 disables the deadline.
	PassTimeout time.Duration
}

// Pipeline orchestrates one detection pass: feature extraction, anomaly
// scoring, behavioral evaluation and pattern correlation over a shared
// immutable batch, merged into a ranked threat report.
type Pipeline struct {
	cfg        Config
	extractor  *features.Extractor
	scorer     *anomaly.Scorer
	profiles   *profile.Store
	correlator *correlation.Correlator
	history    *History

	mu      sync.RWMutex
	model   *anomaly.EnsembleModel
	summary *anomaly.TrainSummary

	now func() time.Time
}

// New assembles a pipeline from its components.
func New(cfg Config, extractor *features.Extractor, profiles *profile.Store, correlator *correlation.Correlator) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		extractor:  extractor,
		scorer:     anomaly.NewScorer(cfg.SubsampleCap),
		profiles:   profiles,
		correlator: correlator,
		history:    NewHistory(cfg.HistoryCapacity),
		now:        time.Now,
	}
}

// History exposes the rolling report history.
func (p *Pipeline) History() *History {
	return p.history
}

// Profiles exposes the behavioral profile store.
func (p *Pipeline) Profiles() *profile.Store {
	return p.profiles
}

// Trained reports whether a model is available for scoring.
func (p *Pipeline) Trained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model != nil
}

// LastTrainSummary returns the summary of the most recent training run.
func (p *Pipeline) LastTrainSummary() (*anomaly.TrainSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.summary == nil {
		return nil, false
	}
	return p.summary, true
}

// Train fits a new ensemble model and behavioral baselines from the given
// events. The previous model stays in service until the new one is ready,
// then is replaced wholesale. Invalid events are rejected individually;
// the batch proceeds with the remainder.
func (p *Pipeline) Train(events []*models.Event) (*anomaly.TrainSummary, error) {
	valid := p.validate(events)
	if len(valid) == 0 {
		return nil, ErrEmptyInput
	}

	start := p.now()
	p.extractor.Fit(valid)
	vectors, err := p.extractor.Transform(valid)
	if err != nil {
		return nil, fmt.Errorf("extracting training features: %w", err)
	}

	model, summary, err := p.scorer.Train(vectors, p.cfg.EnsembleSize, p.cfg.SubsampleSize, p.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("training ensemble: %w", err)
	}

	p.mu.Lock()
	p.model = model
	p.summary = summary
	p.mu.Unlock()

	byEntity := make(map[string][]*models.Event)
	for _, ev := range valid {
		byEntity[ev.EntityID] = append(byEntity[ev.EntityID], ev)
	}
	for entity, stream := range byEntity {
		p.profiles.Update(entity, stream)
	}

	metrics.ModelTrainings.Inc()
	metrics.ModelTrainDuration.Observe(p.now().Sub(start).Seconds())
	metrics.ModelTrainingSamples.Set(float64(summary.Samples))
	metrics.ProfiledEntities.Set(float64(p.profiles.Entities()))

	logging.Info().
		Int("samples", summary.Samples).
		Int("trees", summary.Trees).
		Int("anomalies", summary.Anomalies).
		Float64("inlier_ratio", summary.InlierRatio).
		Int("entities", len(byEntity)).
		Msg("ensemble model trained")

	return summary, nil
}

// Run executes one detection pass over the batch. The three detector
// stages run concurrently on the immutable validated batch; their signals
// are merged, deduplicated and ranked into the report. When the context
// deadline expires mid-pass the report carries whatever stages finished,
// marked incomplete. A pass never masks a stage failure with an empty
// report.
func (p *Pipeline) Run(ctx context.Context, events []*models.Event) (*models.ThreatReport, error) {
	start := p.now()

	valid := p.validate(events)
	if len(valid) == 0 {
		metrics.RecordPass("error", p.now().Sub(start))
		return nil, ErrEmptyInput
	}

	p.mu.RLock()
	model := p.model
	p.mu.RUnlock()
	if model == nil {
		metrics.RecordPass("error", p.now().Sub(start))
		return nil, anomaly.ErrUntrainedModel
	}

	if p.cfg.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PassTimeout)
		defer cancel()
	}

	type stageResult struct {
		index   int
		name    string
		signals []models.ThreatSignal
		err     error
	}

	stages := []struct {
		name string
		fn   func() ([]models.ThreatSignal, error)
	}{
		{"anomaly", func() ([]models.ThreatSignal, error) { return p.anomalySignals(valid, model) }},
		{"profile", func() ([]models.ThreatSignal, error) { return p.profileSignals(valid), nil }},
		{"correlation", func() ([]models.ThreatSignal, error) { return p.correlator.Correlate(valid), nil }},
	}

	results := make(chan stageResult, len(stages))
	for i, st := range stages {
		go func(index int, name string, fn func() ([]models.ThreatSignal, error)) {
			signals, err := fn()
			results <- stageResult{index: index, name: name, signals: signals, err: err}
		}(i, st.name, st.fn)
	}

	// Stage results land in fixed slots so the merge order never depends
	// on goroutine completion order.
	slots := make([][]models.ThreatSignal, len(stages))
	incomplete := false
	pending := len(stages)
	for pending > 0 && !incomplete {
		select {
		case res := <-results:
			pending--
			if res.err != nil {
				metrics.RecordPass("error", p.now().Sub(start))
				return nil, fmt.Errorf("%s stage: %w", res.name, res.err)
			}
			slots[res.index] = res.signals
		case <-ctx.Done():
			incomplete = true
			logging.Warn().
				Int("stages_pending", pending).
				Msg("pass deadline reached, emitting partial report")
		}
	}

	var signals []models.ThreatSignal
	for _, stageSignals := range slots {
		signals = append(signals, stageSignals...)
	}

	report := models.NewThreatReport(rankSignals(dedupeSignals(signals)), p.now().UTC())
	report.Incomplete = incomplete
	p.history.Append(report)

	metrics.EventsProcessed.Add(float64(len(valid)))
	for i := range report.Threats {
		t := &report.Threats[i]
		metrics.ThreatsDetected.WithLabelValues(string(t.Severity), string(t.Source)).Inc()
	}
	outcome := "complete"
	if incomplete {
		outcome = "incomplete"
	}
	metrics.RecordPass(outcome, p.now().Sub(start))

	logging.Info().
		Int("events", len(valid)).
		Int("threats", report.ThreatsDetected).
		Int("high", report.HighSeverityThreats).
		Bool("incomplete", report.Incomplete).
		Msg("detection pass complete")

	return report, nil
}

// validate filters the batch to structurally valid events, deriving the
// time features of each survivor. Rejections are logged per event, never
// fatal for the batch.
func (p *Pipeline) validate(events []*models.Event) []*models.Event {
	valid := make([]*models.Event, 0, len(events))
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if err := ev.Validate(); err != nil {
			field := "unknown"
			var inv *models.InvalidFeatureError
			if errors.As(err, &inv) {
				field = inv.Field
			}
			metrics.EventsRejected.WithLabelValues(field).Inc()
			logging.Warn().
				Err(err).
				Str("entity_id", ev.EntityID).
				Str("event_name", ev.EventName).
				Msg("rejecting invalid event")
			continue
		}
		derived := ev.DeriveTimeFeatures()
		valid = append(valid, &derived)
	}
	return valid
}

// anomalySignals scores the batch against the trained model and emits one
// statistical-anomaly signal per event whose min-max confidence reaches
// the configured threshold.
func (p *Pipeline) anomalySignals(events []*models.Event, model *anomaly.EnsembleModel) ([]models.ThreatSignal, error) {
	vectors, err := p.extractor.Transform(events)
	if err != nil {
		return nil, err
	}
	scores, err := p.scorer.Score(vectors, model)
	if err != nil {
		return nil, err
	}
	confidences := anomaly.Confidences(scores)

	var signals []models.ThreatSignal
	for i, ev := range events {
		if confidences[i] < p.cfg.ConfidenceThreshold {
			continue
		}
		signals = append(signals, models.ThreatSignal{
			Kind:       models.KindStatisticalAnomaly,
			Severity:   p.cfg.AnomalySeverity,
			Confidence: confidences[i],
			Description: fmt.Sprintf(
				"Statistical anomaly: %s by %s (score %.3f)",
				ev.EventName, ev.EntityID, scores[i]),
			Evidence: models.Evidence{EntityID: ev.EntityID, EventNames: []string{ev.EventName}},
			Source:   models.SourceAnomalyScorer,
		})
	}
	return signals, nil
}

// profileSignals evaluates each event against its entity's stored
// baseline. Entities without a profile contribute nothing; cold start is
// expected, not an error.
func (p *Pipeline) profileSignals(events []*models.Event) []models.ThreatSignal {
	var signals []models.ThreatSignal
	for _, ev := range events {
		signals = append(signals, p.profiles.Evaluate(ev.EntityID, ev)...)
	}
	return signals
}

// dedupeSignals drops repeated signals: two signals are duplicates when
// kind, entity and description all match.
func dedupeSignals(signals []models.ThreatSignal) []models.ThreatSignal {
	type key struct {
		kind        models.SignalKind
		entity      string
		description string
	}
	seen := make(map[key]struct{}, len(signals))
	out := signals[:0]
	for _, s := range signals {
		k := key{kind: s.Kind, entity: s.Evidence.EntityID, description: s.Description}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// rankSignals orders signals by severity (HIGH > MEDIUM > LOW), then
// confidence descending, then entity, first event name and kind for a
// stable, deterministic report order. Signals from different stages can
// tie on the first four keys; kind breaks the tie.
func rankSignals(signals []models.ThreatSignal) []models.ThreatSignal {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := &signals[i], &signals[j]
		if ar, br := a.Severity.Rank(), b.Severity.Rank(); ar != br {
			return ar > br
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Evidence.EntityID != b.Evidence.EntityID {
			return a.Evidence.EntityID < b.Evidence.EntityID
		}
		if an, bn := firstEventName(a), firstEventName(b); an != bn {
			return an < bn
		}
		return a.Kind < b.Kind
	})
	return signals
}

func firstEventName(s *models.ThreatSignal) string {
	if len(s.Evidence.EventNames) == 0 {
		return ""
	}
	return s.Evidence.EventNames[0]
}
