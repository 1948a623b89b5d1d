// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package anomaly

import (
	"math"
	"math/rand"
	"time"

	"github.com/raskell-io/cloudsentry/internal/features"
)

// DefaultSubsampleCap bounds the per-tree subsample size regardless of
// configuration.
const DefaultSubsampleCap = 256

// EnsembleModel is the trained scorer state: the partition trees, the
// subsample size psi they were built with, and the frozen feature-scaling
// parameters. A model is created by Train, held for the process lifetime
// and replaced wholesale by the next Train; it is never partially updated.
type EnsembleModel struct {
	trees  []*partitionTree
	psi    int
	scaler *features.Scaler

	// SplitCounts records how often each feature index was chosen for a
	// split across the ensemble. Diagnostic only; not a per-feature
	// importance metric (the algorithm has none).
	SplitCounts []int

	Seed      int64
	TrainedAt time.Time
}

// SubsampleSize returns psi, the per-tree subsample size used at train.
func (m *EnsembleModel) SubsampleSize() int {
	return m.psi
}

// Trees returns the ensemble size.
func (m *EnsembleModel) Trees() int {
	return len(m.trees)
}

// TrainSummary describes a completed training run.
type TrainSummary struct {
	Samples      int     `json:"samples"`
	Trees        int     `json:"trees"`
	Anomalies    int     `json:"anomalies_detected"`
	InlierRatio  float64 `json:"inlier_ratio"`
	MeanScore    float64 `json:"mean_score"`
	MaxScore     float64 `json:"max_score"`
}

// trainAnomalyCutoff is the conventional isolation-score cutoff used only
// for the training summary; detection confidence uses the configured
// threshold, not this value.
const trainAnomalyCutoff = 0.6

// Scorer builds and queries ensemble models.
type Scorer struct {
	subsampleCap int
}

// NewScorer creates a scorer. cap <= 0 selects DefaultSubsampleCap.
func NewScorer(cap int) *Scorer {
	if cap <= 0 {
		cap = DefaultSubsampleCap
	}
	return &Scorer{subsampleCap: cap}
}

// Train fits a new ensemble over the given vectors. The returned model is
// independent of any previous one. Returns ErrEmptyInput when vectors is
// empty.
//
// All randomness (subsample draws, feature choices, thresholds) comes
// from a single source seeded here, so two Train calls with identical
// inputs and seed produce bit-identical models.
func (s *Scorer) Train(vectors []features.Vector, ensembleSize, subsampleSize int, seed int64) (*EnsembleModel, *TrainSummary, error) {
	if len(vectors) == 0 {
		return nil, nil, ErrEmptyInput
	}

	psi := subsampleSize
	if psi > s.subsampleCap {
		psi = s.subsampleCap
	}
	if psi > len(vectors) {
		psi = len(vectors)
	}
	if psi < 1 {
		psi = 1
	}

	scaler := features.FitScaler(vectors)
	scaled := scaler.Transform(vectors)

	maxDepth := int(math.Ceil(math.Log2(float64(psi))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	rng := rand.New(rand.NewSource(seed))
	trees := make([]*partitionTree, ensembleSize)
	for i := range trees {
		sample := make([]features.Vector, psi)
		for j := range sample {
			// With replacement.
			sample[j] = scaled[rng.Intn(len(scaled))]
		}
		trees[i] = buildTree(sample, maxDepth, rng)
	}

	model := &EnsembleModel{
		trees:       trees,
		psi:         psi,
		scaler:      scaler,
		SplitCounts: make([]int, len(vectors[0])),
		Seed:        seed,
		TrainedAt:   time.Now().UTC(),
	}
	for _, t := range trees {
		t.splitCounts(model.SplitCounts)
	}

	summary := s.summarize(vectors, model)
	return model, summary, nil
}

func (s *Scorer) summarize(vectors []features.Vector, model *EnsembleModel) *TrainSummary {
	scores, err := s.Score(vectors, model)
	if err != nil {
		return &TrainSummary{Samples: len(vectors), Trees: model.Trees()}
	}

	summary := &TrainSummary{Samples: len(vectors), Trees: model.Trees()}
	for _, sc := range scores {
		summary.MeanScore += sc
		if sc > summary.MaxScore {
			summary.MaxScore = sc
		}
		if sc >= trainAnomalyCutoff {
			summary.Anomalies++
		}
	}
	summary.MeanScore /= float64(len(scores))
	summary.InlierRatio = float64(len(scores)-summary.Anomalies) / float64(len(scores))
	return summary
}

// Score computes the anomaly score of each vector against the model:
// 2^(-meanPathLength/c(psi)), averaged across all trees. Every returned
// score lies in (0,1]. Returns ErrUntrainedModel when model is nil and
// ErrEmptyInput when vectors is empty.
func (s *Scorer) Score(vectors []features.Vector, model *EnsembleModel) ([]float64, error) {
	if model == nil || len(model.trees) == 0 {
		return nil, ErrUntrainedModel
	}
	if len(vectors) == 0 {
		return nil, ErrEmptyInput
	}
	for _, v := range vectors {
		if len(v) != len(model.SplitCounts) {
			return nil, ErrDimensionMismatch
		}
	}

	scaled := model.scaler.Transform(vectors)
	norm := avgPathLength(model.psi)
	if norm <= 0 {
		// psi of 1 carries no density information; everything is typical.
		norm = 1
	}

	scores := make([]float64, len(scaled))
	for i, v := range scaled {
		var total float64
		for _, t := range model.trees {
			total += t.pathLength(v)
		}
		mean := total / float64(len(model.trees))
		scores[i] = math.Exp2(-mean / norm)
	}
	return scores, nil
}

// Confidences converts raw scores to [0,1] via min-max scaling over the
// batch's score distribution. When all scores are equal there is no
// information to rank, so every confidence is 0.
func Confidences(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if hi == lo {
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}
