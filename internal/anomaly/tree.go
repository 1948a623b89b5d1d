// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package anomaly

import (
	"math"
	"math/rand"

	"github.com/raskell-io/cloudsentry/internal/features"
)

// eulerMascheroni is the constant used by the harmonic-number
// approximation H(n) ~= ln(n) + 0.5772156649.
const eulerMascheroni = 0.5772156649

// partitionTree is one member of the ensemble, immutable once built.
type partitionTree struct {
	root *treeNode
}

// treeNode is an internal split or a leaf. Internal nodes carry a feature
// index and threshold; leaves carry the residual subsample size and the
// depth at which partitioning stopped.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode

	leaf  bool
	size  int
	depth int
}

// buildTree partitions the subsample recursively until a node holds a
// single vector, the subsample has no spread on any feature, or maxDepth
// is reached.
func buildTree(sample []features.Vector, maxDepth int, rng *rand.Rand) *partitionTree {
	return &partitionTree{root: buildNode(sample, 0, maxDepth, rng)}
}

func buildNode(sample []features.Vector, depth, maxDepth int, rng *rand.Rand) *treeNode {
	if len(sample) <= 1 || depth >= maxDepth {
		return &treeNode{leaf: true, size: len(sample), depth: depth}
	}

	feature, lo, hi, ok := pickSplitFeature(sample, rng)
	if !ok {
		// Every feature is constant across the subsample.
		return &treeNode{leaf: true, size: len(sample), depth: depth}
	}

	threshold := lo + rng.Float64()*(hi-lo)

	var left, right []features.Vector
	for _, v := range sample {
		if v[feature] < threshold {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	// A degenerate draw (threshold at the boundary) can leave one side
	// empty; terminate rather than recurse on the same subsample.
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{leaf: true, size: len(sample), depth: depth}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      buildNode(left, depth+1, maxDepth, rng),
		right:     buildNode(right, depth+1, maxDepth, rng),
	}
}

// pickSplitFeature draws a feature uniformly among those with observed
// spread in the subsample. Returns ok=false when no feature can split.
func pickSplitFeature(sample []features.Vector, rng *rand.Rand) (feature int, lo, hi float64, ok bool) {
	dim := len(sample[0])
	candidates := make([]int, 0, dim)
	los := make([]float64, dim)
	his := make([]float64, dim)

	for j := 0; j < dim; j++ {
		lo, hi := sample[0][j], sample[0][j]
		for _, v := range sample[1:] {
			if v[j] < lo {
				lo = v[j]
			}
			if v[j] > hi {
				hi = v[j]
			}
		}
		los[j], his[j] = lo, hi
		if hi > lo {
			candidates = append(candidates, j)
		}
	}

	if len(candidates) == 0 {
		return 0, 0, 0, false
	}
	j := candidates[rng.Intn(len(candidates))]
	return j, los[j], his[j], true
}

// pathLength returns the depth at which the query vector settles,
// corrected for residual leaf size.
func (t *partitionTree) pathLength(v features.Vector) float64 {
	node := t.root
	for !node.leaf {
		if v[node.feature] < node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return float64(node.depth) + avgPathLength(node.size)
}

// avgPathLength is the size-correction term c(n) = 2*H(n-1) - 2*(n-1)/n,
// the expected path length of an unsuccessful BST search in a tree of n
// points. It accounts for trees that terminate early at maxDepth.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	fn := float64(n)
	h := math.Log(fn-1) + eulerMascheroni
	return 2*h - 2*(fn-1)/fn
}

// splitCounts walks the tree accumulating how often each feature was
// chosen for a split. Internal diagnostic only; the ensemble has no
// native per-feature importance metric.
func (t *partitionTree) splitCounts(counts []int) {
	var walk func(n *treeNode)
	walk = func(n *treeNode) {
		if n == nil || n.leaf {
			return
		}
		if n.feature < len(counts) {
			counts[n.feature]++
		}
		walk(n.left)
		walk(n.right)
	}
	walk(t.root)
}
