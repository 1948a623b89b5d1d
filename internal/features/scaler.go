// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package features

import "math"

// Scaler standardizes vectors (subtract mean, divide by standard
// deviation, per feature) with parameters fit once at train time and
// frozen thereafter.
//
// A feature whose training-time variance is zero is treated as constant
// and passes through unchanged, so scaling never divides by zero.
type Scaler struct {
	Mean   []float64
	Std    []float64
	Active []bool
}

// FitScaler computes per-feature mean and population standard deviation
// over the training vectors. Callers must not pass an empty batch.
func FitScaler(vectors []Vector) *Scaler {
	dim := len(vectors[0])
	s := &Scaler{
		Mean:   make([]float64, dim),
		Std:    make([]float64, dim),
		Active: make([]bool, dim),
	}

	n := float64(len(vectors))
	for _, v := range vectors {
		for j, f := range v {
			s.Mean[j] += f
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, v := range vectors {
		for j, f := range v {
			d := f - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		s.Active[j] = s.Std[j] > 0
	}

	return s
}

// Transform returns standardized copies of the input vectors. Inputs are
// never modified.
func (s *Scaler) Transform(vectors []Vector) []Vector {
	out := make([]Vector, len(vectors))
	for i, v := range vectors {
		scaled := make(Vector, len(v))
		for j, f := range v {
			if j < len(s.Active) && s.Active[j] {
				scaled[j] = (f - s.Mean[j]) / s.Std[j]
			} else {
				scaled[j] = f
			}
		}
		out[i] = scaled
	}
	return out
}
