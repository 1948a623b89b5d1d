// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package features

import "sort"

// SentinelBucket is the encoded value for categories not present in the
// table. Unseen values never extend a fitted table.
const SentinelBucket = 0

// EncodingTable maps categorical string values to stable numeric codes.
// Codes start at 1; 0 is the sentinel bucket for unseen values. Tables
// are versioned so a model can detect that it was trained against a
// different encoding generation.
type EncodingTable struct {
	Version int
	codes   map[string]float64
}

// NewEncodingTable fits a table over the given values. Codes are assigned
// in lexicographic order so a table fit over the same value set is always
// identical, which the determinism guarantee depends on.
func NewEncodingTable(version int, values []string) *EncodingTable {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	unique := make([]string, 0, len(seen))
	for v := range seen {
		unique = append(unique, v)
	}
	sort.Strings(unique)

	codes := make(map[string]float64, len(unique))
	for i, v := range unique {
		codes[v] = float64(i + 1)
	}
	return &EncodingTable{Version: version, codes: codes}
}

// Encode returns the code for a value, or SentinelBucket when the value
// was not part of the fitted vocabulary.
func (t *EncodingTable) Encode(value string) float64 {
	if t == nil {
		return SentinelBucket
	}
	if code, ok := t.codes[value]; ok {
		return code
	}
	return SentinelBucket
}

// Size returns the number of known categories (excluding the sentinel).
func (t *EncodingTable) Size() int {
	if t == nil {
		return 0
	}
	return len(t.codes)
}
