// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package pipeline

import (
	"sync"

	"github.com/raskell-io/cloudsentry/internal/metrics"
	"github.com/raskell-io/cloudsentry/internal/models"
)

// DefaultHistoryCapacity bounds the rolling report history when no
// capacity is configured.
const DefaultHistoryCapacity = 1000

// History is a bounded FIFO of threat reports backed by a fixed ring
// buffer. When full, appending evicts the oldest report. Safe for
// concurrent use.
type History struct {
	mu   sync.RWMutex
	buf  []*models.ThreatReport
	head int // index of the oldest report
	size int
}

// NewHistory creates a history with the given capacity. capacity <= 0
// selects DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]*models.ThreatReport, capacity)}
}

// Append adds a report, evicting the oldest when at capacity.
func (h *History) Append(r *models.ThreatReport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size == len(h.buf) {
		h.buf[h.head] = r
		h.head = (h.head + 1) % len(h.buf)
		metrics.HistoryEvictions.Inc()
	} else {
		h.buf[(h.head+h.size)%len(h.buf)] = r
		h.size++
	}
	metrics.HistorySize.Set(float64(h.size))
}

// Latest returns the most recently appended report.
func (h *History) Latest() (*models.ThreatReport, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.size == 0 {
		return nil, false
	}
	return h.buf[(h.head+h.size-1)%len(h.buf)], true
}

// Recent returns up to n reports, newest first. n <= 0 returns all
// retained reports.
func (h *History) Recent(n int) []*models.ThreatReport {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > h.size {
		n = h.size
	}
	out := make([]*models.ThreatReport, n)
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.head+h.size-1-i)%len(h.buf)]
	}
	return out
}

// Len returns the number of retained reports.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// MonitorMetrics is a rolling aggregate over the retained reports.
type MonitorMetrics struct {
	Passes            int     `json:"passes"`
	TotalThreats      int     `json:"total_threats"`
	HighSeverity      int     `json:"high_severity"`
	MediumSeverity    int     `json:"medium_severity"`
	LowSeverity       int     `json:"low_severity"`
	AvgThreatsPerPass float64 `json:"avg_threats_per_pass"`
}

// Metrics aggregates the retained history into monitor metrics.
func (h *History) Metrics() MonitorMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := MonitorMetrics{Passes: h.size}
	for i := 0; i < h.size; i++ {
		r := h.buf[(h.head+i)%len(h.buf)]
		m.TotalThreats += r.ThreatsDetected
		m.HighSeverity += r.HighSeverityThreats
		m.MediumSeverity += r.MediumSeverityThreats
		m.LowSeverity += r.LowSeverityThreats
	}
	if m.Passes > 0 {
		m.AvgThreatsPerPass = float64(m.TotalThreats) / float64(m.Passes)
	}
	return m
}
