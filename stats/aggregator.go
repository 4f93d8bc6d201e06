// Package stats computes windowed aggregate metrics over alert sets. All
// computation is read-only; results are derived fresh per query and never
// persisted.
package stats

import (
	"sort"
	"time"

	"argus/core"
)

// Window bounds the alerts included in an aggregation by creation time.
// A zero Start or End means unbounded on that side.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the window covers the given creation time.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// SourceCount is one entry in the top-sources ranking.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// AlertStats is the computed aggregate over a windowed alert set. Average
// durations are nil, not zero, when no alert in the window has the required
// timestamps.
type AlertStats struct {
	TotalAlerts       int                   `json:"total_alerts"`
	ActiveCount       int                   `json:"active_count"`
	AcknowledgedCount int                   `json:"acknowledged_count"`
	ResolvedCount     int                   `json:"resolved_count"`
	SuppressedCount   int                   `json:"suppressed_count"`
	AvgAckSeconds     *float64              `json:"avg_acknowledgment_seconds"`
	AvgResolveSeconds *float64              `json:"avg_resolution_seconds"`
	EscalationCount   int                   `json:"escalation_count"`
	TopSources        []SourceCount         `json:"top_sources"`
	SeverityCounts    map[core.Severity]int `json:"severity_distribution"`
}

const topSourcesLimit = 5

// Compute aggregates the alerts falling inside the window. An empty input
// yields zero counts, empty rankings and nil averages.
func Compute(alerts []*core.Alert, window Window) AlertStats {
	result := AlertStats{
		SeverityCounts: make(map[core.Severity]int),
	}

	var ackTotal, resolveTotal time.Duration
	var ackCount, resolveCount int
	sourceCounts := make(map[string]int)
	var sourceOrder []string

	for _, alert := range alerts {
		if !window.Contains(alert.CreatedAt) {
			continue
		}
		result.TotalAlerts++

		switch alert.Status {
		case core.AlertStatusActive:
			result.ActiveCount++
		case core.AlertStatusAcknowledged:
			result.AcknowledgedCount++
		case core.AlertStatusResolved:
			result.ResolvedCount++
		case core.AlertStatusSuppressed:
			result.SuppressedCount++
		}

		if alert.AcknowledgedAt != nil {
			ackTotal += alert.AcknowledgedAt.Sub(alert.CreatedAt)
			ackCount++
		}
		if alert.ResolvedAt != nil {
			resolveTotal += alert.ResolvedAt.Sub(alert.CreatedAt)
			resolveCount++
		}
		if alert.Context.Escalated {
			result.EscalationCount++
		}

		if _, seen := sourceCounts[alert.Source]; !seen {
			sourceOrder = append(sourceOrder, alert.Source)
		}
		sourceCounts[alert.Source]++

		result.SeverityCounts[alert.Severity]++
	}

	if ackCount > 0 {
		avg := ackTotal.Seconds() / float64(ackCount)
		result.AvgAckSeconds = &avg
	}
	if resolveCount > 0 {
		avg := resolveTotal.Seconds() / float64(resolveCount)
		result.AvgResolveSeconds = &avg
	}

	result.TopSources = topSources(sourceCounts, sourceOrder)
	return result
}

// topSources ranks sources by count descending, ties broken by
// first-encountered order, truncated to the top five.
func topSources(counts map[string]int, order []string) []SourceCount {
	ranked := make([]SourceCount, 0, len(order))
	for _, source := range order {
		ranked = append(ranked, SourceCount{Source: source, Count: counts[source]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > topSourcesLimit {
		ranked = ranked[:topSourcesLimit]
	}
	return ranked
}
