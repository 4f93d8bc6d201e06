package classify

import (
	"strings"

	"argus/core"
)

// severityAliases maps the severity strings seen across source systems to
// the canonical enum. Unrecognized or missing values default to MEDIUM.
var severityAliases = map[string]core.Severity{
	"critical":      core.SeverityCritical,
	"fatal":         core.SeverityCritical,
	"emergency":     core.SeverityCritical,
	"high":          core.SeverityHigh,
	"error":         core.SeverityHigh,
	"major":         core.SeverityHigh,
	"medium":        core.SeverityMedium,
	"warning":       core.SeverityMedium,
	"warn":          core.SeverityMedium,
	"minor":         core.SeverityMedium,
	"low":           core.SeverityLow,
	"info":          core.SeverityLow,
	"informational": core.SeverityLow,
}

// ExtractSeverity pulls the raw severity out of a payload, checking the
// severity field first and priority as a fallback.
func ExtractSeverity(data map[string]any) core.Severity {
	raw := stringField(data, "severity", "priority")
	if raw == "" {
		return core.SeverityMedium
	}
	if sev, ok := severityAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return sev
	}
	return core.SeverityMedium
}

// EnhanceSeverity computes the enhanced severity: numeric-encode the raw
// severity, add the winning rule's boost, clamp to CRITICAL, then apply
// category floors. SECURITY alerts are never below HIGH; INFRASTRUCTURE
// alerts are never below MEDIUM.
func EnhanceSeverity(raw core.Severity, boost int, category core.Category) core.Severity {
	rank := raw.Rank() + boost
	if rank > core.SeverityCritical.Rank() {
		rank = core.SeverityCritical.Rank()
	}

	switch category {
	case core.CategorySecurity:
		if rank < core.SeverityHigh.Rank() {
			rank = core.SeverityHigh.Rank()
		}
	case core.CategoryInfrastructure:
		if rank < core.SeverityMedium.Rank() {
			rank = core.SeverityMedium.Rank()
		}
	}

	return core.SeverityFromRank(rank)
}
