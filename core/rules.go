package core

import (
	"fmt"
	"time"
)

// CategoryRule maps raw alert text to a semantic category. Rules are
// evaluated in declaration order and the engine stops at the first rule whose
// pattern matches and whose conditions hold.
type CategoryRule struct {
	Name          string   `json:"name" yaml:"name" validate:"required"`
	Pattern       string   `json:"pattern" yaml:"pattern" validate:"required"`
	Category      Category `json:"category" yaml:"category" validate:"required"`
	PriorityBoost int      `json:"priority_boost" yaml:"priority_boost" validate:"gte=0,lte=3"`
	Tags          []string `json:"tags,omitempty" yaml:"tags"`
	// Sources restricts the rule to these origin systems; empty = any.
	Sources []string `json:"sources,omitempty" yaml:"sources"`
	// Severities restricts the rule to these raw severities; empty = any.
	Severities []Severity `json:"severities,omitempty" yaml:"severities"`
}

// AppliesTo checks the rule's non-pattern conditions.
func (r *CategoryRule) AppliesTo(source string, severity Severity) bool {
	if len(r.Sources) > 0 && !containsString(r.Sources, source) {
		return false
	}
	if len(r.Severities) > 0 {
		found := false
		for _, s := range r.Severities {
			if s == severity {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SuppressionRule drops matching alerts before any entity is created.
type SuppressionRule struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	Pattern string `json:"pattern" yaml:"pattern" validate:"required"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	// StartHour/EndHour define an optional active window in UTC hours.
	// Both zero means always active. A window may wrap midnight.
	StartHour *int `json:"start_hour,omitempty" yaml:"start_hour" validate:"omitempty,gte=0,lte=23"`
	EndHour   *int `json:"end_hour,omitempty" yaml:"end_hour" validate:"omitempty,gte=0,lte=23"`
	// Sources restricts the rule to these origin systems; empty = any.
	Sources []string `json:"sources,omitempty" yaml:"sources"`
	// Environments restricts by the payload's environment field; empty = any.
	Environments []string `json:"environments,omitempty" yaml:"environments"`
	Reason       string   `json:"reason,omitempty" yaml:"reason"`
}

// ActiveAt reports whether the rule's time window covers the given instant.
func (r *SuppressionRule) ActiveAt(t time.Time) bool {
	if r.StartHour == nil || r.EndHour == nil {
		return true
	}
	hour := t.UTC().Hour()
	start, end := *r.StartHour, *r.EndHour
	if start <= end {
		return hour >= start && hour <= end
	}
	// Window wraps midnight.
	return hour >= start || hour <= end
}

// AppliesTo checks the rule's source and environment conditions.
func (r *SuppressionRule) AppliesTo(source, environment string) bool {
	if len(r.Sources) > 0 && !containsString(r.Sources, source) {
		return false
	}
	if len(r.Environments) > 0 && !containsString(r.Environments, environment) {
		return false
	}
	return true
}

// NotificationRule scopes delivery channels and urgency by severity and
// category. A rule with empty Categories passes for any category.
type NotificationRule struct {
	Name       string               `json:"name" yaml:"name" validate:"required"`
	Severities []Severity           `json:"severity_levels" yaml:"severity_levels" validate:"min=1"`
	Categories []Category           `json:"categories,omitempty" yaml:"categories"`
	Channels   []string             `json:"channels" yaml:"channels" validate:"min=1"`
	Recipients []string             `json:"recipients,omitempty" yaml:"recipients"`
	Priority   NotificationPriority `json:"priority" yaml:"priority" validate:"required"`
	// Sources is an allow-list condition; empty = any.
	Sources []string `json:"sources,omitempty" yaml:"sources"`
	// StartHour/EndHour define an optional time-of-day window (UTC).
	StartHour *int `json:"start_hour,omitempty" yaml:"start_hour" validate:"omitempty,gte=0,lte=23"`
	EndHour   *int `json:"end_hour,omitempty" yaml:"end_hour" validate:"omitempty,gte=0,lte=23"`
	// EscalationTime is an advisory re-notify interval in minutes.
	EscalationTime *int `json:"escalation_time,omitempty" yaml:"escalation_time"`
}

// Matches reports whether the rule applies to the alert at the given time.
func (r *NotificationRule) Matches(alert *Alert, now time.Time) bool {
	matched := false
	for _, s := range r.Severities {
		if s == alert.Severity {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if len(r.Categories) > 0 {
		matched = false
		for _, c := range r.Categories {
			if c == alert.Category {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(r.Sources) > 0 && !containsString(r.Sources, alert.Source) {
		return false
	}
	if r.StartHour != nil && r.EndHour != nil {
		hour := now.UTC().Hour()
		start, end := *r.StartHour, *r.EndHour
		if start <= end {
			if hour < start || hour > end {
				return false
			}
		} else if hour < start && hour > end {
			return false
		}
	}
	return true
}

// EscalationCondition holds trigger-specific thresholds.
type EscalationCondition struct {
	// Severity must exactly match the alert's severity when set (TIME_BASED).
	Severity Severity `json:"severity,omitempty" yaml:"severity"`
	// UnacknowledgedMinutes is the age threshold for TIME_BASED and the
	// since-acknowledgment threshold for FAILED_ACKNOWLEDGMENT.
	UnacknowledgedMinutes int `json:"unacknowledged_minutes,omitempty" yaml:"unacknowledged_minutes"`
	// OccurrenceCount and WindowMinutes parameterize REPEATED_OCCURRENCE.
	OccurrenceCount int `json:"occurrence_count,omitempty" yaml:"occurrence_count"`
	WindowMinutes   int `json:"window_minutes,omitempty" yaml:"window_minutes"`
}

// EscalationAction describes what applying a rule does.
type EscalationAction struct {
	EscalateTo       string   `json:"escalate_to" yaml:"escalate_to"`
	NotifyChannels   []string `json:"notify_channels,omitempty" yaml:"notify_channels"`
	IncreaseSeverity bool     `json:"increase_severity,omitempty" yaml:"increase_severity"`
}

// EscalationRule is process-wide configuration driving the escalation sweep.
// Lower Priority values are evaluated first; the first matching rule per
// alert per sweep wins.
type EscalationRule struct {
	Name      string              `json:"name" yaml:"name" validate:"required"`
	Trigger   EscalationTrigger   `json:"trigger" yaml:"trigger" validate:"required"`
	Condition EscalationCondition `json:"condition" yaml:"condition"`
	Action    EscalationAction    `json:"action" yaml:"action"`
	Priority  int                 `json:"priority" yaml:"priority" validate:"gte=0"`
	Enabled   bool                `json:"enabled" yaml:"enabled"`
}

// Validate checks trigger-specific condition consistency.
func (r *EscalationRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !r.Trigger.IsValid() {
		return fmt.Errorf("invalid trigger: %s", r.Trigger)
	}
	switch r.Trigger {
	case TriggerTimeBased:
		if r.Condition.UnacknowledgedMinutes <= 0 {
			return fmt.Errorf("rule %s: time_based requires unacknowledged_minutes > 0", r.Name)
		}
	case TriggerRepeatedOccurrence:
		if r.Condition.OccurrenceCount < 0 || r.Condition.WindowMinutes < 0 {
			return fmt.Errorf("rule %s: repeated_occurrence thresholds must be non-negative", r.Name)
		}
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
