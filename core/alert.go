package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Alert is the central tracked incident record. The (AlertID, Source) pair is
// unique: re-ingesting the same pair updates the existing alert rather than
// creating a duplicate.
type Alert struct {
	ID      string `json:"id"`
	AlertID string `json:"alert_id"` // source-qualified, e.g. "prometheus:HighCPUUsage"
	Source  string `json:"source"`

	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Tags     []string `json:"tags,omitempty"`

	Status AlertStatus    `json:"status"`
	Stage  LifecycleStage `json:"lifecycle_stage"`

	CreatedAt      time.Time  `json:"created_at"`
	TriggeredAt    time.Time  `json:"triggered_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	AcknowledgedBy    string `json:"acknowledged_by_user_id,omitempty"`
	ResolvedBy        string `json:"resolved_by_user_id,omitempty"`
	ResolutionComment string `json:"resolution_comment,omitempty"`

	Context     LifecycleContext `json:"context_data"`
	Labels      DisplayLabels    `json:"labels"`
	Annotations Annotations      `json:"annotations"`

	// UpdatedSeq is bumped by the storage layer on every successful save and
	// used as an optimistic version check; a stale save fails instead of
	// clobbering a concurrent writer.
	UpdatedSeq int64 `json:"-"`
}

// LifecycleContext holds lifecycle bookkeeping previously kept in an open
// context_data map. Field names preserve the original JSON keys.
type LifecycleContext struct {
	CurrentStage      LifecycleStage `json:"current_lifecycle_stage,omitempty"`
	LastTransition    *time.Time     `json:"last_transition,omitempty"`
	Escalated         bool           `json:"escalated,omitempty"`
	EscalatedAt       *time.Time     `json:"escalated_at,omitempty"`
	SuppressedBy      string         `json:"suppressed_by,omitempty"`
	SuppressedUntil   *time.Time     `json:"suppressed_until,omitempty"`
	SuppressionReason string         `json:"suppression_reason,omitempty"`
	// AutoResolve gates the staleness sweep; nil means default (eligible).
	AutoResolve *bool `json:"auto_resolve,omitempty"`
	// Extra preserves arbitrary payload fields supplied at ingestion.
	Extra map[string]string `json:"extra,omitempty"`
}

// AutoResolveEnabled reports whether the staleness sweep may resolve this
// alert. Only an explicit false opts out.
func (c *LifecycleContext) AutoResolveEnabled() bool {
	return c.AutoResolve == nil || *c.AutoResolve
}

// DisplayLabels holds derived display metadata
type DisplayLabels struct {
	LifecycleStage LifecycleStage `json:"lifecycle_stage,omitempty"`
	LastUpdated    *time.Time     `json:"last_updated,omitempty"`
	LastUpdatedBy  string         `json:"last_updated_by,omitempty"`
	// Extra preserves source-supplied labels (alertmanager style payloads).
	Extra map[string]string `json:"extra,omitempty"`
}

// Annotations carries the append-only transition audit trail plus any
// source-supplied annotation strings.
type Annotations struct {
	Transitions []LifecycleTransition `json:"lifecycle_transitions,omitempty"`
	Extra       map[string]string     `json:"extra,omitempty"`
}

// LifecycleTransition is one entry in the append-only audit trail. A
// transition with no UserID was automated.
type LifecycleTransition struct {
	FromStage LifecycleStage `json:"from_stage"`
	ToStage   LifecycleStage `json:"to_stage"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Automated bool           `json:"automated"`
}

// NewAlert constructs an alert in its initial lifecycle state. externalID is
// the source system's identifier; the stored AlertID is source-qualified.
func NewAlert(source, externalID string) *Alert {
	now := time.Now().UTC()
	return &Alert{
		ID:          uuid.NewString(),
		AlertID:     QualifiedAlertID(source, externalID),
		Source:      source,
		Severity:    SeverityMedium,
		Category:    CategoryGeneral,
		Status:      AlertStatusActive,
		Stage:       StageReceived,
		CreatedAt:   now,
		TriggeredAt: now,
	}
}

// QualifiedAlertID builds the source-qualified alert identifier.
func QualifiedAlertID(source, externalID string) string {
	return fmt.Sprintf("%s:%s", source, externalID)
}

// CurrentStage returns the alert's lifecycle stage, falling back to a
// derivation from status for rows persisted before the stage field existed.
func (a *Alert) CurrentStage() LifecycleStage {
	if a.Stage != "" {
		return a.Stage
	}
	if a.Context.Escalated {
		return StageEscalated
	}
	switch a.Status {
	case AlertStatusAcknowledged:
		return StageAcknowledged
	case AlertStatusResolved:
		return StageResolved
	case AlertStatusSuppressed:
		return StageSuppressed
	default:
		return StageReceived
	}
}

// Reactivate returns a resolved alert to ACTIVE in response to a new inbound
// signal. Resolution and acknowledgment fields are cleared together: an
// acknowledged_at on an ACTIVE alert would claim an acknowledgment that
// belongs to the previous incident.
func (a *Alert) Reactivate() {
	a.Status = AlertStatusActive
	a.Stage = StageReceived
	a.ResolvedAt = nil
	a.ResolvedBy = ""
	a.ResolutionComment = ""
	a.AcknowledgedAt = nil
	a.AcknowledgedBy = ""
}

// AddTags merges tags into the alert's tag set, preserving insertion order.
func (a *Alert) AddTags(tags ...string) {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !a.HasTag(tag) {
			a.Tags = append(a.Tags, tag)
		}
	}
}

// HasTag reports whether the alert carries the given tag.
func (a *Alert) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate performs basic structural validation before persistence.
func (a *Alert) Validate() error {
	if a.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if a.Source == "" {
		return fmt.Errorf("source is required")
	}
	if !a.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", a.Severity)
	}
	if !a.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", a.Category)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	return nil
}
