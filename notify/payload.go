package notify

import (
	"fmt"
	"time"

	"argus/core"
)

// Payload is the channel-agnostic notification content built from an alert
// and its matched rules. Channel senders render it into their wire format.
type Payload struct {
	AlertID        string                    `json:"alert_id"`
	Title          string                    `json:"title"`
	Message        string                    `json:"message"`
	Severity       core.Severity             `json:"severity"`
	Category       core.Category             `json:"category"`
	Source         string                    `json:"source"`
	Status         core.AlertStatus          `json:"status"`
	Stage          core.LifecycleStage       `json:"lifecycle_stage"`
	Priority       core.NotificationPriority `json:"priority"`
	Tags           []string                  `json:"tags,omitempty"`
	Banner         string                    `json:"banner,omitempty"`
	IncludeActions bool                      `json:"include_actions"`
	MentionOnCall  bool                      `json:"mention_oncall"`
	TriggeredAt    time.Time                 `json:"triggered_at"`
}

// BuildPayload is a pure transform from alert plus matched rules to the
// content every channel renders. CRITICAL and SECURITY alerts get a banner;
// CRITICAL additionally mentions on-call.
func BuildPayload(alert *core.Alert, rules []core.NotificationRule) Payload {
	p := Payload{
		AlertID:        alert.AlertID,
		Title:          alert.Title,
		Message:        alert.Message,
		Severity:       alert.Severity,
		Category:       alert.Category,
		Source:         alert.Source,
		Status:         alert.Status,
		Stage:          alert.CurrentStage(),
		Priority:       core.PriorityNormal,
		Tags:           alert.Tags,
		IncludeActions: alert.Status == core.AlertStatusActive,
		TriggeredAt:    alert.TriggeredAt,
	}

	for _, rule := range rules {
		if rule.Priority.Rank() > p.Priority.Rank() {
			p.Priority = rule.Priority
		}
	}

	switch {
	case alert.Severity == core.SeverityCritical:
		p.Banner = fmt.Sprintf("CRITICAL ALERT: %s", alert.Title)
		p.MentionOnCall = true
	case alert.Category == core.CategorySecurity:
		p.Banner = fmt.Sprintf("SECURITY ALERT: %s", alert.Title)
	}

	return p
}

// severityColor maps severities to the accent colors used by rich channels.
var severityColor = map[core.Severity]string{
	core.SeverityCritical: "#d32f2f",
	core.SeverityHigh:     "#f44336",
	core.SeverityMedium:   "#ff9800",
	core.SeverityLow:      "#2196f3",
}

// Color returns the display color for the payload's severity.
func (p Payload) Color() string {
	if c, ok := severityColor[p.Severity]; ok {
		return c
	}
	return "#757575"
}
