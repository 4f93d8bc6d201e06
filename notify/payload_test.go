package notify

import (
	"testing"

	"argus/core"

	"github.com/stretchr/testify/assert"
)

func TestBuildPayload(t *testing.T) {
	t.Run("critical gets banner and oncall mention", func(t *testing.T) {
		alert := core.NewAlert("prometheus", "x")
		alert.Title = "Database cluster down"
		alert.Severity = core.SeverityCritical

		p := BuildPayload(alert, nil)

		assert.Equal(t, "CRITICAL ALERT: Database cluster down", p.Banner)
		assert.True(t, p.MentionOnCall)
		assert.True(t, p.IncludeActions, "active alerts carry action context")
	})

	t.Run("security gets banner without mention", func(t *testing.T) {
		alert := core.NewAlert("auditd", "x")
		alert.Title = "Brute force detected"
		alert.Severity = core.SeverityHigh
		alert.Category = core.CategorySecurity

		p := BuildPayload(alert, nil)

		assert.Equal(t, "SECURITY ALERT: Brute force detected", p.Banner)
		assert.False(t, p.MentionOnCall)
	})

	t.Run("critical banner wins over security banner", func(t *testing.T) {
		alert := core.NewAlert("auditd", "x")
		alert.Title = "Active intrusion"
		alert.Severity = core.SeverityCritical
		alert.Category = core.CategorySecurity

		p := BuildPayload(alert, nil)
		assert.Equal(t, "CRITICAL ALERT: Active intrusion", p.Banner)
	})

	t.Run("priority is max of matched rules", func(t *testing.T) {
		alert := core.NewAlert("prometheus", "x")
		alert.Severity = core.SeverityHigh

		p := BuildPayload(alert, []core.NotificationRule{
			{Priority: core.PriorityLow},
			{Priority: core.PriorityImmediate},
			{Priority: core.PriorityHigh},
		})
		assert.Equal(t, core.PriorityImmediate, p.Priority)
	})

	t.Run("no rules defaults to normal priority", func(t *testing.T) {
		alert := core.NewAlert("prometheus", "x")
		p := BuildPayload(alert, nil)
		assert.Equal(t, core.PriorityNormal, p.Priority)
	})

	t.Run("resolved alerts omit actions", func(t *testing.T) {
		alert := core.NewAlert("prometheus", "x")
		alert.Status = core.AlertStatusResolved
		alert.Stage = core.StageResolved

		p := BuildPayload(alert, nil)
		assert.False(t, p.IncludeActions)
		assert.Equal(t, core.StageResolved, p.Stage)
	})
}

func TestPayload_Color(t *testing.T) {
	assert.Equal(t, "#d32f2f", Payload{Severity: core.SeverityCritical}.Color())
	assert.Equal(t, "#2196f3", Payload{Severity: core.SeverityLow}.Color())
	assert.Equal(t, "#757575", Payload{Severity: "odd"}.Color(), "unknown severity gets the neutral color")
}
