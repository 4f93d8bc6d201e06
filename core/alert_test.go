package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAlert(t *testing.T) {
	alert := NewAlert("prometheus", "HighCPUUsage")

	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, "prometheus:HighCPUUsage", alert.AlertID)
	assert.Equal(t, "prometheus", alert.Source)
	assert.Equal(t, AlertStatusActive, alert.Status)
	assert.Equal(t, StageReceived, alert.Stage)
	assert.Equal(t, SeverityMedium, alert.Severity)
	assert.Equal(t, CategoryGeneral, alert.Category)
	assert.False(t, alert.CreatedAt.IsZero())
}

func TestAlert_CurrentStage_FallsBackToStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    AlertStatus
		escalated bool
		want      LifecycleStage
	}{
		{"active derives received", AlertStatusActive, false, StageReceived},
		{"acknowledged derives acknowledged", AlertStatusAcknowledged, false, StageAcknowledged},
		{"resolved derives resolved", AlertStatusResolved, false, StageResolved},
		{"suppressed derives suppressed", AlertStatusSuppressed, false, StageSuppressed},
		{"escalated flag wins over status", AlertStatusActive, true, StageEscalated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := &Alert{Status: tt.status}
			alert.Context.Escalated = tt.escalated
			assert.Equal(t, tt.want, alert.CurrentStage())
		})
	}
}

func TestAlert_CurrentStage_PrefersStageField(t *testing.T) {
	alert := &Alert{Status: AlertStatusActive, Stage: StageInvestigating}
	assert.Equal(t, StageInvestigating, alert.CurrentStage())
}

func TestAlert_Reactivate(t *testing.T) {
	alert := NewAlert("grafana", "DiskFull")
	resolvedAt := time.Now().UTC()
	alert.Status = AlertStatusResolved
	alert.Stage = StageResolved
	alert.AcknowledgedAt = &resolvedAt
	alert.AcknowledgedBy = "user-1"
	alert.ResolvedAt = &resolvedAt
	alert.ResolvedBy = "user-1"
	alert.ResolutionComment = "fixed"

	alert.Reactivate()

	assert.Equal(t, AlertStatusActive, alert.Status)
	assert.Equal(t, StageReceived, alert.Stage)
	assert.Nil(t, alert.ResolvedAt)
	assert.Empty(t, alert.ResolvedBy)
	assert.Empty(t, alert.ResolutionComment)
	assert.Nil(t, alert.AcknowledgedAt)
	assert.Empty(t, alert.AcknowledgedBy)
}

func TestAlert_AddTags(t *testing.T) {
	alert := NewAlert("datadog", "x")

	alert.AddTags("kubernetes", "production", "kubernetes", "  ", "")
	alert.AddTags("production", "database")

	assert.Equal(t, []string{"kubernetes", "production", "database"}, alert.Tags)
	assert.True(t, alert.HasTag("kubernetes"))
	assert.False(t, alert.HasTag("staging"))
}

func TestAlert_Validate(t *testing.T) {
	valid := NewAlert("prometheus", "a1")
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Alert)
	}{
		{"missing alert_id", func(a *Alert) { a.AlertID = "" }},
		{"missing source", func(a *Alert) { a.Source = "" }},
		{"invalid severity", func(a *Alert) { a.Severity = "extreme" }},
		{"invalid category", func(a *Alert) { a.Category = "mystery" }},
		{"invalid status", func(a *Alert) { a.Status = "pending" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := NewAlert("prometheus", "a1")
			tt.mutate(alert)
			assert.Error(t, alert.Validate())
		})
	}
}

func TestLifecycleContext_AutoResolveEnabled(t *testing.T) {
	var ctx LifecycleContext
	assert.True(t, ctx.AutoResolveEnabled(), "nil defaults to eligible")

	f := false
	ctx.AutoResolve = &f
	assert.False(t, ctx.AutoResolveEnabled())

	tr := true
	ctx.AutoResolve = &tr
	assert.True(t, ctx.AutoResolveEnabled())
}
