package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusForStage(t *testing.T) {
	tests := []struct {
		name       string
		stage      LifecycleStage
		wantStatus AlertStatus
		wantOK     bool
	}{
		{"received maps to active", StageReceived, AlertStatusActive, true},
		{"acknowledged maps to acknowledged", StageAcknowledged, AlertStatusAcknowledged, true},
		{"resolved maps to resolved", StageResolved, AlertStatusResolved, true},
		{"suppressed maps to suppressed", StageSuppressed, AlertStatusSuppressed, true},
		{"categorized is annotation only", StageCategorized, "", false},
		{"investigating is annotation only", StageInvestigating, "", false},
		{"escalated is annotation only", StageEscalated, "", false},
		{"closed is annotation only", StageClosed, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, ok := StatusForStage(tt.stage)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestSeverity_Rank(t *testing.T) {
	assert.Equal(t, 1, SeverityLow.Rank())
	assert.Equal(t, 2, SeverityMedium.Rank())
	assert.Equal(t, 3, SeverityHigh.Rank())
	assert.Equal(t, 4, SeverityCritical.Rank())
	assert.Equal(t, 2, Severity("bogus").Rank(), "unknown severity ranks as medium")
}

func TestSeverityFromRank_Clamps(t *testing.T) {
	assert.Equal(t, SeverityLow, SeverityFromRank(0))
	assert.Equal(t, SeverityLow, SeverityFromRank(-3))
	assert.Equal(t, SeverityHigh, SeverityFromRank(3))
	assert.Equal(t, SeverityCritical, SeverityFromRank(4))
	assert.Equal(t, SeverityCritical, SeverityFromRank(99))
}

func TestSeverity_Bump(t *testing.T) {
	assert.Equal(t, SeverityMedium, SeverityLow.Bump())
	assert.Equal(t, SeverityHigh, SeverityMedium.Bump())
	assert.Equal(t, SeverityCritical, SeverityHigh.Bump())
	assert.Equal(t, SeverityCritical, SeverityCritical.Bump(), "critical is the ceiling")
}

func TestNotificationPriority_Rank(t *testing.T) {
	assert.Greater(t, PriorityImmediate.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityHigh.Rank(), PriorityNormal.Rank())
	assert.Greater(t, PriorityNormal.Rank(), PriorityLow.Rank())
	assert.Greater(t, PriorityLow.Rank(), PrioritySuppressed.Rank())
	assert.Equal(t, 0, NotificationPriority("").Rank())
}

func TestEscalationTrigger_IsValid(t *testing.T) {
	assert.True(t, TriggerTimeBased.IsValid())
	assert.True(t, TriggerRepeatedOccurrence.IsValid())
	assert.False(t, EscalationTrigger("on_full_moon").IsValid())
}
