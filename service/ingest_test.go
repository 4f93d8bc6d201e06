package service

import (
	"context"
	"testing"

	"argus/classify"
	"argus/core"
	"argus/notify"
	"argus/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIngest(t *testing.T) (*IngestService, *storage.MockAlertStore, *notify.MockSender) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()
	store := storage.NewMockAlertStore()
	sender := notify.NewMockSender()
	dispatcher := notify.NewDispatcher(notify.NewRouter(notify.DefaultNotificationRules(), sugar), sender, sugar)
	engine := classify.NewEngine(classify.DefaultCategoryRules(), classify.DefaultSuppressionRules(), sugar)
	lifecycle := NewLifecycleService(store, nil, sugar)
	return NewIngestService(store, engine, lifecycle, dispatcher, sugar), store, sender
}

func TestIngestService_Ingest_CreatesClassifiedAlert(t *testing.T) {
	svc, store, sender := newTestIngest(t)

	result, err := svc.Ingest(context.Background(), "prometheus", map[string]any{
		"alertname": "HighCPUUsage",
		"summary":   "CPU usage above 90% for 10 minutes",
		"severity":  "warning",
		"labels":    map[string]any{"instance": "web-1"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Alert)
	assert.True(t, result.Created)
	assert.False(t, result.Suppressed)

	alert := result.Alert
	assert.Equal(t, "prometheus:HighCPUUsage", alert.AlertID)
	assert.Equal(t, "HighCPUUsage", alert.Title)
	assert.Equal(t, core.CategoryPerformance, alert.Category)
	assert.Equal(t, core.SeverityMedium, alert.Severity)
	assert.Equal(t, core.AlertStatusActive, alert.Status)
	assert.Equal(t, map[string]string{"instance": "web-1"}, alert.Labels.Extra)

	// New alerts record classification as an audit step.
	assert.Equal(t, core.StageCategorized, alert.Stage)
	require.Len(t, alert.Annotations.Transitions, 1)
	assert.Equal(t, core.StageReceived, alert.Annotations.Transitions[0].FromStage)
	assert.Equal(t, core.StageCategorized, alert.Annotations.Transitions[0].ToStage)
	assert.True(t, alert.Annotations.Transitions[0].Automated)

	assert.Equal(t, 1, store.Len())
	assert.Positive(t, sender.SendCount())
}

func TestIngestService_Ingest_SuppressedBeforeEntityCreation(t *testing.T) {
	svc, store, sender := newTestIngest(t)

	result, err := svc.Ingest(context.Background(), "ci", map[string]any{
		"title":       "test alert please ignore",
		"environment": "test",
	})
	require.NoError(t, err)
	assert.True(t, result.Suppressed)
	assert.NotEmpty(t, result.Reason)
	assert.Nil(t, result.Alert)

	assert.Zero(t, store.Len(), "suppressed payloads never create entities")
	assert.Zero(t, sender.SendCount())
}

func TestIngestService_Ingest_DeduplicatesBySourceAndID(t *testing.T) {
	svc, store, _ := newTestIngest(t)
	ctx := context.Background()

	payload := map[string]any{
		"alertname": "DiskFull",
		"summary":   "Disk 95% full",
		"severity":  "error",
	}

	first, err := svc.Ingest(ctx, "prometheus", payload)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := svc.Ingest(ctx, "prometheus", payload)
	require.NoError(t, err)
	assert.False(t, second.Created, "same (alert_id, source) pair updates in place")
	assert.Equal(t, first.Alert.ID, second.Alert.ID)
	assert.Equal(t, 1, store.Len())

	// Same external ID from a different source is a distinct alert.
	third, err := svc.Ingest(ctx, "grafana", payload)
	require.NoError(t, err)
	assert.True(t, third.Created)
	assert.Equal(t, 2, store.Len())
}

func TestIngestService_Ingest_RefreshUpdatesSeverityAndMessage(t *testing.T) {
	svc, _, _ := newTestIngest(t)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, "prometheus", map[string]any{
		"alertname": "DiskFull",
		"summary":   "Disk 85% full",
		"severity":  "warning",
	})
	require.NoError(t, err)
	assert.Equal(t, core.SeverityMedium, first.Alert.Severity)

	second, err := svc.Ingest(ctx, "prometheus", map[string]any{
		"alertname": "DiskFull",
		"summary":   "Disk 99% full",
		"severity":  "critical",
	})
	require.NoError(t, err)
	assert.Equal(t, core.SeverityCritical, second.Alert.Severity)
	assert.Equal(t, "Disk 99% full", second.Alert.Message)
}

func TestIngestService_Ingest_ReactivatesResolvedAlert(t *testing.T) {
	svc, store, _ := newTestIngest(t)
	ctx := context.Background()

	payload := map[string]any{"alertname": "DiskFull", "severity": "error"}

	first, err := svc.Ingest(ctx, "prometheus", payload)
	require.NoError(t, err)

	// Resolve out of band.
	alert, err := store.GetByID(ctx, first.Alert.ID)
	require.NoError(t, err)
	now := alert.CreatedAt
	alert.Status = core.AlertStatusResolved
	alert.Stage = core.StageResolved
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = "user-1"
	alert.ResolvedAt = &now
	alert.ResolvedBy = "user-1"
	alert.ResolutionComment = "fixed"
	require.NoError(t, store.Save(ctx, alert))

	second, err := svc.Ingest(ctx, "prometheus", payload)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, core.AlertStatusActive, second.Alert.Status)
	assert.Nil(t, second.Alert.ResolvedAt)
	assert.Empty(t, second.Alert.ResolvedBy)
	assert.Empty(t, second.Alert.ResolutionComment)
	assert.Nil(t, second.Alert.AcknowledgedAt, "reactivation discards the previous incident's acknowledgment")
	assert.Empty(t, second.Alert.AcknowledgedBy)
}

type recordedOccurrences struct {
	sources []string
}

func (r *recordedOccurrences) RecordOccurrence(_ context.Context, source string) {
	r.sources = append(r.sources, source)
}

func TestIngestService_Ingest_FeedsOccurrenceRecorder(t *testing.T) {
	svc, _, _ := newTestIngest(t)
	rec := &recordedOccurrences{}
	svc.SetOccurrenceRecorder(rec)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "prometheus", map[string]any{"alertname": "DiskFull"})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, "prometheus", map[string]any{"alertname": "DiskFull"})
	require.NoError(t, err)

	// Suppressed payloads never count as occurrences.
	_, err = svc.Ingest(ctx, "ci", map[string]any{"title": "test alert", "environment": "test"})
	require.NoError(t, err)

	assert.Equal(t, []string{"prometheus", "prometheus"}, rec.sources)
}

func TestIngestService_Ingest_ExternalIDFallbacks(t *testing.T) {
	svc, _, _ := newTestIngest(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload map[string]any
		wantID  string
	}{
		{"explicit alert_id", map[string]any{"alert_id": "abc-1", "title": "x"}, "s:abc-1"},
		{"fingerprint", map[string]any{"fingerprint": "f00", "title": "x"}, "s:f00"},
		{"alertname fallback", map[string]any{"alertname": "NodeDown"}, "s:NodeDown"},
		{"nothing usable", map[string]any{"foo": "bar"}, "s:unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Ingest(ctx, "s", tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, result.Alert.AlertID)
		})
	}
}

func TestIngestService_Ingest_MissingSource(t *testing.T) {
	svc, _, _ := newTestIngest(t)

	_, err := svc.Ingest(context.Background(), "", map[string]any{"title": "x"})
	assert.Error(t, err)
}

func TestIngestService_Ingest_EmptyPayloadDegradesToDefaults(t *testing.T) {
	svc, _, _ := newTestIngest(t)

	result, err := svc.Ingest(context.Background(), "custom", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryGeneral, result.Alert.Category)
	assert.Equal(t, core.SeverityMedium, result.Alert.Severity)
	assert.Equal(t, "custom:unknown", result.Alert.AlertID)
}
