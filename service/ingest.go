package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"argus/classify"
	"argus/core"
	"argus/metrics"
	"argus/notify"
	"argus/storage"

	"go.uber.org/zap"
)

// IngestResult reports what ingestion did with one payload.
type IngestResult struct {
	Alert      *core.Alert `json:"alert,omitempty"`
	Created    bool        `json:"created"`
	Suppressed bool        `json:"suppressed"`
	Reason     string      `json:"reason,omitempty"`
}

// OccurrenceRecorder tracks per-source signal frequency for the
// repeated-occurrence escalation trigger.
type OccurrenceRecorder interface {
	RecordOccurrence(ctx context.Context, source string)
}

// IngestService runs the inbound pipeline: suppression check, categorization,
// upsert by (alert_id, source), then notification routing. Suppressed
// payloads are dropped before any entity is created.
type IngestService struct {
	store       AlertStore
	engine      *classify.Engine
	lifecycle   *LifecycleService
	dispatcher  *notify.Dispatcher
	occurrences OccurrenceRecorder
	logger      *zap.SugaredLogger
}

// NewIngestService creates the ingestion pipeline.
func NewIngestService(store AlertStore, engine *classify.Engine, lifecycle *LifecycleService, dispatcher *notify.Dispatcher, logger *zap.SugaredLogger) *IngestService {
	if store == nil {
		panic("store is required")
	}
	if engine == nil {
		panic("engine is required")
	}
	if lifecycle == nil {
		panic("lifecycle is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &IngestService{
		store:      store,
		engine:     engine,
		lifecycle:  lifecycle,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SetOccurrenceRecorder attaches the counter fed on every accepted signal.
// Wired after construction because the recorder (the escalation evaluator)
// is itself built on top of the lifecycle this service feeds.
func (s *IngestService) SetOccurrenceRecorder(rec OccurrenceRecorder) {
	s.occurrences = rec
}

// Ingest processes one inbound alert payload from the named source. The
// source is caller-supplied, never inferred from the payload. Missing payload
// fields degrade to defaults; categorization never fails.
func (s *IngestService) Ingest(ctx context.Context, source string, payload map[string]any) (*IngestResult, error) {
	start := time.Now()
	defer func() {
		metrics.IngestProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	if source == "" {
		return nil, fmt.Errorf("source is required")
	}

	if suppressed, reason := s.engine.ShouldSuppress(payload, source); suppressed {
		metrics.AlertsSuppressed.WithLabelValues(source).Inc()
		s.logger.Infow("Alert suppressed before ingestion",
			"source", source,
			"reason", reason)
		return &IngestResult{Suppressed: true, Reason: reason}, nil
	}

	result := s.engine.Categorize(payload, source)
	metrics.AlertsCategorized.WithLabelValues(result.Category.String(), result.EnhancedSeverity.String()).Inc()

	externalID := externalID(payload)
	qualifiedID := core.QualifiedAlertID(source, externalID)

	alert, err := s.store.FindByAlertIDAndSource(ctx, qualifiedID, source)
	created := false
	switch {
	case err == nil:
		s.refreshExisting(alert, payload, result)
	case errors.Is(err, storage.ErrAlertNotFound):
		alert = s.buildNew(source, externalID, payload, result)
		created = true
	default:
		return nil, fmt.Errorf("failed to look up alert %s: %w", qualifiedID, err)
	}

	if err := s.store.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to save alert %s: %w", qualifiedID, err)
	}

	if created {
		// New alerts walk RECEIVED -> CATEGORIZED so the audit trail records
		// classification as its own step.
		if err := s.lifecycle.Transition(ctx, alert, core.StageCategorized, "", "classified as "+result.Category.String()); err != nil {
			s.logger.Warnw("Failed to record categorization transition",
				"alert_id", alert.AlertID,
				"error", err)
		}
	}

	metrics.AlertsIngested.WithLabelValues(source).Inc()
	if s.occurrences != nil {
		s.occurrences.RecordOccurrence(ctx, source)
	}

	// State is durable; notification outcome only affects logs.
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, alert)
	}

	return &IngestResult{Alert: alert, Created: created}, nil
}

// buildNew constructs an alert entity from a classified payload.
func (s *IngestService) buildNew(source, externalID string, payload map[string]any, result classify.CategorizationResult) *core.Alert {
	alert := core.NewAlert(source, externalID)
	alert.Title = payloadString(payload, "title", "alertname", "name")
	alert.Message = payloadString(payload, "message", "description", "summary")
	alert.Severity = result.EnhancedSeverity
	alert.Category = result.Category
	alert.AddTags(result.Tags...)

	alert.Labels.Extra = payloadStringMap(payload, "labels")
	alert.Annotations.Extra = payloadStringMap(payload, "annotations")
	alert.Context.Extra = payloadStringMap(payload, "context")

	return alert
}

// refreshExisting applies a re-ingested signal to an existing alert: message,
// severity and trigger time are refreshed in place, and a RESOLVED alert is
// reactivated with its resolution fields cleared.
func (s *IngestService) refreshExisting(alert *core.Alert, payload map[string]any, result classify.CategorizationResult) {
	if title := payloadString(payload, "title", "alertname", "name"); title != "" {
		alert.Title = title
	}
	if message := payloadString(payload, "message", "description", "summary"); message != "" {
		alert.Message = message
	}
	alert.Severity = result.EnhancedSeverity
	alert.Category = result.Category
	alert.AddTags(result.Tags...)
	alert.TriggeredAt = time.Now().UTC()

	if alert.Status == core.AlertStatusResolved {
		s.logger.Infow("Reactivating resolved alert on new signal",
			"alert_id", alert.AlertID)
		alert.Reactivate()
	}
}

// externalID picks the stable identifier from the payload, falling back to
// the alert title fields so sources without explicit IDs still deduplicate.
func externalID(payload map[string]any) string {
	if id := payloadString(payload, "alert_id", "id", "fingerprint"); id != "" {
		return id
	}
	if title := payloadString(payload, "alertname", "title", "name"); title != "" {
		return title
	}
	return "unknown"
}

func payloadString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := payload[key]; ok {
			if str, ok := v.(string); ok && str != "" {
				return str
			}
		}
	}
	return ""
}

func payloadStringMap(payload map[string]any, key string) map[string]string {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		if str, ok := val.(string); ok {
			out[k] = str
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
