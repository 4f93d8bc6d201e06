// Package service provides the business-logic layer between the HTTP surface
// and storage: the lifecycle state machine and the ingestion pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"argus/core"
	"argus/metrics"
	"argus/notify"
	"argus/storage"

	"go.uber.org/zap"
)

// AlertStore defines the persistence operations the lifecycle engine needs.
// Defined here, in the consumer package; implemented by storage.SQLite and
// storage.MockAlertStore. The store provides single-alert transactional
// saves with an optimistic version check, which is what serializes
// concurrent transitions on the same alert.
type AlertStore interface {
	FindByAlertIDAndSource(ctx context.Context, alertID, source string) (*core.Alert, error)
	GetByID(ctx context.Context, id string) (*core.Alert, error)
	Save(ctx context.Context, alert *core.Alert) error
	QueryActiveOrAcknowledged(ctx context.Context) ([]*core.Alert, error)
	QueryByWindow(ctx context.Context, start, end time.Time) ([]*core.Alert, error)
	QueryStaleAcknowledged(ctx context.Context, cutoff time.Time) ([]*core.Alert, error)
	CountBySourceSince(ctx context.Context, source string, since time.Time) (int, error)
	List(ctx context.Context, filters *core.AlertFilters) ([]*core.Alert, int64, error)
}

// LifecycleService owns alert stage transitions. Every transition appends to
// the alert's audit trail and persists atomically; on a failed save the
// alert's in-memory state is restored so callers never observe a partial
// transition.
type LifecycleService struct {
	store      AlertStore
	dispatcher *notify.Dispatcher
	logger     *zap.SugaredLogger
}

// NewLifecycleService creates the lifecycle engine. The dispatcher may be
// nil, in which case transitions do not notify.
func NewLifecycleService(store AlertStore, dispatcher *notify.Dispatcher, logger *zap.SugaredLogger) *LifecycleService {
	if store == nil {
		panic("store is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &LifecycleService{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Transition moves the alert to the target stage, updating status where the
// stage implies one, recording the audit entry and persisting. userID empty
// means the transition was automated. The alert is mutated in place only on
// success.
func (s *LifecycleService) Transition(ctx context.Context, alert *core.Alert, target core.LifecycleStage, userID, reason string) error {
	if !target.IsValid() {
		return fmt.Errorf("invalid lifecycle stage: %s", target)
	}

	// Resolving an already-resolved alert is an idempotent no-op; a manual
	// resolve racing the staleness sweep must not error.
	if target == core.StageResolved && alert.Status == core.AlertStatusResolved {
		s.logger.Debugw("Alert already resolved, transition is a no-op",
			"alert_id", alert.AlertID)
		return nil
	}

	snapshot := *alert
	snapshot.Tags = append([]string(nil), alert.Tags...)
	snapshot.Annotations.Transitions = append([]core.LifecycleTransition(nil), alert.Annotations.Transitions...)

	from := alert.CurrentStage()
	now := time.Now().UTC()

	if status, ok := core.StatusForStage(target); ok {
		alert.Status = status
	}
	alert.Stage = target

	alert.Context.CurrentStage = target
	alert.Context.LastTransition = &now
	if target == core.StageEscalated {
		// Escalation is a permanent audit fact; the flag is never cleared.
		alert.Context.Escalated = true
		if alert.Context.EscalatedAt == nil {
			alert.Context.EscalatedAt = &now
		}
	}

	alert.Annotations.Transitions = append(alert.Annotations.Transitions, core.LifecycleTransition{
		FromStage: from,
		ToStage:   target,
		Timestamp: now,
		UserID:    userID,
		Reason:    reason,
		Automated: userID == "",
	})

	alert.Labels.LifecycleStage = target
	alert.Labels.LastUpdated = &now
	if userID != "" {
		alert.Labels.LastUpdatedBy = userID
	}

	if err := s.store.Save(ctx, alert); err != nil {
		*alert = snapshot
		metrics.TransitionFailures.Inc()
		s.logger.Errorw("Lifecycle transition rolled back",
			"alert_id", alert.AlertID,
			"from_stage", from,
			"to_stage", target,
			"error", err)
		return fmt.Errorf("transition to %s failed: %w", target, err)
	}

	metrics.LifecycleTransitions.WithLabelValues(target.String(), boolLabel(userID == "")).Inc()
	s.logger.Infow("Alert transitioned",
		"alert_id", alert.AlertID,
		"from_stage", from,
		"to_stage", target,
		"user_id", userID)
	return nil
}

// Acknowledge marks the alert acknowledged by a user. The optional comment is
// stored as the resolution comment.
func (s *LifecycleService) Acknowledge(ctx context.Context, alertID, userID, comment string) error {
	alert, err := s.lookup(ctx, alertID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	alert.AcknowledgedBy = userID
	if alert.AcknowledgedAt == nil {
		alert.AcknowledgedAt = &now
	}
	if comment != "" {
		alert.ResolutionComment = comment
	}

	return s.transitionAndNotify(ctx, alert, core.StageAcknowledged, userID, comment)
}

// Resolve marks the alert resolved by a user.
func (s *LifecycleService) Resolve(ctx context.Context, alertID, userID, comment string) error {
	alert, err := s.lookup(ctx, alertID)
	if err != nil {
		return err
	}
	return s.resolveAlert(ctx, alert, userID, comment)
}

func (s *LifecycleService) resolveAlert(ctx context.Context, alert *core.Alert, userID, comment string) error {
	if alert.Status == core.AlertStatusResolved {
		return nil
	}

	now := time.Now().UTC()
	alert.ResolvedBy = userID
	if alert.ResolvedAt == nil {
		alert.ResolvedAt = &now
	}
	if comment != "" {
		alert.ResolutionComment = comment
	}

	return s.transitionAndNotify(ctx, alert, core.StageResolved, userID, comment)
}

// Suppress mutes the alert for the given duration.
func (s *LifecycleService) Suppress(ctx context.Context, alertID, userID string, durationMinutes int, reason string) error {
	alert, err := s.lookup(ctx, alertID)
	if err != nil {
		return err
	}

	until := time.Now().UTC().Add(time.Duration(durationMinutes) * time.Minute)
	alert.Context.SuppressedBy = userID
	alert.Context.SuppressedUntil = &until
	alert.Context.SuppressionReason = reason

	return s.transitionAndNotify(ctx, alert, core.StageSuppressed, userID, reason)
}

// Escalate transitions the alert to the ESCALATED stage. The coarse status
// is left untouched; escalation only annotates the alert.
func (s *LifecycleService) Escalate(ctx context.Context, alert *core.Alert, reason string) error {
	return s.Transition(ctx, alert, core.StageEscalated, "", reason)
}

// AutoResolveStale resolves ACKNOWLEDGED alerts whose acknowledgment is older
// than thresholdHours and that have not opted out via auto_resolve=false.
// Each resolution is independent: a failure is logged and the sweep moves on.
// Returns the IDs of the alerts resolved.
func (s *LifecycleService) AutoResolveStale(ctx context.Context, thresholdHours int) ([]string, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(thresholdHours) * time.Hour)
	stale, err := s.store.QueryStaleAcknowledged(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale alerts: %w", err)
	}

	var resolved []string
	for _, alert := range stale {
		if !alert.Context.AutoResolveEnabled() {
			continue
		}
		if err := s.resolveAlert(ctx, alert, "", "Auto-resolved due to staleness"); err != nil {
			s.logger.Warnw("Skipping alert in auto-resolve sweep",
				"alert_id", alert.AlertID,
				"error", err)
			continue
		}
		resolved = append(resolved, alert.AlertID)
	}

	if len(resolved) > 0 {
		s.logger.Infow("Auto-resolve sweep completed",
			"threshold_hours", thresholdHours,
			"resolved", len(resolved))
	}
	return resolved, nil
}

// Get returns an alert by its source-qualified or surrogate ID.
func (s *LifecycleService) Get(ctx context.Context, alertID string) (*core.Alert, error) {
	return s.lookup(ctx, alertID)
}

// List returns alerts matching the filters.
func (s *LifecycleService) List(ctx context.Context, filters *core.AlertFilters) ([]*core.Alert, int64, error) {
	return s.store.List(ctx, filters)
}

// lookup resolves an identifier that may be either the surrogate UUID or the
// source-qualified alert ID.
func (s *LifecycleService) lookup(ctx context.Context, id string) (*core.Alert, error) {
	alert, err := s.store.GetByID(ctx, id)
	if err == nil {
		return alert, nil
	}
	if !errors.Is(err, storage.ErrAlertNotFound) {
		return nil, err
	}

	// Fall back to the source-qualified form "<source>:<external_id>".
	if source, ok := splitQualifiedID(id); ok {
		alert, err := s.store.FindByAlertIDAndSource(ctx, id, source)
		if err == nil {
			return alert, nil
		}
		if !errors.Is(err, storage.ErrAlertNotFound) {
			return nil, err
		}
	}
	return nil, storage.ErrAlertNotFound
}

// transitionAndNotify runs the transition and, on success, dispatches
// notifications after the state change is durable. Delivery failures never
// affect the returned result.
func (s *LifecycleService) transitionAndNotify(ctx context.Context, alert *core.Alert, target core.LifecycleStage, userID, reason string) error {
	if err := s.Transition(ctx, alert, target, userID, reason); err != nil {
		return err
	}
	if s.dispatcher != nil && target != core.StageSuppressed {
		s.dispatcher.Dispatch(ctx, alert)
	}
	return nil
}

func splitQualifiedID(id string) (source string, ok bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[:i], i > 0 && i < len(id)-1
		}
	}
	return "", false
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
