// Package escalate implements the rule-driven escalation sweep: it scans
// active and acknowledged alerts against configured escalation rules and
// promotes the first match per alert per sweep.
package escalate

import (
	"context"
	"sort"
	"time"

	"argus/core"
	"argus/metrics"
	"argus/notify"
	"argus/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// sweepLockKey serializes concurrent sweeps across processes.
const sweepLockKey = "argus:escalation:sweep-lock"

// sweepLockTTL bounds how long a crashed sweep can hold the lock.
const sweepLockTTL = 2 * time.Minute

// Evaluator runs escalation sweeps. Re-entrancy is guarded twice: a redis
// lease prevents overlapping sweeps, and the versioned save inside the
// lifecycle transition makes a stale concurrent escalation fail rather than
// duplicate notifications.
type Evaluator struct {
	store      service.AlertStore
	lifecycle  *service.LifecycleService
	dispatcher *notify.Dispatcher
	redis      *redis.Client
	logger     *zap.SugaredLogger

	rules []core.EscalationRule
}

// NewEvaluator creates an escalation evaluator. redisClient may be nil, in
// which case sweeps rely solely on the persistence-level version check.
func NewEvaluator(store service.AlertStore, lifecycle *service.LifecycleService, dispatcher *notify.Dispatcher, redisClient *redis.Client, rules []core.EscalationRule, logger *zap.SugaredLogger) *Evaluator {
	if store == nil {
		panic("store is required")
	}
	if lifecycle == nil {
		panic("lifecycle is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	e := &Evaluator{
		store:      store,
		lifecycle:  lifecycle,
		dispatcher: dispatcher,
		redis:      redisClient,
		logger:     logger,
		rules:      rules,
	}
	e.sortRules()
	return e
}

// AddRule appends an escalation rule and re-sorts by priority.
func (e *Evaluator) AddRule(rule core.EscalationRule) {
	e.rules = append(e.rules, rule)
	e.sortRules()
}

func (e *Evaluator) sortRules() {
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority < e.rules[j].Priority
	})
}

// CheckForEscalation runs one sweep and returns the IDs of escalated alerts.
// Rules are evaluated in ascending priority order; the first rule matching
// an alert is applied and evaluation stops for that alert. Per-alert errors
// are logged and do not abort the sweep.
func (e *Evaluator) CheckForEscalation(ctx context.Context) ([]string, error) {
	start := time.Now()
	defer func() {
		metrics.EscalationSweepDuration.Observe(time.Since(start).Seconds())
	}()

	release, acquired := e.acquireSweepLock(ctx)
	if !acquired {
		e.logger.Infow("Escalation sweep already running, skipping")
		return nil, nil
	}
	defer release()

	alerts, err := e.store.QueryActiveOrAcknowledged(ctx)
	if err != nil {
		return nil, err
	}

	var escalated []string
	for _, alert := range alerts {
		rule, ok := e.matchRule(ctx, alert)
		if !ok {
			continue
		}
		if err := e.escalate(ctx, alert, rule); err != nil {
			e.logger.Warnw("Failed to escalate alert, continuing sweep",
				"alert_id", alert.AlertID,
				"rule", rule.Name,
				"error", err)
			continue
		}
		escalated = append(escalated, alert.AlertID)
	}

	if len(escalated) > 0 {
		e.logger.Infow("Escalation sweep completed",
			"scanned", len(alerts),
			"escalated", len(escalated))
	}
	return escalated, nil
}

// matchRule returns the first enabled rule that should escalate the alert.
func (e *Evaluator) matchRule(ctx context.Context, alert *core.Alert) (*core.EscalationRule, bool) {
	if alert.Context.Escalated {
		// Escalation is once per alert lifetime.
		return nil, false
	}
	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.Enabled {
			continue
		}
		matched, err := e.shouldEscalate(ctx, alert, rule)
		if err != nil {
			e.logger.Warnw("Escalation rule evaluation failed",
				"alert_id", alert.AlertID,
				"rule", rule.Name,
				"error", err)
			continue
		}
		if matched {
			return rule, true
		}
	}
	return nil, false
}

// shouldEscalate evaluates one rule against one alert. Thresholds use a >=
// boundary: an alert exactly at the threshold escalates.
func (e *Evaluator) shouldEscalate(ctx context.Context, alert *core.Alert, rule *core.EscalationRule) (bool, error) {
	now := time.Now().UTC()

	switch rule.Trigger {
	case core.TriggerTimeBased:
		if alert.Status != core.AlertStatusActive {
			return false, nil
		}
		if rule.Condition.Severity != "" && rule.Condition.Severity != alert.Severity {
			return false, nil
		}
		age := now.Sub(alert.CreatedAt)
		return age >= time.Duration(rule.Condition.UnacknowledgedMinutes)*time.Minute, nil

	case core.TriggerFailedAcknowledgment:
		if alert.Status != core.AlertStatusAcknowledged || alert.AcknowledgedAt == nil {
			return false, nil
		}
		threshold := rule.Condition.UnacknowledgedMinutes
		if threshold <= 0 {
			threshold = 60
		}
		return now.Sub(*alert.AcknowledgedAt) >= time.Duration(threshold)*time.Minute, nil

	case core.TriggerRepeatedOccurrence:
		threshold := rule.Condition.OccurrenceCount
		if threshold <= 0 {
			threshold = 5
		}
		window := rule.Condition.WindowMinutes
		if window <= 0 {
			window = 30
		}
		count, err := e.occurrenceCount(ctx, alert.Source, time.Duration(window)*time.Minute)
		if err != nil {
			return false, err
		}
		return count >= threshold, nil

	default:
		// STATUS_CHANGE and SEVERITY_BASED are accepted in configuration but
		// have no sweep semantics; they never match here.
		return false, nil
	}
}

// occurrenceCount counts same-source alerts within the window, preferring the
// redis counter fast path and falling back to a store query.
func (e *Evaluator) occurrenceCount(ctx context.Context, source string, window time.Duration) (int, error) {
	if e.redis != nil {
		count, err := e.redis.Get(ctx, occurrenceKey(source)).Int()
		if err == nil {
			return count, nil
		}
		if err != redis.Nil {
			e.logger.Debugw("Redis occurrence counter unavailable, querying store",
				"source", source,
				"error", err)
		}
	}
	return e.store.CountBySourceSince(ctx, source, time.Now().UTC().Add(-window))
}

// RecordOccurrence bumps the per-source occurrence counter consulted by the
// REPEATED_OCCURRENCE fast path. The ingestion service calls it after every
// durable save; a nil redis client makes it a no-op and the sweep falls back
// to store queries. Errors are logged only.
func (e *Evaluator) RecordOccurrence(ctx context.Context, source string) {
	if e.redis == nil {
		return
	}
	key := occurrenceKey(source)
	pipe := e.redis.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, e.occurrenceWindow())
	if _, err := pipe.Exec(ctx); err != nil {
		e.logger.Debugw("Failed to record occurrence",
			"source", source,
			"error", err)
	}
}

// occurrenceWindow is the counter TTL: the widest window any enabled
// repeated-occurrence rule looks at, defaulting to 30 minutes.
func (e *Evaluator) occurrenceWindow() time.Duration {
	widest := 30
	for i := range e.rules {
		rule := &e.rules[i]
		if rule.Enabled && rule.Trigger == core.TriggerRepeatedOccurrence && rule.Condition.WindowMinutes > widest {
			widest = rule.Condition.WindowMinutes
		}
	}
	return time.Duration(widest) * time.Minute
}

// escalate applies a matched rule: transition to ESCALATED, then the rule's
// action. The transition commits before any notification is attempted.
func (e *Evaluator) escalate(ctx context.Context, alert *core.Alert, rule *core.EscalationRule) error {
	reason := "escalation rule " + rule.Name
	if rule.Action.EscalateTo != "" {
		reason += " -> " + rule.Action.EscalateTo
	}

	if err := e.lifecycle.Escalate(ctx, alert, reason); err != nil {
		return err
	}

	if rule.Action.IncreaseSeverity && alert.Severity != core.SeverityCritical {
		alert.Severity = alert.Severity.Bump()
		if err := e.store.Save(ctx, alert); err != nil {
			e.logger.Warnw("Failed to persist severity bump",
				"alert_id", alert.AlertID,
				"error", err)
		}
	}

	metrics.AlertsEscalated.WithLabelValues(rule.Name).Inc()

	if e.dispatcher != nil {
		var recipients []string
		if rule.Action.EscalateTo != "" {
			recipients = []string{rule.Action.EscalateTo}
		}
		e.dispatcher.DispatchToChannels(ctx, alert, rule.Action.NotifyChannels, recipients)
	}
	return nil
}

// acquireSweepLock takes the redis sweep lease. Without redis it is a no-op
// that always grants.
func (e *Evaluator) acquireSweepLock(ctx context.Context) (release func(), acquired bool) {
	if e.redis == nil {
		return func() {}, true
	}
	ok, err := e.redis.SetNX(ctx, sweepLockKey, time.Now().UTC().Format(time.RFC3339), sweepLockTTL).Result()
	if err != nil {
		e.logger.Warnw("Redis sweep lock unavailable, proceeding unlocked",
			"error", err)
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		if err := e.redis.Del(ctx, sweepLockKey).Err(); err != nil {
			e.logger.Debugw("Failed to release sweep lock", "error", err)
		}
	}, true
}

func occurrenceKey(source string) string {
	return "argus:occurrences:" + source
}
