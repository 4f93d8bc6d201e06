package escalate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"argus/classify"
	"argus/core"
	"argus/notify"
	"argus/service"
	"argus/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type evalFixture struct {
	evaluator *Evaluator
	store     *storage.MockAlertStore
	sender    *notify.MockSender
}

func newFixture(t *testing.T, rules []core.EscalationRule, redisClient *redis.Client) *evalFixture {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()
	store := storage.NewMockAlertStore()
	sender := notify.NewMockSender()
	dispatcher := notify.NewDispatcher(notify.NewRouter(nil, sugar), sender, sugar)
	lifecycle := service.NewLifecycleService(store, nil, sugar)
	return &evalFixture{
		evaluator: NewEvaluator(store, lifecycle, dispatcher, redisClient, rules, sugar),
		store:     store,
		sender:    sender,
	}
}

func activeAlert(t *testing.T, store *storage.MockAlertStore, severity core.Severity, age time.Duration) *core.Alert {
	t.Helper()
	alert := core.NewAlert("prometheus", "a-"+severity.String()+"-"+age.String())
	alert.Severity = severity
	alert.CreatedAt = time.Now().UTC().Add(-age)
	require.NoError(t, store.Save(context.Background(), alert))
	return alert
}

func TestEvaluator_TimeBased_ThresholdBoundary(t *testing.T) {
	fx := newFixture(t, DefaultRules(), nil)
	ctx := context.Background()

	// Age only grows between setup and the sweep, so an alert created
	// exactly at the threshold must escalate: the comparison is >=, not >.
	atThreshold := activeAlert(t, fx.store, core.SeverityCritical, 5*time.Minute)
	justUnder := activeAlert(t, fx.store, core.SeverityCritical, 4*time.Minute+59*time.Second)

	escalated, err := fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{atThreshold.AlertID}, escalated)

	got, err := fx.store.GetByID(ctx, atThreshold.ID)
	require.NoError(t, err)
	assert.True(t, got.Context.Escalated)
	assert.Equal(t, core.StageEscalated, got.Stage)
	assert.Equal(t, core.AlertStatusActive, got.Status, "escalation does not change status")

	got, err = fx.store.GetByID(ctx, justUnder.ID)
	require.NoError(t, err)
	assert.False(t, got.Context.Escalated)
}

func TestEvaluator_TimeBased_SeverityMustMatchExactly(t *testing.T) {
	fx := newFixture(t, []core.EscalationRule{
		{
			Name:      "crit-only",
			Trigger:   core.TriggerTimeBased,
			Condition: core.EscalationCondition{Severity: core.SeverityCritical, UnacknowledgedMinutes: 5},
			Priority:  1,
			Enabled:   true,
		},
	}, nil)
	ctx := context.Background()

	activeAlert(t, fx.store, core.SeverityHigh, time.Hour)

	escalated, err := fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)
	assert.Empty(t, escalated, "HIGH does not satisfy a CRITICAL condition")
}

func TestEvaluator_EscalatedAlertsAreSkipped(t *testing.T) {
	fx := newFixture(t, DefaultRules(), nil)
	ctx := context.Background()

	alert := activeAlert(t, fx.store, core.SeverityCritical, time.Hour)

	first, err := fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{alert.AlertID}, first)

	second, err := fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)
	assert.Empty(t, second, "escalation happens once per alert lifetime")
}

func TestEvaluator_FirstRuleByPriorityWins(t *testing.T) {
	rules := []core.EscalationRule{
		{
			Name:      "later",
			Trigger:   core.TriggerTimeBased,
			Condition: core.EscalationCondition{UnacknowledgedMinutes: 5},
			Action:    core.EscalationAction{NotifyChannels: []string{"email"}},
			Priority:  10,
			Enabled:   true,
		},
		{
			Name:      "earlier",
			Trigger:   core.TriggerTimeBased,
			Condition: core.EscalationCondition{UnacknowledgedMinutes: 5},
			Action:    core.EscalationAction{NotifyChannels: []string{"slack"}, EscalateTo: "lead"},
			Priority:  1,
			Enabled:   true,
		},
	}
	fx := newFixture(t, rules, nil)
	ctx := context.Background()

	activeAlert(t, fx.store, core.SeverityMedium, time.Hour)

	escalated, err := fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)
	require.Len(t, escalated, 1)

	sends := fx.sender.Sends()
	require.Len(t, sends, 1, "only the winning rule's channels are notified")
	assert.Equal(t, "slack", sends[0].Channel)
	assert.Equal(t, []string{"lead"}, sends[0].Recipients)
}

func TestEvaluator_DisabledRulesIgnored(t *testing.T) {
	fx := newFixture(t, []core.EscalationRule{
		{
			Name:      "off",
			Trigger:   core.TriggerTimeBased,
			Condition: core.EscalationCondition{UnacknowledgedMinutes: 1},
			Priority:  1,
			Enabled:   false,
		},
	}, nil)

	activeAlert(t, fx.store, core.SeverityCritical, time.Hour)

	escalated, err := fx.evaluator.CheckForEscalation(context.Background())
	require.NoError(t, err)
	assert.Empty(t, escalated)
}

func TestEvaluator_FailedAcknowledgment(t *testing.T) {
	fx := newFixture(t, []core.EscalationRule{
		{
			Name:      "stale-ack",
			Trigger:   core.TriggerFailedAcknowledgment,
			Condition: core.EscalationCondition{UnacknowledgedMinutes: 60},
			Priority:  1,
			Enabled:   true,
		},
	}, nil)
	ctx := context.Background()

	stale := core.NewAlert("prometheus", "stale")
	stale.Status = core.AlertStatusAcknowledged
	staleAck := time.Now().UTC().Add(-61 * time.Minute)
	stale.AcknowledgedAt = &staleAck
	require.NoError(t, fx.store.Save(ctx, stale))

	fresh := core.NewAlert("prometheus", "fresh")
	fresh.Status = core.AlertStatusAcknowledged
	freshAck := time.Now().UTC().Add(-30 * time.Minute)
	fresh.AcknowledgedAt = &freshAck
	require.NoError(t, fx.store.Save(ctx, fresh))

	escalated, err := fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{stale.AlertID}, escalated)
}

func TestEvaluator_RepeatedOccurrence_StoreFallback(t *testing.T) {
	fx := newFixture(t, []core.EscalationRule{
		{
			Name:      "repeats",
			Trigger:   core.TriggerRepeatedOccurrence,
			Condition: core.EscalationCondition{OccurrenceCount: 3, WindowMinutes: 30},
			Priority:  1,
			Enabled:   true,
		},
	}, nil)
	ctx := context.Background()

	// Three same-source alerts inside the window meet the >= threshold.
	for i := 0; i < 3; i++ {
		alert := core.NewAlert("flaky-service", string(rune('a'+i)))
		require.NoError(t, fx.store.Save(ctx, alert))
	}

	escalated, err := fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)
	assert.Len(t, escalated, 3, "every active alert from the flapping source matches")
}

func TestEvaluator_IncreaseSeverity(t *testing.T) {
	fx := newFixture(t, []core.EscalationRule{
		{
			Name:      "bump",
			Trigger:   core.TriggerTimeBased,
			Condition: core.EscalationCondition{UnacknowledgedMinutes: 5},
			Action:    core.EscalationAction{IncreaseSeverity: true},
			Priority:  1,
			Enabled:   true,
		},
	}, nil)
	ctx := context.Background()

	alert := activeAlert(t, fx.store, core.SeverityHigh, time.Hour)

	_, err := fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)

	got, err := fx.store.GetByID(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SeverityCritical, got.Severity)
}

func TestEvaluator_SweepLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	fx := newFixture(t, DefaultRules(), client)
	ctx := context.Background()

	activeAlert(t, fx.store, core.SeverityCritical, time.Hour)

	// A held lock makes the sweep skip without error.
	require.NoError(t, mr.Set(sweepLockKey, "other-process"))
	escalated, err := fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)
	assert.Empty(t, escalated)

	// Once released, the sweep proceeds and releases its own lease afterwards.
	mr.Del(sweepLockKey)
	escalated, err = fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)
	assert.Len(t, escalated, 1)
	assert.False(t, mr.Exists(sweepLockKey), "lease is released after the sweep")
}

func TestEvaluator_RecordOccurrence_CountsInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	fx := newFixture(t, []core.EscalationRule{
		{
			Name:      "repeats",
			Trigger:   core.TriggerRepeatedOccurrence,
			Condition: core.EscalationCondition{OccurrenceCount: 2, WindowMinutes: 30},
			Priority:  1,
			Enabled:   true,
		},
	}, client)
	ctx := context.Background()

	fx.evaluator.RecordOccurrence(ctx, "flaky-service")
	fx.evaluator.RecordOccurrence(ctx, "flaky-service")

	alert := core.NewAlert("flaky-service", "x")
	require.NoError(t, fx.store.Save(ctx, alert))

	escalated, err := fx.evaluator.CheckForEscalation(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{alert.AlertID}, escalated, "redis counter satisfies the threshold without store rows")
}

func TestEvaluator_OccurrenceCounter_FedByIngestion(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	fx := newFixture(t, DefaultRules(), client)
	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()
	engine := classify.NewEngine(classify.DefaultCategoryRules(), nil, sugar)
	lifecycle := service.NewLifecycleService(fx.store, nil, sugar)
	ingest := service.NewIngestService(fx.store, engine, lifecycle, nil, sugar)
	ingest.SetOccurrenceRecorder(fx.evaluator)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		payload := map[string]any{"alertname": fmt.Sprintf("flap-%d", i), "severity": "warning"}
		_, err := ingest.Ingest(ctx, "prometheus", payload)
		require.NoError(t, err)
	}

	val, err := mr.Get("argus:occurrences:prometheus")
	require.NoError(t, err)
	assert.Equal(t, "5", val, "every accepted signal bumps the per-source counter")
	assert.True(t, mr.TTL("argus:occurrences:prometheus") > 0, "counter expires with the rule window")
}
