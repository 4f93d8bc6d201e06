// Package notify routes alerts to notification channels. The Router decides
// which configured rules apply and at what urgency; the Dispatcher hands the
// built payload to channel senders. Delivery is fire-and-forget from the
// caller's perspective: failures are logged and counted, never returned to
// the lifecycle operation that triggered them.
package notify

import (
	"sync"
	"time"

	"argus/core"

	"go.uber.org/zap"
)

// Router filters configured notification rules against alerts.
type Router struct {
	logger *zap.SugaredLogger

	mu    sync.RWMutex
	rules []core.NotificationRule
}

// NewRouter creates a router with the given rule set.
func NewRouter(rules []core.NotificationRule, logger *zap.SugaredLogger) *Router {
	return &Router{
		logger: logger,
		rules:  rules,
	}
}

// AddRule appends a notification rule.
func (r *Router) AddRule(rule core.NotificationRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// Route returns the rules applicable to the alert, in configuration order.
func (r *Router) Route(alert *core.Alert) []core.NotificationRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var matched []core.NotificationRule
	for i := range r.rules {
		if r.rules[i].Matches(alert, now) {
			matched = append(matched, r.rules[i])
		}
	}
	return matched
}

// Priority returns the highest priority among all matched rules, or NORMAL
// when no rule matches.
func (r *Router) Priority(alert *core.Alert) core.NotificationPriority {
	matched := r.Route(alert)
	if len(matched) == 0 {
		return core.PriorityNormal
	}

	best := matched[0].Priority
	for _, rule := range matched[1:] {
		if rule.Priority.Rank() > best.Rank() {
			best = rule.Priority
		}
	}
	return best
}

// DefaultNotificationRules returns the built-in routing rule set.
func DefaultNotificationRules() []core.NotificationRule {
	return []core.NotificationRule{
		{
			Name:       "critical-page",
			Severities: []core.Severity{core.SeverityCritical},
			Channels:   []string{"slack", "sms"},
			Recipients: []string{"oncall"},
			Priority:   core.PriorityImmediate,
		},
		{
			Name:       "security-team",
			Severities: []core.Severity{core.SeverityHigh, core.SeverityCritical},
			Categories: []core.Category{core.CategorySecurity},
			Channels:   []string{"slack", "email"},
			Recipients: []string{"security-team"},
			Priority:   core.PriorityImmediate,
		},
		{
			Name:       "high-slack",
			Severities: []core.Severity{core.SeverityHigh},
			Channels:   []string{"slack"},
			Priority:   core.PriorityHigh,
		},
		{
			Name:       "medium-slack",
			Severities: []core.Severity{core.SeverityMedium},
			Channels:   []string{"slack"},
			Priority:   core.PriorityNormal,
		},
		{
			Name:       "low-digest",
			Severities: []core.Severity{core.SeverityLow},
			Channels:   []string{"email"},
			Priority:   core.PriorityLow,
		},
	}
}
