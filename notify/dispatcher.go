package notify

import (
	"context"

	"argus/core"

	"go.uber.org/zap"
)

// Dispatcher fans an alert out to every channel its matched rules name.
// It is invoked after the lifecycle state is durable; delivery outcomes are
// logged and never surfaced to the caller.
type Dispatcher struct {
	router *Router
	sender Sender
	logger *zap.SugaredLogger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(router *Router, sender Sender, logger *zap.SugaredLogger) *Dispatcher {
	if sender == nil {
		panic("sender is required")
	}
	return &Dispatcher{
		router: router,
		sender: sender,
		logger: logger,
	}
}

// Router exposes the dispatcher's routing table for priority queries.
func (d *Dispatcher) Router() *Router {
	return d.router
}

// Dispatch routes the alert and sends the payload on every matched channel.
// SUPPRESSED routing priority skips delivery entirely.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *core.Alert) {
	rules := d.router.Route(alert)
	if len(rules) == 0 {
		d.logger.Debugw("No notification rules matched",
			"alert_id", alert.AlertID,
			"severity", alert.Severity,
			"category", alert.Category)
		return
	}

	payload := BuildPayload(alert, rules)
	if payload.Priority == core.PrioritySuppressed {
		d.logger.Infow("Notification suppressed by routing priority",
			"alert_id", alert.AlertID)
		return
	}

	for _, rule := range rules {
		for _, channel := range rule.Channels {
			result := d.sender.Send(ctx, channel, payload, rule.Recipients)
			if !result.Success {
				d.logger.Warnw("Notification not delivered",
					"alert_id", alert.AlertID,
					"channel", channel,
					"rule", rule.Name,
					"error", result.Error)
			}
		}
	}
}

// DispatchToChannels sends the alert to an explicit channel list, bypassing
// routing. Used by the escalation evaluator to honor a rule's notify_channels.
func (d *Dispatcher) DispatchToChannels(ctx context.Context, alert *core.Alert, channels []string, recipients []string) {
	if len(channels) == 0 {
		return
	}
	payload := BuildPayload(alert, d.router.Route(alert))
	for _, channel := range channels {
		result := d.sender.Send(ctx, channel, payload, recipients)
		if !result.Success {
			d.logger.Warnw("Escalation notification not delivered",
				"alert_id", alert.AlertID,
				"channel", channel,
				"error", result.Error)
		}
	}
}
