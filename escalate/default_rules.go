package escalate

import "argus/core"

// DefaultRules returns the built-in escalation rule set, in priority order.
func DefaultRules() []core.EscalationRule {
	return []core.EscalationRule{
		{
			Name:    "critical-unacknowledged",
			Trigger: core.TriggerTimeBased,
			Condition: core.EscalationCondition{
				Severity:              core.SeverityCritical,
				UnacknowledgedMinutes: 5,
			},
			Action: core.EscalationAction{
				EscalateTo:     "manager",
				NotifyChannels: []string{"slack", "email"},
			},
			Priority: 1,
			Enabled:  true,
		},
		{
			Name:    "high-unacknowledged",
			Trigger: core.TriggerTimeBased,
			Condition: core.EscalationCondition{
				Severity:              core.SeverityHigh,
				UnacknowledgedMinutes: 15,
			},
			Action: core.EscalationAction{
				EscalateTo:     "team_lead",
				NotifyChannels: []string{"slack"},
			},
			Priority: 2,
			Enabled:  true,
		},
		{
			Name:    "repeated-occurrence",
			Trigger: core.TriggerRepeatedOccurrence,
			Condition: core.EscalationCondition{
				OccurrenceCount: 5,
				WindowMinutes:   30,
			},
			Action: core.EscalationAction{
				EscalateTo:     "oncall",
				NotifyChannels: []string{"slack"},
			},
			Priority: 3,
			Enabled:  true,
		},
		{
			Name:    "acknowledged-stale",
			Trigger: core.TriggerFailedAcknowledgment,
			Condition: core.EscalationCondition{
				UnacknowledgedMinutes: 60,
			},
			Action: core.EscalationAction{
				EscalateTo:     "oncall",
				NotifyChannels: []string{"slack", "sms"},
			},
			Priority: 4,
			Enabled:  true,
		},
	}
}
