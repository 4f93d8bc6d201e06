package core

// AlertStatus represents the coarse, authoritative machine state of an alert
type AlertStatus string

const (
	// AlertStatusActive indicates an alert that has not been acted on yet
	AlertStatusActive AlertStatus = "active"
	// AlertStatusAcknowledged indicates an alert a responder has taken ownership of
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	// AlertStatusResolved indicates an alert whose underlying condition is fixed
	AlertStatusResolved AlertStatus = "resolved"
	// AlertStatusSuppressed indicates an alert deliberately muted for a period
	AlertStatusSuppressed AlertStatus = "suppressed"
)

// String returns the string representation
func (s AlertStatus) String() string {
	return string(s)
}

// IsValid checks if the status is valid
func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusResolved, AlertStatusSuppressed:
		return true
	default:
		return false
	}
}

// LifecycleStage is the fine-grained audit-facing lifecycle label. It is a
// superset of AlertStatus: ESCALATED and INVESTIGATING annotate an alert
// without changing its authoritative status.
type LifecycleStage string

const (
	StageReceived      LifecycleStage = "received"
	StageCategorized   LifecycleStage = "categorized"
	StageAcknowledged  LifecycleStage = "acknowledged"
	StageInvestigating LifecycleStage = "investigating"
	StageEscalated     LifecycleStage = "escalated"
	StageResolved      LifecycleStage = "resolved"
	StageClosed        LifecycleStage = "closed"
	StageSuppressed    LifecycleStage = "suppressed"
)

// String returns the string representation
func (s LifecycleStage) String() string {
	return string(s)
}

// IsValid checks if the stage is valid
func (s LifecycleStage) IsValid() bool {
	switch s {
	case StageReceived, StageCategorized, StageAcknowledged, StageInvestigating,
		StageEscalated, StageResolved, StageClosed, StageSuppressed:
		return true
	default:
		return false
	}
}

// StatusForStage maps a lifecycle stage to the coarse status it implies.
// Stages that only annotate the alert (ESCALATED, INVESTIGATING, CATEGORIZED,
// CLOSED) return ok=false and leave the status untouched.
func StatusForStage(stage LifecycleStage) (AlertStatus, bool) {
	switch stage {
	case StageReceived:
		return AlertStatusActive, true
	case StageAcknowledged:
		return AlertStatusAcknowledged, true
	case StageResolved:
		return AlertStatusResolved, true
	case StageSuppressed:
		return AlertStatusSuppressed, true
	default:
		return "", false
	}
}

// Severity represents alert severity, ordered LOW < MEDIUM < HIGH < CRITICAL
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// String returns the string representation
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Rank returns the numeric encoding used for comparisons and enhancement
// arithmetic (LOW=1 .. CRITICAL=4). Unknown severities rank as MEDIUM.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 2
	}
}

// SeverityFromRank maps a numeric rank back to a severity, clamping to the
// LOW..CRITICAL range.
func SeverityFromRank(rank int) Severity {
	switch {
	case rank <= 1:
		return SeverityLow
	case rank == 2:
		return SeverityMedium
	case rank == 3:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Bump returns the severity one level up, CRITICAL being the ceiling.
func (s Severity) Bump() Severity {
	return SeverityFromRank(s.Rank() + 1)
}

// Category represents the semantic classification of an alert
type Category string

const (
	CategoryInfrastructure Category = "infrastructure"
	CategoryPerformance    Category = "performance"
	CategorySecurity       Category = "security"
	CategoryAvailability   Category = "availability"
	CategoryDeployment     Category = "deployment"
	CategoryMonitoring     Category = "monitoring"
	CategoryNetwork        Category = "network"
	CategoryDatabase       Category = "database"
	CategoryApplication    Category = "application"
	CategoryGeneral        Category = "general"
)

// String returns the string representation
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryInfrastructure, CategoryPerformance, CategorySecurity,
		CategoryAvailability, CategoryDeployment, CategoryMonitoring,
		CategoryNetwork, CategoryDatabase, CategoryApplication, CategoryGeneral:
		return true
	default:
		return false
	}
}

// NotificationPriority orders notification urgency, IMMEDIATE highest.
type NotificationPriority string

const (
	PriorityImmediate  NotificationPriority = "immediate"
	PriorityHigh       NotificationPriority = "high"
	PriorityNormal     NotificationPriority = "normal"
	PriorityLow        NotificationPriority = "low"
	PrioritySuppressed NotificationPriority = "suppressed"
)

// Rank returns the ordering value for priority comparison (higher = more urgent).
func (p NotificationPriority) Rank() int {
	switch p {
	case PriorityImmediate:
		return 5
	case PriorityHigh:
		return 4
	case PriorityNormal:
		return 3
	case PriorityLow:
		return 2
	case PrioritySuppressed:
		return 1
	default:
		return 0
	}
}

// EscalationTrigger identifies the condition family an escalation rule evaluates.
type EscalationTrigger string

const (
	TriggerTimeBased            EscalationTrigger = "time_based"
	TriggerStatusChange         EscalationTrigger = "status_change"
	TriggerSeverityBased        EscalationTrigger = "severity_based"
	TriggerFailedAcknowledgment EscalationTrigger = "failed_acknowledgment"
	TriggerRepeatedOccurrence   EscalationTrigger = "repeated_occurrence"
)

// IsValid checks if the trigger is valid
func (t EscalationTrigger) IsValid() bool {
	switch t {
	case TriggerTimeBased, TriggerStatusChange, TriggerSeverityBased,
		TriggerFailedAcknowledgment, TriggerRepeatedOccurrence:
		return true
	default:
		return false
	}
}
