package classify

import "argus/core"

// DefaultCategoryRules returns the built-in category rule set. Order matters:
// the engine stops at the first matching rule, so more specific categories
// come first.
func DefaultCategoryRules() []core.CategoryRule {
	return []core.CategoryRule{
		{
			Name:          "security-incidents",
			Pattern:       `(?:unauthorized|breach|intrusion|malware|vulnerab|exploit|attack|suspicious|brute.?force|phishing|csrf|xss|injection)`,
			Category:      core.CategorySecurity,
			PriorityBoost: 1,
			Tags:          []string{"security-review"},
		},
		{
			Name:     "availability-outage",
			Pattern:  `(?:down|outage|unavailable|unreachable|offline|not responding|connection refused|timeout)`,
			Category: core.CategoryAvailability,
			Tags:     []string{"availability"},
		},
		{
			Name:     "performance-degradation",
			Pattern:  `(?:cpu|memory|latency|slow|throughput|saturat|load average|response time|queue depth)`,
			Category: core.CategoryPerformance,
		},
		{
			Name:     "database-issues",
			Pattern:  `(?:database|deadlock|replication|query|sql|connection pool|postgres|mysql|mongodb)`,
			Category: core.CategoryDatabase,
		},
		{
			Name:     "deployment-failures",
			Pattern:  `(?:deploy|rollout|rollback|release|pipeline|build failed|image pull)`,
			Category: core.CategoryDeployment,
		},
		{
			Name:     "network-issues",
			Pattern:  `(?:network|dns|packet loss|bgp|routing|firewall|certificate|tls|ssl)`,
			Category: core.CategoryNetwork,
		},
		{
			Name:     "infrastructure-hosts",
			Pattern:  `(?:disk|filesystem|node|host|server|instance|volume|inode|hardware)`,
			Category: core.CategoryInfrastructure,
		},
		{
			Name:     "monitoring-health",
			Pattern:  `(?:monitor|heartbeat|scrape|exporter|probe|watchdog|dead.?man)`,
			Category: core.CategoryMonitoring,
		},
		{
			Name:     "application-errors",
			Pattern:  `(?:exception|panic|stack trace|500|crash|oom|error rate)`,
			Category: core.CategoryApplication,
		},
	}
}

// DefaultSuppressionRules returns the built-in suppression rule set. Only the
// test-environment rule ships enabled; the maintenance-window rule is a
// template operators enable with their own schedule.
func DefaultSuppressionRules() []core.SuppressionRule {
	return []core.SuppressionRule{
		{
			Name:         "suppress-test-environment",
			Pattern:      `test`,
			Enabled:      true,
			Environments: []string{"test"},
			Reason:       "test environment alerts are not actionable",
		},
		{
			Name:    "maintenance-window",
			Pattern: `(?:maintenance|scheduled downtime)`,
			Enabled: false,
			Reason:  "suppressed during maintenance window",
		},
	}
}
