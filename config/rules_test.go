package config

import (
	"os"
	"path/filepath"
	"testing"

	"argus/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRules_EmptyPathUsesDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)

	assert.NotEmpty(t, rules.CategoryRules)
	assert.NotEmpty(t, rules.SuppressionRules)
	assert.NotEmpty(t, rules.NotificationRules)
	assert.NotEmpty(t, rules.EscalationRules)
}

func TestLoadRules_PartialFileFallsBackPerFamily(t *testing.T) {
	path := writeRules(t, `
category_rules:
  - name: custom-gpu
    pattern: "gpu"
    category: performance
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)

	require.Len(t, rules.CategoryRules, 1)
	assert.Equal(t, "custom-gpu", rules.CategoryRules[0].Name)
	assert.Equal(t, core.CategoryPerformance, rules.CategoryRules[0].Category)

	// Unspecified families keep their defaults.
	assert.NotEmpty(t, rules.SuppressionRules)
	assert.NotEmpty(t, rules.NotificationRules)
	assert.NotEmpty(t, rules.EscalationRules)
}

func TestLoadRules_FullFile(t *testing.T) {
	path := writeRules(t, `
category_rules:
  - name: db
    pattern: "deadlock"
    category: database
    priority_boost: 1
suppression_rules:
  - name: mute-test
    pattern: "test"
    enabled: true
    environments: [test]
notification_rules:
  - name: page
    severity_levels: [critical]
    channels: [slack]
    priority: immediate
escalation_rules:
  - name: crit
    trigger: time_based
    condition:
      severity: critical
      unacknowledged_minutes: 5
    action:
      escalate_to: manager
    priority: 1
    enabled: true
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)

	require.Len(t, rules.EscalationRules, 1)
	assert.Equal(t, core.TriggerTimeBased, rules.EscalationRules[0].Trigger)
	assert.Equal(t, 5, rules.EscalationRules[0].Condition.UnacknowledgedMinutes)
	assert.Equal(t, "manager", rules.EscalationRules[0].Action.EscalateTo)

	require.Len(t, rules.NotificationRules, 1)
	assert.Equal(t, core.PriorityImmediate, rules.NotificationRules[0].Priority)
}

func TestLoadRules_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "category rule without pattern",
			content: `
category_rules:
  - name: broken
    category: database
`,
		},
		{
			name: "invalid category",
			content: `
category_rules:
  - name: broken
    pattern: "x"
    category: nonsense
`,
		},
		{
			name: "boost out of range",
			content: `
category_rules:
  - name: broken
    pattern: "x"
    category: database
    priority_boost: 9
`,
		},
		{
			name: "notification rule without channels",
			content: `
notification_rules:
  - name: broken
    severity_levels: [high]
    priority: high
`,
		},
		{
			name: "time based escalation without threshold",
			content: `
escalation_rules:
  - name: broken
    trigger: time_based
    priority: 1
    enabled: true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRules_MalformedYAML(t *testing.T) {
	_, err := LoadRules(writeRules(t, "category_rules: [unclosed"))
	assert.Error(t, err)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules("/nonexistent/rules.yaml")
	assert.Error(t, err)
}

func TestDefaultRuleSet_Valid(t *testing.T) {
	assert.NoError(t, DefaultRuleSet().Validate())
}
