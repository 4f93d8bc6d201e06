package classify

import (
	"testing"

	"argus/core"

	"github.com/stretchr/testify/assert"
)

func TestExtractSeverity(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    core.Severity
	}{
		{"critical", map[string]any{"severity": "critical"}, core.SeverityCritical},
		{"fatal alias", map[string]any{"severity": "fatal"}, core.SeverityCritical},
		{"error alias", map[string]any{"severity": "error"}, core.SeverityHigh},
		{"warning alias", map[string]any{"severity": "warning"}, core.SeverityMedium},
		{"info alias", map[string]any{"severity": "info"}, core.SeverityLow},
		{"mixed case", map[string]any{"severity": "CRITICAL"}, core.SeverityCritical},
		{"surrounding whitespace", map[string]any{"severity": " high "}, core.SeverityHigh},
		{"priority fallback", map[string]any{"priority": "high"}, core.SeverityHigh},
		{"severity wins over priority", map[string]any{"severity": "low", "priority": "critical"}, core.SeverityLow},
		{"unknown value", map[string]any{"severity": "catastrophic"}, core.SeverityMedium},
		{"missing", map[string]any{}, core.SeverityMedium},
		{"non-string value", map[string]any{"severity": 3}, core.SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSeverity(tt.payload))
		})
	}
}

func TestEnhanceSeverity(t *testing.T) {
	tests := []struct {
		name     string
		raw      core.Severity
		boost    int
		category core.Category
		want     core.Severity
	}{
		{"no boost no floor", core.SeverityMedium, 0, core.CategoryApplication, core.SeverityMedium},
		{"boost one level", core.SeverityMedium, 1, core.CategoryApplication, core.SeverityHigh},
		{"boost clamps at critical", core.SeverityHigh, 3, core.CategoryApplication, core.SeverityCritical},
		{"security floor lifts low", core.SeverityLow, 0, core.CategorySecurity, core.SeverityHigh},
		{"security floor lifts boosted low", core.SeverityLow, 1, core.CategorySecurity, core.SeverityHigh},
		{"security above floor untouched", core.SeverityCritical, 0, core.CategorySecurity, core.SeverityCritical},
		{"infrastructure floor lifts low", core.SeverityLow, 0, core.CategoryInfrastructure, core.SeverityMedium},
		{"infrastructure above floor untouched", core.SeverityHigh, 0, core.CategoryInfrastructure, core.SeverityHigh},
		{"general has no floor", core.SeverityLow, 0, core.CategoryGeneral, core.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnhanceSeverity(tt.raw, tt.boost, tt.category))
		})
	}
}
