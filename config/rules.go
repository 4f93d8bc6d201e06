package config

import (
	"fmt"
	"os"

	"argus/classify"
	"argus/core"
	"argus/escalate"
	"argus/notify"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RuleSet bundles every rule family loaded from the rules file.
type RuleSet struct {
	CategoryRules     []core.CategoryRule     `yaml:"category_rules"`
	SuppressionRules  []core.SuppressionRule  `yaml:"suppression_rules"`
	NotificationRules []core.NotificationRule `yaml:"notification_rules"`
	EscalationRules   []core.EscalationRule   `yaml:"escalation_rules"`
}

// DefaultRuleSet returns the built-in rules used when no rules file is
// configured.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		CategoryRules:     classify.DefaultCategoryRules(),
		SuppressionRules:  classify.DefaultSuppressionRules(),
		NotificationRules: notify.DefaultNotificationRules(),
		EscalationRules:   escalate.DefaultRules(),
	}
}

// LoadRules reads and validates the YAML rules file. An empty path yields
// the built-in defaults. Rule families left empty in the file also fall back
// to their defaults, so a file can override just one family.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRuleSet(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	defaults := DefaultRuleSet()
	if len(rules.CategoryRules) == 0 {
		rules.CategoryRules = defaults.CategoryRules
	}
	if len(rules.SuppressionRules) == 0 {
		rules.SuppressionRules = defaults.SuppressionRules
	}
	if len(rules.NotificationRules) == 0 {
		rules.NotificationRules = defaults.NotificationRules
	}
	if len(rules.EscalationRules) == 0 {
		rules.EscalationRules = defaults.EscalationRules
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

// Validate checks every rule's structural constraints.
func (r *RuleSet) Validate() error {
	validate := validator.New()

	for i := range r.CategoryRules {
		if err := validate.Struct(&r.CategoryRules[i]); err != nil {
			return fmt.Errorf("category rule %d (%s): %w", i, r.CategoryRules[i].Name, err)
		}
		if !r.CategoryRules[i].Category.IsValid() {
			return fmt.Errorf("category rule %d (%s): invalid category %q", i, r.CategoryRules[i].Name, r.CategoryRules[i].Category)
		}
	}
	for i := range r.SuppressionRules {
		if err := validate.Struct(&r.SuppressionRules[i]); err != nil {
			return fmt.Errorf("suppression rule %d (%s): %w", i, r.SuppressionRules[i].Name, err)
		}
	}
	for i := range r.NotificationRules {
		if err := validate.Struct(&r.NotificationRules[i]); err != nil {
			return fmt.Errorf("notification rule %d (%s): %w", i, r.NotificationRules[i].Name, err)
		}
	}
	for i := range r.EscalationRules {
		if err := r.EscalationRules[i].Validate(); err != nil {
			return fmt.Errorf("escalation rule %d: %w", i, err)
		}
	}
	return nil
}
