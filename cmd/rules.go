// Package cmd provides command-line interface commands for argus.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"argus/config"
	"argus/core"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags for rules commands
var (
	outputJSON bool
	rulesFile  string
	noColor    bool
)

// NewRulesCmd creates the 'rules' command tree.
func NewRulesCmd() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization, suppression, notification and escalation rules",
		Long: `Inspect and validate the rule set used by the alert engine.

Rules are loaded from a YAML file; when no file is given the built-in
defaults are used.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rulesCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rulesCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "Rules file path (empty = built-in defaults)")
	rulesCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rulesCmd.AddCommand(newValidateCmd())
	rulesCmd.AddCommand(newListRulesCmd())

	return rulesCmd
}

// newValidateCmd creates the 'validate' subcommand
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a rules file",
		Long:  "Load and validate the rules file, reporting the first validation error found.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := config.LoadRules(rulesFile)
			if err != nil {
				errorColor.Fprintf(os.Stderr, "✗ Rules validation failed\n")
				return err
			}

			successColor.Printf("✓ Rules valid\n")
			infoColor.Printf("  %d category rules, %d suppression rules, %d notification rules, %d escalation rules\n",
				len(rules.CategoryRules), len(rules.SuppressionRules),
				len(rules.NotificationRules), len(rules.EscalationRules))
			return nil
		},
	}
}

// newListRulesCmd creates the 'list' subcommand
func newListRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the effective rule set",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := config.LoadRules(rulesFile)
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}

			if outputJSON {
				return outputAsJSON(rules)
			}

			renderRules(rules)
			return nil
		},
	}
}

func outputAsJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderRules(rules *config.RuleSet) {
	headerColor.Println("Category rules")
	for _, r := range rules.CategoryRules {
		fmt.Printf("  %-28s %-16s boost=%d pattern=%q\n", r.Name, r.Category, r.PriorityBoost, r.Pattern)
	}

	headerColor.Println("Suppression rules")
	for _, r := range rules.SuppressionRules {
		fmt.Printf("  %-28s enabled=%-5t %s\n", r.Name, r.Enabled, suppressionWindow(r))
	}

	headerColor.Println("Notification rules")
	for _, r := range rules.NotificationRules {
		fmt.Printf("  %-28s priority=%-10s channels=%v severities=%v\n", r.Name, r.Priority, r.Channels, r.Severities)
	}

	headerColor.Println("Escalation rules")
	for _, r := range rules.EscalationRules {
		fmt.Printf("  %-28s enabled=%-5t trigger=%-22s priority=%d\n", r.Name, r.Enabled, r.Trigger, r.Priority)
	}
}

func suppressionWindow(r core.SuppressionRule) string {
	if r.StartHour == nil || r.EndHour == nil {
		return "window=always"
	}
	return fmt.Sprintf("window=%02d:00-%02d:00 UTC", *r.StartHour, *r.EndHour)
}
