// Package classify implements the categorization engine: a pure mapping from
// raw alert payloads to category, enhanced severity, tags and a suppression
// verdict, driven by ordered rule lists configured at startup.
package classify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"argus/core"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// patternMatchTimeout bounds regex backtracking so a pathological rule
// pattern cannot stall ingestion.
const patternMatchTimeout = 100 * time.Millisecond

// compiledPatternCacheSize bounds the compiled-pattern cache. Rule sets are
// small; the cache mainly avoids recompiling on every ingested alert.
const compiledPatternCacheSize = 256

// CategorizationResult is the outcome of classifying one payload.
type CategorizationResult struct {
	Category         core.Category `json:"category"`
	EnhancedSeverity core.Severity `json:"enhanced_severity"`
	PriorityBoost    int           `json:"priority_boost"`
	Tags             []string      `json:"tags"`
	MatchedRule      string        `json:"matched_rule,omitempty"`
}

// Engine evaluates category and suppression rules against alert payloads.
// It performs no I/O and keeps no per-alert state; rule lists are fixed after
// construction except through AddCategoryRule/AddSuppressionRule.
type Engine struct {
	logger *zap.SugaredLogger

	mu               sync.RWMutex
	categoryRules    []core.CategoryRule
	suppressionRules []core.SuppressionRule

	patterns *lru.Cache[string, *regexp2.Regexp]
}

// NewEngine creates a categorization engine with the given rule sets.
// Invalid patterns are not rejected here; a pattern that fails to compile
// simply never matches and is logged once on first use.
func NewEngine(categoryRules []core.CategoryRule, suppressionRules []core.SuppressionRule, logger *zap.SugaredLogger) *Engine {
	patterns, err := lru.New[string, *regexp2.Regexp](compiledPatternCacheSize)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Engine{
		logger:           logger,
		categoryRules:    categoryRules,
		suppressionRules: suppressionRules,
		patterns:         patterns,
	}
}

// AddCategoryRule appends a category rule. Rules are evaluated in insertion
// order, so later additions have lower precedence.
func (e *Engine) AddCategoryRule(rule core.CategoryRule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.categoryRules = append(e.categoryRules, rule)
}

// AddSuppressionRule appends a suppression rule.
func (e *Engine) AddSuppressionRule(rule core.SuppressionRule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suppressionRules = append(e.suppressionRules, rule)
}

// Categorize classifies a raw alert payload. It never fails: malformed or
// missing fields degrade to GENERAL/MEDIUM defaults.
func (e *Engine) Categorize(data map[string]any, source string) CategorizationResult {
	blob := textBlob(data)
	rawSeverity := ExtractSeverity(data)

	result := CategorizationResult{
		Category:         core.CategoryGeneral,
		EnhancedSeverity: rawSeverity,
	}

	e.mu.RLock()
	rules := e.categoryRules
	e.mu.RUnlock()

	// First rule whose pattern matches and whose conditions hold wins; the
	// engine stops at first match, so the boost is that single rule's boost.
	for i := range rules {
		rule := &rules[i]
		if !rule.AppliesTo(source, rawSeverity) {
			continue
		}
		if !e.matches(rule.Pattern, blob) {
			continue
		}
		result.Category = rule.Category
		result.PriorityBoost = rule.PriorityBoost
		result.MatchedRule = rule.Name
		result.Tags = append(result.Tags, rule.Tags...)
		break
	}

	result.EnhancedSeverity = EnhanceSeverity(rawSeverity, result.PriorityBoost, result.Category)
	result.Tags = append(result.Tags, SmartTags(blob, result.Category)...)
	result.Tags = dedupeTags(result.Tags)

	return result
}

// ShouldSuppress evaluates suppression rules against a payload. The first
// enabled rule that is active, matches its conditions and matches the text
// blob suppresses the alert; the returned reason identifies the rule.
func (e *Engine) ShouldSuppress(data map[string]any, source string) (bool, string) {
	blob := textBlob(data)
	environment := stringField(data, "environment", "env")

	e.mu.RLock()
	rules := e.suppressionRules
	e.mu.RUnlock()

	now := time.Now()
	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}
		if !rule.ActiveAt(now) {
			continue
		}
		if !rule.AppliesTo(source, environment) {
			continue
		}
		if !e.matches(rule.Pattern, blob) {
			continue
		}
		reason := rule.Reason
		if reason == "" {
			reason = fmt.Sprintf("matched suppression rule %q", rule.Name)
		}
		return true, reason
	}
	return false, ""
}

// matches runs a rule pattern against the text blob, compiling and caching
// the pattern on first use. Compile or match errors mean "no match".
func (e *Engine) matches(pattern, blob string) bool {
	re, ok := e.patterns.Get(pattern)
	if !ok {
		compiled, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
		if err != nil {
			e.logger.Warnw("Skipping rule with invalid pattern",
				"pattern", pattern,
				"error", err)
			return false
		}
		compiled.MatchTimeout = patternMatchTimeout
		e.patterns.Add(pattern, compiled)
		re = compiled
	}

	matched, err := re.MatchString(blob)
	if err != nil {
		e.logger.Warnw("Pattern match timed out",
			"pattern", pattern,
			"error", err)
		return false
	}
	return matched
}

// textBlob builds the lowercase searchable text from the payload's title and
// message fields, tolerating any of the aliases sources use.
func textBlob(data map[string]any) string {
	title := stringField(data, "title", "alertname", "name")
	message := stringField(data, "message", "description", "summary")
	return strings.ToLower(strings.TrimSpace(title + " " + message))
}

// stringField returns the first non-empty string value among the given keys.
func stringField(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
