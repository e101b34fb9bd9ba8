// Package sigma evaluates Sigma detection rules against normalized log
// lines as a deterministic pre-scan before model analysis.
package sigma

import (
	"context"
	"embed"
	"io/fs"
	"path/filepath"

	sigmalib "github.com/bradleyjkemp/sigma-go"
	"github.com/bradleyjkemp/sigma-go/evaluator"

	"github.com/forensiq/forensiq/internal/normalize"
)

//go:embed rules
var embeddedRules embed.FS

// category names used in rule logsource blocks to scope rules to a log
// type. A rule with no category applies to every log type.
var typeCategories = map[normalize.LogType]string{
	normalize.TypeWindowsEvent:   "windows_event",
	normalize.TypeFirewall:       "firewall",
	normalize.TypeAuthentication: "authentication",
}

// Engine evaluates Sigma rules against log lines. Each line is presented
// to the evaluator as an event with a single "message" field.
type Engine struct {
	rules []evaluator.RuleEvaluator
}

// NewDefault creates an Engine loaded with the built-in embedded Sigma rules.
func NewDefault() (*Engine, error) {
	sub, err := fs.Sub(embeddedRules, "rules")
	if err != nil {
		return nil, err
	}
	return New(sub)
}

// New creates an Engine by loading Sigma rules from the given FS.
// All .yml/.yaml files are parsed as Sigma rules.
func New(rulesFS fs.FS) (*Engine, error) {
	var rules []evaluator.RuleEvaluator

	err := fs.WalkDir(rulesFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		data, err := fs.ReadFile(rulesFS, path)
		if err != nil {
			return err
		}
		rule, err := sigmalib.ParseRule(data)
		if err != nil {
			return err
		}
		rules = append(rules, *evaluator.ForRule(rule))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Engine{rules: rules}, nil
}

// Scan evaluates all rules against the given log lines. Rules carrying a
// logsource.category only run when it matches the document's log type.
// One match per rule is recorded, on the first line that triggers it.
func (e *Engine) Scan(ctx context.Context, logType normalize.LogType, lines []string) []Match {
	category := typeCategories[logType]

	var matches []Match
	for _, ev := range e.rules {
		cat := ev.Rule.Logsource.Category
		if cat != "" && cat != category {
			continue
		}

		for _, line := range lines {
			if line == "" {
				continue
			}
			event := map[string]interface{}{"message": line}
			res, err := ev.Matches(ctx, event)
			if err != nil || !res.Match {
				continue
			}
			matches = append(matches, Match{
				Line:      line,
				RuleTitle: ev.Rule.Title,
				RuleID:    ev.Rule.ID,
				Level:     ev.Rule.Level,
			})
			break // one match per rule is enough evidence
		}
	}
	return matches
}
