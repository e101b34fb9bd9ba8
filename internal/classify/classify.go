package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/forensiq/forensiq/internal/llm"
	"github.com/forensiq/forensiq/internal/narrative"
)

// BatchCap is the hard limit on log lines per classification request. It
// protects against unbounded prompt growth; lines beyond the cap are not
// classified.
const BatchCap = 100

// Classifier batches log lines into one generation request and parses the
// structured judgments.
type Classifier struct {
	provider llm.Provider
	verbose  bool
}

// New creates a Classifier around the given provider.
func New(provider llm.Provider, verbose bool) *Classifier {
	return &Classifier{provider: provider, verbose: verbose}
}

// Classify returns one EventJudgment per classified line. Any provider or
// parse failure yields an empty result — classification is best-effort and
// callers treat an empty slice as "classification unavailable".
func (c *Classifier) Classify(ctx context.Context, lines []string) []EventJudgment {
	if len(lines) == 0 {
		return nil
	}

	raw, err := c.provider.Complete(ctx, "", BuildBatchPrompt(lines))
	if err != nil {
		if c.verbose {
			fmt.Fprintf(os.Stderr, "[classify] request failed: %v\n", err)
		}
		return nil
	}

	judgments, err := ParseJudgments(raw)
	if err != nil {
		if c.verbose {
			fmt.Fprintf(os.Stderr, "[classify] parse failed: %v\n", err)
		}
		return nil
	}
	return judgments
}

// BuildBatchPrompt numbers up to BatchCap lines into the classification
// request. The scoring and confidence guidance matches the narrative
// contract so both passes judge events the same way.
func BuildBatchPrompt(lines []string) string {
	if len(lines) > BatchCap {
		lines = lines[:BatchCap]
	}

	var b strings.Builder
	b.WriteString(`You are a cybersecurity log classifier.
For each of the following logs, return a JSON object with:
- log (original string)
- risk_score (0-100)
- risk_level (High, Medium, Low) based on score (>=70 = High, 40-69 = Medium, <40 = Low)
- justification (short reason)
- confidence (0-100)
`)
	b.WriteString(narrative.ScoringGuidance + "\n" + narrative.ConfidenceGuidance + "\n")
	b.WriteString("\nReturn a JSON array.\n\nLogs:\n")
	for i, line := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	return b.String()
}

// ParseJudgments locates the first top-level bracketed array in the raw
// response via greedy bracket matching (first '[' through last ']') and
// decodes it, repairing tolerable drift per entry: numeric fields may
// arrive as floats or strings, levels in any casing. Entries with no log
// text are dropped.
func ParseJudgments(raw string) ([]EventJudgment, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &entries); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}

	judgments := make([]EventJudgment, 0, len(entries))
	for _, e := range entries {
		j := EventJudgment{
			Log:           stringField(e, "log"),
			RiskScore:     intField(e, "risk_score"),
			RiskLevel:     normalizeLevel(stringField(e, "risk_level")),
			Justification: stringField(e, "justification"),
			Confidence:    intField(e, "confidence"),
		}
		if j.Log == "" {
			continue
		}
		judgments = append(judgments, j)
	}
	return judgments, nil
}

func stringField(e map[string]json.RawMessage, key string) string {
	raw, ok := e[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}

func intField(e map[string]json.RawMessage, key string) int {
	raw, ok := e[key]
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 0
}

func normalizeLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return LevelHigh
	case "medium":
		return LevelMedium
	case "low":
		return LevelLow
	}
	// Unrecognized levels pass through for the auditor to flag.
	return RiskLevel(s)
}
