// Package audit cross-checks a batch of per-event risk judgments for
// internal consistency. It is a deterministic rule engine: it never calls
// the generation service and never mutates the judgments it inspects.
// Findings are advisory — the system detects inconsistencies, not ground
// truth.
package audit

import (
	"strings"

	"github.com/forensiq/forensiq/internal/classify"
)

// Issue identifies which contradiction rule a finding came from.
type Issue string

const (
	ScoreLevelMismatch              Issue = "score_level_mismatch"
	OverconfidentVagueJustification Issue = "overconfident_vague_justification"
	UnderratedCriticalEvent         Issue = "underrated_critical_event"
	VagueJustificationHighScore     Issue = "vague_justification_high_score"
	UnderratedPrecursor             Issue = "underrated_precursor"
)

// Finding is one advisory inconsistency raised against a judgment.
type Finding struct {
	Log     string `json:"log"`
	Issue   Issue  `json:"issue"`
	Message string `json:"message"`
}

// criticalKeywords mark log lines that should rarely score below the High
// band.
var criticalKeywords = []string{
	"503", "timeout", "failed", "packet loss", "connection error",
	"unreachable", "exfiltration",
}

// vaguePhrases are routine/benign wordings that do not support an elevated
// score.
var vaguePhrases = []string{
	"normal", "routine", "standard", "typical", "benign", "info only",
}

// hedgingTerms soften a justification; high confidence over them is suspect.
var hedgingTerms = []string{"possible", "normal"}

// Precursor rule parameters: a near-zero score followed within two entries
// by a spike suggests the earlier event was underrated.
const (
	precursorScoreCeiling = 30
	spikeScoreFloor       = 80
	overconfidenceFloor   = 85
	vagueScoreFloor       = 30
)

// Audit evaluates every rule against every judgment, in input order. Rules
// are independent: one judgment can raise several findings. The input is
// never modified.
func Audit(judgments []classify.EventJudgment) []Finding {
	var findings []Finding

	for i, j := range judgments {
		logLower := strings.ToLower(j.Log)
		justLower := strings.ToLower(j.Justification)

		// 1. Score band vs declared level.
		if msg := bandMismatch(j); msg != "" {
			findings = append(findings, Finding{Log: j.Log, Issue: ScoreLevelMismatch, Message: msg})
		}

		// 2. High confidence over a hedged justification.
		if j.Confidence > overconfidenceFloor && containsAny(justLower, hedgingTerms) {
			findings = append(findings, Finding{
				Log:     j.Log,
				Issue:   OverconfidentVagueJustification,
				Message: "Confidence may be too high for a vague justification",
			})
		}

		// 3. Critical keyword with a sub-High score.
		if containsAny(logLower, criticalKeywords) && j.RiskScore < classify.HighThreshold {
			findings = append(findings, Finding{
				Log:     j.Log,
				Issue:   UnderratedCriticalEvent,
				Message: "Critical log event possibly underrated",
			})
		}

		// 4. Routine-sounding justification under an elevated score.
		if containsAny(justLower, vaguePhrases) && j.RiskScore > vagueScoreFloor {
			findings = append(findings, Finding{
				Log:     j.Log,
				Issue:   VagueJustificationHighScore,
				Message: "Vague justification may not support a high score",
			})
		}

		// 5. Low-scored precursor to a spike in the next two entries.
		// Requires at least two entries after i; shorter tails are skipped.
		if i < len(judgments)-2 && j.RiskScore < precursorScoreCeiling {
			if judgments[i+1].RiskScore >= spikeScoreFloor || judgments[i+2].RiskScore >= spikeScoreFloor {
				findings = append(findings, Finding{
					Log:     j.Log,
					Issue:   UnderratedPrecursor,
					Message: "Low-scored precursor to high-risk events — may be underrated",
				})
			}
		}
	}

	return findings
}

func bandMismatch(j classify.EventJudgment) string {
	switch {
	case j.RiskScore >= classify.HighThreshold && j.RiskLevel != classify.LevelHigh:
		return "Score is high but labeled as non-high"
	case j.RiskScore >= classify.MediumThreshold && j.RiskScore < classify.HighThreshold && j.RiskLevel != classify.LevelMedium:
		return "Score is medium-range but not labeled as Medium"
	case j.RiskScore < classify.MediumThreshold && j.RiskLevel != classify.LevelLow:
		return "Score is low but not labeled as Low"
	}
	return ""
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
