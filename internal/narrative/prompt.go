package narrative

import (
	"fmt"
	"strings"

	"github.com/forensiq/forensiq/internal/normalize"
	"github.com/forensiq/forensiq/internal/report"
)

// ScoringGuidance instructs contextual risk scoring: precursor events are
// rewarded, scores reflect sequence context rather than isolated severity.
// Shared verbatim with the per-event classifier prompt so both request the
// same scoring behavior.
const ScoringGuidance = `SCORING GUIDANCE:
- Evaluate events in their full context, not in isolation.
- Low-risk actions (e.g., successful logins, backups, configuration changes) should receive higher risk scores if they precede or correlate with downstream issues like failures, alerts, access denials, or anomalous behavior.
- Analyze sequences of events. If a benign-looking log is the trigger for cascading failures, consider it a significant precursor.
- Risk scores must reflect:
  1. Severity of the event
  2. Temporal proximity to other anomalies
  3. Repetition, frequency, or volume of similar events
  4. Anomalous user behavior (unexpected access, odd timing, privilege escalation)
- Use statistical and behavioral inference to detect indirect contributors.
- Do not default to 0 unless an event is clearly unrelated and contextually irrelevant.
- Justify each risk score briefly, especially when scoring events above or below what might be expected at first glance.`

// ConfidenceGuidance instructs evidence-strength-based confidence values.
const ConfidenceGuidance = `CONFIDENCE SCORING:
- Confidence values must reflect how strong the evidence is. Consider log clarity, repetition, direct cause-effect patterns, and absence of ambiguity.
- Assign higher confidence when conclusions are directly supported by multiple consistent events. Lower it when logs are vague, missing, or indirectly inferred.`

// SystemContract is the fixed system prompt: the eight mandatory section
// titles in exact casing and order, the negative formatting constraints the
// output parser relies on, and the scoring guidance. The service does not
// enforce any of this; the output parser tolerates drift.
var SystemContract = buildSystemContract()

func buildSystemContract() string {
	var b strings.Builder
	b.WriteString("You are an elite cybersecurity log analyst. Your output MUST include all 8 sections:\n")
	for i, title := range report.SectionTitles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
	}
	b.WriteString(`
Use ALL CAPS section titles exactly as listed above. Do NOT skip any section. If unsure, write 'Unknown'.
IMPORTANT FORMATTING RULES:
- Start each section title in ALL CAPS with a number prefix (e.g., 1. STEP-BY-STEP TIMELINE)
- Format all sub-points as bulleted lists using '- ' or numbered lists when relevant
- Separate entries with line breaks, not paragraphs
- Do not skip any section; if uncertain, write 'Unknown'
- Do not use Markdown, bold, or rich formatting; no bullet symbols other than '- '
- Use structured, parseable plain text
- Base all findings on the evidence in the logs
SECTION CONTENT:
- ROOT CAUSE: the root cause plus the type of cyber attack, if relevant
- TOTAL IMPACT: exact format, number first, explanation after:
  - Downtime: <number of minutes/seconds> <explanation>
  - Users Affected: <number or 'At least N users'> <explanation>
  - Failed Jobs: <number> <explanation>
- RISK SCORE FOR EACH EVENT: lines in the format 'YYYY-MM-DD HH:MM:SS: Event Summary - Risk Score (0-100)'; the score, not the level
- CONFIDENCE LEVELS PER CONCLUSION: numbered statements like '1. Cause of failure - 92%'
`)
	b.WriteString("\n" + ScoringGuidance + "\n" + ConfidenceGuidance)
	return b.String()
}

// noContextSentinel stands in for an empty retrieval context so the prompt
// shape stays fixed.
const noContextSentinel = "No threat context found."

// BuildUserPrompt assembles the user content: log type, the retrieval
// context explicitly scoped as background only, and the full normalized log
// text.
func BuildUserPrompt(logType normalize.LogType, ragContext []string, logText string) string {
	ctxBlock := noContextSentinel
	if len(ragContext) > 0 {
		ctxBlock = strings.Join(ragContext, "\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following %s logs and return the structured plain-text report with the 8 mandatory sections.\n", logType)
	b.WriteString("You may use the external threat knowledge below only to improve your reasoning about the logs. Do not generate a report about the threat data itself.\n\n")
	b.WriteString("=== THREAT INTELLIGENCE (from MITRE ATT&CK) ===\n")
	b.WriteString(ctxBlock)
	b.WriteString("\n\nLogs:\n")
	b.WriteString(logText)
	return b.String()
}
