// Package report defines the incident report structure and parses the
// narrative generator's plain-text output into its named sections.
package report

// SectionTitles are the eight mandatory report sections, in contract order
// and exact casing. The narrative prompt enumerates these verbatim and the
// parser matches them (optionally prefixed "N. ").
var SectionTitles = []string{
	"STEP-BY-STEP TIMELINE",
	"ROOT CAUSE",
	"TOTAL IMPACT",
	"REMEDIATION STEPS",
	"RISK SCORE FOR EACH EVENT",
	"CONFIDENCE LEVELS PER CONCLUSION",
	"MISSING CONTEXT OR DATA",
	"LOGS CONTRIBUTING TO EACH FINDING",
}

// UnknownSection is the sentinel body for sections the model omitted.
const UnknownSection = "Unknown"

// Report maps section title to section body. Derived from a single
// generation response and immutable once parsed.
type Report map[string]string

// WithDefaults returns a copy of the report with every mandatory section
// present: sections the parser never saw map to UnknownSection. The parser
// itself leaves unseen sections absent, so callers rendering or comparing
// full reports go through this helper.
func (r Report) WithDefaults() Report {
	out := make(Report, len(SectionTitles))
	for _, title := range SectionTitles {
		if body, ok := r[title]; ok && body != "" {
			out[title] = body
		} else {
			out[title] = UnknownSection
		}
	}
	return out
}
