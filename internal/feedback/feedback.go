// Package feedback matches stored user corrections against log content and
// blends the matches into an enhanced analysis input. Records live in the
// external persistence collaborator; this package never deletes them.
package feedback

import "strings"

// MatchThreshold is the minimum per-line similarity ratio for a correction
// to be considered relevant to a log document.
const MatchThreshold = 0.6

// FeedbackCollection is the persistence collection feedback records are
// appended to.
const FeedbackCollection = "feedback"

// Record is one user-submitted correction. Append-only: created on
// submission, read on later runs.
type Record struct {
	LogID      string `json:"log_id"`
	Feedback   string `json:"feedback"`
	Correction string `json:"correction"`
	Timestamp  string `json:"timestamp"`
}

// key identifies a record for set-union merging.
func (r Record) key() string {
	return r.LogID + "\x00" + r.Feedback + "\x00" + r.Correction + "\x00" + r.Timestamp
}

// Match returns the records whose correction text is similar to at least
// one line of logText. A record matches as soon as any line reaches
// MatchThreshold (first match per record wins; the line scan stops there).
// Records with an empty correction never match. Matching is deterministic:
// the same input always yields the same matched set, in record order.
func Match(logText string, records []Record) []Record {
	lines := strings.Split(logText, "\n")

	var matches []Record
	for _, rec := range records {
		if rec.Correction == "" {
			continue
		}
		for _, line := range lines {
			if Ratio(line, rec.Correction) >= MatchThreshold {
				matches = append(matches, rec)
				break
			}
		}
	}
	return matches
}

// Merge appends records from extra that are not already present in base,
// keyed on full record identity. Order: base first, then new extras in
// input order.
func Merge(base, extra []Record) []Record {
	seen := make(map[string]struct{}, len(base))
	for _, r := range base {
		seen[r.key()] = struct{}{}
	}
	out := base
	for _, r := range extra {
		if _, ok := seen[r.key()]; ok {
			continue
		}
		seen[r.key()] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Enhance prepends the matched corrections to logText as an instruction
// block. With no matches the text is returned unchanged.
func Enhance(logText string, matched []Record) string {
	var notes []string
	for _, rec := range matched {
		if c := strings.TrimSpace(rec.Correction); c != "" {
			notes = append(notes, "- "+c)
		}
	}
	if len(notes) == 0 {
		return logText
	}

	block := "IMPORTANT: The following are user-supplied expert corrections or suggestions. " +
		"Use them to improve the analysis below:\n\n" + strings.Join(notes, "\n")
	return block + "\n\n" + logText
}

// Counts tallies stored records per log ID.
func Counts(records []Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.LogID]++
	}
	return counts
}
