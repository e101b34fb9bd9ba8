package report

import (
	"regexp"
	"strings"
)

// headerPattern matches a section header line: an optional "N. " prefix
// followed by ALL-CAPS text (spaces and hyphens allowed). The whole line
// must match — prose lines that merely start with capitals do not.
var headerPattern = regexp.MustCompile(`^(?:\d+\.\s*)?([A-Z][A-Z\s\-]+)$`)

// Parse splits narrative text into sections with a small state machine over
// lines: outside any section, only a header line changes state; inside a
// section, header lines flush the accumulated body and start the next
// section, and every other line is appended (trimmed) to the current body.
// Lines before the first header are dropped. Sections never seen are left
// absent — see Report.WithDefaults.
//
// The parser is restartable: it holds no state between calls.
func Parse(text string) Report {
	sections := make(Report)

	current := ""
	var body []string

	flush := func() {
		if current == "" {
			return
		}
		sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := headerPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			current = strings.TrimSpace(m[1])
			continue
		}
		if current != "" {
			body = append(body, trimmed)
		}
	}
	flush()

	return sections
}
