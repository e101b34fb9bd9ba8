// Package normalize applies deterministic text transforms to raw log input
// before any model invocation: chronological ordering, PII redaction, and
// log type detection.
package normalize

import (
	"regexp"
	"sort"
	"strings"
)

// LogType classifies the overall source of a log document.
type LogType string

const (
	TypeWindowsEvent   LogType = "Windows Event Log"
	TypeFirewall       LogType = "Firewall Log"
	TypeAuthentication LogType = "Authentication Log"
	TypeUnknown        LogType = "Unknown Log Type"
)

// Redaction sentinels. Redaction is idempotent: none of the sentinels
// themselves match any redaction pattern.
const (
	IPSentinel   = "[IP_REDACTED]"
	UserSentinel = "[USER]"
	PathSentinel = "[FILE_PATH]"
)

var (
	ipPattern   = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	userPattern = regexp.MustCompile(`(?i)user "?[\w\-]+"?`)
	// Windows-style absolute paths: drive letter, then backslash-separated
	// segments. Segments never span line breaks.
	pathPattern = regexp.MustCompile(`[a-zA-Z]:\\(?:[^\\\n]+\\)*[^\\\n]+`)
)

// Document is a log document owned by a single analysis run.
type Document struct {
	RawText      string
	Text         string // normalized (sorted, optionally redacted)
	DetectedType LogType
	SafeMode     bool
}

// New normalizes raw log text: lines are sorted chronologically and, when
// safeMode is set, PII is redacted. The detected type is computed from the
// normalized text.
func New(rawText string, safeMode bool) Document {
	text := SortChronologically(rawText)
	if safeMode {
		text = Redact(text)
	}
	return Document{
		RawText:      rawText,
		Text:         text,
		DetectedType: ClassifyType(text),
		SafeMode:     safeMode,
	}
}

// Lines returns the normalized text split into lines.
func (d Document) Lines() []string {
	return strings.Split(d.Text, "\n")
}

// SortChronologically orders log lines by their leading timestamp. Logs are
// assumed to begin with a sortable timestamp, so a plain lexicographic sort
// yields chronological order. Lines without a leading timestamp still sort
// (lexicographically by content) — a known limitation, not an error.
func SortChronologically(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// Redact replaces PII with fixed sentinels: IPv4 addresses, `user <name>`
// references (case-insensitive), and Windows-style file paths, in that
// order. Path redaction runs last so it cannot consume tokens already
// replaced by the user redaction. Applying Redact to already-redacted text
// is a no-op.
func Redact(text string) string {
	text = ipPattern.ReplaceAllString(text, IPSentinel)
	text = userPattern.ReplaceAllString(text, UserSentinel)
	text = pathPattern.ReplaceAllString(text, PathSentinel)
	return text
}

// ClassifyType detects the log type by case-insensitive keyword match in
// priority order. First match wins; there is no scoring.
func ClassifyType(text string) LogType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "powershell"):
		return TypeWindowsEvent
	case strings.Contains(lower, "iptables") || strings.Contains(lower, "deny"):
		return TypeFirewall
	case strings.Contains(lower, "auth") || strings.Contains(lower, "login"):
		return TypeAuthentication
	default:
		return TypeUnknown
	}
}
