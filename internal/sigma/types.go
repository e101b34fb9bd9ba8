package sigma

// Match records a Sigma rule hit against a normalized log line.
type Match struct {
	Line      string `json:"line"`
	RuleTitle string `json:"rule_title"`
	RuleID    string `json:"rule_id,omitempty"`
	Level     string `json:"level"` // informational | low | medium | high | critical
}
