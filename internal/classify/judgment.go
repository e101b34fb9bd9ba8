// Package classify batches raw log lines into a single generation request
// and parses the structured per-line risk judgments the model returns.
package classify

// RiskLevel is the coarse banding of a risk score.
type RiskLevel string

const (
	LevelHigh   RiskLevel = "High"
	LevelMedium RiskLevel = "Medium"
	LevelLow    RiskLevel = "Low"
)

// Score band thresholds. The classifier prompt asserts these bands but the
// model's output is not corrected against them — mismatches are advisory
// findings raised by the audit package.
const (
	HighThreshold   = 70
	MediumThreshold = 40
)

// BandFor returns the level the given score falls into.
func BandFor(score int) RiskLevel {
	switch {
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// EventJudgment is the structured risk assessment for a single log line.
type EventJudgment struct {
	Log           string    `json:"log"`
	RiskScore     int       `json:"risk_score"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Justification string    `json:"justification"`
	Confidence    int       `json:"confidence"`
}
