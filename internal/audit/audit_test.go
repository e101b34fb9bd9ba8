package audit

import (
	"testing"

	"github.com/forensiq/forensiq/internal/classify"
)

func judgment(log string, score int, level classify.RiskLevel, justification string, confidence int) classify.EventJudgment {
	return classify.EventJudgment{
		Log:           log,
		RiskScore:     score,
		RiskLevel:     level,
		Justification: justification,
		Confidence:    confidence,
	}
}

func findingsWithIssue(findings []Finding, issue Issue) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Issue == issue {
			out = append(out, f)
		}
	}
	return out
}

func TestAudit_ScoreLevelMismatch(t *testing.T) {
	tests := []struct {
		name  string
		score int
		level classify.RiskLevel
		want  int
	}{
		{"high score non-high level", 85, classify.LevelMedium, 1},
		{"high score correct level", 85, classify.LevelHigh, 0},
		{"medium score low level", 55, classify.LevelLow, 1},
		{"medium score correct level", 55, classify.LevelMedium, 0},
		{"low score high level", 20, classify.LevelHigh, 1},
		{"low score correct level", 20, classify.LevelLow, 0},
		{"boundary 70 is high", 70, classify.LevelMedium, 1},
		{"boundary 40 is medium", 40, classify.LevelLow, 1},
		{"boundary 39 is low", 39, classify.LevelLow, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Audit([]classify.EventJudgment{
				judgment("service restarted", tt.score, tt.level, "observed restart", 50),
			})
			if n := len(findingsWithIssue(got, ScoreLevelMismatch)); n != tt.want {
				t.Errorf("mismatch findings = %d, want %d (all: %+v)", n, tt.want, got)
			}
		})
	}
}

func TestAudit_OverconfidentVagueJustification(t *testing.T) {
	got := Audit([]classify.EventJudgment{
		judgment("cron run", 50, classify.LevelMedium, "possible maintenance window", 90),
	})
	if len(findingsWithIssue(got, OverconfidentVagueJustification)) != 1 {
		t.Errorf("expected overconfidence finding, got %+v", got)
	}

	// Confidence at the floor does not trigger.
	got = Audit([]classify.EventJudgment{
		judgment("cron run", 50, classify.LevelMedium, "possible maintenance window", 85),
	})
	if len(findingsWithIssue(got, OverconfidentVagueJustification)) != 0 {
		t.Errorf("confidence 85 should not trigger, got %+v", got)
	}
}

func TestAudit_UnderratedCriticalEvent(t *testing.T) {
	got := Audit([]classify.EventJudgment{
		judgment("upstream returned 503", 40, classify.LevelMedium, "transient error", 60),
	})
	if len(findingsWithIssue(got, UnderratedCriticalEvent)) != 1 {
		t.Errorf("expected underrated finding, got %+v", got)
	}

	got = Audit([]classify.EventJudgment{
		judgment("upstream returned 503", 75, classify.LevelHigh, "service outage", 80),
	})
	if len(findingsWithIssue(got, UnderratedCriticalEvent)) != 0 {
		t.Errorf("score >= 70 should not trigger, got %+v", got)
	}
}

func TestAudit_VagueJustificationHighScore(t *testing.T) {
	got := Audit([]classify.EventJudgment{
		judgment("config change", 45, classify.LevelMedium, "routine config update", 50),
	})
	if len(findingsWithIssue(got, VagueJustificationHighScore)) != 1 {
		t.Errorf("expected vague-justification finding, got %+v", got)
	}

	got = Audit([]classify.EventJudgment{
		judgment("config change", 25, classify.LevelLow, "routine config update", 50),
	})
	if len(findingsWithIssue(got, VagueJustificationHighScore)) != 0 {
		t.Errorf("score <= 30 should not trigger, got %+v", got)
	}
}

func TestAudit_UnderratedPrecursor(t *testing.T) {
	spike := []classify.EventJudgment{
		judgment("backup started", 10, classify.LevelLow, "scheduled job", 70),
		judgment("disk warning", 20, classify.LevelLow, "capacity notice", 60),
		judgment("service crash", 90, classify.LevelHigh, "fatal error", 95),
	}
	got := Audit(spike)
	precursors := findingsWithIssue(got, UnderratedPrecursor)
	if len(precursors) != 1 || precursors[0].Log != "backup started" {
		t.Errorf("expected one precursor finding on first entry, got %+v", precursors)
	}

	flat := []classify.EventJudgment{
		judgment("backup started", 10, classify.LevelLow, "scheduled job", 70),
		judgment("disk warning", 20, classify.LevelLow, "capacity notice", 60),
		judgment("cache refresh", 20, classify.LevelLow, "scheduled job", 60),
	}
	if n := len(findingsWithIssue(Audit(flat), UnderratedPrecursor)); n != 0 {
		t.Errorf("no spike should mean no precursor findings, got %d", n)
	}

	// Fewer than two entries after i: rule is skipped, not an error.
	short := []classify.EventJudgment{
		judgment("backup started", 10, classify.LevelLow, "scheduled job", 70),
		judgment("service crash", 90, classify.LevelHigh, "fatal error", 95),
	}
	if n := len(findingsWithIssue(Audit(short), UnderratedPrecursor)); n != 0 {
		t.Errorf("short tail should skip precursor rule, got %d findings", n)
	}
}

func TestAudit_RulesAreIndependent(t *testing.T) {
	// One judgment can raise several findings at once.
	got := Audit([]classify.EventJudgment{
		judgment("connection timeout to db", 50, classify.LevelLow, "normal retry behavior", 95),
	})
	issues := map[Issue]bool{}
	for _, f := range got {
		issues[f.Issue] = true
	}
	for _, want := range []Issue{
		ScoreLevelMismatch,              // 50 labeled Low
		OverconfidentVagueJustification, // 95 over "normal"
		UnderratedCriticalEvent,         // "timeout" at 50
		VagueJustificationHighScore,     // "normal" at 50
	} {
		if !issues[want] {
			t.Errorf("missing issue %q in %+v", want, got)
		}
	}
}

func TestAudit_Empty(t *testing.T) {
	if got := Audit(nil); len(got) != 0 {
		t.Errorf("empty input should yield no findings, got %+v", got)
	}
}
