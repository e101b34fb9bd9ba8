package feedback

import "testing"

func TestRatio_Identical(t *testing.T) {
	line := "2024-01-01 10:00:00 auth failed for service account"
	if got := Ratio(line, line); got != 1.0 {
		t.Errorf("identical strings: ratio = %v, want 1.0", got)
	}
}

func TestRatio_Disjoint(t *testing.T) {
	// No shared characters at all.
	if got := Ratio("aaaa", "zzzz"); got != 0.0 {
		t.Errorf("disjoint strings: ratio = %v, want 0.0", got)
	}
}

func TestRatio_BelowMatchThreshold(t *testing.T) {
	got := Ratio("qqqq wwww", "zx cv bn")
	if got >= MatchThreshold {
		t.Errorf("unrelated strings: ratio = %v, want < %v", got, MatchThreshold)
	}
}

func TestRatio_NearMatch(t *testing.T) {
	a := "2024-01-01 10:00:00 connection timeout to db-primary"
	b := "2024-01-01 10:00:00 connection timeout to db-replica"
	got := Ratio(a, b)
	if got < MatchThreshold {
		t.Errorf("near-identical lines: ratio = %v, want >= %v", got, MatchThreshold)
	}
}

func TestRatio_Empty(t *testing.T) {
	if got := Ratio("", ""); got != 1.0 {
		t.Errorf("both empty: ratio = %v, want 1.0", got)
	}
	if got := Ratio("abc", ""); got != 0.0 {
		t.Errorf("one empty: ratio = %v, want 0.0", got)
	}
}

func TestRatio_Symmetric(t *testing.T) {
	a := "user locked out after retries"
	b := "account locked out after password retries"
	if Ratio(a, b) != Ratio(b, a) {
		t.Errorf("ratio not symmetric: %v vs %v", Ratio(a, b), Ratio(b, a))
	}
}

func TestRatio_Deterministic(t *testing.T) {
	a := "firewall deny tcp 10.0.0.8 -> 10.0.0.9:443"
	b := "firewall deny udp 10.0.0.8 -> 10.0.0.9:53"
	first := Ratio(a, b)
	for i := 0; i < 10; i++ {
		if got := Ratio(a, b); got != first {
			t.Fatalf("run %d: ratio %v != %v", i, got, first)
		}
	}
}
