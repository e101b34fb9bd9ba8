package knowledge

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBundle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "enterprise-attack.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAttackDocs(t *testing.T) {
	path := writeBundle(t, `{
		"type": "bundle",
		"objects": [
			{"type": "attack-pattern", "name": "Phishing", "description": "Adversaries may send phishing messages."},
			{"type": "intrusion-set", "name": "APT1", "description": "not a technique"},
			{"type": "attack-pattern", "name": "Brute Force", "description": "Adversaries may attempt many passwords."}
		]
	}`)

	docs, err := LoadAttackDocs(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"Phishing: Adversaries may send phishing messages.",
		"Brute Force: Adversaries may attempt many passwords.",
	}
	if len(docs) != len(want) {
		t.Fatalf("got %d docs, want %d: %v", len(docs), len(want), docs)
	}
	for i := range want {
		if docs[i] != want[i] {
			t.Errorf("docs[%d] = %q, want %q", i, docs[i], want[i])
		}
	}
}

func TestLoadAttackDocsEmptyBundle(t *testing.T) {
	path := writeBundle(t, `{"objects": []}`)
	docs, err := LoadAttackDocs(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no docs, got %v", docs)
	}
}

func TestLoadAttackDocsMissingFile(t *testing.T) {
	if _, err := LoadAttackDocs(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadAttackDocsMalformed(t *testing.T) {
	path := writeBundle(t, `{"objects": [`)
	if _, err := LoadAttackDocs(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
