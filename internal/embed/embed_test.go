package embed

import (
	"math"
	"testing"
)

func TestHashingEmbedder_Deterministic(t *testing.T) {
	e := NewHashingEmbedder(0)
	text := "2024-01-01 10:00:00 auth failure from gateway"

	first, err := e.Embed(text)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Embed(text)
		if err != nil {
			t.Fatal(err)
		}
		for d := range first {
			if first[d] != again[d] {
				t.Fatalf("run %d: vectors differ at dim %d", i, d)
			}
		}
	}
}

func TestHashingEmbedder_Dim(t *testing.T) {
	if got := NewHashingEmbedder(0).Dim(); got != DefaultDim {
		t.Errorf("default dim = %d, want %d", got, DefaultDim)
	}
	if got := NewHashingEmbedder(128).Dim(); got != 128 {
		t.Errorf("dim = %d, want 128", got)
	}
	e := NewHashingEmbedder(64)
	vec, err := e.Embed("some text")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 64 {
		t.Errorf("vector length = %d", len(vec))
	}
}

func TestHashingEmbedder_Normalized(t *testing.T) {
	e := NewHashingEmbedder(0)
	vec, err := e.Embed("iptables deny tcp port scan detected")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-5 {
		t.Errorf("vector norm = %v, want 1.0", math.Sqrt(sum))
	}
}

func TestHashingEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e := NewHashingEmbedder(0)
	base, _ := e.Embed("connection timeout to database server")
	near, _ := e.Embed("connection timeout to database replica")
	far, _ := e.Embed("scheduled backup completed successfully")

	if Dot(base, near) <= Dot(base, far) {
		t.Errorf("similar text should score higher: near=%v far=%v",
			Dot(base, near), Dot(base, far))
	}
}

func TestHashingEmbedder_EmptyText(t *testing.T) {
	e := NewHashingEmbedder(0)
	vec, err := e.Embed("")
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range vec {
		if x != 0 {
			t.Fatalf("empty text should embed to zero vector")
		}
	}
}

func TestBasicTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Hello World", []string{"hello", "world"}},
		{"auth-failure", []string{"auth", "-", "failure"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{"café", []string{"cafe"}},
	}
	for _, tt := range tests {
		got := basicTokenize(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("basicTokenize(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("basicTokenize(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestMeanPool(t *testing.T) {
	// Two tokens, dim 2; second token masked out.
	hidden := []float32{1, 2, 100, 200}
	mask := []int64{1, 0}
	got := meanPool(hidden, mask, 2, 2)
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("got %v, want [1 2]", got)
	}

	// Both tokens counted.
	mask = []int64{1, 1}
	got = meanPool(hidden, mask, 2, 2)
	if got[0] != 50.5 || got[1] != 101 {
		t.Errorf("got %v, want [50.5 101]", got)
	}
}
