package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQdrantListCollections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections" || r.Method != "GET" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("api-key"); got != "secret" {
			t.Errorf("api-key header = %q", got)
		}
		w.Write([]byte(`{"result":{"collections":[{"name":"mitre_attack"},{"name":"other"}]}}`))
	}))
	defer srv.Close()

	q := NewQdrantClient(srv.URL, "secret", 0)
	names, err := q.ListCollections(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("got %v", names)
	}
}

func TestQdrantEnsureCollectionCreatesWhenMissing(t *testing.T) {
	var created map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/collections":
			w.Write([]byte(`{"result":{"collections":[]}}`))
		case r.Method == "PUT" && r.URL.Path == "/collections/mitre_attack":
			if err := json.NewDecoder(r.Body).Decode(&created); err != nil {
				t.Fatal(err)
			}
			w.Write([]byte(`{"result":true}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	q := NewQdrantClient(srv.URL, "", 0)
	if err := q.EnsureCollection(context.Background(), "mitre_attack", 384); err != nil {
		t.Fatal(err)
	}
	vectors, ok := created["vectors"].(map[string]interface{})
	if !ok {
		t.Fatalf("create payload missing vectors config: %v", created)
	}
	if vectors["size"] != float64(384) || vectors["distance"] != "Cosine" {
		t.Errorf("vectors config = %v", vectors)
	}
}

func TestQdrantEnsureCollectionSkipsExisting(t *testing.T) {
	var puts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "PUT" {
			puts++
		}
		w.Write([]byte(`{"result":{"collections":[{"name":"mitre_attack"}]}}`))
	}))
	defer srv.Close()

	q := NewQdrantClient(srv.URL, "", 0)
	if err := q.EnsureCollection(context.Background(), "mitre_attack", 384); err != nil {
		t.Fatal(err)
	}
	if puts != 0 {
		t.Errorf("existing collection must not be recreated")
	}
}

func TestQdrantUpsertAndSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "PUT" && r.URL.Path == "/collections/c/points":
			var body struct {
				Points []struct {
					ID      string            `json:"id"`
					Vector  []float32         `json:"vector"`
					Payload map[string]string `json:"payload"`
				} `json:"points"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if len(body.Points) != 1 || body.Points[0].Payload["text"] != "snippet" {
				t.Errorf("unexpected upsert body: %+v", body)
			}
			w.Write([]byte(`{"result":{"status":"completed"}}`))
		case r.Method == "POST" && r.URL.Path == "/collections/c/points/search":
			var body map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["limit"] != float64(5) || body["with_payload"] != true {
				t.Errorf("unexpected search body: %v", body)
			}
			w.Write([]byte(`{"result":[{"payload":{"text":"hit one"}},{"payload":{"text":"hit two"}}]}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	q := NewQdrantClient(srv.URL, "", 0)
	err := q.Upsert(context.Background(), "c", []Point{
		{ID: "id-1", Vector: []float32{0.1, 0.2}, Payload: map[string]string{"text": "snippet"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	hits, err := q.Search(context.Background(), "c", []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].Payload["text"] != "hit one" {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestQdrantErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	q := NewQdrantClient(srv.URL, "wrong", 0)
	if _, err := q.ListCollections(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}
