package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore is a file-backed Store: one JSON file per collection under a
// data directory. Appended records live in "<collection>.json" as an array;
// keyed records live in "<collection>_keyed.json" as an object. Suitable
// for the single-process CLI; a server deployment would swap in a real
// document store behind the same interface.
type JSONStore struct {
	mu  sync.Mutex
	dir string
}

// NewJSONStore creates a JSONStore rooted at dir, creating it if needed.
func NewJSONStore(dir string) (*JSONStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) listPath(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *JSONStore) keyedPath(collection string) string {
	return filepath.Join(s.dir, collection+"_keyed.json")
}

// Append adds a record to the collection's array file.
func (s *JSONStore) Append(collection string, record interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []json.RawMessage
	if data, err := os.ReadFile(s.listPath(collection)); err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("store: corrupt collection %s: %w", collection, err)
		}
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("store: marshal record: %w", err)
	}
	records = append(records, raw)

	return s.writeFile(s.listPath(collection), records)
}

// Set writes a record under key in the collection's keyed file. Existing
// keys are overwritten; callers that need write-once semantics derive
// unique keys.
func (s *JSONStore) Set(collection, key string, record interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[string]json.RawMessage)
	if data, err := os.ReadFile(s.keyedPath(collection)); err == nil {
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("store: corrupt collection %s: %w", collection, err)
		}
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("store: marshal record: %w", err)
	}
	entries[key] = raw

	return s.writeFile(s.keyedPath(collection), entries)
}

// StreamAll returns every appended record in insertion order. A collection
// that was never written streams as empty, not as an error.
func (s *JSONStore) StreamAll(collection string) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.listPath(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read collection %s: %w", collection, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("store: corrupt collection %s: %w", collection, err)
	}
	return records, nil
}

// Get reads a keyed record into out. Returns false when the key is absent.
func (s *JSONStore) Get(collection, key string, out interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.keyedPath(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: read collection %s: %w", collection, err)
	}

	entries := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &entries); err != nil {
		return false, fmt.Errorf("store: corrupt collection %s: %w", collection, err)
	}
	raw, ok := entries[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("store: decode %s/%s: %w", collection, key, err)
	}
	return true, nil
}

func (s *JSONStore) writeFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal collection: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: replace %s: %w", path, err)
	}
	return nil
}
