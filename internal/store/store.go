// Package store provides the persistence collaborator for feedback and
// audit records: append/set/stream over named collections. Records are
// append-only and externally consistent; concurrent writers are acceptable
// because records are keyed by timestamp/log ID.
package store

import "encoding/json"

// Store is the persistence interface the pipeline depends on.
type Store interface {
	// Append adds a record to a collection.
	Append(collection string, record interface{}) error
	// Set writes a record under a fixed key (write-once by convention;
	// callers derive unique keys such as "<logId>_enhanced").
	Set(collection, key string, record interface{}) error
	// StreamAll returns every record in a collection, in insertion order,
	// as raw JSON for the caller to decode.
	StreamAll(collection string) ([]json.RawMessage, error)
}

// AuditCollection holds one entry per analysis run.
const AuditCollection = "audit_logs"

// AuditEntry records that an analysis ran for a log ID. Write-once per key.
type AuditEntry struct {
	LogType   string `json:"log_type"`
	Timestamp string `json:"timestamp"`
}

// DecodeAll unmarshals a streamed collection into typed records, skipping
// records that fail to decode.
func DecodeAll[T any](raws []json.RawMessage) []T {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}
