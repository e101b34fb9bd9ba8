package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultQdrantTimeout covers embedding-sized payload upserts and remote
// search round trips, the slowest calls in the pipeline.
const defaultQdrantTimeout = 30 * time.Second

// QdrantClient talks to a Qdrant instance over its REST API.
type QdrantClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewQdrantClient creates a client for the given endpoint. apiKey may be
// empty for unauthenticated local instances. timeoutSec 0 keeps the
// default.
func NewQdrantClient(baseURL, apiKey string, timeoutSec int) *QdrantClient {
	timeout := defaultQdrantTimeout
	if timeoutSec > 0 {
		timeout = time.Duration(timeoutSec) * time.Second
	}
	return &QdrantClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (q *QdrantClient) ListCollections(ctx context.Context) ([]string, error) {
	body, err := q.do(ctx, "GET", "/collections", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("qdrant: decode collections: %w", err)
	}
	names := make([]string, 0, len(result.Result.Collections))
	for _, c := range result.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

func (q *QdrantClient) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	existing, err := q.ListCollections(ctx)
	if err != nil {
		return err
	}
	for _, n := range existing {
		if n == name {
			return nil
		}
	}
	payload := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	_, err = q.do(ctx, "PUT", "/collections/"+name, payload)
	return err
}

func (q *QdrantClient) Upsert(ctx context.Context, collection string, points []Point) error {
	type wirePoint struct {
		ID      string            `json:"id"`
		Vector  []float32         `json:"vector"`
		Payload map[string]string `json:"payload"`
	}
	wire := make([]wirePoint, len(points))
	for i, p := range points {
		wire[i] = wirePoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	_, err := q.do(ctx, "PUT", "/collections/"+collection+"/points", map[string]interface{}{
		"points": wire,
	})
	return err
}

func (q *QdrantClient) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Hit, error) {
	body, err := q.do(ctx, "POST", "/collections/"+collection+"/points/search", map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	})
	if err != nil {
		return nil, err
	}
	var result struct {
		Result []struct {
			Payload map[string]string `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("qdrant: decode search result: %w", err)
	}
	hits := make([]Hit, len(result.Result))
	for i, r := range result.Result {
		hits[i] = Hit{Payload: r.Payload}
	}
	return hits, nil
}

func (q *QdrantClient) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("qdrant: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("qdrant: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant: http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("qdrant: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant: %s %s: status %d: %s", method, path, resp.StatusCode, body)
	}
	return body, nil
}
