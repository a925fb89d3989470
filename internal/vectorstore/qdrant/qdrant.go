// Package qdrant talks to a Qdrant server over its REST API. The payload
// layout is one nested metadata object per point:
//
//	{"page_content": "...", "metadata": {"doc_name": ..., "doc_type": ...,
//	 "page": ..., "chunk_index": ..., "uploaded_at": ...}}
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docqa/internal/models"
	"docqa/internal/vectorstore"
)

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Store) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Store) Ensure(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid vector dimension %d", models.ErrConfiguration, dimension)
	}
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, &info)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		if _, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
			return err
		}
		return nil
	}
	if got := info.Result.Config.Params.Vectors.Size; got != dimension {
		return fmt.Errorf("%w: collection %q has vector dimension %d, embedder produces %d",
			models.ErrConfiguration, s.collection, got, dimension)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	payload := make([]map[string]any, len(points))
	for i, p := range points {
		payload[i] = map[string]any{
			"id":     p.ID,
			"vector": p.Vector,
			"payload": map[string]any{
				"page_content": p.Text,
				"metadata":     p.Meta,
			},
		}
	}
	body := map[string]any{"points": payload}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
	return err
}

func (s *Store) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float32, filter *vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	if limit <= 0 {
		limit = models.DefaultTopK
	}
	body := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
	}
	if f := encodeFilter(filter); f != nil {
		body["filter"] = f
	}
	var resp struct {
		Result []struct {
			ID      string       `json:"id"`
			Score   float32      `json:"score"`
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), body, &resp); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(resp.Result))
	hits := make([]vectorstore.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		hits = append(hits, vectorstore.ScoredPoint{
			ID:    r.ID,
			Text:  r.Payload.PageContent,
			Meta:  r.Payload.Metadata,
			Score: r.Score,
		})
	}
	return hits, nil
}

func (s *Store) DistinctValues(ctx context.Context, field string) ([]string, error) {
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	seen := map[string]struct{}{}
	var values []string
	var offset json.RawMessage
	for {
		body := map[string]any{
			"limit":        256,
			"with_payload": true,
		}
		if offset != nil {
			body["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					Payload pointPayload `json:"payload"`
				} `json:"points"`
				NextPageOffset json.RawMessage `json:"next_page_offset"`
			} `json:"result"`
		}
		if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), body, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			v := p.Payload.Metadata.Field(field)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
		next := resp.Result.NextPageOffset
		if len(next) == 0 || string(next) == "null" {
			break
		}
		offset = next
	}
	return values, nil
}

func (s *Store) Drop(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil)
	return err
}

type pointPayload struct {
	PageContent string               `json:"page_content"`
	Metadata    vectorstore.Metadata `json:"metadata"`
}

func encodeFilter(f *vectorstore.Filter) map[string]any {
	if f == nil {
		return nil
	}
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = encodeConditions(f.Must)
	}
	if len(f.MustNot) > 0 {
		out["must_not"] = encodeConditions(f.MustNot)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func encodeConditions(conds []vectorstore.Condition) []map[string]any {
	out := make([]map[string]any, len(conds))
	for i, c := range conds {
		key := "metadata." + c.Key
		if c.Range != nil {
			r := map[string]any{}
			if c.Range.GTE != nil {
				r["gte"] = c.Range.GTE.Format(time.RFC3339)
			}
			if c.Range.LTE != nil {
				r["lte"] = c.Range.LTE.Format(time.RFC3339)
			}
			out[i] = map[string]any{"key": key, "datetime_range": r}
			continue
		}
		out[i] = map[string]any{"key": key, "match": map[string]any{"value": c.Match}}
	}
	return out
}

// do issues one request and decodes the response into out when provided.
// A 404 is reported through the returned status so callers can treat a
// missing collection as empty; any other non-2xx status is a transport error.
func (s *Store) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%w: encode request: %v", models.ErrIndexTransport, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrIndexTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", models.ErrIndexTransport, method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %s: %s", models.ErrIndexTransport, method, url, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %v", models.ErrIndexTransport, err)
		}
	}
	return resp.StatusCode, nil
}
