// Package vectorstore defines the contract between the retrieval core and the
// interchangeable vector index backends.
package vectorstore

import (
	"context"
	"strconv"
	"time"
)

// Metadata is the structured payload stored alongside every chunk vector.
type Metadata struct {
	DocName    string    `json:"doc_name"`
	DocType    string    `json:"doc_type"`
	Page       string    `json:"page"`
	ChunkIndex int       `json:"chunk_index"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Field returns the string form of a metadata field by its payload key.
// Unknown keys return "".
func (m Metadata) Field(key string) string {
	switch key {
	case FieldDocName:
		return m.DocName
	case FieldDocType:
		return m.DocType
	case FieldPage:
		return m.Page
	case FieldChunkIndex:
		return strconv.Itoa(m.ChunkIndex)
	case FieldUploadedAt:
		return m.UploadedAt.Format(time.RFC3339)
	}
	return ""
}

// Payload field keys as stored in the index.
const (
	FieldDocName    = "doc_name"
	FieldDocType    = "doc_type"
	FieldPage       = "page"
	FieldChunkIndex = "chunk_index"
	FieldUploadedAt = "uploaded_at"
)

// Point is one chunk ready for storage.
type Point struct {
	ID     string
	Vector []float32
	Text   string
	Meta   Metadata
}

// ScoredPoint is one search hit. Score is cosine similarity, higher is better.
type ScoredPoint struct {
	ID    string
	Text  string
	Meta  Metadata
	Score float32
}

// Store is a single named collection of chunk vectors.
type Store interface {
	// Ensure creates the collection with the given vector dimension if it
	// does not exist. Calling it again is a no-op, except that a dimension
	// mismatch with an existing collection is a configuration error.
	Ensure(ctx context.Context, dimension int) error

	// Upsert writes points keyed by id, overwriting on id collision.
	// An empty slice is a no-op.
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to limit points with similarity >= scoreThreshold,
	// ordered by descending similarity, with filter applied before the
	// threshold and limit. Results never contain duplicate ids.
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float32, filter *Filter) ([]ScoredPoint, error)

	// DistinctValues scans all stored payloads and returns the distinct
	// values of the given metadata field. A missing or empty collection
	// yields an empty result, not an error.
	DistinctValues(ctx context.Context, field string) ([]string, error)

	// Drop deletes the collection and everything in it.
	Drop(ctx context.Context) error
}
