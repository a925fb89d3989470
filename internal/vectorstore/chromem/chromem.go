// Package chromem stores chunk vectors in an embedded chromem-go database.
// Filtering beyond exact metadata matches happens client-side since chromem
// only supports equality predicates.
package chromem

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"

	"docqa/internal/models"
	"docqa/internal/vectorstore"
)

type Config struct {
	Path       string
	Collection string
	InMemory   bool
	Compress   bool
}

type Store struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	dimension  int
}

func New(cfg Config) (*Store, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: open chromem db: %v", models.ErrConfiguration, err)
		}
	}
	return &Store{db: db, name: cfg.Collection}, nil
}

func (s *Store) Ensure(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid vector dimension %d", models.ErrConfiguration, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == nil {
		c, err := s.db.GetOrCreateCollection(s.name, nil, nil)
		if err != nil {
			return fmt.Errorf("%w: get or create collection: %v", models.ErrIndexTransport, err)
		}
		s.collection = c
	}
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: collection %q has vector dimension %d, embedder produces %d",
			models.ErrConfiguration, s.name, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	col, dimension, err := s.ready()
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		if dimension != 0 && len(p.Vector) != dimension {
			return fmt.Errorf("%w: vector for %s has dimension %d, collection expects %d",
				models.ErrConfiguration, p.ID, len(p.Vector), dimension)
		}
		docs[i] = chromem.Document{
			ID:        p.ID,
			Content:   p.Text,
			Metadata:  encodeMeta(p.Meta),
			Embedding: p.Vector,
		}
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: add documents: %v", models.ErrIndexTransport, err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float32, filter *vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	if limit <= 0 {
		limit = models.DefaultTopK
	}
	col, _, err := s.ready()
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	// Over-fetch everything and filter here: chromem applies no threshold and
	// its Where clause cannot express must_not or date ranges.
	results, err := col.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query collection: %v", models.ErrIndexTransport, err)
	}
	hits := make([]vectorstore.ScoredPoint, 0, limit)
	for _, r := range results {
		meta := decodeMeta(r.Metadata)
		if !filter.Matches(meta) {
			continue
		}
		if r.Similarity < scoreThreshold {
			continue
		}
		hits = append(hits, vectorstore.ScoredPoint{ID: r.ID, Text: r.Content, Meta: meta, Score: r.Similarity})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (s *Store) DistinctValues(ctx context.Context, field string) ([]string, error) {
	col, dimension, err := s.ready()
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if dimension == 0 {
		// The dimension is only learned through Ensure in this process.
		// A scan with a guessed size would fail against stored embeddings
		// of another length, so require Ensure first.
		return nil, fmt.Errorf("%w: collection %q dimension unknown, ensure the collection before scanning",
			models.ErrConfiguration, s.name)
	}
	// chromem has no scroll API; a unit-vector query over the whole
	// collection stands in for one.
	results, err := col.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: unitVector(dimension),
		NResults:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan collection: %v", models.ErrIndexTransport, err)
	}
	seen := map[string]struct{}{}
	var values []string
	for _, r := range results {
		v := decodeMeta(r.Metadata).Field(field)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values, nil
}

func (s *Store) Drop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("%w: delete collection: %v", models.ErrIndexTransport, err)
	}
	s.collection = nil
	s.dimension = 0
	return nil
}

// ready returns the collection and a snapshot of the known dimension taken
// under the lock so callers never race a concurrent Ensure.
func (s *Store) ready() (*chromem.Collection, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == nil {
		c, err := s.db.GetOrCreateCollection(s.name, nil, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: get or create collection: %v", models.ErrIndexTransport, err)
		}
		s.collection = c
	}
	return s.collection, s.dimension, nil
}

func encodeMeta(m vectorstore.Metadata) map[string]string {
	return map[string]string{
		vectorstore.FieldDocName:    m.DocName,
		vectorstore.FieldDocType:    m.DocType,
		vectorstore.FieldPage:       m.Page,
		vectorstore.FieldChunkIndex: strconv.Itoa(m.ChunkIndex),
		vectorstore.FieldUploadedAt: m.UploadedAt.Format(time.RFC3339),
	}
}

func decodeMeta(m map[string]string) vectorstore.Metadata {
	idx, _ := strconv.Atoi(m[vectorstore.FieldChunkIndex])
	uploaded, _ := time.Parse(time.RFC3339, m[vectorstore.FieldUploadedAt])
	return vectorstore.Metadata{
		DocName:    m[vectorstore.FieldDocName],
		DocType:    m[vectorstore.FieldDocType],
		Page:       m[vectorstore.FieldPage],
		ChunkIndex: idx,
		UploadedAt: uploaded,
	}
}

func unitVector(dimension int) []float32 {
	v := make([]float32, dimension)
	v[0] = 1
	return v
}
