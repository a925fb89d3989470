// Package memory is a brute-force in-process vector store. It backs tests
// and dependency-free development runs.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/models"
	"docqa/internal/vectorstore"
)

type Store struct {
	mu        sync.RWMutex
	dimension int
	byID      map[string]int
	points    []vectorstore.Point
}

func New() *Store {
	return &Store{byID: map[string]int{}}
}

func (s *Store) Ensure(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid vector dimension %d", models.ErrConfiguration, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: collection has dimension %d, requested %d", models.ErrConfiguration, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Store) Upsert(_ context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		if s.dimension != 0 && len(p.Vector) != s.dimension {
			return fmt.Errorf("%w: vector for %s has dimension %d, collection expects %d",
				models.ErrConfiguration, p.ID, len(p.Vector), s.dimension)
		}
		if i, ok := s.byID[p.ID]; ok {
			s.points[i] = p
			continue
		}
		s.byID[p.ID] = len(s.points)
		s.points = append(s.points, p)
	}
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, limit int, scoreThreshold float32, filter *vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = models.DefaultTopK
	}
	var hits []vectorstore.ScoredPoint
	for _, p := range s.points {
		if !filter.Matches(p.Meta) {
			continue
		}
		score := cosine(vector, p.Vector)
		if score < scoreThreshold {
			continue
		}
		hits = append(hits, vectorstore.ScoredPoint{ID: p.ID, Text: p.Text, Meta: p.Meta, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) DistinctValues(_ context.Context, field string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	var values []string
	for _, p := range s.points {
		v := p.Meta.Field(field)
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
	s.dimension = 0
	s.points = nil
	s.byID = map[string]int{}
	return nil
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
