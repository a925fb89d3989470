package chromem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/models"
	"docqa/internal/vectorstore"
)

func newInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Collection: "documents_collection", InMemory: true})
	require.NoError(t, err)
	return s
}

func point(id, doc string, vector []float32) vectorstore.Point {
	return vectorstore.Point{
		ID:     id,
		Vector: vector,
		Text:   "text of " + id,
		Meta: vectorstore.Metadata{
			DocName:    doc,
			DocType:    "other",
			Page:       "page_1",
			UploadedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestEnsureIdempotentAndDimensionChecked(t *testing.T) {
	ctx := context.Background()
	s := newInMemory(t)

	require.NoError(t, s.Ensure(ctx, 3))
	require.NoError(t, s.Ensure(ctx, 3))

	err := s.Ensure(ctx, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestUpsertOverwritesByID(t *testing.T) {
	ctx := context.Background()
	s := newInMemory(t)
	require.NoError(t, s.Ensure(ctx, 2))

	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{point("p1", "a.pdf", []float32{1, 0})}))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{point("p1", "b.pdf", []float32{1, 0})}))

	names, err := s.DistinctValues(ctx, vectorstore.FieldDocName)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf"}, names)
}

func TestUpsertEmptyIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newInMemory(t)
	require.NoError(t, s.Ensure(ctx, 2))
	require.NoError(t, s.Upsert(ctx, nil))
}

func TestUpsertDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := newInMemory(t)
	require.NoError(t, s.Ensure(ctx, 3))

	err := s.Upsert(ctx, []vectorstore.Point{point("p1", "a.pdf", []float32{1, 0})})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestSearchThresholdAndOrdering(t *testing.T) {
	ctx := context.Background()
	s := newInMemory(t)
	require.NoError(t, s.Ensure(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{
		point("exact", "a.pdf", []float32{1, 0}),
		point("orthogonal", "b.pdf", []float32{0, 1}),
		point("diagonal", "c.pdf", []float32{1, 1}),
	}))

	hits, err := s.Search(ctx, []float32{1, 0}, 10, 0.3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].ID)
	assert.Equal(t, "diagonal", hits[1].ID)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, float32(0.3))
	}
}

func TestSearchAppliesFilterBeforeLimit(t *testing.T) {
	ctx := context.Background()
	s := newInMemory(t)
	require.NoError(t, s.Ensure(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{
		point("p1", "a.pdf", []float32{1, 0}),
		point("p2", "b.pdf", []float32{1, 0}),
	}))

	filter := &vectorstore.Filter{
		MustNot: []vectorstore.Condition{{Key: vectorstore.FieldDocName, Match: "a.pdf"}},
	}
	hits, err := s.Search(ctx, []float32{1, 0}, 1, 0.3, filter)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b.pdf", hits[0].Meta.DocName)
}

func TestSearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	s := newInMemory(t)
	require.NoError(t, s.Ensure(ctx, 2))

	hits, err := s.Search(ctx, []float32{1, 0}, 5, 0.3, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDistinctValuesEmptyStore(t *testing.T) {
	s := newInMemory(t)
	names, err := s.DistinctValues(context.Background(), vectorstore.FieldDocName)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDistinctValuesRequiresKnownDimension(t *testing.T) {
	ctx := context.Background()
	s := newInMemory(t)

	// Upsert without a prior Ensure stores the vectors but leaves the
	// dimension unknown, like a freshly opened persistent store.
	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{point("p1", "a.pdf", []float32{1, 0})}))

	_, err := s.DistinctValues(ctx, vectorstore.FieldDocName)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	require.NoError(t, s.Ensure(ctx, 2))
	names, err := s.DistinctValues(ctx, vectorstore.FieldDocName)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, names)
}

func TestRestartedStoreListsDocuments(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Path: t.TempDir(), Collection: "documents_collection"}

	first, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Ensure(ctx, 2))
	require.NoError(t, first.Upsert(ctx, []vectorstore.Point{
		point("p1", "a.pdf", []float32{1, 0}),
		point("p2", "b.pdf", []float32{0, 1}),
	}))

	// A fresh store over the same path starts with no in-process dimension.
	second, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, second.Ensure(ctx, 2))

	names, err := second.DistinctValues(ctx, vectorstore.FieldDocName)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, names)
}

func TestDrop(t *testing.T) {
	ctx := context.Background()
	s := newInMemory(t)
	require.NoError(t, s.Ensure(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{point("p1", "a.pdf", []float32{1, 0})}))

	require.NoError(t, s.Drop(ctx))

	names, err := s.DistinctValues(ctx, vectorstore.FieldDocName)
	require.NoError(t, err)
	assert.Empty(t, names)
	require.NoError(t, s.Ensure(ctx, 4))
}
