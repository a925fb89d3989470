package rag

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/models"
	"docqa/internal/vectorstore"
)

func TestBuildFilterAbsentWhenUnconstrained(t *testing.T) {
	f, err := BuildFilter(nil, "", "", "")
	require.NoError(t, err)
	assert.Nil(t, f)

	// "all" is the wildcard sentinel, blank exclusions carry no constraint.
	f, err = BuildFilter([]string{"  "}, "ALL", "", "")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestBuildFilterExcludedDocs(t *testing.T) {
	f, err := BuildFilter([]string{" A.PDF ", "b.pdf"}, "all", "", "")
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Empty(t, f.Must)
	require.Len(t, f.MustNot, 2)
	assert.Equal(t, vectorstore.Condition{Key: vectorstore.FieldDocName, Match: "a.pdf"}, f.MustNot[0])
	assert.Equal(t, vectorstore.Condition{Key: vectorstore.FieldDocName, Match: "b.pdf"}, f.MustNot[1])

	// Round-trip: the built filter drops a.pdf chunks and nothing else.
	assert.False(t, f.Matches(vectorstore.Metadata{DocName: "a.pdf", DocType: "legal"}))
	assert.True(t, f.Matches(vectorstore.Metadata{DocName: "c.pdf", DocType: "legal"}))
}

func TestBuildFilterDocType(t *testing.T) {
	f, err := BuildFilter(nil, " Legal ", "", "")
	require.NoError(t, err)
	require.NotNil(t, f)
	require.Len(t, f.Must, 1)
	assert.Equal(t, vectorstore.Condition{Key: vectorstore.FieldDocType, Match: "legal"}, f.Must[0])
}

func TestBuildFilterDateRange(t *testing.T) {
	f, err := BuildFilter(nil, "", "2025-01-01", "")
	require.NoError(t, err)
	require.NotNil(t, f)
	require.Len(t, f.Must, 1)
	cond := f.Must[0]
	assert.Equal(t, vectorstore.FieldUploadedAt, cond.Key)
	require.NotNil(t, cond.Range)
	require.NotNil(t, cond.Range.GTE)
	assert.Nil(t, cond.Range.LTE)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *cond.Range.GTE)

	f, err = BuildFilter(nil, "", "", "2025-06-30T12:00:00Z")
	require.NoError(t, err)
	require.NotNil(t, f)
	require.NotNil(t, f.Must[0].Range.LTE)
}

func TestBuildFilterBadDate(t *testing.T) {
	_, err := BuildFilter(nil, "", "yesterday", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnsupportedInput))
}
