package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longText(words int) string {
	var b strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "word%04d", i)
	}
	return b.String()
}

func TestSplitEmptyInput(t *testing.T) {
	s := NewSplitter(500, 50)

	chunks, err := s.Split("")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = s.Split("   \n\t  ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitDeterministic(t *testing.T) {
	s := NewSplitter(500, 50)
	text := longText(300)

	first, err := s.Split(text)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	for i := 0; i < 3; i++ {
		again, err := s.Split(text)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSplitBoundedChunks(t *testing.T) {
	s := NewSplitter(500, 50)
	chunks, err := s.Split(longText(400))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 500)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSplitConsecutiveChunksOverlap(t *testing.T) {
	s := NewSplitter(500, 50)
	chunks, err := s.Split(longText(400))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// The words are position-unique, so the next chunk opening with a word
	// from the previous chunk proves the overlap carried over.
	for i := 0; i < len(chunks)-1; i++ {
		next := strings.Fields(chunks[i+1])
		require.NotEmpty(t, next)
		assert.Contains(t, chunks[i], next[0],
			"chunk %d should share its opening words with chunk %d", i+1, i)
	}
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	s := NewSplitter(500, 50)
	chunks, err := s.Split("just a short note")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a short note", chunks[0])
}

func TestInferDocType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Legal_Contract.pdf", "legal"},
		{"Q3_report_final.pdf", "report"},
		{"HR_Policy_2025.pdf", "policy"},
		{"random.pdf", "other"},
		{"legal_report.pdf", "legal"}, // priority order: legal wins
		{"REPORT.PDF", "report"},
		{"", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferDocType(tt.name), "InferDocType(%q)", tt.name)
	}
}

func TestNormalizeDocName(t *testing.T) {
	assert.Equal(t, "policy_2025.pdf", NormalizeDocName("  Policy_2025.PDF "))
	assert.Equal(t, "", NormalizeDocName("   "))
}
