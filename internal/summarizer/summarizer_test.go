package summarizer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/models"
)

type fakeCompleter struct {
	called      bool
	system      string
	user        string
	temperature float64
	response    string
	err         error
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	f.called = true
	f.system = systemPrompt
	f.user = userPrompt
	f.temperature = temperature
	return f.response, f.err
}

// wordCounter makes token counts predictable: one token per whitespace field.
func wordCounter(s string) int { return len(strings.Fields(s)) }

func TestSummarizeFormatsCitations(t *testing.T) {
	llm := &fakeCompleter{response: "themes"}
	s := New(llm, wordCounter, 4800, 0.4)

	out, err := s.Summarize(context.Background(), []Excerpt{
		{DocID: "DOC001", Page: "page_2", ChunkIndex: 3, Text: "severance terms apply"},
	})
	require.NoError(t, err)
	assert.Equal(t, "themes", out)
	assert.True(t, llm.called)
	assert.Equal(t, models.SummarySystemPrompt, llm.system)
	assert.Equal(t, 0.4, llm.temperature)
	assert.Contains(t, llm.user, "[DOC001, Page page_2, Chunk 3] severance terms apply")
	assert.True(t, strings.HasPrefix(llm.user, models.SummaryPromptHeader))
}

func TestSummarizeStopsAtBudget(t *testing.T) {
	// Counter keyed by marker words so each formatted excerpt has a fixed
	// token cost: 100, 4750, 200 against a budget of 4800. Adding the second
	// excerpt would overflow, so packing stops after the first.
	counter := func(s string) int {
		switch {
		case strings.Contains(s, "alpha"):
			return 100
		case strings.Contains(s, "beta"):
			return 4750
		default:
			return 200
		}
	}
	llm := &fakeCompleter{response: "themes"}
	s := New(llm, counter, 4800, 0.4)

	_, err := s.Summarize(context.Background(), []Excerpt{
		{DocID: "DOC001", Page: "page_1", ChunkIndex: 0, Text: "alpha"},
		{DocID: "DOC001", Page: "page_1", ChunkIndex: 1, Text: "beta"},
		{DocID: "DOC002", Page: "page_1", ChunkIndex: 0, Text: "gamma"},
	})
	require.NoError(t, err)
	assert.Contains(t, llm.user, "alpha")
	assert.NotContains(t, llm.user, "beta")
	assert.NotContains(t, llm.user, "gamma")
}

func TestSummarizeSkipsBlankExcerpts(t *testing.T) {
	llm := &fakeCompleter{response: "themes"}
	s := New(llm, wordCounter, 4800, 0.4)

	_, err := s.Summarize(context.Background(), []Excerpt{
		{DocID: "DOC001", Page: "page_1", ChunkIndex: 0, Text: "   "},
		{DocID: "DOC001", Page: "page_1", ChunkIndex: 1, Text: "real content"},
	})
	require.NoError(t, err)
	assert.NotContains(t, llm.user, "Chunk 0]")
	assert.Contains(t, llm.user, "real content")
}

func TestSummarizeNothingFitsReturnsWarning(t *testing.T) {
	llm := &fakeCompleter{response: "themes"}
	s := New(llm, func(string) int { return 5000 }, 4800, 0.4)

	out, err := s.Summarize(context.Background(), []Excerpt{
		{DocID: "DOC001", Page: "page_1", ChunkIndex: 0, Text: "too big"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EmptyExcerptsWarning, out)
	assert.False(t, llm.called, "the LLM must not be called without excerpts")
}

func TestSummarizeEmptyInputReturnsWarning(t *testing.T) {
	llm := &fakeCompleter{response: "themes"}
	s := New(llm, wordCounter, 4800, 0.4)

	out, err := s.Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.EmptyExcerptsWarning, out)
	assert.False(t, llm.called)
}
