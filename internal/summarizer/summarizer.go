// Package summarizer packs retrieved excerpts into a token-bounded prompt
// and asks the LLM for a thematic summary.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"docqa/internal/models"
)

// TokenCounter measures how many tokens a string encodes to with the
// tokenizer matching the target model. Injected so tests can substitute
// a fixed counter.
type TokenCounter func(text string) int

// TiktokenCounter returns a TokenCounter backed by the named tiktoken
// encoding.
func TiktokenCounter(encoding string) (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: load encoding %q: %v", models.ErrConfiguration, encoding, err)
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// Completer is the single-turn LLM call the summarizer depends on.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

// Excerpt is one retrieved chunk ready for citation formatting.
type Excerpt struct {
	DocID      string
	Page       string
	ChunkIndex int
	Text       string
}

type Summarizer struct {
	llm         Completer
	count       TokenCounter
	budget      int
	temperature float64
}

func New(llm Completer, count TokenCounter, budget int, temperature float64) *Summarizer {
	if budget <= 0 {
		budget = models.DefaultTokenBudget
	}
	if temperature <= 0 {
		temperature = models.SummaryTemperature
	}
	return &Summarizer{llm: llm, count: count, budget: budget, temperature: temperature}
}

// Summarize formats excerpts in order, keeps them while the running token
// total stays within the budget, and issues one completion. A chunk whose
// tokens would push the total past the budget is dropped and packing stops.
func (s *Summarizer) Summarize(ctx context.Context, excerpts []Excerpt) (string, error) {
	var kept []string
	total := 0
	for _, e := range excerpts {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		line := fmt.Sprintf("[%s, Page %s, Chunk %d] %s", e.DocID, e.Page, e.ChunkIndex, e.Text)
		n := s.count(line)
		if total+n > s.budget {
			break
		}
		total += n
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return models.EmptyExcerptsWarning, nil
	}
	log.Debug().Int("excerpts", len(kept)).Int("tokens", total).Msg("summarizing excerpts")

	userPrompt := models.SummaryPromptHeader + strings.Join(kept, "\n\n")
	return s.llm.Complete(ctx, models.SummarySystemPrompt, userPrompt, s.temperature)
}
