package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"docqa/internal/models"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore"
)

// Sort orders accepted by Ask. Anything else falls back to relevance.
const (
	SortRelevance = "relevance"
	SortNewest    = "newest"
	SortOldest    = "oldest"
)

type AskRequest struct {
	Question     string   `json:"question"`
	TopK         int      `json:"top_k"`
	ExcludedDocs []string `json:"excluded_docs"`
	SortBy       string   `json:"sort_by"`
	DocType      string   `json:"doc_type"`
	DateAfter    string   `json:"date_after"`
	DateBefore   string   `json:"date_before"`
}

// Match is one retrieved chunk with its display coordinates.
type Match struct {
	DocID      string  `json:"doc_id"`
	DocName    string  `json:"doc_name"`
	Page       string  `json:"page"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

// DocumentAnswer is the representative chunk of one matched document.
type DocumentAnswer struct {
	DocID    string `json:"doc_id"`
	DocName  string `json:"doc_name"`
	Answer   string `json:"answer"`
	Citation string `json:"citation"`
}

type AskResponse struct {
	ChatID          string           `json:"chat_id"`
	Timestamp       time.Time        `json:"timestamp"`
	Question        string           `json:"question"`
	DocumentAnswers []DocumentAnswer `json:"document_answers"`
	Matches         []Match          `json:"matches"`
	ThemeSummary    string           `json:"theme_summary"`
}

// Ask retrieves chunks relevant to the question under the given constraints
// and summarizes them into themes. An empty result set is a valid terminal
// outcome, not an error.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", models.ErrUnsupportedInput)
	}

	filter, err := BuildFilter(req.ExcludedDocs, req.DocType, req.DateAfter, req.DateBefore)
	if err != nil {
		return nil, err
	}
	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}
	hits, err := s.store.Search(ctx, vector, topK, s.scoreThreshold, filter)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("question", question).Int("hits", len(hits)).Msg("similarity search done")

	resp := &AskResponse{
		ChatID:          s.newID(),
		Timestamp:       s.now().UTC(),
		Question:        question,
		DocumentAnswers: []DocumentAnswer{},
		Matches:         []Match{},
	}
	if len(hits) == 0 {
		resp.ThemeSummary = models.NoResultsSummary
		return resp, nil
	}

	hits = dedupeByID(hits)
	sortHits(hits, req.SortBy)

	// Display ids are assigned alphabetically over the distinct matched
	// names, independent of the chosen ordering, so a fixed result set keeps
	// its ids across sort modes.
	displayIDs := assignDisplayIDs(hits)

	for _, h := range hits {
		resp.Matches = append(resp.Matches, Match{
			DocID:      displayIDs[h.Meta.DocName],
			DocName:    h.Meta.DocName,
			Page:       h.Meta.Page,
			ChunkIndex: h.Meta.ChunkIndex,
			Text:       h.Text,
			Score:      h.Score,
		})
	}

	names := make([]string, 0, len(displayIDs))
	for name := range displayIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		first := firstHitFor(hits, name)
		resp.DocumentAnswers = append(resp.DocumentAnswers, DocumentAnswer{
			DocID:    displayIDs[name],
			DocName:  name,
			Answer:   first.Text,
			Citation: fmt.Sprintf("%s, Page %s, Chunk %d", name, first.Meta.Page, first.Meta.ChunkIndex),
		})
	}

	excerpts := make([]summarizer.Excerpt, len(resp.Matches))
	for i, m := range resp.Matches {
		excerpts[i] = summarizer.Excerpt{
			DocID:      m.DocID,
			Page:       m.Page,
			ChunkIndex: m.ChunkIndex,
			Text:       m.Text,
		}
	}
	summary, err := s.summarizer.Summarize(ctx, excerpts)
	if err != nil {
		// The whole request fails rather than returning answers without a
		// summary; callers see the cause.
		return nil, err
	}
	resp.ThemeSummary = summary
	return resp, nil
}

func dedupeByID(hits []vectorstore.ScoredPoint) []vectorstore.ScoredPoint {
	seen := make(map[string]struct{}, len(hits))
	out := hits[:0]
	for _, h := range hits {
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		out = append(out, h)
	}
	return out
}

func sortHits(hits []vectorstore.ScoredPoint, sortBy string) {
	switch sortBy {
	case SortNewest:
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].Meta.UploadedAt.After(hits[j].Meta.UploadedAt)
		})
	case SortOldest:
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].Meta.UploadedAt.Before(hits[j].Meta.UploadedAt)
		})
	default:
		// relevance: keep the similarity-ranked order from the store.
	}
}

func assignDisplayIDs(hits []vectorstore.ScoredPoint) map[string]string {
	var names []string
	seen := map[string]struct{}{}
	for _, h := range hits {
		if _, ok := seen[h.Meta.DocName]; ok {
			continue
		}
		seen[h.Meta.DocName] = struct{}{}
		names = append(names, h.Meta.DocName)
	}
	sort.Strings(names)
	ids := make(map[string]string, len(names))
	for i, name := range names {
		ids[name] = fmt.Sprintf("DOC%03d", i+1)
	}
	return ids
}

func firstHitFor(hits []vectorstore.ScoredPoint, name string) vectorstore.ScoredPoint {
	for _, h := range hits {
		if h.Meta.DocName == name {
			return h
		}
	}
	return vectorstore.ScoredPoint{}
}
