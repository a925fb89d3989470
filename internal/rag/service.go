// Package rag orchestrates the retrieval pipeline: chunking and tagging at
// ingest, filtered similarity search, ranking and display-id assignment,
// and token-budgeted theme summarization at query time.
package rag

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"docqa/internal/chunker"
	"docqa/internal/models"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore"
)

// Embedder maps text to fixed-dimension vectors. Ingest and query share one
// implementation so dimensions always line up.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension(ctx context.Context) (int, error)
}

// ThemeSummarizer turns ordered excerpts into a thematic summary.
type ThemeSummarizer interface {
	Summarize(ctx context.Context, excerpts []summarizer.Excerpt) (string, error)
}

type Options struct {
	TopK           int
	ScoreThreshold float32
	ChunkSize      int
	ChunkOverlap   int
}

// Service is the core the HTTP layer drives. It holds no per-request state;
// the vector store is the only shared resource.
type Service struct {
	store      vectorstore.Store
	embedder   Embedder
	summarizer ThemeSummarizer
	splitter   chunker.Splitter

	topK           int
	scoreThreshold float32

	now   func() time.Time
	newID func() string
}

func NewService(store vectorstore.Store, embedder Embedder, themes ThemeSummarizer, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = models.DefaultTopK
	}
	if opts.ScoreThreshold <= 0 {
		opts.ScoreThreshold = models.DefaultScoreThreshold
	}
	return &Service{
		store:          store,
		embedder:       embedder,
		summarizer:     themes,
		splitter:       chunker.NewSplitter(opts.ChunkSize, opts.ChunkOverlap),
		topK:           opts.TopK,
		scoreThreshold: opts.ScoreThreshold,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// Ingest chunks and stores one document's pages, returning the number of
// chunks written. Re-ingesting a name appends fresh chunks under new ids;
// nothing is deduplicated across uploads.
func (s *Service) Ingest(ctx context.Context, docName string, pages map[string]string) (int, error) {
	name := chunker.NormalizeDocName(docName)
	if name == "" {
		return 0, fmt.Errorf("%w: empty document name", models.ErrUnsupportedInput)
	}
	docType := chunker.InferDocType(name)
	uploadedAt := s.now().UTC().Truncate(time.Second)

	var points []vectorstore.Point
	var texts []string
	for _, page := range sortedPageLabels(pages) {
		chunks, err := s.splitter.Split(pages[page])
		if err != nil {
			return 0, fmt.Errorf("split page %s: %w", page, err)
		}
		for idx, text := range chunks {
			points = append(points, vectorstore.Point{
				ID:   s.newID(),
				Text: text,
				Meta: vectorstore.Metadata{
					DocName:    name,
					DocType:    docType,
					Page:       page,
					ChunkIndex: idx,
					UploadedAt: uploadedAt,
				},
			})
			texts = append(texts, text)
		}
	}
	if len(points) == 0 {
		log.Warn().Str("doc", name).Msg("no valid text to embed")
		return 0, nil
	}

	dimension, err := s.embedder.Dimension(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.store.Ensure(ctx, dimension); err != nil {
		return 0, err
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, err
	}
	for i := range points {
		points[i].Vector = vectors[i]
	}
	if err := s.store.Upsert(ctx, points); err != nil {
		return 0, err
	}
	log.Info().Str("doc", name).Str("type", docType).Int("chunks", len(points)).Msg("document ingested")
	return len(points), nil
}

// ListDocuments returns the sorted distinct document names in the index.
// The collection is ensured at the embedder's dimension first: embedded
// backends only learn the dimension in-process, so a listing issued after a
// restart and before any ingest would otherwise scan with an unknown size.
func (s *Service) ListDocuments(ctx context.Context) ([]string, error) {
	dimension, err := s.embedder.Dimension(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.Ensure(ctx, dimension); err != nil {
		return nil, err
	}
	names, err := s.store.DistinctValues(ctx, vectorstore.FieldDocName)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// DropCollection deletes the collection and all stored chunks.
func (s *Service) DropCollection(ctx context.Context) error {
	return s.store.Drop(ctx)
}

// sortedPageLabels orders page labels naturally so "page_2" sorts before
// "page_10" and chunk ingest order is deterministic.
func sortedPageLabels(pages map[string]string) []string {
	labels := make([]string, 0, len(pages))
	for label := range pages {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		pi, ni := splitLabel(labels[i])
		pj, nj := splitLabel(labels[j])
		if pi != pj {
			return pi < pj
		}
		return ni < nj
	})
	return labels
}

func splitLabel(label string) (string, int) {
	i := len(label)
	for i > 0 && label[i-1] >= '0' && label[i-1] <= '9' {
		i--
	}
	if i == len(label) {
		return label, 0
	}
	n, _ := strconv.Atoi(label[i:])
	return label[:i], n
}
