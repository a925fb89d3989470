package chunker

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"docqa/internal/models"
)

// Splitter cuts page text into bounded, overlapping chunks. It prefers
// paragraph, then line, then sentence, then word boundaries before falling
// back to hard character cuts.
type Splitter struct {
	inner textsplitter.RecursiveCharacter
}

func NewSplitter(chunkSize, chunkOverlap int) Splitter {
	if chunkSize <= 0 {
		chunkSize = models.DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = models.DefaultChunkOverlap
	}
	return Splitter{
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
		),
	}
}

// Split returns the chunk sequence for one page of text. Empty or
// whitespace-only input yields no chunks; whitespace-only chunks are dropped.
func (s Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parts, err := s.inner.SplitText(text)
	if err != nil {
		return nil, err
	}
	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, p)
	}
	return chunks, nil
}

// NormalizeDocName produces the canonical document identifier used both at
// ingest and in query filters. Filter values must go through this exact
// normalization or exclusions silently stop matching.
func NormalizeDocName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// InferDocType categorizes a document by keywords in its name, first match
// wins: legal, report, policy, otherwise "other".
func InferDocType(docName string) string {
	name := strings.ToLower(docName)
	switch {
	case strings.Contains(name, "legal"):
		return "legal"
	case strings.Contains(name, "report"):
		return "report"
	case strings.Contains(name, "policy"):
		return "policy"
	default:
		return "other"
	}
}
