package rag

import (
	"fmt"
	"strings"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/models"
	"docqa/internal/vectorstore"
)

// BuildFilter translates user-facing constraints into the index filter.
// It returns nil when no constraint is present so the search runs
// unconstrained. Excluded names and the type value pass through the same
// normalization used at ingest; anything else would silently stop matching.
func BuildFilter(excludedDocs []string, docType, dateAfter, dateBefore string) (*vectorstore.Filter, error) {
	var f vectorstore.Filter

	for _, doc := range excludedDocs {
		name := chunker.NormalizeDocName(doc)
		if name == "" {
			continue
		}
		f.MustNot = append(f.MustNot, vectorstore.Condition{
			Key:   vectorstore.FieldDocName,
			Match: name,
		})
	}

	if t := strings.ToLower(strings.TrimSpace(docType)); t != "" && t != "all" {
		f.Must = append(f.Must, vectorstore.Condition{
			Key:   vectorstore.FieldDocType,
			Match: t,
		})
	}

	gte, err := parseDate(dateAfter)
	if err != nil {
		return nil, err
	}
	lte, err := parseDate(dateBefore)
	if err != nil {
		return nil, err
	}
	if gte != nil || lte != nil {
		f.Must = append(f.Must, vectorstore.Condition{
			Key:   vectorstore.FieldUploadedAt,
			Range: &vectorstore.Range{GTE: gte, LTE: lte},
		})
	}

	if len(f.Must) == 0 && len(f.MustNot) == 0 {
		return nil, nil
	}
	return &f, nil
}

func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid date %q", models.ErrUnsupportedInput, value)
}
