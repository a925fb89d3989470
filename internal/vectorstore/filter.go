package vectorstore

import "time"

// Filter is a predicate over chunk metadata: every Must condition has to
// hold and no MustNot condition may hold. A nil *Filter means unconstrained
// search; an empty-but-present filter is never built.
type Filter struct {
	Must    []Condition
	MustNot []Condition
}

// Condition constrains one metadata field. Exactly one of Match or Range
// is set.
type Condition struct {
	Key   string
	Match string
	Range *Range
}

// Range bounds a timestamp field. Either bound may be nil; both bounds are
// inclusive.
type Range struct {
	GTE *time.Time
	LTE *time.Time
}

// Matches evaluates the filter against one payload. Backends without native
// filtering (memory, chromem) use this; qdrant and pgvector translate the
// filter into their own predicate language instead.
func (f *Filter) Matches(m Metadata) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Must {
		if !c.holds(m) {
			return false
		}
	}
	for _, c := range f.MustNot {
		if c.holds(m) {
			return false
		}
	}
	return true
}

func (c Condition) holds(m Metadata) bool {
	if c.Range != nil {
		if c.Key != FieldUploadedAt {
			return false
		}
		t := m.UploadedAt
		if c.Range.GTE != nil && t.Before(*c.Range.GTE) {
			return false
		}
		if c.Range.LTE != nil && t.After(*c.Range.LTE) {
			return false
		}
		return true
	}
	return m.Field(c.Key) == c.Match
}
