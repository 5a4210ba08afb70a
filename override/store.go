package override

import "sort"

// Store keeps per-selector, insertion-ordered lists of override records.
// Append-only apart from explicit single-record removal and full truncation.
// Not safe for concurrent use; the host serializes access per document.
type Store struct {
	bySelector map[string][]Override
	order      []string // selectors in first-seen order, for stable enumeration
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{bySelector: make(map[string][]Override)}
}

// Add appends a record to its selector's list. It never rejects or
// deduplicates; conflicting edits are resolved at merge/replay time.
func (s *Store) Add(o Override) {
	if _, ok := s.bySelector[o.Selector]; !ok {
		s.order = append(s.order, o.Selector)
	}
	s.bySelector[o.Selector] = append(s.bySelector[o.Selector], o)
}

// MergeBySelector folds a selector's records into a single one: ascending
// timestamp order, style and attribute maps merged key-by-key, scalar
// payloads (text, inner content, position, size) replaced wholesale.
// The merged timestamp is the latest contributor's; the merged origin flag
// is true if any contributor was automated. Unknown selectors yield nil.
// Idempotent: merging a merged record yields itself.
func (s *Store) MergeBySelector(sel string) *Override {
	records := s.bySelector[sel]
	if len(records) == 0 {
		return nil
	}

	sorted := make([]Override, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	merged := Override{Selector: sel}
	for _, o := range sorted {
		if o.Text != nil {
			merged.Text = o.Text
		}
		if len(o.Styles) > 0 {
			if merged.Styles == nil {
				merged.Styles = make(map[string]string)
			}
			for k, v := range o.Styles {
				merged.Styles[k] = v
			}
		}
		if o.InnerContent != nil {
			merged.InnerContent = o.InnerContent
		}
		if len(o.Attributes) > 0 {
			if merged.Attributes == nil {
				merged.Attributes = make(map[string]string)
			}
			for k, v := range o.Attributes {
				merged.Attributes[k] = v
			}
		}
		if o.Position != nil {
			merged.Position = o.Position
		}
		if o.Size != nil {
			merged.Size = o.Size
		}
		if o.Timestamp > merged.Timestamp {
			merged.Timestamp = o.Timestamp
		}
		merged.Automated = merged.Automated || o.Automated
	}
	return &merged
}

// RemoveOne deletes the record with the exact timestamp under a selector.
// The selector disappears entirely once its list is empty. Reports whether
// a removal happened.
func (s *Store) RemoveOne(sel string, timestamp int64) bool {
	records, ok := s.bySelector[sel]
	if !ok {
		return false
	}
	for i, o := range records {
		if o.Timestamp == timestamp {
			records = append(records[:i], records[i+1:]...)
			if len(records) == 0 {
				delete(s.bySelector, sel)
				s.dropFromOrder(sel)
			} else {
				s.bySelector[sel] = records
			}
			return true
		}
	}
	return false
}

// AllChronological flattens every record and sorts by timestamp ascending.
// Ties keep insertion order (stable sort over first-seen selector order).
// This is the authoritative history order for replay and restore.
func (s *Store) AllChronological() []Override {
	var all []Override
	for _, sel := range s.order {
		all = append(all, s.bySelector[sel]...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp < all[j].Timestamp
	})
	return all
}

// History returns the chronological log as HistoryEntry pairs.
func (s *Store) History() []HistoryEntry {
	all := s.AllChronological()
	entries := make([]HistoryEntry, len(all))
	for i, o := range all {
		entries[i] = HistoryEntry{Timestamp: o.Timestamp, Override: o}
	}
	return entries
}

// TruncateAfter removes every record with a timestamp strictly greater
// than the target, returning how many were dropped. Supports
// restore-to-version semantics.
func (s *Store) TruncateAfter(timestamp int64) int {
	dropped := 0
	for _, sel := range append([]string(nil), s.order...) {
		records := s.bySelector[sel]
		kept := records[:0]
		for _, o := range records {
			if o.Timestamp <= timestamp {
				kept = append(kept, o)
			} else {
				dropped++
			}
		}
		if len(kept) == 0 {
			delete(s.bySelector, sel)
			s.dropFromOrder(sel)
		} else {
			s.bySelector[sel] = kept
		}
	}
	return dropped
}

// Clear removes every record.
func (s *Store) Clear() {
	s.bySelector = make(map[string][]Override)
	s.order = nil
}

// Count returns the total number of records across all selectors.
func (s *Store) Count() int {
	n := 0
	for _, records := range s.bySelector {
		n += len(records)
	}
	return n
}

// Selectors returns the selectors with at least one record, in first-seen
// order.
func (s *Store) Selectors() []string {
	return append([]string(nil), s.order...)
}

// Has reports whether a selector has any records.
func (s *Store) Has(sel string) bool {
	return len(s.bySelector[sel]) > 0
}

func (s *Store) dropFromOrder(sel string) {
	for i, v := range s.order {
		if v == sel {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
