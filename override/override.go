// Package override records fine-grained edits against selector-addressed
// elements. Records are immutable once created and accumulate in an
// append-only, per-selector log; the chronological flattening of that log
// is the document's authoritative edit history.
package override

import (
	"errors"
	"fmt"
)

// Point is an absolute position in the host canvas, in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimensions is an absolute size in pixels.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Override is one recorded edit. Exactly which payload fields are set is
// up to the caller, but at least one must be present. Timestamps are epoch
// milliseconds supplied by the host; ties keep insertion order.
type Override struct {
	Selector     string            `json:"selector"`
	Text         *string           `json:"text,omitempty"`
	Styles       map[string]string `json:"styles,omitempty"` // changed properties only
	InnerContent *string           `json:"inner_content,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Position     *Point            `json:"position,omitempty"`
	Size         *Dimensions       `json:"size,omitempty"`
	Timestamp    int64             `json:"timestamp"`
	Automated    bool              `json:"automated"` // true when machine-generated, false for manual edits
}

// ErrEmptyOverride rejects records carrying no payload at all.
var ErrEmptyOverride = errors.New("override: no payload fields set")

// Validate checks the structural invariants of a record.
func (o *Override) Validate() error {
	if o.Selector == "" {
		return fmt.Errorf("override: empty selector")
	}
	if o.Text == nil && len(o.Styles) == 0 && o.InnerContent == nil &&
		len(o.Attributes) == 0 && o.Position == nil && o.Size == nil {
		return ErrEmptyOverride
	}
	return nil
}

// HistoryEntry pairs a log record with its timestamp for history UIs.
// Derived 1:1 from the store's chronological enumeration.
type HistoryEntry struct {
	Timestamp int64    `json:"timestamp"`
	Override  Override `json:"override"`
}

// Text returns a *string payload for struct literals.
func Text(s string) *string { return &s }
