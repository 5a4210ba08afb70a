// Package markup parses raw markup into an immutable element tree with
// collision-free stable identifiers and generated selectors. The parse
// result is created once per raw string and never mutated afterwards:
// edits are recorded as overrides elsewhere, never written back into the
// tree.
package markup

import "errors"

// ErrMalformedMarkup is returned for empty or tag-unbalanced input.
// No partial ParseResult accompanies it.
var ErrMalformedMarkup = errors.New("markup: malformed markup")

// ElementNode is one element of the parsed tree. Created at parse time and
// immutable afterwards. The parent link is an identifier into the owning
// ParseResult's index, not an owning pointer.
type ElementNode struct {
	ID           string            `json:"id"`
	Tag          string            `json:"tag"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	InlineStyles map[string]string `json:"inline_styles,omitempty"`
	Text         string            `json:"text,omitempty"` // direct text only, no descendants
	Selector     string            `json:"selector"`
	ParentID     string            `json:"parent_id,omitempty"`
	Children     []*ElementNode    `json:"children,omitempty"`
}

// Resources lists external references found in the markup, independent of
// style/script extraction.
type Resources struct {
	Stylesheets []string `json:"stylesheets,omitempty"`
	Scripts     []string `json:"scripts,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// ParseResult is the immutable product of one Parse call.
type ParseResult struct {
	Root       *ElementNode            `json:"root"`
	Index      map[string]*ElementNode `json:"-"`
	StyleText  string                  `json:"style_text,omitempty"`
	ScriptText string                  `json:"script_text,omitempty"`
	Resources  Resources               `json:"resources"`

	rendered string // serialized document, for Render
}

// Node returns the element with the given identifier, or nil.
func (p *ParseResult) Node(id string) *ElementNode {
	return p.Index[id]
}

// Parent resolves an element's parent through the index. Returns nil for
// the root.
func (p *ParseResult) Parent(n *ElementNode) *ElementNode {
	if n == nil || n.ParentID == "" {
		return nil
	}
	return p.Index[n.ParentID]
}

// Render regenerates standalone markup for the parsed document. Export
// pipelines combine this with StyleText/ScriptText to reproduce the
// original document without consulting a live render.
func (p *ParseResult) Render() string {
	return p.rendered
}
