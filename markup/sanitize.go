package markup

import (
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/domcanvas/selector"
)

// Sanitizer strips dangerous constructs from foreign markup fragments
// before they enter the tree or a live render — typically imported
// documents ahead of InjectIdentifiers, and inner-content override
// payloads when the host enables sanitizing.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds a UGC-grade policy that additionally keeps the
// attributes domcanvas depends on: id, class, style, and the identity
// attribute.
func NewSanitizer() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id", "class", "style", selector.IdentityAttr).Globally()
	return &Sanitizer{policy: p}
}

// Sanitize returns the cleaned fragment.
func (s *Sanitizer) Sanitize(fragment string) string {
	return s.policy.Sanitize(fragment)
}
