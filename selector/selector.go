// Package selector generates and resolves CSS selectors for elements of a
// parsed markup tree. Generation prefers stable identity (an id attribute,
// then the generated-identity attribute) over structural position; only
// elements without identity fall back to tag/class selectors disambiguated
// with :nth-child and a parent prefix.
//
// The resolution engine understands the subset of CSS the generator emits:
// tag, #id, .class chains, [attr] and [attr="val"], :nth-child(n), and the
// descendant (space) and child (>) combinators.
package selector

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// IdentityAttr is the dedicated generated-identity attribute. Elements that
// carry it are addressable without relying on structural position.
const IdentityAttr = "data-canvas-id"

// Generate returns a selector for n that resolves to exactly n within root,
// using the default identity attribute. An element outside root still gets a
// best-effort absolute path rather than an error.
func Generate(n, root *html.Node) string {
	return GenerateIdentity(n, root, IdentityAttr)
}

// GenerateIdentity is Generate with a caller-chosen identity attribute.
func GenerateIdentity(n, root *html.Node, identityAttr string) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}

	base, unique := baseSelector(n, identityAttr)
	if unique {
		return base
	}

	parent := parentElement(n)

	if hasElementSiblings(n) {
		// Positional disambiguation plus a parent anchor. The recursion
		// stops at an ancestor with an identity-based selector or at root.
		base = fmt.Sprintf("%s:nth-child(%d)", base, elementIndex(n))
		if parent == nil || n == root || parent == root {
			return base
		}
		if prefix := GenerateIdentity(parent, root, identityAttr); prefix != "" {
			return prefix + " > " + base
		}
		return base
	}

	// Only child: the bare selector is usually enough. Anchor to the parent
	// only when it is ambiguous within root (or when n sits outside root,
	// where the best effort is an absolute path).
	if parent == nil || n == root || parent == root {
		return base
	}
	if root != nil && Validate(base, root) {
		return base
	}
	if prefix := GenerateIdentity(parent, root, identityAttr); prefix != "" {
		return prefix + " > " + base
	}
	return base
}

// baseSelector returns the identity-first selector for a single element and
// whether that form is globally unique (id or identity-attribute based).
func baseSelector(n *html.Node, identityAttr string) (string, bool) {
	if id := getAttr(n, "id"); id != "" {
		return "#" + EscapeIdent(id), true
	}
	if v := getAttr(n, identityAttr); v != "" {
		return fmt.Sprintf(`[%s=%q]`, identityAttr, v), true
	}

	tag := n.Data
	classes := strings.Fields(getAttr(n, "class"))
	if len(classes) == 0 {
		return tag, false
	}
	var sb strings.Builder
	sb.WriteString(tag)
	for _, c := range classes {
		sb.WriteByte('.')
		sb.WriteString(EscapeIdent(c))
	}
	return sb.String(), false
}

// EscapeIdent backslash-escapes every character outside [A-Za-z0-9_-].
func EscapeIdent(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// parentElement returns the nearest element ancestor, or nil.
func parentElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// hasElementSiblings reports whether n shares its parent with other elements.
func hasElementSiblings(n *html.Node) bool {
	if n.Parent == nil {
		return false
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c != n {
			return true
		}
	}
	return false
}

// elementIndex returns the 1-based position of n among its parent's element
// children (CSS :nth-child semantics).
func elementIndex(n *html.Node) int {
	idx := 1
	if n.Parent == nil {
		return idx
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			return idx
		}
		if c.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}

// getAttr returns the value of an attribute on a node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// hasAttr checks if a node has a specific attribute.
func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
