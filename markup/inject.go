package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/domcanvas/idgen"
	"github.com/hazyhaar/domcanvas/selector"
)

// interactiveTags are element kinds that hosts wire events to; imported
// markup needs them addressable.
var interactiveTags = map[atom.Atom]bool{
	atom.A: true, atom.Button: true, atom.Input: true, atom.Select: true,
	atom.Textarea: true, atom.Form: true, atom.Label: true,
}

// InjectIdentifiers rewrites imported markup so that every interactive-ish
// element (links, buttons, inputs, form elements, anything with an inline
// event-handler attribute) carries either an id or the identity attribute.
// Elements that already have one are left untouched, so repeat calls are
// idempotent.
func InjectIdentifiers(raw string, opts ...ParseOption) (string, error) {
	cfg := parseConfig{
		identityAttr: selector.IdentityAttr,
		suffix:       idgen.NanoID(6),
	}
	for _, o := range opts {
		o(&cfg)
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty input", ErrMalformedMarkup)
	}

	doc, err := html.Parse(strings.NewReader(trimmed))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedMarkup, err)
	}

	counter := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && needsIdentity(n, cfg.identityAttr) {
			n.Attr = append(n.Attr, html.Attribute{
				Key: cfg.identityAttr,
				Val: fmt.Sprintf("%s-%d-%s", n.Data, counter, cfg.suffix()),
			})
			counter++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return renderDocument(doc), nil
}

// needsIdentity reports whether an element is interactive-ish and lacks
// both an id and the identity attribute.
func needsIdentity(n *html.Node, identityAttr string) bool {
	if nodeAttr(n, "id") != "" || nodeAttr(n, identityAttr) != "" {
		return false
	}
	if interactiveTags[n.DataAtom] {
		return true
	}
	for _, a := range n.Attr {
		if strings.HasPrefix(a.Key, "on") && len(a.Key) > 2 {
			return true
		}
	}
	return false
}
