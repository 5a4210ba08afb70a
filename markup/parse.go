package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/domcanvas/idgen"
	"github.com/hazyhaar/domcanvas/selector"
)

// voidTags are self-closing tag names excluded from the open/close balance
// check.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

type parseConfig struct {
	styleText    *string
	scriptText   *string
	identityAttr string
	suffix       idgen.Generator
}

// ParseOption configures a Parse call.
type ParseOption func(*parseConfig)

// WithStyleText supplies pre-extracted style text, skipping embedded
// <style> extraction.
func WithStyleText(s string) ParseOption {
	return func(c *parseConfig) { c.styleText = &s }
}

// WithScriptText supplies pre-extracted script text, skipping embedded
// <script> extraction.
func WithScriptText(s string) ParseOption {
	return func(c *parseConfig) { c.scriptText = &s }
}

// WithIdentityAttr overrides the generated-identity attribute name.
// Default: selector.IdentityAttr.
func WithIdentityAttr(name string) ParseOption {
	return func(c *parseConfig) { c.identityAttr = name }
}

// WithSuffixGenerator overrides the random-suffix generator used for
// synthesized identifiers. Default: idgen.NanoID(6).
func WithSuffixGenerator(gen idgen.Generator) ParseOption {
	return func(c *parseConfig) { c.suffix = gen }
}

// Parse turns raw markup into a ParseResult. It fails with
// ErrMalformedMarkup when the input is empty/whitespace-only or when
// open/close tag-name counts mismatch (void elements ignored).
func Parse(raw string, opts ...ParseOption) (*ParseResult, error) {
	cfg := parseConfig{
		identityAttr: selector.IdentityAttr,
		suffix:       idgen.NanoID(6),
	}
	for _, o := range opts {
		o(&cfg)
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedMarkup)
	}
	if err := checkBalance(trimmed); err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMarkup, err)
	}

	contentRoot := findBody(doc)
	if contentRoot == nil {
		// html.Parse always synthesizes a body for text/html; a missing one
		// means the fragment itself is the content root.
		contentRoot = doc
	}

	p := &treeBuilder{
		cfg:     cfg,
		claimed: make(map[string]bool),
		index:   make(map[string]*ElementNode),
		root:    contentRoot,
	}
	rootNode := p.build(contentRoot, "")

	result := &ParseResult{
		Root:     rootNode,
		Index:    p.index,
		rendered: renderDocument(doc),
	}

	if cfg.styleText != nil {
		result.StyleText = *cfg.styleText
	} else {
		result.StyleText = extractBlocks(doc, atom.Style)
	}
	if cfg.scriptText != nil {
		result.ScriptText = *cfg.scriptText
	} else {
		result.ScriptText = extractBlocks(doc, atom.Script)
	}

	result.Resources = collectResources(doc)
	return result, nil
}

// checkBalance counts open vs close tags per name with the HTML tokenizer.
func checkBalance(raw string) error {
	opens := make(map[string]int)
	closes := make(map[string]int)

	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			for name, n := range opens {
				if closes[name] != n {
					return fmt.Errorf("%w: tag balance mismatch for <%s> (%d open, %d close)",
						ErrMalformedMarkup, name, n, closes[name])
				}
			}
			for name, n := range closes {
				if opens[name] != n {
					return fmt.Errorf("%w: tag balance mismatch for <%s> (%d open, %d close)",
						ErrMalformedMarkup, name, opens[name], n)
				}
			}
			return nil
		case html.StartTagToken:
			name, _ := z.TagName()
			if !voidTags[string(name)] {
				opens[string(name)]++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if !voidTags[string(name)] {
				closes[string(name)]++
			}
		}
	}
}

// treeBuilder assigns identifiers and selectors while walking the parsed
// tree parent-before-child. Uniqueness is scoped to one parse call.
type treeBuilder struct {
	cfg     parseConfig
	claimed map[string]bool
	index   map[string]*ElementNode
	root    *html.Node
	counter int
}

func (b *treeBuilder) build(n *html.Node, parentID string) *ElementNode {
	node := &ElementNode{
		Tag:      n.Data,
		ParentID: parentID,
	}
	if n == b.root && n.Type != html.ElementNode {
		node.Tag = "#document"
	}

	node.ID = b.assignID(n, node.Tag)
	node.Selector = selector.GenerateIdentity(n, b.root, b.cfg.identityAttr)
	node.Attributes = attrMap(n)
	node.InlineStyles = parseInlineStyle(node.Attributes["style"])
	node.Text = directText(n)

	b.index[node.ID] = node

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		node.Children = append(node.Children, b.build(c, node.ID))
	}
	return node
}

// assignID reuses an id-like attribute, then the identity attribute, then
// synthesizes <tag>-<counter>-<suffix>, retrying on collision.
func (b *treeBuilder) assignID(n *html.Node, tag string) string {
	if id := nodeAttr(n, "id"); id != "" && !b.claimed[id] {
		b.claimed[id] = true
		return id
	}
	if v := nodeAttr(n, b.cfg.identityAttr); v != "" && !b.claimed[v] {
		b.claimed[v] = true
		return v
	}
	for {
		id := fmt.Sprintf("%s-%d-%s", tag, b.counter, b.cfg.suffix())
		if !b.claimed[id] {
			b.claimed[id] = true
			b.counter++
			return id
		}
	}
}

// directText concatenates the trimmed text of n's immediate text-node
// children, excluding descendant text.
func directText(n *html.Node) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		if t := strings.TrimSpace(c.Data); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// parseInlineStyle splits a style attribute into a property map.
func parseInlineStyle(style string) map[string]string {
	if strings.TrimSpace(style) == "" {
		return nil
	}
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// extractBlocks gathers the text of every embedded block of the given tag
// (script blocks with a src attribute are references, not content), trims
// each, and joins them with a blank line.
func extractBlocks(doc *html.Node, tag atom.Atom) string {
	var blocks []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			if tag == atom.Script && nodeAttr(n, "src") != "" {
				return
			}
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			if t := strings.TrimSpace(sb.String()); t != "" {
				blocks = append(blocks, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(blocks, "\n\n")
}

// collectResources gathers stylesheet links, script sources, and image
// sources in encounter order, deduplicated.
func collectResources(doc *html.Node) Resources {
	var res Resources
	seen := make(map[string]bool)
	add := func(list *[]string, url string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		*list = append(*list, url)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Link:
				if relContains(nodeAttr(n, "rel"), "stylesheet") {
					add(&res.Stylesheets, nodeAttr(n, "href"))
				}
			case atom.Script:
				add(&res.Scripts, nodeAttr(n, "src"))
			case atom.Img:
				add(&res.Images, nodeAttr(n, "src"))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return res
}

func relContains(rel, want string) bool {
	for _, tok := range strings.Fields(rel) {
		if strings.EqualFold(tok, want) {
			return true
		}
	}
	return false
}

// findBody returns the body element of a parsed document.
func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return body
}

func renderDocument(doc *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return ""
	}
	return sb.String()
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func attrMap(n *html.Node) map[string]string {
	if len(n.Attr) == 0 {
		return nil
	}
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}
