package selector

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// compound is one parsed selector segment: tag#id.c1.c2[attr="v"]:nth-child(n).
type compound struct {
	tag      string
	id       string
	classes  []string
	attrKey  string
	attrVal  string
	hasAttr  bool
	nthChild int // 0 means not specified
}

// step is a compound plus the combinator linking it to the previous step.
type step struct {
	child bool // true for ">", false for descendant
	comp  compound
}

// parseSelector splits a selector into combinator-linked steps.
func parseSelector(sel string) ([]step, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return nil, fmt.Errorf("selector: empty")
	}

	var steps []step
	child := false
	for _, tok := range tokenize(sel) {
		if tok == ">" {
			if child || len(steps) == 0 {
				return nil, fmt.Errorf("selector: misplaced combinator in %q", sel)
			}
			child = true
			continue
		}
		comp, err := parseCompound(tok)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{child: child, comp: comp})
		child = false
	}
	if child || len(steps) == 0 {
		return nil, fmt.Errorf("selector: trailing combinator in %q", sel)
	}
	return steps, nil
}

// tokenize splits on whitespace outside brackets and quotes, keeping ">"
// as its own token. Backslash escapes are preserved for parseCompound.
func tokenize(sel string) []string {
	var toks []string
	var cur strings.Builder
	depth := 0
	inQuote := byte(0)
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(sel); i++ {
		c := sel[i]
		switch {
		case c == '\\' && i+1 < len(sel):
			cur.WriteByte(c)
			i++
			cur.WriteByte(sel[i])
		case inQuote != 0:
			cur.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
			cur.WriteByte(c)
		case c == '[':
			depth++
			cur.WriteByte(c)
		case c == ']':
			depth--
			cur.WriteByte(c)
		case c == '>' && depth == 0:
			flush()
			toks = append(toks, ">")
		case (c == ' ' || c == '\t') && depth == 0:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return toks
}

// parseCompound parses one segment like div#main.foo.bar[role="x"]:nth-child(2).
func parseCompound(tok string) (compound, error) {
	var c compound
	i := 0
	readIdent := func() string {
		var sb strings.Builder
		for i < len(tok) {
			ch := tok[i]
			if ch == '\\' && i+1 < len(tok) {
				sb.WriteByte(tok[i+1])
				i += 2
				continue
			}
			if strings.ContainsRune("#.[:", rune(ch)) {
				break
			}
			sb.WriteByte(ch)
			i++
		}
		return sb.String()
	}

	// Leading tag name, if any.
	if i < len(tok) && !strings.ContainsRune("#.[:", rune(tok[i])) {
		c.tag = strings.ToLower(readIdent())
	}

	for i < len(tok) {
		switch tok[i] {
		case '#':
			i++
			c.id = readIdent()
			if c.id == "" {
				return c, fmt.Errorf("selector: empty id in %q", tok)
			}
		case '.':
			i++
			cls := readIdent()
			if cls == "" {
				return c, fmt.Errorf("selector: empty class in %q", tok)
			}
			c.classes = append(c.classes, cls)
		case '[':
			end := strings.IndexByte(tok[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("selector: unterminated attribute in %q", tok)
			}
			attr := tok[i+1 : i+end]
			i += end + 1
			if eq := strings.IndexByte(attr, '='); eq >= 0 {
				c.attrKey = attr[:eq]
				val := attr[eq+1:]
				if unq, err := unquoteAttr(val); err == nil {
					val = unq
				}
				c.attrVal = val
				c.hasAttr = true
			} else {
				c.attrKey = attr
			}
			if c.attrKey == "" {
				return c, fmt.Errorf("selector: empty attribute name in %q", tok)
			}
		case ':':
			rest := tok[i:]
			if !strings.HasPrefix(rest, ":nth-child(") {
				return c, fmt.Errorf("selector: unsupported pseudo-class in %q", tok)
			}
			end := strings.IndexByte(rest, ')')
			if end < 0 {
				return c, fmt.Errorf("selector: unterminated :nth-child in %q", tok)
			}
			n, err := strconv.Atoi(rest[len(":nth-child("):end])
			if err != nil || n < 1 {
				return c, fmt.Errorf("selector: bad :nth-child index in %q", tok)
			}
			c.nthChild = n
			i += end + 1
		default:
			return c, fmt.Errorf("selector: unexpected %q in %q", tok[i], tok)
		}
	}

	if c.tag == "" && c.id == "" && len(c.classes) == 0 && c.attrKey == "" && c.nthChild == 0 {
		return c, fmt.Errorf("selector: empty segment %q", tok)
	}
	return c, nil
}

func unquoteAttr(v string) (string, error) {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return strconv.Unquote(`"` + strings.Trim(v, string(v[0])) + `"`)
	}
	return v, nil
}

// matchCompound checks whether an element node satisfies a compound segment.
func matchCompound(n *html.Node, c compound) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && getAttr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range c.classes {
			found := false
			for _, h := range have {
				if h == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	if c.attrKey != "" {
		if c.hasAttr {
			if getAttr(n, c.attrKey) != c.attrVal {
				return false
			}
		} else if !hasAttr(n, c.attrKey) {
			return false
		}
	}
	if c.nthChild > 0 && elementIndex(n) != c.nthChild {
		return false
	}
	return true
}

// QueryAll returns every element under root (root included) matching the
// selector, in document order.
func QueryAll(root *html.Node, sel string) ([]*html.Node, error) {
	steps, err := parseSelector(sel)
	if err != nil {
		return nil, err
	}

	matches := collectMatches(root, steps[0].comp, true)
	for _, st := range steps[1:] {
		seen := make(map[*html.Node]bool)
		var next []*html.Node
		for _, m := range matches {
			var cands []*html.Node
			if st.child {
				for c := m.FirstChild; c != nil; c = c.NextSibling {
					if matchCompound(c, st.comp) {
						cands = append(cands, c)
					}
				}
			} else {
				cands = collectMatches(m, st.comp, false)
			}
			for _, c := range cands {
				if !seen[c] {
					seen[c] = true
					next = append(next, c)
				}
			}
		}
		matches = next
	}
	return matches, nil
}

// Query returns the first element matching the selector, or nil.
func Query(root *html.Node, sel string) (*html.Node, error) {
	all, err := QueryAll(root, sel)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// collectMatches walks the subtree of root and gathers compound matches.
// includeRoot controls whether root itself is a candidate.
func collectMatches(root *html.Node, c compound, includeRoot bool) []*html.Node {
	var results []*html.Node
	var walk func(n *html.Node, isRoot bool)
	walk = func(n *html.Node, isRoot bool) {
		if (!isRoot || includeRoot) && matchCompound(n, c) {
			results = append(results, n)
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch, false)
		}
	}
	walk(root, true)
	return results
}
