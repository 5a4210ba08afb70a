package selector

import (
	"fmt"

	"golang.org/x/net/html"
)

// Validate reports whether sel resolves to exactly one element within root.
// Zero matches, multiple matches, and unparsable selectors all yield false;
// validation never fails hard.
func Validate(sel string, root *html.Node) bool {
	matches, err := QueryAll(root, sel)
	if err != nil {
		return false
	}
	return len(matches) == 1
}

// Find returns the first element matching sel within root, or an error when
// the selector is invalid or matches nothing.
func Find(root *html.Node, sel string) (*html.Node, error) {
	n, err := Query(root, sel)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("selector: no match for %q", sel)
	}
	return n, nil
}
