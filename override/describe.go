package override

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Describer renders override records as short human-readable lines for
// history UIs. Inner-content fragments are converted to markdown so the
// summary never carries raw markup.
type Describer struct {
	conv       *converter.Converter
	maxSnippet int
}

// NewDescriber builds a Describer with a commonmark converter.
func NewDescriber() *Describer {
	return &Describer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		maxSnippet: 80,
	}
}

// Describe summarizes one record, e.g.
//
//	#hero: text "Welcome", styles color/font-size, moved to (120, 40)
func (d *Describer) Describe(o Override) string {
	var parts []string

	if o.Text != nil {
		parts = append(parts, fmt.Sprintf("text %q", truncate(*o.Text, d.maxSnippet)))
	}
	if len(o.Styles) > 0 {
		parts = append(parts, "styles "+strings.Join(sortedKeys(o.Styles), "/"))
	}
	if o.InnerContent != nil {
		snippet := *o.InnerContent
		if md, err := d.conv.ConvertString(snippet); err == nil {
			snippet = strings.TrimSpace(md)
		}
		parts = append(parts, fmt.Sprintf("content %q", truncate(snippet, d.maxSnippet)))
	}
	if len(o.Attributes) > 0 {
		parts = append(parts, "attrs "+strings.Join(sortedKeys(o.Attributes), "/"))
	}
	if o.Position != nil {
		parts = append(parts, fmt.Sprintf("moved to (%g, %g)", o.Position.X, o.Position.Y))
	}
	if o.Size != nil {
		parts = append(parts, fmt.Sprintf("resized to %gx%g", o.Size.Width, o.Size.Height))
	}

	origin := "manual"
	if o.Automated {
		origin = "auto"
	}
	return fmt.Sprintf("%s: %s [%s]", o.Selector, strings.Join(parts, ", "), origin)
}

// DescribeHistory summarizes a full history, one line per entry.
func (d *Describer) DescribeHistory(entries []HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = d.Describe(e.Override)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
