// Package renderbridge adapts a live browser page into the engine's render
// interfaces. The page is borrowed: the bridge never navigates or closes it,
// it only reads and mutates elements through evaluated scripts.
package renderbridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domcanvas/domsync"
)

// Target is a rod-backed domsync.RenderTarget over one page.
type Target struct {
	page         *rod.Page
	rootSelector string
	ctx          context.Context
	logger       *slog.Logger
}

// Option configures a Target.
type Option func(*Target)

// WithRootSelector changes the selector treated as the document root
// (default "body").
func WithRootSelector(sel string) Option {
	return func(t *Target) { t.rootSelector = sel }
}

// WithContext bounds every page call with the given context.
func WithContext(ctx context.Context) Option {
	return func(t *Target) { t.ctx = ctx }
}

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Target) { t.logger = logger }
}

// New wraps a page. The caller keeps ownership of the page lifecycle.
func New(page *rod.Page, opts ...Option) *Target {
	t := &Target{
		page:         page,
		rootSelector: "body",
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Target) boundPage() *rod.Page {
	if t.ctx != nil {
		return t.page.Context(t.ctx)
	}
	return t.page
}

// Find resolves a selector to its live element. A selector matching nothing
// returns (nil, nil); errors are page-level failures.
func (t *Target) Find(selector string) (domsync.RenderElement, error) {
	has, el, err := t.boundPage().Has(selector)
	if err != nil {
		return nil, fmt.Errorf("renderbridge: find %q: %w", selector, err)
	}
	if !has {
		return nil, nil
	}
	return &Element{el: el}, nil
}

// Root returns the document's content root element.
func (t *Target) Root() (domsync.RenderElement, error) {
	el, err := t.boundPage().Element(t.rootSelector)
	if err != nil {
		return nil, fmt.Errorf("renderbridge: root %q: %w", t.rootSelector, err)
	}
	return &Element{el: el}, nil
}

// ElementAt returns the topmost element at the given page coordinates, or
// (nil, nil) when the point hits nothing.
func (t *Target) ElementAt(x, y float64) (domsync.RenderElement, error) {
	el, err := t.boundPage().ElementFromPoint(int(x), int(y))
	if err != nil {
		return nil, nil
	}
	return &Element{el: el}, nil
}

// SelectorOf derives a selector for a live element: its id, its identity
// attribute, or a positional path from the root.
func (t *Target) SelectorOf(el domsync.RenderElement) (string, error) {
	re, ok := el.(*Element)
	if !ok {
		return "", fmt.Errorf("renderbridge: foreign element type %T", el)
	}
	res, err := re.el.Eval(`() => {
		if (this.id) return '#' + CSS.escape(this.id);
		const identity = this.getAttribute('data-canvas-id');
		if (identity) return '[data-canvas-id="' + identity + '"]';
		const parts = [];
		let node = this;
		while (node && node.nodeType === 1 && node.tagName !== 'BODY') {
			let idx = 1;
			let sib = node.previousElementSibling;
			while (sib) { idx++; sib = sib.previousElementSibling; }
			parts.unshift(node.tagName.toLowerCase() + ':nth-child(' + idx + ')');
			node = node.parentElement;
		}
		return parts.join(' > ');
	}`)
	if err != nil {
		return "", fmt.Errorf("renderbridge: selector of element: %w", err)
	}
	return res.Value.Str(), nil
}
