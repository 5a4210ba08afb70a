package renderbridge

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domcanvas/domsync"
)

// Element is a rod-backed domsync.RenderElement. All mutation goes through
// evaluated scripts with `this` bound to the element, so the page sees the
// same DOM a user script would.
type Element struct {
	el *rod.Element
}

// Text returns the element's rendered text content.
func (e *Element) Text() (string, error) {
	text, err := e.el.Text()
	if err != nil {
		return "", fmt.Errorf("renderbridge: text: %w", err)
	}
	return text, nil
}

// SetText replaces the element's text content.
func (e *Element) SetText(text string) error {
	_, err := e.el.Eval(`(t) => { this.textContent = t }`, text)
	if err != nil {
		return fmt.Errorf("renderbridge: set text: %w", err)
	}
	return nil
}

// InlineStyles returns the element's inline style declarations.
func (e *Element) InlineStyles() (map[string]string, error) {
	res, err := e.el.Eval(`() => {
		const out = {};
		const s = this.style;
		for (let i = 0; i < s.length; i++) {
			out[s[i]] = s.getPropertyValue(s[i]);
		}
		return JSON.stringify(out);
	}`)
	if err != nil {
		return nil, fmt.Errorf("renderbridge: inline styles: %w", err)
	}
	styles := map[string]string{}
	if err := json.Unmarshal([]byte(res.Value.Str()), &styles); err != nil {
		return nil, fmt.Errorf("renderbridge: decode styles: %w", err)
	}
	return styles, nil
}

// SetStyle sets one inline style property. The name is the camelCase form.
func (e *Element) SetStyle(name, value string) error {
	_, err := e.el.Eval(`(n, v) => { this.style[n] = v }`, name, value)
	if err != nil {
		return fmt.Errorf("renderbridge: set style %s: %w", name, err)
	}
	return nil
}

// SetAttribute sets one attribute.
func (e *Element) SetAttribute(name, value string) error {
	_, err := e.el.Eval(`(n, v) => { this.setAttribute(n, v) }`, name, value)
	if err != nil {
		return fmt.Errorf("renderbridge: set attribute %s: %w", name, err)
	}
	return nil
}

// SetInnerContent replaces the element's inner markup. Sanitize upstream
// when the fragment comes from outside.
func (e *Element) SetInnerContent(fragment string) error {
	_, err := e.el.Eval(`(h) => { this.innerHTML = h }`, fragment)
	if err != nil {
		return fmt.Errorf("renderbridge: set inner content: %w", err)
	}
	return nil
}

// Box returns the element's bounding rectangle in page coordinates.
func (e *Element) Box() (domsync.Box, error) {
	res, err := e.el.Eval(`() => {
		const r = this.getBoundingClientRect();
		return JSON.stringify({x: r.x, y: r.y, width: r.width, height: r.height});
	}`)
	if err != nil {
		return domsync.Box{}, fmt.Errorf("renderbridge: box: %w", err)
	}
	var box domsync.Box
	if err := json.Unmarshal([]byte(res.Value.Str()), &box); err != nil {
		return domsync.Box{}, fmt.Errorf("renderbridge: decode box: %w", err)
	}
	return box, nil
}

// SetPosition places the element absolutely at page coordinates.
func (e *Element) SetPosition(x, y float64) error {
	_, err := e.el.Eval(`(x, y) => {
		this.style.position = 'absolute';
		this.style.left = x + 'px';
		this.style.top = y + 'px';
	}`, x, y)
	if err != nil {
		return fmt.Errorf("renderbridge: set position: %w", err)
	}
	return nil
}

// SetSize fixes the element's width and height in pixels.
func (e *Element) SetSize(width, height float64) error {
	_, err := e.el.Eval(`(w, h) => {
		this.style.width = w + 'px';
		this.style.height = h + 'px';
	}`, width, height)
	if err != nil {
		return fmt.Errorf("renderbridge: set size: %w", err)
	}
	return nil
}
