package domsync

import (
	"strings"

	"github.com/hazyhaar/domcanvas/override"
)

// applyToRender pushes one record onto the live render. Each payload field
// is applied independently; a failure on one never blocks the others. An
// unresolvable selector skips the element-level fields but geometry on the
// record still reaches the canonical refresh upstream.
func (e *Engine) applyToRender(st *SyncState, o override.Override) {
	el := e.resolveElement(st, o)
	if el == nil {
		e.warn(st.DocID, o.Selector, "selector resolves to nothing in render")
		return
	}

	if o.Text != nil {
		if err := el.SetText(*o.Text); err != nil {
			e.warn(st.DocID, o.Selector, "set text: "+err.Error())
		}
	}
	for name, value := range o.Styles {
		if err := el.SetStyle(styleProperty(name), value); err != nil {
			e.warn(st.DocID, o.Selector, "set style "+name+": "+err.Error())
		}
	}
	if o.InnerContent != nil {
		fragment := *o.InnerContent
		if e.sanitizer != nil {
			fragment = e.sanitizer.Sanitize(fragment)
		}
		if err := el.SetInnerContent(fragment); err != nil {
			e.warn(st.DocID, o.Selector, "set inner content: "+err.Error())
		}
	}
	for name, value := range o.Attributes {
		if err := el.SetAttribute(name, value); err != nil {
			e.warn(st.DocID, o.Selector, "set attribute "+name+": "+err.Error())
		}
	}
	if o.Position != nil {
		if err := el.SetPosition(o.Position.X, o.Position.Y); err != nil {
			e.warn(st.DocID, o.Selector, "set position: "+err.Error())
		}
	}
	if o.Size != nil {
		if err := el.SetSize(o.Size.Width, o.Size.Height); err != nil {
			e.warn(st.DocID, o.Selector, "set size: "+err.Error())
		}
	}
}

// resolveElement finds the record's element in the render: direct selector
// lookup first, then the topmost element at the record's position when one
// is carried. Returns nil when neither resolves.
func (e *Engine) resolveElement(st *SyncState, o override.Override) RenderElement {
	el, err := st.Render.Find(o.Selector)
	if err != nil {
		e.warn(st.DocID, o.Selector, "find: "+err.Error())
		return nil
	}
	if el != nil {
		return el
	}
	if o.Position == nil {
		return nil
	}
	el, err = st.Render.ElementAt(o.Position.X, o.Position.Y)
	if err != nil {
		e.warn(st.DocID, o.Selector, "element at point: "+err.Error())
		return nil
	}
	return el
}

// styleProperty translates hyphenated CSS property names to the camelCase
// form render layers expect ("font-size" -> "fontSize"). Names without
// hyphens pass through.
func styleProperty(name string) string {
	if !strings.Contains(name, "-") {
		return name
	}
	parts := strings.Split(name, "-")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
