package domsync

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hazyhaar/domcanvas/markup"
	"github.com/hazyhaar/domcanvas/override"
)

// WarnFunc observes non-fatal apply problems, typically an override whose
// selector no longer resolves in the render. The default logs at Warn.
type WarnFunc func(docID, selector, reason string)

// Engine owns the per-document sync states. It is not safe for concurrent
// use of the same document id; the host serializes per document.
type Engine struct {
	docs      map[string]*SyncState
	cfg       Config
	logger    *slog.Logger
	warn      WarnFunc
	sanitizer *markup.Sanitizer
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithWarnFunc routes non-fatal apply warnings to the host instead of the
// logger.
func WithWarnFunc(fn WarnFunc) Option {
	return func(e *Engine) { e.warn = fn }
}

// WithSanitizer sanitizes inner-content payloads before they reach the
// render. Overrides the config's sanitize_content flag.
func WithSanitizer(s *markup.Sanitizer) Option {
	return func(e *Engine) { e.sanitizer = s }
}

// NewEngine builds an engine with defaulted config.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		docs:   make(map[string]*SyncState),
		logger: slog.Default(),
		now:    time.Now,
	}
	e.cfg.defaults()
	for _, opt := range opts {
		opt(e)
	}
	if e.sanitizer == nil && e.cfg.SanitizeContent {
		e.sanitizer = markup.NewSanitizer()
	}
	if e.warn == nil {
		e.warn = func(docID, selector, reason string) {
			e.logger.Warn("override apply skipped",
				"doc_id", docID, "selector", selector, "reason", reason)
		}
	}
	return e
}

// InitSync registers a document. Render and canonical may each be nil and
// can be attached later. The fresh state starts synced.
func (e *Engine) InitSync(docID string, parsed *markup.ParseResult, render RenderTarget, canonical CanonicalState) *SyncState {
	st := &SyncState{
		DocID:     docID,
		Parsed:    parsed,
		Log:       override.NewStore(),
		Render:    render,
		Canonical: canonical,
		Status:    StatusSynced,
		LastSync:  e.now().UnixMilli(),
	}
	e.docs[docID] = st
	return st
}

// State looks up a document's sync state.
func (e *Engine) State(docID string) (*SyncState, bool) {
	st, ok := e.docs[docID]
	return st, ok
}

// RemoveSync forgets a document. Borrowed render and canonical references
// are left untouched.
func (e *Engine) RemoveSync(docID string) {
	delete(e.docs, docID)
}

// ApplyOverride records one edit and pushes it to the render best-effort.
// The record always lands in the log even when the render rejects it or the
// selector no longer resolves; the canonical state is refreshed afterwards
// and the document goes pending until the next validation.
func (e *Engine) ApplyOverride(docID string, o override.Override) error {
	st, ok := e.docs[docID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	if err := o.Validate(); err != nil {
		return err
	}
	if o.Timestamp == 0 {
		o.Timestamp = e.now().UnixMilli()
	}

	st.Log.Add(o)
	if st.Render != nil {
		e.applyToRender(st, o)
	}
	e.refreshCanonical(st, o)

	st.Status = StatusPending
	st.LastSync = e.now().UnixMilli()
	return nil
}

// SyncShapeToDOM attaches the canonical state (when given) and pushes its
// geometry onto the render root, so the live document occupies the host
// shape's rectangle. A nil canonical keeps whatever is already attached.
// The document goes pending until the next validation.
func (e *Engine) SyncShapeToDOM(docID string, canonical CanonicalState) error {
	st, ok := e.docs[docID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	if canonical != nil {
		st.Canonical = canonical
	}
	if st.Canonical == nil {
		return ErrNoCanonicalState
	}
	if err := e.mirrorGeometryToRender(st); err != nil {
		return err
	}
	st.Status = StatusPending
	st.LastSync = e.now().UnixMilli()
	return nil
}

// SyncRenderToShape captures a live edit back into the log: the element's
// current text and explicit inline style declarations become a new override,
// its selector derived from the attached render, routed through
// ApplyOverride. A nil element means the render root. The root's rectangle
// is mirrored into the canonical geometry as well.
func (e *Engine) SyncRenderToShape(docID string, el RenderElement) error {
	st, ok := e.docs[docID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	if st.Canonical == nil {
		return ErrNoCanonicalState
	}
	if st.Render == nil {
		return nil
	}
	root, err := st.Render.Root()
	if err != nil {
		return fmt.Errorf("domsync: render root: %w", err)
	}
	if el == nil {
		el = root
	}
	box, err := root.Box()
	if err != nil {
		return fmt.Errorf("domsync: render box: %w", err)
	}
	st.Canonical.SetGeometry(box)

	sel, err := st.Render.SelectorOf(el)
	if err != nil {
		return fmt.Errorf("domsync: selector of edited element: %w", err)
	}
	text, err := el.Text()
	if err != nil {
		return fmt.Errorf("domsync: edited element text: %w", err)
	}
	styles, err := el.InlineStyles()
	if err != nil {
		return fmt.Errorf("domsync: edited element styles: %w", err)
	}

	o := override.Override{Selector: sel, Text: &text}
	if len(styles) > 0 {
		o.Styles = make(map[string]string, len(styles))
		for name, value := range styles {
			o.Styles[name] = value
		}
	}
	return e.ApplyOverride(docID, o)
}

// mirrorGeometryToRender copies the canonical geometry onto the render
// root. No-op without a render or a declared geometry.
func (e *Engine) mirrorGeometryToRender(st *SyncState) error {
	if st.Render == nil {
		return nil
	}
	box, ok := st.Canonical.Geometry()
	if !ok {
		return nil
	}
	root, err := st.Render.Root()
	if err != nil {
		return fmt.Errorf("domsync: render root: %w", err)
	}
	if err := root.SetPosition(box.X, box.Y); err != nil {
		return fmt.Errorf("domsync: set position: %w", err)
	}
	if err := root.SetSize(box.Width, box.Height); err != nil {
		return fmt.Errorf("domsync: set size: %w", err)
	}
	return nil
}

// ValidateSync compares the render root rectangle against the canonical
// geometry, per axis, within the configured pixel tolerance. Vacuously true
// when either reference is missing. A mismatch moves the document to error;
// agreement moves it to synced.
func (e *Engine) ValidateSync(docID string) (bool, error) {
	st, ok := e.docs[docID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	if st.Render == nil || st.Canonical == nil {
		st.Status = StatusSynced
		return true, nil
	}
	want, ok := st.Canonical.Geometry()
	if !ok {
		st.Status = StatusSynced
		return true, nil
	}
	root, err := st.Render.Root()
	if err != nil {
		return false, fmt.Errorf("domsync: render root: %w", err)
	}
	got, err := root.Box()
	if err != nil {
		return false, fmt.Errorf("domsync: render box: %w", err)
	}

	tol := e.cfg.TolerancePx
	inSync := math.Abs(got.X-want.X) <= tol &&
		math.Abs(got.Y-want.Y) <= tol &&
		math.Abs(got.Width-want.Width) <= tol &&
		math.Abs(got.Height-want.Height) <= tol

	if inSync {
		st.Status = StatusSynced
	} else {
		st.Status = StatusError
		e.logger.Warn("sync validation failed",
			"doc_id", docID,
			"got", got, "want", want, "tolerance_px", tol)
	}
	return inSync, nil
}

// RecoverSync rebuilds the render from the canonical state: geometry first,
// then the full override log replayed chronologically. Without a canonical
// state there is nothing to recover from; the document goes to error.
func (e *Engine) RecoverSync(docID string) error {
	st, ok := e.docs[docID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	if st.Canonical == nil {
		st.Status = StatusError
		return ErrNoCanonicalState
	}
	if err := e.mirrorGeometryToRender(st); err != nil {
		st.Status = StatusError
		return err
	}
	e.replayLog(st)
	st.Status = StatusSynced
	st.LastSync = e.now().UnixMilli()
	return nil
}

// RestoreToVersion drops every record newer than the target timestamp,
// refreshes the canonical state, and replays the survivors. Restoring to a
// timestamp at or past the newest record is a no-op apart from the replay,
// which makes the operation idempotent.
func (e *Engine) RestoreToVersion(docID string, timestamp int64) error {
	st, ok := e.docs[docID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	dropped := st.Log.TruncateAfter(timestamp)
	if st.Canonical != nil {
		st.Canonical.SetOverrides(st.Log.AllChronological())
	}
	e.replayLog(st)
	st.Status = StatusSynced
	st.LastSync = e.now().UnixMilli()
	if dropped > 0 {
		e.logger.Info("restored to version",
			"doc_id", docID, "timestamp", timestamp, "dropped", dropped)
	}
	return nil
}

// SetDOMRoot attaches (or swaps) the live render and replays the full log
// onto it, so a fresh render catches up with everything recorded so far.
func (e *Engine) SetDOMRoot(docID string, render RenderTarget) error {
	st, ok := e.docs[docID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	st.Render = render
	e.replayLog(st)
	st.Status = StatusPending
	st.LastSync = e.now().UnixMilli()
	return nil
}

// History returns the document's chronological edit log.
func (e *Engine) History(docID string) ([]override.HistoryEntry, error) {
	st, ok := e.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	return st.Log.History(), nil
}

// replayLog applies every record in chronological order. Skips silently
// when no render is attached.
func (e *Engine) replayLog(st *SyncState) {
	if st.Render == nil {
		return
	}
	for _, o := range st.Log.AllChronological() {
		e.applyToRender(st, o)
	}
}

// refreshCanonical mirrors the log and any geometry payload into the
// canonical state.
func (e *Engine) refreshCanonical(st *SyncState, o override.Override) {
	if st.Canonical == nil {
		return
	}
	st.Canonical.SetOverrides(st.Log.AllChronological())
	if o.Position == nil && o.Size == nil {
		return
	}
	box, _ := st.Canonical.Geometry()
	if o.Position != nil {
		box.X, box.Y = o.Position.X, o.Position.Y
	}
	if o.Size != nil {
		box.Width, box.Height = o.Size.Width, o.Size.Height
	}
	st.Canonical.SetGeometry(box)
}
