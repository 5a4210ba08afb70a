// Package domsync keeps three representations of an editable document in
// step: the immutable parsed tree, the live render, and the host's canonical
// state. Edits arrive as selector-keyed override records; the engine applies
// them best-effort to the render, mirrors them to the canonical state, and
// tracks a per-document status machine.
//
// The engine never talks to a rendering technology directly. Hosts supply a
// RenderTarget (renderbridge has a rod-backed one) and a CanonicalState
// (canonical has a SQLite-backed one); both are borrowed references the
// engine never closes.
package domsync

import (
	"errors"

	"github.com/hazyhaar/domcanvas/markup"
	"github.com/hazyhaar/domcanvas/override"
)

// Status is the synchronization state of one document.
type Status string

const (
	// StatusSynced means render and canonical state agree as of LastSync.
	StatusSynced Status = "synced"
	// StatusPending means overrides were applied but not yet validated.
	StatusPending Status = "pending"
	// StatusError means validation or recovery failed.
	StatusError Status = "error"
)

var (
	// ErrUnknownDocument is returned for operations on an id that was never
	// initialized (or was removed).
	ErrUnknownDocument = errors.New("domsync: unknown document")
	// ErrNoCanonicalState is returned when an operation needs the canonical
	// state and none is attached.
	ErrNoCanonicalState = errors.New("domsync: no canonical state attached")
)

// Box is an absolute rectangle in render coordinates, in pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RenderElement is one live element in the render. Read accessors return
// the render's current value, not the parsed tree's.
type RenderElement interface {
	Text() (string, error)
	SetText(text string) error
	InlineStyles() (map[string]string, error)
	SetStyle(name, value string) error
	SetAttribute(name, value string) error
	SetInnerContent(fragment string) error
	Box() (Box, error)
	SetPosition(x, y float64) error
	SetSize(width, height float64) error
}

// RenderTarget is the live render of one document. Find returns (nil, nil)
// when the selector resolves to nothing; errors are reserved for transport
// failures.
type RenderTarget interface {
	Find(selector string) (RenderElement, error)
	Root() (RenderElement, error)
	ElementAt(x, y float64) (RenderElement, error)
	SelectorOf(el RenderElement) (string, error)
}

// CanonicalState is the host-owned durable record for one document: the
// shape geometry on the canvas plus the full override log. The engine
// refreshes it after every mutation; persistence cadence is the host's
// business.
type CanonicalState interface {
	Geometry() (Box, bool)
	SetGeometry(Box)
	SetOverrides(overrides []override.Override)
}

// SyncState is the engine's record for one document. Render and Canonical
// may each be nil; operations that need them degrade or error as documented.
type SyncState struct {
	DocID     string
	Parsed    *markup.ParseResult
	Log       *override.Store
	Render    RenderTarget
	Canonical CanonicalState
	Status    Status
	LastSync  int64 // epoch ms of the last engine-driven mutation
}
