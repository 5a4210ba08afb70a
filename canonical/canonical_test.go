package canonical

import (
	"context"
	"testing"

	"github.com/hazyhaar/domcanvas/dbopen"
	"github.com/hazyhaar/domcanvas/domsync"
	"github.com/hazyhaar/domcanvas/override"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestDocumentCreatesRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d, err := s.Document(ctx, "doc-1")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if _, ok := d.Geometry(); ok {
		t.Error("fresh document should have no geometry")
	}

	ids, err := s.DocIDs(ctx)
	if err != nil {
		t.Fatalf("doc ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "doc-1" {
		t.Errorf("doc ids: got %v, want [doc-1]", ids)
	}
}

func TestGeometryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d, err := s.Document(ctx, "doc-1")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	want := domsync.Box{X: 10, Y: 20, Width: 300, Height: 150}
	d.SetGeometry(want)

	reloaded, err := s.Document(ctx, "doc-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := reloaded.Geometry()
	if !ok {
		t.Fatal("geometry missing after reload")
	}
	if got != want {
		t.Errorf("geometry: got %+v, want %+v", got, want)
	}
}

func TestOverridesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d, err := s.Document(ctx, "doc-1")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	d.SetOverrides([]override.Override{
		{Selector: "#hero", Text: override.Text("Welcome"), Timestamp: 100},
		{Selector: "#hero", Styles: map[string]string{"color": "red"}, Timestamp: 200, Automated: true},
	})

	reloaded, err := s.Document(ctx, "doc-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := reloaded.Overrides()
	if len(got) != 2 {
		t.Fatalf("overrides: got %d, want 2", len(got))
	}
	if got[0].Text == nil || *got[0].Text != "Welcome" {
		t.Errorf("first override text: got %v", got[0].Text)
	}
	if got[1].Styles["color"] != "red" || !got[1].Automated {
		t.Errorf("second override: got %+v", got[1])
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Document(ctx, "doc-1"); err != nil {
		t.Fatalf("document: %v", err)
	}
	if err := s.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ids, err := s.DocIDs(ctx)
	if err != nil {
		t.Fatalf("doc ids: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("doc ids after delete: got %v, want empty", ids)
	}
}

// DocState must satisfy the engine's canonical interface.
var _ domsync.CanonicalState = (*DocState)(nil)
