package connectivity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hazyhaar/domcanvas/dbopen"
	_ "modernc.org/sqlite"
)

func TestCallLocal(t *testing.T) {
	r := New()
	r.RegisterLocal("echo", func(_ context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	})

	out, err := r.Call(context.Background(), "echo", []byte("hello"))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(out) != "hello" {
		t.Errorf("got %q, want hello", out)
	}
}

func TestCallUnknownService(t *testing.T) {
	r := New()
	_, err := r.Call(context.Background(), "ghost", nil)
	var notFound *ErrServiceNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want ErrServiceNotFound", err)
	}
	if notFound.Service != "ghost" {
		t.Errorf("service: got %q, want ghost", notFound.Service)
	}
}

func TestNoopRouteSilencesService(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("init: %v", err)
	}
	admin := NewAdmin(db)
	ctx := context.Background()

	called := false
	r := New()
	r.RegisterLocal("history", func(_ context.Context, _ []byte) ([]byte, error) {
		called = true
		return []byte("{}"), nil
	})

	if err := admin.UpsertRoute(ctx, "history", "noop", "", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := r.Reload(ctx, db); err != nil {
		t.Fatalf("reload: %v", err)
	}

	out, err := r.Call(ctx, "history", []byte("{}"))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != nil || called {
		t.Error("noop route should silently succeed without running the handler")
	}

	// Flip back to local and the handler runs again.
	if err := admin.UpsertRoute(ctx, "history", "local", "", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := r.Reload(ctx, db); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := r.Call(ctx, "history", []byte("{}")); err != nil {
		t.Fatalf("call after flip: %v", err)
	}
	if !called {
		t.Error("local route should run the handler")
	}
}

func TestReloadBuildsAndClosesRemoteHandlers(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("init: %v", err)
	}
	admin := NewAdmin(db)
	ctx := context.Background()

	built, closed := 0, 0
	r := New()
	r.RegisterTransport("http", func(endpoint string, _ json.RawMessage) (Handler, func(), error) {
		built++
		h := func(_ context.Context, _ []byte) ([]byte, error) {
			return []byte(endpoint), nil
		}
		return h, func() { closed++ }, nil
	})

	if err := admin.UpsertRoute(ctx, "apply", "http", "http://peer-a/apply", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := r.Reload(ctx, db); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if built != 1 {
		t.Fatalf("built: got %d, want 1", built)
	}

	out, err := r.Call(ctx, "apply", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(out) != "http://peer-a/apply" {
		t.Errorf("remote dispatch: got %q", out)
	}

	// Unchanged route keeps its handler on reload.
	if err := r.Reload(ctx, db); err != nil {
		t.Fatalf("second reload: %v", err)
	}
	if built != 1 || closed != 0 {
		t.Errorf("unchanged route rebuilt: built %d, closed %d", built, closed)
	}

	// Changing the endpoint rebuilds and closes the old handler.
	if err := admin.UpsertRoute(ctx, "apply", "http", "http://peer-b/apply", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := r.Reload(ctx, db); err != nil {
		t.Fatalf("third reload: %v", err)
	}
	if built != 2 || closed != 1 {
		t.Errorf("changed route: built %d, closed %d; want 2, 1", built, closed)
	}

	// Deleting the route closes the handler and falls back to nothing.
	if err := admin.DeleteRoute(ctx, "apply"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Reload(ctx, db); err != nil {
		t.Fatalf("fourth reload: %v", err)
	}
	if closed != 2 {
		t.Errorf("closed after delete: got %d, want 2", closed)
	}
	if _, err := r.Call(ctx, "apply", nil); err == nil {
		t.Error("call after delete should fail")
	}
}

func TestAdminRoutes(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("init: %v", err)
	}
	admin := NewAdmin(db)
	ctx := context.Background()

	if err := admin.UpsertRoute(ctx, "parse", "local", "", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := admin.UpsertRoute(ctx, "validate", "http", "http://peer/validate", json.RawMessage(`{"timeout_ms":500}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	routes, err := admin.ListRoutes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("routes: got %d, want 2", len(routes))
	}

	got, err := admin.GetRoute(ctx, "validate")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Endpoint != "http://peer/validate" {
		t.Errorf("get route: got %+v", got)
	}

	missing, err := admin.GetRoute(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("missing route: got %+v, want nil", missing)
	}

	if err := admin.DeleteRoute(ctx, "nope"); err == nil {
		t.Error("deleting a missing route should fail")
	}
}
