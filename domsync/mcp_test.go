package domsync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testImpl = &mcp.Implementation{Name: "domcanvas-test", Version: "0.1.0"}

// mcpSession registers the engine's MCP tools and returns a connected
// client session.
func mcpSession(t *testing.T) (*Engine, *mcp.ClientSession) {
	t.Helper()
	e := NewEngine()

	srv := mcp.NewServer(testImpl, nil)
	e.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()

	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	return e, session
}

// callTool invokes a tool and returns the JSON text from the first
// TextContent.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) tool error: %v", name, result.Content)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text
}

// callToolExpectError invokes a tool and asserts it reports a tool error.
func callToolExpectError(t *testing.T, session *mcp.ClientSession, name string, args any) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if !result.IsError {
		t.Fatalf("CallTool(%s): expected tool error, got success", name)
	}
}

func TestMCP_Parse(t *testing.T) {
	e, session := mcpSession(t)

	text := callTool(t, session, "domcanvas_parse", map[string]any{
		"markup": `<div id="hero"><span>Hi</span></div>`,
		"doc_id": "doc-1",
	})

	var resp parseResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.DocID != "doc-1" {
		t.Errorf("DocID = %q, want doc-1", resp.DocID)
	}
	if resp.Elements < 2 {
		t.Errorf("Elements = %d, want at least 2", resp.Elements)
	}
	if _, ok := e.State("doc-1"); !ok {
		t.Error("document not registered with the engine")
	}
}

func TestMCP_ParseMalformed(t *testing.T) {
	_, session := mcpSession(t)
	callToolExpectError(t, session, "domcanvas_parse", map[string]any{"markup": "   "})
}

func TestMCP_ApplyOverrideAndHistory(t *testing.T) {
	_, session := mcpSession(t)

	callTool(t, session, "domcanvas_parse", map[string]any{
		"markup": `<div id="hero">Old</div>`,
		"doc_id": "doc-1",
	})

	text := callTool(t, session, "domcanvas_apply_override", map[string]any{
		"doc_id":    "doc-1",
		"selector":  "#hero",
		"text":      "New headline",
		"timestamp": 100,
	})
	var applied struct {
		Status  string `json:"status"`
		Records int    `json:"records"`
	}
	if err := json.Unmarshal([]byte(text), &applied); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if applied.Status != string(StatusPending) {
		t.Errorf("status = %q, want pending", applied.Status)
	}
	if applied.Records != 1 {
		t.Errorf("records = %d, want 1", applied.Records)
	}

	histText := callTool(t, session, "domcanvas_history", map[string]any{"doc_id": "doc-1"})
	var hist historyResponse
	if err := json.Unmarshal([]byte(histText), &hist); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(hist.Entries) != 1 || len(hist.Summaries) != 1 {
		t.Fatalf("history: %d entries, %d summaries", len(hist.Entries), len(hist.Summaries))
	}
	if hist.Entries[0].Override.Selector != "#hero" {
		t.Errorf("entry selector = %q", hist.Entries[0].Override.Selector)
	}
}

func TestMCP_ApplyOverrideUnknownDoc(t *testing.T) {
	_, session := mcpSession(t)
	callToolExpectError(t, session, "domcanvas_apply_override", map[string]any{
		"doc_id":   "ghost",
		"selector": "#x",
		"text":     "a",
	})
}

func TestMCP_RestoreVersion(t *testing.T) {
	e, session := mcpSession(t)

	callTool(t, session, "domcanvas_parse", map[string]any{
		"markup": `<div id="hero">Old</div>`,
		"doc_id": "doc-1",
	})
	callTool(t, session, "domcanvas_apply_override", map[string]any{
		"doc_id": "doc-1", "selector": "#hero", "text": "v1", "timestamp": 100,
	})
	callTool(t, session, "domcanvas_apply_override", map[string]any{
		"doc_id": "doc-1", "selector": "#hero", "text": "v2", "timestamp": 200,
	})

	text := callTool(t, session, "domcanvas_restore_version", map[string]any{
		"doc_id": "doc-1", "timestamp": 100,
	})
	var resp struct {
		Status  string `json:"status"`
		Records int    `json:"records"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Records != 1 {
		t.Errorf("records = %d, want 1", resp.Records)
	}
	if resp.Status != string(StatusSynced) {
		t.Errorf("status = %q, want synced", resp.Status)
	}

	st, _ := e.State("doc-1")
	if st.Log.Count() != 1 {
		t.Errorf("engine log count = %d, want 1", st.Log.Count())
	}
}

func TestMCP_ValidateAndRecover(t *testing.T) {
	_, session := mcpSession(t)

	callTool(t, session, "domcanvas_parse", map[string]any{
		"markup": `<div id="hero">x</div>`,
		"doc_id": "doc-1",
	})

	// Without render and canonical refs validation is vacuously true.
	text := callTool(t, session, "domcanvas_validate", map[string]any{"doc_id": "doc-1"})
	var v struct {
		InSync bool `json:"in_sync"`
	}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !v.InSync {
		t.Error("validation without references should be vacuously true")
	}

	// Recovery without a canonical state is a hard error.
	callToolExpectError(t, session, "domcanvas_recover", map[string]any{"doc_id": "doc-1"})
}
