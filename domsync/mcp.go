package domsync

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domcanvas/idgen"
	"github.com/hazyhaar/domcanvas/kit"
	"github.com/hazyhaar/domcanvas/markup"
	"github.com/hazyhaar/domcanvas/override"
)

// RegisterMCP registers domcanvas tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerParseTool(srv)
	e.registerApplyOverrideTool(srv)
	e.registerHistoryTool(srv)
	e.registerRestoreVersionTool(srv)
	e.registerValidateTool(srv)
	e.registerRecoverTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- parse ---

type parseRequest struct {
	Markup string `json:"markup"`
	DocID  string `json:"doc_id,omitempty"`
}

type parseResponse struct {
	DocID    string `json:"doc_id"`
	Elements int    `json:"elements"`
	RootID   string `json:"root_id"`
}

func (e *Engine) registerParseTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domcanvas_parse",
		Description: "Parse markup into an identified element tree and register it for synchronization. Returns the document id.",
		InputSchema: inputSchema(map[string]any{
			"markup": map[string]any{"type": "string", "description": "Raw HTML markup"},
			"doc_id": map[string]any{"type": "string", "description": "Optional document id (generated when omitted)"},
		}, []string{"markup"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*parseRequest)
		parsed, err := markup.Parse(r.Markup)
		if err != nil {
			return nil, err
		}
		docID := r.DocID
		if docID == "" {
			docID = idgen.New()
		}
		e.InitSync(docID, parsed, nil, nil)
		return &parseResponse{
			DocID:    docID,
			Elements: len(parsed.Index),
			RootID:   parsed.Root.ID,
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r parseRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- apply_override ---

type applyOverrideRequest struct {
	DocID        string               `json:"doc_id"`
	Selector     string               `json:"selector"`
	Text         *string              `json:"text,omitempty"`
	Styles       map[string]string    `json:"styles,omitempty"`
	InnerContent *string              `json:"inner_content,omitempty"`
	Attributes   map[string]string    `json:"attributes,omitempty"`
	Position     *override.Point      `json:"position,omitempty"`
	Size         *override.Dimensions `json:"size,omitempty"`
	Timestamp    int64                `json:"timestamp,omitempty"`
	Automated    bool                 `json:"automated,omitempty"`
}

func (r *applyOverrideRequest) toOverride() override.Override {
	return override.Override{
		Selector:     r.Selector,
		Text:         r.Text,
		Styles:       r.Styles,
		InnerContent: r.InnerContent,
		Attributes:   r.Attributes,
		Position:     r.Position,
		Size:         r.Size,
		Timestamp:    r.Timestamp,
		Automated:    r.Automated,
	}
}

func (e *Engine) registerApplyOverrideTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domcanvas_apply_override",
		Description: "Record a selector-keyed edit and apply it to the live render best-effort.",
		InputSchema: inputSchema(map[string]any{
			"doc_id":        map[string]any{"type": "string", "description": "Document id"},
			"selector":      map[string]any{"type": "string", "description": "CSS selector of the target element"},
			"text":          map[string]any{"type": "string", "description": "Replacement text content"},
			"styles":        map[string]any{"type": "object", "description": "Changed style properties only"},
			"inner_content": map[string]any{"type": "string", "description": "Replacement inner markup"},
			"attributes":    map[string]any{"type": "object", "description": "Attributes to set"},
			"position":      map[string]any{"type": "object", "description": "Absolute position {x, y}"},
			"size":          map[string]any{"type": "object", "description": "Absolute size {width, height}"},
			"timestamp":     map[string]any{"type": "integer", "description": "Epoch milliseconds (defaults to now)"},
			"automated":     map[string]any{"type": "boolean", "description": "True when machine-generated"},
		}, []string{"doc_id", "selector"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*applyOverrideRequest)
		if err := e.ApplyOverride(r.DocID, r.toOverride()); err != nil {
			return nil, err
		}
		st, _ := e.State(r.DocID)
		return map[string]any{"status": string(st.Status), "records": st.Log.Count()}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r applyOverrideRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- history ---

type historyRequest struct {
	DocID string `json:"doc_id"`
}

type historyResponse struct {
	Entries   []override.HistoryEntry `json:"entries"`
	Summaries []string                `json:"summaries"`
}

func (e *Engine) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domcanvas_history",
		Description: "Get a document's chronological edit history with one-line summaries.",
		InputSchema: inputSchema(map[string]any{
			"doc_id": map[string]any{"type": "string", "description": "Document id"},
		}, []string{"doc_id"}),
	}

	describer := override.NewDescriber()

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*historyRequest)
		entries, err := e.History(r.DocID)
		if err != nil {
			return nil, err
		}
		return &historyResponse{
			Entries:   entries,
			Summaries: describer.DescribeHistory(entries),
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r historyRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- restore_version ---

type restoreVersionRequest struct {
	DocID     string `json:"doc_id"`
	Timestamp int64  `json:"timestamp"`
}

func (e *Engine) registerRestoreVersionTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domcanvas_restore_version",
		Description: "Drop every edit newer than the target timestamp and replay the survivors onto the render.",
		InputSchema: inputSchema(map[string]any{
			"doc_id":    map[string]any{"type": "string", "description": "Document id"},
			"timestamp": map[string]any{"type": "integer", "description": "Epoch milliseconds to restore to"},
		}, []string{"doc_id", "timestamp"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*restoreVersionRequest)
		if err := e.RestoreToVersion(r.DocID, r.Timestamp); err != nil {
			return nil, err
		}
		st, _ := e.State(r.DocID)
		return map[string]any{"status": string(st.Status), "records": st.Log.Count()}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r restoreVersionRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- validate ---

type validateRequest struct {
	DocID string `json:"doc_id"`
}

func (e *Engine) registerValidateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domcanvas_validate",
		Description: "Check whether the live render's geometry matches the canonical state within tolerance.",
		InputSchema: inputSchema(map[string]any{
			"doc_id": map[string]any{"type": "string", "description": "Document id"},
		}, []string{"doc_id"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*validateRequest)
		inSync, err := e.ValidateSync(r.DocID)
		if err != nil {
			return nil, err
		}
		st, _ := e.State(r.DocID)
		return map[string]any{"in_sync": inSync, "status": string(st.Status)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r validateRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- recover ---

type recoverRequest struct {
	DocID string `json:"doc_id"`
}

func (e *Engine) registerRecoverTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domcanvas_recover",
		Description: "Rebuild the live render from the canonical state: geometry plus the full edit log.",
		InputSchema: inputSchema(map[string]any{
			"doc_id": map[string]any{"type": "string", "description": "Document id"},
		}, []string{"doc_id"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*recoverRequest)
		if err := e.RecoverSync(r.DocID); err != nil {
			return nil, err
		}
		st, _ := e.State(r.DocID)
		return map[string]any{"status": string(st.Status)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r recoverRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
