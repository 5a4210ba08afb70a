package domsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/domcanvas/connectivity"
	"github.com/hazyhaar/domcanvas/idgen"
	"github.com/hazyhaar/domcanvas/markup"
	"github.com/hazyhaar/domcanvas/override"
)

// RegisterConnectivity registers engine service handlers on a connectivity
// Router.
//
// Registered services:
//
//	domcanvas_parse           — parse markup and register a document
//	domcanvas_apply_override  — record and apply a selector-keyed edit
//	domcanvas_history         — chronological edit history with summaries
//	domcanvas_restore_version — truncate the log and replay
//	domcanvas_validate        — geometry agreement check
//	domcanvas_recover         — rebuild the render from canonical state
func (e *Engine) RegisterConnectivity(router *connectivity.Router) {
	router.RegisterLocal("domcanvas_parse", e.handleParse)
	router.RegisterLocal("domcanvas_apply_override", e.handleApplyOverride)
	router.RegisterLocal("domcanvas_history", e.handleHistory)
	router.RegisterLocal("domcanvas_restore_version", e.handleRestoreVersion)
	router.RegisterLocal("domcanvas_validate", e.handleValidate)
	router.RegisterLocal("domcanvas_recover", e.handleRecover)
}

func (e *Engine) handleParse(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		Markup string `json:"markup"`
		DocID  string `json:"doc_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	parsed, err := markup.Parse(req.Markup)
	if err != nil {
		return nil, err
	}
	docID := req.DocID
	if docID == "" {
		docID = idgen.New()
	}
	e.InitSync(docID, parsed, nil, nil)
	return json.Marshal(map[string]any{
		"doc_id":   docID,
		"elements": len(parsed.Index),
		"root_id":  parsed.Root.ID,
	})
}

func (e *Engine) handleApplyOverride(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		DocID string `json:"doc_id"`
		override.Override
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := e.ApplyOverride(req.DocID, req.Override); err != nil {
		return nil, err
	}
	st, _ := e.State(req.DocID)
	return json.Marshal(map[string]any{"status": string(st.Status), "records": st.Log.Count()})
}

func (e *Engine) handleHistory(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		DocID string `json:"doc_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	entries, err := e.History(req.DocID)
	if err != nil {
		return nil, err
	}
	describer := override.NewDescriber()
	return json.Marshal(map[string]any{
		"entries":   entries,
		"summaries": describer.DescribeHistory(entries),
	})
}

func (e *Engine) handleRestoreVersion(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		DocID     string `json:"doc_id"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := e.RestoreToVersion(req.DocID, req.Timestamp); err != nil {
		return nil, err
	}
	st, _ := e.State(req.DocID)
	return json.Marshal(map[string]any{"status": string(st.Status), "records": st.Log.Count()})
}

func (e *Engine) handleValidate(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		DocID string `json:"doc_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	inSync, err := e.ValidateSync(req.DocID)
	if err != nil {
		return nil, err
	}
	st, _ := e.State(req.DocID)
	return json.Marshal(map[string]any{"in_sync": inSync, "status": string(st.Status)})
}

func (e *Engine) handleRecover(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		DocID string `json:"doc_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := e.RecoverSync(req.DocID); err != nil {
		return nil, err
	}
	st, _ := e.State(req.DocID)
	return json.Marshal(map[string]any{"status": string(st.Status)})
}
