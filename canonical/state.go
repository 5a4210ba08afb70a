package canonical

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/domcanvas/domsync"
	"github.com/hazyhaar/domcanvas/override"
)

// DocState is the durable canonical state of one document. It satisfies
// domsync.CanonicalState: reads come from the in-memory cache, writes go
// through to SQLite immediately. The interface has no error channel, so
// persistence failures are logged and the cache stays authoritative until
// the next successful write.
type DocState struct {
	store     *Store
	docID     string
	box       domsync.Box
	hasBox    bool
	overrides []override.Override
}

// Document loads a document's canonical state, creating the row when it
// does not exist yet.
func (s *Store) Document(ctx context.Context, docID string) (*DocState, error) {
	d := &DocState{store: s, docID: docID}

	var overridesJSON string
	var hasGeometry int
	err := s.DB.QueryRowContext(ctx, `
		SELECT x, y, width, height, has_geometry, overrides
		FROM documents WHERE doc_id = ?`, docID).Scan(
		&d.box.X, &d.box.Y, &d.box.Width, &d.box.Height, &hasGeometry, &overridesJSON,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		now := time.Now().UnixMilli()
		_, err = s.DB.ExecContext(ctx, `
			INSERT INTO documents (doc_id, created_at, updated_at) VALUES (?, ?, ?)`,
			docID, now, now)
		if err != nil {
			return nil, fmt.Errorf("canonical: create document %s: %w", docID, err)
		}
		return d, nil
	case err != nil:
		return nil, fmt.Errorf("canonical: load document %s: %w", docID, err)
	}

	d.hasBox = hasGeometry != 0
	if err := json.Unmarshal([]byte(overridesJSON), &d.overrides); err != nil {
		return nil, fmt.Errorf("canonical: decode overrides for %s: %w", docID, err)
	}
	return d, nil
}

// Delete removes a document's canonical state.
func (s *Store) Delete(ctx context.Context, docID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	return err
}

// DocIDs lists every document with canonical state.
func (s *Store) DocIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT doc_id FROM documents ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DocID returns the document id this state belongs to.
func (d *DocState) DocID() string { return d.docID }

// Geometry returns the shape rectangle and whether one was ever recorded.
func (d *DocState) Geometry() (domsync.Box, bool) {
	return d.box, d.hasBox
}

// SetGeometry records the shape rectangle.
func (d *DocState) SetGeometry(box domsync.Box) {
	d.box, d.hasBox = box, true
	_, err := d.store.DB.Exec(`
		UPDATE documents SET x = ?, y = ?, width = ?, height = ?, has_geometry = 1, updated_at = ?
		WHERE doc_id = ?`,
		box.X, box.Y, box.Width, box.Height, time.Now().UnixMilli(), d.docID)
	if err != nil {
		d.store.logger.Warn("canonical: persist geometry failed",
			"doc_id", d.docID, "error", err)
	}
}

// SetOverrides replaces the stored override log.
func (d *DocState) SetOverrides(overrides []override.Override) {
	d.overrides = overrides
	data, err := json.Marshal(overrides)
	if err != nil {
		d.store.logger.Warn("canonical: encode overrides failed",
			"doc_id", d.docID, "error", err)
		return
	}
	_, err = d.store.DB.Exec(`
		UPDATE documents SET overrides = ?, updated_at = ? WHERE doc_id = ?`,
		string(data), time.Now().UnixMilli(), d.docID)
	if err != nil {
		d.store.logger.Warn("canonical: persist overrides failed",
			"doc_id", d.docID, "error", err)
	}
}

// Overrides returns the stored override log.
func (d *DocState) Overrides() []override.Override {
	return d.overrides
}
