package connectivity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/domcanvas/dbopen"
)

// Schema defines the routes table driving the router.
//
// Strategies:
//   - "local": dispatch to a handler registered via RegisterLocal.
//   - "http":  POST the payload to the endpoint via HTTPFactory.
//   - "noop":  silently succeed (feature flag / service disabled).
//
// Any write to the table bumps SQLite's data_version, which the Watch loop
// uses to detect changes without triggers.
const Schema = `
CREATE TABLE IF NOT EXISTS routes (
    service_name TEXT PRIMARY KEY,
    strategy     TEXT NOT NULL CHECK(strategy IN ('local', 'http', 'noop')),
    endpoint     TEXT,
    config       TEXT DEFAULT '{}',
    updated_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_routes_strategy ON routes(strategy);
`

// OpenDB opens the routes database with the shared pragma set. The database
// may be the same file the canonical state lives in.
func OpenDB(path string) (*sql.DB, error) {
	return dbopen.Open(path, dbopen.WithSchema(Schema))
}

// Init applies the routes schema to an already-open database.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// RouteRow is one row of the routes table.
type RouteRow struct {
	Service   string          `json:"service_name"`
	Strategy  string          `json:"strategy"`
	Endpoint  string          `json:"endpoint,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
	UpdatedAt int64           `json:"updated_at"`
}

// Admin mutates the routes table. All changes go through SQLite so the
// Watch loop picks them up without an explicit Reload.
type Admin struct {
	db *sql.DB
}

// NewAdmin wraps a routes database.
func NewAdmin(db *sql.DB) *Admin {
	return &Admin{db: db}
}

// ListRoutes returns every route, ordered by service name.
func (a *Admin) ListRoutes(ctx context.Context) ([]RouteRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT service_name, strategy, COALESCE(endpoint, ''), COALESCE(config, '{}'), updated_at
		FROM routes ORDER BY service_name`)
	if err != nil {
		return nil, fmt.Errorf("connectivity: list routes: %w", err)
	}
	defer rows.Close()

	var result []RouteRow
	for rows.Next() {
		var r RouteRow
		var cfg string
		if err := rows.Scan(&r.Service, &r.Strategy, &r.Endpoint, &cfg, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("connectivity: scan route: %w", err)
		}
		r.Config = json.RawMessage(cfg)
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetRoute returns one route, or nil when the service has none.
func (a *Admin) GetRoute(ctx context.Context, service string) (*RouteRow, error) {
	var r RouteRow
	var cfg string
	err := a.db.QueryRowContext(ctx, `
		SELECT service_name, strategy, COALESCE(endpoint, ''), COALESCE(config, '{}'), updated_at
		FROM routes WHERE service_name = ?`, service).
		Scan(&r.Service, &r.Strategy, &r.Endpoint, &cfg, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connectivity: get route: %w", err)
	}
	r.Config = json.RawMessage(cfg)
	return &r, nil
}

// UpsertRoute inserts or replaces a route.
func (a *Admin) UpsertRoute(ctx context.Context, service, strategy, endpoint string, config json.RawMessage) error {
	if config == nil {
		config = json.RawMessage(`{}`)
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO routes (service_name, strategy, endpoint, config)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(service_name) DO UPDATE SET
		    strategy   = excluded.strategy,
		    endpoint   = excluded.endpoint,
		    config     = excluded.config,
		    updated_at = strftime('%s', 'now')`,
		service, strategy, endpoint, string(config))
	if err != nil {
		return fmt.Errorf("connectivity: upsert route: %w", err)
	}
	return nil
}

// DeleteRoute removes a route.
func (a *Admin) DeleteRoute(ctx context.Context, service string) error {
	result, err := a.db.ExecContext(ctx, `DELETE FROM routes WHERE service_name = ?`, service)
	if err != nil {
		return fmt.Errorf("connectivity: delete route: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("connectivity: route %q not found", service)
	}
	return nil
}
