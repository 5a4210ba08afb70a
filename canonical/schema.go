package canonical

// Schema contains the DDL for the canonical document state table.
const Schema = `
-- Canonical per-document state: shape geometry on the host canvas plus the
-- serialized override log. One row per registered document.
CREATE TABLE IF NOT EXISTS documents (
    doc_id       TEXT PRIMARY KEY,
    x            REAL NOT NULL DEFAULT 0,
    y            REAL NOT NULL DEFAULT 0,
    width        REAL NOT NULL DEFAULT 0,
    height       REAL NOT NULL DEFAULT 0,
    has_geometry INTEGER NOT NULL DEFAULT 0,
    overrides    TEXT NOT NULL DEFAULT '[]',
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);
`
