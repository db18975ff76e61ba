package store

// schema contains the SQL statements to create the call-graph database schema.
const schema = `
-- Callables table: functions, methods, and default-bodied declarations
CREATE TABLE IF NOT EXISTS callables (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    kind TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_callables_name ON callables(name);
CREATE INDEX IF NOT EXISTS idx_callables_kind ON callables(kind);

-- Interface method declarations
CREATE TABLE IF NOT EXISTS method_decls (
    id           INTEGER PRIMARY KEY,
    name         TEXT NOT NULL,
    default_body INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_method_decls_name ON method_decls(name);

-- Declaration-to-implementation links
CREATE TABLE IF NOT EXISTS impl_links (
    decl_id INTEGER NOT NULL,
    impl_id INTEGER NOT NULL,
    PRIMARY KEY (decl_id, impl_id),
    FOREIGN KEY (decl_id) REFERENCES method_decls(id),
    FOREIGN KEY (impl_id) REFERENCES callables(id)
);

CREATE INDEX IF NOT EXISTS idx_impl_links_impl ON impl_links(impl_id);

-- Call edges, stored after expansion: every endpoint is a callable
CREATE TABLE IF NOT EXISTS edges (
    caller_id INTEGER NOT NULL,
    callee_id INTEGER NOT NULL,
    kind      TEXT NOT NULL,
    PRIMARY KEY (caller_id, callee_id, kind),
    FOREIGN KEY (caller_id) REFERENCES callables(id),
    FOREIGN KEY (callee_id) REFERENCES callables(id)
);

CREATE INDEX IF NOT EXISTS idx_edges_caller ON edges(caller_id);
CREATE INDEX IF NOT EXISTS idx_edges_callee ON edges(callee_id);
CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(kind);

-- Metadata table for analysis info
CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT
);
`
