package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles persistence of the call graph to SQLite.
type Store struct {
	db      *sql.DB
	dbPath  string
	baseDir string // Project root directory
}

// Open creates or opens a call-graph database.
// By default, stores at .callmap/callgraph.db relative to the given project directory.
func Open(projectDir string) (*Store, error) {
	callmapDir := filepath.Join(projectDir, ".callmap")
	if err := os.MkdirAll(callmapDir, 0755); err != nil {
		return nil, fmt.Errorf("creating .callmap directory: %w", err)
	}

	dbPath := filepath.Join(callmapDir, "callgraph.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys and WAL mode for better performance
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	// Create schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{
		db:      db,
		dbPath:  dbPath,
		baseDir: projectDir,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the path to the database file.
func (s *Store) DBPath() string {
	return s.dbPath
}

// Clear removes all data from the database (for re-analysis).
func (s *Store) Clear() error {
	tables := []string{"edges", "impl_links", "method_decls", "callables", "metadata"}
	for _, table := range tables {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing table %s: %w", table, err)
		}
	}
	return nil
}

// InsertCallable inserts or updates a callable.
func (s *Store) InsertCallable(c *Callable) error {
	_, err := s.db.Exec(`
		INSERT INTO callables (id, name, kind)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind
	`, c.ID, c.Name, c.Kind)
	return err
}

// InsertMethodDecl inserts or updates a method declaration.
func (s *Store) InsertMethodDecl(d *MethodDecl) error {
	_, err := s.db.Exec(`
		INSERT INTO method_decls (id, name, default_body)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			default_body = excluded.default_body
	`, d.ID, d.Name, d.DefaultBody)
	return err
}

// InsertImplLink links a declaration to an implementation.
func (s *Store) InsertImplLink(l *ImplLink) error {
	_, err := s.db.Exec(`
		INSERT INTO impl_links (decl_id, impl_id)
		VALUES (?, ?)
		ON CONFLICT(decl_id, impl_id) DO NOTHING
	`, l.DeclID, l.ImplID)
	return err
}

// InsertEdge inserts a call edge. Edges carry set semantics: inserting the
// same edge twice is a no-op.
func (s *Store) InsertEdge(e *Edge) error {
	_, err := s.db.Exec(`
		INSERT INTO edges (caller_id, callee_id, kind)
		VALUES (?, ?, ?)
		ON CONFLICT(caller_id, callee_id, kind) DO NOTHING
	`, e.CallerID, e.CalleeID, e.Kind)
	return err
}

// SetMetadata stores a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetMetadata retrieves a value from the metadata table.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	return value, err
}

// Stats holds statistics about the stored call graph.
type Stats struct {
	CallableCount   int       `json:"callable_count"`
	MethodDeclCount int       `json:"method_decl_count"`
	ImplLinkCount   int       `json:"impl_link_count"`
	DefiniteCount   int       `json:"definite_count"`
	PotentialCount  int       `json:"potential_count"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// GetStats returns statistics about the stored call graph.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	rows := []struct {
		table string
		dest  *int
	}{
		{"callables", &stats.CallableCount},
		{"method_decls", &stats.MethodDeclCount},
		{"impl_links", &stats.ImplLinkCount},
	}

	for _, r := range rows {
		err := s.db.QueryRow("SELECT COUNT(*) FROM " + r.table).Scan(r.dest)
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", r.table, err)
		}
	}

	kinds := []struct {
		kind EdgeKind
		dest *int
	}{
		{EdgeKindDefinite, &stats.DefiniteCount},
		{EdgeKindPotential, &stats.PotentialCount},
	}

	for _, k := range kinds {
		err := s.db.QueryRow("SELECT COUNT(*) FROM edges WHERE kind = ?", k.kind).Scan(k.dest)
		if err != nil {
			return nil, fmt.Errorf("counting %s edges: %w", k.kind, err)
		}
	}

	// Get analysis timestamp from metadata
	if ts, err := s.GetMetadata("analyzed_at"); err == nil {
		stats.AnalyzedAt, _ = time.Parse(time.RFC3339, ts)
	}

	return stats, nil
}

// SummaryMetadata holds the summary written to graph.json alongside the
// database.
type SummaryMetadata struct {
	Version         string    `json:"version"`
	ProjectPath     string    `json:"project_path"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
	CallableCount   int       `json:"callable_count"`
	MethodDeclCount int       `json:"method_decl_count"`
	DefiniteCount   int       `json:"definite_count"`
	PotentialCount  int       `json:"potential_count"`
	Callables       []string  `json:"callables"` // Sorted callable names
}

// WriteSummaryJSON writes graph.json next to the database so the graph shape
// can be inspected without opening SQLite.
func (s *Store) WriteSummaryJSON() error {
	stats, err := s.GetStats()
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	// Get list of callables
	rows, err := s.db.Query("SELECT name FROM callables ORDER BY name, id")
	if err != nil {
		return fmt.Errorf("querying callables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning callable: %w", err)
		}
		names = append(names, name)
	}

	meta := &SummaryMetadata{
		Version:         "1",
		ProjectPath:     s.baseDir,
		AnalyzedAt:      stats.AnalyzedAt,
		CallableCount:   stats.CallableCount,
		MethodDeclCount: stats.MethodDeclCount,
		DefiniteCount:   stats.DefiniteCount,
		PotentialCount:  stats.PotentialCount,
		Callables:       names,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling graph.json: %w", err)
	}

	summaryPath := filepath.Join(filepath.Dir(s.dbPath), "graph.json")
	if err := os.WriteFile(summaryPath, data, 0644); err != nil {
		return fmt.Errorf("writing graph.json: %w", err)
	}

	return nil
}

// Tx returns the underlying database for advanced queries.
// Use with caution - prefer adding methods to Store instead.
func (s *Store) Tx() *sql.DB {
	return s.db
}

// BeginBatch starts a transaction for batch inserts.
// Call Commit() when done, or Rollback() on error.
func (s *Store) BeginBatch() (*BatchTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &BatchTx{tx: tx}, nil
}

// BatchTx wraps a transaction for batch operations.
type BatchTx struct {
	tx *sql.Tx
}

// Commit commits the batch transaction.
func (b *BatchTx) Commit() error {
	return b.tx.Commit()
}

// Rollback rolls back the batch transaction.
func (b *BatchTx) Rollback() error {
	return b.tx.Rollback()
}

// InsertCallable inserts a callable within the batch.
func (b *BatchTx) InsertCallable(c *Callable) error {
	_, err := b.tx.Exec(`
		INSERT INTO callables (id, name, kind)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind
	`, c.ID, c.Name, c.Kind)
	return err
}

// InsertMethodDecl inserts a method declaration within the batch.
func (b *BatchTx) InsertMethodDecl(d *MethodDecl) error {
	_, err := b.tx.Exec(`
		INSERT INTO method_decls (id, name, default_body)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			default_body = excluded.default_body
	`, d.ID, d.Name, d.DefaultBody)
	return err
}

// InsertImplLink links a declaration to an implementation within the batch.
func (b *BatchTx) InsertImplLink(l *ImplLink) error {
	_, err := b.tx.Exec(`
		INSERT INTO impl_links (decl_id, impl_id)
		VALUES (?, ?)
		ON CONFLICT(decl_id, impl_id) DO NOTHING
	`, l.DeclID, l.ImplID)
	return err
}

// InsertEdge inserts a call edge within the batch.
func (b *BatchTx) InsertEdge(e *Edge) error {
	_, err := b.tx.Exec(`
		INSERT INTO edges (caller_id, callee_id, kind)
		VALUES (?, ?, ?)
		ON CONFLICT(caller_id, callee_id, kind) DO NOTHING
	`, e.CallerID, e.CalleeID, e.Kind)
	return err
}
