package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenAndClose(t *testing.T) {
	tmpDir := t.TempDir()

	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	// Verify .callmap directory was created
	callmapDir := filepath.Join(tmpDir, ".callmap")
	if _, err := os.Stat(callmapDir); os.IsNotExist(err) {
		t.Error(".callmap directory was not created")
	}

	// Verify database file exists
	dbPath := filepath.Join(callmapDir, "callgraph.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("callgraph.db was not created")
	}

	if err := st.Close(); err != nil {
		t.Errorf("failed to close store: %v", err)
	}
}

func TestInsertAndRetrieveCallable(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	c := &Callable{
		ID:   101,
		Name: "github.com/test/pkg.MyFunc",
		Kind: CallableKindFunc,
	}

	if err := st.InsertCallable(c); err != nil {
		t.Fatalf("failed to insert callable: %v", err)
	}

	// Verify by querying
	var name string
	err = st.Tx().QueryRow("SELECT name FROM callables WHERE id = ?", c.ID).Scan(&name)
	if err != nil {
		t.Fatalf("failed to query callable: %v", err)
	}
	if name != c.Name {
		t.Errorf("expected name %q, got %q", c.Name, name)
	}

	// Re-inserting the same ID updates in place
	c.Name = "github.com/test/pkg.Renamed"
	if err := st.InsertCallable(c); err != nil {
		t.Fatalf("failed to upsert callable: %v", err)
	}
	var count int
	if err := st.Tx().QueryRow("SELECT COUNT(*) FROM callables").Scan(&count); err != nil {
		t.Fatalf("failed to count callables: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 callable after upsert, got %d", count)
	}
}

func TestInsertEdgeSetSemantics(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	for _, c := range []*Callable{
		{ID: 1, Name: "p.f", Kind: CallableKindFunc},
		{ID: 2, Name: "p.g", Kind: CallableKindFunc},
	} {
		if err := st.InsertCallable(c); err != nil {
			t.Fatalf("failed to insert callable: %v", err)
		}
	}

	edge := &Edge{CallerID: 1, CalleeID: 2, Kind: EdgeKindDefinite}
	if err := st.InsertEdge(edge); err != nil {
		t.Fatalf("failed to insert edge: %v", err)
	}
	// Inserting the same edge twice is a no-op
	if err := st.InsertEdge(edge); err != nil {
		t.Fatalf("failed to re-insert edge: %v", err)
	}

	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.DefiniteCount != 1 {
		t.Errorf("expected 1 definite edge, got %d", stats.DefiniteCount)
	}
	if stats.PotentialCount != 0 {
		t.Errorf("expected 0 potential edges, got %d", stats.PotentialCount)
	}
}

func TestInsertMethodDeclAndImplLink(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	decl := &MethodDecl{
		ID:          10,
		Name:        "github.com/test/pkg.(Reader).Read",
		DefaultBody: false,
	}
	if err := st.InsertMethodDecl(decl); err != nil {
		t.Fatalf("failed to insert method decl: %v", err)
	}

	impl := &Callable{ID: 21, Name: "github.com/test/pkg.(File).Read", Kind: CallableKindMethod}
	if err := st.InsertCallable(impl); err != nil {
		t.Fatalf("failed to insert callable: %v", err)
	}

	link := &ImplLink{DeclID: 10, ImplID: 21}
	if err := st.InsertImplLink(link); err != nil {
		t.Fatalf("failed to insert impl link: %v", err)
	}
	// Duplicate links are ignored
	if err := st.InsertImplLink(link); err != nil {
		t.Fatalf("failed to re-insert impl link: %v", err)
	}

	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.MethodDeclCount != 1 {
		t.Errorf("expected 1 method decl, got %d", stats.MethodDeclCount)
	}
	if stats.ImplLinkCount != 1 {
		t.Errorf("expected 1 impl link, got %d", stats.ImplLinkCount)
	}
}

func TestDefaultBodyRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	decl := &MethodDecl{ID: 10, Name: "p.(I).D", DefaultBody: true}
	if err := st.InsertMethodDecl(decl); err != nil {
		t.Fatalf("failed to insert method decl: %v", err)
	}

	var defaultBody bool
	err = st.Tx().QueryRow("SELECT default_body FROM method_decls WHERE id = ?", decl.ID).Scan(&defaultBody)
	if err != nil {
		t.Fatalf("failed to query method decl: %v", err)
	}
	if !defaultBody {
		t.Error("expected default_body to round-trip as true")
	}
}

func TestBatchInsert(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	batch, err := st.BeginBatch()
	if err != nil {
		t.Fatalf("failed to begin batch: %v", err)
	}

	// Insert multiple callables and a chain of edges
	for i := 0; i < 10; i++ {
		c := &Callable{
			ID:   NodeID(i + 1),
			Name: "p.f" + string(rune('a'+i)),
			Kind: CallableKindFunc,
		}
		if err := batch.InsertCallable(c); err != nil {
			batch.Rollback()
			t.Fatalf("failed to insert callable: %v", err)
		}
	}
	for i := 0; i < 9; i++ {
		e := &Edge{CallerID: NodeID(i + 1), CalleeID: NodeID(i + 2), Kind: EdgeKindDefinite}
		if err := batch.InsertEdge(e); err != nil {
			batch.Rollback()
			t.Fatalf("failed to insert edge: %v", err)
		}
	}

	if err := batch.Commit(); err != nil {
		t.Fatalf("failed to commit batch: %v", err)
	}

	// Verify count
	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.CallableCount != 10 {
		t.Errorf("expected 10 callables, got %d", stats.CallableCount)
	}
	if stats.DefiniteCount != 9 {
		t.Errorf("expected 9 definite edges, got %d", stats.DefiniteCount)
	}
}

func TestClear(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	// Insert some data
	c := &Callable{ID: 1, Name: "p.f", Kind: CallableKindFunc}
	if err := st.InsertCallable(c); err != nil {
		t.Fatalf("failed to insert callable: %v", err)
	}

	decl := &MethodDecl{ID: 10, Name: "p.(I).M"}
	if err := st.InsertMethodDecl(decl); err != nil {
		t.Fatalf("failed to insert method decl: %v", err)
	}

	// Clear
	if err := st.Clear(); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	// Verify empty
	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.CallableCount != 0 || stats.MethodDeclCount != 0 {
		t.Errorf("expected 0 callables and method decls, got %d and %d", stats.CallableCount, stats.MethodDeclCount)
	}
}

func TestMetadata(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	if err := st.SetMetadata("version", "1.0"); err != nil {
		t.Fatalf("failed to set metadata: %v", err)
	}

	val, err := st.GetMetadata("version")
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}
	if val != "1.0" {
		t.Errorf("expected '1.0', got '%s'", val)
	}

	// Update existing key
	if err := st.SetMetadata("version", "2.0"); err != nil {
		t.Fatalf("failed to update metadata: %v", err)
	}

	val, err = st.GetMetadata("version")
	if err != nil {
		t.Fatalf("failed to get updated metadata: %v", err)
	}
	if val != "2.0" {
		t.Errorf("expected '2.0', got '%s'", val)
	}
}

func TestWriteSummaryJSON(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	// Insert some data
	for _, c := range []*Callable{
		{ID: 2, Name: "p.b", Kind: CallableKindFunc},
		{ID: 1, Name: "p.a", Kind: CallableKindFunc},
	} {
		if err := st.InsertCallable(c); err != nil {
			t.Fatalf("failed to insert callable: %v", err)
		}
	}

	if err := st.SetMetadata("analyzed_at", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("failed to set metadata: %v", err)
	}

	if err := st.WriteSummaryJSON(); err != nil {
		t.Fatalf("failed to write graph.json: %v", err)
	}

	// Verify file exists and names come back sorted
	summaryPath := filepath.Join(tmpDir, ".callmap", "graph.json")
	data, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("graph.json was not created: %v", err)
	}

	var meta SummaryMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("failed to parse graph.json: %v", err)
	}
	if meta.CallableCount != 2 {
		t.Errorf("expected 2 callables, got %d", meta.CallableCount)
	}
	if len(meta.Callables) != 2 || meta.Callables[0] != "p.a" || meta.Callables[1] != "p.b" {
		t.Errorf("expected sorted callable names, got %v", meta.Callables)
	}
}
