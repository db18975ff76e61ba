package analysis

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/abramin/callmap/internal/config"
	"github.com/abramin/callmap/internal/graph"
	"github.com/abramin/callmap/internal/store"
)

// Analyzer coordinates the analysis pipeline.
type Analyzer struct {
	cfg        *config.Config
	projectDir string
	store      *store.Store
	loader     *Loader
}

// NewAnalyzer creates a new analyzer for the given project directory.
func NewAnalyzer(cfg *config.Config, projectDir string) *Analyzer {
	absPath, err := filepath.Abs(projectDir)
	if err != nil {
		absPath = projectDir
	}
	return &Analyzer{
		cfg:        cfg,
		projectDir: absPath,
	}
}

// Result holds the results of an analysis run.
type Result struct {
	PackageCount    int
	CallableCount   int
	MethodDeclCount int
	DefiniteCount   int
	PotentialCount  int
	DroppedCount    int
	Duration        time.Duration
	DBPath          string

	// Graph is the expanded in-memory call graph, ready for dumping
	// and rendering.
	Graph *graph.Graph
}

// Run executes the analysis pipeline: load packages, build the call
// graph, expand dispatch edges, and persist the result.
func (a *Analyzer) Run() (*Result, error) {
	start := time.Now()

	// Open (or create) the store
	st, err := store.Open(a.projectDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()
	a.store = st

	// Clear existing data for fresh analysis
	if err := st.Clear(); err != nil {
		return nil, fmt.Errorf("clearing store: %w", err)
	}

	// Load packages
	fmt.Println("Loading packages...")
	loader := NewLoader(a.cfg, a.projectDir)
	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}
	a.loader = loader

	fmt.Printf("Loaded %d packages\n", len(loader.Packages()))

	// Build the call graph
	fmt.Println("Building call graph...")
	res := NewResolver(loader)
	g := graph.New()
	b := NewBuilder(g, res, loader.FileSet(), slog.Default())

	fset := loader.FileSet()
	for _, pkg := range loader.Packages() {
		for _, file := range pkg.Syntax {
			path := fset.Position(file.Pos()).Filename
			if loader.ExcludedFile(path) {
				continue
			}
			if err := b.File(file); err != nil {
				return nil, fmt.Errorf("walking %s: %w", path, err)
			}
		}
	}
	if err := b.Finish(); err != nil {
		return nil, err
	}

	// Expand dispatch edges to their implementers
	if err := g.Expand(); err != nil {
		return nil, fmt.Errorf("expanding dispatch edges: %w", err)
	}
	if err := g.Check(); err != nil {
		return nil, fmt.Errorf("checking graph: %w", err)
	}

	// Persist the graph
	if err := persistGraph(st, g); err != nil {
		return nil, fmt.Errorf("persisting graph: %w", err)
	}

	// Store analysis metadata
	if err := st.SetMetadata("analyzed_at", time.Now().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("storing metadata: %w", err)
	}
	if err := st.SetMetadata("project_dir", a.projectDir); err != nil {
		return nil, fmt.Errorf("storing metadata: %w", err)
	}

	// Get stats
	stats, err := st.GetStats()
	if err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}

	// Write graph.json for quick inspection without the server
	if err := st.WriteSummaryJSON(); err != nil {
		return nil, fmt.Errorf("writing graph.json: %w", err)
	}

	return &Result{
		PackageCount:    len(loader.Packages()),
		CallableCount:   stats.CallableCount,
		MethodDeclCount: stats.MethodDeclCount,
		DefiniteCount:   stats.DefiniteCount,
		PotentialCount:  stats.PotentialCount,
		DroppedCount:    b.Stats().Dropped,
		Duration:        time.Since(start),
		DBPath:          st.DBPath(),
		Graph:           g,
	}, nil
}

// persistGraph writes the expanded graph to the store in one transaction.
func persistGraph(st *store.Store, g *graph.Graph) error {
	batch, err := st.BeginBatch()
	if err != nil {
		return fmt.Errorf("beginning batch: %w", err)
	}

	for _, c := range g.Callables() {
		row := &store.Callable{
			ID:   store.NodeID(c.ID),
			Name: c.Name,
			Kind: storeKind(c.Kind),
		}
		if err := batch.InsertCallable(row); err != nil {
			batch.Rollback()
			return fmt.Errorf("inserting callable %s: %w", c.Name, err)
		}
	}

	for _, d := range g.MethodDecls() {
		row := &store.MethodDecl{
			ID:          store.NodeID(d.ID),
			Name:        d.Name,
			DefaultBody: d.DefaultBody,
		}
		if err := batch.InsertMethodDecl(row); err != nil {
			batch.Rollback()
			return fmt.Errorf("inserting method decl %s: %w", d.Name, err)
		}
		for _, impl := range g.Implementers(d.ID) {
			link := &store.ImplLink{
				DeclID: store.NodeID(d.ID),
				ImplID: store.NodeID(impl),
			}
			if err := batch.InsertImplLink(link); err != nil {
				batch.Rollback()
				return fmt.Errorf("inserting impl link for %s: %w", d.Name, err)
			}
		}
	}

	for _, e := range g.StaticCalls() {
		row := &store.Edge{
			CallerID: store.NodeID(e.From),
			CalleeID: store.NodeID(e.To),
			Kind:     store.EdgeKindDefinite,
		}
		if err := batch.InsertEdge(row); err != nil {
			batch.Rollback()
			return fmt.Errorf("inserting edge: %w", err)
		}
	}
	for _, e := range g.DynamicCalls() {
		row := &store.Edge{
			CallerID: store.NodeID(e.From),
			CalleeID: store.NodeID(e.To),
			Kind:     store.EdgeKindPotential,
		}
		if err := batch.InsertEdge(row); err != nil {
			batch.Rollback()
			return fmt.Errorf("inserting edge: %w", err)
		}
	}

	return batch.Commit()
}

func storeKind(k graph.CallableKind) store.CallableKind {
	switch k {
	case graph.CallableMethod:
		return store.CallableKindMethod
	case graph.CallableDefault:
		return store.CallableKindDefault
	default:
		return store.CallableKindFunc
	}
}
