package analysis

import (
	"fmt"
	"go/ast"
	"go/token"
	"log/slog"

	"github.com/abramin/callmap/internal/graph"
)

// BuildStats counts what the builder recorded.
type BuildStats struct {
	// Functions is the number of registered callables, counting
	// functions, methods, literals, and default-bodied declarations.
	Functions int
	// MethodDecls is the number of registered interface method
	// declarations.
	MethodDecls int
	// MethodImpls is the number of declaration-to-implementation links,
	// available after Finish.
	MethodImpls int
	// Dropped counts call references found outside any function body.
	Dropped int
}

// Builder walks syntax files and records callables, method declarations,
// and calls into a graph. Calls are attributed to the innermost enclosing
// function-like declaration; a reference outside any body is logged and
// dropped.
//
// Call recording works at the reference level: any identifier that
// resolves to a function or method is recorded as a call from the current
// context. That over-approximates (taking a function's value counts as a
// call) and under-approximates (calls through function values are
// invisible).
type Builder struct {
	g    *graph.Graph
	sem  Semantics
	fset *token.FileSet
	log  *slog.Logger

	pending []implLink
	stats   BuildStats
	err     error
}

type implLink struct {
	decl graph.NodeID
	impl graph.NodeID
}

// NewBuilder creates a builder recording into g. A nil logger falls back
// to slog.Default.
func NewBuilder(g *graph.Graph, sem Semantics, fset *token.FileSet, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{g: g, sem: sem, fset: fset, log: log}
}

// File walks one syntax file. Files may be walked in any order; method
// implementation links are resolved in Finish once all declarations are
// known.
func (b *Builder) File(file *ast.File) error {
	ast.Walk(&fileWalker{b: b}, file)
	return b.err
}

// Finish applies the collected implementation links. Every link targets a
// declaration the walk must have registered, so a failure here means the
// analysis itself is inconsistent.
func (b *Builder) Finish() error {
	if b.err != nil {
		return b.err
	}
	for _, l := range b.pending {
		if err := b.g.AddImpl(l.decl, l.impl); err != nil {
			return fmt.Errorf("linking method implementations: %w", err)
		}
		b.stats.MethodImpls++
	}
	b.pending = nil
	return nil
}

// Stats returns the builder's counters.
func (b *Builder) Stats() BuildStats {
	return b.stats
}

// fileWalker carries the current enclosing callable through the walk.
// Entering a function body hands children a walker with cur set to that
// function; the enclosing walker keeps its own context, so leaving the
// body restores it.
type fileWalker struct {
	b   *Builder
	cur graph.NodeID
}

func (w *fileWalker) Visit(n ast.Node) ast.Visitor {
	switch node := n.(type) {
	case *ast.FuncDecl:
		return w.b.enterFuncDecl(node)
	case *ast.InterfaceType:
		w.b.registerInterface(node)
		return w
	case *ast.FuncLit:
		return w.b.enterFuncLit(node, w)
	case *ast.Ident:
		w.b.recordRef(node, w.cur)
		return nil
	}
	return w
}

func (b *Builder) enterFuncDecl(decl *ast.FuncDecl) ast.Visitor {
	if b.sem.Generated(decl.Pos()) {
		return nil
	}
	c, ok := b.sem.ClassifyFunc(decl)
	if !ok {
		return nil
	}
	if c.Kind == ClassMethodDecl {
		// The go/types resolver never classifies a FuncDecl as a method
		// declaration, but the contract allows it: register it like an
		// interface method, and let a default body provide its own context.
		b.setErr(b.registerDecl(c))
		if !c.DefaultBody {
			return nil
		}
		return &fileWalker{b: b, cur: c.ID}
	}
	b.setErr(b.registerCallable(c))
	return &fileWalker{b: b, cur: c.ID}
}

func (b *Builder) enterFuncLit(lit *ast.FuncLit, outer *fileWalker) ast.Visitor {
	if b.sem.Generated(lit.Pos()) {
		return nil
	}
	c, ok := b.sem.ClassifyFuncLit(lit)
	if !ok {
		// Unclassified literal: attribute its body to the enclosing
		// context.
		return outer
	}
	b.setErr(b.registerCallable(c))
	return &fileWalker{b: b, cur: c.ID}
}

func (b *Builder) registerInterface(node *ast.InterfaceType) {
	if b.sem.Generated(node.Pos()) {
		return
	}
	for _, field := range node.Methods.List {
		// Embedded interfaces carry no field names and register where
		// they are declared.
		for _, name := range field.Names {
			c, ok := b.sem.ClassifyInterfaceMethod(name)
			if !ok {
				continue
			}
			b.setErr(b.registerDecl(c))
		}
	}
}

func (b *Builder) registerCallable(c Classification) error {
	kind := graph.CallableFunc
	if c.Kind == ClassMethodImpl {
		kind = graph.CallableMethod
	}
	if err := b.g.AddCallable(c.ID, c.Name, kind); err != nil {
		return fmt.Errorf("registering %s: %w", c.Name, err)
	}
	b.stats.Functions++
	for _, decl := range c.Overrides {
		b.pending = append(b.pending, implLink{decl: decl, impl: c.ID})
	}
	return nil
}

// registerDecl records an interface method declaration. A declaration
// with its own body also registers as a callable and as its own fallback
// implementation, so dispatch can land on the default body when no
// override exists.
func (b *Builder) registerDecl(c Classification) error {
	if err := b.g.AddMethodDecl(c.ID, c.Name, c.DefaultBody); err != nil {
		return fmt.Errorf("registering %s: %w", c.Name, err)
	}
	b.stats.MethodDecls++
	if c.DefaultBody {
		if err := b.g.AddCallable(c.ID, c.Name, graph.CallableDefault); err != nil {
			return fmt.Errorf("registering %s: %w", c.Name, err)
		}
		b.stats.Functions++
		b.pending = append(b.pending, implLink{decl: c.ID, impl: c.ID})
	}
	return nil
}

// recordRef records a call edge for an identifier that resolves to a
// function or method. References in generated code are skipped silently;
// references without an enclosing function are logged and dropped;
// references to non-local targets are ignored.
func (b *Builder) recordRef(ref *ast.Ident, cur graph.NodeID) {
	if b.sem.Generated(ref.Pos()) {
		return
	}
	t, ok := b.sem.ResolveCall(ref)
	if !ok {
		return
	}
	if cur == 0 {
		b.stats.Dropped++
		b.log.Warn("call outside any function body",
			"ref", ref.Name,
			"pos", b.fset.Position(ref.Pos()).String())
		return
	}
	if !t.Local {
		return
	}
	if t.Dispatch {
		b.setErr(b.g.AddDynamicCall(cur, t.ID))
	} else {
		b.setErr(b.g.AddStaticCall(cur, t.ID))
	}
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}
