// Package graph holds the call graph assembled during analysis: the
// callables of the analyzed unit, its abstract method declarations, the
// links from declarations to their implementations, and the call edges
// between callables.
//
// A Graph is built single-threaded by the analysis walk and then finalized
// with Expand, which rewrites every dynamically dispatched edge into one
// concrete edge per known implementation of the declaration it was recorded
// against. After Expand the graph is read-only: mutating calls fail with
// ErrExpanded, and the dump and DOT views become valid.
package graph

import (
	"fmt"
	"sort"
)

// NodeID identifies one syntax construct of the analyzed unit. IDs are
// assigned by the front end and are unique for the lifetime of a run; the
// zero value never identifies anything.
type NodeID int64

// CallableKind says how a callable came to exist.
type CallableKind int

const (
	// CallableFunc is a free function (named or literal).
	CallableFunc CallableKind = iota
	// CallableMethod is a method on a concrete type.
	CallableMethod
	// CallableDefault is a default-bodied method declaration, which is both
	// a declaration and a callable.
	CallableDefault
)

var callableKindNames = map[CallableKind]string{
	CallableFunc:    "func",
	CallableMethod:  "method",
	CallableDefault: "default_method",
}

func (k CallableKind) String() string {
	if s, ok := callableKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Callable is anything an expanded call edge can target: a function, a
// concrete method, or a default-bodied method declaration. The name is the
// fully qualified display name, fixed at registration.
type Callable struct {
	ID   NodeID
	Name string
	Kind CallableKind
}

// MethodDecl is an abstract method declaration. A declaration with a
// default body is also registered as a Callable under the same ID.
type MethodDecl struct {
	ID          NodeID
	Name        string
	DefaultBody bool
}

// Edge is a directed call edge. In the dynamic set, To names a method
// declaration until Expand rewrites the set; everywhere else both endpoints
// are callables.
type Edge struct {
	From NodeID
	To   NodeID
}

// Graph is the call graph under construction. It is owned by a single
// goroutine and is not safe for concurrent use.
type Graph struct {
	callables map[NodeID]Callable
	decls     map[NodeID]MethodDecl
	// impls maps a declaration to the callables implementing it, in
	// registration order. Every registered declaration has an entry, even
	// when nothing implements it.
	impls map[NodeID][]NodeID

	static map[Edge]struct{}
	// During collection the dynamic edges are (caller, declaration).
	// Expand replaces them with (caller, implementation).
	dynamic map[Edge]struct{}

	expanded bool
}

// New returns an empty graph ready for building.
func New() *Graph {
	return &Graph{
		callables: make(map[NodeID]Callable),
		decls:     make(map[NodeID]MethodDecl),
		impls:     make(map[NodeID][]NodeID),
		static:    make(map[Edge]struct{}),
		dynamic:   make(map[Edge]struct{}),
	}
}

// AddCallable registers a callable under its ID.
func (g *Graph) AddCallable(id NodeID, name string, kind CallableKind) error {
	if g.expanded {
		return ErrExpanded
	}
	if _, ok := g.callables[id]; ok {
		return fmt.Errorf("callable %d (%s): %w", id, name, ErrDuplicateNode)
	}
	g.callables[id] = Callable{ID: id, Name: name, Kind: kind}
	return nil
}

// AddMethodDecl registers an abstract method declaration together with its
// initially empty implementer entry.
func (g *Graph) AddMethodDecl(id NodeID, name string, defaultBody bool) error {
	if g.expanded {
		return ErrExpanded
	}
	if _, ok := g.decls[id]; ok {
		return fmt.Errorf("method decl %d (%s): %w", id, name, ErrDuplicateNode)
	}
	g.decls[id] = MethodDecl{ID: id, Name: name, DefaultBody: defaultBody}
	g.impls[id] = nil
	return nil
}

// AddImpl records that the callable implID implements the declaration
// declID. The declaration must already be registered; implementations are
// only ever reported against declarations the walk has seen.
func (g *Graph) AddImpl(declID, implID NodeID) error {
	if g.expanded {
		return ErrExpanded
	}
	if _, ok := g.decls[declID]; !ok {
		return fmt.Errorf("impl %d of decl %d: %w", implID, declID, ErrUnknownDecl)
	}
	g.impls[declID] = append(g.impls[declID], implID)
	return nil
}

// AddStaticCall records a call that resolved to a single concrete callable.
// Either endpoint may be registered later in the same walk; endpoints are
// validated by Check once the walk is done.
func (g *Graph) AddStaticCall(caller, callee NodeID) error {
	if g.expanded {
		return ErrExpanded
	}
	g.static[Edge{From: caller, To: callee}] = struct{}{}
	return nil
}

// AddDynamicCall records a dynamically dispatched call against the method
// declaration it dispatches through.
func (g *Graph) AddDynamicCall(caller, declID NodeID) error {
	if g.expanded {
		return ErrExpanded
	}
	g.dynamic[Edge{From: caller, To: declID}] = struct{}{}
	return nil
}

// Expand rewrites every dynamic edge (caller, decl) into one edge
// (caller, impl) per implementation of decl, replacing the dynamic set
// wholesale. A declaration nothing implements contributes no edges; a
// dynamic edge whose target was never registered as a declaration is a
// contract violation and fails with ErrUnknownDecl. Expand runs once:
// calling it again is a no-op, as an expanded graph has no
// declaration-targeted edges left to rewrite.
func (g *Graph) Expand() error {
	if g.expanded {
		return nil
	}

	processed := make(map[Edge]struct{})
	for e := range g.dynamic {
		if _, ok := g.decls[e.To]; !ok {
			return fmt.Errorf("expand: %w", &EdgeError{From: e.From, To: e.To, Err: ErrUnknownDecl})
		}
		for _, impl := range g.impls[e.To] {
			processed[Edge{From: e.From, To: impl}] = struct{}{}
		}
	}

	g.dynamic = processed
	g.expanded = true
	return nil
}

// Check validates endpoint closure: every edge endpoint must be a
// registered callable. Valid after Expand; before it the dynamic edges
// still target declarations. A failure means the front end leaked a target
// it should have filtered out.
func (g *Graph) Check() error {
	for e := range g.static {
		if err := g.checkEdge(e); err != nil {
			return err
		}
	}
	for e := range g.dynamic {
		if err := g.checkEdge(e); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) checkEdge(e Edge) error {
	if _, ok := g.callables[e.From]; !ok {
		return &EdgeError{From: e.From, To: e.To, Err: ErrUnknownCallable}
	}
	if _, ok := g.callables[e.To]; !ok {
		return &EdgeError{From: e.From, To: e.To, Err: ErrUnknownCallable}
	}
	return nil
}

// Expanded reports whether Expand has run.
func (g *Graph) Expanded() bool {
	return g.expanded
}

// Callable looks up a registered callable by ID.
func (g *Graph) Callable(id NodeID) (Callable, bool) {
	c, ok := g.callables[id]
	return c, ok
}

// MethodDecl looks up a registered method declaration by ID.
func (g *Graph) MethodDecl(id NodeID) (MethodDecl, bool) {
	d, ok := g.decls[id]
	return d, ok
}

// Callables returns every registered callable, sorted by name then ID so
// output built from the list is deterministic.
func (g *Graph) Callables() []Callable {
	out := make([]Callable, 0, len(g.callables))
	for _, c := range g.callables {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MethodDecls returns every registered method declaration, sorted by name
// then ID.
func (g *Graph) MethodDecls() []MethodDecl {
	out := make([]MethodDecl, 0, len(g.decls))
	for _, d := range g.decls {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Implementers returns the callables implementing decl, in registration
// order. The slice is a copy.
func (g *Graph) Implementers(declID NodeID) []NodeID {
	impls := g.impls[declID]
	if len(impls) == 0 {
		return nil
	}
	out := make([]NodeID, len(impls))
	copy(out, impls)
	return out
}

// StaticCalls returns the definite edges, sorted for deterministic output.
func (g *Graph) StaticCalls() []Edge {
	return g.sortedEdges(g.static)
}

// DynamicCalls returns the dynamic edges, sorted for deterministic output.
// Before Expand the targets are declarations; after it, callables.
func (g *Graph) DynamicCalls() []Edge {
	return g.sortedEdges(g.dynamic)
}

func (g *Graph) sortedEdges(set map[Edge]struct{}) []Edge {
	out := make([]Edge, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		an, bn := g.nameOf(a.From), g.nameOf(b.From)
		if an != bn {
			return an < bn
		}
		an, bn = g.nameOf(a.To), g.nameOf(b.To)
		if an != bn {
			return an < bn
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
	return out
}

// nameOf resolves a display name for sorting and dumping. Callables win;
// declarations cover the pre-expansion dynamic targets.
func (g *Graph) nameOf(id NodeID) string {
	if c, ok := g.callables[id]; ok {
		return c.Name
	}
	if d, ok := g.decls[id]; ok {
		return d.Name
	}
	return fmt.Sprintf("<unknown %d>", id)
}

// NumCallables returns the number of registered callables.
func (g *Graph) NumCallables() int {
	return len(g.callables)
}

// NumMethodDecls returns the number of registered method declarations.
func (g *Graph) NumMethodDecls() int {
	return len(g.decls)
}

// NumStaticCalls returns the number of definite edges.
func (g *Graph) NumStaticCalls() int {
	return len(g.static)
}

// NumDynamicCalls returns the number of dynamic edges.
func (g *Graph) NumDynamicCalls() int {
	return len(g.dynamic)
}
