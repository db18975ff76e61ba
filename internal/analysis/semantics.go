package analysis

import (
	"go/ast"
	"go/token"

	"github.com/abramin/callmap/internal/graph"
)

// ClassKind describes what a classified declaration is.
type ClassKind int

const (
	// ClassFunc is a plain function or a function literal.
	ClassFunc ClassKind = iota
	// ClassMethodDecl is a method declared on an interface.
	ClassMethodDecl
	// ClassMethodImpl is a method declared on a concrete type.
	ClassMethodImpl
)

// Classification describes a function-like declaration found in source.
type Classification struct {
	// ID identifies the declaration across the whole analysis.
	ID graph.NodeID
	// Name is the qualified name used in dumps and diagrams.
	Name string
	// Kind says whether this is a function, an interface method
	// declaration, or a concrete method.
	Kind ClassKind
	// DefaultBody is true for a method declaration that carries its own
	// body. Such a declaration doubles as its own fallback implementation.
	DefaultBody bool
	// Overrides lists the interface method declarations this concrete
	// method satisfies. Empty for functions and for methods that satisfy
	// no locally declared interface.
	Overrides []graph.NodeID
}

// Target describes where a call reference resolves to.
type Target struct {
	// ID identifies the called declaration.
	ID graph.NodeID
	// Dispatch is true when the call goes through an interface method
	// declaration, so the concrete callee is unknown until runtime.
	Dispatch bool
	// Local is true when the target is declared in the analyzed code,
	// outside excluded and generated files.
	Local bool
}

// Semantics answers the type-level questions the call-graph builder asks
// while walking syntax. The production implementation is Resolver; tests
// substitute a stub.
type Semantics interface {
	// ClassifyFunc classifies a function or method declaration.
	ClassifyFunc(decl *ast.FuncDecl) (Classification, bool)
	// ClassifyInterfaceMethod classifies a method name inside an
	// interface type.
	ClassifyInterfaceMethod(name *ast.Ident) (Classification, bool)
	// ClassifyFuncLit classifies a function literal.
	ClassifyFuncLit(lit *ast.FuncLit) (Classification, bool)
	// ResolveCall resolves an identifier that refers to a function or
	// method. Returns false when the identifier refers to something else.
	ResolveCall(ref *ast.Ident) (Target, bool)
	// Generated reports whether the position lies in generated code.
	Generated(pos token.Pos) bool
}
