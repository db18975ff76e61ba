package store

// NodeID identifies a callable or method declaration. IDs are assigned
// during analysis and shared across all tables.
type NodeID int64

// CallableKind represents what kind of callable a row describes.
type CallableKind string

const (
	CallableKindFunc    CallableKind = "func"
	CallableKindMethod  CallableKind = "method"
	CallableKindDefault CallableKind = "default_method"
)

// EdgeKind represents how a call edge was resolved.
type EdgeKind string

const (
	EdgeKindDefinite  EdgeKind = "definite"  // Statically resolved call
	EdgeKindPotential EdgeKind = "potential" // Candidate under dynamic dispatch
)

// Callable represents a function, method, or default-bodied declaration.
type Callable struct {
	ID   NodeID       `json:"id"`
	Name string       `json:"name"`
	Kind CallableKind `json:"kind"`
}

// MethodDecl represents an interface method declaration.
type MethodDecl struct {
	ID          NodeID `json:"id"`
	Name        string `json:"name"`
	DefaultBody bool   `json:"default_body"`
}

// ImplLink links a method declaration to one of its implementations.
type ImplLink struct {
	DeclID NodeID `json:"decl_id"`
	ImplID NodeID `json:"impl_id"`
}

// Edge represents a call from one callable to another.
type Edge struct {
	CallerID NodeID   `json:"caller_id"`
	CalleeID NodeID   `json:"callee_id"`
	Kind     EdgeKind `json:"kind"`
}

// EdgeRow is an edge joined with its endpoint names for display.
type EdgeRow struct {
	CallerID NodeID   `json:"caller_id"`
	Caller   string   `json:"caller"`
	CalleeID NodeID   `json:"callee_id"`
	Callee   string   `json:"callee"`
	Kind     EdgeKind `json:"kind"`
}
