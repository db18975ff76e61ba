package analysis

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/packages"

	"github.com/abramin/callmap/internal/graph"
)

// Resolver implements Semantics on top of go/types information collected
// by the Loader. All queries are answered from maps built once at
// construction time.
type Resolver struct {
	loader *Loader
	fset   *token.FileSet

	local map[*types.Package]bool
	defs  map[*ast.Ident]types.Object
	uses  map[*ast.Ident]types.Object

	// overrides maps a concrete method to the interface method
	// declarations it satisfies.
	overrides map[*types.Func][]graph.NodeID
	// litNames assigns a synthesized name to every function literal.
	litNames map[*ast.FuncLit]string
}

var _ Semantics = (*Resolver)(nil)

// NewResolver builds a resolver over the loader's packages. The loader
// must have completed Load.
func NewResolver(l *Loader) *Resolver {
	r := &Resolver{
		loader:    l,
		fset:      l.FileSet(),
		local:     make(map[*types.Package]bool),
		defs:      make(map[*ast.Ident]types.Object),
		uses:      make(map[*ast.Ident]types.Object),
		overrides: make(map[*types.Func][]graph.NodeID),
		litNames:  make(map[*ast.FuncLit]string),
	}

	for _, pkg := range l.Packages() {
		if pkg.Types != nil {
			r.local[pkg.Types] = true
		}
	}
	for _, pkg := range l.Packages() {
		if pkg.TypesInfo == nil {
			continue
		}
		for id, obj := range pkg.TypesInfo.Defs {
			if obj != nil {
				r.defs[id] = obj
			}
		}
		for id, obj := range pkg.TypesInfo.Uses {
			r.uses[id] = obj
		}
	}

	r.indexOverrides(l.Packages())
	r.nameFuncLits(l.Packages())
	return r
}

// ClassifyFunc classifies a function or method declaration.
func (r *Resolver) ClassifyFunc(decl *ast.FuncDecl) (Classification, bool) {
	obj, ok := r.defs[decl.Name].(*types.Func)
	if !ok {
		return Classification{}, false
	}
	c := Classification{
		ID:   graph.NodeID(decl.Name.Pos()),
		Name: qualifiedName(obj),
		Kind: ClassFunc,
	}
	if decl.Recv != nil {
		c.Kind = ClassMethodImpl
		c.Overrides = r.overrides[obj]
	}
	return c, true
}

// ClassifyInterfaceMethod classifies a method name declared inside an
// interface type. Interface methods in Go never carry bodies, so
// DefaultBody is always false here.
func (r *Resolver) ClassifyInterfaceMethod(name *ast.Ident) (Classification, bool) {
	obj, ok := r.defs[name].(*types.Func)
	if !ok {
		return Classification{}, false
	}
	return Classification{
		ID:   graph.NodeID(name.Pos()),
		Name: qualifiedName(obj),
		Kind: ClassMethodDecl,
	}, true
}

// ClassifyFuncLit classifies a function literal by its synthesized name.
func (r *Resolver) ClassifyFuncLit(lit *ast.FuncLit) (Classification, bool) {
	name, ok := r.litNames[lit]
	if !ok {
		return Classification{}, false
	}
	return Classification{
		ID:   graph.NodeID(lit.Pos()),
		Name: name,
		Kind: ClassFunc,
	}, true
}

// ResolveCall resolves an identifier that refers to a function or method.
func (r *Resolver) ResolveCall(ref *ast.Ident) (Target, bool) {
	obj, ok := r.uses[ref].(*types.Func)
	if !ok {
		return Target{}, false
	}
	obj = obj.Origin()
	t := Target{
		ID:    graph.NodeID(obj.Pos()),
		Local: r.localObject(obj),
	}
	if sig, ok := obj.Type().(*types.Signature); ok {
		if recv := sig.Recv(); recv != nil && types.IsInterface(recv.Type()) {
			t.Dispatch = true
		}
	}
	return t, true
}

// Generated reports whether the position lies in a generated file.
func (r *Resolver) Generated(pos token.Pos) bool {
	if !pos.IsValid() {
		return false
	}
	return r.loader.GeneratedFile(r.fset.Position(pos).Filename)
}

// localObject reports whether the object is declared in analyzed code.
// Objects from dependencies, the universe scope, excluded files, and
// generated files all count as non-local.
func (r *Resolver) localObject(obj types.Object) bool {
	pkg := obj.Pkg()
	if pkg == nil || !r.local[pkg] {
		return false
	}
	if !obj.Pos().IsValid() {
		return false
	}
	path := r.fset.Position(obj.Pos()).Filename
	return !r.loader.ExcludedFile(path) && !r.loader.GeneratedFile(path)
}

// indexOverrides pairs every package-level concrete type against every
// package-level interface and records which concrete method satisfies
// which interface method declaration. Generic types are skipped since
// they cannot be checked without instantiation.
func (r *Resolver) indexOverrides(pkgs []*packages.Package) {
	var concrete []*types.Named
	var ifaces []*types.Named
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok {
				continue
			}
			if named.TypeParams().Len() > 0 {
				continue
			}
			if types.IsInterface(named) {
				ifaces = append(ifaces, named)
			} else {
				concrete = append(concrete, named)
			}
		}
	}

	// A promoted method can satisfy the same interface through several
	// embedding types; record each (impl, decl) pair once.
	seen := make(map[*types.Func]map[graph.NodeID]bool)
	for _, iface := range ifaces {
		under, ok := iface.Underlying().(*types.Interface)
		if !ok || under.NumExplicitMethods() == 0 {
			continue
		}
		for _, named := range concrete {
			recv := types.Type(named)
			if !types.Implements(recv, under) {
				recv = types.NewPointer(named)
				if !types.Implements(recv, under) {
					continue
				}
			}
			for i := 0; i < under.NumExplicitMethods(); i++ {
				decl := under.ExplicitMethod(i)
				if !r.localObject(decl) {
					continue
				}
				obj, _, _ := types.LookupFieldOrMethod(recv, true, decl.Pkg(), decl.Name())
				impl, ok := obj.(*types.Func)
				if !ok {
					continue
				}
				impl = impl.Origin()
				if !r.localObject(impl) {
					continue
				}
				declID := graph.NodeID(decl.Pos())
				if seen[impl] == nil {
					seen[impl] = make(map[graph.NodeID]bool)
				}
				if seen[impl][declID] {
					continue
				}
				seen[impl][declID] = true
				r.overrides[impl] = append(r.overrides[impl], declID)
			}
		}
	}
}

// nameFuncLits walks every file and assigns each function literal a name
// derived from its enclosing function, in source order: f's first literal
// becomes f$1, a literal nested inside it f$1$1. Literals in package-level
// initializers hang off a synthetic pkgpath.init parent.
func (r *Resolver) nameFuncLits(pkgs []*packages.Package) {
	for _, pkg := range pkgs {
		// One counter space per package, so literals in different files
		// of the same package never share a name.
		counters := make(map[string]int)
		for _, file := range pkg.Syntax {
			v := &litNamer{
				r:        r,
				counters: counters,
				parent:   pkg.PkgPath + ".init",
			}
			ast.Walk(v, file)
		}
	}
}

type litNamer struct {
	r        *Resolver
	counters map[string]int
	parent   string
}

func (v *litNamer) Visit(n ast.Node) ast.Visitor {
	switch node := n.(type) {
	case *ast.FuncDecl:
		name := v.parent
		if obj, ok := v.r.defs[node.Name].(*types.Func); ok {
			name = qualifiedName(obj)
		}
		return &litNamer{r: v.r, counters: v.counters, parent: name}
	case *ast.FuncLit:
		v.counters[v.parent]++
		name := fmt.Sprintf("%s$%d", v.parent, v.counters[v.parent])
		v.r.litNames[node] = name
		return &litNamer{r: v.r, counters: v.counters, parent: name}
	}
	return v
}

// qualifiedName renders a function as pkgpath.Name, and a method as
// pkgpath.(Recv).Name.
func qualifiedName(obj *types.Func) string {
	pkg := obj.Pkg()
	if pkg == nil {
		return obj.Name()
	}
	if sig, ok := obj.Type().(*types.Signature); ok {
		if recv := sig.Recv(); recv != nil {
			return fmt.Sprintf("%s.(%s).%s", pkg.Path(), receiverName(recv.Type()), obj.Name())
		}
	}
	return pkg.Path() + "." + obj.Name()
}

// receiverName renders a receiver type without its package qualifier.
func receiverName(t types.Type) string {
	t = types.Unalias(t)
	switch rt := t.(type) {
	case *types.Pointer:
		return "*" + receiverName(rt.Elem())
	case *types.Named:
		return rt.Obj().Name()
	case *types.TypeParam:
		return rt.Obj().Name()
	case *types.Interface:
		return "interface"
	}
	return t.String()
}
