package graph

import (
	"fmt"

	"github.com/abramin/callmap/internal/dot"
)

// dotSource adapts a Graph to the dot renderer's contract.
type dotSource struct {
	name string
	g    *Graph
}

// DotSource exposes the graph to the DOT renderer under the given graph
// name. Valid only after Expand: the edges are the union of definite and
// expanded potential calls, and endpoint closure guarantees every edge
// endpoint has a node.
func (g *Graph) DotSource(name string) dot.Source {
	return &dotSource{name: name, g: g}
}

func (s *dotSource) Name() string {
	return s.name
}

func (s *dotSource) Nodes() []dot.Node {
	callables := s.g.Callables()
	nodes := make([]dot.Node, 0, len(callables))
	for _, c := range callables {
		nodes = append(nodes, dot.Node{ID: dotNodeID(c.ID), Label: c.Name})
	}
	return nodes
}

func (s *dotSource) Edges() []dot.Edge {
	out := make([]dot.Edge, 0, s.g.NumStaticCalls()+s.g.NumDynamicCalls())
	for _, e := range s.g.StaticCalls() {
		out = append(out, dot.Edge{From: dotNodeID(e.From), To: dotNodeID(e.To), Kind: dot.KindDefinite})
	}
	for _, e := range s.g.DynamicCalls() {
		out = append(out, dot.Edge{From: dotNodeID(e.From), To: dotNodeID(e.To), Kind: dot.KindPotential})
	}
	return out
}

func dotNodeID(id NodeID) string {
	return fmt.Sprintf("n_%d", id)
}
