package server

import (
	"sort"

	"github.com/abramin/callmap/internal/store"
)

// GraphFilter specifies filters for graph traversal.
type GraphFilter struct {
	// Kind restricts traversal to one edge kind. Empty means both.
	Kind     store.EdgeKind `json:"kind"`
	MaxDepth int            `json:"maxDepth"`
}

// DefaultGraphFilter returns sensible defaults for graph filtering.
func DefaultGraphFilter() GraphFilter {
	return GraphFilter{
		MaxDepth: 6,
	}
}

// GraphNode represents a node in the graph response.
type GraphNode struct {
	ID       store.NodeID       `json:"id"`
	Name     string             `json:"name"`
	Kind     store.CallableKind `json:"kind"`
	Expanded bool               `json:"expanded"`
	Depth    int                `json:"depth"`
}

// GraphEdge represents an edge in the graph response.
type GraphEdge struct {
	SourceID store.NodeID   `json:"source_id"`
	TargetID store.NodeID   `json:"target_id"`
	Kind     store.EdgeKind `json:"kind"`
}

// GraphResponse is the response format for graph endpoints.
type GraphResponse struct {
	Nodes    []GraphNode  `json:"nodes"`
	Edges    []GraphEdge  `json:"edges"`
	RootID   store.NodeID `json:"root_id"`
	MaxDepth int          `json:"max_depth"`
	Filtered int          `json:"filtered_count"`
}

// GraphBuilder builds neighborhood graphs from the store with filtering.
type GraphBuilder struct {
	store    *store.Store
	filter   GraphFilter
	nodes    map[store.NodeID]*GraphNode
	edges    []GraphEdge
	visited  map[store.NodeID]bool
	filtered int
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder(s *store.Store, filter GraphFilter) *GraphBuilder {
	if filter.MaxDepth <= 0 {
		filter.MaxDepth = DefaultGraphFilter().MaxDepth
	}
	return &GraphBuilder{
		store:   s,
		filter:  filter,
		nodes:   make(map[store.NodeID]*GraphNode),
		edges:   []GraphEdge{},
		visited: make(map[store.NodeID]bool),
	}
}

// BuildFromRoot builds a graph starting from a root callable.
func (gb *GraphBuilder) BuildFromRoot(rootID store.NodeID, depth int) (*GraphResponse, error) {
	// Clamp depth to maxDepth
	if depth > gb.filter.MaxDepth {
		depth = gb.filter.MaxDepth
	}

	// Add the root node
	if err := gb.addNode(rootID, 0, true); err != nil {
		return nil, err
	}

	// Recursively expand
	if err := gb.expand(rootID, depth, 0); err != nil {
		return nil, err
	}

	return gb.buildResponse(rootID, depth), nil
}

// Expand expands a single node by the given depth.
func (gb *GraphBuilder) Expand(id store.NodeID, depth int) (*GraphResponse, error) {
	// Add the node if not already present
	if _, exists := gb.nodes[id]; !exists {
		if err := gb.addNode(id, 0, true); err != nil {
			return nil, err
		}
	}

	// Expand from this node
	if err := gb.expand(id, depth, 0); err != nil {
		return nil, err
	}

	return gb.buildResponse(id, depth), nil
}

// addNode adds a node to the graph, keeping the shallowest depth
// when a node is reached along more than one path.
func (gb *GraphBuilder) addNode(id store.NodeID, depth int, expanded bool) error {
	if existing, exists := gb.nodes[id]; exists {
		if depth < existing.Depth {
			existing.Depth = depth
		}
		return nil
	}

	c, err := gb.store.GetCallable(id)
	if err != nil {
		return err
	}

	gb.nodes[id] = &GraphNode{
		ID:       c.ID,
		Name:     c.Name,
		Kind:     c.Kind,
		Expanded: expanded,
		Depth:    depth,
	}

	return nil
}

// expand recursively expands the graph from a callable.
func (gb *GraphBuilder) expand(id store.NodeID, maxDepth int, currentDepth int) error {
	if currentDepth >= maxDepth {
		return nil
	}

	if gb.visited[id] {
		return nil
	}
	gb.visited[id] = true

	// Get callees
	callees, err := gb.store.GetCallees(id)
	if err != nil {
		return err
	}

	for _, c := range callees {
		if gb.filter.Kind != "" && c.Kind != gb.filter.Kind {
			gb.filtered++
			continue
		}

		gb.edges = append(gb.edges, GraphEdge{
			SourceID: c.CallerID,
			TargetID: c.CalleeID,
			Kind:     c.Kind,
		})

		// Add callee node
		if err := gb.addNode(c.CalleeID, currentDepth+1, false); err != nil {
			continue
		}

		// Recursively expand
		if err := gb.expand(c.CalleeID, maxDepth, currentDepth+1); err != nil {
			continue
		}
	}

	// Mark the source node as expanded
	if node, ok := gb.nodes[id]; ok {
		node.Expanded = true
	}

	return nil
}

// buildResponse constructs the final response with nodes in stable order.
func (gb *GraphBuilder) buildResponse(rootID store.NodeID, maxDepth int) *GraphResponse {
	nodes := make([]GraphNode, 0, len(gb.nodes))
	for _, node := range gb.nodes {
		nodes = append(nodes, *node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].ID < nodes[j].ID
	})

	return &GraphResponse{
		Nodes:    nodes,
		Edges:    gb.edges,
		RootID:   rootID,
		MaxDepth: maxDepth,
		Filtered: gb.filtered,
	}
}
