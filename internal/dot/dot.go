// Package dot renders a directed graph in Graphviz DOT format. The
// renderer knows nothing about where the graph came from: callers hand it a
// Source and it writes the digraph.
package dot

import (
	"fmt"
	"io"
	"strings"
)

// Kind styles an edge. Definite edges render solid, potential edges dashed.
type Kind int

const (
	// KindDefinite marks a call that certainly happens.
	KindDefinite Kind = iota
	// KindPotential marks one possible receiver of a dispatched call.
	KindPotential
)

// Node is one node of the rendered graph.
type Node struct {
	ID    string
	Label string
}

// Edge is one directed edge of the rendered graph.
type Edge struct {
	From string
	To   string
	Kind Kind
}

// Source supplies the graph to render. Every edge endpoint must appear in
// Nodes.
type Source interface {
	Name() string
	Nodes() []Node
	Edges() []Edge
}

// Options control rendering.
type Options struct {
	// Rankdir sets the layout direction ("LR", "TB", ...). Empty means "LR".
	Rankdir string
}

// Render writes src as a DOT digraph.
func Render(w io.Writer, src Source, opts Options) error {
	rankdir := opts.Rankdir
	if rankdir == "" {
		rankdir = "LR"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %s {\n", sanitizeID(src.Name()))
	fmt.Fprintf(&sb, "  rankdir=%s;\n", rankdir)
	sb.WriteString("  node [shape=box];\n\n")

	for _, n := range src.Nodes() {
		fmt.Fprintf(&sb, "  %s [label=\"%s\"];\n", sanitizeID(n.ID), escapeLabel(n.Label))
	}

	sb.WriteString("\n")
	for _, e := range src.Edges() {
		if e.Kind == KindPotential {
			fmt.Fprintf(&sb, "  %s -> %s [style=dashed];\n", sanitizeID(e.From), sanitizeID(e.To))
		} else {
			fmt.Fprintf(&sb, "  %s -> %s;\n", sanitizeID(e.From), sanitizeID(e.To))
		}
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// sanitizeID quotes an identifier so arbitrary characters are safe in DOT.
func sanitizeID(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `\"`) + `"`
}

// escapeLabel escapes quotes and newlines inside a DOT label.
func escapeLabel(label string) string {
	label = strings.ReplaceAll(label, `"`, `\"`)
	label = strings.ReplaceAll(label, "\n", `\n`)
	return label
}
