package graph

import (
	"fmt"
	"io"
	"strings"
)

// WriteDump writes the graph as text: every callable, every method
// declaration, then the definite calls and the potential calls from
// dynamic dispatch. Meaningful only after Expand; before it the potential
// section would still show declaration targets.
func (g *Graph) WriteDump(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("Found fns:\n")
	for _, c := range g.Callables() {
		fmt.Fprintf(&sb, "%d: %s\n", c.ID, c.Name)
	}

	sb.WriteString("\nFound method decls:\n")
	for _, d := range g.MethodDecls() {
		fmt.Fprintf(&sb, "%d: %s\n", d.ID, d.Name)
	}

	sb.WriteString("\nFound calls:\n")
	for _, e := range g.StaticCalls() {
		fmt.Fprintf(&sb, "%s -> %s\n", g.nameOf(e.From), g.nameOf(e.To))
	}

	sb.WriteString("\nFound potential calls:\n")
	for _, e := range g.DynamicCalls() {
		fmt.Fprintf(&sb, "%s -> %s\n", g.nameOf(e.From), g.nameOf(e.To))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
