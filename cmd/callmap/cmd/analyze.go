package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abramin/callmap/internal/analysis"
	"github.com/abramin/callmap/internal/config"
	"github.com/abramin/callmap/internal/dot"
	"github.com/abramin/callmap/internal/graph"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a Go project and build its call graph",
	Long: `Analyze a Go project to build a whole-program call graph.

The analyze command:
- Loads Go packages using go/packages
- Records direct calls and interface dispatch candidates
- Expands dispatch edges to every known implementation
- Prints a textual dump of the graph to stdout
- Renders a DOT diagram and persists results to .callmap/callgraph.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		cfg := GetConfig()
		fmt.Printf("Analyzing project at: %s\n", path)
		fmt.Printf("Config loaded with %d excluded dirs\n", len(cfg.Exclude.Dirs))

		analyzer := analysis.NewAnalyzer(cfg, path)
		result, err := analyzer.Run()
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		fmt.Println()
		if err := result.Graph.WriteDump(os.Stdout); err != nil {
			return fmt.Errorf("writing dump: %w", err)
		}

		dotPath := cfg.Output.Dot
		if !filepath.IsAbs(dotPath) {
			dotPath = filepath.Join(path, dotPath)
		}
		if err := writeDot(result.Graph, cfg, dotPath); err != nil {
			return err
		}

		fmt.Println()
		fmt.Printf("Analysis complete!\n")
		fmt.Printf("  Packages:  %d\n", result.PackageCount)
		fmt.Printf("  Callables: %d\n", result.CallableCount)
		fmt.Printf("  Decls:     %d\n", result.MethodDeclCount)
		fmt.Printf("  Definite:  %d\n", result.DefiniteCount)
		fmt.Printf("  Potential: %d\n", result.PotentialCount)
		if result.DroppedCount > 0 {
			fmt.Printf("  Dropped:   %d\n", result.DroppedCount)
		}
		fmt.Printf("  Duration:  %s\n", result.Duration.Round(time.Millisecond))
		fmt.Printf("  Database:  %s\n", result.DBPath)
		fmt.Printf("  Diagram:   %s\n", dotPath)
		return nil
	},
}

// writeDot renders the graph as a DOT diagram. A failure here is fatal,
// the command exits non-zero without retrying.
func writeDot(g *graph.Graph, cfg *config.Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	opts := dot.Options{Rankdir: cfg.Output.Rankdir}
	if err := dot.Render(f, g.DotSource(cfg.Output.GraphName), opts); err != nil {
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
