package cmd

import (
	"fmt"

	"github.com/abramin/callmap/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Serve the stored call graph over HTTP",
	Long: `Start a local HTTP server for browsing an analyzed call graph.

The server provides:
- Callable search and per-node detail (callees, callers, implementers)
- Edge listing filtered by kind (definite or potential)
- Bounded neighborhood graphs around any callable
- Call-graph statistics`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		srv, err := server.New(server.Config{
			Port:       servePort,
			ProjectDir: path,
		})
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}

		fmt.Printf("Browse the call graph at http://localhost:%d\n", srv.Port())
		return srv.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to run the server on")
}
