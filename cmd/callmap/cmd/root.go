package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/abramin/callmap/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "callmap",
	Short: "callmap - Build whole-program call graphs for Go projects",
	Long: `callmap analyzes a Go project and builds its static call graph,
distinguishing calls that resolve to a single function from calls
dispatched through an interface, where any implementation may run.

It prints a textual dump of the graph, renders a DOT diagram, and
stores the result for interactive browsing with the serve command.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./callmap.yaml)")
}

func GetConfig() *config.Config {
	return cfg
}
