// Package commands provides the CLI commands for the go-flow-graph tool.
package commands

import (
	"fmt"

	"github.com/l3aro/go-flow-graph/internal/config"
	"github.com/l3aro/go-flow-graph/internal/log"
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "gfg",
	Short: "go-flow-graph - statement-level control flow graphs for Python",
	Long: `go-flow-graph builds statement-level control flow graphs from Python
source files and answers flow questions about them.

Commands:
  build       Build the flow graph of one file
  dot         Render a graph in Graphviz DOT format
  dom         Compute dominators or post-dominators
  lines       Project the graph onto source lines
  funcs       List functions with their enter and exit nodes
  project     Build every Python file under a directory
  watch       Rebuild files as they change
  init        Create a configuration file interactively

Use "gfg [command] --help" for more information about a command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.Default().SetLevel(log.DebugLevel)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig loads the effective configuration and raises the log level
// when the config asks for verbosity.
func loadConfig() (*config.Config, error) {
	conf, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if conf.Verbose {
		log.Default().SetLevel(log.DebugLevel)
	}
	return conf, nil
}

// resolveFormat picks the output format for a command: the --format flag
// when given, the configured default otherwise. The configured default
// may be "dot", which only the dot command honors; everything else falls
// back to JSON.
func resolveFormat(cmd *cobra.Command, conf *config.Config) (config.OutputFormat, error) {
	if cmd.Flags().Changed("format") {
		v, _ := cmd.Flags().GetString("format")
		switch format := config.OutputFormat(v); format {
		case config.FormatJSON, config.FormatText:
			return format, nil
		default:
			return "", fmt.Errorf("invalid format: %s (must be 'json' or 'text')", v)
		}
	}
	if conf.Format == config.FormatDOT {
		return config.FormatJSON, nil
	}
	return conf.Format, nil
}

func init() {
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}
