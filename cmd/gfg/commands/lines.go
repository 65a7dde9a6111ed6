package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/l3aro/go-flow-graph/internal/config"
	"github.com/l3aro/go-flow-graph/pkg/cfg"
	"github.com/spf13/cobra"
)

// LinesOutput represents the output of the lines command
type LinesOutput struct {
	File  string                `json:"file"`
	Lines map[int]*cfg.LineFlow `json:"lines"`
}

// linesCmd represents the lines command
var linesCmd = &cobra.Command{
	Use:   "lines <file>",
	Short: "Project the control flow graph onto source lines",
	Long: `Builds the flow graph of a Python file and collapses it onto source
lines: each line lists the lines flow can come from, the lines it can
go to, the functions it calls and the function it belongs to. Line 0
stands for both ends of the module.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		format, err := resolveFormat(cmd, conf)
		if err != nil {
			return err
		}

		noLink, _ := cmd.Flags().GetBool("no-link")
		g, err := loadGraph(args[0], conf.LinkCalls && !noLink)
		if err != nil {
			return err
		}

		output := LinesOutput{File: args[0], Lines: g.Lines()}

		if format == config.FormatJSON {
			data, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}
		printLinesOutput(output)
		return nil
	},
}

func printLinesOutput(output LinesOutput) {
	fmt.Printf("=== Line flow: %s ===\n\n", output.File)

	lines := make([]int, 0, len(output.Lines))
	for line := range output.Lines {
		lines = append(lines, line)
	}
	sort.Ints(lines)

	for _, line := range lines {
		flow := output.Lines[line]
		var extra strings.Builder
		if len(flow.Calls) > 0 {
			fmt.Fprintf(&extra, " calls=%v", flow.Calls)
		}
		if flow.Func != "" {
			fmt.Fprintf(&extra, " function=%s", flow.Func)
		}
		fmt.Printf("  line %3d: parents=%v children=%v%s\n",
			line, flow.Parents, flow.Children, extra.String())
	}
}

func init() {
	linesCmd.Flags().StringP("format", "f", "", "Output format (json or text)")
	linesCmd.Flags().Bool("no-link", false, "Skip linking call sites to function subgraphs")
	RootCmd.AddCommand(linesCmd)
}
