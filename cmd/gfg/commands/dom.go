package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/l3aro/go-flow-graph/internal/config"
	"github.com/l3aro/go-flow-graph/pkg/cfg"
	"github.com/spf13/cobra"
)

// DomOutput represents the output of the dom command
type DomOutput struct {
	File        string        `json:"file"`
	Analysis    string        `json:"analysis"`
	Start       int           `json:"start"`
	Sets        map[int][]int `json:"sets"`
	Unreachable []int         `json:"unreachable,omitempty"`
}

// domCmd represents the dom command
var domCmd = &cobra.Command{
	Use:   "dom <file>",
	Short: "Compute dominators or post-dominators",
	Long: `Builds the flow graph of a Python file and computes the dominator
set of every node. With --post the analysis runs backward from the
stop sentinel instead. With --lines the graph is first projected onto
source lines and the sets are keyed by line number.`,
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
		post, _ := cmd.Flags().GetBool("post")
		byLine, _ := cmd.Flags().GetBool("lines")

		g, err := loadGraph(args[0], conf.LinkCalls && !noLink)
		if err != nil {
			return err
		}

		var result *cfg.DomResult
		var analysis string
		switch {
		case byLine && post:
			result = cfg.LineDominators(g.Lines(), 0, cfg.RelChildren)
			analysis = "line-post-dominators"
		case byLine:
			result = cfg.LineDominators(g.Lines(), 0, cfg.RelParents)
			analysis = "line-dominators"
		case post:
			result = g.PostDominators()
			analysis = "post-dominators"
		default:
			result = g.Dominators()
			analysis = "dominators"
		}

		output := DomOutput{
			File:        args[0],
			Analysis:    analysis,
			Start:       result.Start,
			Sets:        result.Sets,
			Unreachable: result.Unreachable,
		}

		if format == config.FormatJSON {
			data, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}
		printDomOutput(output, byLine)
		return nil
	},
}

func printDomOutput(output DomOutput, byLine bool) {
	label := "node"
	if byLine {
		label = "line"
	}

	fmt.Printf("=== %s: %s ===\n\n", output.Analysis, output.File)
	fmt.Printf("Start %s: %d\n\n", label, output.Start)

	ids := make([]int, 0, len(output.Sets))
	for id := range output.Sets {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		fmt.Printf("  %s %3d: %v\n", label, id, output.Sets[id])
	}
	if len(output.Unreachable) > 0 {
		fmt.Printf("\nUnreachable: %v\n", output.Unreachable)
	}
}

func init() {
	domCmd.Flags().StringP("format", "f", "", "Output format (json or text)")
	domCmd.Flags().Bool("post", false, "Compute post-dominators instead of dominators")
	domCmd.Flags().Bool("lines", false, "Project onto source lines before the analysis")
	domCmd.Flags().Bool("no-link", false, "Skip linking call sites to function subgraphs")
	RootCmd.AddCommand(domCmd)
}
