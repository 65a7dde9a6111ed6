package commands

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/go-flow-graph/pkg/dot"
	"github.com/spf13/cobra"
)

// dotCmd represents the dot command
var dotCmd = &cobra.Command{
	Use:   "dot <file>",
	Short: "Render a control flow graph in Graphviz DOT format",
	Long: `Builds the flow graph of a Python file and renders it as a Graphviz
digraph. With --coverage, edges whose line pairs appear in the arcs
file render green and the remaining edges red.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}

		noLink, _ := cmd.Flags().GetBool("no-link")
		g, err := loadGraph(args[0], conf.LinkCalls && !noLink)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			base := filepath.Base(args[0])
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}

		var arcs [][2]int
		if coveragePath, _ := cmd.Flags().GetString("coverage"); coveragePath != "" {
			arcs, err = readArcs(coveragePath)
			if err != nil {
				return err
			}
		}

		rendered := dot.Render(g.Records(true), dot.Options{Name: name, Arcs: arcs})

		if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
			if err := os.WriteFile(outPath, []byte(rendered), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			fmt.Printf("Wrote %s\n", outPath)
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

// readArcs reads executed line pairs from a coverage file, one
// "parent child" pair per line. Blank lines and # comments are skipped.
func readArcs(path string) ([][2]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading coverage file: %w", err)
	}
	defer file.Close()

	var arcs [][2]int
	sc := bufio.NewScanner(file)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var from, to int
		if _, err := fmt.Sscanf(line, "%d %d", &from, &to); err != nil {
			return nil, fmt.Errorf("coverage file line %d: %q: %w", lineNo, line, err)
		}
		arcs = append(arcs, [2]int{from, to})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading coverage file: %w", err)
	}
	return arcs, nil
}

func init() {
	dotCmd.Flags().StringP("coverage", "c", "", "Coverage arcs file for edge coloring")
	dotCmd.Flags().StringP("output", "o", "", "Write the digraph to a file instead of stdout")
	dotCmd.Flags().StringP("name", "n", "", "Digraph name (defaults to the file name)")
	dotCmd.Flags().Bool("no-link", false, "Skip linking call sites to function subgraphs")
	RootCmd.AddCommand(dotCmd)
}
