package commands

import (
	"encoding/json"
	"fmt"

	"github.com/l3aro/go-flow-graph/internal/config"
	"github.com/spf13/cobra"
)

// FuncRow is one function in the funcs listing
type FuncRow struct {
	Name  string `json:"name"`
	Enter int    `json:"enter"`
	Exit  int    `json:"exit"`
}

// FuncsOutput represents the output of the funcs command
type FuncsOutput struct {
	File      string    `json:"file"`
	Functions []FuncRow `json:"functions"`
}

// funcsCmd represents the funcs command
var funcsCmd = &cobra.Command{
	Use:   "funcs <file>",
	Short: "List function definitions with their enter and exit nodes",
	Long: `Builds the flow graph of a Python file and lists every function
definition together with the sentinel nodes that bracket its body.`,
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

		// The function table is filled during the build; linking
		// call sites would not change it.
		g, err := loadGraph(args[0], false)
		if err != nil {
			return err
		}

		output := FuncsOutput{File: args[0], Functions: []FuncRow{}}
		for _, name := range g.FunctionNames() {
			entry := g.Functions[name]
			output.Functions = append(output.Functions, FuncRow{
				Name:  name,
				Enter: entry.Enter,
				Exit:  entry.Exit,
			})
		}

		if format == config.FormatJSON {
			data, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}
		printFuncsOutput(output)
		return nil
	},
}

func printFuncsOutput(output FuncsOutput) {
	fmt.Printf("=== Functions: %s ===\n\n", output.File)
	if len(output.Functions) == 0 {
		fmt.Println("No function definitions found.")
		return
	}

	fmt.Printf("%-28s %6s %6s\n", "FUNCTION", "ENTER", "EXIT")
	for _, row := range output.Functions {
		fmt.Printf("%-28s %6d %6d\n", row.Name, row.Enter, row.Exit)
	}
}

func init() {
	funcsCmd.Flags().StringP("format", "f", "", "Output format (json or text)")
	RootCmd.AddCommand(funcsCmd)
}
