package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/l3aro/go-flow-graph/internal/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file interactively",
	Long: `Walks through the configuration options and writes a config.yaml,
either globally under ~/.gfg or for the current project under ./.gfg.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	conf := config.DefaultConfig()

	formatChoice := string(conf.Format)
	linkCalls := conf.LinkCalls
	cacheDir := conf.CacheDir
	workersStr := strconv.Itoa(conf.Workers)

	// === Graph Options ===
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default output format").
				Description("Used by graph commands unless --format is given").
				Options(
					huh.NewOption("JSON", "json"),
					huh.NewOption("Graphviz DOT", "dot"),
					huh.NewOption("Plain text", "text"),
				).
				Value(&formatChoice),
			huh.NewConfirm().
				Title("Link call sites to function subgraphs?").
				Affirmative("Yes, link calls").
				Negative("No, keep graphs flat").
				Value(&linkCalls),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === Project Builds ===
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Snapshot cache directory").
				Placeholder(conf.CacheDir).
				Value(&cacheDir),
			huh.NewInput().
				Title("Concurrent builds for project scans").
				Placeholder(workersStr).
				Value(&workersStr),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where should the configuration file be saved?").
				Options(
					huh.NewOption("Global (~/.gfg/config.yaml)", "global"),
					huh.NewOption("Project (./.gfg/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectConfigPath()
	if saveLocationChoice == "global" {
		configPath = config.GlobalConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	conf.Format = config.OutputFormat(formatChoice)
	conf.LinkCalls = linkCalls
	if strings.TrimSpace(cacheDir) != "" {
		conf.CacheDir = strings.TrimSpace(cacheDir)
	}
	if workers, err := strconv.Atoi(strings.TrimSpace(workersStr)); err == nil && workers > 0 {
		conf.Workers = workers
	}

	if err := conf.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Format: %s\n", conf.Format)
	fmt.Printf("Link calls: %v\n", conf.LinkCalls)
	fmt.Printf("Cache directory: %s\n", conf.CacheDir)
	fmt.Printf("Workers: %d\n", conf.Workers)
	fmt.Println("=============================")

	if err := conf.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("\nConfiguration saved to: %s\n", configPath)

	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
