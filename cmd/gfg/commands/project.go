package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/l3aro/go-flow-graph/internal/config"
	"github.com/l3aro/go-flow-graph/internal/log"
	"github.com/l3aro/go-flow-graph/internal/scanner"
	"github.com/l3aro/go-flow-graph/pkg/cache"
	"github.com/l3aro/go-flow-graph/pkg/cfg"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// FileResult summarizes the build of one file
type FileResult struct {
	Path      string `json:"path"`
	Nodes     int    `json:"nodes"`
	Functions int    `json:"functions"`
	Cached    bool   `json:"cached"`
	Error     string `json:"error,omitempty"`
}

// ProjectOutput represents the output of the project command
type ProjectOutput struct {
	RootDir string       `json:"root_dir"`
	Files   int          `json:"files"`
	Built   int          `json:"built"`
	Cached  int          `json:"cached"`
	Failed  int          `json:"failed"`
	Results []FileResult `json:"results"`
}

// projectCmd represents the project command
var projectCmd = &cobra.Command{
	Use:   "project [path]",
	Short: "Build flow graphs for every Python file under a directory",
	Long: `Scans a directory tree for Python sources, honoring .gfgignore files,
and builds the flow graph of each one concurrently. Results are cached
by content hash in memory and on disk, so unchanged files are not
rebuilt on the next run.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		conf, err := loadConfig()
		if err != nil {
			return err
		}
		format, err := resolveFormat(cmd, conf)
		if err != nil {
			return err
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("getting absolute path: %w", err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("accessing path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("path is not a directory: %s", path)
		}

		logger := log.Default()

		files, err := scanner.Scan(absPath)
		if err != nil {
			return fmt.Errorf("scanning directory: %w", err)
		}
		if len(files) == 0 {
			fmt.Println("No Python files found.")
			return nil
		}
		logger.Debug("scan complete", "files", len(files))

		jobs := conf.Workers
		if cmd.Flags().Changed("jobs") {
			if j, _ := cmd.Flags().GetInt("jobs"); j > 0 {
				jobs = j
			}
		}

		mem := cache.New(cache.Options{
			MaxEntries: conf.CacheMaxEntries,
			MaxBytes:   int64(conf.CacheMaxBytes),
		})
		var store *cache.DiskStore
		if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
			store, err = cache.NewDiskStore(conf.CacheDir)
			if err != nil {
				logger.Warn("snapshot cache disabled", "error", err)
			}
		}

		noLink, _ := cmd.Flags().GetBool("no-link")
		link := conf.LinkCalls && !noLink

		var spinner *log.ProgressSpinner
		if !conf.Verbose {
			spinner = log.NewProgressSpinner(fmt.Sprintf("Building %d files...", len(files)))
			spinner.Start()
		}

		results := make([]FileResult, len(files))
		group := new(errgroup.Group)
		group.SetLimit(jobs)
		for i, f := range files {
			group.Go(func() error {
				results[i] = buildOne(f, link, mem, store)
				return nil
			})
		}
		_ = group.Wait()

		if spinner != nil {
			spinner.Stop()
		}

		output := ProjectOutput{RootDir: absPath, Files: len(files), Results: results}
		for _, r := range results {
			switch {
			case r.Error != "":
				output.Failed++
			case r.Cached:
				output.Cached++
			default:
				output.Built++
			}
		}

		if format == config.FormatJSON {
			data, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
		} else {
			printProjectOutput(output)
		}

		if output.Failed > 0 {
			return fmt.Errorf("%d of %d files failed", output.Failed, output.Files)
		}
		return nil
	},
}

// buildOne builds a single file, going through the snapshot caches so
// sources already seen under the same content hash are not rebuilt.
func buildOne(f scanner.FileInfo, link bool, mem *cache.LRU, store *cache.DiskStore) FileResult {
	res := FileResult{Path: f.Path}

	content, err := os.ReadFile(f.FullPath)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	hash := cache.HashBytes(content)

	if snap, ok := mem.Get(hash); ok {
		res.Nodes = len(snap.Records)
		res.Functions = len(snap.Functions)
		res.Cached = true
		return res
	}
	if store != nil {
		if snap, ok, err := store.Get(hash); err == nil && ok {
			mem.Set(hash, snap)
			res.Nodes = len(snap.Records)
			res.Functions = len(snap.Functions)
			res.Cached = true
			return res
		}
	}

	g, err := cfg.Build(content)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if link {
		g.LinkCalls()
	}
	res.Nodes = g.Len()
	res.Functions = len(g.Functions)

	snap := cache.NewSnapshot(f.Path, hash, g)
	mem.Set(hash, snap)
	if store != nil {
		if err := store.Put(snap); err != nil {
			log.Default().Debug("snapshot write failed", "file", f.Path, "error", err)
		}
	}
	return res
}

func printProjectOutput(output ProjectOutput) {
	fmt.Printf("=== Project build: %s ===\n\n", output.RootDir)
	fmt.Printf("Files: %d (built %d, cached %d, failed %d)\n\n",
		output.Files, output.Built, output.Cached, output.Failed)

	for _, r := range output.Results {
		switch {
		case r.Error != "":
			fmt.Printf("  FAIL  %-44s %s\n", r.Path, r.Error)
		case r.Cached:
			fmt.Printf("  ok    %-44s %4d nodes %3d functions (cached)\n", r.Path, r.Nodes, r.Functions)
		default:
			fmt.Printf("  ok    %-44s %4d nodes %3d functions\n", r.Path, r.Nodes, r.Functions)
		}
	}
}

func init() {
	projectCmd.Flags().StringP("format", "f", "", "Output format (json or text)")
	projectCmd.Flags().IntP("jobs", "j", 0, "Concurrent builds (defaults to the configured worker count)")
	projectCmd.Flags().Bool("no-cache", false, "Skip the on-disk snapshot cache")
	projectCmd.Flags().Bool("no-link", false, "Skip linking call sites to function subgraphs")
	RootCmd.AddCommand(projectCmd)
}
