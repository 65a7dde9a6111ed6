package commands

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/l3aro/go-flow-graph/internal/config"
	"github.com/l3aro/go-flow-graph/internal/log"
	"github.com/l3aro/go-flow-graph/pkg/cfg"
	"github.com/spf13/cobra"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rebuild flow graphs as Python files change",
	Long: `Watches a directory tree and rebuilds the flow graph of each Python
file when it is written. Changes arriving within the debounce window
collapse into a single rebuild. Stop with Ctrl-C.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	conf, err := loadConfig()
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("getting absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(absPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != absPath && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
	if err != nil {
		return fmt.Errorf("adding directories to watcher: %w", err)
	}

	logger := log.Default()
	logger.Info("watching for changes", "path", absPath, "debounce_ms", conf.WatchDebounceMs)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debounce := time.Duration(conf.WatchDebounceMs) * time.Millisecond
	pending := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if isPythonPath(event.Name) {
				pending[event.Name] = true
				if timer == nil {
					timer = time.NewTimer(debounce)
					timerC = timer.C
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(debounce)
				}
			} else if event.Op&fsnotify.Create != 0 {
				// Newly created directories join the watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.Debug("watch add failed", "path", event.Name, "error", err)
					}
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			changed := pending
			pending = make(map[string]bool)
			rebuildChanged(changed, conf, logger)
		}
	}
}

// rebuildChanged rebuilds every file collected during the debounce
// window and logs one line per file.
func rebuildChanged(changed map[string]bool, conf *config.Config, logger log.Logger) {
	paths := make([]string, 0, len(changed))
	for p := range changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			logger.Error("read failed", "file", p, "error", err)
			continue
		}
		g, err := cfg.Build(content)
		if err != nil {
			logger.Error("build failed", "file", p, "error", err)
			continue
		}
		if conf.LinkCalls {
			g.LinkCalls()
		}
		logger.Info("rebuilt", "file", p, "nodes", g.Len(), "functions", len(g.Functions))
	}
}

// isPythonPath matches the extensions the scanner looks for.
func isPythonPath(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".py" || ext == ".pyw"
}

func init() {
	RootCmd.AddCommand(watchCmd)
}
