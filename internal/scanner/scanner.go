// Package scanner walks a project tree looking for Python sources.
// It honors .gfgignore files with gitignore-style patterns and skips
// the usual virtualenv, build and VCS directories.
package scanner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string // Relative path from root, forward slashes
	FullPath string // Absolute path
	Size     int64  // File size in bytes
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden     bool     // Skip hidden files and directories (starting with .)
	FollowSymlinks bool     // Follow symlinks (within root only)
	Extensions     []string // File extensions to report
	Excludes       []string // Directory names to skip entirely
	IgnoreFileName string   // Name of the ignore file (default: .gfgignore)
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		FollowSymlinks: false,
		Extensions:     []string{".py", ".pyw"},
		IgnoreFileName: ".gfgignore",
		Excludes: []string{
			".git",
			".hg",
			".svn",
			"__pycache__",
			".venv",
			"venv",
			"env",
			".tox",
			".nox",
			".mypy_cache",
			".pytest_cache",
			".ruff_cache",
			"site-packages",
			"node_modules",
			"build",
			"dist",
			".eggs",
			".idea",
			".vscode",
		},
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// ignoreScope holds the patterns of one ignore file. Patterns apply to
// paths below the directory that contains the file.
type ignoreScope struct {
	base     string // Slash path of the directory relative to root, "" at root
	patterns []Pattern
}

// Scan recursively scans the directory at root and returns every
// matching source file. Ignore files apply to the subtree they live in.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	var scopes []ignoreScope
	if patterns, err := s.loadIgnoreFile(absRoot); err != nil {
		return nil, fmt.Errorf("loading ignore file: %w", err)
	} else if len(patterns) > 0 {
		scopes = append(scopes, ignoreScope{base: "", patterns: patterns})
	}

	var files []FileInfo

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		rel := filepath.ToSlash(relPath)

		if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if s.isExcluded(d.Name()) {
				return filepath.SkipDir
			}
			// Ignore files in subdirectories scope to their subtree
			if patterns, err := s.loadIgnoreFile(path); err == nil && len(patterns) > 0 {
				scopes = append(scopes, ignoreScope{base: rel, patterns: patterns})
			}
			return nil
		}

		if !s.matchesExt(d.Name()) {
			return nil
		}
		if ignoredBy(rel, scopes) {
			return nil
		}

		info, err := s.resolveEntry(path, d, absRoot)
		if err != nil || info == nil {
			return nil
		}

		files = append(files, FileInfo{
			Path:     rel,
			FullPath: path,
			Size:     info.Size(),
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return files, nil
}

// resolveEntry returns file info for a walk entry, or nil if the entry
// should be skipped. Symlinks are only followed when enabled and only
// when the target stays inside root.
func (s *Scanner) resolveEntry(path string, d fs.DirEntry, absRoot string) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Info()
	}

	if !s.opts.FollowSymlinks {
		return nil, nil
	}

	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, nil // Broken symlink
	}
	realAbs, err := filepath.Abs(realPath)
	if err != nil {
		return nil, nil
	}
	if realAbs != absRoot && !strings.HasPrefix(realAbs, absRoot+string(filepath.Separator)) {
		return nil, nil
	}

	target, err := os.Stat(realPath)
	if err != nil || target.IsDir() {
		return nil, nil
	}
	return target, nil
}

// isExcluded checks if a directory name matches the default exclusions.
func (s *Scanner) isExcluded(name string) bool {
	for _, exclude := range s.opts.Excludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// matchesExt checks if a file name carries one of the wanted extensions.
func (s *Scanner) matchesExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range s.opts.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// loadIgnoreFile reads the ignore file in dir, if present.
func (s *Scanner) loadIgnoreFile(dir string) ([]Pattern, error) {
	file, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []Pattern
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParsePattern(line))
	}

	return patterns, sc.Err()
}

// ignoredBy checks the path against every applicable ignore scope.
// Patterns are checked in order and a later negation pattern can
// un-ignore a path matched by an earlier one.
func ignoredBy(rel string, scopes []ignoreScope) bool {
	ignored := false
	for _, scope := range scopes {
		sub := rel
		if scope.base != "" {
			if !strings.HasPrefix(rel, scope.base+"/") {
				continue
			}
			sub = rel[len(scope.base)+1:]
		}
		for _, pattern := range scope.patterns {
			if pattern.Match(sub) {
				ignored = !pattern.Negate()
			}
		}
	}
	return ignored
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}
