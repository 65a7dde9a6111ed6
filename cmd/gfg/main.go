// Package main implements gfg, a CLI that builds statement-level control
// flow graphs for Python sources and answers flow questions about them:
// dominators, line projections, DOT export and whole-project builds.
package main

import (
	"os"

	"github.com/l3aro/go-flow-graph/cmd/gfg/commands"
)

// Set via ldflags at build time.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate("gfg version {{.Version}}\n")

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
