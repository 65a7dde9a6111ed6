package cfg

import (
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Build parses Python source and constructs its control flow graph:
// start sentinel, walked module body, stop sentinel, derived children.
// Calls are not linked; run LinkCalls for the interprocedural edges.
func Build(content []byte) (*Graph, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree := parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parsing source: no syntax tree produced")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parsing source: no root node")
	}

	reg := NewRegistry()
	w := &walker{reg: reg, src: content, funcs: map[string]FuncEntry{}}

	start := reg.NewNode(KindStart, 0, "start", nil)
	frontier, err := w.walkBody(root, []int{start.ID}, walkContext{})
	if err != nil {
		return nil, err
	}
	stop := reg.NewNode(KindStop, 0, "stop", frontier)

	g := &Graph{
		reg:       reg,
		Start:     start.ID,
		Stop:      stop.ID,
		Functions: w.funcs,
	}
	g.updateChildren()
	return g, nil
}

// BuildFile reads a Python source file and builds its graph with calls
// linked.
func BuildFile(path string) (*Graph, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	g, err := Build(content)
	if err != nil {
		return nil, fmt.Errorf("building graph for %s: %w", path, err)
	}
	g.LinkCalls()
	return g, nil
}
