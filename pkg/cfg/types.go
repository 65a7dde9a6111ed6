// Package cfg builds statement-level control flow graphs from Python
// source parsed with tree-sitter. Each graph node wraps one syntactic
// unit (a statement, a synthetic branch/loop test, or a function
// enter/exit sentinel); edges are kept as ordered parent lists with
// children derived from them. The package also provides call linking
// between call sites and functions defined in the same source, and
// dominator / post-dominator analysis over the finished graph.
package cfg

import "sort"

// NodeKind classifies the role of a graph node. The role is fixed at
// construction; optional fields on Node (ExitTargets, ReturnTargets,
// LinkCount) are only meaningful for the kinds noted there.
type NodeKind string

const (
	KindStart     NodeKind = "start"     // Synthetic entry sentinel
	KindStop      NodeKind = "stop"      // Synthetic exit sentinel
	KindStatement NodeKind = "statement" // Plain statement (assign, pass, expr, break, continue, return)
	KindBranch    NodeKind = "branch"    // Synthetic if-test
	KindLoop      NodeKind = "loop"      // Synthetic while/for-test
	KindEnter     NodeKind = "enter"     // Function entry sentinel
	KindExit      NodeKind = "exit"      // Function exit sentinel
)

// Node is a single vertex of the control flow graph.
// Parents are recorded in program order during the walk; Children are
// derived from the parent relation and recomputed wholesale after the
// walk and again after call linking.
type Node struct {
	ID       int      `json:"id"`
	Kind     NodeKind `json:"kind"`
	Line     int      `json:"line"` // 1-based source line, 0 for synthetic nodes
	Text     string   `json:"text"` // Renderable source or synthetic text
	Parents  []int    `json:"parents"`
	Children []int    `json:"children"`
	Calls    []string `json:"calls,omitempty"` // Callee names discovered in this node's expressions

	// ExitTargets collects the break nodes that leave a loop; only
	// loop-test nodes carry it.
	ExitTargets []int `json:"exit_targets,omitempty"`

	// ReturnTargets collects explicit return nodes plus the implicit
	// end-of-body fallthrough; only enter sentinels carry it.
	ReturnTargets []int `json:"return_targets,omitempty"`

	// LinkCount is -1 for nodes that are not call sites, 0 for call
	// sites the linker has not yet processed, and counts linked callees
	// afterwards.
	LinkCount int `json:"link_count"`

	// Func names the enclosing function definition, "" at module level.
	Func string `json:"func,omitempty"`
}

// AddParent records p as a predecessor unless it is already one.
func (n *Node) AddParent(p int) {
	if p == n.ID {
		return
	}
	for _, q := range n.Parents {
		if q == p {
			return
		}
	}
	n.Parents = append(n.Parents, p)
}

// AddParents records every id in ps in order.
func (n *Node) AddParents(ps []int) {
	for _, p := range ps {
		n.AddParent(p)
	}
}

// IsCallSite reports whether the call linker may rewire this node.
func (n *Node) IsCallSite() bool {
	return n.LinkCount >= 0
}

// IsSentinel reports whether the node is the synthetic start or stop.
func (n *Node) IsSentinel() bool {
	return n.Kind == KindStart || n.Kind == KindStop
}

// FuncEntry records the sentinel pair registered for one function
// definition.
type FuncEntry struct {
	Enter int `json:"enter"`
	Exit  int `json:"exit"`
}

// Graph is the finished control flow graph of one translation unit.
// It owns the registry the walk filled, the ids of the start/stop
// sentinels, and the function table built from the definitions seen.
type Graph struct {
	reg       *Registry
	Start     int                  `json:"start"`
	Stop      int                  `json:"stop"`
	Functions map[string]FuncEntry `json:"functions"`
}

// Node returns the node with the given id, or nil if out of range.
func (g *Graph) Node(id int) *Node {
	return g.reg.Node(id)
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return g.reg.Len()
}

// Nodes returns every node in id order. The slice is shared with the
// graph; callers must not reorder it.
func (g *Graph) Nodes() []*Node {
	return g.reg.nodes
}

// updateChildren recomputes every node's children from the parent
// relation. Iterating nodes in id order keeps each child list sorted by
// child id, which downstream consumers rely on for stable true/false
// edge discrimination.
func (g *Graph) updateChildren() {
	for _, n := range g.reg.nodes {
		n.Children = n.Children[:0]
	}
	for _, n := range g.reg.nodes {
		for _, p := range n.Parents {
			g.reg.Node(p).addChild(n.ID)
		}
	}
}

func (n *Node) addChild(c int) {
	if c == n.ID {
		return
	}
	for _, q := range n.Children {
		if q == c {
			return
		}
	}
	n.Children = append(n.Children, c)
}

// FunctionNames returns the registered function names sorted.
func (g *Graph) FunctionNames() []string {
	names := make([]string, 0, len(g.Functions))
	for name := range g.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
