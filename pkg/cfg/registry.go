package cfg

// Registry owns every node of one build and issues their ids. Ids are
// dense and monotonically assigned, so the backing slice doubles as the
// id → node mapping. A Registry must not be shared across builds; each
// Build call creates its own.
type Registry struct {
	nodes []*Node
}

// NewRegistry returns an empty registry for one build.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewNode creates a node with the next id, records the given parents,
// and stores it. Kinds that carry optional fields get them initialized
// here so their presence never has to be probed later.
func (r *Registry) NewNode(kind NodeKind, line int, text string, parents []int) *Node {
	n := &Node{
		ID:        len(r.nodes),
		Kind:      kind,
		Line:      line,
		Text:      text,
		LinkCount: -1,
	}
	switch kind {
	case KindLoop:
		n.ExitTargets = []int{}
	case KindEnter:
		n.ReturnTargets = []int{}
	}
	n.AddParents(parents)
	r.nodes = append(r.nodes, n)
	return n
}

// Node returns the node with the given id, or nil if out of range.
func (r *Registry) Node(id int) *Node {
	if id < 0 || id >= len(r.nodes) {
		return nil
	}
	return r.nodes[id]
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}
