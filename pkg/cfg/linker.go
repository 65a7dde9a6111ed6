package cfg

// LinkCalls rewires every unlinked call site whose callee is defined in
// this translation unit: the callee's enter sentinel becomes an extra
// parent of the call node, and the callee's exit sentinel becomes an
// extra parent of every node the call previously flowed into. Nodes
// with LinkCount > 0 are skipped, so running the pass again changes
// nothing. Callee names with no registered definition are left alone.
//
// Children are recomputed afterwards so the parent/child views stay
// inverses of each other.
func (g *Graph) LinkCalls() {
	for _, n := range g.Nodes() {
		if len(n.Calls) == 0 || n.LinkCount != 0 {
			continue
		}
		for _, name := range n.Calls {
			fe, ok := g.Functions[name]
			if !ok {
				continue
			}
			// Snapshot before mutation: the exit wires to where the
			// call flowed at link time, not to edges added below.
			children := append([]int(nil), n.Children...)
			n.AddParent(fe.Enter)
			for _, c := range children {
				if child := g.Node(c); child != nil {
					child.AddParent(fe.Exit)
				}
			}
			n.LinkCount++
		}
	}
	g.updateChildren()
}
