package cfg

import "sort"

// Relation selects which adjacency acts as the predecessor set during
// dominator computation.
type Relation int

const (
	// RelParents computes classic dominators: paths from the start.
	RelParents Relation = iota
	// RelChildren computes post-dominators: paths to the stop,
	// following child edges backward.
	RelChildren
)

// DomResult holds the dominator sets of one analysis plus the nodes
// the chosen root cannot reach over that analysis's successor
// relation. Reachability is per analysis: enter sentinels never gain
// parents, so function subgraphs sit off the start's forward path and
// are listed here, while the backward analysis from stop reaches them
// through linked call edges.
type DomResult struct {
	Start       int           `json:"start"`
	Sets        map[int][]int `json:"sets"`
	Unreachable []int         `json:"unreachable,omitempty"`
}

// Dominators computes the dominator set of every node with the start
// sentinel as root and parent edges as the predecessor relation.
func (g *Graph) Dominators() *DomResult {
	return g.DominatorsFrom(g.Start, RelParents)
}

// PostDominators computes post-dominator sets with the stop sentinel
// as root.
func (g *Graph) PostDominators() *DomResult {
	return g.DominatorsFrom(g.Stop, RelChildren)
}

// DominatorsFrom runs the analysis for an arbitrary root and relation.
func (g *Graph) DominatorsFrom(start int, rel Relation) *DomResult {
	ids := make([]int, 0, g.Len())
	preds := make(map[int][]int, g.Len())
	succs := make(map[int][]int, g.Len())
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
		if rel == RelParents {
			preds[n.ID] = n.Parents
			succs[n.ID] = n.Children
		} else {
			preds[n.ID] = n.Children
			succs[n.ID] = n.Parents
		}
	}
	sets, unreachable := fixpointDominators(ids, start, preds, succs)
	return &DomResult{Start: start, Sets: sets, Unreachable: unreachable}
}

// fixpointDominators runs the iterative dataflow scheme: the root
// dominates only itself, every other node starts at the universal set,
// and each pass replaces Dom(n) with {n} plus the intersection of its
// predecessors' sets until nothing changes. A node with no
// predecessors contributes an empty intersection, collapsing its set
// to {n}.
//
// Reachability is decided separately by traversal over the successor
// relation. The fixpoint alone cannot tell an unreachable node from a
// late node on a single path, whose set legitimately covers everything
// before it.
func fixpointDominators(ids []int, start int, preds, succs map[int][]int) (map[int][]int, []int) {
	universe := make(map[int]bool, len(ids))
	for _, id := range ids {
		universe[id] = true
	}

	dom := make(map[int]map[int]bool, len(ids))
	for _, id := range ids {
		if id == start {
			dom[id] = map[int]bool{start: true}
			continue
		}
		dom[id] = copySet(universe)
	}

	for changed := true; changed; {
		changed = false
		for _, id := range ids {
			if id == start {
				continue
			}
			next := intersectSets(dom, preds[id])
			next[id] = true
			if !setsEqual(dom[id], next) {
				dom[id] = next
				changed = true
			}
		}
	}

	seen := map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, s := range succs[id] {
			if !seen[s] {
				seen[s] = true
				queue = append(queue, s)
			}
		}
	}

	sets := make(map[int][]int, len(ids))
	var unreachable []int
	for _, id := range ids {
		sets[id] = sortedSet(dom[id])
		if !seen[id] {
			unreachable = append(unreachable, id)
		}
	}
	sort.Ints(unreachable)
	return sets, unreachable
}

func intersectSets(dom map[int]map[int]bool, preds []int) map[int]bool {
	if len(preds) == 0 {
		return map[int]bool{}
	}
	out := copySet(dom[preds[0]])
	for _, p := range preds[1:] {
		s := dom[p]
		for k := range out {
			if !s[k] {
				delete(out, k)
			}
		}
	}
	return out
}

func copySet(s map[int]bool) map[int]bool {
	out := make(map[int]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func setsEqual(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func sortedSet(s map[int]bool) []int {
	out := make([]int, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
