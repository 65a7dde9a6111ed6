package cfg

import "sort"

// Record is the flattened export row for one node, the shape consumers
// outside the package (exporters, caches, JSON output) work with.
type Record struct {
	ID        int      `json:"id"`
	Kind      NodeKind `json:"kind"`
	Line      int      `json:"line"`
	Text      string   `json:"text"`
	Parents   []int    `json:"parents"`
	Children  []int    `json:"children"`
	Calls     []string `json:"calls,omitempty"`
	LinkCount int      `json:"link_count"`
	Func      string   `json:"func,omitempty"`
}

// Records flattens the graph in id order. With includeSentinels false
// the start/stop rows are dropped and edge references to them scrubbed,
// leaving only source statements.
func (g *Graph) Records(includeSentinels bool) []Record {
	drop := map[int]bool{}
	if !includeSentinels {
		drop[g.Start] = true
		drop[g.Stop] = true
	}
	records := make([]Record, 0, g.Len())
	for _, n := range g.Nodes() {
		if drop[n.ID] {
			continue
		}
		records = append(records, Record{
			ID:        n.ID,
			Kind:      n.Kind,
			Line:      n.Line,
			Text:      n.Text,
			Parents:   filterIDs(n.Parents, drop),
			Children:  filterIDs(n.Children, drop),
			Calls:     append([]string(nil), n.Calls...),
			LinkCount: n.LinkCount,
			Func:      n.Func,
		})
	}
	return records
}

func filterIDs(ids []int, drop map[int]bool) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

// LineFlow is the line-keyed projection of one graph: for each source
// line, the distinct lines flowing in and out of it (same-line edges
// removed), the calls made on it, and the owning function. Start and
// stop both sit on line 0, so the projection's entry and exit share
// that key.
type LineFlow struct {
	Parents  []int    `json:"parents"`
	Children []int    `json:"children"`
	Calls    []string `json:"calls,omitempty"`
	Func     string   `json:"function"`
}

// Lines projects the graph onto source lines. Where several nodes share
// a line their edges are unioned; the owning function comes from the
// lowest-id node on the line.
func (g *Graph) Lines() map[int]*LineFlow {
	lines := map[int]*LineFlow{}
	parents := map[int]map[int]bool{}
	children := map[int]map[int]bool{}

	for _, n := range g.Nodes() {
		lf := lines[n.Line]
		if lf == nil {
			lf = &LineFlow{Func: n.Func}
			lines[n.Line] = lf
			parents[n.Line] = map[int]bool{}
			children[n.Line] = map[int]bool{}
		}
		for _, p := range n.Parents {
			if pl := g.Node(p).Line; pl != n.Line {
				parents[n.Line][pl] = true
			}
		}
		for _, c := range n.Children {
			if cl := g.Node(c).Line; cl != n.Line {
				children[n.Line][cl] = true
			}
		}
		for _, call := range n.Calls {
			if !containsString(lf.Calls, call) {
				lf.Calls = append(lf.Calls, call)
			}
		}
	}
	for line, lf := range lines {
		lf.Parents = sortedSet(parents[line])
		lf.Children = sortedSet(children[line])
	}
	return lines
}

// LineDominators runs the dominator fixpoint over the line projection.
// Line 0 carries both sentinels, so it is the natural root for either
// relation.
func LineDominators(lines map[int]*LineFlow, start int, rel Relation) *DomResult {
	ids := make([]int, 0, len(lines))
	for line := range lines {
		ids = append(ids, line)
	}
	sort.Ints(ids)

	preds := make(map[int][]int, len(lines))
	succs := make(map[int][]int, len(lines))
	for line, lf := range lines {
		if rel == RelParents {
			preds[line] = lf.Parents
			succs[line] = lf.Children
		} else {
			preds[line] = lf.Children
			succs[line] = lf.Parents
		}
	}
	sets, unreachable := fixpointDominators(ids, start, preds, succs)
	return &DomResult{Start: start, Sets: sets, Unreachable: unreachable}
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
