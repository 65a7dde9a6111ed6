// Package dot renders control flow graph records as Graphviz DOT text.
package dot

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-flow-graph/pkg/cfg"
)

// Options controls rendering.
type Options struct {
	// Name names the graph in the DOT header; "cfg" when empty.
	Name string

	// Arcs lists traced (from line, to line) transitions, typically
	// from a coverage run. When non-empty every edge is colored green
	// (exercised) or red (not exercised) instead of carrying
	// true/false branch labels.
	Arcs [][2]int
}

// Render emits DOT text for the given records. Nodes appear in record
// order labeled "line: text"; edges follow each record's parent list,
// so output is deterministic for a given graph.
func Render(records []cfg.Record, opts Options) string {
	name := opts.Name
	if name == "" {
		name = "cfg"
	}

	rd := &renderer{
		byID:     make(map[int]*cfg.Record, len(records)),
		covered:  make(map[[2]int]bool, len(opts.Arcs)),
		covLines: make(map[int]bool, len(opts.Arcs)),
		withArcs: len(opts.Arcs) > 0,
	}
	for i := range records {
		rd.byID[records[i].ID] = &records[i]
	}
	for _, arc := range opts.Arcs {
		rd.covered[arc] = true
		rd.covLines[arc[0]] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", name)
	for i := range records {
		r := &records[i]
		fmt.Fprintf(&b, "  %d [%s, label=\"%d: %s\"];\n",
			r.ID, shapeAttrs(r.Kind), r.Line, escapeLabel(unhack(r.Text)))
	}
	for i := range records {
		r := &records[i]
		for _, pid := range r.Parents {
			p := rd.byID[pid]
			if p == nil {
				continue
			}
			if attrs := rd.edgeAttrs(p, r); attrs != "" {
				fmt.Fprintf(&b, "  %d -> %d [%s];\n", p.ID, r.ID, attrs)
			} else {
				fmt.Fprintf(&b, "  %d -> %d;\n", p.ID, r.ID)
			}
		}
	}
	b.WriteString("}\n")
	return b.String()
}

type renderer struct {
	byID     map[int]*cfg.Record
	covered  map[[2]int]bool
	covLines map[int]bool
	withArcs bool
}

// edgeAttrs picks the attributes of one parent -> child edge. The
// fall-through edge out of a linked call site renders dotted: control
// detours through the callee rather than flowing along it. With arcs,
// edges are colored by coverage; otherwise a branch fan-out gets
// true/false labels on its first two children in id order.
func (rd *renderer) edgeAttrs(p, c *cfg.Record) string {
	if p.LinkCount > 0 && c.Kind != cfg.KindEnter {
		return "style=dotted, weight=100"
	}
	if rd.withArcs {
		if rd.edgeCovered(p, c) {
			return "color=green"
		}
		return "color=red"
	}
	if len(p.Children) < 2 {
		return ""
	}
	switch indexOf(p.Children, c.ID) {
	case 0:
		return `label="true", color=green`
	case 1:
		return `label="false", color=red`
	default:
		return ""
	}
}

// edgeCovered decides whether the traced run exercised this edge.
func (rd *renderer) edgeCovered(p, c *cfg.Record) bool {
	switch {
	case rd.covered[[2]int{p.Line, c.Line}]:
		return true
	case p.Line == c.Line && rd.covLines[c.Line]:
		return true
	case c.Kind == cfg.KindExit && rd.covLines[p.Line]:
		// Return flowing into its exit sentinel.
		return true
	case p.Kind == cfg.KindExit && rd.anyParentLineCovered(p):
		// Exit flowing onward: covered when any return line ran.
		return true
	case p.Kind == cfg.KindEnter && rd.covLines[c.Line]:
		// Enter edges follow the lines they lead to.
		return true
	}
	return false
}

func (rd *renderer) anyParentLineCovered(r *cfg.Record) bool {
	for _, pid := range r.Parents {
		if q := rd.byID[pid]; q != nil && rd.covLines[q.Line] {
			return true
		}
	}
	return false
}

func shapeAttrs(kind cfg.NodeKind) string {
	switch kind {
	case cfg.KindBranch, cfg.KindLoop:
		return "shape=diamond"
	case cfg.KindEnter, cfg.KindExit:
		return "shape=oval, peripheries=2"
	default:
		return "shape=rectangle"
	}
}

// unhack rewrites the synthetic test prefixes (_if:, _while:, _for:)
// to their plain spelling for display.
func unhack(text string) string {
	for _, kw := range []string{"if", "while", "for", "elif"} {
		prefix := "_" + kw + ":"
		if strings.HasPrefix(text, prefix) {
			return kw + ":" + strings.TrimPrefix(text, prefix)
		}
	}
	return text
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(s string) string {
	return labelEscaper.Replace(s)
}

func indexOf(xs []int, x int) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}
