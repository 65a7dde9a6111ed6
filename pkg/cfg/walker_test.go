package cfg

import (
	"errors"
	"testing"
)

func TestBuildStraightLine(t *testing.T) {
	g := mustBuild(t, `a = 1
b = a + 1
c = b * 2
`)

	if g.Len() != 5 {
		t.Fatalf("expected 5 nodes (start, 3 statements, stop), got %d", g.Len())
	}

	wantParents := map[int][]int{
		0: {},  // start
		1: {0}, // a = 1
		2: {1}, // b = a + 1
		3: {2}, // c = b * 2
		4: {3}, // stop
	}
	for id, want := range wantParents {
		if got := g.Node(id).Parents; !equalInts(got, want) {
			t.Errorf("node %d parents = %v, want %v", id, got, want)
		}
	}

	if g.Node(0).Kind != KindStart || g.Node(4).Kind != KindStop {
		t.Errorf("sentinel kinds wrong: %s, %s", g.Node(0).Kind, g.Node(4).Kind)
	}
	if g.Node(0).Line != 0 || g.Node(4).Line != 0 {
		t.Errorf("sentinels must sit on line 0, got %d and %d", g.Node(0).Line, g.Node(4).Line)
	}
	if n := g.Node(2); n.Kind != KindStatement || n.Line != 2 || n.Text != "b = a + 1" {
		t.Errorf("node 2 = %s %d %q, want statement 2 \"b = a + 1\"", n.Kind, n.Line, n.Text)
	}
}

func TestBuildIfElse(t *testing.T) {
	g := mustBuild(t, `a = 1
if a > 0:
    b = 1
else:
    b = 2
c = b
`)

	test := findNode(t, g, "_if: a > 0")
	if test.Kind != KindBranch {
		t.Errorf("test node kind = %s, want %s", test.Kind, KindBranch)
	}
	if test.Line != 2 {
		t.Errorf("test node line = %d, want 2", test.Line)
	}

	then := findNode(t, g, "b = 1")
	alt := findNode(t, g, "b = 2")
	if !equalInts(test.Children, []int{then.ID, alt.ID}) {
		t.Errorf("test children = %v, want [%d %d] (true branch first)", test.Children, then.ID, alt.ID)
	}

	join := findNode(t, g, "c = b")
	if !equalInts(join.Parents, []int{then.ID, alt.ID}) {
		t.Errorf("join parents = %v, want [%d %d]", join.Parents, then.ID, alt.ID)
	}
}

func TestBuildIfWithoutElse(t *testing.T) {
	g := mustBuild(t, `a = 1
if a > 0:
    b = 1
c = 2
`)

	test := findNode(t, g, "_if: a > 0")
	body := findNode(t, g, "b = 1")
	next := findNode(t, g, "c = 2")

	// The false path skips straight from the test to the next statement.
	if !equalInts(next.Parents, []int{body.ID, test.ID}) {
		t.Errorf("next parents = %v, want [%d %d]", next.Parents, body.ID, test.ID)
	}
	if !equalInts(test.Children, []int{body.ID, next.ID}) {
		t.Errorf("test children = %v, want [%d %d]", test.Children, body.ID, next.ID)
	}
}

func TestBuildElifChain(t *testing.T) {
	g := mustBuild(t, `a = 1
if a > 2:
    x = 1
elif a > 1:
    x = 2
else:
    x = 3
y = x
`)

	first := findNode(t, g, "_if: a > 2")
	second := findNode(t, g, "_if: a > 1")
	if second.Kind != KindBranch || second.Line != 4 {
		t.Errorf("elif test = %s line %d, want branch line 4", second.Kind, second.Line)
	}
	// The elif test hangs off the false path of the first test.
	if !equalInts(second.Parents, []int{first.ID}) {
		t.Errorf("elif test parents = %v, want [%d]", second.Parents, first.ID)
	}

	b1 := findNode(t, g, "x = 1")
	b2 := findNode(t, g, "x = 2")
	b3 := findNode(t, g, "x = 3")
	if !equalInts(b3.Parents, []int{second.ID}) {
		t.Errorf("else body parents = %v, want [%d]", b3.Parents, second.ID)
	}

	join := findNode(t, g, "y = x")
	if !equalInts(join.Parents, []int{b1.ID, b2.ID, b3.ID}) {
		t.Errorf("join parents = %v, want [%d %d %d]", join.Parents, b1.ID, b2.ID, b3.ID)
	}
}

func TestBuildWhile(t *testing.T) {
	g := mustBuild(t, `x = 10
while x > 0:
    x = x - 1
done = 1
`)

	test := findNode(t, g, "_while: x > 0")
	if test.Kind != KindLoop || test.Line != 2 {
		t.Errorf("loop test = %s line %d, want loop line 2", test.Kind, test.Line)
	}

	init := findNode(t, g, "x = 10")
	body := findNode(t, g, "x = x - 1")
	after := findNode(t, g, "done = 1")

	// Back-edge: the body end re-enters the test.
	if !equalInts(test.Parents, []int{init.ID, body.ID}) {
		t.Errorf("test parents = %v, want [%d %d]", test.Parents, init.ID, body.ID)
	}
	// Fallthrough after the loop comes from the test alone.
	if !equalInts(after.Parents, []int{test.ID}) {
		t.Errorf("after parents = %v, want [%d]", after.Parents, test.ID)
	}
	if len(test.ExitTargets) != 0 {
		t.Errorf("loop without break has exit targets %v", test.ExitTargets)
	}
}

func TestBuildWhileBreakContinue(t *testing.T) {
	g := mustBuild(t, `x = 10
while x > 0:
    if x == 5:
        break
    if x == 7:
        continue
    x = x - 1
y = x
`)

	test := findNode(t, g, "_while: x > 0")
	brk := findNode(t, g, "break")
	cont := findNode(t, g, "continue")
	after := findNode(t, g, "y = x")

	if !equalInts(test.ExitTargets, []int{brk.ID}) {
		t.Errorf("exit targets = %v, want [%d]", test.ExitTargets, brk.ID)
	}
	// Loop exits: the break first, then the test fallthrough.
	if !equalInts(after.Parents, []int{brk.ID, test.ID}) {
		t.Errorf("after parents = %v, want [%d %d]", after.Parents, brk.ID, test.ID)
	}
	// Continue adds a back-edge to the test.
	if !containsInt(test.Parents, cont.ID) {
		t.Errorf("test parents %v do not include continue node %d", test.Parents, cont.ID)
	}
	if len(cont.Children) != 1 || cont.Children[0] != test.ID {
		t.Errorf("continue children = %v, want [%d]", cont.Children, test.ID)
	}
}

func TestBuildForDesugar(t *testing.T) {
	g := mustBuild(t, `items = [1, 2]
for it in items:
    x = it
total = 1
`)

	init := findNode(t, g, "__iv = iter(items)")
	test := findNode(t, g, "_for: __iv.__length__hint__() > 0")
	extract := findNode(t, g, "it = next(__iv)")
	body := findNode(t, g, "x = it")
	after := findNode(t, g, "total = 1")

	if init.Kind != KindStatement || init.Line != 2 {
		t.Errorf("init = %s line %d, want statement line 2", init.Kind, init.Line)
	}
	if test.Kind != KindLoop || test.Line != 2 {
		t.Errorf("test = %s line %d, want loop line 2", test.Kind, test.Line)
	}
	if !equalInts(test.Parents, []int{init.ID, body.ID}) {
		t.Errorf("test parents = %v, want [%d %d]", test.Parents, init.ID, body.ID)
	}
	if !equalInts(extract.Parents, []int{test.ID}) {
		t.Errorf("extract parents = %v, want [%d]", extract.Parents, test.ID)
	}
	if !equalInts(body.Parents, []int{extract.ID}) {
		t.Errorf("body parents = %v, want [%d]", body.Parents, extract.ID)
	}
	if !equalInts(after.Parents, []int{test.ID}) {
		t.Errorf("after parents = %v, want [%d]", after.Parents, test.ID)
	}
}

func TestBuildForBreak(t *testing.T) {
	g := mustBuild(t, `for it in items:
    break
done = 1
`)

	test := findNode(t, g, "_for: __iv.__length__hint__() > 0")
	brk := findNode(t, g, "break")
	after := findNode(t, g, "done = 1")

	if !equalInts(test.ExitTargets, []int{brk.ID}) {
		t.Errorf("exit targets = %v, want [%d]", test.ExitTargets, brk.ID)
	}
	if !equalInts(after.Parents, []int{brk.ID, test.ID}) {
		t.Errorf("after parents = %v, want [%d %d]", after.Parents, brk.ID, test.ID)
	}
}

func TestBuildFunctionDef(t *testing.T) {
	g := mustBuild(t, `def f(a, b):
    c = a + b
    return c

x = 1
`)

	enter := findNode(t, g, "enter: f(a, b)")
	exit := findNode(t, g, "exit: f(a, b)")
	body := findNode(t, g, "c = a + b")
	ret := findNode(t, g, "return c")
	after := findNode(t, g, "x = 1")

	if enter.Kind != KindEnter || exit.Kind != KindExit {
		t.Fatalf("sentinel kinds = %s, %s", enter.Kind, exit.Kind)
	}
	if enter.Line != 1 || exit.Line != 1 {
		t.Errorf("sentinel lines = %d, %d, want 1, 1", enter.Line, exit.Line)
	}

	fe, ok := g.Functions["f"]
	if !ok {
		t.Fatalf("function table missing f: %v", g.Functions)
	}
	if fe.Enter != enter.ID || fe.Exit != exit.ID {
		t.Errorf("function table entry = %+v, want {%d %d}", fe, enter.ID, exit.ID)
	}

	if !equalInts(body.Parents, []int{enter.ID}) {
		t.Errorf("body parents = %v, want [%d]", body.Parents, enter.ID)
	}
	if !equalInts(enter.ReturnTargets, []int{ret.ID}) {
		t.Errorf("return targets = %v, want [%d]", enter.ReturnTargets, ret.ID)
	}
	if !equalInts(exit.Parents, []int{ret.ID}) {
		t.Errorf("exit parents = %v, want [%d]", exit.Parents, ret.ID)
	}

	// The definition does not interrupt the surrounding flow.
	if !equalInts(after.Parents, []int{g.Start}) {
		t.Errorf("statement after def has parents %v, want [%d]", after.Parents, g.Start)
	}

	if enter.Func != "f" || body.Func != "f" || after.Func != "" {
		t.Errorf("func ownership = %q, %q, %q, want f, f, \"\"", enter.Func, body.Func, after.Func)
	}
}

func TestBuildFunctionFallthrough(t *testing.T) {
	g := mustBuild(t, `def g():
    x = 1
`)

	enter := findNode(t, g, "enter: g()")
	exit := findNode(t, g, "exit: g()")
	body := findNode(t, g, "x = 1")

	// No explicit return: the last body node flows to the exit.
	if !equalInts(enter.ReturnTargets, []int{body.ID}) {
		t.Errorf("return targets = %v, want [%d]", enter.ReturnTargets, body.ID)
	}
	if !equalInts(exit.Parents, []int{body.ID}) {
		t.Errorf("exit parents = %v, want [%d]", exit.Parents, body.ID)
	}
}

func TestBuildCallDiscovery(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		nodeText  string
		wantCalls []string
	}{
		{
			name:      "direct call in assignment",
			code:      "x = f(1)\n",
			nodeText:  "x = f(1)",
			wantCalls: []string{"f"},
		},
		{
			name:      "bare call statement",
			code:      "f(1)\n",
			nodeText:  "f(1)",
			wantCalls: []string{"f"},
		},
		{
			name:      "nested call discovered inside out",
			code:      "y = f(g(2))\n",
			nodeText:  "y = f(g(2))",
			wantCalls: []string{"g", "f"},
		},
		{
			name:      "argument calls before callee",
			code:      "a = f(g(1), h(2))\n",
			nodeText:  "a = f(g(1), h(2))",
			wantCalls: []string{"g", "h", "f"},
		},
		{
			name:      "calls on both binop sides",
			code:      "a = f() + g()\n",
			nodeText:  "a = f() + g()",
			wantCalls: []string{"f", "g"},
		},
		{
			name:      "attribute callee uses last component",
			code:      "obj.helper.method(1)\n",
			nodeText:  "obj.helper.method(1)",
			wantCalls: []string{"method"},
		},
		{
			name:      "call returning callable names inner target",
			code:      "x = f()()\n",
			nodeText:  "x = f()()",
			wantCalls: []string{"f"},
		},
		{
			name:      "keyword arguments are not walked",
			code:      "c = run(1, key=make())\n",
			nodeText:  "c = run(1, key=make())",
			wantCalls: []string{"run"},
		},
		{
			name:      "comparison walks first two operands",
			code:      "if f() < g() < h():\n    x = 1\n",
			nodeText:  "_if: f() < g() < h()",
			wantCalls: []string{"f", "g"},
		},
		{
			name:      "not operator descends",
			code:      "if not f():\n    x = 1\n",
			nodeText:  "_if: not f()",
			wantCalls: []string{"f"},
		},
		{
			name:      "augmented assignment walks value",
			code:      "x += f(1)\n",
			nodeText:  "x += f(1)",
			wantCalls: []string{"f"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustBuild(t, tt.code)
			n := findNode(t, g, tt.nodeText)
			if !equalStrings(n.Calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", n.Calls, tt.wantCalls)
			}
			if n.LinkCount != 0 {
				t.Errorf("link count = %d, want 0 before linking", n.LinkCount)
			}
		})
	}
}

func TestBuildReturnValueCallsAttachBefore(t *testing.T) {
	g := mustBuild(t, `def f():
    x = g()
    return h(x)
`)

	assign := findNode(t, g, "x = g()")
	ret := findNode(t, g, "return h(x)")

	// The return value is walked before the return node exists, so h
	// lands on the preceding statement.
	if !equalStrings(assign.Calls, []string{"g", "h"}) {
		t.Errorf("assign calls = %v, want [g h]", assign.Calls)
	}
	if len(ret.Calls) != 0 {
		t.Errorf("return node calls = %v, want none", ret.Calls)
	}
	if ret.LinkCount != -1 {
		t.Errorf("return node link count = %d, want -1", ret.LinkCount)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"chained assignment", "a = b = 1\n", ErrUnsupported},
		{"boolean operator callee", "(a and b)()\n", ErrUnsupported},
		{"subscript callee", "fns[0]()\n", ErrUnsupported},
		{"break at top level", "break\n", ErrOutsideLoop},
		{"continue at top level", "continue\n", ErrOutsideLoop},
		{"return at top level", "return 1\n", ErrOutsideFunction},
		{"break in function without loop", "def f():\n    break\n", ErrOutsideLoop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build([]byte(tt.code))
			if !errors.Is(err, tt.want) {
				t.Errorf("Build error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildUnknownStatementsPassThrough(t *testing.T) {
	g := mustBuild(t, `import os

class Foo:
    pass

a = 1
`)

	// Imports and class bodies contribute no nodes; the single
	// assignment hangs directly off start.
	if g.Len() != 3 {
		t.Fatalf("expected 3 nodes (start, assignment, stop), got %d", g.Len())
	}
	n := findNode(t, g, "a = 1")
	if !equalInts(n.Parents, []int{g.Start}) {
		t.Errorf("assignment parents = %v, want [%d]", n.Parents, g.Start)
	}
}

func TestBuildEmptySource(t *testing.T) {
	g := mustBuild(t, "")

	if g.Len() != 2 {
		t.Fatalf("expected start and stop only, got %d nodes", g.Len())
	}
	stop := g.Node(g.Stop)
	if !equalInts(stop.Parents, []int{g.Start}) {
		t.Errorf("stop parents = %v, want [%d]", stop.Parents, g.Start)
	}
}

func TestBuildTupleTargetAllowed(t *testing.T) {
	g := mustBuild(t, "a, b = f()\n")

	n := findNode(t, g, "a, b = f()")
	if !equalStrings(n.Calls, []string{"f"}) {
		t.Errorf("calls = %v, want [f]", n.Calls)
	}
}

func TestBuildDecoratedFunction(t *testing.T) {
	g := mustBuild(t, `@wraps
def f(a):
    return a
`)

	if _, ok := g.Functions["f"]; !ok {
		t.Fatalf("decorated function not registered: %v", g.Functions)
	}
	enter := findNode(t, g, "enter: f(a)")
	if enter.Kind != KindEnter {
		t.Errorf("enter sentinel kind = %s, want %s", enter.Kind, KindEnter)
	}
}

func TestBuildDeadCodeAfterBreak(t *testing.T) {
	g := mustBuild(t, `while x:
    break
    y = 1
z = 2
`)

	dead := findNode(t, g, "y = 1")
	if len(dead.Parents) != 0 {
		t.Errorf("dead node parents = %v, want none", dead.Parents)
	}
}

func mustBuild(t *testing.T, code string) *Graph {
	t.Helper()
	g, err := Build([]byte(code))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return g
}

func findNode(t *testing.T, g *Graph, text string) *Node {
	t.Helper()
	for _, n := range g.Nodes() {
		if n.Text == text {
			return n
		}
	}
	t.Fatalf("no node with text %q", text)
	return nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
