package cfg

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// walker threads the current frontier (the nodes whose outgoing edges
// are not yet determined) through the syntax tree and materializes
// graph nodes according to the per-construct rules. All node creation
// goes through the registry.
type walker struct {
	reg   *Registry
	src   []byte
	funcs map[string]FuncEntry
}

// walkContext carries the innermost enclosing loop test and function
// enter sentinel down the recursion, so break/continue/return resolve
// their targets directly instead of climbing parent chains.
type walkContext struct {
	loop   *Node // innermost loop test, nil outside loops
	fn     *Node // innermost function enter, nil at module level
	fnName string
}

func (w *walker) nodeText(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	start, end := int(node.StartByte()), int(node.EndByte())
	if start < 0 || end > len(w.src) || start > end {
		return ""
	}
	return string(w.src[start:end])
}

func lineOf(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPoint().Row) + 1
}

// newNode creates a statement-level node owned by the current function
// context.
func (w *walker) newNode(kind NodeKind, line int, text string, parents []int, ctx walkContext) *Node {
	n := w.reg.NewNode(kind, line, text, parents)
	n.Func = ctx.fnName
	return n
}

// walkBody folds the frontier through the statements of a module or
// block node. Node kinds without a rule (imports, class definitions,
// comments) pass the frontier through unchanged.
func (w *walker) walkBody(body *sitter.Node, frontier []int, ctx walkContext) ([]int, error) {
	if body == nil {
		return frontier, nil
	}
	p := frontier
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child == nil {
			continue
		}
		var err error
		p, err = w.walkStatement(child, p, ctx)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// walkStatement dispatches one statement and returns the next frontier.
func (w *walker) walkStatement(node *sitter.Node, frontier []int, ctx walkContext) ([]int, error) {
	switch node.Type() {
	case "expression_statement":
		return w.walkSimpleStatement(node, frontier, ctx)
	case "pass_statement":
		n := w.newNode(KindStatement, lineOf(node), w.nodeText(node), frontier, ctx)
		return []int{n.ID}, nil
	case "if_statement":
		return w.walkIf(node, frontier, ctx)
	case "while_statement":
		return w.walkWhile(node, frontier, ctx)
	case "for_statement":
		return w.walkFor(node, frontier, ctx)
	case "break_statement":
		return w.walkBreak(node, frontier, ctx)
	case "continue_statement":
		return w.walkContinue(node, frontier, ctx)
	case "return_statement":
		return w.walkReturn(node, frontier, ctx)
	case "function_definition":
		return w.walkFunctionDef(node, frontier, ctx)
	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil && def.Type() == "function_definition" {
			return w.walkFunctionDef(def, frontier, ctx)
		}
		return frontier, nil
	default:
		return frontier, nil
	}
}

// walkSimpleStatement handles an expression_statement, which wraps an
// assignment, an augmented assignment, or a bare expression. One node
// represents the whole statement; its expressions are then walked only
// to discover calls.
func (w *walker) walkSimpleStatement(node *sitter.Node, frontier []int, ctx walkContext) ([]int, error) {
	inner := firstExpression(node)
	if inner == nil {
		return frontier, nil
	}
	switch inner.Type() {
	case "assignment":
		if right := inner.ChildByFieldName("right"); right != nil {
			if right.Type() == "assignment" || right.Type() == "augmented_assignment" {
				return nil, fmt.Errorf("line %d: parallel assignment: %w", lineOf(inner), ErrUnsupported)
			}
		}
		n := w.newNode(KindStatement, lineOf(inner), w.nodeText(inner), frontier, ctx)
		next := []int{n.ID}
		if right := inner.ChildByFieldName("right"); right != nil {
			if err := w.walkExpr(right, next, ctx); err != nil {
				return nil, err
			}
		}
		return next, nil
	case "augmented_assignment":
		n := w.newNode(KindStatement, lineOf(inner), w.nodeText(inner), frontier, ctx)
		next := []int{n.ID}
		if right := inner.ChildByFieldName("right"); right != nil {
			if err := w.walkExpr(right, next, ctx); err != nil {
				return nil, err
			}
		}
		return next, nil
	default:
		n := w.newNode(KindStatement, lineOf(node), w.nodeText(node), frontier, ctx)
		next := []int{n.ID}
		if err := w.walkExpr(inner, next, ctx); err != nil {
			return nil, err
		}
		return next, nil
	}
}

// firstExpression returns the first named non-comment child.
func firstExpression(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Type() != "comment" {
			return child
		}
	}
	return nil
}

func (w *walker) walkIf(node *sitter.Node, frontier []int, ctx walkContext) ([]int, error) {
	cond := node.ChildByFieldName("condition")
	test := w.newNode(KindBranch, lineOf(cond), "_if: "+w.nodeText(cond), frontier, ctx)
	if err := w.walkExpr(cond, []int{test.ID}, ctx); err != nil {
		return nil, err
	}

	ends, err := w.walkBody(node.ChildByFieldName("consequence"), []int{test.ID}, ctx)
	if err != nil {
		return nil, err
	}

	// Alternatives chain: each elif consumes the false frontier of the
	// previous test, a final else consumes the last one. Without an
	// else the last test itself stays on the frontier.
	alt := []int{test.ID}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "elif_clause":
			elifCond := child.ChildByFieldName("condition")
			elifTest := w.newNode(KindBranch, lineOf(elifCond), "_if: "+w.nodeText(elifCond), alt, ctx)
			if err := w.walkExpr(elifCond, []int{elifTest.ID}, ctx); err != nil {
				return nil, err
			}
			branchEnds, err := w.walkBody(child.ChildByFieldName("consequence"), []int{elifTest.ID}, ctx)
			if err != nil {
				return nil, err
			}
			ends = append(ends, branchEnds...)
			alt = []int{elifTest.ID}
		case "else_clause":
			alt, err = w.walkBody(child.ChildByFieldName("body"), alt, ctx)
			if err != nil {
				return nil, err
			}
		}
	}
	return append(ends, alt...), nil
}

func (w *walker) walkWhile(node *sitter.Node, frontier []int, ctx walkContext) ([]int, error) {
	cond := node.ChildByFieldName("condition")
	test := w.newNode(KindLoop, lineOf(cond), "_while: "+w.nodeText(cond), frontier, ctx)
	if err := w.walkExpr(cond, []int{test.ID}, ctx); err != nil {
		return nil, err
	}

	bodyCtx := ctx
	bodyCtx.loop = test
	ends, err := w.walkBody(node.ChildByFieldName("body"), []int{test.ID}, bodyCtx)
	if err != nil {
		return nil, err
	}
	test.AddParents(ends) // back-edge

	out := append([]int{}, test.ExitTargets...)
	return append(out, test.ID), nil
}

// walkFor desugars a for loop into three synthetic statements around
// the body:
//
//	__iv = iter(<iterable>)
//	_for: __iv.__length__hint__() > 0
//	<target> = next(__iv)
//
// with the same back-edge and exit handling as while.
func (w *walker) walkFor(node *sitter.Node, frontier []int, ctx walkContext) ([]int, error) {
	target := node.ChildByFieldName("left")
	iterable := node.ChildByFieldName("right")

	init := w.newNode(KindStatement, lineOf(iterable), "__iv = iter("+w.nodeText(iterable)+")", frontier, ctx)
	test := w.newNode(KindLoop, lineOf(node), "_for: __iv.__length__hint__() > 0", []int{init.ID}, ctx)
	if err := w.walkExpr(iterable, []int{test.ID}, ctx); err != nil {
		return nil, err
	}
	extract := w.newNode(KindStatement, lineOf(iterable), w.nodeText(target)+" = next(__iv)", []int{test.ID}, ctx)

	bodyCtx := ctx
	bodyCtx.loop = test
	ends, err := w.walkBody(node.ChildByFieldName("body"), []int{extract.ID}, bodyCtx)
	if err != nil {
		return nil, err
	}
	test.AddParents(ends) // back-edge

	out := append([]int{}, test.ExitTargets...)
	return append(out, test.ID), nil
}

func (w *walker) walkBreak(node *sitter.Node, frontier []int, ctx walkContext) ([]int, error) {
	if ctx.loop == nil {
		return nil, fmt.Errorf("line %d: %w", lineOf(node), ErrOutsideLoop)
	}
	n := w.newNode(KindStatement, lineOf(node), w.nodeText(node), frontier, ctx)
	ctx.loop.ExitTargets = append(ctx.loop.ExitTargets, n.ID)
	return nil, nil
}

func (w *walker) walkContinue(node *sitter.Node, frontier []int, ctx walkContext) ([]int, error) {
	if ctx.loop == nil {
		return nil, fmt.Errorf("line %d: %w", lineOf(node), ErrOutsideLoop)
	}
	n := w.newNode(KindStatement, lineOf(node), w.nodeText(node), frontier, ctx)
	ctx.loop.AddParent(n.ID) // back-edge
	return nil, nil
}

func (w *walker) walkReturn(node *sitter.Node, frontier []int, ctx walkContext) ([]int, error) {
	if ctx.fn == nil {
		return nil, fmt.Errorf("line %d: %w", lineOf(node), ErrOutsideFunction)
	}
	// The value is walked before the return node exists, so discovered
	// calls attach to the preceding frontier node.
	if value := firstExpression(node); value != nil {
		if err := w.walkExpr(value, frontier, ctx); err != nil {
			return nil, err
		}
	}
	n := w.newNode(KindStatement, lineOf(node), w.nodeText(node), frontier, ctx)
	ctx.fn.ReturnTargets = append(ctx.fn.ReturnTargets, n.ID)
	return nil, nil
}

// walkFunctionDef builds the enter/exit sentinel pair, walks the body
// between them, and registers the pair in the function table. The
// surrounding frontier passes through unchanged: a definition does not
// interrupt the enclosing flow.
func (w *walker) walkFunctionDef(node *sitter.Node, frontier []int, ctx walkContext) ([]int, error) {
	name := w.nodeText(node.ChildByFieldName("name"))
	sig := name + "(" + strings.Join(w.parameterNames(node.ChildByFieldName("parameters")), ", ") + ")"

	enter := w.reg.NewNode(KindEnter, lineOf(node), "enter: "+sig, nil)
	enter.Func = name
	exit := w.reg.NewNode(KindExit, lineOf(node), "exit: "+sig, nil)
	exit.Func = name

	bodyCtx := walkContext{fn: enter, fnName: name}
	ends, err := w.walkBody(node.ChildByFieldName("body"), []int{enter.ID}, bodyCtx)
	if err != nil {
		return nil, err
	}

	// Implicit fallthrough: body-ending nodes not already recorded by
	// an explicit return also reach the exit.
	for _, id := range ends {
		if !containsInt(enter.ReturnTargets, id) {
			enter.ReturnTargets = append(enter.ReturnTargets, id)
		}
	}
	for _, id := range enter.ReturnTargets {
		exit.AddParent(id)
	}

	w.funcs[name] = FuncEntry{Enter: enter.ID, Exit: exit.ID}
	return frontier, nil
}

// parameterNames collects plain parameter names for the sentinel
// signature text; splat parameters are left out.
func (w *walker) parameterNames(params *sitter.Node) []string {
	var names []string
	if params == nil {
		return names
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p == nil {
			continue
		}
		switch p.Type() {
		case "identifier":
			names = append(names, w.nodeText(p))
		case "default_parameter", "typed_default_parameter":
			if n := p.ChildByFieldName("name"); n != nil {
				names = append(names, w.nodeText(n))
			}
		case "typed_parameter":
			if n := p.NamedChild(0); n != nil && n.Type() == "identifier" {
				names = append(names, w.nodeText(n))
			}
		}
	}
	return names
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// walkExpr descends an expression purely to discover calls. The
// frontier is only the attachment point for discovered callee names;
// every rule leaves it unchanged. Expression kinds without a rule are
// not descended into.
func (w *walker) walkExpr(node *sitter.Node, frontier []int, ctx walkContext) error {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "call":
		return w.walkCall(node, frontier, ctx)
	case "binary_operator":
		if err := w.walkExpr(node.ChildByFieldName("left"), frontier, ctx); err != nil {
			return err
		}
		return w.walkExpr(node.ChildByFieldName("right"), frontier, ctx)
	case "comparison_operator":
		// Left operand and the first comparator only.
		var walked int
		for i := 0; i < int(node.NamedChildCount()) && walked < 2; i++ {
			child := node.NamedChild(i)
			if child == nil || child.Type() == "comment" {
				continue
			}
			if err := w.walkExpr(child, frontier, ctx); err != nil {
				return err
			}
			walked++
		}
		return nil
	case "unary_operator", "not_operator":
		return w.walkExpr(node.ChildByFieldName("argument"), frontier, ctx)
	case "parenthesized_expression":
		return w.walkExpr(firstExpression(node), frontier, ctx)
	default:
		return nil
	}
}

// walkCall walks the positional arguments first (nested calls are
// discovered inside-out), then records the callee name on the first
// frontier node and marks every frontier node as a call site.
func (w *walker) walkCall(node *sitter.Node, frontier []int, ctx walkContext) error {
	if args := node.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg == nil || arg.Type() == "keyword_argument" || arg.Type() == "comment" {
				continue
			}
			if err := w.walkExpr(arg, frontier, ctx); err != nil {
				return err
			}
		}
	}

	name, err := w.calleeName(node)
	if err != nil {
		return err
	}
	if len(frontier) > 0 {
		w.reg.Node(frontier[0]).Calls = append(w.reg.Node(frontier[0]).Calls, name)
	}
	for _, id := range frontier {
		if n := w.reg.Node(id); n.LinkCount < 0 {
			n.LinkCount = 0
		}
	}
	return nil
}

// calleeName resolves the textual name of a call's target: a direct
// identifier, the final component of an attribute access, or the name
// of a nested call. Anything else cannot be named and fails the build.
func (w *walker) calleeName(call *sitter.Node) (string, error) {
	fn := call.ChildByFieldName("function")
	for fn != nil && fn.Type() == "parenthesized_expression" {
		fn = firstExpression(fn)
	}
	if fn == nil {
		return "", fmt.Errorf("line %d: call without callee: %w", lineOf(call), ErrUnsupported)
	}
	switch fn.Type() {
	case "identifier":
		return w.nodeText(fn), nil
	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		if attr == nil {
			return "", fmt.Errorf("line %d: attribute callee without name: %w", lineOf(fn), ErrUnsupported)
		}
		return w.nodeText(attr), nil
	case "call":
		return w.calleeName(fn)
	case "boolean_operator":
		return "", fmt.Errorf("line %d: boolean operator as callee: %w", lineOf(fn), ErrUnsupported)
	default:
		return "", fmt.Errorf("line %d: callee of kind %s: %w", lineOf(fn), fn.Type(), ErrUnsupported)
	}
}
