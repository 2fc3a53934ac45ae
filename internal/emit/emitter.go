package emit

import "github.com/shapelang/shapec/internal/analysis"

// LetBinding is one (name value) pair the h_let handler has already
// reduced to a CodeExpr for its bound value (or left as a concrete
// literal wrapped in Lit/Raw — the handler decides that, not this
// package), tagged with the shape the binding's value analyzed to so
// EmitLet can pick its freer without re-deriving it.
type LetBinding struct {
	Name  string
	Value CodeExpr
	Shape analysis.Shape
}

// EmitLet is the h_let staging rule: declare every binding, assign it
// in order, splice in the body, and free exactly the bindings that are
// unused-after-body, not captured by an escaping closure, and not
// themselves escaping globally — in reverse declaration order, so the
// innermost binding frees first, matching stack discipline, and with
// the freer picked per binding by its shape (TREE → free_tree, DAG →
// dec_ref, CYCLIC → deferred_release). Zero bindings degrades to the
// body verbatim, since the loops below then simply emit nothing.
func EmitLet(bindings []LetBinding, body CodeExpr, escCtx *analysis.Context) CodeExpr {
	var decls, stmts []string

	for _, b := range bindings {
		decls = append(decls, "Obj *"+b.Name+";")
		decls = append(decls, b.Value.Decls...)
		stmts = append(stmts, b.Value.Stmts...)
		stmts = append(stmts, b.Name+" = "+b.Value.Expr+";")
	}

	decls = append(decls, body.Decls...)
	stmts = append(stmts, body.Stmts...)

	var frees []string
	for i := len(bindings) - 1; i >= 0; i-- {
		b := bindings[i]
		if !shouldFree(b.Name, body.Expr, escCtx) {
			continue
		}
		frees = append(frees, freeCall(b.Name, b.Shape))
	}
	if len(frees) == 0 {
		return CodeExpr{Decls: decls, Stmts: stmts, Expr: body.Expr}
	}

	// The body's value is computed into a temporary before any free runs.
	decls = append(decls, "Obj *_let_result;")
	stmts = append(stmts, "_let_result = "+body.Expr+";")
	stmts = append(stmts, frees...)
	return CodeExpr{Decls: decls, Stmts: stmts, Expr: "_let_result"}
}

// freeCall dispatches a binding's shape to the matching runtime freer,
// the live wiring of the shape lattice's "ship strategy per shape"
// table into the h_let staging path.
func freeCall(name string, shape analysis.Shape) string {
	switch shape.FreeStrategy() {
	case analysis.FreeTree:
		return FreeTree(name)
	case analysis.FreeDeferred:
		return DeferredRelease(name)
	default:
		return DecRef(name)
	}
}

// shouldFree implements "frees = bindings − captured − escaped − unused":
// a binding with no recorded VarInfo was never referenced by the
// analysis pass (unused); Captured means some lambda in the body closed
// over it, so ownership transferred; Escape == Global means the value
// leaves this scope. A binding that only escapes as a call argument
// (Arg) is still freed. The body's own result expression is never
// freed out from under the return value.
func shouldFree(name, resultExpr string, escCtx *analysis.Context) bool {
	if name == resultExpr {
		return false
	}
	if escCtx == nil {
		return false
	}
	info := escCtx.Lookup(name)
	if info == nil {
		return false
	}
	if info.Captured {
		return false
	}
	if info.Escape == analysis.EscapeGlobal {
		return false
	}
	return true
}

// EmitIf builds h_if's ternary, hoisting the condition into a
// temporary first whenever it is anything beyond a bare identifier.
// When condName names a binding that shouldFree allows to be released,
// the hoisted temporary gets a dec_ref right after the branch
// selection, once the scrutinee itself is no longer needed; a hoisted
// condition without such a condName gets no dec_ref.
func EmitIf(cond, then, els CodeExpr, escCtx *analysis.Context, condName string, counter *int) CodeExpr {
	simple := len(cond.Decls) == 0 && len(cond.Stmts) == 0 && cond.Expr != ""
	for _, r := range cond.Expr {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			simple = false
			break
		}
	}
	if simple {
		return Ternary(cond, then, els)
	}

	temp, ref := WithTemp(counter, cond)
	decls := temp.Decls
	stmts := temp.Stmts

	result := Ternary(ref, then, els).Flatten()

	if condName != "" && shouldFree(condName, result.Expr, escCtx) {
		sel, selRef := WithTemp(counter, result)
		sel.Stmts = append(sel.Stmts, DecRef(ref.Expr))
		sel.Expr = selRef.Expr
		result = sel.Flatten()
	}

	return CodeExpr{Decls: decls, Stmts: stmts, Expr: result.Expr}
}
