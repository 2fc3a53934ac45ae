package emit

import (
	"testing"

	"github.com/shapelang/shapec/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitLetZeroBindingsEmitsBodyVerbatim(t *testing.T) {
	body := Ident("result")
	got := EmitLet(nil, body, analysis.NewContext())
	assert.Equal(t, "result", got.Expr)
	assert.Empty(t, got.Decls)
	assert.Empty(t, got.Stmts)
}

func TestEmitLetFreesNonCapturedNonEscapingBinding(t *testing.T) {
	escCtx := analysis.NewContext()
	escCtx.JoinEscape("x", analysis.EscapeNone)
	escCtx.Use("x", 0)

	bindings := []LetBinding{{Name: "x", Value: Lit(1), Shape: analysis.ShapeDAG}}
	got := EmitLet(bindings, Ident("result"), escCtx)

	assert.Contains(t, got.Stmts, "dec_ref(x);")
}

func TestEmitLetDoesNotFreeCapturedBinding(t *testing.T) {
	escCtx := analysis.NewContext()
	escCtx.JoinEscape("x", analysis.EscapeNone)
	escCtx.Use("x", 0)
	escCtx.MarkCaptured("x")

	bindings := []LetBinding{{Name: "x", Value: Lit(1), Shape: analysis.ShapeDAG}}
	got := EmitLet(bindings, Ident("result"), escCtx)

	assert.NotContains(t, got.Stmts, "dec_ref(x);")
}

func TestEmitLetDoesNotFreeEscapingBinding(t *testing.T) {
	escCtx := analysis.NewContext()
	escCtx.JoinEscape("x", analysis.EscapeGlobal)

	bindings := []LetBinding{{Name: "x", Value: Lit(1), Shape: analysis.ShapeDAG}}
	got := EmitLet(bindings, Ident("result"), escCtx)

	assert.NotContains(t, got.Stmts, "dec_ref(x);")
}

func TestEmitLetNeverFreesTheResultBinding(t *testing.T) {
	escCtx := analysis.NewContext()
	escCtx.JoinEscape("x", analysis.EscapeNone)
	escCtx.Use("x", 0)

	bindings := []LetBinding{{Name: "x", Value: Lit(1), Shape: analysis.ShapeDAG}}
	got := EmitLet(bindings, Ident("x"), escCtx)

	assert.NotContains(t, got.Stmts, "dec_ref(x);")
}

func TestEmitLetFreesTreeShapedBindingWithFreeTree(t *testing.T) {
	escCtx := analysis.NewContext()
	escCtx.JoinEscape("x", analysis.EscapeNone)
	escCtx.Use("x", 0)

	bindings := []LetBinding{{Name: "x", Value: Lit(1), Shape: analysis.ShapeTree}}
	got := EmitLet(bindings, Ident("result"), escCtx)

	assert.Contains(t, got.Stmts, "free_tree(x);")
	assert.NotContains(t, got.Stmts, "dec_ref(x);")
}

func TestEmitLetFreesCyclicShapedBindingWithDeferredRelease(t *testing.T) {
	escCtx := analysis.NewContext()
	escCtx.JoinEscape("x", analysis.EscapeNone)
	escCtx.Use("x", 0)

	bindings := []LetBinding{{Name: "x", Value: Lit(1), Shape: analysis.ShapeCyclic}}
	got := EmitLet(bindings, Ident("result"), escCtx)

	assert.Contains(t, got.Stmts, "deferred_release(x);")
}

func TestEmitLetFreesBindingsInReverseDeclarationOrder(t *testing.T) {
	escCtx := analysis.NewContext()
	escCtx.JoinEscape("x", analysis.EscapeNone)
	escCtx.Use("x", 0)
	escCtx.JoinEscape("y", analysis.EscapeNone)
	escCtx.Use("y", 0)

	bindings := []LetBinding{
		{Name: "x", Value: Lit(1), Shape: analysis.ShapeDAG},
		{Name: "y", Value: Lit(2), Shape: analysis.ShapeDAG},
	}
	got := EmitLet(bindings, Ident("result"), escCtx)

	xIdx := indexOf(got.Stmts, "dec_ref(x);")
	yIdx := indexOf(got.Stmts, "dec_ref(y);")
	require.GreaterOrEqual(t, xIdx, 0)
	require.GreaterOrEqual(t, yIdx, 0)
	assert.Less(t, yIdx, xIdx, "y was declared after x, so it must free first")
}

func indexOf(stmts []string, s string) int {
	for i, v := range stmts {
		if v == s {
			return i
		}
	}
	return -1
}

func TestEmitIfSimpleConditionIsBareTernary(t *testing.T) {
	got := EmitIf(Ident("c"), Lit(1), Lit(2), analysis.NewContext(), "", new(int))
	assert.Equal(t, "(c ? mk_int(1) : mk_int(2))", got.Expr)
}

func TestEmitIfComplexConditionHoistsTemp(t *testing.T) {
	complexCond := Call("gt", Ident("a"), Ident("b"))
	counter := 0
	got := EmitIf(complexCond, Lit(1), Lit(2), analysis.NewContext(), "", &counter)
	assert.Contains(t, got.Expr, "_t1")
}
