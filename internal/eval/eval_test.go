package eval

import (
	"testing"

	"github.com/shapelang/shapec/internal/parser"
	"github.com/shapelang/shapec/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *value.Value {
	t.Helper()
	v, err := parser.New(src).Parse()
	require.NoError(t, err)
	return v
}

func freshMenv() *value.Value {
	return NewRootMenv(DefaultEnv())
}

func TestEvalArithmeticIsConstantFolded(t *testing.T) {
	v := Eval(mustParse(t, "(+ 1 2)"), freshMenv())
	require.False(t, value.IsCode(v))
	assert.Equal(t, int64(3), v.Int)
}

func TestEvalIfConcreteTakesBranchAtCompileTime(t *testing.T) {
	v := Eval(mustParse(t, "(if 1 10 20)"), freshMenv())
	require.True(t, value.IsInt(v))
	assert.Equal(t, int64(10), v.Int)

	v2 := Eval(mustParse(t, "(if () 10 20)"), freshMenv())
	assert.Equal(t, int64(20), v2.Int)
}

func TestEvalLetAllConcreteFoldsAway(t *testing.T) {
	v := Eval(mustParse(t, "(let ((x 1) (y 2)) (+ x y))"), freshMenv())
	require.False(t, value.IsCode(v))
	assert.Equal(t, int64(3), v.Int)
}

func TestEvalLambdaApplication(t *testing.T) {
	src := "((lambda (x y) (+ x y)) 3 4)"
	v := Eval(mustParse(t, src), freshMenv())
	require.False(t, value.IsCode(v))
	assert.Equal(t, int64(7), v.Int)
}

func TestEvalLetrecSelfRecursion(t *testing.T) {
	src := `(letrec ((sum (lambda (n) (if (= n 0) 0 (+ n (sum (- n 1)))))))
	           (sum 5))`
	v := Eval(mustParse(t, src), freshMenv())
	require.False(t, value.IsCode(v))
	assert.Equal(t, int64(15), v.Int)
}

func TestEvalUnknownVariableResidualizesApplication(t *testing.T) {
	env0 := DefaultEnv()
	env0 = extendWithCode(env0, "n")
	menv := freshMenv().WithEnv(env0)

	v := Eval(mustParse(t, "(+ n 1)"), menv)
	require.True(t, value.IsCode(v))
	assert.Contains(t, v.Str, "add(")
}

func extendWithCode(e *value.Value, name string) *value.Value {
	return value.NewCell(value.NewCell(value.NewSym(name), value.NewCode(name)), e)
}

func TestLiftForcesResidualizationAndIsIdempotent(t *testing.T) {
	v := Eval(mustParse(t, "(lift 5)"), freshMenv())
	require.True(t, value.IsCode(v))
	assert.Equal(t, "mk_int(5)", v.Str)

	v2 := Eval(mustParse(t, "(lift (lift 5))"), freshMenv())
	assert.Equal(t, v.Str, v2.Str)
}

func TestSetMetaReplacesHandlerForScopedBody(t *testing.T) {
	// Replace the literal handler so every literal evaluates to 99
	// instead of itself, but only within set-meta!'s body: (+ 1 2)
	// becomes (+ 99 99).
	src := `(set-meta! 'lit (lambda (exp m) 99) (+ 1 2))`
	v := Eval(mustParse(t, src), freshMenv())
	require.False(t, value.IsCode(v))
	assert.Equal(t, int64(198), v.Int)
}

func TestSetMetaDoesNotLeakPastItsBody(t *testing.T) {
	src := `(+ (set-meta! 'lit (lambda (exp m) 99) 1) 1)`
	v := Eval(mustParse(t, src), freshMenv())
	require.False(t, value.IsCode(v))
	assert.Equal(t, int64(100), v.Int)
}

func TestQuoteReturnsDatumUnevaluated(t *testing.T) {
	v := Eval(mustParse(t, "(quote (a b c))"), freshMenv())
	items := value.ListToSlice(v)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Str)
}

func TestQuasiquoteSubstitutesUnquotedSubexpression(t *testing.T) {
	src := `(let ((x 5)) (quasiquote (a (unquote x) c)))`
	v := Eval(mustParse(t, src), freshMenv())
	items := value.ListToSlice(v)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Str)
	assert.Equal(t, int64(5), items[1].Int)
	assert.Equal(t, "c", items[2].Str)
}

func TestQuasiquoteSplicesUnquoteSplicing(t *testing.T) {
	src := `(let ((xs (quote (1 2 3)))) (quasiquote (a (unquote-splicing xs) b)))`
	v := Eval(mustParse(t, src), freshMenv())
	items := value.ListToSlice(v)
	require.Len(t, items, 5)
	assert.Equal(t, "a", items[0].Str)
	assert.Equal(t, int64(1), items[1].Int)
	assert.Equal(t, int64(2), items[2].Int)
	assert.Equal(t, int64(3), items[3].Int)
	assert.Equal(t, "b", items[4].Str)
}

func TestNestedQuasiquoteLeavesInnerUnquoteUntouched(t *testing.T) {
	src := `(quasiquote (quasiquote (unquote (+ 1 2))))`
	v := Eval(mustParse(t, src), freshMenv())
	require.True(t, value.IsCell(v))
	assert.True(t, value.SymEqStr(v.Car, "quasiquote"))
}

func TestGensymProducesDistinctSymbolsEachCall(t *testing.T) {
	menv := freshMenv()
	a := Eval(mustParse(t, "(gensym)"), menv)
	b := Eval(mustParse(t, "(gensym)"), menv)
	require.True(t, value.IsSym(a))
	require.True(t, value.IsSym(b))
	assert.NotEqual(t, a.Str, b.Str)
}

func TestEvalProgramThreadsTopLevelDefine(t *testing.T) {
	forms := []*value.Value{
		mustParse(t, "(define x 10)"),
		mustParse(t, "(+ x 5)"),
	}
	result, _ := EvalProgram(forms, freshMenv())
	require.False(t, value.IsCode(result))
	assert.Equal(t, int64(15), result.Int)
}
