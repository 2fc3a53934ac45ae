package eval

import (
	"fmt"
	"sync/atomic"

	"github.com/shapelang/shapec/internal/analysis"
	"github.com/shapelang/shapec/internal/diag"
	"github.com/shapelang/shapec/internal/emit"
	"github.com/shapelang/shapec/internal/env"
	"github.com/shapelang/shapec/internal/value"
)

// gensymCounter backs the gensym special form. It is the one piece of
// package-level mutable state in the evaluator; unlike the arena or
// type registry it carries no compilation semantics (two gensym'd
// names never need to compare equal across separate compilations), so
// threading it through the Compiler aggregate would only add ceremony
// without changing behavior.
var gensymCounter int64

// Eval is the stage-polymorphic entry point: the same
// recursive walk both interprets expr when every subexpression it
// touches is known at compile time and, the moment it touches a
// residual (TCode) value, starts synthesizing C instead. Nothing
// upstream of this function needs to know which mode it's in — that's
// the point of keeping Eval and Apply single-path instead of branching
// into an "interpreter" and a separate "code generator."
func Eval(expr, menv *value.Value) *value.Value {
	if expr == nil {
		return value.Nil
	}
	switch expr.Tag {
	case value.TInt, value.TNil, value.TCode:
		return invoke(menv, value.HLit, expr)
	case value.TSym:
		return invoke(menv, value.HVar, expr)
	case value.TCell:
		return evalCell(expr, menv)
	default:
		// Already-reduced non-atoms (lambdas, prims, menvs, etc.) passed
		// back through Eval, e.g. as a quoted datum, evaluate to
		// themselves.
		return expr
	}
}

func evalCell(expr, menv *value.Value) *value.Value {
	op := expr.Car
	args := expr.Cdr

	if value.IsSym(op) {
		switch op.Str {
		case "quote":
			return args.Car
		case "quasiquote":
			return evalQuasiquote(args.Car, menv, 1)
		case "gensym":
			return value.NewSym(fmt.Sprintf("g$%d", atomic.AddInt64(&gensymCounter, 1)))
		case "if":
			return invoke(menv, value.HIf, expr)
		case "let":
			return invoke(menv, value.HLet, expr)
		case "letrec":
			return evalLetrec(args, menv)
		case "lambda":
			return value.NewLambda(args.Car, args.Cdr.Car, menv.MenvEnv)
		case "named-lambda":
			self := args.Car
			return value.NewRecLambda(self, args.Cdr.Car, args.Cdr.Cdr.Car, menv.MenvEnv)
		case "lift":
			return evalLift(args.Car, menv)
		case "set-meta!":
			return evalSetMeta(args, menv)
		case "get-meta":
			return GetMeta(menv, slotNameOf(args.Car))
		case "EM":
			return Eval(args.Car, EM(menv))
		case "and":
			return evalAnd(args, menv)
		case "or":
			return evalOr(args, menv)
		case "scan":
			return evalScan(args, menv)
		case "define":
			return evalDefine(args, menv, nil)
		case "set!":
			return evalSet(args, menv)
		}
	}

	return invoke(menv, value.HApp, expr)
}

// --- native handlers for the five replaceable slots ---

func hLit(exp, menv *value.Value) *value.Value {
	return exp
}

func hVar(exp, menv *value.Value) *value.Value {
	v := env.Lookup(menv.MenvEnv, exp)
	if v == nil {
		diag.Report("eval", diag.New(diag.KindUnbound, "unbound variable %q", exp.Str))
		return value.Nil
	}
	if env.IsUninitialized(v) {
		diag.Report("eval", diag.New(diag.KindUninitialized, "read of uninitialized letrec binding %q", exp.Str))
		return value.Nil
	}
	return v
}

func hApp(exp, menv *value.Value) *value.Value {
	opVal := Eval(exp.Car, menv)
	var argVals []*value.Value
	for cur := exp.Cdr; value.IsCell(cur); cur = cur.Cdr {
		argVals = append(argVals, Eval(cur.Car, menv))
	}
	return Apply(opVal, value.SliceToList(argVals), menv)
}

func hIf(exp, menv *value.Value) *value.Value {
	args := exp.Cdr
	condExpr := args.Car
	thenExpr := args.Cdr.Car
	elseExpr := value.Nil
	if value.IsCell(args.Cdr.Cdr) {
		elseExpr = args.Cdr.Cdr.Car
	}

	condVal := Eval(condExpr, menv)
	if !value.IsCode(condVal) {
		if truthy(condVal) {
			return Eval(thenExpr, menv)
		}
		return Eval(elseExpr, menv)
	}

	thenVal := Eval(thenExpr, menv)
	elseVal := Eval(elseExpr, menv)

	escCtx := analysis.NewContext()
	escCtx.Analyze(condExpr, 0, analysis.EscapeNone)

	counter := 0
	condName := ""
	if value.IsSym(condExpr) {
		condName = condExpr.Str
	}
	result := emit.EmitIf(toCode(condVal), toCode(thenVal), toCode(elseVal), escCtx, condName, &counter)
	return value.NewCode(result.Flatten().Expr)
}

func hLet(exp, menv *value.Value) *value.Value {
	args := exp.Cdr
	bindings := args.Car
	body := args.Cdr.Car

	escCtx := analysis.NewContext()
	escCtx.Analyze(body, 0, analysis.EscapeNone)

	bound := map[string]bool{}
	for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
		if sym := cur.Car.Car; value.IsSym(sym) {
			bound[sym.Str] = true
		}
	}
	captureCtx := analysis.NewCaptureContext()
	captureCtx.Analyze(body, bound)
	for name := range captureCtx.AllFree() {
		escCtx.MarkCaptured(name)
	}

	shapeCtx := analysis.NewShapeContext()
	shapeCtx.Analyze(exp)

	newEnv := menv.MenvEnv
	var codeBindings []emit.LetBinding
	allConcreteSoFar := true

	for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
		sym := cur.Car.Car
		valExpr := cur.Car.Cdr.Car
		v := Eval(valExpr, menv.WithEnv(newEnv))
		if value.IsCode(v) {
			allConcreteSoFar = false
			newEnv = env.Extend(newEnv, sym, value.NewCode(sym.Str))
			shape := analysis.ShapeDAG
			if info := shapeCtx.Lookup(sym.Str); info != nil {
				shape = info.Shape
			}
			codeBindings = append(codeBindings, emit.LetBinding{Name: sym.Str, Value: toCode(v), Shape: shape})
		} else {
			newEnv = env.Extend(newEnv, sym, v)
		}
	}

	bodyMenv := menv.WithEnv(newEnv)
	bodyResult := Eval(body, bodyMenv)

	if allConcreteSoFar && !value.IsCode(bodyResult) {
		return bodyResult
	}

	result := emit.EmitLet(codeBindings, toCode(bodyResult), escCtx)
	return value.NewCode(result.Flatten().Expr)
}

// --- direct special forms (not replaceable via set-meta!) ---

func evalLetrec(args, menv *value.Value) *value.Value {
	bindings := args.Car
	body := args.Cdr.Car

	newEnv := menv.MenvEnv
	for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
		sym := cur.Car.Car
		newEnv = env.Extend(newEnv, sym, env.Uninitialized)
	}
	innerMenv := menv.WithEnv(newEnv)
	for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
		sym := cur.Car.Car
		valExpr := cur.Car.Cdr.Car
		v := Eval(valExpr, innerMenv)
		env.Set(newEnv, sym, v)
	}
	return Eval(body, innerMenv)
}

func evalLift(expr, menv *value.Value) *value.Value {
	v := Eval(expr, menv)
	if value.IsCode(v) {
		// (lift (lift e)) ≡ (lift e): already residual, forcing again is
		// a no-op.
		return v
	}
	return value.NewCode(toCode(v).Expr)
}

// evalQuasiquote rebuilds expr as a literal structure, descending into
// nested quasiquote/unquote pairs by tracking depth the way any
// Scheme's reader macro does: an (unquote x) at depth 1 evaluates x
// under the surrounding menv; one nested inside an inner quasiquote
// only decrements the depth, so (quasiquote (quasiquote (unquote x)))
// leaves the unquote untouched for the inner quasiquote's own later
// expansion.
func evalQuasiquote(expr, menv *value.Value, depth int) *value.Value {
	if !value.IsCell(expr) {
		return expr
	}
	if value.SymEqStr(expr.Car, "unquote") {
		if depth == 1 {
			return Eval(expr.Cdr.Car, menv)
		}
		return value.List2(expr.Car, evalQuasiquote(expr.Cdr.Car, menv, depth-1))
	}
	if value.SymEqStr(expr.Car, "quasiquote") {
		return value.List2(expr.Car, evalQuasiquote(expr.Cdr.Car, menv, depth+1))
	}
	if value.IsCell(expr.Car) && value.SymEqStr(expr.Car.Car, "unquote-splicing") && depth == 1 {
		spliced := Eval(expr.Car.Cdr.Car, menv)
		rest := evalQuasiquote(expr.Cdr, menv, depth)
		return appendList(spliced, rest)
	}
	return value.NewCell(evalQuasiquote(expr.Car, menv, depth), evalQuasiquote(expr.Cdr, menv, depth))
}

// appendList splices head (a proper list) onto the front of tail,
// sharing tail's cells the way `append` does when it doesn't own the
// copied cells' tail either.
func appendList(head, tail *value.Value) *value.Value {
	if !value.IsCell(head) {
		return tail
	}
	items := value.ListToSlice(head)
	result := tail
	for i := len(items) - 1; i >= 0; i-- {
		result = value.NewCell(items[i], result)
	}
	return result
}

func slotNameOf(v *value.Value) string {
	if value.IsCell(v) && value.SymEqStr(v.Car, "quote") {
		v = v.Cdr.Car
	}
	if value.IsSym(v) {
		return v.Str
	}
	return ""
}

func evalSetMeta(args, menv *value.Value) *value.Value {
	slot := slotNameOf(args.Car)
	valueExpr := args.Cdr.Car
	bodyExpr := args.Cdr.Cdr.Car

	closure := Eval(valueExpr, menv)
	newMenv, ok := SetMeta(menv, slot, closure)
	if !ok {
		diag.Report("eval", diag.New(diag.KindInternal, "set-meta!: unknown handler slot %q", slot))
		return Eval(bodyExpr, menv)
	}
	return Eval(bodyExpr, newMenv)
}

func evalAnd(args, menv *value.Value) *value.Value {
	if !value.IsCell(args) {
		return value.NewInt(1)
	}
	var vals []*value.Value
	for cur := args; value.IsCell(cur); cur = cur.Cdr {
		v := Eval(cur.Car, menv)
		vals = append(vals, v)
		if !value.IsCode(v) && !truthy(v) {
			return v
		}
	}
	if !anyCode(vals) {
		return vals[len(vals)-1]
	}
	return foldTernary(vals, menv, false)
}

func evalOr(args, menv *value.Value) *value.Value {
	if !value.IsCell(args) {
		return value.Nil
	}
	var vals []*value.Value
	for cur := args; value.IsCell(cur); cur = cur.Cdr {
		v := Eval(cur.Car, menv)
		vals = append(vals, v)
		if !value.IsCode(v) && truthy(v) {
			return v
		}
	}
	if !anyCode(vals) {
		return value.Nil
	}
	return foldTernary(vals, menv, true)
}

func anyCode(vals []*value.Value) bool {
	for _, v := range vals {
		if value.IsCode(v) {
			return true
		}
	}
	return false
}

// foldTernary approximates short-circuit and/or once any operand is
// residual: every remaining operand is known to run, so the emitted
// form is simply the right-fold of ternaries over the Code values
// (c ? rest : c for "and", c ? c : rest for "or"),
// correctness-preserving but not short-circuiting at run time — the
// honest C-codegen rendition of "and"/"or" once compile time can't
// decide the branch itself.
func foldTernary(vals []*value.Value, menv *value.Value, isOr bool) *value.Value {
	result := toCode(vals[len(vals)-1])
	for i := len(vals) - 2; i >= 0; i-- {
		c := toCode(vals[i])
		if isOr {
			result = emit.Ternary(c, c, result).Flatten()
		} else {
			result = emit.Ternary(c, result, c).Flatten()
		}
	}
	return value.NewCode(result.Expr)
}

func evalScan(args, menv *value.Value) *value.Value {
	fnExpr := args.Car
	initExpr := args.Cdr.Car
	listExpr := args.Cdr.Cdr.Car

	fnVal := Eval(fnExpr, menv)
	acc := Eval(initExpr, menv)
	lst := Eval(listExpr, menv)

	if value.IsCode(fnVal) || value.IsCode(lst) {
		diag.Report("eval", diag.New(diag.KindInternal, "scan: requires a compile-time-known function and list"))
		return value.Nil
	}

	for cur := lst; value.IsCell(cur); cur = cur.Cdr {
		acc = Apply(fnVal, value.List2(acc, cur.Car), menv)
	}
	return acc
}

func evalDefine(args, menv *value.Value, out **value.Value) *value.Value {
	sym := args.Car
	valExpr := args.Cdr.Car
	v := Eval(valExpr, menv)
	if env.Set(menv.MenvEnv, sym, v) {
		return v
	}
	newEnv := env.Extend(menv.MenvEnv, sym, v)
	if out != nil {
		*out = newEnv
	} else {
		// Nested define outside EvalProgram's top-level sequencing: the
		// new binding is visible to this call's own menv copy but can't
		// be threaded back to the caller's, since Eval returns only a
		// Value. Top-level programs should go through EvalProgram.
		menv.MenvEnv = newEnv
	}
	return v
}

func evalSet(args, menv *value.Value) *value.Value {
	sym := args.Car
	v := Eval(args.Cdr.Car, menv)
	if !env.Set(menv.MenvEnv, sym, v) {
		diag.Report("eval", diag.New(diag.KindUnbound, "set!: unbound variable %q", sym.Str))
	}
	return v
}

// EvalProgram threads a sequence of top-level forms through one menv,
// so that (define ...) at the top level is visible to every form after
// it — the one place the evaluator needs a caller-visible environment
// mutation rather than purely nested scoping.
func EvalProgram(forms []*value.Value, menv *value.Value) (*value.Value, *value.Value) {
	result := value.Nil
	for _, f := range forms {
		if value.IsCell(f) && value.SymEqStr(f.Car, "define") {
			var newEnv *value.Value
			result = evalDefine(f.Cdr, menv, &newEnv)
			if newEnv != nil {
				menv = menv.WithEnv(newEnv)
			}
			continue
		}
		result = Eval(f, menv)
	}
	return result, menv
}

// --- Apply: the single call-site for both lambda and primitive
// application, concrete or staged. ---

func Apply(fn, args, menv *value.Value) *value.Value {
	if fn == nil {
		diag.Report("eval", diag.New(diag.KindInternal, "apply: nil operator"))
		return value.Nil
	}
	switch fn.Tag {
	case value.TLambda:
		return applyLambda(fn, args, menv)
	case value.TPrim:
		return applyPrim(fn, args, menv)
	case value.TCont:
		first := value.Nil
		if value.IsCell(args) {
			first = args.Car
		}
		return fn.ContFn(first)
	default:
		diag.Report("eval", diag.New(diag.KindArity, "attempt to call a non-function value of kind %s", fn.Tag))
		return value.Nil
	}
}

func applyLambda(fn, args, menv *value.Value) *value.Value {
	newEnv := fn.Env
	if fn.SelfName != nil {
		newEnv = env.Extend(newEnv, fn.SelfName, fn)
	}
	p, a := fn.Params, args
	for value.IsCell(p) {
		if !value.IsCell(a) {
			diag.Report("eval", diag.New(diag.KindArity, "too few arguments to lambda"))
			newEnv = env.Extend(newEnv, p.Car, value.Nil)
		} else {
			newEnv = env.Extend(newEnv, p.Car, a.Car)
			a = a.Cdr
		}
		p = p.Cdr
	}
	bodyMenv := menv.WithEnv(newEnv)
	return Eval(fn.Body, bodyMenv)
}

func applyPrim(fn, args, menv *value.Value) *value.Value {
	argSlice := value.ListToSlice(args)
	if allConcrete(argSlice) {
		return fn.Prim(args, menv)
	}
	codeArgs := make([]emit.CodeExpr, len(argSlice))
	for i, a := range argSlice {
		codeArgs[i] = toCode(a)
	}
	result := emit.Call(fn.Str, codeArgs...).Flatten()
	return value.NewCode(result.Expr)
}

func allConcrete(vals []*value.Value) bool {
	for _, v := range vals {
		if value.IsCode(v) {
			return false
		}
	}
	return true
}

func truthy(v *value.Value) bool {
	return !value.IsNil(v)
}

// toCode lowers a concrete Value into the CodeExpr the emitter needs to
// splice it into a residual C expression — the inverse of hLit: a known
// value being spliced into code that, overall, can't be fully reduced.
func toCode(v *value.Value) emit.CodeExpr {
	if v == nil || value.IsNil(v) {
		return emit.Raw("NIL")
	}
	switch v.Tag {
	case value.TCode:
		return emit.Raw(v.Str)
	case value.TInt:
		return emit.Lit(v.Int)
	case value.TSym:
		return emit.Raw(fmt.Sprintf("mk_sym(%q)", v.Str))
	case value.TCell:
		return emit.Call("mk_pair", toCode(v.Car), toCode(v.Cdr))
	default:
		// Lambdas, menvs, and the other optional extensions have no
		// defined C representation in this codegen; a residual reference
		// to one is an internal-invariant condition, not a user error.
		diag.Report("eval", diag.New(diag.KindInternal, "no C representation for a residual value of kind %s", v.Tag))
		return emit.Raw("NIL")
	}
}
