// Package emit implements the CodeExpr builder — emitted C is
// assembled through a small expression builder rather than sprintf
// splicing — and the handful of statement-shaped templates (h_let
// staging, h_if ternary-with-guard) that the evaluator's h_let and h_if
// handlers delegate to once they've decided an expression can't be
// reduced further at compile time.
package emit

import (
	"fmt"
	"strconv"
	"strings"
)

// CodeExpr is an emitted C fragment together with the declarations and
// statements that must run before it to make the expression well
// formed — the pieces a staging rule like h_let needs to hoist out of
// an expression position into a surrounding compound statement.
type CodeExpr struct {
	Decls []string // "Obj *x;" style declarations, emitted once per scope
	Stmts []string // statements that must execute before Expr is valid
	Expr  string    // the C expression text itself
}

// Lit builds a CodeExpr for an integer literal.
func Lit(n int64) CodeExpr {
	return CodeExpr{Expr: "mk_int(" + strconv.FormatInt(n, 10) + ")"}
}

// Ident builds a CodeExpr referencing an already-declared C variable.
func Ident(name string) CodeExpr {
	return CodeExpr{Expr: name}
}

// Raw wraps a pre-built C expression string verbatim (used for
// constants like NIL and for runtime calls assembled elsewhere).
func Raw(expr string) CodeExpr {
	return CodeExpr{Expr: expr}
}

// merge folds the declarations/statements of every operand ahead of
// building a composite expression, preserving left-to-right order.
func merge(parts ...CodeExpr) (decls, stmts []string) {
	for _, p := range parts {
		decls = append(decls, p.Decls...)
		stmts = append(stmts, p.Stmts...)
	}
	return decls, stmts
}

// Call builds fn(args...), threading through every argument's
// hoisted decls/stmts.
func Call(fn string, args ...CodeExpr) CodeExpr {
	decls, stmts := merge(args...)
	exprs := make([]string, len(args))
	for i, a := range args {
		exprs[i] = a.Expr
	}
	return CodeExpr{
		Decls: decls,
		Stmts: stmts,
		Expr:  fn + "(" + strings.Join(exprs, ", ") + ")",
	}
}

// Binop builds "(a OP b)".
func Binop(op string, a, b CodeExpr) CodeExpr {
	decls, stmts := merge(a, b)
	return CodeExpr{Decls: decls, Stmts: stmts, Expr: "(" + a.Expr + " " + op + " " + b.Expr + ")"}
}

// Ternary builds "(cond ? then : els)". When cond is itself anything
// beyond a bare identifier or literal, the h_if handler is expected to
// have already hoisted it into a temporary via WithTemp — Ternary
// itself does no hoisting so it stays usable as a pure expression
// builder in contexts (like reuse-pair guards) that don't want
// statement-level side effects.
func Ternary(cond, then, els CodeExpr) CodeExpr {
	decls, stmts := merge(cond, then, els)
	return CodeExpr{
		Decls: decls,
		Stmts: stmts,
		Expr:  "(" + cond.Expr + " ? " + then.Expr + " : " + els.Expr + ")",
	}
}

// DecRef/IncRef/FreeTree/DeferredRelease build the four refcount
// primitives the runtime header (internal/runtimegen) defines; emitter
// code never inlines their bodies, only calls them, so a shape
// decision only ever changes which one-line call gets emitted.
func DecRef(name string) string        { return fmt.Sprintf("dec_ref(%s);", name) }
func IncRef(name string) string        { return fmt.Sprintf("inc_ref(%s);", name) }
func FreeTree(name string) string      { return fmt.Sprintf("free_tree(%s);", name) }
func DeferredRelease(name string) string { return fmt.Sprintf("deferred_release(%s);", name) }

// WithTemp declares a fresh temporary of the given counter-derived name
// bound to init, returning both the declaration/assignment statement
// pair and a CodeExpr that references it, so a multiply-used or
// side-effecting subexpression is evaluated exactly once.
func WithTemp(counter *int, init CodeExpr) (CodeExpr, CodeExpr) {
	*counter++
	name := fmt.Sprintf("_t%d", *counter)
	decls := append(append([]string{}, init.Decls...), "Obj *"+name+";")
	stmts := append(append([]string{}, init.Stmts...), name+" = "+init.Expr+";")
	return CodeExpr{Decls: decls, Stmts: stmts, Expr: name}, Ident(name)
}

// Block flattens a CodeExpr's decls+stmts into a brace-delimited C
// compound statement whose value is its trailing expression, used
// whenever a staged expression needs statements injected ahead of it
// in a position C syntax doesn't allow mid-expression (GCC statement
// expressions: `({ decls; stmts; expr; })`).
func (c CodeExpr) Block() string {
	var sb strings.Builder
	sb.WriteString("({ ")
	for _, d := range c.Decls {
		sb.WriteString(d)
		sb.WriteString(" ")
	}
	for _, s := range c.Stmts {
		sb.WriteString(s)
		sb.WriteString(" ")
	}
	sb.WriteString(c.Expr)
	sb.WriteString("; })")
	return sb.String()
}

// Flatten collapses decls/stmts into Expr via Block and returns a bare
// expression CodeExpr, used when a fragment must be embedded inside
// another expression that can't see hoisted statements (e.g. as a
// function call argument nested two levels deep).
func (c CodeExpr) Flatten() CodeExpr {
	if len(c.Decls) == 0 && len(c.Stmts) == 0 {
		return c
	}
	return CodeExpr{Expr: c.Block()}
}
