// Package analysis implements the static memory analyses
// that drive the emitter's choice of deallocation template — escape
// analysis, shape/alias analysis, free-variable/capture analysis,
// back-edge detection on the type graph, and the optional liveness,
// reuse-pairing, and RC-elision passes.
package analysis

import "github.com/shapelang/shapec/internal/value"

// Escape is the escape-class lattice None < Arg < Global.
type Escape int

const (
	EscapeNone Escape = iota
	EscapeArg
	EscapeGlobal
)

func (e Escape) String() string {
	switch e {
	case EscapeNone:
		return "None"
	case EscapeArg:
		return "Arg"
	case EscapeGlobal:
		return "Global"
	default:
		return "?"
	}
}

// EscapeJoin computes the least upper bound; the join is monotone, so
// a single forward pass over a tree-shaped AST reaches fixpoint without
// iteration.
func EscapeJoin(a, b Escape) Escape {
	if a > b {
		return a
	}
	return b
}

// VarInfo is the per-binding record this pass keeps: use count,
// deepest AST depth of use, escape class, capture flag, and whether the
// emitter has already emitted a free for this binding.
type VarInfo struct {
	Name      string
	UseCount  int
	MaxDepth  int
	Escape    Escape
	Captured  bool
	Freed     bool
}

// Context is the escape/usage analysis context.
type Context struct {
	vars map[string]*VarInfo
}

func NewContext() *Context {
	return &Context{vars: make(map[string]*VarInfo)}
}

func (c *Context) info(name string) *VarInfo {
	vi, ok := c.vars[name]
	if !ok {
		vi = &VarInfo{Name: name}
		c.vars[name] = vi
	}
	return vi
}

// Lookup returns the recorded info for a variable, or nil if it was
// never observed by this pass.
func (c *Context) Lookup(name string) *VarInfo {
	return c.vars[name]
}

// JoinEscape raises a variable's escape class; it never lowers it,
// matching the lattice's monotonicity invariant.
func (c *Context) JoinEscape(name string, e Escape) {
	vi := c.info(name)
	vi.Escape = EscapeJoin(vi.Escape, e)
}

func (c *Context) MarkCaptured(name string) {
	c.info(name).Captured = true
}

func (c *Context) Use(name string, depth int) {
	vi := c.info(name)
	vi.UseCount++
	if depth > vi.MaxDepth {
		vi.MaxDepth = depth
	}
}

// Analyze walks expr under the given starting escape class (EscapeNone
// at the top level, EscapeGlobal inside a lambda body or a let whose
// result value leaves the block).
func (c *Context) Analyze(expr *value.Value, depth int, ambient Escape) {
	c.analyze(expr, depth, ambient)
}

func (c *Context) analyze(expr *value.Value, depth int, ambient Escape) {
	if value.IsNil(expr) || expr == nil {
		return
	}
	switch expr.Tag {
	case value.TSym:
		c.Use(expr.Str, depth)
		c.JoinEscape(expr.Str, ambient)
		return
	case value.TCell:
	default:
		return
	}

	op := expr.Car
	args := expr.Cdr

	if value.IsSym(op) {
		switch op.Str {
		case "quote":
			return
		case "lambda":
			// Everything referenced inside a lambda body escapes
			// globally: the closure may be called from anywhere after
			// this point.
			body := args.Cdr.Car
			c.analyze(body, depth+1, EscapeGlobal)
			return
		case "set!":
			target := args.Car
			if value.IsSym(target) {
				c.JoinEscape(target.Str, EscapeGlobal)
				c.Use(target.Str, depth)
			}
			c.analyze(args.Cdr.Car, depth+1, ambient)
			return
		case "let":
			c.analyzeLet(args, depth, ambient, false)
			return
		case "letrec":
			c.analyzeLet(args, depth, ambient, true)
			return
		}
	}

	// Application / other special forms: operator is not an argument
	// position, but every operand joins with Arg unless a stronger
	// ambient class already applies.
	c.analyze(op, depth+1, ambient)
	for value.IsCell(args) {
		argAmbient := EscapeJoin(ambient, EscapeArg)
		c.analyze(args.Car, depth+1, argAmbient)
		args = args.Cdr
	}
}

func (c *Context) analyzeLet(args *value.Value, depth int, ambient Escape, rec bool) {
	bindings := args.Car
	body := args.Cdr.Car

	if rec {
		for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
			sym := cur.Car.Car
			if value.IsSym(sym) {
				c.JoinEscape(sym.Str, EscapeGlobal)
			}
		}
	}

	for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
		valExpr := cur.Car.Cdr.Car
		c.analyze(valExpr, depth+1, ambient)
	}
	c.analyze(body, depth+1, ambient)
}
