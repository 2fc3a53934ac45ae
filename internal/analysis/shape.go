package analysis

import "github.com/shapelang/shapec/internal/value"

// Shape is a point on the Ghiya-Hendren lattice TREE < DAG < CYCLIC,
// the compile-time approximation of a heap object's pointer topology
// used to pick the cheapest deallocation primitive.
type Shape int

const (
	ShapeTree Shape = iota
	ShapeDAG
	ShapeCyclic
)

func (s Shape) String() string {
	switch s {
	case ShapeTree:
		return "TREE"
	case ShapeDAG:
		return "DAG"
	case ShapeCyclic:
		return "CYCLIC"
	default:
		return "UNKNOWN"
	}
}

// ShapeJoin is the lattice join: TREE ⊔ DAG = DAG, DAG ⊔ CYCLIC = CYCLIC.
// Idempotent, commutative, associative.
func ShapeJoin(a, b Shape) Shape {
	if a > b {
		return a
	}
	return b
}

// FreeStrategy names the deallocation template a shape selects (spec
// §4.3's "ship strategy per shape" table). UNKNOWN defaults to dec_ref,
// the conservative choice documented in DESIGN.md's Open Question.
type FreeStrategy string

const (
	FreeTree     FreeStrategy = "free_tree"
	FreeDecRef   FreeStrategy = "dec_ref"
	FreeDeferred FreeStrategy = "deferred_release"
)

func (s Shape) FreeStrategy() FreeStrategy {
	switch s {
	case ShapeTree:
		return FreeTree
	case ShapeDAG:
		return FreeDecRef
	case ShapeCyclic:
		return FreeDeferred
	default:
		return FreeDecRef
	}
}

// AliasGroup identifies a set of variables whose pointees may overlap.
type AliasGroup int

// ShapeInfo is the per-variable record: its shape and alias group.
type ShapeInfo struct {
	Shape Shape
	Group AliasGroup
}

// ShapeContext holds shape and alias-group state for one analysed
// scope.
type ShapeContext struct {
	vars     map[string]*ShapeInfo
	nextGrp  AliasGroup
}

func NewShapeContext() *ShapeContext {
	return &ShapeContext{vars: make(map[string]*ShapeInfo), nextGrp: 1}
}

func (c *ShapeContext) newGroup() AliasGroup {
	g := c.nextGrp
	c.nextGrp++
	return g
}

// Set records (joining, never lowering within a single pass) the shape
// of a variable, assigning it a fresh alias group if unseen.
func (c *ShapeContext) Set(name string, s Shape) {
	if info, ok := c.vars[name]; ok {
		info.Shape = ShapeJoin(info.Shape, s)
		return
	}
	c.vars[name] = &ShapeInfo{Shape: s, Group: c.newGroup()}
}

// SetGroup forces a variable into a specific alias group, used when an
// assignment/alias/re-binding merges two variables' groups.
func (c *ShapeContext) SetGroup(name string, g AliasGroup) {
	info, ok := c.vars[name]
	if !ok {
		c.vars[name] = &ShapeInfo{Group: g}
		return
	}
	info.Group = g
}

// MergeGroups merges b's variables into a's alias group; set! and
// re-binding trigger this alias-group merging.
func (c *ShapeContext) MergeGroups(a, b string) {
	ai, aok := c.vars[a]
	bi, bok := c.vars[b]
	if !aok || !bok {
		return
	}
	target := ai.Group
	for _, info := range c.vars {
		if info.Group == bi.Group {
			info.Group = target
		}
	}
}

func (c *ShapeContext) Lookup(name string) *ShapeInfo {
	return c.vars[name]
}

// MayAlias reports whether two expressions may share a heap region:
// identical symbols always alias; two literals never do; two symbols
// in the same alias group do; anything else is conservatively assumed
// to alias.
func (c *ShapeContext) MayAlias(a, b *value.Value) bool {
	if value.SymEq(a, b) {
		return true
	}
	if isLiteral(a) && isLiteral(b) {
		return false
	}
	if value.IsSym(a) && value.IsSym(b) {
		ai, aok := c.vars[a.Str]
		bi, bok := c.vars[b.Str]
		if aok && bok {
			return ai.Group == bi.Group
		}
	}
	return true
}

func isLiteral(v *value.Value) bool {
	return value.IsInt(v) || value.IsNil(v)
}

// shapeOf looks up the shape of an already-analysed expression,
// defaulting literals to TREE and unanalysed symbols to DAG (the
// "Unknown calls default to DAG" rule applied uniformly to unresolved
// names, per the Open Question resolution in DESIGN.md).
func (c *ShapeContext) shapeOf(expr *value.Value) Shape {
	if expr == nil || value.IsNil(expr) || value.IsInt(expr) {
		return ShapeTree
	}
	if value.IsSym(expr) {
		if info, ok := c.vars[expr.Str]; ok {
			return info.Shape
		}
		return ShapeDAG
	}
	return ShapeDAG
}

// Analyze walks expr and returns its shape, recording bound-variable
// shapes as it goes.
func (c *ShapeContext) Analyze(expr *value.Value) Shape {
	if expr == nil || value.IsNil(expr) || value.IsInt(expr) {
		return ShapeTree
	}
	if value.IsSym(expr) {
		return c.shapeOf(expr)
	}
	if !value.IsCell(expr) {
		return ShapeDAG
	}

	op := expr.Car
	args := expr.Cdr

	if value.IsSym(op) {
		switch op.Str {
		case "lambda":
			return ShapeTree
		case "lift":
			return c.Analyze(args.Car)
		case "cons":
			carArg, cdrArg := args.Car, args.Cdr.Car
			carShape := c.Analyze(carArg)
			cdrShape := c.Analyze(cdrArg)
			if carShape == ShapeTree && cdrShape == ShapeTree && !c.MayAlias(carArg, cdrArg) {
				return ShapeTree
			}
			return ShapeJoin(ShapeDAG, ShapeJoin(carShape, cdrShape))
		case "let":
			bindings, body := args.Car, args.Cdr.Car
			for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
				sym := cur.Car.Car
				valShape := c.Analyze(cur.Car.Cdr.Car)
				if value.IsSym(sym) {
					c.Set(sym.Str, valShape)
				}
			}
			return c.Analyze(body)
		case "letrec":
			bindings, body := args.Car, args.Cdr.Car
			for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
				if sym := cur.Car.Car; value.IsSym(sym) {
					c.Set(sym.Str, ShapeCyclic)
				}
			}
			for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
				sym := cur.Car.Car
				valShape := c.Analyze(cur.Car.Cdr.Car)
				if value.IsSym(sym) {
					c.Set(sym.Str, valShape)
				}
			}
			return c.Analyze(body)
		case "if":
			thenBr := args.Cdr.Car
			var elseBr *value.Value = value.Nil
			if value.IsCell(args.Cdr.Cdr) {
				elseBr = args.Cdr.Cdr.Car
			}
			c.Analyze(args.Car)
			return ShapeJoin(c.Analyze(thenBr), c.Analyze(elseBr))
		case "set!":
			target := args.Car
			if value.IsSym(target) {
				c.Set(target.Str, ShapeCyclic)
				if value.IsSym(args.Cdr.Car) {
					c.MergeGroups(target.Str, args.Cdr.Car.Str)
				}
			}
			c.Analyze(args.Cdr.Car)
			return ShapeCyclic
		}
	}

	c.Analyze(op)
	for cur := args; value.IsCell(cur); cur = cur.Cdr {
		c.Analyze(cur.Car)
	}
	return ShapeDAG
}
