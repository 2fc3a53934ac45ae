package analysis

import (
	"github.com/shapelang/shapec/internal/diag"
)

// FieldKind classifies a field edge in the type/ownership graph as
// Strong (the default owner of its pointee) or Weak (back-reference
// that must not be followed by the recursive free).
type FieldKind int

const (
	Strong FieldKind = iota
	Weak
)

// Field is one edge from a type to another in the ownership graph.
type Field struct {
	Name string
	To   string
	Kind FieldKind
}

// TypeRegistry holds the compiler's user-defined record types and the
// field graph back-edge detection runs over.
type TypeRegistry struct {
	fields map[string][]*Field
	order  []string
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{fields: make(map[string][]*Field)}
}

// Declare registers typ if unseen, preserving first-seen order so
// back-edge reports are deterministic.
func (r *TypeRegistry) Declare(typ string) {
	if _, ok := r.fields[typ]; !ok {
		r.fields[typ] = nil
		r.order = append(r.order, typ)
	}
}

// AddField adds a Strong edge from 'from' to 'to' via fieldName. Fields
// start Strong; back-edge detection reclassifies the ones that close a
// cycle as Weak.
func (r *TypeRegistry) AddField(from, fieldName, to string) {
	r.Declare(from)
	r.Declare(to)
	r.fields[from] = append(r.fields[from], &Field{Name: fieldName, To: to, Kind: Strong})
}

func (r *TypeRegistry) Fields(typ string) []*Field {
	return r.fields[typ]
}

// DefaultDepthCap bounds the DFS used for back-edge detection: a graph
// deeper than this degrades gracefully rather than aborting
// compilation.
const DefaultDepthCap = 256

type color int

const (
	white color = iota
	gray
	black
)

// BackEdgeResult reports which fields were reclassified Weak and
// whether the DFS had to stop early because of the depth cap.
type BackEdgeResult struct {
	WeakEdges     []*Field
	CapExceeded   bool
}

// DetectBackEdges runs a DFS with white/gray/black coloring over the
// field graph, reclassifying every edge that reaches a gray (currently
// on the DFS stack) node as Weak — the standard cycle-breaking rule
// for picking a spanning-tree ownership direction out of an arbitrary
// reference graph. A path longer than depthCap stops that branch and
// sets CapExceeded, logging a warning rather than aborting.
func (r *TypeRegistry) DetectBackEdges(depthCap int) *BackEdgeResult {
	if depthCap <= 0 {
		depthCap = DefaultDepthCap
	}
	colors := make(map[string]color, len(r.order))
	for _, t := range r.order {
		colors[t] = white
	}
	result := &BackEdgeResult{}

	var visit func(typ string, depth int)
	visit = func(typ string, depth int) {
		if depth > depthCap {
			result.CapExceeded = true
			diag.Log.WithField("component", "typegraph").
				Warnf("back-edge DFS depth cap (%d) exceeded at type %q; remaining edges left Strong", depthCap, typ)
			return
		}
		colors[typ] = gray
		for _, f := range r.fields[typ] {
			switch colors[f.To] {
			case gray:
				f.Kind = Weak
				result.WeakEdges = append(result.WeakEdges, f)
				diag.Log.WithField("component", "typegraph").
					Infof("AUTO-WEAK: %s.%s", typ, f.Name)
			case white:
				visit(f.To, depth+1)
			case black:
				// forward/cross edge into an already-finished subtree:
				// no cycle introduced, stays Strong.
			}
		}
		colors[typ] = black
	}

	for _, t := range r.order {
		if colors[t] == white {
			visit(t, 0)
		}
	}
	return result
}
