// Package eval implements the stage-polymorphic evaluator. A single
// Eval function both interprets first-class Lisp values and, when an
// operand isn't known at compile time, synthesizes a residual C
// expression (a TCode value) describing how to compute it at run time
// — the staged interpreter doubles as the code generator.
package eval

import "github.com/shapelang/shapec/internal/value"

// NewRootMenv builds the level-0 meta-environment: the given variable
// environment plus the five default native handlers, no parent.
func NewRootMenv(env *value.Value) *value.Value {
	var handlers [5]*value.Handler
	handlers[value.HLit] = &value.Handler{Native: hLit}
	handlers[value.HVar] = &value.Handler{Native: hVar}
	handlers[value.HApp] = &value.Handler{Native: hApp}
	handlers[value.HIf] = &value.Handler{Native: hIf}
	handlers[value.HLet] = &value.Handler{Native: hLet}
	return value.NewMenv(env, nil, 0, handlers)
}

// EM returns the parent meta-level of m, creating one lazily the first
// time it is reached: the new level shares m's default native handlers
// (none may have been replaced by set-meta! at the new level yet) and
// starts at level+1 over m's own environment.
func EM(m *value.Value) *value.Value {
	if m == nil || m.Tag != value.TMenv {
		return m
	}
	if m.MenvParent != nil {
		return m.MenvParent
	}
	var handlers [5]*value.Handler
	handlers[value.HLit] = &value.Handler{Native: hLit}
	handlers[value.HVar] = &value.Handler{Native: hVar}
	handlers[value.HApp] = &value.Handler{Native: hApp}
	handlers[value.HIf] = &value.Handler{Native: hIf}
	handlers[value.HLet] = &value.Handler{Native: hLet}
	parent := value.NewMenv(m.MenvEnv, nil, m.MenvLevel+1, handlers)
	m.MenvParent = parent
	return parent
}

// SetMeta installs a user closure as the handler for the named slot,
// returning the new menv; the copy-on-write semantics of
// value.Value.SetHandler mean any menv that still references the old
// handler table (an enclosing dynamic scope) is unaffected.
func SetMeta(m *value.Value, slot string, closure *value.Value) (*value.Value, bool) {
	idx, ok := value.HandlerIndex(slot)
	if !ok {
		return m, false
	}
	return m.SetHandler(idx, &value.Handler{Closure: closure}), true
}

// GetMeta returns the user closure currently installed at slot, or
// value.Nil if the slot is still at its native default.
func GetMeta(m *value.Value, slot string) *value.Value {
	idx, ok := value.HandlerIndex(slot)
	if !ok {
		return value.Nil
	}
	h := m.GetHandler(idx)
	if h == nil || h.Closure == nil {
		return value.Nil
	}
	return h.Closure
}

// invoke runs whichever handler currently occupies idx: the native Go
// function, or — if set-meta! replaced it — the user closure, called
// with the expression datum and the current menv as its two arguments.
func invoke(m *value.Value, idx int, exp *value.Value) *value.Value {
	h := m.GetHandler(idx)
	if h == nil {
		return value.Nil
	}
	if h.Closure != nil {
		// A replaced handler's own body runs one reflective level up:
		// otherwise a handler whose body contains the very construct it
		// intercepts (e.g. a replaced h_lit whose body is itself a
		// literal) would recurse into itself forever.
		return Apply(h.Closure, value.List2(exp, m), EM(m))
	}
	return h.Native(exp, m)
}
