// Package value defines the tagged Value union: atoms, pairs,
// closures, primitives, meta-environments, and code fragments, plus
// the optional extensions (continuations, channels, processes, boxes,
// errors, user-type instances) a complete interpreter carries
// alongside a core evaluator.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag discriminates the union. Nil is a distinct, singleton tag rather
// than a nil *Value, so that Nil compares equal only to itself; IsNil
// also reports true for a nil pointer.
type Tag int

const (
	TInt Tag = iota
	TSym
	TCell
	TNil
	TPrim
	TLambda
	TCode
	TMenv
	// Optional extensions, out of the analysed core but kept alive by
	// the standalone internal/concurrency module and the diagnostics
	// surface (TError).
	TCont
	TChan
	TProcess
	TBox
	TError
	TUserType
)

func (t Tag) String() string {
	switch t {
	case TInt:
		return "INT"
	case TSym:
		return "SYM"
	case TCell:
		return "CELL"
	case TNil:
		return "NIL"
	case TPrim:
		return "PRIM"
	case TLambda:
		return "LAMBDA"
	case TCode:
		return "CODE"
	case TMenv:
		return "MENV"
	case TCont:
		return "CONT"
	case TChan:
		return "CHAN"
	case TProcess:
		return "PROCESS"
	case TBox:
		return "BOX"
	case TError:
		return "ERROR"
	case TUserType:
		return "USERTYPE"
	default:
		return fmt.Sprintf("TAG(%d)", int(t))
	}
}

// PrimFn is the signature of a built-in primitive.
type PrimFn func(args *Value, menv *Value) *Value

// HandlerFn is the signature of a native handler slot.
type HandlerFn func(exp *Value, menv *Value) *Value

// Handler slot indices: literal, variable, application, conditional,
// let. Lambda, lift, EM, and scan are handled directly by Eval, not
// through a replaceable slot.
const (
	HLit = iota
	HVar
	HApp
	HIf
	HLet
	handlerCount
)

var handlerNames = map[string]int{
	"lit": HLit,
	"var": HVar,
	"app": HApp,
	"if":  HIf,
	"let": HLet,
}

// HandlerIndex resolves a set-meta!/get-meta key to a slot index.
func HandlerIndex(name string) (int, bool) {
	idx, ok := handlerNames[name]
	return idx, ok
}

// Handler wraps a handler slot: either a native Go function (the
// default) or a user closure installed by set-meta!.
type Handler struct {
	Native  HandlerFn
	Closure *Value
}

// Value is the tagged union. Only the fields relevant to Tag are
// meaningful; one struct-of-everything keeps pair/list walking
// allocation-free in the common path at the cost of a larger struct —
// the tradeoff this whole system is built to amortize against emitted
// C allocation, not Go's.
type Value struct {
	Tag Tag

	Int int64  // TInt
	Str string // TSym, TCode, TError, TUserType (type name)

	Car, Cdr *Value // TCell

	Prim PrimFn // TPrim

	Params, Body, Env *Value // TLambda: formals, body AST, captured env
	SelfName          *Value // TLambda: non-nil for a self-recursive binding

	// TMenv
	MenvEnv      *Value
	MenvParent   *Value
	MenvLevel    int
	MenvHandlers [handlerCount]*Handler

	BoxValue *Value // TBox

	ContFn func(*Value) *Value // TCont

	Chan *ChanHandle // TChan, see ChanHandle below

	ProcState  int    // TProcess
	ProcResult *Value // TProcess

	UserFields     map[string]*Value // TUserType
	UserFieldOrder []string          // TUserType
}

// ChanHandle is an opaque channel handle for the TChan variant, defined
// here so the core Value union can name the field without importing
// another package; internal/concurrency's Channel does not use it.
type ChanHandle struct {
	Send, Recv interface{}
	Cap        int
}

// Nil is the unique Nil value.
var Nil = &Value{Tag: TNil}

func NewInt(i int64) *Value        { return &Value{Tag: TInt, Int: i} }
func NewSym(s string) *Value       { return &Value{Tag: TSym, Str: s} }
func NewCell(car, cdr *Value) *Value { return &Value{Tag: TCell, Car: car, Cdr: cdr} }
func NewCode(s string) *Value      { return &Value{Tag: TCode, Str: s} }
func NewPrim(fn PrimFn) *Value     { return &Value{Tag: TPrim, Prim: fn} }
func NewError(msg string) *Value   { return &Value{Tag: TError, Str: msg} }
func NewBox(v *Value) *Value       { return &Value{Tag: TBox, BoxValue: v} }

func NewLambda(params, body, env *Value) *Value {
	return &Value{Tag: TLambda, Params: params, Body: body, Env: env}
}

func NewRecLambda(self, params, body, env *Value) *Value {
	return &Value{Tag: TLambda, SelfName: self, Params: params, Body: body, Env: env}
}

func NewCont(fn func(*Value) *Value) *Value {
	return &Value{Tag: TCont, ContFn: fn}
}

func NewUserType(name string, fields map[string]*Value, order []string) *Value {
	return &Value{Tag: TUserType, Str: name, UserFields: fields, UserFieldOrder: order}
}

// NewMenv builds a meta-environment. handlers must already be a copy
// (callers that want to share a base table call CopyHandlers first) so
// that SetHandler's copy-on-write semantics hold.
func NewMenv(env, parent *Value, level int, handlers [handlerCount]*Handler) *Value {
	return &Value{Tag: TMenv, MenvEnv: env, MenvParent: parent, MenvLevel: level, MenvHandlers: handlers}
}

func IsNil(v *Value) bool      { return v == nil || v.Tag == TNil }
func IsInt(v *Value) bool      { return v != nil && v.Tag == TInt }
func IsSym(v *Value) bool      { return v != nil && v.Tag == TSym }
func IsCell(v *Value) bool     { return v != nil && v.Tag == TCell }
func IsCode(v *Value) bool     { return v != nil && v.Tag == TCode }
func IsPrim(v *Value) bool     { return v != nil && v.Tag == TPrim }
func IsLambda(v *Value) bool   { return v != nil && v.Tag == TLambda }
func IsMenv(v *Value) bool     { return v != nil && v.Tag == TMenv }
func IsCont(v *Value) bool     { return v != nil && v.Tag == TCont }
func IsBox(v *Value) bool      { return v != nil && v.Tag == TBox }
func IsError(v *Value) bool    { return v != nil && v.Tag == TError }
func IsUserType(v *Value) bool { return v != nil && v.Tag == TUserType }

func SymEq(a, b *Value) bool {
	return a != nil && b != nil && a.Tag == TSym && b.Tag == TSym && a.Str == b.Str
}

func SymEqStr(v *Value, s string) bool {
	return v != nil && v.Tag == TSym && v.Str == s
}

func (v *Value) GetHandler(idx int) *Handler {
	if v == nil || v.Tag != TMenv || idx < 0 || idx >= handlerCount {
		return nil
	}
	return v.MenvHandlers[idx]
}

// SetHandler returns a new menv with the slot replaced; the handler
// table is copied so existing menvs that alias the old table (e.g. an
// enclosing scope) are unaffected, keeping handlers dynamically scoped
// without mutation races.
func (v *Value) SetHandler(idx int, h *Handler) *Value {
	if v == nil || v.Tag != TMenv || idx < 0 || idx >= handlerCount {
		return v
	}
	handlers := v.MenvHandlers
	handlers[idx] = h
	return NewMenv(v.MenvEnv, v.MenvParent, v.MenvLevel, handlers)
}

func (v *Value) CopyHandlers() [handlerCount]*Handler {
	if v == nil || v.Tag != TMenv {
		var empty [handlerCount]*Handler
		return empty
	}
	return v.MenvHandlers
}

func (v *Value) WithEnv(env *Value) *Value {
	if v == nil || v.Tag != TMenv {
		return v
	}
	return NewMenv(env, v.MenvParent, v.MenvLevel, v.MenvHandlers)
}

// List helpers.

func List1(a *Value) *Value { return NewCell(a, Nil) }
func List2(a, b *Value) *Value { return NewCell(a, List1(b)) }
func List3(a, b, c *Value) *Value { return NewCell(a, List2(b, c)) }

func ListLen(v *Value) int {
	n := 0
	for IsCell(v) {
		n++
		v = v.Cdr
	}
	return n
}

func ListToSlice(v *Value) []*Value {
	var out []*Value
	for IsCell(v) {
		out = append(out, v.Car)
		v = v.Cdr
	}
	return out
}

func SliceToList(items []*Value) *Value {
	out := Nil
	for i := len(items) - 1; i >= 0; i-- {
		out = NewCell(items[i], out)
	}
	return out
}

// String renders a Value for diagnostics and the REPL; it is never
// used to build emitted C (see internal/emit.CodeExpr for that).
func (v *Value) String() string {
	if v == nil {
		return "nil"
	}
	switch v.Tag {
	case TInt:
		return strconv.FormatInt(v.Int, 10)
	case TSym, TCode:
		return v.Str
	case TNil:
		return "()"
	case TCell:
		return listString(v)
	case TPrim:
		return "#<prim>"
	case TLambda:
		return "#<lambda>"
	case TMenv:
		return fmt.Sprintf("#<menv level=%d>", v.MenvLevel)
	case TCont:
		return "#<continuation>"
	case TBox:
		return fmt.Sprintf("#<box %s>", v.BoxValue.String())
	case TError:
		return fmt.Sprintf("#<error: %s>", v.Str)
	case TUserType:
		var sb strings.Builder
		sb.WriteString("#<")
		sb.WriteString(v.Str)
		for _, f := range v.UserFieldOrder {
			fmt.Fprintf(&sb, " %s=%s", f, v.UserFields[f].String())
		}
		sb.WriteString(">")
		return sb.String()
	default:
		return "#<" + v.Tag.String() + ">"
	}
}

func listString(v *Value) string {
	var sb strings.Builder
	sb.WriteByte('(')
	first := true
	for IsCell(v) {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(v.Car.String())
		v = v.Cdr
	}
	if !IsNil(v) {
		sb.WriteString(" . ")
		sb.WriteString(v.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
