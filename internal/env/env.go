// Package env implements an immutable cons-list association from
// symbol to value with lexical chaining and linear lookup.
package env

import "github.com/shapelang/shapec/internal/value"

// Extend prepends a new binding. Shadowing is by prepend, never by
// mutation of an existing pair, so a captured environment is safe to
// keep extending after closures have captured a prefix of it.
func Extend(env, sym, val *value.Value) *value.Value {
	return value.NewCell(value.NewCell(sym, val), env)
}

// Lookup performs linear search down the chain. Returns nil (not
// value.Nil) on miss so callers can distinguish "bound to Nil" from
// "unbound".
func Lookup(env, sym *value.Value) *value.Value {
	for value.IsCell(env) {
		pair := env.Car
		if value.SymEq(pair.Car, sym) {
			return pair.Cdr
		}
		env = env.Cdr
	}
	return nil
}

// Set mutates the nearest existing binding of sym in place (used by
// set! and by letrec's "patch the placeholder" second pass). Reports
// whether a binding was found.
func Set(env, sym, val *value.Value) bool {
	for value.IsCell(env) {
		pair := env.Car
		if value.SymEq(pair.Car, sym) {
			pair.Cdr = val
			return true
		}
		env = env.Cdr
	}
	return false
}

// Uninitialized is the sentinel letrec pre-binds every name to;
// reading it before its binding's init expression has run is reported
// as an uninitialized-letrec-read diagnostic.
var Uninitialized = value.NewPrim(nil)

func IsUninitialized(v *value.Value) bool {
	return v == Uninitialized
}
