package eval

import (
	"github.com/shapelang/shapec/internal/diag"
	"github.com/shapelang/shapec/internal/env"
	"github.com/shapelang/shapec/internal/value"
)

// prim builds a primitive Value: fn is the concrete Go implementation,
// used when every argument is known at compile time; cname is the
// runtime function applyPrim residualizes a call to when one isn't.
func prim(cname string, fn value.PrimFn) *value.Value {
	return &value.Value{Tag: value.TPrim, Str: cname, Prim: fn}
}

func arg(args *value.Value, n int) *value.Value {
	for i := 0; i < n; i++ {
		if !value.IsCell(args) {
			return value.Nil
		}
		args = args.Cdr
	}
	if !value.IsCell(args) {
		return value.Nil
	}
	return args.Car
}

func intArg(args *value.Value, n int) int64 {
	a := arg(args, n)
	if value.IsInt(a) {
		return a.Int
	}
	return 0
}

// DefaultEnv builds the global environment every fresh meta-level
// starts from: arithmetic, comparisons, and the cons/car/cdr/pair
// structural primitives.
func DefaultEnv() *value.Value {
	e := value.Nil
	def := func(name string, v *value.Value) {
		e = env.Extend(e, value.NewSym(name), v)
	}

	def("+", prim("add", func(args, _ *value.Value) *value.Value {
		return value.NewInt(intArg(args, 0) + intArg(args, 1))
	}))
	def("-", prim("sub", func(args, _ *value.Value) *value.Value {
		return value.NewInt(intArg(args, 0) - intArg(args, 1))
	}))
	def("*", prim("mul", func(args, _ *value.Value) *value.Value {
		return value.NewInt(intArg(args, 0) * intArg(args, 1))
	}))
	// divide, not div: stdlib.h already declares a div(int,int) of its
	// own (div_t div(int, int)), and the runtime header includes it.
	def("/", prim("divide", func(args, _ *value.Value) *value.Value {
		denom := intArg(args, 1)
		if denom == 0 {
			diag.Report("eval", diag.New(diag.KindInternal, "division by zero"))
			return value.NewInt(0)
		}
		return value.NewInt(intArg(args, 0) / denom)
	}))
	def("=", prim("num_eq", func(args, _ *value.Value) *value.Value {
		return boolVal(intArg(args, 0) == intArg(args, 1))
	}))
	def("<", prim("lt", func(args, _ *value.Value) *value.Value {
		return boolVal(intArg(args, 0) < intArg(args, 1))
	}))
	def(">", prim("gt", func(args, _ *value.Value) *value.Value {
		return boolVal(intArg(args, 0) > intArg(args, 1))
	}))

	def("cons", prim("mk_pair", func(args, _ *value.Value) *value.Value {
		return value.NewCell(arg(args, 0), arg(args, 1))
	}))
	def("car", prim("car", func(args, _ *value.Value) *value.Value {
		a := arg(args, 0)
		if !value.IsCell(a) {
			diag.Report("eval", diag.New(diag.KindInternal, "car of a non-pair"))
			return value.Nil
		}
		return a.Car
	}))
	def("cdr", prim("cdr", func(args, _ *value.Value) *value.Value {
		a := arg(args, 0)
		if !value.IsCell(a) {
			diag.Report("eval", diag.New(diag.KindInternal, "cdr of a non-pair"))
			return value.Nil
		}
		return a.Cdr
	}))
	def("pair?", prim("is_pair", func(args, _ *value.Value) *value.Value {
		return boolVal(value.IsCell(arg(args, 0)))
	}))
	def("null?", prim("is_null", func(args, _ *value.Value) *value.Value {
		return boolVal(value.IsNil(arg(args, 0)))
	}))
	def("not", prim("not", func(args, _ *value.Value) *value.Value {
		return boolVal(value.IsNil(arg(args, 0)))
	}))
	def("eq?", prim("eq", func(args, _ *value.Value) *value.Value {
		a, b := arg(args, 0), arg(args, 1)
		if value.IsInt(a) && value.IsInt(b) {
			return boolVal(a.Int == b.Int)
		}
		if value.IsSym(a) && value.IsSym(b) {
			return boolVal(a.Str == b.Str)
		}
		return boolVal(a == b)
	}))

	return e
}

func boolVal(b bool) *value.Value {
	if b {
		return value.NewInt(1)
	}
	return value.Nil
}
