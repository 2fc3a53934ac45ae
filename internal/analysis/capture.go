package analysis

import "github.com/shapelang/shapec/internal/value"

// CaptureInfo is a lambda's free-variable set, keyed by the lambda's
// AST node identity via the surrounding map in CaptureContext. Spec
// §4.5: "a name referenced inside a lambda body that is not one of its
// own parameters is captured from the enclosing scope."
type CaptureInfo struct {
	Free []string
}

// CaptureContext accumulates, for every lambda expression visited, the
// set of names it captures from its defining environment.
type CaptureContext struct {
	byLambda map[*value.Value]*CaptureInfo
}

func NewCaptureContext() *CaptureContext {
	return &CaptureContext{byLambda: make(map[*value.Value]*CaptureInfo)}
}

// Lookup returns the capture set previously recorded for a lambda node,
// or nil if Analyze was never called on it.
func (c *CaptureContext) Lookup(lambda *value.Value) *CaptureInfo {
	return c.byLambda[lambda]
}

// AllFree unions every lambda's free-variable set seen so far; callers
// that just need "which enclosing-scope names does anything in this
// expression capture" (e.g. the h_let staging rule deciding which
// bindings an escaping closure keeps alive) use this instead of
// walking each lambda's CaptureInfo individually.
func (c *CaptureContext) AllFree() map[string]bool {
	out := map[string]bool{}
	for _, info := range c.byLambda {
		for _, n := range info.Free {
			out[n] = true
		}
	}
	return out
}

// Analyze walks expr looking for lambda forms and records each one's
// free-variable set. A lambda's free set is taken relative to its own
// parameters only, so names bound by an enclosing let, letrec or lambda
// that its body references are part of it. bound is the set of names
// already bound in the enclosing lexical scope (parameters of outer
// lambdas, let/letrec bindings); it is threaded down, never mutated in
// place, so sibling branches don't see each other's bindings.
func (c *CaptureContext) Analyze(expr *value.Value, bound map[string]bool) {
	if expr == nil || value.IsNil(expr) || !value.IsCell(expr) {
		return
	}
	op := expr.Car
	args := expr.Cdr

	if value.IsSym(op) {
		switch op.Str {
		case "quote":
			return
		case "lambda":
			params := args.Car
			body := args.Cdr.Car
			inner := extend(bound, paramNames(params))
			free := c.freeVars(body, extend(nil, paramNames(params)))
			c.byLambda[expr] = &CaptureInfo{Free: free}
			c.Analyze(body, inner)
			return
		case "let":
			c.analyzeLetCapture(args, bound, false)
			return
		case "letrec":
			c.analyzeLetCapture(args, bound, true)
			return
		}
	}

	c.Analyze(op, bound)
	for cur := args; value.IsCell(cur); cur = cur.Cdr {
		c.Analyze(cur.Car, bound)
	}
}

func (c *CaptureContext) analyzeLetCapture(args *value.Value, bound map[string]bool, rec bool) {
	bindings := args.Car
	body := args.Cdr.Car

	names := []string{}
	for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
		if sym := cur.Car.Car; value.IsSym(sym) {
			names = append(names, sym.Str)
		}
	}
	inner := extend(bound, names)

	valScope := bound
	if rec {
		valScope = inner
	}
	for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
		c.Analyze(cur.Car.Cdr.Car, valScope)
	}
	c.Analyze(body, inner)
}

// freeVars collects every symbol reference in expr not present in
// bound, without descending into nested lambdas' own parameter scopes
// (those are handled by their own Analyze call, which recurses here).
func (c *CaptureContext) freeVars(expr *value.Value, bound map[string]bool) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(e *value.Value, b map[string]bool)
	walk = func(e *value.Value, b map[string]bool) {
		if e == nil || value.IsNil(e) {
			return
		}
		if value.IsSym(e) {
			if !b[e.Str] && !seen[e.Str] {
				seen[e.Str] = true
				out = append(out, e.Str)
			}
			return
		}
		if !value.IsCell(e) {
			return
		}
		op := e.Car
		args := e.Cdr
		if value.IsSym(op) {
			switch op.Str {
			case "quote":
				return
			case "lambda":
				params := args.Car
				body := args.Cdr.Car
				walk(body, extend(b, paramNames(params)))
				return
			case "let", "letrec":
				bindings := args.Car
				letBody := args.Cdr.Car
				names := []string{}
				for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
					if sym := cur.Car.Car; value.IsSym(sym) {
						names = append(names, sym.Str)
					}
				}
				inner := extend(b, names)
				valScope := b
				if op.Str == "letrec" {
					valScope = inner
				}
				for cur := bindings; value.IsCell(cur); cur = cur.Cdr {
					walk(cur.Car.Cdr.Car, valScope)
				}
				walk(letBody, inner)
				return
			}
		}
		walk(op, b)
		for cur := args; value.IsCell(cur); cur = cur.Cdr {
			walk(cur.Car, b)
		}
	}
	walk(expr, bound)
	return out
}

func paramNames(params *value.Value) []string {
	var out []string
	for cur := params; value.IsCell(cur); cur = cur.Cdr {
		if sym := cur.Car; value.IsSym(sym) {
			out = append(out, sym.Str)
		}
	}
	return out
}

func extend(bound map[string]bool, names []string) map[string]bool {
	out := make(map[string]bool, len(bound)+len(names))
	for k := range bound {
		out[k] = true
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}
