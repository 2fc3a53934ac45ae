// Package compiler implements the compiler's core pipeline: parse,
// collect record declarations, evaluate top level (staged, producing
// either fully-reduced values or residual C), and assemble the final
// translation unit out of the runtime header, struct layouts, and the
// emitted body. It is the Compiler aggregate the rest of the system is
// threaded through — arena and type registry are fields here, and the
// meta-environment is built fresh inside each CompileSource call, so
// nothing about compiling one program leaks into compiling the next.
package compiler

import (
	"fmt"
	"strings"

	"github.com/shapelang/shapec/internal/analysis"
	"github.com/shapelang/shapec/internal/arena"
	"github.com/shapelang/shapec/internal/diag"
	"github.com/shapelang/shapec/internal/emit"
	"github.com/shapelang/shapec/internal/eval"
	"github.com/shapelang/shapec/internal/parser"
	"github.com/shapelang/shapec/internal/runtimegen"
	"github.com/shapelang/shapec/internal/value"
)

// BackEdgeDepthCap matches analysis.DefaultDepthCap unless overridden,
// e.g. by tests exercising the cap-exceeded degrade path.
const BackEdgeDepthCap = analysis.DefaultDepthCap

// Compiler owns the string arena, the type/field registry, and the
// back-edge depth cap; CompileSource creates the root meta-environment
// itself on each call. A fresh
// Compiler is created per compilation unit, so OOM is fatal only to
// the unit that raised it, never to the process.
type Compiler struct {
	Arena    *arena.Arena
	Types    *analysis.TypeRegistry
	DepthCap int
}

// New builds a Compiler with a fresh arena and an empty type registry.
func New() *Compiler {
	return &Compiler{Arena: arena.New(), Types: analysis.NewTypeRegistry(), DepthCap: BackEdgeDepthCap}
}

// Result is the outcome of compiling one source unit.
type Result struct {
	C        string
	BackEdge *analysis.BackEdgeResult
}

// CompileSource parses src, extracts any deftype declarations into
// the type registry (running back-edge detection over them), then
// evaluates the remaining top-level forms and assembles the emitted C
// translation unit.
func (c *Compiler) CompileSource(src string) (*Result, error) {
	p := parser.New(src)
	forms, err := p.ParseAll()
	if err != nil {
		return nil, diag.New(diag.KindParse, "parse error: %v", err)
	}

	records, rest := c.collectRecords(forms)
	reg, beResult := emit.BuildTypeRegistry(records, c.DepthCap)
	c.Types = reg

	menv := eval.NewRootMenv(eval.DefaultEnv())
	var fragments []string
	var finalMenv = menv
	for _, f := range rest {
		v, nextMenv := eval.EvalProgram([]*value.Value{f}, finalMenv)
		finalMenv = nextMenv
		if value.IsCode(v) {
			fragments = append(fragments, v.Str+";")
		}
	}

	var sb strings.Builder
	sb.WriteString(runtimegen.Header())
	sb.WriteString("\n")
	for _, r := range records {
		sb.WriteString(emit.StructLayout(reg, r.Name))
		sb.WriteString("\n")
	}
	sb.WriteString("\nint main(void) {\n")
	for _, frag := range fragments {
		sb.WriteString("  ")
		sb.WriteString(frag)
		sb.WriteString("\n")
	}
	sb.WriteString("  safe_point();\n")
	sb.WriteString("  return 0;\n}\n")

	return &Result{C: sb.String(), BackEdge: beResult}, nil
}

// collectRecords pulls every top-level (deftype Name (field Type)...)
// form out of forms, returning the record specs and the remaining
// forms in original order. Fields carry no explicit strength qualifier
// in this surface syntax: every field starts out Strong and the
// back-edge pass (analysis.DetectBackEdges) demotes the ones that
// close a cycle to Weak automatically, so the author never has to get
// the qualifier right by hand.
func (c *Compiler) collectRecords(forms []*value.Value) ([]emit.RecordSpec, []*value.Value) {
	var records []emit.RecordSpec
	var rest []*value.Value
	for _, f := range forms {
		if value.IsCell(f) && value.SymEqStr(f.Car, "deftype") {
			records = append(records, parseRecordSpec(f.Cdr))
			continue
		}
		rest = append(rest, f)
	}
	return records, rest
}

func parseRecordSpec(args *value.Value) emit.RecordSpec {
	name := args.Car
	spec := emit.RecordSpec{Name: symOrEmpty(name)}
	for cur := args.Cdr; value.IsCell(cur); cur = cur.Cdr {
		field := cur.Car
		fname := symOrEmpty(field.Car)
		ftype := ""
		if value.IsCell(field.Cdr) {
			ftype = symOrEmpty(field.Cdr.Car)
		}
		spec.Fields = append(spec.Fields, emit.FieldSpec{Name: fname, To: ftype})
	}
	return spec
}

func symOrEmpty(v *value.Value) string {
	if value.IsSym(v) {
		return v.Str
	}
	return ""
}

// Format is a small helper the driver uses to return successful
// output, appending one warning comment when the back-edge depth cap
// was exceeded, matching the error taxonomy's "log and continue"
// discipline.
func Format(r *Result) string {
	if r.BackEdge != nil && r.BackEdge.CapExceeded {
		return fmt.Sprintf("%s\n/* warning: back-edge depth cap exceeded */\n", r.C)
	}
	return r.C
}
