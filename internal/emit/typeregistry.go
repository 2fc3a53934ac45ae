package emit

import "github.com/shapelang/shapec/internal/analysis"

// FieldSpec names one field of a user-defined record type as the
// compiler collects it from a deftype form, before the back-edge pass
// decides whether the field's pointer should free its pointee
// recursively (Strong) or merely drop it (Weak).
type FieldSpec struct {
	Name string
	To   string // the field's declared record type, or "" for a scalar
}

// RecordSpec is one deftype's collected shape.
type RecordSpec struct {
	Name   string
	Fields []FieldSpec
}

// builtinRecords seeds the type registry with the five record shapes
// every compilation starts from, ahead of anything a program's own
// deftype forms declare: a cons-cell Pair with no typed edges of its
// own (its car/cdr are the generic Obj union, not a typed record
// field), a singly-linked List, a plain binary Tree, a doubly-linked
// DLLNode, and a TreeWithParent. DLLNode's prev and TreeWithParent's
// parent fields point back into a type already on the DFS's current
// path, so the back-edge pass demotes them to Weak on every
// compilation without the author ever declaring them by hand.
func builtinRecords() []RecordSpec {
	return []RecordSpec{
		{Name: "Pair", Fields: []FieldSpec{{Name: "car"}, {Name: "cdr"}}},
		{Name: "List", Fields: []FieldSpec{
			{Name: "value"},
			{Name: "next", To: "List"},
		}},
		{Name: "Tree", Fields: []FieldSpec{
			{Name: "value"},
			{Name: "left", To: "Tree"},
			{Name: "right", To: "Tree"},
		}},
		{Name: "DLLNode", Fields: []FieldSpec{
			{Name: "value"},
			{Name: "next", To: "DLLNode"},
			{Name: "prev", To: "DLLNode"},
		}},
		{Name: "TreeWithParent", Fields: []FieldSpec{
			{Name: "value"},
			{Name: "left", To: "TreeWithParent"},
			{Name: "right", To: "TreeWithParent"},
			{Name: "parent", To: "TreeWithParent"},
		}},
	}
}

// BuildTypeRegistry turns the compiler's collected record
// declarations into the field graph the back-edge detector walks,
// seeding the five built-in record shapes ahead of the program's own
// deftype forms, and runs the detector immediately so the emitter can
// consult Strong/Weak classifications while laying out each record's C
// struct.
func BuildTypeRegistry(records []RecordSpec, depthCap int) (*analysis.TypeRegistry, *analysis.BackEdgeResult) {
	reg := analysis.NewTypeRegistry()
	all := append(builtinRecords(), records...)
	for _, r := range all {
		reg.Declare(r.Name)
		for _, f := range r.Fields {
			if f.To == "" {
				continue
			}
			reg.AddField(r.Name, f.Name, f.To)
		}
	}
	result := reg.DetectBackEdges(depthCap)
	return reg, result
}

// StructLayout renders a record's C struct definition, marking each
// Weak field's comment so a reader of the generated C can see which
// back-edges were cut without following the full registry.
func StructLayout(reg *analysis.TypeRegistry, name string) string {
	out := "typedef struct " + name + " {\n"
	out += "  int mark; int scc_id;\n"
	for _, f := range reg.Fields(name) {
		tag := ""
		if f.Kind == analysis.Weak {
			tag = " /* weak: back-edge */"
		}
		out += "  Obj *" + f.Name + ";" + tag + "\n"
	}
	out += "} " + name + ";\n"
	return out
}
