package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTypeRegistryMarksSelfCycleWeak(t *testing.T) {
	records := []RecordSpec{
		{Name: "Node", Fields: []FieldSpec{{Name: "next", To: "Node"}, {Name: "value", To: ""}}},
	}
	_, result := BuildTypeRegistry(records, 0)
	var found bool
	for _, f := range result.WeakEdges {
		if f.Name == "next" && f.To == "Node" {
			found = true
		}
	}
	assert.True(t, found, "expected Node.next to be demoted to Weak")
}

func TestStructLayoutOmitsCommentForStrongFields(t *testing.T) {
	records := []RecordSpec{
		{Name: "Container", Fields: []FieldSpec{{Name: "car", To: "Leaf"}, {Name: "cdr", To: "Leaf"}}},
	}
	reg, _ := BuildTypeRegistry(records, 0)
	layout := StructLayout(reg, "Container")
	assert.Contains(t, layout, "Obj *car;")
	assert.NotContains(t, layout, "car; /* weak")
}

func TestBuildTypeRegistrySeedsBuiltinShapesWithExpectedWeakFields(t *testing.T) {
	reg, result := BuildTypeRegistry(nil, 0)
	weak := map[string]bool{}
	for _, f := range result.WeakEdges {
		weak[f.To+"."+f.Name] = true
	}
	assert.Contains(t, weak, "DLLNode.prev")
	assert.Contains(t, weak, "TreeWithParent.parent")
	assert.NotEmpty(t, reg.Fields("List"))
	assert.NotEmpty(t, reg.Fields("Tree"))
}
