package env

import (
	"testing"

	"github.com/shapelang/shapec/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtendAndLookup(t *testing.T) {
	e := value.Nil
	e = Extend(e, value.NewSym("x"), value.NewInt(1))
	v := Lookup(e, value.NewSym("x"))
	require.NotNil(t, v)
	assert.Equal(t, int64(1), v.Int)
}

func TestLookupMissReturnsNilPointer(t *testing.T) {
	v := Lookup(value.Nil, value.NewSym("missing"))
	assert.Nil(t, v)
}

func TestExtendShadowsByPrepend(t *testing.T) {
	e := value.Nil
	e = Extend(e, value.NewSym("x"), value.NewInt(1))
	e = Extend(e, value.NewSym("x"), value.NewInt(2))
	v := Lookup(e, value.NewSym("x"))
	assert.Equal(t, int64(2), v.Int)
}

func TestSetMutatesNearestBinding(t *testing.T) {
	e := value.Nil
	e = Extend(e, value.NewSym("x"), value.NewInt(1))
	ok := Set(e, value.NewSym("x"), value.NewInt(99))
	require.True(t, ok)
	assert.Equal(t, int64(99), Lookup(e, value.NewSym("x")).Int)
}

func TestSetReportsFalseWhenUnbound(t *testing.T) {
	ok := Set(value.Nil, value.NewSym("x"), value.NewInt(1))
	assert.False(t, ok)
}

func TestUninitializedSentinel(t *testing.T) {
	e := Extend(value.Nil, value.NewSym("x"), Uninitialized)
	v := Lookup(e, value.NewSym("x"))
	assert.True(t, IsUninitialized(v))
}
