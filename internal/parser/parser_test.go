package parser

import (
	"math"
	"testing"

	"github.com/shapelang/shapec/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInt(t *testing.T) {
	v, err := New("42").Parse()
	require.NoError(t, err)
	require.True(t, value.IsInt(v))
	assert.Equal(t, int64(42), v.Int)
}

func TestParseNegativeInt(t *testing.T) {
	v, err := New("-7").Parse()
	require.NoError(t, err)
	assert.Equal(t, int64(-7), v.Int)
}

func TestParseSymbol(t *testing.T) {
	v, err := New("foo-bar").Parse()
	require.NoError(t, err)
	require.True(t, value.IsSym(v))
	assert.Equal(t, "foo-bar", v.Str)
}

func TestParseList(t *testing.T) {
	v, err := New("(+ 1 2)").Parse()
	require.NoError(t, err)
	items := value.ListToSlice(v)
	require.Len(t, items, 3)
	assert.Equal(t, "+", items[0].Str)
	assert.Equal(t, int64(1), items[1].Int)
	assert.Equal(t, int64(2), items[2].Int)
}

func TestParseQuoteDesugarsToQuoteForm(t *testing.T) {
	v, err := New("'x").Parse()
	require.NoError(t, err)
	items := value.ListToSlice(v)
	require.Len(t, items, 2)
	assert.Equal(t, "quote", items[0].Str)
	assert.Equal(t, "x", items[1].Str)
}

func TestParseSkipsComments(t *testing.T) {
	v, err := New("; a comment\n42").Parse()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int)
}

func TestParseUnterminatedListIsError(t *testing.T) {
	_, err := New("(+ 1 2").Parse()
	assert.Error(t, err)
}

func TestParseSaturatingOverflowFoldsToZero(t *testing.T) {
	tok := "99999999999999999999999999999999"
	n, ok := parseSaturatingInt(tok)
	require.True(t, ok)
	assert.Equal(t, int64(0), n)
}

func TestParseIntMaxIsWithinRange(t *testing.T) {
	tok := "9223372036854775807" // math.MaxInt64
	n, ok := parseSaturatingInt(tok)
	require.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), n)
}

func TestUnparseRoundTrip(t *testing.T) {
	src := "(+ 1 (quote (a b)))"
	v, err := New(src).Parse()
	require.NoError(t, err)
	assert.Equal(t, "(+ 1 '(a b))", Unparse(v)) // quote shorthand collapses (quote x) to 'x
}
