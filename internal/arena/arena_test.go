package arena

import (
	"testing"

	"github.com/shapelang/shapec/internal/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternReturnsSameCanonicalString(t *testing.T) {
	a := New()
	s1, err := a.Intern("hello")
	require.NoError(t, err)
	s2, err := a.Intern("hello")
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Equal(t, 1, a.Used())
}

func TestInternCountsOnlyDistinctStrings(t *testing.T) {
	a := New()
	a.Intern("a")
	a.Intern("b")
	a.Intern("a")
	assert.Equal(t, 2, a.Used())
}

func TestInternReportsOOMOnceBudgetExhausted(t *testing.T) {
	a := NewWithBudget(1)
	_, err := a.Intern("one")
	require.NoError(t, err)

	_, err = a.Intern("two")
	require.Error(t, err)
	de, ok := err.(*diag.Error)
	require.True(t, ok)
	assert.Equal(t, diag.KindOOM, de.Kind)
	assert.True(t, de.Kind.Fatal())
}
