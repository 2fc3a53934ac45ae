package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureFindsFreeVariable(t *testing.T) {
	// (lambda (x) (f x y))  -- f and y are free, x is bound
	lambda := list(sym("lambda"), list(sym("x")), list(sym("f"), sym("x"), sym("y")))
	ctx := NewCaptureContext()
	ctx.Analyze(lambda, map[string]bool{})

	info := ctx.Lookup(lambda)
	require.NotNil(t, info)
	assert.ElementsMatch(t, []string{"f", "y"}, info.Free)
}

func TestCaptureNestedLambdaDoesNotLeakInnerParam(t *testing.T) {
	// (lambda (x) (lambda (y) (g x y)))
	inner := list(sym("lambda"), list(sym("y")), list(sym("g"), sym("x"), sym("y")))
	outer := list(sym("lambda"), list(sym("x")), inner)

	ctx := NewCaptureContext()
	ctx.Analyze(outer, map[string]bool{})

	innerInfo := ctx.Lookup(inner)
	require.NotNil(t, innerInfo)
	assert.Contains(t, innerInfo.Free, "x")
	assert.Contains(t, innerInfo.Free, "g")
	assert.NotContains(t, innerInfo.Free, "y")
}

func TestAllFreeUnionsAcrossLambdas(t *testing.T) {
	lambda := list(sym("lambda"), list(sym("x")), sym("captured"))
	ctx := NewCaptureContext()
	ctx.Analyze(lambda, map[string]bool{})
	assert.True(t, ctx.AllFree()["captured"])
}
