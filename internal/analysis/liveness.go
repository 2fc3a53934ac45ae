package analysis

import "github.com/shapelang/shapec/internal/diag"

// Liveness is an optional CFG liveness analysis used to tighten the
// reuse and RC-elision passes: a binding that is dead after a given
// point need not be decremented there, and its storage is a reuse
// candidate.
//
// The other analyses here (escape, shape, capture, back-edge) all
// operate on the tree-shaped AST directly and need no fixpoint. CFG
// liveness is the one pass that's a classical iterate-to-fixpoint
// dataflow problem, and its iteration bound is a deliberate, capped
// choice rather than an unconditional iterate-to-stability loop: an
// unbounded loop over a malformed or pathologically large CFG would
// turn a missed optimization opportunity into a compiler hang, and
// liveness is only ever used to drop redundant dec_ref calls — a stale
// (over-approximate) result is safe, merely less optimal. See
// DESIGN.md for the full reasoning.
const DefaultFixpointCap = 100

// Block is one node of a straight-line control-flow graph: the set of
// variables it defines, the set it uses before any local def (its
// "upward exposed" uses), and its successor indices.
type Block struct {
	Defs    map[string]bool
	Uses    map[string]bool
	Succs   []int
	LiveIn  map[string]bool
	LiveOut map[string]bool
}

func NewBlock() *Block {
	return &Block{
		Defs:    map[string]bool{},
		Uses:    map[string]bool{},
		LiveIn:  map[string]bool{},
		LiveOut: map[string]bool{},
	}
}

// CFG is a small fixed slice of Blocks, indexed by position.
type CFG struct {
	Blocks []*Block
}

func NewCFG() *CFG { return &CFG{} }

func (g *CFG) AddBlock(b *Block) int {
	g.Blocks = append(g.Blocks, b)
	return len(g.Blocks) - 1
}

// LivenessResult reports whether the fixpoint was reached within the
// cap.
type LivenessResult struct {
	Iterations  int
	Stable      bool
}

// Solve runs the classical backward liveness dataflow:
//
//	live_out[b] = union over successors s of live_in[s]
//	live_in[b]  = uses[b] ∪ (live_out[b] − defs[b])
//
// to a fixpoint, capped at maxIterations. On cap exhaustion it logs
// and returns the best approximation computed so far rather than
// aborting, matching this package's "degrade gracefully" handling of
// internal-invariant conditions elsewhere.
func (g *CFG) Solve(maxIterations int) *LivenessResult {
	if maxIterations <= 0 {
		maxIterations = DefaultFixpointCap
	}
	res := &LivenessResult{}
	for iter := 0; iter < maxIterations; iter++ {
		res.Iterations = iter + 1
		changed := false
		for i := len(g.Blocks) - 1; i >= 0; i-- {
			b := g.Blocks[i]
			newOut := map[string]bool{}
			for _, s := range b.Succs {
				for v := range g.Blocks[s].LiveIn {
					newOut[v] = true
				}
			}
			newIn := map[string]bool{}
			for v := range b.Uses {
				newIn[v] = true
			}
			for v := range newOut {
				if !b.Defs[v] {
					newIn[v] = true
				}
			}
			if !setEq(newIn, b.LiveIn) || !setEq(newOut, b.LiveOut) {
				changed = true
			}
			b.LiveIn = newIn
			b.LiveOut = newOut
		}
		if !changed {
			res.Stable = true
			return res
		}
	}
	diag.Log.WithField("component", "liveness").
		Warnf("fixpoint not reached within %d iterations; using best approximation", maxIterations)
	res.Stable = false
	return res
}

func setEq(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// IsLiveAfter reports whether name may still be read after block i
// executes — the question the reuse and RC-elision passes actually
// ask.
func (g *CFG) IsLiveAfter(i int, name string) bool {
	if i < 0 || i >= len(g.Blocks) {
		return true
	}
	return g.Blocks[i].LiveOut[name]
}
