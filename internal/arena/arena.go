// Package arena is the compile-time backing store for interned symbol
// strings and an allocation counter used to raise the OOM diagnostic.
// It is owned by the Compiler aggregate, never a package global, and
// dropped in one shot when the owning Compiler goes out of scope, so
// exhausting one compilation's budget never affects a sibling
// compilation running in the same process.
package arena

import "github.com/shapelang/shapec/internal/diag"

// DefaultBudget bounds the number of distinct interned strings a single
// compilation may allocate before the arena reports OOM — fatal to the
// current compilation unit, never to the process.
const DefaultBudget = 1 << 20

// Arena is a bump-style string interner plus an allocation counter.
// Compile-time Values themselves are ordinary Go-GC'd structs — that's
// the correct Go rendition of "bulk freed when the compiler exits";
// the arena's job is to give every symbol name a single backing string
// and to make the "OOM is fatal to this compilation" invariant
// something the code can actually trigger and test.
type Arena struct {
	strings map[string]string
	budget  int
	used    int
}

// New creates an arena with the default budget.
func New() *Arena {
	return NewWithBudget(DefaultBudget)
}

// NewWithBudget creates an arena that reports OOM after budget
// allocations; tests use a small budget to exercise the OOM path
// deterministically.
func NewWithBudget(budget int) *Arena {
	return &Arena{strings: make(map[string]string), budget: budget}
}

// Intern returns the arena's canonical copy of s, allocating a new slot
// only the first time s is seen.
func (a *Arena) Intern(s string) (string, error) {
	if canon, ok := a.strings[s]; ok {
		return canon, nil
	}
	if a.used >= a.budget {
		return "", diag.New(diag.KindOOM, "arena: string pool exhausted (budget=%d)", a.budget)
	}
	a.strings[s] = s
	a.used++
	return s, nil
}

// MustIntern interns s and returns the canonical string. If Intern
// reports budget exhaustion, the error is discarded and s itself is
// returned uninterned; nothing is panicked or logged.
func (a *Arena) MustIntern(s string) string {
	canon, err := a.Intern(s)
	if err != nil {
		return s
	}
	return canon
}

// Used reports how many distinct strings have been interned so far.
func (a *Arena) Used() int { return a.used }

// Budget reports the arena's configured ceiling.
func (a *Arena) Budget() int { return a.budget }
