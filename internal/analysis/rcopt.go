package analysis

// Ownership classifies how a binding relates to its pointee for the
// purpose of eliding redundant inc_ref/dec_ref pairs:
// Owned is the one binding responsible for the final dec_ref; Borrowed
// is a read-only alias that outlives no operation past its last use
// and therefore needs neither inc_ref nor dec_ref; Unique means the
// analysis proved no other binding can alias the same object, so even
// an Owned binding's inc_ref at bind time is redundant.
type Ownership int

const (
	Owned Ownership = iota
	Borrowed
	Unique
)

func (o Ownership) String() string {
	switch o {
	case Owned:
		return "Owned"
	case Borrowed:
		return "Borrowed"
	case Unique:
		return "Unique"
	default:
		return "?"
	}
}

// RCInfo is the per-binding record the elision pass keeps.
type RCInfo struct {
	Ownership  Ownership
	NeedsInc   bool
	NeedsDec   bool
}

// RCContext tracks ownership per binding name, fed by the shape/alias
// groups ShapeContext already computed and the capture sets
// CaptureContext already computed: a binding captured by no escaping
// lambda and never assigned to an escaping alias group is Unique; a
// binding passed by reference purely to be read (never stored, never
// returned) is Borrowed; everything else defaults to Owned, the safe
// choice when the alias graph is inconclusive.
type RCContext struct {
	info map[string]*RCInfo
}

func NewRCContext() *RCContext {
	return &RCContext{info: make(map[string]*RCInfo)}
}

func (c *RCContext) get(name string) *RCInfo {
	i, ok := c.info[name]
	if !ok {
		i = &RCInfo{Ownership: Owned, NeedsInc: true, NeedsDec: true}
		c.info[name] = i
	}
	return i
}

func (c *RCContext) Lookup(name string) *RCInfo {
	return c.info[name]
}

// Classify derives a binding's ownership from the shape alias group it
// belongs to and whether any lambda captures it: a Tree-shaped value
// whose alias group contains no other member and is not captured is
// Unique; a captured or multiply-aliased value is Owned (shared
// ownership requires the rc traffic); nothing is inferred Borrowed here
// since that requires a call-site convention the emitter, not this
// pass, decides. Classify always sets NeedsDec to true, and sets
// NeedsInc to false for Unique and to true for Owned.
func (c *RCContext) Classify(name string, shapeCtx *ShapeContext, captureSets [][]string) {
	info := c.get(name)

	captured := false
	for _, free := range captureSets {
		for _, n := range free {
			if n == name {
				captured = true
			}
		}
	}

	sinfo := shapeCtx.Lookup(name)
	aliasedByOthers := false
	if sinfo != nil {
		for other, oi := range shapeCtx.vars {
			if other != name && oi.Group == sinfo.Group {
				aliasedByOthers = true
			}
		}
	}

	if !captured && !aliasedByOthers && sinfo != nil && sinfo.Shape == ShapeTree {
		info.Ownership = Unique
		info.NeedsInc = false
	} else {
		info.Ownership = Owned
		info.NeedsInc = true
	}
	info.NeedsDec = true
}

// MarkBorrowed downgrades a binding whose only uses are read-only
// passes to a function known not to store or return it, clearing both
// NeedsInc and NeedsDec.
func (c *RCContext) MarkBorrowed(name string) {
	info := c.get(name)
	info.Ownership = Borrowed
	info.NeedsInc = false
	info.NeedsDec = false
}
