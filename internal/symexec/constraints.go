package symexec

// TriState is a three-valued truth value returned by constraint queries:
// the engine may be certain either way, or it may not have enough
// information on this path to decide.
type TriState int

const (
	Unknown TriState = iota
	True
	False
)

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// ConstraintManager tracks simple per-symbol facts accumulated by assume().
// Real engines solve arbitrary linear arithmetic; this one only needs to
// answer "is this symbol null" and "is this symbol zero", which is all
// spec.md's modelers ever ask.
type ConstraintManager struct {
	nullFacts PMap[Symbol, bool] // true => known null, false => known non-null
	zeroFacts PMap[Symbol, bool] // true => known zero, false => known non-zero
}

// IsNull reports whether sym is known to be null on this path.
func (c ConstraintManager) IsNull(sym Symbol) TriState {
	if v, ok := c.nullFacts.Get(sym); ok {
		if v {
			return True
		}

		return False
	}

	return Unknown
}

// AssumeNull returns a constraint manager with sym additionally constrained
// to be null (truth=true) or non-null (truth=false).
func (c ConstraintManager) AssumeNull(sym Symbol, truth bool) ConstraintManager {
	c.nullFacts = c.nullFacts.Set(sym, truth)

	return c
}

// IsZero reports whether sym is known to denote the value zero on this path.
func (c ConstraintManager) IsZero(sym Symbol) TriState {
	if v, ok := c.zeroFacts.Get(sym); ok {
		if v {
			return True
		}

		return False
	}

	return Unknown
}

// AssumeZero returns a constraint manager with sym additionally constrained
// to be zero (truth=true) or non-zero (truth=false).
func (c ConstraintManager) AssumeZero(sym Symbol, truth bool) ConstraintManager {
	c.zeroFacts = c.zeroFacts.Set(sym, truth)

	return c
}
