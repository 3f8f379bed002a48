package symexec

import "fmt"

// Symbol is an opaque handle denoting a symbolic value along a path —
// concretely, a name minted by conjureSymbol and thereafter used as a map
// key by every table in internal/heapcheck.
type Symbol string

// MemSpace classifies the memory space a Region lives in.
type MemSpace int

const (
	SpaceUnknown MemSpace = iota
	SpaceHeap
	SpaceStack
	SpaceAlloca
	SpaceGlobal
	SpaceBlockLiteral // an Objective-C/C block object, never a valid free target
)

func (s MemSpace) String() string {
	switch s {
	case SpaceHeap:
		return "heap"
	case SpaceStack:
		return "stack"
	case SpaceAlloca:
		return "alloca"
	case SpaceGlobal:
		return "global"
	case SpaceBlockLiteral:
		return "block-literal"
	default:
		return "unknown"
	}
}

// SValKind tags the variant of an SVal.
type SValKind int

const (
	SValUnknown SValKind = iota
	SValNull
	SValConcreteInt
	SValLoc // a location derived from a base Symbol plus a byte offset
)

// SVal is the engine's symbolic value handle: may be concrete, an unknown
// symbol, or a location (a base region symbol plus an optional known
// offset). It is the Go analog of Clang's SVal.
type SVal struct {
	Kind        SValKind
	Int         int64
	Base        Symbol
	Offset      int64
	OffsetKnown bool
}

// UnknownSVal is the canonical "nothing is known" value.
var UnknownSVal = SVal{Kind: SValUnknown}

// NullSVal is the canonical null-pointer constant.
var NullSVal = SVal{Kind: SValNull}

// IntSVal builds a concrete integer value.
func IntSVal(v int64) SVal { return SVal{Kind: SValConcreteInt, Int: v} }

// LocSVal builds a location at exactly the base symbol (zero known offset).
func LocSVal(base Symbol) SVal {
	return SVal{Kind: SValLoc, Base: base, Offset: 0, OffsetKnown: true}
}

// IsLoc reports whether the value denotes a memory location.
func (v SVal) IsLoc() bool { return v.Kind == SValLoc }

// IsZero reports whether v is the integer constant 0. The literal 0 and
// the null pointer constant share a single SVal (NullSVal), mirroring C's
// own conflation of the two, so a size-like operand must check both
// variants to recognize a literal zero.
func (v SVal) IsZero() bool {
	return v.Kind == SValNull || (v.Kind == SValConcreteInt && v.Int == 0)
}

// WithOffset returns a location value offset by delta bytes from v. If v is
// not itself a known-offset location, the result has an unknown offset but
// keeps the same base symbol (pointer arithmetic on an already-fuzzy base
// stays fuzzy).
func (v SVal) WithOffset(delta int64) SVal {
	if v.Kind != SValLoc {
		return v
	}

	if !v.OffsetKnown {
		return SVal{Kind: SValLoc, Base: v.Base, OffsetKnown: false}
	}

	return SVal{Kind: SValLoc, Base: v.Base, Offset: v.Offset + delta, OffsetKnown: true}
}

func (v SVal) String() string {
	switch v.Kind {
	case SValNull:
		return "null"
	case SValConcreteInt:
		return fmt.Sprintf("%d", v.Int)
	case SValLoc:
		if !v.OffsetKnown {
			return fmt.Sprintf("&%s+?", v.Base)
		}

		if v.Offset == 0 {
			return fmt.Sprintf("&%s", v.Base)
		}

		return fmt.Sprintf("&%s+%d", v.Base, v.Offset)
	default:
		return "<unknown>"
	}
}

// SValBuilder mints fresh symbolic heap locations, mirroring
// SValBuilder.conjuredHeapSymbol from the engine contract in spec.md §6.
type SValBuilder struct {
	counter int
}

// ConjureSymbol returns a fresh symbol for the given call site identity.
// blockCount disambiguates re-entry into the same call site on a loop
// back-edge, exactly as the upstream contract documents.
func (b *SValBuilder) ConjureSymbol(site string, blockCount int) Symbol {
	b.counter++

	return Symbol(fmt.Sprintf("conj$%s$%d$%d", site, blockCount, b.counter))
}
