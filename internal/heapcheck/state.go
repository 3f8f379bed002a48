package heapcheck

import (
	"github.com/havenlang/havenchk/internal/position"
	"github.com/havenlang/havenchk/internal/symexec"
)

// LifecycleState enumerates the states of a tracked heap symbol.
type LifecycleState int

const (
	Allocated LifecycleState = iota
	AllocatedOfSizeZero
	Released
	Relinquished
	Escaped
)

func (s LifecycleState) String() string {
	switch s {
	case Allocated:
		return "Allocated"
	case AllocatedOfSizeZero:
		return "AllocatedOfSizeZero"
	case Released:
		return "Released"
	case Relinquished:
		return "Relinquished"
	case Escaped:
		return "Escaped"
	default:
		return "Unknown"
	}
}

// Live reports whether a symbol in this state still owns memory the
// checker must account for at cleanup time (the leak condition).
func (s LifecycleState) Live() bool {
	return s == Allocated || s == AllocatedOfSizeZero
}

// RefRecord is the per-symbol lifecycle record held in the region table.
// family is never AllocationFamilyNone for a stored record.
type RefRecord struct {
	State   LifecycleState
	Family  AllocationFamily
	Origin  OriginSite
	Pos     position.Position // source location of the call that caused this record's latest transition
	FuncPtr bool               // declared type of the bound symbol is a function pointer
}

// OriginSite identifies the statement that produced the most recent
// state transition, used by diagnostics and the allocation-site search.
type OriginSite struct {
	Func   string
	Block  string
	Offset int
}

// ReallocPolicy distinguishes how the deallocation-on-failure obligation
// for a realloc pair's source symbol is handled.
type ReallocPolicy int

const (
	ToBeFreedAfterFailure ReallocPolicy = iota
	FreeOnFailure
	DoNotTrackAfterFailure
)

// ReallocEntry is the realloc-pair table's value type.
type ReallocEntry struct {
	From   symexec.Symbol
	Policy ReallocPolicy
}

const (
	traitRegion     = "heapcheck.region"
	traitRealloc    = "heapcheck.realloc"
	traitFreeReturn = "heapcheck.freeret"
	traitZeroSize   = "heapcheck.zerosize"
	traitDeps       = "heapcheck.deps"
)

// regionTable returns the current region table, or an empty one.
func regionTable(s symexec.State) symexec.PMap[symexec.Symbol, RefRecord] {
	if v, ok := s.Trait(traitRegion); ok {
		return v.(symexec.PMap[symexec.Symbol, RefRecord])
	}

	return symexec.NewPMap[symexec.Symbol, RefRecord]()
}

func withRegionTable(s symexec.State, t symexec.PMap[symexec.Symbol, RefRecord]) symexec.State {
	return s.WithTrait(traitRegion, t)
}

// lookupRef returns the RefRecord for sym, if tracked.
func lookupRef(s symexec.State, sym symexec.Symbol) (RefRecord, bool) {
	return regionTable(s).Get(sym)
}

// setRef inserts or overwrites sym's RefRecord.
func setRef(s symexec.State, sym symexec.Symbol, rec RefRecord) symexec.State {
	return withRegionTable(s, regionTable(s).Set(sym, rec))
}

// removeRef drops sym from the region table entirely.
func removeRef(s symexec.State, sym symexec.Symbol) symexec.State {
	return withRegionTable(s, regionTable(s).Delete(sym))
}

func reallocTable(s symexec.State) symexec.PMap[symexec.Symbol, ReallocEntry] {
	if v, ok := s.Trait(traitRealloc); ok {
		return v.(symexec.PMap[symexec.Symbol, ReallocEntry])
	}

	return symexec.NewPMap[symexec.Symbol, ReallocEntry]()
}

func withReallocTable(s symexec.State, t symexec.PMap[symexec.Symbol, ReallocEntry]) symexec.State {
	return s.WithTrait(traitRealloc, t)
}

func freeReturnTable(s symexec.State) symexec.PMap[symexec.Symbol, symexec.Symbol] {
	if v, ok := s.Trait(traitFreeReturn); ok {
		return v.(symexec.PMap[symexec.Symbol, symexec.Symbol])
	}

	return symexec.NewPMap[symexec.Symbol, symexec.Symbol]()
}

func withFreeReturnTable(s symexec.State, t symexec.PMap[symexec.Symbol, symexec.Symbol]) symexec.State {
	return s.WithTrait(traitFreeReturn, t)
}

func zeroSizeSet(s symexec.State) symexec.PSet[symexec.Symbol] {
	if v, ok := s.Trait(traitZeroSize); ok {
		return v.(symexec.PSet[symexec.Symbol])
	}

	return symexec.NewPSet[symexec.Symbol]()
}

func withZeroSizeSet(s symexec.State, set symexec.PSet[symexec.Symbol]) symexec.State {
	return s.WithTrait(traitZeroSize, set)
}

// depTable maps a "base" symbol to the set of dependent symbols the
// engine must keep live as long as base is live (SymbolManager's
// addSymbolDependency, modeled as checker-owned bookkeeping since this
// engine has no independent liveness oracle of its own).
func depTable(s symexec.State) symexec.PMap[symexec.Symbol, symexec.PSet[symexec.Symbol]] {
	if v, ok := s.Trait(traitDeps); ok {
		return v.(symexec.PMap[symexec.Symbol, symexec.PSet[symexec.Symbol]])
	}

	return symexec.NewPMap[symexec.Symbol, symexec.PSet[symexec.Symbol]]()
}

func withDepTable(s symexec.State, t symexec.PMap[symexec.Symbol, symexec.PSet[symexec.Symbol]]) symexec.State {
	return s.WithTrait(traitDeps, t)
}

// addSymbolDependency records that dependent must be kept live as long
// as base is live (I4).
func addSymbolDependency(s symexec.State, base, dependent symexec.Symbol) symexec.State {
	deps := depTable(s)

	set, ok := deps.Get(base)
	if !ok {
		set = symexec.NewPSet[symexec.Symbol]()
	}

	set = set.Add(dependent)

	return withDepTable(s, deps.Set(base, set))
}

// dependentsOf returns the symbols kept alive by base.
func dependentsOf(s symexec.State, base symexec.Symbol) []symexec.Symbol {
	deps := depTable(s)

	set, ok := deps.Get(base)
	if !ok {
		return nil
	}

	return set.Items()
}

// originOf builds an OriginSite from the current callback location.
func originOf(ctx *symexec.CheckerContext) OriginSite {
	return OriginSite{Func: ctx.Func, Block: ctx.Block, Offset: ctx.Offset}
}
