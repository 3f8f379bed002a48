package heapcheck

import (
	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/mir"
	"github.com/havenlang/havenchk/internal/symexec"
)

// FreePolicy distinguishes an ordinary release from an ownership-hold
// transfer (the object-takes-ownership pattern).
type FreePolicy int

const (
	PolicyFree FreePolicy = iota
	PolicyHold
)

// ModelFree implements §4.G. It returns the updated state and whether
// the pointer was known to be allocated prior to this call (used by
// callers, e.g. the realloc modeler, that need to know if a prior free
// actually released anything).
func ModelFree(ctx *symexec.CheckerContext, cfg Config, state symexec.State, call *mir.Call, pointerArg mir.Value, family AllocationFamily, policy FreePolicy, ptrClass string, onFailureReturnsNull bool) (symexec.State, bool) {
	pos := call.Pos

	// Step 1: not a location value, the engine owns undef handling.
	sv := state.Lookup(pointerArg)
	if !sv.IsLoc() {
		return state, false
	}

	// Step 2: null is a no-op free.
	if sv.Kind == symexec.SValNull {
		return state, false
	}

	base := sv.Base
	if base == "" {
		return state, false
	}

	region, hasRegion := ctx.Engine.Symbols.RegionOf(base)

	// Step 3/4: region existence and space legality.
	if hasRegion {
		switch region.Space {
		case symexec.SpaceBlockLiteral:
			report(ctx, cfg, BugBadFree, diagnostics.BadFreeError(call.Callee, "a block literal", spanOf(pos)))

			return state, false
		case symexec.SpaceAlloca:
			report(ctx, cfg, BugFreeAlloca, diagnostics.FreeAllocaError(spanOf(pos)))

			return state, false
		case symexec.SpaceStack, symexec.SpaceGlobal:
			report(ctx, cfg, BugBadFree, diagnostics.BadFreeError(call.Callee, "a heap allocator", spanOf(pos)))

			return state, false
		}
	}

	// Step 7 (function pointers are never valid free targets; checked
	// up front since it is independent of any RefRecord).
	if ptrClass == "func-pointer" {
		report(ctx, cfg, BugBadFree, diagnostics.BadFreeError(call.Callee, "a function pointer", spanOf(pos)))

		return state, false
	}

	rec, tracked := lookupRef(state, base)
	if !tracked {
		return state, false
	}

	if rec.Family == Alloca {
		report(ctx, cfg, BugFreeAlloca, diagnostics.FreeAllocaError(spanOf(pos)))

		return state, false
	}

	switch rec.State {
	case Released:
		report(ctx, cfg, BugDoubleFree, diagnostics.DoubleFreeError(call.Callee, spanOf(pos)))

		return state, false
	case Relinquished:
		report(ctx, cfg, BugDoubleFree, diagnostics.DoubleFreeError(call.Callee+" (non-owned)", spanOf(pos)))

		return state, false
	}

	if rec.State == Allocated || rec.State == AllocatedOfSizeZero || rec.State == Escaped {
		if rec.Family != family {
			report(ctx, cfg, BugMismatchedDealloc, diagnostics.MismatchedDeallocatorError(rec.Family.String(), family.String(), spanOf(pos)))

			return state, false
		}
	}

	if sv.OffsetKnown && sv.Offset != 0 {
		report(ctx, cfg, BugOffsetFree, diagnostics.OffsetFreeError(sv.Offset, spanOf(pos)))

		return state, false
	}

	wasAllocated := rec.State == Allocated || rec.State == AllocatedOfSizeZero

	// Step 8: clear any stale free-return-value entry.
	state = withFreeReturnTable(state, freeReturnTable(state).Delete(base))

	// Step 9: remember the deallocator's own return value, if it signals
	// failure via NULL, so a later NULL-assumption can revive base.
	if onFailureReturnsNull && call.Dst != "" {
		retSym := ctx.Engine.Symbols.Conjure("freeret:"+call.Callee, ctx.Offset, symexec.RegionInfo{})
		state = state.Bind(call.Dst, symexec.LocSVal(retSym))
		state = withFreeReturnTable(state, freeReturnTable(state).Set(base, retSym))
		state = addSymbolDependency(state, base, retSym)
	}

	// Step 10: transition.
	rec.Origin = originOf(ctx)
	rec.Pos = pos
	if policy == PolicyHold {
		rec.State = Relinquished
	} else {
		rec.State = Released
	}

	state = setRef(state, base, rec)

	return state, wasAllocated
}
