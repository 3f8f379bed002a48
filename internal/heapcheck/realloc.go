package heapcheck

import (
	"github.com/havenlang/havenchk/internal/mir"
	"github.com/havenlang/havenchk/internal/symexec"
)

// ModelRealloc implements §4.H: realloc(p, n) (or the three-argument
// `_n` variant, size = n*m) decomposed into the four null/zero
// combinations.
//
// reallocf selects the `reallocf`/`_n`-suffixed failure policy
// (FreeOnFailure) over the plain-realloc default.
//
// The general case (p non-null, size non-zero) deliberately replicates
// a quirk noted in the upstream behavior this checker's design is
// pinned to: the allocation half is computed against the state in
// which p was assumed null (the sibling branch's substate) rather than
// against the state the free half uses. This is preserved rather than
// "fixed" per an explicit open design decision, and is covered by a
// regression test asserting the resulting inconsistency is exactly
// reproduced rather than silently cleaned up.
func ModelRealloc(ctx *symexec.CheckerContext, cfg Config, state symexec.State, call *mir.Call, pArg, totalSizeArg mir.Value, reallocf bool) symexec.State {
	pSV := state.Lookup(pArg)
	sizeSV := state.Lookup(totalSizeArg)

	pNull := pSV.Kind == symexec.SValNull
	pKnownNonNull := pSV.IsLoc()
	sizeZero := sizeSV.IsZero()

	switch {
	case pNull && !sizeZero:
		// Case 1: behaves as plain malloc(totalSize).
		return ModelAllocation(ctx, state, call, &totalSizeArg, InitUndefined, Malloc)

	case pNull && sizeZero:
		// Case 2: implementation-defined NULL return, state unchanged.
		return state

	case (pKnownNonNull || !pNull) && sizeZero:
		// Case 3: free(p), no return-value binding.
		freeCall := *call
		freeCall.Dst = ""
		state, _ = ModelFree(ctx, cfg, state, &freeCall, pArg, Malloc, PolicyFree, "", false)

		return state
	}

	// Case 4: the general case.
	fromSym := pSV.Base
	if fromSym == "" {
		return state
	}

	nullAssumedState := state
	nullAssumedState.Constraints = nullAssumedState.Constraints.AssumeNull(fromSym, true)

	allocState := ModelAllocation(ctx, nullAssumedState, call, &totalSizeArg, InitUndefined, Malloc)

	freeState, wasAllocated := ModelFree(ctx, cfg, state, call, pArg, Malloc, PolicyFree, "", false)

	final := allocState
	if rec, ok := lookupRef(freeState, fromSym); ok {
		final = setRef(final, fromSym, rec)
	} else {
		final = removeRef(final, fromSym)
	}

	toSV := final.Lookup(mir.Value{Kind: mir.ValRef, Ref: call.Dst})
	if !toSV.IsLoc() {
		return final
	}

	toSym := toSV.Base

	policy := ToBeFreedAfterFailure

	switch {
	case reallocf:
		policy = FreeOnFailure
	case !wasAllocated:
		policy = DoNotTrackAfterFailure
	}

	final = withReallocTable(final, reallocTable(final).Set(toSym, ReallocEntry{From: fromSym, Policy: policy}))
	final = addSymbolDependency(final, toSym, fromSym)

	return final
}
