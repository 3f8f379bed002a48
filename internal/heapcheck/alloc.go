package heapcheck

import (
	"github.com/havenlang/havenchk/internal/mir"
	"github.com/havenlang/havenchk/internal/symexec"
)

// InitKind distinguishes how a freshly allocated region's contents
// should be modeled: undefined (plain malloc) or zeroed (calloc and the
// g_*0 family).
type InitKind int

const (
	InitUndefined InitKind = iota
	InitZero
)

// ModelAllocation implements §4.F: binds a call's destination to a
// fresh heap symbol, seeds the region table, and splits the path on
// size == 0 to distinguish AllocatedOfSizeZero.
//
// sizeArg is the MIR value of the allocation's size operand, or the
// zero Value if none is statically known (e.g. alloca with a dynamic
// count is still tracked, just without an extent constraint).
func ModelAllocation(ctx *symexec.CheckerContext, state symexec.State, call *mir.Call, sizeArg *mir.Value, init InitKind, family AllocationFamily) symexec.State {
	if call.RetClass != "" && call.RetClass != "pointer" {
		return state
	}

	region := symexec.RegionInfo{Space: familySpace(family)}
	sym := ctx.Engine.Symbols.Conjure("call:"+call.Callee, ctx.Offset, region)

	if call.Dst != "" {
		state = state.Bind(call.Dst, symexec.LocSVal(sym))
	}

	rec := RefRecord{State: Allocated, Family: family, Origin: originOf(ctx), Pos: call.Pos}
	state = setRef(state, sym, rec)

	if family == Malloc && init == InitZero {
		// Zero-initialization is a content fact the checker does not
		// model precisely (no byte-level store simulation); it only
		// needs to exist as a hook for performKernelMalloc below to
		// override when the flags argument forces it.
		_ = init
	}

	if sizeArg != nil {
		sv := state.Lookup(*sizeArg)
		if sv.IsZero() {
			if _, ok := lookupRef(state, sym); ok {
				rec.State = AllocatedOfSizeZero
				state = setRef(state, sym, rec)
			} else {
				state = withZeroSizeSet(state, zeroSizeSet(state).Add(sym))
			}
		}
	}

	return state
}

// familySpace picks the memory space a family's regions live in.
func familySpace(f AllocationFamily) symexec.MemSpace {
	if f == Alloca {
		return symexec.SpaceAlloca
	}

	return symexec.SpaceHeap
}

// PerformKernelMalloc implements the performKernelMalloc special case:
// a three-argument malloc/kmalloc with a flags operand. If flags,
// bit-anded with platform's zero-flag, is provably non-zero, the
// allocation is passed to ModelAllocation as InitZero; otherwise as
// InitUndefined. ModelAllocation records no contents, so both produce the
// same state. Platforms outside platformZeroFlag are ignored (behaves as
// plain ModelAllocation).
func PerformKernelMalloc(ctx *symexec.CheckerContext, state symexec.State, call *mir.Call, sizeArg *mir.Value, flagsArg mir.Value, platform string) symexec.State {
	init := InitUndefined

	if mask, ok := kernelZeroFlag(platform); ok {
		flags := state.Lookup(flagsArg)
		if flags.Kind == symexec.SValConcreteInt && flags.Int&mask != 0 {
			init = InitZero
		}
	}

	return ModelAllocation(ctx, state, call, sizeArg, init, Malloc)
}
