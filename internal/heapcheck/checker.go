package heapcheck

import (
	"fmt"
	"strings"

	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/mir"
	"github.com/havenlang/havenchk/internal/position"
	"github.com/havenlang/havenchk/internal/symexec"
)

// Checker wires components A-L into a single symexec.Checker: the
// allocation-family classifier, the lifecycle state machine, the
// allocation/deallocation/realloc modelers, the escape policy, the leak
// finder and the assumption hook. The bug-report path visitor (VisitPath)
// is not called from here, so reported diagnostics carry no path notes.
type Checker struct {
	Cfg   Config
	funcs map[string]*mir.Function
}

// NewChecker builds a Checker configured by cfg. funcs, if non-nil, is
// consulted by the reference-counting suppression heuristic to scan a
// reporting function's body for atomic increment/decrement calls.
func NewChecker(cfg Config, mod *mir.Module) *Checker {
	c := &Checker{Cfg: cfg, funcs: map[string]*mir.Function{}}

	if mod != nil {
		for _, fn := range mod.Functions {
			c.funcs[fn.Name] = fn
		}
	}

	return c
}

func (c *Checker) Name() string { return "heap-lifecycle" }

func (c *Checker) PreCall(ctx *symexec.CheckerContext, call *mir.Call, state symexec.State) symexec.State {
	return state
}

func (c *Checker) PostCall(ctx *symexec.CheckerContext, call *mir.Call, state symexec.State) symexec.State {
	if isReallocName(call.Callee) {
		pArg, sizeArg, ok := reallocArgs(call)
		if ok {
			return ModelRealloc(ctx, c.Cfg, state, call, pArg, sizeArg, isReallocfName(call.Callee))
		}
	}

	if fam := Classify(call, OpAllocate, c.Cfg.Optimistic); fam != AllocationFamilyNone {
		return c.modelAllocateCall(ctx, state, call, fam)
	}

	if fam := Classify(call, OpFree, c.Cfg.Optimistic); fam != AllocationFamilyNone {
		return c.modelFreeCall(ctx, state, call, fam)
	}

	switch call.Kind {
	case mir.CallNew, mir.CallNewArray:
		fam := CXXNew
		if call.Kind == mir.CallNewArray {
			fam = CXXNewArray
		}

		sizeArg := extentArg(call)

		return ModelAllocation(ctx, state, call, sizeArg, InitUndefined, fam)

	case mir.CallDelete, mir.CallDeleteArray:
		fam := CXXNew
		if call.Kind == mir.CallDeleteArray {
			fam = CXXNewArray
		}

		if len(call.Args) == 0 {
			return state
		}

		deleteCall := *call
		deleteCall.Dst = ""
		state, _ = ModelFree(ctx, c.Cfg, state, &deleteCall, call.Args[0], fam, PolicyFree, "", false)

		return state
	}

	return state
}

func (c *Checker) modelAllocateCall(ctx *symexec.CheckerContext, state symexec.State, call *mir.Call, fam AllocationFamily) symexec.State {
	name, _ := stripUnderscore(call.Callee)

	if fam == Alloca {
		var sizeArg *mir.Value
		if len(call.Args) > 0 {
			sizeArg = &call.Args[0]
		}

		return ModelAllocation(ctx, state, call, sizeArg, InitUndefined, Alloca)
	}

	if fam == IfNameIndex {
		return ModelAllocation(ctx, state, call, nil, InitUndefined, IfNameIndex)
	}

	if fam == CXXNew || fam == CXXNewArray {
		return ModelAllocation(ctx, state, call, extentArg(call), InitUndefined, fam)
	}

	// Malloc family.
	init := InitUndefined
	if isZeroInitName(name) {
		init = InitZero
	}

	var sizeArg *mir.Value
	if len(call.Args) > 0 {
		sizeArg = &call.Args[len(call.Args)-1]
	}

	if name == "malloc" && len(call.Args) == 3 && c.Cfg.Platform != "" {
		return PerformKernelMalloc(ctx, state, call, sizeArg, call.Args[2], c.Cfg.Platform)
	}

	return ModelAllocation(ctx, state, call, sizeArg, init, Malloc)
}

func (c *Checker) modelFreeCall(ctx *symexec.CheckerContext, state symexec.State, call *mir.Call, fam AllocationFamily) symexec.State {
	if len(call.Args) == 0 {
		return state
	}

	onFailureReturnsNull := fam == IfNameIndex
	state, _ = ModelFree(ctx, c.Cfg, state, call, call.Args[0], fam, PolicyFree, "", onFailureReturnsNull)

	return state
}

func (c *Checker) DeadSymbols(ctx *symexec.CheckerContext, node *symexec.ExplodedNode, state symexec.State, dead []symexec.Symbol) symexec.State {
	filtered := dead[:0:0]

	for _, sym := range dead {
		if c.suppressesLeak(node, sym, ctx.Func) {
			state = removeRef(state, sym)

			continue
		}

		filtered = append(filtered, sym)
	}

	return ModelDeadSymbols(ctx, c.Cfg, node, state, filtered)
}

// suppressesLeak applies the reference-counting heuristic: if the
// enclosing function looks like a ref-counted destructor and contains
// an atomic increment/decrement, a would-be leak on sym is dropped
// silently rather than reported.
func (c *Checker) suppressesLeak(node *symexec.ExplodedNode, sym symexec.Symbol, funcName string) bool {
	rec, ok := lookupRef(node.State, sym)
	if !ok || !rec.State.Live() {
		return false
	}

	return SuppressAsRefCounting(c.Cfg, c.funcs[funcName])
}

func (c *Checker) EvalAssume(ctx *symexec.CheckerContext, state symexec.State, cond symexec.SVal, truth bool) symexec.State {
	if cond.IsLoc() {
		state.Constraints = state.Constraints.AssumeNull(cond.Base, !truth)
	}

	return ApplyAssumption(state)
}

func (c *Checker) CheckPointerEscape(ctx *symexec.CheckerContext, state symexec.State, escaping []symexec.Symbol, call *mir.Call) symexec.State {
	fam := Classify(call, OpAny, c.Cfg.Optimistic)
	decision := EvaluateEscape(call, fam)

	for _, sym := range escaping {
		state = ApplyEscape(ctx, state, sym, decision)
	}

	return state
}

// Location implements the use-after-free and use-of-zero-allocation
// checks: a dereference (mir.Load or mir.Store) of a symbol that is
// Released/Relinquished is a use-after-free, and one of a symbol still
// AllocatedOfSizeZero is a use of a zero-sized allocation. A dereference
// through an offset (loc.Offset != 0) still resolves to the same base
// symbol, so both checks apply regardless of offset.
func (c *Checker) Location(ctx *symexec.CheckerContext, state symexec.State, loc symexec.SVal, pos position.Position, isLoad bool) symexec.State {
	base := loc.Base
	if base == "" {
		return state
	}

	rec, ok := lookupRef(state, base)
	if !ok {
		return state
	}

	switch rec.State {
	case Released, Relinquished:
		report(ctx, c.Cfg, BugUseAfterFree, diagnostics.UseAfterFreeError(spanOf(pos)))
	case AllocatedOfSizeZero:
		report(ctx, c.Cfg, BugUseZeroAllocated, diagnostics.UseZeroAllocatedError(spanOf(pos)))
	}

	return state
}

func (c *Checker) CheckConstPointerEscape(ctx *symexec.CheckerContext, state symexec.State, escaping []symexec.Symbol) symexec.State {
	decision := EscapeDecision{Escapes: true}

	for _, sym := range escaping {
		state = ApplyConstEscape(ctx, state, sym, decision)
	}

	return state
}

func (c *Checker) EndFunction(ctx *symexec.CheckerContext, state symexec.State) symexec.State {
	return state
}

func (c *Checker) PrintState(state symexec.State) string {
	var b strings.Builder

	region := regionTable(state)
	for _, sym := range region.Keys() {
		rec, _ := region.Get(sym)
		fmt.Fprintf(&b, "%s: %s (%s)\n", sym, rec.State, rec.Family)
	}

	return b.String()
}

func isReallocName(name string) bool {
	n, _ := stripUnderscore(name)

	switch n {
	case "realloc", "reallocf", "g_realloc", "g_try_realloc", "g_realloc_n", "g_try_realloc_n":
		return true
	default:
		return false
	}
}

func isReallocfName(name string) bool {
	n, _ := stripUnderscore(name)

	return n == "reallocf"
}

func isZeroInitName(name string) bool {
	switch name {
	case "calloc", "g_malloc0", "g_try_malloc0", "g_malloc0_n", "g_try_malloc0_n":
		return true
	default:
		return false
	}
}

// reallocArgs resolves a realloc-family call's pointer and total-size
// operands, combining the two-argument `_n`-less form and the
// three-argument `n * m` form.
func reallocArgs(call *mir.Call) (p, size mir.Value, ok bool) {
	if len(call.Args) < 2 {
		return mir.Value{}, mir.Value{}, false
	}

	p = call.Args[0]

	if len(call.Args) >= 3 {
		// _n variant: size = args[1] * args[2]. Symbolic multiplication
		// is outside this checker's scope (§1 Non-goals); treat as
		// unknown unless both operands are concrete.
		a, b := call.Args[1], call.Args[2]
		if a.Kind == mir.ValConstInt && b.Kind == mir.ValConstInt {
			return p, mir.Value{Kind: mir.ValConstInt, Int64: a.Int64 * b.Int64}, true
		}

		return p, mir.Value{Kind: mir.ValRef, Ref: ""}, true
	}

	return p, call.Args[1], true
}

// extentArg computes new[]'s extent as ArraySizeArg * ElementSize when
// both are known; plain new uses ElementSize alone.
func extentArg(call *mir.Call) *mir.Value {
	if call.ArraySizeArg == nil {
		if call.ElementSize > 0 {
			v := mir.Value{Kind: mir.ValConstInt, Int64: call.ElementSize}

			return &v
		}

		return nil
	}

	if call.ArraySizeArg.Kind == mir.ValConstInt && call.ElementSize > 0 {
		v := mir.Value{Kind: mir.ValConstInt, Int64: call.ArraySizeArg.Int64 * call.ElementSize}

		return &v
	}

	return call.ArraySizeArg
}
