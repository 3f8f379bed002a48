package symexec

import (
	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/mir"
)

// RegionInfo describes the memory region a Symbol denotes: which space it
// lives in, and (when relevant) whether it is a function pointer, which a
// free-family classifier must never treat as a valid deallocation target.
type RegionInfo struct {
	Space       MemSpace
	FuncPointer bool
}

// SymbolManager mints fresh symbols and remembers what region each one
// denotes. It is the engine's analog of Clang's SymbolManager plus
// MemRegionManager rolled into one, since this engine never needs the full
// region hierarchy spec.md's Design Notes allow simplifying away.
type SymbolManager struct {
	builder SValBuilder
	regions PMap[Symbol, RegionInfo]
}

// Conjure mints a fresh symbol for site at the given loop iteration count
// and records its region.
func (sm *SymbolManager) Conjure(site string, blockCount int, info RegionInfo) Symbol {
	sym := sm.builder.ConjureSymbol(site, blockCount)
	sm.regions = sm.regions.Set(sym, info)

	return sym
}

// RegionOf returns the recorded region for sym, if any.
func (sm *SymbolManager) RegionOf(sym Symbol) (RegionInfo, bool) {
	return sm.regions.Get(sym)
}

// State is the full path-sensitive program state threaded through the
// interpretation of a function: variable bindings, the constraint
// manager, and an open-ended trait map checkers use to stash their own
// persistent tables (region tables, realloc-pair tables, and so on),
// mirroring ProgramState::set<MapTag>() from the host contract this
// package models.
type State struct {
	Env         PMap[string, SVal]
	Constraints ConstraintManager
	Traits      PMap[string, any]
}

// NewState returns an empty initial state.
func NewState() State {
	return State{
		Env:         NewPMap[string, SVal](),
		Constraints: ConstraintManager{nullFacts: NewPMap[Symbol, bool](), zeroFacts: NewPMap[Symbol, bool]()},
		Traits:      NewPMap[string, any](),
	}
}

// Bind returns a new state with ref bound to v.
func (s State) Bind(ref string, v SVal) State {
	s.Env = s.Env.Set(ref, v)

	return s
}

// Lookup resolves a MIR value to an SVal under the current bindings.
// Constants evaluate directly; references resolve through Env, defaulting
// to UnknownSVal for anything not yet bound (e.g. an external parameter).
func (s State) Lookup(v mir.Value) SVal {
	switch v.Kind {
	case mir.ValConstInt:
		if v.Int64 == 0 {
			return NullSVal
		}

		return IntSVal(v.Int64)
	case mir.ValRef:
		if sv, ok := s.Env.Get(v.Ref); ok {
			return sv
		}

		return UnknownSVal
	default:
		return UnknownSVal
	}
}

// WithTrait returns a new state with key bound to value in the trait map.
func (s State) WithTrait(key string, value any) State {
	s.Traits = s.Traits.Set(key, value)

	return s
}

// Trait returns the value bound to key in the trait map, if any.
func (s State) Trait(key string) (any, bool) {
	return s.Traits.Get(key)
}

// Engine interprets mir.Function control-flow graphs, dispatching
// registered Checkers at each program point and recording the resulting
// path-sensitive states as an exploded graph. It purposefully does not
// attempt loop-widening or full path merging: spec.md's host contract only
// requires that every straight-line path through a function body be
// visited once, which is sufficient for the bug patterns in scope.
type Engine struct {
	Checkers []Checker
	Symbols  SymbolManager
}

// NewEngine returns an engine with the given checkers registered, in
// registration order (the order PreCall/PostCall run, matching the host
// contract's "checkers run in registration order" rule).
func NewEngine(checkers ...Checker) *Engine {
	return &Engine{Checkers: checkers}
}

// Run interprets fn starting from entry and returns the leaf nodes where
// EndFunction fired (one per return/fall-off-the-end path) together with
// every diagnostic reported along the way.
func (e *Engine) Run(fn *mir.Function) ([]*ExplodedNode, []diagnostics.Diagnostic) {
	if fn == nil || len(fn.Blocks) == 0 {
		return nil, nil
	}

	blocksByName := make(map[string]*mir.BasicBlock, len(fn.Blocks))
	for _, bb := range fn.Blocks {
		blocksByName[bb.Name] = bb
	}

	entry := fn.Blocks[0]
	initial := &ExplodedNode{Loc: Location{Func: fn.Name, Block: entry.Name}, State: NewState()}

	var leaves []*ExplodedNode

	ctx := &CheckerContext{Engine: e, Func: fn.Name}

	visited := make(map[string]bool)

	var walk func(bb *mir.BasicBlock, pred *ExplodedNode)

	walk = func(bb *mir.BasicBlock, pred *ExplodedNode) {
		if bb == nil || visited[bb.Name] {
			return
		}

		visited[bb.Name] = true

		node := pred
		state := pred.State
		ctx.Block = bb.Name

		for idx, instr := range bb.Instr {
			ctx.Offset = idx
			state = e.step(ctx, instr, state)
			node = &ExplodedNode{Loc: Location{Func: fn.Name, Block: bb.Name, Offset: idx + 1}, State: state, Pred: node}

			switch term := instr.(type) {
			case mir.Br:
				walk(blocksByName[term.Target], node)

				return
			case mir.CondBr:
				walk(blocksByName[term.True], node)

				// step assumed the condition true; the false branch starts
				// again from the state before that assumption.
				ctx.Block, ctx.Offset = bb.Name, idx
				falseState := node.Pred.State
				cond := falseState.Lookup(term.Cond)

				for _, c := range e.Checkers {
					falseState = c.EvalAssume(ctx, falseState, cond, false)
				}

				walk(blocksByName[term.False], &ExplodedNode{Loc: node.Loc, State: falseState, Pred: node.Pred})

				return
			case mir.Ret:
				state = e.endFunction(ctx, node, state)
				node = &ExplodedNode{Loc: node.Loc, State: state, Pred: node.Pred}
				leaves = append(leaves, node)

				return
			}
		}

		state = e.endFunction(ctx, node, state)
		node = &ExplodedNode{Loc: node.Loc, State: state, Pred: node.Pred}
		leaves = append(leaves, node)
	}

	walk(entry, initial)

	return leaves, ctx.Findings
}

func (e *Engine) step(ctx *CheckerContext, instr mir.Instr, state State) State {
	switch in := instr.(type) {
	case mir.Alloca:
		sym := e.Symbols.Conjure("alloca:"+in.Name, ctx.Offset, RegionInfo{Space: SpaceAlloca})
		state = state.Bind(in.Dst, LocSVal(sym))
	case mir.Call:
		for _, c := range e.Checkers {
			state = c.PreCall(ctx, &in, state)
		}

		for _, c := range e.Checkers {
			state = c.PostCall(ctx, &in, state)
		}

		var escaping []Symbol

		for _, a := range in.Args {
			if sv := state.Lookup(a); sv.IsLoc() {
				escaping = append(escaping, sv.Base)
			}
		}

		if len(escaping) > 0 {
			for _, c := range e.Checkers {
				state = c.CheckPointerEscape(ctx, state, escaping, &in)
			}
		}
	case mir.CondBr:
		cond := state.Lookup(in.Cond)
		for _, c := range e.Checkers {
			state = c.EvalAssume(ctx, state, cond, true)
		}
	case mir.Load:
		if addr := state.Lookup(in.Addr); addr.IsLoc() {
			for _, c := range e.Checkers {
				state = c.Location(ctx, state, addr, in.Pos, true)
			}
		}
	case mir.Store:
		if addr := state.Lookup(in.Addr); addr.IsLoc() {
			for _, c := range e.Checkers {
				state = c.Location(ctx, state, addr, in.Pos, false)
			}
		}
	case mir.BinOp:
		state = e.stepBinOp(in, state)
	}

	return state
}

// stepBinOp resolves pointer arithmetic of the form base +/- constant into
// an offset location via SVal.WithOffset, so a later free of the result can
// be recognized as an offset-free. Symbolic (non-constant) operands are
// left unresolved, matching this engine's general policy of only
// performing arithmetic it can do exactly.
func (e *Engine) stepBinOp(in mir.BinOp, state State) State {
	lhs := state.Lookup(in.LHS)
	rhs := state.Lookup(in.RHS)

	switch in.Op {
	case mir.OpAdd:
		switch {
		case lhs.IsLoc() && rhs.Kind == SValConcreteInt:
			return state.Bind(in.Dst, lhs.WithOffset(rhs.Int))
		case rhs.IsLoc() && lhs.Kind == SValConcreteInt:
			return state.Bind(in.Dst, rhs.WithOffset(lhs.Int))
		}
	case mir.OpSub:
		if lhs.IsLoc() && rhs.Kind == SValConcreteInt {
			return state.Bind(in.Dst, lhs.WithOffset(-rhs.Int))
		}
	}

	return state
}

func (e *Engine) endFunction(ctx *CheckerContext, node *ExplodedNode, state State) State {
	dead := e.Symbols.regions.Keys()

	for _, c := range e.Checkers {
		state = c.DeadSymbols(ctx, node, state, dead)
	}

	for _, c := range e.Checkers {
		state = c.EndFunction(ctx, state)
	}

	return state
}
