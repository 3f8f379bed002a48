package symexec

import (
	"testing"

	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/mir"
	"github.com/havenlang/havenchk/internal/position"
)

// recordingChecker is a minimal Checker used to assert the engine dispatches
// each hook at the right point, without pulling in internal/heapcheck.
type recordingChecker struct {
	calls      []string
	deadTotal  int
	reportOnce bool
}

func (r *recordingChecker) Name() string { return "recording" }

func (r *recordingChecker) PreCall(ctx *CheckerContext, call *mir.Call, state State) State {
	r.calls = append(r.calls, "PreCall:"+call.Callee)

	return state
}

func (r *recordingChecker) PostCall(ctx *CheckerContext, call *mir.Call, state State) State {
	r.calls = append(r.calls, "PostCall:"+call.Callee)

	if call.Dst != "" {
		sym := ctx.Engine.Symbols.Conjure(call.Callee, ctx.Offset, RegionInfo{Space: SpaceHeap})
		state = state.Bind(call.Dst, LocSVal(sym))

		if !r.reportOnce {
			r.reportOnce = true

			ctx.Report(diagnostics.Diagnostic{Message: "synthetic finding"})
		}
	}

	return state
}

func (r *recordingChecker) DeadSymbols(ctx *CheckerContext, node *ExplodedNode, state State, dead []Symbol) State {
	r.calls = append(r.calls, "DeadSymbols")
	r.deadTotal += len(dead)

	return state
}

func (r *recordingChecker) EvalAssume(ctx *CheckerContext, state State, cond SVal, truth bool) State {
	r.calls = append(r.calls, "EvalAssume")

	return state
}

func (r *recordingChecker) CheckPointerEscape(ctx *CheckerContext, state State, escaping []Symbol, call *mir.Call) State {
	r.calls = append(r.calls, "CheckPointerEscape")

	return state
}

func (r *recordingChecker) CheckConstPointerEscape(ctx *CheckerContext, state State, escaping []Symbol) State {
	r.calls = append(r.calls, "CheckConstPointerEscape")

	return state
}

func (r *recordingChecker) Location(ctx *CheckerContext, state State, loc SVal, pos position.Position, isLoad bool) State {
	r.calls = append(r.calls, "Location")

	return state
}

func (r *recordingChecker) EndFunction(ctx *CheckerContext, state State) State {
	r.calls = append(r.calls, "EndFunction")

	return state
}

func (r *recordingChecker) PrintState(state State) string { return "" }

func straightLineFunc() *mir.Function {
	return &mir.Function{
		Name: "f",
		Blocks: []*mir.BasicBlock{
			{
				Name: "entry",
				Instr: []mir.Instr{
					mir.Call{Dst: "p", Callee: "malloc", Args: []mir.Value{{Kind: mir.ValConstInt, Int64: 8}}},
					mir.Ret{},
				},
			},
		},
	}
}

func TestEngineRunDispatchesCallHooks(t *testing.T) {
	rc := &recordingChecker{}
	e := NewEngine(rc)

	leaves, findings := e.Run(straightLineFunc())

	if len(leaves) != 1 {
		t.Fatalf("leaves = %d, want 1", len(leaves))
	}

	if len(findings) != 1 || findings[0].Message != "synthetic finding" {
		t.Fatalf("findings = %+v", findings)
	}

	wantPrefix := []string{"PreCall:malloc", "PostCall:malloc"}
	for i, want := range wantPrefix {
		if i >= len(rc.calls) || rc.calls[i] != want {
			t.Fatalf("calls[%d] = %v, want %q (calls: %v)", i, rc.calls, want, rc.calls)
		}
	}

	if rc.calls[len(rc.calls)-1] != "EndFunction" {
		t.Fatalf("last call = %q, want EndFunction", rc.calls[len(rc.calls)-1])
	}
}

func TestEngineRunBranching(t *testing.T) {
	fn := &mir.Function{
		Name: "branchy",
		Blocks: []*mir.BasicBlock{
			{
				Name: "entry",
				Instr: []mir.Instr{
					mir.Cmp{Dst: "c", Pred: mir.CmpEQ, LHS: mir.Value{Kind: mir.ValConstInt, Int64: 1}, RHS: mir.Value{Kind: mir.ValConstInt}},
					mir.CondBr{Cond: mir.Value{Kind: mir.ValRef, Ref: "c"}, True: "then", False: "else"},
				},
			},
			{Name: "then", Instr: []mir.Instr{mir.Ret{}}},
			{Name: "else", Instr: []mir.Instr{mir.Ret{}}},
		},
	}

	rc := &recordingChecker{}
	e := NewEngine(rc)

	leaves, _ := e.Run(fn)

	if len(leaves) != 2 {
		t.Fatalf("leaves = %d, want 2 (one per branch)", len(leaves))
	}
}

func TestEngineRunNilFunction(t *testing.T) {
	e := NewEngine(&recordingChecker{})

	leaves, findings := e.Run(nil)
	if leaves != nil || findings != nil {
		t.Fatalf("Run(nil) = %v, %v; want nil, nil", leaves, findings)
	}
}

func TestEngineRunEmptyBlocks(t *testing.T) {
	e := NewEngine(&recordingChecker{})

	leaves, _ := e.Run(&mir.Function{Name: "empty"})
	if leaves != nil {
		t.Fatalf("Run on function with no blocks returned %d leaves, want 0", len(leaves))
	}
}

func TestEngineCheckersRunInRegistrationOrder(t *testing.T) {
	var order []string

	first := &orderChecker{name: "first", order: &order}
	second := &orderChecker{name: "second", order: &order}

	e := NewEngine(first, second)
	e.Run(straightLineFunc())

	want := []string{"first:PreCall", "second:PreCall", "first:PostCall", "second:PostCall"}
	for i, w := range want {
		if i >= len(order) || order[i] != w {
			t.Fatalf("order = %v, want prefix %v", order, want)
		}
	}
}

// orderChecker records only the relative order PreCall/PostCall fire in,
// to verify the engine dispatches checkers in registration order.
type orderChecker struct {
	name  string
	order *[]string
}

func (o *orderChecker) Name() string { return o.name }
func (o *orderChecker) PreCall(ctx *CheckerContext, call *mir.Call, state State) State {
	*o.order = append(*o.order, o.name+":PreCall")

	return state
}
func (o *orderChecker) PostCall(ctx *CheckerContext, call *mir.Call, state State) State {
	*o.order = append(*o.order, o.name+":PostCall")

	return state
}
func (o *orderChecker) DeadSymbols(ctx *CheckerContext, node *ExplodedNode, state State, dead []Symbol) State {
	return state
}
func (o *orderChecker) EvalAssume(ctx *CheckerContext, state State, cond SVal, truth bool) State {
	return state
}
func (o *orderChecker) CheckPointerEscape(ctx *CheckerContext, state State, escaping []Symbol, call *mir.Call) State {
	return state
}
func (o *orderChecker) CheckConstPointerEscape(ctx *CheckerContext, state State, escaping []Symbol) State {
	return state
}
func (o *orderChecker) Location(ctx *CheckerContext, state State, loc SVal, pos position.Position, isLoad bool) State {
	return state
}
func (o *orderChecker) EndFunction(ctx *CheckerContext, state State) State { return state }
func (o *orderChecker) PrintState(state State) string                     { return "" }
