package symexec

import (
	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/mir"
	"github.com/havenlang/havenchk/internal/position"
)

// CheckerContext is passed to every Checker callback. It identifies the
// current program location and collects diagnostics a checker emits along
// the way; the engine flushes Findings back to the caller once Run
// completes.
type CheckerContext struct {
	Engine *Engine
	Func   string
	Block  string
	Offset int

	Findings []diagnostics.Diagnostic
}

// Report records a diagnostic against the current location.
func (c *CheckerContext) Report(d diagnostics.Diagnostic) {
	c.Findings = append(c.Findings, d)
}

// Checker is the interface internal/heapcheck (and any future checker)
// implements to plug into the engine. Every hook receives the
// pre-callback state and returns the (possibly unchanged) post-callback
// state, exactly as the host contract's callback chain composes: each
// registered checker's result feeds the next checker in registration
// order.
type Checker interface {
	// Name identifies the checker for diagnostics and logging.
	Name() string

	// PreCall runs before a call's return value is bound, letting a
	// checker veto or annotate based on arguments alone (e.g. detecting
	// a free-alloca before the call even resolves to a symbol).
	PreCall(ctx *CheckerContext, call *mir.Call, state State) State

	// PostCall runs after a call, with its destination free to be bound
	// to a newly conjured symbol (e.g. the result of malloc).
	PostCall(ctx *CheckerContext, call *mir.Call, state State) State

	// DeadSymbols runs when a set of symbols goes out of scope, the hook
	// a leak checker uses to report. node is the exploded-graph leaf the
	// symbols died at, letting a checker walk backward to each symbol's
	// allocation site for diagnostic uniquing.
	DeadSymbols(ctx *CheckerContext, node *ExplodedNode, state State, dead []Symbol) State

	// EvalAssume runs when a branch condition is assumed true or false
	// along the explored path.
	EvalAssume(ctx *CheckerContext, state State, cond SVal, truth bool) State

	// CheckPointerEscape runs when a symbol is passed to a call the
	// engine cannot fully model, and may therefore free or retain it.
	CheckPointerEscape(ctx *CheckerContext, state State, escaping []Symbol, call *mir.Call) State

	// CheckConstPointerEscape is the const-qualified-argument variant of
	// CheckPointerEscape: escaping through a const pointer parameter
	// does not by itself imply a release.
	CheckConstPointerEscape(ctx *CheckerContext, state State, escaping []Symbol) State

	// Location runs whenever a pointer value is dereferenced (mir.Load or
	// mir.Store), the hook a use-after-free/use-of-zero-allocation
	// checker uses to inspect the symbol behind loc. isLoad distinguishes
	// a read from a write.
	Location(ctx *CheckerContext, state State, loc SVal, pos position.Position, isLoad bool) State

	// EndFunction runs once at every return/fall-off-the-end path,
	// letting a checker flag leaks of anything still live in scope.
	EndFunction(ctx *CheckerContext, state State) State

	// PrintState renders a checker's own trait-map contents for
	// debugging.
	PrintState(state State) string
}
