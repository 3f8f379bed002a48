package heapcheck

import (
	"strings"

	"github.com/havenlang/havenchk/internal/mir"
	"github.com/havenlang/havenchk/internal/symexec"
)

// EscapeDecision is the result of evaluating §4.I's escape policy for
// one call.
type EscapeDecision struct {
	Escapes  bool // the tracked symbol(s) should stop being claimed about
	Transfer bool // ownership was actually handed off (Relinquished, not merely Escaped)
}

var unconditionalEscapers = map[string]bool{
	"CFAllocatorAllocate": true,
	"CFStringCreateWithCStringNoCopy": true,
}

var noCopySelectors = map[string]bool{
	"dataWithBytesNoCopy:length:freeWhenDone:": true,
	"initWithBytesNoCopy:length:freeWhenDone:": true,
}

var pointerContainerPrefixes = []string{"addPointer", "insertPointer", "replacePointer"}

// EvaluateEscape implements §4.I's decision for a single call, given
// that cls is the call's own allocation-family classification (None if
// the call is not itself a recognized allocator).
func EvaluateEscape(call *mir.Call, cls AllocationFamily) EscapeDecision {
	switch call.Kind {
	case mir.CallObjCMessage:
		return evaluateObjC(call)
	case mir.CallBlock:
		return EscapeDecision{Escapes: true}
	default:
		if call.CalleeVal != nil {
			// Indirect/function-pointer call: pessimistically assume escape.
			return EscapeDecision{Escapes: true}
		}

		return evaluatePlainCall(call, cls)
	}
}

func evaluateObjC(call *mir.Call) EscapeDecision {
	if !call.InSystemHeader || call.MayEscape {
		return EscapeDecision{Escapes: true}
	}

	if noCopySelectors[call.Selector] {
		if call.FreeWhenDone != nil {
			return EscapeDecision{Escapes: true, Transfer: *call.FreeWhenDone}
		}

		if strings.HasSuffix(firstSelectorSlot(call.Selector), "NoCopy") {
			return EscapeDecision{Escapes: true, Transfer: true}
		}

		return EscapeDecision{Escapes: true}
	}

	for _, prefix := range pointerContainerPrefixes {
		if strings.HasPrefix(call.Selector, prefix) {
			return EscapeDecision{Escapes: true}
		}
	}

	if call.Selector == "valueWithPointer:" {
		return EscapeDecision{Escapes: true}
	}

	if call.Selector == "init" || strings.HasPrefix(call.Selector, "init") {
		return EscapeDecision{Escapes: true}
	}

	return EscapeDecision{}
}

func firstSelectorSlot(selector string) string {
	if idx := strings.Index(selector, ":"); idx >= 0 {
		return selector[:idx]
	}

	return selector
}

func evaluatePlainCall(call *mir.Call, cls AllocationFamily) EscapeDecision {
	if cls != AllocationFamilyNone {
		return EscapeDecision{}
	}

	if !call.InSystemHeader {
		return EscapeDecision{Escapes: true}
	}

	name := call.Callee

	if strings.HasSuffix(name, "NoCopy") {
		return EscapeDecision{Escapes: true}
	}

	if name == "funopen" {
		return EscapeDecision{}
	}

	switch name {
	case "setbuf", "setbuffer", "setlinebuf", "setvbuf":
		if len(call.Args) > 1 && call.Args[1].Kind == mir.ValRef && strings.HasPrefix(call.Args[1].Ref, "std") {
			return EscapeDecision{Escapes: true}
		}

		return EscapeDecision{}
	}

	if unconditionalEscapers[name] {
		return EscapeDecision{Escapes: true}
	}

	return EscapeDecision{}
}

// ApplyEscape transitions sym's RefRecord per decision, if it is
// currently Allocated or AllocatedOfSizeZero.
func ApplyEscape(ctx *symexec.CheckerContext, state symexec.State, sym symexec.Symbol, decision EscapeDecision) symexec.State {
	if !decision.Escapes {
		return state
	}

	rec, ok := lookupRef(state, sym)
	if !ok || !rec.State.Live() {
		return state
	}

	rec.Origin = originOf(ctx)
	if decision.Transfer {
		rec.State = Relinquished
	} else {
		rec.State = Escaped
	}

	return setRef(state, sym, rec)
}

// ApplyConstEscape is the const-pointer-argument variant: only CXXNew
// and CXXNewArray families may escape through a const pointer, since
// delete accepts a const pointer but free does not.
func ApplyConstEscape(ctx *symexec.CheckerContext, state symexec.State, sym symexec.Symbol, decision EscapeDecision) symexec.State {
	rec, ok := lookupRef(state, sym)
	if !ok {
		return state
	}

	if rec.Family != CXXNew && rec.Family != CXXNewArray {
		return state
	}

	return ApplyEscape(ctx, state, sym, decision)
}
