package heapcheck

import (
	"strings"

	"github.com/havenlang/havenchk/internal/mir"
)

// refCountingClassMarkers and refCountingCounterMarkers implement the
// fuzzy name-matching suppression heuristic from §4.L and §9: a
// destructor belonging to a class whose name suggests an
// intrusive/shared pointer wrapper is assumed to be reference-counting
// machinery, not a genuine leak/double-free site. Kept as its own
// swappable module per the design note, rather than folded into the
// core lifecycle state machine.
var refCountingClassMarkers = []string{"ptr", "pointer"}
var refCountingCounterMarkers = []string{"ref", "cnt", "intrusive", "shared"}

// IsLikelyRefCountingDestructor reports whether funcName looks like the
// destructor of a reference-counted smart-pointer type.
func IsLikelyRefCountingDestructor(funcName string) bool {
	lower := strings.ToLower(funcName)

	hasClassMarker := false

	for _, m := range refCountingClassMarkers {
		if strings.Contains(lower, m) {
			hasClassMarker = true

			break
		}
	}

	if !hasClassMarker {
		return false
	}

	for _, m := range refCountingCounterMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}

	return false
}

var atomicRefCountOps = map[string]bool{
	"atomic_fetch_add": true, "atomic_fetch_sub": true,
	"fetch_add": true, "fetch_sub": true,
}

// HasAtomicRefCountOp reports whether fn's body contains a call that
// looks like an atomic increment/decrement of a reference count — the
// secondary, softer signal §4.L uses alongside the naming heuristic.
func HasAtomicRefCountOp(fn *mir.Function) bool {
	if fn == nil {
		return false
	}

	for _, bb := range fn.Blocks {
		for _, instr := range bb.Instr {
			call, ok := instr.(mir.Call)
			if !ok {
				continue
			}

			name := call.Callee
			if idx := strings.LastIndex(name, "::"); idx >= 0 {
				name = name[idx+2:]
			}

			if atomicRefCountOps[name] {
				return true
			}
		}
	}

	return false
}

// SuppressAsRefCounting implements the combined heuristic gate: a
// report is suppressed when the enclosing function looks like a
// reference-counting destructor by name, and an atomic increment or
// decrement appears somewhere in that same function.
func SuppressAsRefCounting(cfg Config, fn *mir.Function) bool {
	if !cfg.SuppressRefCounting || fn == nil {
		return false
	}

	return IsLikelyRefCountingDestructor(fn.Name) && HasAtomicRefCountOp(fn)
}
