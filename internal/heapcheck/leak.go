package heapcheck

import (
	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/symexec"
)

// ModelDeadSymbols implements §4.J. For every dead symbol still
// Allocated/AllocatedOfSizeZero, it is collected as a leak candidate
// (Alloca-family symbols are exempt: function return reclaims the
// stack). Realloc-pair and free-return-value entries mentioning any
// dead symbol are dropped regardless of the owning symbol's state.
func ModelDeadSymbols(ctx *symexec.CheckerContext, cfg Config, leaf *symexec.ExplodedNode, state symexec.State, dead []symexec.Symbol) symexec.State {
	deadSet := make(map[symexec.Symbol]bool, len(dead))
	for _, d := range dead {
		deadSet[d] = true
	}

	for _, sym := range dead {
		rec, ok := lookupRef(state, sym)
		state = removeRef(state, sym)

		if !ok || !rec.State.Live() || rec.Family == Alloca {
			continue
		}

		site := findAllocationSite(leaf, sym)
		pos := rec.Pos

		if site != nil {
			if siteRec, ok := lookupRef(site.State, sym); ok {
				pos = siteRec.Pos
			}
		}

		report(ctx, cfg, BugLeak, diagnostics.LeakError(pointerNameOf(sym), spanOf(pos)))
	}

	state = withReallocTable(state, dropMentioning(reallocTable(state), deadSet))
	state = withFreeReturnTable(state, dropMentioningValue(freeReturnTable(state), deadSet))

	return state
}

// findAllocationSite implements §4.J.1: walk the exploded graph
// backward from leaf, stopping at the last ancestor whose state still
// tracks sym in the region table. That ancestor is the allocation
// site, used to unique identical leaks reached via different execution
// prefixes.
func findAllocationSite(leaf *symexec.ExplodedNode, sym symexec.Symbol) *symexec.ExplodedNode {
	var last *symexec.ExplodedNode

	for cur := leaf; cur != nil; cur = cur.Pred {
		if _, ok := lookupRef(cur.State, sym); ok {
			last = cur
		} else if last != nil {
			break
		}
	}

	return last
}

func pointerNameOf(sym symexec.Symbol) string {
	return string(sym)
}

func dropMentioning(t symexec.PMap[symexec.Symbol, ReallocEntry], dead map[symexec.Symbol]bool) symexec.PMap[symexec.Symbol, ReallocEntry] {
	for _, k := range t.Keys() {
		if dead[k] {
			t = t.Delete(k)

			continue
		}

		if v, ok := t.Get(k); ok && dead[v.From] {
			t = t.Delete(k)
		}
	}

	return t
}

func dropMentioningValue(t symexec.PMap[symexec.Symbol, symexec.Symbol], dead map[symexec.Symbol]bool) symexec.PMap[symexec.Symbol, symexec.Symbol] {
	for _, k := range t.Keys() {
		if dead[k] {
			t = t.Delete(k)

			continue
		}

		if v, ok := t.Get(k); ok && dead[v] {
			t = t.Delete(k)
		}
	}

	return t
}
