package heapcheck

import "github.com/havenlang/havenchk/internal/symexec"

// ApplyAssumption implements §4.K: whenever the engine narrows a path
// by assuming a symbol equal to null, any region-table entry for that
// symbol is dropped (the allocation is proven to have failed, so it is
// not a leak), and any realloc-pair entry whose "to" symbol is proven
// null restores the "from" symbol per its ownership policy.
func ApplyAssumption(state symexec.State) symexec.State {
	region := regionTable(state)

	for _, sym := range region.Keys() {
		if state.Constraints.IsNull(sym) == symexec.True {
			state = removeRef(state, sym)
		}
	}

	pairs := reallocTable(state)

	for _, toSym := range pairs.Keys() {
		entry, ok := pairs.Get(toSym)
		if !ok {
			continue
		}

		if state.Constraints.IsNull(toSym) != symexec.True {
			continue
		}

		switch entry.Policy {
		case ToBeFreedAfterFailure:
			if rec, ok := lookupRef(state, entry.From); ok {
				rec.State = Allocated
				state = setRef(state, entry.From, rec)
			}
		case DoNotTrackAfterFailure:
			state = removeRef(state, entry.From)
		case FreeOnFailure:
			// fromSym stays Released; nothing to restore.
		}

		state = withReallocTable(state, reallocTable(state).Delete(toSym))
	}

	return state
}
