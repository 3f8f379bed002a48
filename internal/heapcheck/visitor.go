package heapcheck

import (
	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/position"
	"github.com/havenlang/havenchk/internal/symexec"
)

// VisitPath implements §4.L: walks the execution graph backward from
// leaf comparing, at each node, sym's RefRecord against the
// predecessor's, and appends a one-line note at every transition. The
// notes are returned oldest-first (allocation before release) so they
// read top-to-bottom like the rest of a diagnostic's related info.
func VisitPath(leaf *symexec.ExplodedNode, sym symexec.Symbol) []diagnostics.RelatedInformation {
	chain := leaf.Ancestors()

	var notes []diagnostics.RelatedInformation

	reallocFailedMode := false

	var prevRec RefRecord

	var havePrev bool

	for _, node := range chain {
		rec, ok := lookupRef(node.State, sym)

		switch {
		case ok && !havePrev:
			notes = append(notes, note("Memory is allocated", rec.Pos))
		case ok && havePrev && rec.State != prevRec.State:
			notes = append(notes, transitionNote(prevRec, rec)...)

			if reallocFailedMode {
				notes = append(notes, note("Reallocation failed", rec.Pos))
				reallocFailedMode = false
			} else if prevRec.State == Released && rec.State == Allocated {
				reallocFailedMode = true
			}
		}

		if ok {
			prevRec = rec
			havePrev = true
		}
	}

	return notes
}

func transitionNote(prev, cur RefRecord) []diagnostics.RelatedInformation {
	switch {
	case cur.State == Released && cur.Family == InnerBuffer:
		return []diagnostics.RelatedInformation{note("Memory is released by a container method that invalidates the inner buffer", cur.Pos)}
	case cur.State == Released:
		return []diagnostics.RelatedInformation{note("Memory is released", cur.Pos)}
	case cur.State == Relinquished:
		return []diagnostics.RelatedInformation{note("Memory ownership is transferred", cur.Pos)}
	case prev.State == Released && cur.State == Allocated:
		return []diagnostics.RelatedInformation{note("Attempt to reallocate memory", cur.Pos)}
	default:
		return nil
	}
}

func note(message string, pos position.Position) diagnostics.RelatedInformation {
	return diagnostics.RelatedInformation{Message: message, Location: spanOf(pos)}
}
