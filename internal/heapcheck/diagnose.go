package heapcheck

import (
	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/position"
	"github.com/havenlang/havenchk/internal/symexec"
)

// spanOf widens a single source position into a degenerate zero-width
// span, since MIR call/alloca sites carry only a point position.
func spanOf(pos position.Position) position.Span {
	return position.Span{Start: pos, End: pos}
}

// report appends d to the context's findings only if kind's gate is
// enabled in cfg — the modeler itself always runs regardless (§6 item
// 4), only emission is toggled.
func report(ctx *symexec.CheckerContext, cfg Config, kind BugKind, d diagnostics.Diagnostic) {
	if !kind.gatedBy(cfg) {
		return
	}

	ctx.Report(d)
}
