package heapcheck

// Config holds the checker's single optimistic-mode flag plus the five
// independent sub-checker toggles from §6. The modeler always runs;
// these toggles only gate which diagnostics are actually emitted.
type Config struct {
	// Optimistic enables recognition of the ownership_returns/takes/holds
	// attribute family during classification.
	Optimistic bool

	MallocChecker               bool
	NewDeleteChecker             bool
	NewDeleteLeaksChecker        bool
	MismatchedDeallocatorChecker bool
	InnerPointerChecker          bool

	// Platform selects the kernel-zero-flag table entry consulted by
	// PerformKernelMalloc. Empty disables the performKernelMalloc
	// special case entirely.
	Platform string

	// SuppressRefCounting toggles the reference-counting destructor
	// heuristic in the bug visitor (§4.L, §9 design note: kept as a
	// separate, swappable module).
	SuppressRefCounting bool
}

// DefaultConfig returns every sub-checker enabled, optimistic mode on,
// and the reference-counting suppression heuristic on — the posture a
// fresh `havenchk check` invocation runs with.
func DefaultConfig() Config {
	return Config{
		Optimistic:                   true,
		MallocChecker:                true,
		NewDeleteChecker:             true,
		NewDeleteLeaksChecker:        true,
		MismatchedDeallocatorChecker: true,
		InnerPointerChecker:          true,
		SuppressRefCounting:          true,
	}
}
