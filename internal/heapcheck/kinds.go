// Package heapcheck is a path-sensitive symbolic checker for
// memory-management defects: double free, use-after-free, mismatched
// allocator/deallocator pairing, free of non-heap memory, offset free,
// use of a zero-sized allocation, and leaks. It is a state-extension
// plugin written against the internal/symexec engine contract: it
// contributes a per-symbol lifecycle state machine, transitions driven
// by call patterns, and leak reports with allocation-site backtraces.
package heapcheck

import "github.com/havenlang/havenchk/internal/diagnostics"

// BugKind distinguishes the checker's diagnostic taxonomy entries. Each
// kind is gated by one or more sub-checker toggles (see Config) and maps
// to exactly one diagnostics.DiagnosticCategory.
type BugKind int

const (
	BugDoubleFree BugKind = iota
	BugDoubleDelete
	BugUseAfterFree
	BugBadFree
	BugFreeAlloca
	BugMismatchedDealloc
	BugOffsetFree
	BugUseZeroAllocated
	BugLeak
)

// String names a bug kind for logging.
func (k BugKind) String() string {
	switch k {
	case BugDoubleFree:
		return "DoubleFree"
	case BugDoubleDelete:
		return "DoubleDelete"
	case BugUseAfterFree:
		return "UseAfterFree"
	case BugBadFree:
		return "BadFree"
	case BugFreeAlloca:
		return "FreeAlloca"
	case BugMismatchedDealloc:
		return "MismatchedDealloc"
	case BugOffsetFree:
		return "OffsetFree"
	case BugUseZeroAllocated:
		return "UseZeroAllocated"
	case BugLeak:
		return "Leak"
	default:
		return "Unknown"
	}
}

// category maps a bug kind to its diagnostics category. The report
// builders set each diagnostic's category directly and do not call it.
func (k BugKind) category() diagnostics.DiagnosticCategory {
	switch k {
	case BugDoubleFree, BugDoubleDelete:
		return diagnostics.CategoryDoubleFree
	case BugUseAfterFree:
		return diagnostics.CategoryUseAfterFree
	case BugBadFree:
		return diagnostics.CategoryBadFree
	case BugFreeAlloca:
		return diagnostics.CategoryFreeAlloca
	case BugMismatchedDealloc:
		return diagnostics.CategoryMismatchedDeallocator
	case BugOffsetFree:
		return diagnostics.CategoryOffsetFree
	case BugUseZeroAllocated:
		return diagnostics.CategoryZeroAllocated
	case BugLeak:
		return diagnostics.CategoryMemoryLeak
	default:
		return diagnostics.CategoryMemoryLeak
	}
}

// gatedBy reports which Config toggle(s) must be enabled for this bug
// kind to actually surface as a diagnostic. The modeler always runs
// regardless of toggles; only emission is gated, per spec §6 item 4.
func (k BugKind) gatedBy(cfg Config) bool {
	switch k {
	case BugDoubleFree, BugBadFree, BugOffsetFree, BugUseZeroAllocated:
		return cfg.MallocChecker || cfg.NewDeleteChecker
	case BugDoubleDelete:
		return cfg.NewDeleteChecker
	case BugUseAfterFree:
		return cfg.MallocChecker || cfg.NewDeleteChecker || cfg.InnerPointerChecker
	case BugFreeAlloca:
		return cfg.MallocChecker || cfg.MismatchedDeallocatorChecker
	case BugMismatchedDealloc:
		return cfg.MismatchedDeallocatorChecker
	case BugLeak:
		return cfg.MallocChecker || cfg.NewDeleteLeaksChecker
	default:
		return false
	}
}
