// Package diagnostics - predefined builders for the heap-lifecycle checker.
package diagnostics

import (
	"github.com/havenlang/havenchk/internal/position"
)

// DoubleFreeError creates a diagnostic for freeing an already-released symbol.
func DoubleFreeError(deallocator string, span position.Span) Diagnostic {
	return NewDiagnosticBuilder().
		Error().
		WithCode("M001").
		WithCategory(CategoryDoubleFree).
		WithMessage("attempt to free released memory").
		WithSpan(span).
		WithExplanationf("'%s' was called on a pointer that was already released on this path.", deallocator).
		AddManualFix("Remove the redundant call, or null out the pointer after the first release").
		AddSeeAlso("heap-lifecycle").
		Build()
}

// DoubleDeleteError creates a diagnostic for re-deleting an already-deleted object.
func DoubleDeleteError(span position.Span) Diagnostic {
	return NewDiagnosticBuilder().
		Error().
		WithCode("M002").
		WithCategory(CategoryDoubleFree).
		WithMessage("attempt to delete released memory").
		WithSpan(span).
		WithExplanation("operator delete was called on a pointer that was already deleted on this path.").
		AddSeeAlso("heap-lifecycle").
		Build()
}

// UseAfterFreeError creates a diagnostic for dereferencing a released symbol.
func UseAfterFreeError(span position.Span) Diagnostic {
	return NewDiagnosticBuilder().
		Error().
		WithCode("M003").
		WithCategory(CategoryUseAfterFree).
		WithMessage("use of memory after it is freed").
		WithSpan(span).
		WithExplanation("The pointer was dereferenced after the memory it refers to was released.").
		AddSeeAlso("heap-lifecycle").
		Build()
}

// BadFreeError creates a diagnostic for freeing something that is not heap memory.
func BadFreeError(deallocator, reason string, span position.Span) Diagnostic {
	return NewDiagnosticBuilder().
		Error().
		WithCode("M004").
		WithCategory(CategoryBadFree).
		WithMessagef("argument to '%s' is not memory allocated by %s", deallocator, reason).
		WithSpan(span).
		AddSeeAlso("heap-lifecycle").
		Build()
}

// FreeAllocaError creates a diagnostic for freeing stack memory obtained from alloca.
func FreeAllocaError(span position.Span) Diagnostic {
	return NewDiagnosticBuilder().
		Error().
		WithCode("M005").
		WithCategory(CategoryFreeAlloca).
		WithMessage("memory allocated by alloca() should not be deallocated").
		WithSpan(span).
		AddManualFix("Remove the call; alloca() memory is reclaimed automatically on return").
		AddSeeAlso("heap-lifecycle").
		Build()
}

// MismatchedDeallocatorError creates a diagnostic for pairing the wrong deallocator with an allocation family.
func MismatchedDeallocatorError(allocFamily, deallocFamily string, span position.Span) Diagnostic {
	return NewDiagnosticBuilder().
		Error().
		WithCode("M006").
		WithCategory(CategoryMismatchedDeallocator).
		WithMessagef("memory allocated with %s should be deallocated with the matching family, not %s", allocFamily, deallocFamily).
		WithSpan(span).
		AddSeeAlso("heap-lifecycle").
		Build()
}

// OffsetFreeError creates a diagnostic for freeing a pointer that was offset from its allocation base.
func OffsetFreeError(offsetBytes int64, span position.Span) Diagnostic {
	return NewDiagnosticBuilder().
		Error().
		WithCode("M007").
		WithCategory(CategoryOffsetFree).
		WithMessagef("argument is offset by %d bytes from the start of the allocated region", offsetBytes).
		WithSpan(span).
		AddSeeAlso("heap-lifecycle").
		Build()
}

// UseZeroAllocatedError creates a diagnostic for using a zero-sized allocation.
func UseZeroAllocatedError(span position.Span) Diagnostic {
	return NewDiagnosticBuilder().
		Warning().
		WithCode("M008").
		WithCategory(CategoryZeroAllocated).
		WithMessage("use of zero-allocated memory").
		WithSpan(span).
		AddSeeAlso("heap-lifecycle").
		Build()
}

// LeakError creates a diagnostic for a symbol that is still allocated at the end of its life.
func LeakError(pointerName string, span position.Span) Diagnostic {
	builder := NewDiagnosticBuilder().
		Error().
		WithCode("M009").
		WithCategory(CategoryMemoryLeak).
		WithSpan(span)

	if pointerName != "" {
		builder.WithMessagef("potential leak of memory pointed to by '%s'", pointerName)
	} else {
		builder.WithMessage("potential memory leak")
	}

	return builder.
		AddManualFix("Release the memory on every path before it goes out of scope").
		AddSeeAlso("heap-lifecycle").
		Build()
}
