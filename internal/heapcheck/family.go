package heapcheck

import "github.com/havenlang/havenchk/internal/mir"

// AllocationFamily tags the allocator lineage of a call. Family pairing
// is enforced at free time: free pairs with Malloc, not CXXNew.
type AllocationFamily int

const (
	AllocationFamilyNone AllocationFamily = iota
	Malloc
	CXXNew
	CXXNewArray
	IfNameIndex
	Alloca
	InnerBuffer
)

func (f AllocationFamily) String() string {
	switch f {
	case Malloc:
		return "malloc"
	case CXXNew:
		return "new"
	case CXXNewArray:
		return "new[]"
	case IfNameIndex:
		return "if_nameindex"
	case Alloca:
		return "alloca"
	case InnerBuffer:
		return "inner-buffer"
	default:
		return "none"
	}
}

// OperationKind filters a classify query to only allocating calls, only
// freeing calls, or either.
type OperationKind int

const (
	OpAny OperationKind = iota
	OpAllocate
	OpFree
)

// mallocAllocators and mallocDeallocators list the malloc family's
// callee identifiers, split by operation so Free/Allocate filtering is a
// simple set lookup rather than a second classification pass.
var mallocAllocators = map[string]bool{
	"malloc": true, "calloc": true, "realloc": true, "reallocf": true,
	"valloc": true, "strdup": true, "strndup": true, "wcsdup": true,
	"kmalloc": true,
	"g_malloc": true, "g_malloc0": true, "g_realloc": true,
	"g_try_malloc": true, "g_try_malloc0": true, "g_try_realloc": true,
	"g_memdup": true,
	"g_malloc_n": true, "g_malloc0_n": true, "g_realloc_n": true,
	"g_try_malloc_n": true, "g_try_malloc0_n": true, "g_try_realloc_n": true,
}

var mallocDeallocators = map[string]bool{
	"free": true, "kfree": true, "g_free": true,
}

var ifNameIndexAllocators = map[string]bool{"if_nameindex": true}
var ifNameIndexDeallocators = map[string]bool{"if_freenameindex": true}

var allocaAllocators = map[string]bool{"alloca": true, "_alloca": true}

// platformZeroFlag maps a platform tag to the bitmask that, when set in
// a kmalloc-style third argument, requests zero-initialization.
var platformZeroFlag = map[string]int64{
	"freebsd": 0x0100,
	"netbsd":  0x0002,
	"openbsd": 0x0008,
	"linux":   0x8000, // __GFP_ZERO
}

// RegisterMallocAlias extends the malloc-family classifier with an
// additional allocator or deallocator name, typically loaded from a
// versioned rule pack (internal/rules) for platform-specific allocator
// APIs the built-in tables don't already cover (e.g. a kernel's own
// k-prefixed allocator family).
func RegisterMallocAlias(name string, isDeallocator bool) {
	if isDeallocator {
		mallocDeallocators[name] = true
	} else {
		mallocAllocators[name] = true
	}
}

func stripUnderscore(name string) (string, bool) {
	if len(name) > 1 && name[0] == '_' {
		return name[1:], true
	}

	return name, false
}

// Classify returns the allocation family a call belongs to, filtered by
// op, or AllocationFamilyNone if it matches nothing. optimistic enables
// recognition of ownership_returns/takes/holds attributes for the
// "malloc" module.
func Classify(call *mir.Call, op OperationKind, optimistic bool) AllocationFamily {
	if call == nil {
		return AllocationFamilyNone
	}

	if fam, matched := classifyNewDelete(call); matched {
		return filterOp(fam, op, isNewDeleteAlloc(call))
	}

	name, _ := stripUnderscore(call.Callee)

	if op != OpFree && mallocAllocators[name] {
		return Malloc
	}

	if op != OpAllocate && mallocDeallocators[name] {
		return Malloc
	}

	if op != OpFree && ifNameIndexAllocators[name] {
		return IfNameIndex
	}

	if op != OpAllocate && ifNameIndexDeallocators[name] {
		return IfNameIndex
	}

	if op != OpFree && allocaAllocators[name] {
		return Alloca
	}

	if optimistic && call.Ownership != nil && call.Ownership.Module == "malloc" {
		switch call.Ownership.Kind {
		case "returns":
			if op != OpFree {
				return Malloc
			}
		case "takes", "holds":
			if op != OpAllocate {
				return Malloc
			}
		}
	}

	return AllocationFamilyNone
}

// classifyNewDelete recognizes the four overloaded new/delete operators,
// but only when their definition site is a system header — a
// user-overloaded operator new/delete is not a tracked allocation site.
func classifyNewDelete(call *mir.Call) (AllocationFamily, bool) {
	if !call.InSystemHeader {
		return AllocationFamilyNone, false
	}

	switch call.Kind {
	case mir.CallNew:
		return CXXNew, true
	case mir.CallNewArray:
		return CXXNewArray, true
	case mir.CallDelete:
		return CXXNew, true
	case mir.CallDeleteArray:
		return CXXNewArray, true
	default:
		return AllocationFamilyNone, false
	}
}

func isNewDeleteAlloc(call *mir.Call) bool {
	return call.Kind == mir.CallNew || call.Kind == mir.CallNewArray
}

func filterOp(fam AllocationFamily, op OperationKind, isAlloc bool) AllocationFamily {
	switch op {
	case OpAllocate:
		if isAlloc {
			return fam
		}

		return AllocationFamilyNone
	case OpFree:
		if !isAlloc {
			return fam
		}

		return AllocationFamilyNone
	default:
		return fam
	}
}

// kernelZeroFlag returns the zero-initialization bitmask for platform,
// and whether the platform is recognized. Platforms outside the table
// are ignored, per spec.
func kernelZeroFlag(platform string) (int64, bool) {
	v, ok := platformZeroFlag[platform]

	return v, ok
}
