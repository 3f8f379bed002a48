package heapcheck

import (
	"testing"
	"unsafe"

	"github.com/havenlang/havenchk/internal/allocator"
	"github.com/havenlang/havenchk/internal/mir"
	"github.com/havenlang/havenchk/internal/symexec"
)

// concreteAllocatorConfig mirrors the package's own default tuning without
// reaching for the unexported defaultConfig constructor.
func concreteAllocatorConfig() *allocator.Config {
	return &allocator.Config{
		EnableTracking: true,
		AlignmentSize:  8,
		MemoryLimit:    1024 * 1024 * 1024,
	}
}

// stepKind distinguishes the three call shapes a sequence step can take.
type stepKind int

const (
	kMalloc stepKind = iota
	kFree
	kRealloc
)

// step is one line of a malloc/free/realloc call sequence, driven through
// both the symbolic checker and a concrete SystemAllocatorImpl side by side.
type step struct {
	kind stepKind
	dst  string // symbol bound by this step, if any
	src  string // symbol consumed by this step (free/realloc target), if any
	size int64
}

func buildSequenceFunction(name string, seq []step) *mir.Function {
	var instrs []mir.Instr

	for _, s := range seq {
		switch s.kind {
		case kMalloc:
			instrs = append(instrs, mallocCall(s.dst, s.size))
		case kFree:
			instrs = append(instrs, freeCall(s.src))
		case kRealloc:
			instrs = append(instrs, mir.Call{
				Dst:    s.dst,
				Callee: "realloc",
				Args: []mir.Value{
					{Kind: mir.ValRef, Ref: s.src},
					{Kind: mir.ValConstInt, Int64: s.size},
				},
			})
		}
	}

	instrs = append(instrs, mir.Ret{})

	return &mir.Function{Name: name, Blocks: []*mir.BasicBlock{{Name: "entry", Instr: instrs}}}
}

// runConcrete drives the same call sequence through a real allocator,
// tracking symbol name -> live pointer, and returns the allocator's
// ActiveAllocations() count after the sequence completes.
func runConcrete(t *testing.T, seq []step) int {
	t.Helper()

	sa := allocator.NewSystemAllocator(concreteAllocatorConfig())
	live := make(map[string]unsafe.Pointer)

	for _, s := range seq {
		switch s.kind {
		case kMalloc:
			live[s.dst] = sa.Alloc(uintptr(s.size))
		case kFree:
			sa.Free(live[s.src])
			delete(live, s.src)
		case kRealloc:
			live[s.dst] = sa.Realloc(live[s.src], uintptr(s.size))
			if s.dst != s.src {
				delete(live, s.src)
			}
		}
	}

	return sa.ActiveAllocations()
}

// liveSymbolCount counts the tracked-region symbols still
// Allocated/AllocatedOfSizeZero right after the sequence's last
// instruction, before ModelDeadSymbols runs at function end and clears
// the region table wholesale (it reports each live entry as a leak and
// removes every entry, dead or not, in the same pass). The engine keeps
// that pre-endFunction state reachable as the returned leaf's
// predecessor, so this reads leaves[0].Pred.State rather than
// leaves[0].State.
func liveSymbolCount(t *testing.T, fn *mir.Function) int {
	t.Helper()

	mod := &mir.Module{Functions: []*mir.Function{fn}}
	checker := NewChecker(DefaultConfig(), mod)
	engine := symexec.NewEngine(checker)

	leaves, _ := engine.Run(fn)
	if len(leaves) != 1 {
		t.Fatalf("expected a single straight-line leaf, got %d", len(leaves))
	}

	if leaves[0].Pred == nil {
		t.Fatal("leaf has no pre-endFunction predecessor")
	}

	count := 0

	regionTable(leaves[0].Pred.State).Range(func(_ symexec.Symbol, rec RefRecord) bool {
		if rec.State.Live() {
			count++
		}

		return true
	})

	return count
}

// TestSymbolicLifecycleMatchesConcreteAllocator drives the same
// malloc/free/realloc sequence through the symbolic checker and through a
// real allocator.SystemAllocatorImpl and asserts that how many allocations
// the symbolic state still considers live agrees with how many the
// concrete allocator still considers active, at the end of each sequence.
func TestSymbolicLifecycleMatchesConcreteAllocator(t *testing.T) {
	cases := []struct {
		name string
		seq  []step
		want int
	}{
		{
			name: "single allocation freed",
			seq: []step{
				{kind: kMalloc, dst: "p", size: 8},
				{kind: kFree, src: "p"},
			},
			want: 0,
		},
		{
			name: "single allocation leaked",
			seq: []step{
				{kind: kMalloc, dst: "p", size: 8},
			},
			want: 1,
		},
		{
			name: "two allocations one freed",
			seq: []step{
				{kind: kMalloc, dst: "p", size: 8},
				{kind: kMalloc, dst: "q", size: 16},
				{kind: kFree, src: "p"},
			},
			want: 1,
		},
		{
			name: "realloc then free",
			seq: []step{
				{kind: kMalloc, dst: "p", size: 8},
				{kind: kRealloc, dst: "p2", src: "p", size: 32},
				{kind: kFree, src: "p2"},
			},
			want: 0,
		},
		{
			name: "realloc leaked",
			seq: []step{
				{kind: kMalloc, dst: "p", size: 8},
				{kind: kRealloc, dst: "p2", src: "p", size: 32},
			},
			want: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fn := buildSequenceFunction(tc.name, tc.seq)

			gotSymbolic := liveSymbolCount(t, fn)
			if gotSymbolic != tc.want {
				t.Fatalf("symbolic live count = %d, want %d", gotSymbolic, tc.want)
			}

			gotConcrete := runConcrete(t, tc.seq)
			if gotConcrete != tc.want {
				t.Fatalf("concrete ActiveAllocations() = %d, want %d", gotConcrete, tc.want)
			}
		})
	}
}
