package heapcheck

import (
	"testing"

	"github.com/havenlang/havenchk/internal/mir"
)

func TestIsLikelyRefCountingDestructor(t *testing.T) {
	cases := map[string]bool{
		"SharedPtr::~SharedPtr":     true,
		"IntrusivePointer_release":  true,
		"RefCnt_dtor":               false,
		"~Widget":                   false,
		"free_buffer":               false,
		"PointerList::removeAll":    false,
	}

	for name, want := range cases {
		if got := IsLikelyRefCountingDestructor(name); got != want {
			t.Errorf("IsLikelyRefCountingDestructor(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestHasAtomicRefCountOp(t *testing.T) {
	fn := &mir.Function{
		Blocks: []*mir.BasicBlock{
			{Instr: []mir.Instr{mir.Call{Callee: "RefCnt::fetch_sub"}}},
		},
	}

	if !HasAtomicRefCountOp(fn) {
		t.Fatal("expected HasAtomicRefCountOp to find fetch_sub")
	}

	plain := &mir.Function{Blocks: []*mir.BasicBlock{{Instr: []mir.Instr{mir.Call{Callee: "free"}}}}}
	if HasAtomicRefCountOp(plain) {
		t.Fatal("expected no atomic ref-count op in a plain free")
	}

	if HasAtomicRefCountOp(nil) {
		t.Fatal("HasAtomicRefCountOp(nil) = true")
	}
}

func TestSuppressAsRefCountingRequiresBothSignals(t *testing.T) {
	fn := &mir.Function{
		Name:   "IntrusivePtr_release",
		Blocks: []*mir.BasicBlock{{Instr: []mir.Instr{mir.Call{Callee: "fetch_sub"}}}},
	}

	cfg := Config{SuppressRefCounting: true}
	if !SuppressAsRefCounting(cfg, fn) {
		t.Fatal("expected suppression with matching name and atomic op")
	}

	cfg.SuppressRefCounting = false
	if SuppressAsRefCounting(cfg, fn) {
		t.Fatal("expected no suppression when the toggle is off")
	}

	noAtomic := &mir.Function{Name: "IntrusivePtr_release"}
	if SuppressAsRefCounting(Config{SuppressRefCounting: true}, noAtomic) {
		t.Fatal("expected no suppression without an atomic ref-count op")
	}
}

// TestLeakSuppressedForRefCountingDestructor exercises the heuristic
// end to end: a function named like an intrusive-pointer destructor
// that also performs an atomic decrement should not be reported as
// leaking its still-tracked symbol.
func TestLeakSuppressedForRefCountingDestructor(t *testing.T) {
	fn := &mir.Function{
		Name: "IntrusivePtr_release",
		Blocks: []*mir.BasicBlock{
			{
				Name: "entry",
				Instr: []mir.Instr{
					mallocCall("p", 8),
					mir.Call{Callee: "fetch_sub"},
					mir.Ret{},
				},
			},
		},
	}

	_, codes := runFunc(DefaultConfig(), fn)
	if len(codes) != 0 {
		t.Fatalf("codes = %v, want none (ref-counting destructor heuristic should suppress the leak)", codes)
	}
}
