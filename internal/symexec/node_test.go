package symexec

import "testing"

func buildChain() *ExplodedNode {
	n0 := &ExplodedNode{Loc: Location{Func: "f", Block: "entry", Offset: 0}}
	n1 := &ExplodedNode{Loc: Location{Func: "f", Block: "entry", Offset: 1}, Pred: n0}
	n2 := &ExplodedNode{Loc: Location{Func: "f", Block: "entry", Offset: 2}, Pred: n1}

	return n2
}

func TestExplodedNodeAncestorsEntryFirst(t *testing.T) {
	n2 := buildChain()

	chain := n2.Ancestors()
	if len(chain) != 3 {
		t.Fatalf("Ancestors() len = %d, want 3", len(chain))
	}

	if chain[0].Loc.Offset != 0 || chain[2].Loc.Offset != 2 {
		t.Fatalf("Ancestors() not entry-first: %+v", chain)
	}
}

func TestExplodedNodeFindLast(t *testing.T) {
	n2 := buildChain()

	found := n2.FindLast(func(n *ExplodedNode) bool { return n.Loc.Offset == 1 })
	if found == nil || found.Loc.Offset != 1 {
		t.Fatalf("FindLast = %+v, want offset 1", found)
	}

	notFound := n2.FindLast(func(n *ExplodedNode) bool { return n.Loc.Offset == 99 })
	if notFound != nil {
		t.Fatalf("FindLast = %+v, want nil", notFound)
	}
}

func TestExplodedNodeAncestorsSingleNode(t *testing.T) {
	n := &ExplodedNode{Loc: Location{Func: "f", Block: "entry"}}

	chain := n.Ancestors()
	if len(chain) != 1 || chain[0] != n {
		t.Fatalf("Ancestors() on single node = %+v", chain)
	}
}
