package symexec

import "testing"

func TestConjureSymbolUnique(t *testing.T) {
	var b SValBuilder

	s1 := b.ConjureSymbol("malloc", 0)
	s2 := b.ConjureSymbol("malloc", 0)

	if s1 == s2 {
		t.Fatalf("ConjureSymbol returned the same symbol twice: %q", s1)
	}
}

func TestConjureSymbolDistinguishesBlockCount(t *testing.T) {
	var b SValBuilder

	s1 := b.ConjureSymbol("malloc", 0)
	s2 := b.ConjureSymbol("malloc", 1)

	if s1 == s2 {
		t.Fatal("symbols at different block counts collided")
	}
}

func TestSValWithOffset(t *testing.T) {
	base := LocSVal("s")

	off := base.WithOffset(8)
	if !off.OffsetKnown || off.Offset != 8 || off.Base != "s" {
		t.Fatalf("WithOffset(8) = %+v", off)
	}

	off2 := off.WithOffset(4)
	if off2.Offset != 12 {
		t.Fatalf("WithOffset chained = %+v, want offset 12", off2)
	}
}

func TestSValWithOffsetUnknownBasePropagates(t *testing.T) {
	fuzzy := SVal{Kind: SValLoc, Base: "s", OffsetKnown: false}

	off := fuzzy.WithOffset(4)
	if off.OffsetKnown {
		t.Fatal("WithOffset on unknown-offset base produced a known offset")
	}

	if off.Base != "s" {
		t.Fatalf("WithOffset changed base: got %q", off.Base)
	}
}

func TestSValWithOffsetNonLocUnaffected(t *testing.T) {
	v := IntSVal(5)
	if got := v.WithOffset(4); got != v {
		t.Fatalf("WithOffset on a non-loc value changed it: %+v", got)
	}
}

func TestSValIsLoc(t *testing.T) {
	if UnknownSVal.IsLoc() {
		t.Fatal("UnknownSVal.IsLoc() = true")
	}

	if !LocSVal("s").IsLoc() {
		t.Fatal("LocSVal(...).IsLoc() = false")
	}
}

func TestSValString(t *testing.T) {
	cases := []struct {
		v    SVal
		want string
	}{
		{NullSVal, "null"},
		{IntSVal(7), "7"},
		{LocSVal("s"), "&s"},
		{LocSVal("s").WithOffset(4), "&s+4"},
		{SVal{Kind: SValLoc, Base: "s", OffsetKnown: false}, "&s+?"},
		{UnknownSVal, "<unknown>"},
	}

	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("%+v.String() = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestMemSpaceString(t *testing.T) {
	cases := map[MemSpace]string{
		SpaceUnknown:      "unknown",
		SpaceHeap:         "heap",
		SpaceStack:        "stack",
		SpaceAlloca:       "alloca",
		SpaceGlobal:       "global",
		SpaceBlockLiteral: "block-literal",
	}

	for space, want := range cases {
		if got := space.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", space, got, want)
		}
	}
}
