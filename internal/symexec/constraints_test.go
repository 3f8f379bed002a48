package symexec

import "testing"

func newConstraintManager() ConstraintManager {
	return ConstraintManager{nullFacts: NewPMap[Symbol, bool](), zeroFacts: NewPMap[Symbol, bool]()}
}

func TestConstraintManagerIsNullDefaultsUnknown(t *testing.T) {
	c := newConstraintManager()
	if got := c.IsNull("s"); got != Unknown {
		t.Fatalf("IsNull on fresh manager = %v, want Unknown", got)
	}
}

func TestConstraintManagerAssumeNull(t *testing.T) {
	c := newConstraintManager()

	c2 := c.AssumeNull("s", true)
	if got := c.IsNull("s"); got != Unknown {
		t.Fatalf("AssumeNull mutated receiver: IsNull = %v", got)
	}

	if got := c2.IsNull("s"); got != True {
		t.Fatalf("IsNull after AssumeNull(true) = %v, want True", got)
	}

	c3 := c2.AssumeNull("s", false)
	if got := c3.IsNull("s"); got != False {
		t.Fatalf("IsNull after AssumeNull(false) = %v, want False", got)
	}
}

func TestConstraintManagerAssumeZero(t *testing.T) {
	c := newConstraintManager()

	c2 := c.AssumeZero("s", true)
	if got := c2.IsZero("s"); got != True {
		t.Fatalf("IsZero after AssumeZero(true) = %v, want True", got)
	}

	if got := c.IsZero("s"); got != Unknown {
		t.Fatalf("AssumeZero mutated receiver: IsZero = %v", got)
	}
}

func TestTriStateString(t *testing.T) {
	cases := map[TriState]string{Unknown: "unknown", True: "true", False: "false"}
	for ts, want := range cases {
		if got := ts.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", ts, got, want)
		}
	}
}
