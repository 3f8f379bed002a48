package symexec

import "testing"

func TestPMapSetGetImmutable(t *testing.T) {
	m0 := NewPMap[string, int]()

	m1 := m0.Set("a", 1)
	if _, ok := m0.Get("a"); ok {
		t.Fatal("Set mutated the receiver")
	}

	v, ok := m1.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	m2 := m1.Set("a", 2)
	if v, _ := m1.Get("a"); v != 1 {
		t.Fatalf("m1 changed after deriving m2: got %d, want 1", v)
	}

	if v, _ := m2.Get("a"); v != 2 {
		t.Fatalf("m2.Get(a) = %d, want 2", v)
	}
}

func TestPMapDelete(t *testing.T) {
	m := NewPMap[string, int]().Set("a", 1).Set("b", 2)

	m2 := m.Delete("a")
	if _, ok := m2.Get("a"); ok {
		t.Fatal("a still present after Delete")
	}

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Fatal("Delete mutated the receiver")
	}

	m3 := m.Delete("missing")
	if m3.Len() != m.Len() {
		t.Fatalf("Delete of absent key changed length: %d vs %d", m3.Len(), m.Len())
	}
}

func TestPMapLenAndKeys(t *testing.T) {
	m := NewPMap[string, int]()
	if m.Len() != 0 {
		t.Fatalf("empty map Len() = %d, want 0", m.Len())
	}

	m = m.Set("a", 1).Set("b", 2).Set("c", 3)
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}

	keys := m.Keys()
	if len(keys) != 3 {
		t.Fatalf("Keys() len = %d, want 3", len(keys))
	}

	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}

	for _, want := range []string{"a", "b", "c"} {
		if !seen[want] {
			t.Errorf("Keys() missing %q", want)
		}
	}
}

func TestPMapRangeEarlyStop(t *testing.T) {
	m := NewPMap[string, int]().Set("a", 1).Set("b", 2).Set("c", 3)

	count := 0
	m.Range(func(k string, v int) bool {
		count++

		return false
	})

	if count != 1 {
		t.Fatalf("Range visited %d entries after false, want 1", count)
	}
}

func TestPMapGetOnZeroValue(t *testing.T) {
	var m PMap[string, int]

	if v, ok := m.Get("x"); ok || v != 0 {
		t.Fatalf("Get on zero-value PMap = %d, %v; want 0, false", v, ok)
	}

	if m.Len() != 0 {
		t.Fatalf("Len on zero-value PMap = %d, want 0", m.Len())
	}
}
