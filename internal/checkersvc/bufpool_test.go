package checkersvc

import (
	"bytes"
	"strings"
	"testing"
)

func TestBodyPoolReadAll(t *testing.T) {
	var bp bodyPool

	want := strings.Repeat("a", 5000)

	got, err := bp.ReadAll(strings.NewReader(want), 1<<20)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if !bytes.Equal(got, []byte(want)) {
		t.Fatalf("ReadAll returned %d bytes, want %d", len(got), len(want))
	}
}

func TestBodyPoolReadAllRespectsLimit(t *testing.T) {
	var bp bodyPool

	got, err := bp.ReadAll(strings.NewReader(strings.Repeat("b", 10000)), 100)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if len(got) != 100 {
		t.Fatalf("len = %d, want 100", len(got))
	}
}

func TestBodyPoolReadAllEmpty(t *testing.T) {
	var bp bodyPool

	got, err := bp.ReadAll(strings.NewReader(""), 1<<20)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}
