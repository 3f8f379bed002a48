package rules

import "testing"

func TestParsePack(t *testing.T) {
	data := []byte(`{"name":"linux-kernel","constraint":">=5.0.0","allocators":["kzalloc"],"deallocators":["kvfree"]}`)

	p, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Name != "linux-kernel" {
		t.Errorf("Name = %q, want linux-kernel", p.Name)
	}

	if len(p.Allocators) != 1 || p.Allocators[0] != "kzalloc" {
		t.Errorf("Allocators = %v", p.Allocators)
	}
}

func TestParsePackRequiresName(t *testing.T) {
	_, err := Parse([]byte(`{"constraint":">=1.0.0"}`))
	if err == nil {
		t.Fatal("Parse: want error for missing name")
	}
}

func TestAppliesTo(t *testing.T) {
	p := &Pack{Name: "glib2", Constraint: ">=2.40.0, <3.0.0"}

	cases := []struct {
		version string
		want    bool
	}{
		{"2.40.0", true},
		{"2.70.3", true},
		{"2.39.9", false},
		{"3.0.0", false},
	}

	for _, c := range cases {
		got, err := p.AppliesTo(c.version)
		if err != nil {
			t.Fatalf("AppliesTo(%q): %v", c.version, err)
		}

		if got != c.want {
			t.Errorf("AppliesTo(%q) = %v, want %v", c.version, got, c.want)
		}
	}
}

func TestAppliesToEmptyConstraint(t *testing.T) {
	p := &Pack{Name: "always-on"}

	got, err := p.AppliesTo("0.0.1")
	if err != nil {
		t.Fatalf("AppliesTo: %v", err)
	}

	if !got {
		t.Error("AppliesTo with empty constraint should always be true")
	}
}

func TestAppliesToBadConstraint(t *testing.T) {
	p := &Pack{Name: "broken", Constraint: "not a constraint"}

	if _, err := p.AppliesTo("1.0.0"); err == nil {
		t.Fatal("AppliesTo: want error for malformed constraint")
	}
}
