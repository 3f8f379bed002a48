// Package rules loads version-gated classifier rule packs: small JSON
// documents that extend the heap-lifecycle checker's allocation-family
// name tables (internal/heapcheck) with additional allocator/deallocator
// aliases, each guarded by a semver constraint against the target
// program's declared runtime or platform version so a pack only applies
// where it is actually meaningful.
package rules

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
)

// Pack is one versioned rule document.
type Pack struct {
	Name         string   `json:"name"`
	Constraint   string   `json:"constraint"`
	Allocators   []string `json:"allocators"`
	Deallocators []string `json:"deallocators"`
}

// Parse decodes a Pack from JSON.
func Parse(data []byte) (*Pack, error) {
	var p Pack
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("rules: parse pack: %w", err)
	}

	if p.Name == "" {
		return nil, fmt.Errorf("rules: pack has no name")
	}

	return &p, nil
}

// Load reads and parses a Pack from r.
func Load(r io.Reader) (*Pack, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rules: read pack: %w", err)
	}

	return Parse(data)
}

// LoadFile reads and parses a Pack from a path on disk.
func LoadFile(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rules: open %s: %w", path, err)
	}
	defer f.Close()

	return Load(f)
}

// AppliesTo reports whether p's version constraint is satisfied by
// version. An empty constraint always applies.
func (p *Pack) AppliesTo(version string) (bool, error) {
	if p.Constraint == "" {
		return true, nil
	}

	c, err := semver.NewConstraint(p.Constraint)
	if err != nil {
		return false, fmt.Errorf("rules: pack %s: bad constraint %q: %w", p.Name, p.Constraint, err)
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("rules: bad target version %q: %w", version, err)
	}

	return c.Check(v), nil
}
