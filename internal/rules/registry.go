package rules

import (
	"fmt"
	"path/filepath"

	"github.com/havenlang/havenchk/internal/heapcheck"
)

// Registry holds the packs loaded for a run and applies the ones whose
// constraint matches the target version.
type Registry struct {
	packs []*Pack
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends p to the registry without applying it.
func (r *Registry) Add(p *Pack) {
	r.packs = append(r.packs, p)
}

// LoadDir loads every *.json file directly under dir as a Pack and adds
// it to the registry. A malformed pack is skipped so one bad file doesn't
// block the rest of a directory; only the first such error is returned.
func (r *Registry) LoadDir(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("rules: glob %s: %w", dir, err)
	}

	var firstErr error

	for _, path := range matches {
		p, err := LoadFile(path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}

			continue
		}

		r.Add(p)
	}

	return firstErr
}

// Apply evaluates every registered pack's constraint against version and
// registers the aliases of the packs that match, via
// heapcheck.RegisterMallocAlias. It returns the names of the packs that
// were applied, in registration order.
func (r *Registry) Apply(version string) ([]string, error) {
	var applied []string

	for _, p := range r.packs {
		ok, err := p.AppliesTo(version)
		if err != nil {
			return applied, err
		}

		if !ok {
			continue
		}

		for _, name := range p.Allocators {
			heapcheck.RegisterMallocAlias(name, false)
		}

		for _, name := range p.Deallocators {
			heapcheck.RegisterMallocAlias(name, true)
		}

		applied = append(applied, p.Name)
	}

	return applied, nil
}
