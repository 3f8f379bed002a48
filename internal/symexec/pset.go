package symexec

// PSet is a persistent (copy-on-write) set, built on PMap the same way the
// engine's own tables are.
type PSet[K comparable] struct {
	m PMap[K, struct{}]
}

// NewPSet returns an empty persistent set.
func NewPSet[K comparable]() PSet[K] { return PSet[K]{m: NewPMap[K, struct{}]()} }

// Has reports whether k is a member.
func (s PSet[K]) Has(k K) bool {
	_, ok := s.m.Get(k)

	return ok
}

// Add returns a new set with k added.
func (s PSet[K]) Add(k K) PSet[K] { return PSet[K]{m: s.m.Set(k, struct{}{})} }

// Remove returns a new set without k.
func (s PSet[K]) Remove(k K) PSet[K] { return PSet[K]{m: s.m.Delete(k)} }

// Len reports the number of members.
func (s PSet[K]) Len() int { return s.m.Len() }

// Items returns all members in unspecified order.
func (s PSet[K]) Items() []K { return s.m.Keys() }
