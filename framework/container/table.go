package container

// table is a Key-indexed map that remembers insertion order. RemoveAll and
// Snapshot walk it in that order.
type table[V any] struct {
	vals  map[Key]V
	order []Key
}

func newTable[V any]() *table[V] {
	return &table[V]{vals: make(map[Key]V)}
}

func (t *table[V]) get(k Key) (V, bool) {
	v, ok := t.vals[k]
	return v, ok
}

func (t *table[V]) has(k Key) bool {
	_, ok := t.vals[k]
	return ok
}

// set stores v. Overwriting keeps the original position.
func (t *table[V]) set(k Key, v V) {
	if _, ok := t.vals[k]; !ok {
		t.order = append(t.order, k)
	}
	t.vals[k] = v
}

func (t *table[V]) delete(k Key) bool {
	if _, ok := t.vals[k]; !ok {
		return false
	}
	delete(t.vals, k)
	for i, cur := range t.order {
		if cur == k {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[V]) keys() []Key {
	out := make([]Key, len(t.order))
	copy(out, t.order)
	return out
}

func (t *table[V]) len() int { return len(t.order) }

func (t *table[V]) reset() {
	t.vals = make(map[Key]V)
	t.order = nil
}
