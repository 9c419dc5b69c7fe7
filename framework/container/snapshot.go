package container

import (
	"sort"
)

// Entry describes one registered key at the time of a Snapshot.
type Entry struct {
	Key          Key
	Kinds        []Kind
	Live         bool
	Dependents   []Key
	Dependencies []Key
}

// Snapshot returns every registered key with its registration kinds and
// edges, in registration order.
func (c *Container) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := c.keysLocked()
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{
			Key:          k,
			Kinds:        c.kindsLocked(k),
			Live:         c.instances.has(k),
			Dependents:   c.deps.Dependents(k),
			Dependencies: c.deps.Dependencies(k),
		})
	}
	return out
}

func (c *Container) kindsLocked(k Key) []Kind {
	var kinds []Kind
	if c.instances.has(k) {
		kinds = append(kinds, KindInstance)
	}
	if c.factories.has(k) {
		kinds = append(kinds, KindFactory)
	}
	if c.lazy.has(k) {
		kinds = append(kinds, KindLazy)
	}
	if c.lazyAsync.has(k) {
		kinds = append(kinds, KindLazyAsync)
	}
	if c.reborn.has(k) {
		kinds = append(kinds, KindReborn)
	}
	if c.rebornAsync.has(k) {
		kinds = append(kinds, KindRebornAsync)
	}
	return kinds
}

func sortByStamp(keys []Key, stamps map[Key]uint64) {
	sort.Slice(keys, func(i, j int) bool { return stamps[keys[i]] < stamps[keys[j]] })
}
