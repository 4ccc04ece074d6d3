package state

import (
	"sort"
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	touched time.Time
}

// Table maps Telegram ids to values of type V.
type Table[V any] struct {
	mu    sync.Mutex
	items map[int64]entry[V]
	now   func() time.Time
}

// NewTable constructs an empty table. A nil clock defaults to time.Now.
func NewTable[V any](clock func() time.Time) *Table[V] {
	if clock == nil {
		clock = time.Now
	}
	return &Table[V]{
		items: make(map[int64]entry[V]),
		now:   clock,
	}
}

// Get returns the value stored under key without refreshing its timestamp.
func (t *Table[V]) Get(key int64) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.items[key]
	return e.value, ok
}

// Put stores value under key, replacing any previous entry, and marks it as fresh.
func (t *Table[V]) Put(key int64, value V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[key] = entry[V]{value: value, touched: t.now()}
}

// Remove deletes key and returns the value it held. The second result is
// false when nothing was stored, so concurrent removals succeed only once.
func (t *Table[V]) Remove(key int64) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.items[key]
	if ok {
		delete(t.items, key)
	}
	return e.value, ok
}

// Len reports the number of stored entries.
func (t *Table[V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Sweep removes entries not written for longer than ttl and returns their keys
// in ascending order. A non-positive ttl keeps everything.
func (t *Table[V]) Sweep(ttl time.Duration) []int64 {
	if ttl <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-ttl)
	var removed []int64
	for key, e := range t.items {
		if e.touched.Before(cutoff) {
			delete(t.items, key)
			removed = append(removed, key)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed
}
