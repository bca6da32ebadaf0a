// keylock.go - Per-key mutexes that are dropped once no caller holds or waits on them.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locks serialises callers that share a key. The zero value is ready to use.
// An entry exists only while some caller holds or waits for its key, so the
// set of keys does not grow with every key ever seen.
type Locks[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// Lock blocks until key is free and returns the function that releases it.
// Wrap the release in a defer so it runs even if the caller panics.
func (l *Locks[K]) Lock(key K) (unlock func()) {
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[K]*entry)
	}
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

// Len reports how many keys are currently held or waited on.
func (l *Locks[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
