package alarm

import (
	"context"
	"sync"
)

type heldLockKey struct {
	id int64
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// idLocker hands out one mutex per reminder id and forgets it once nobody
// holds or waits for it.
type idLocker struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

func newIDLocker() *idLocker {
	return &idLocker{entries: make(map[int64]*lockEntry)}
}

// acquire locks id unless ctx already carries the lock for it. The returned
// context marks the lock as held.
func (l *idLocker) acquire(ctx context.Context, id int64) (context.Context, func()) {
	if held, _ := ctx.Value(heldLockKey{id}).(bool); held {
		return ctx, func() {}
	}

	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	release := func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}

	return context.WithValue(ctx, heldLockKey{id}, true), release
}

func (l *idLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
