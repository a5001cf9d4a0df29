package flow

import "sync"

// identityLocks serializes turns per conversation identity. Two
// near-simultaneous inbound messages for the same identity would otherwise
// both read the same resting state and the last writer would silently discard
// the other's transition.
//
// Entries are never evicted: the map grows with the number of distinct
// identities seen by this process, which is bounded by the active
// conversation population.
type identityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns its unlock function.
func (l *identityLocks) acquire(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
