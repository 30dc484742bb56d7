package ingest

import "sync"

// collectionLocks serializes ingest runs per collection within this process.
type collectionLocks struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newCollectionLocks() *collectionLocks {
	return &collectionLocks{busy: make(map[string]struct{})}
}

// acquire marks the collection busy. Returns false if a run is already active.
func (l *collectionLocks) acquire(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.busy[id]; ok {
		return false
	}
	l.busy[id] = struct{}{}
	return true
}

func (l *collectionLocks) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.busy, id)
}
