package service

import "sync"

// activeSet tracks subjects with a sync run in flight, so a manual trigger
// and a scheduler pass can never run two writers against the same watermark.
type activeSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newActiveSet() *activeSet {
	return &activeSet{keys: make(map[string]struct{})}
}

// TryAcquire claims the key; false means a run is already in flight.
func (a *activeSet) TryAcquire(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.keys[key]; busy {
		return false
	}
	a.keys[key] = struct{}{}
	return true
}

func (a *activeSet) Release(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.keys, key)
}

func (a *activeSet) Busy(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, busy := a.keys[key]
	return busy
}
