package scheduling

import (
	"fmt"
	"sort"
	"sync"
)

// ResourceLocks serializes slot search and commit per resource within this
// process.
type ResourceLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewResourceLocks() *ResourceLocks {
	return &ResourceLocks{locks: make(map[string]*keyLock)}
}

func machineKey(id uint) string  { return fmt.Sprintf("machine:%d", id) }
func employeeKey(id uint) string { return fmt.Sprintf("employee:%d", id) }

// Lock acquires every key in sorted order and returns the release func
func (l *ResourceLocks) Lock(keys ...string) func() {
	unique := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}
	sort.Strings(unique)

	held := make([]*keyLock, 0, len(unique))
	for _, k := range unique {
		kl := l.acquire(k)
		kl.mu.Lock()
		held = append(held, kl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(unique[i])
		}
	}
}

func (l *ResourceLocks) acquire(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *ResourceLocks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl := l.locks[key]
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// size reports the number of keys currently tracked
func (l *ResourceLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
