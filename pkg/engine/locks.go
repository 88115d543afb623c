package engine

import (
	"sync"

	"github.com/stefanpenner/goalgraph/pkg/graph"
)

// componentLocks hands out per-goal RWMutexes. Holding the lock of every
// member of a component serializes mutations on that component while leaving
// unrelated components free. Sets are always acquired in ascending ID order.
type componentLocks struct {
	mu    sync.Mutex
	locks map[graph.GoalID]*sync.RWMutex
}

func newComponentLocks() *componentLocks {
	return &componentLocks{locks: make(map[graph.GoalID]*sync.RWMutex)}
}

func (l *componentLocks) get(id graph.GoalID) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[id] = m
	}
	return m
}

// acquire locks every member of ids and returns the matching release func.
func (l *componentLocks) acquire(ids graph.IDSet, write bool) func() {
	sorted := ids.Sorted()
	held := make([]*sync.RWMutex, 0, len(sorted))
	for _, id := range sorted {
		m := l.get(id)
		if write {
			m.Lock()
		} else {
			m.RLock()
		}
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			if write {
				held[i].Unlock()
			} else {
				held[i].RUnlock()
			}
		}
	}
}

// forget drops the lock of a deleted goal. Callers must hold it for writing.
func (l *componentLocks) forget(id graph.GoalID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, id)
}

// size is the number of tracked locks.
func (l *componentLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
