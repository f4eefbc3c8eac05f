package taskgraph

import (
	"sort"
	"sync"

	"github.com/flame2-go/flame2/internal/flame2err"
)

// iterState is the mutable per-iteration scheduling state described in
// spec.md §3: pending_deps, ready, assigned, and pending. It is guarded by
// its own mutex, independent of the graph-construction mutex, since it is
// accessed concurrently by workers once the graph is finalized.
type iterState struct {
	mu          sync.Mutex
	pendingDeps map[int]map[int]bool
	readyList   []int
	readySet    map[int]bool
	assigned    map[int]bool
	pending     map[int]bool
}

// IterReset copies parents into pending_deps, seeds ready from roots, and
// pending from every other task. Call once at the start of each
// iteration, after Finalize.
func (m *Manager) IterReset() {
	m.mu.RLock()
	roots := append([]int(nil), m.roots...)
	n := len(m.tasks)
	pendingDeps := make(map[int]map[int]bool, n)
	for id := range m.tasks {
		deps := make(map[int]bool, len(m.parents[id]))
		for p := range m.parents[id] {
			deps[p] = true
		}
		pendingDeps[id] = deps
	}
	m.mu.RUnlock()

	rootSet := make(map[int]bool, len(roots))
	for _, r := range roots {
		rootSet[r] = true
	}
	pending := make(map[int]bool, n-len(roots))
	for id := 0; id < n; id++ {
		if !rootSet[id] {
			pending[id] = true
		}
	}

	m.iter.mu.Lock()
	defer m.iter.mu.Unlock()
	m.iter.pendingDeps = pendingDeps
	m.iter.readyList = append([]int(nil), roots...)
	m.iter.readySet = rootSet
	m.iter.pending = pending
	m.iter.assigned = make(map[int]bool)
}

// IterPop removes one id from ready and adds it to assigned. Fails with
// NoneAvailable if ready is empty. Safe under concurrent callers.
func (m *Manager) IterPop() (int, error) {
	m.iter.mu.Lock()
	defer m.iter.mu.Unlock()
	if len(m.iter.readyList) == 0 {
		return 0, flame2err.NoneAvailable("Manager.IterPop")
	}
	id := m.iter.readyList[0]
	m.iter.readyList = m.iter.readyList[1:]
	delete(m.iter.readySet, id)
	m.iter.assigned[id] = true
	return id, nil
}

// IterDone removes id from assigned, decrements pending_deps for every
// child, and moves any child whose pending_deps has become empty from
// pending to ready.
func (m *Manager) IterDone(id int) {
	m.iter.mu.Lock()
	defer m.iter.mu.Unlock()
	delete(m.iter.assigned, id)

	m.mu.RLock()
	children := make([]int, 0, len(m.children[id]))
	for c := range m.children[id] {
		children = append(children, c)
	}
	m.mu.RUnlock()
	sort.Ints(children)

	for _, c := range children {
		deps := m.iter.pendingDeps[c]
		delete(deps, id)
		if len(deps) == 0 && m.iter.pending[c] {
			delete(m.iter.pending, c)
			m.iter.readySet[c] = true
			m.iter.readyList = append(m.iter.readyList, c)
		}
	}
}

// IterComplete reports whether ready, assigned, and pending are all empty.
func (m *Manager) IterComplete() bool {
	m.iter.mu.Lock()
	defer m.iter.mu.Unlock()
	return len(m.iter.readyList) == 0 && len(m.iter.assigned) == 0 && len(m.iter.pending) == 0
}

// IterTaskAvailable reports whether a task is ready to be popped.
func (m *Manager) IterTaskAvailable() bool {
	m.iter.mu.Lock()
	defer m.iter.mu.Unlock()
	return len(m.iter.readyList) > 0
}

// IterCounts returns the current size of each per-iteration set, for
// observability (the status server exposes these directly).
func (m *Manager) IterCounts() (ready, assigned, pending int) {
	m.iter.mu.Lock()
	defer m.iter.mu.Unlock()
	return len(m.iter.readyList), len(m.iter.assigned), len(m.iter.pending)
}
