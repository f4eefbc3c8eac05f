package taskgraph

import (
	"sort"
	"sync"

	"github.com/flame2-go/flame2/internal/flame2err"
)

// Manager owns the task vector and its dependency DAG. Construction
// (CreateXTask, AddDependency, Finalize) happens single-threaded on the
// main goroutine; the per-iteration state in iteration.go is safe for
// concurrent access by workers once Finalize has run.
type Manager struct {
	mu        sync.RWMutex
	tasks     []*Task
	parents   map[int]map[int]bool
	children  map[int]map[int]bool
	finalized bool
	roots     []int
	leaves    []int

	iter iterState
}

// NewManager creates an empty Task Manager.
func NewManager() *Manager {
	return &Manager{
		parents:  make(map[int]map[int]bool),
		children: make(map[int]map[int]bool),
	}
}

func (m *Manager) addTaskLocked(t *Task) (int, error) {
	if m.finalized {
		return 0, flame2err.AlreadyClosed("Manager.addTask")
	}
	id := len(m.tasks)
	t.ID = id
	m.tasks = append(m.tasks, t)
	m.parents[id] = make(map[int]bool)
	m.children[id] = make(map[int]bool)
	return id, nil
}

// CreateAgentTask registers an AgentFunction task. Validates that Fn is
// non-nil and Agent is non-empty.
func (m *Manager) CreateAgentTask(name string, spec AgentFunctionSpec) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if spec.Fn == nil {
		return 0, flame2err.InvalidOperation("Manager.CreateAgentTask", "function pointer is nil")
	}
	if spec.Agent == "" {
		return 0, flame2err.InvalidOperation("Manager.CreateAgentTask", "agent must be set")
	}
	return m.addTaskLocked(&Task{Name: name, Kind: KindAgentFunction, Agent: spec})
}

// CreateMessageBoardTask registers a Sync/Clear task for message.
func (m *Manager) CreateMessageBoardTask(name string, spec MessageBoardOpSpec) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if spec.Message == "" {
		return 0, flame2err.InvalidOperation("Manager.CreateMessageBoardTask", "message must be set")
	}
	return m.addTaskLocked(&Task{Name: name, Kind: KindMessageBoardOp, MB: spec})
}

// CreateIoTask registers an I/O task.
func (m *Manager) CreateIoTask(name string, spec IoOpSpec) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if spec.Op == IoWriteOne && (spec.Agent == "" || spec.Variable == "") {
		return 0, flame2err.InvalidOperation("Manager.CreateIoTask", "WriteOne requires agent and variable")
	}
	return m.addTaskLocked(&Task{Name: name, Kind: KindIoOp, Io: spec})
}

// Task returns the stored task identified by id (a pointer into the
// Manager's task slice, not a copy).
func (m *Manager) Task(id int) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || id >= len(m.tasks) {
		return nil, flame2err.UnknownTask("Manager.Task", id)
	}
	return m.tasks[id], nil
}

// AddDependency records that parent must complete before t. Fails with
// UnknownTask, SelfDependency, WouldIntroduceCycle, or AlreadyClosed.
func (m *Manager) AddDependency(t, parent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return flame2err.AlreadyClosed("Manager.AddDependency")
	}
	if t == parent {
		return flame2err.SelfDependency("Manager.AddDependency", t)
	}
	if t < 0 || t >= len(m.tasks) {
		return flame2err.UnknownTask("Manager.AddDependency", t)
	}
	if parent < 0 || parent >= len(m.tasks) {
		return flame2err.UnknownTask("Manager.AddDependency", parent)
	}
	if m.wouldCycleLocked(t, parent) {
		return flame2err.WouldIntroduceCycle("Manager.AddDependency", t, parent)
	}
	m.parents[t][parent] = true
	m.children[parent][t] = true
	return nil
}

// wouldCycleLocked performs a DFS upward from parent through its own
// ancestors looking for t: if t is already an ancestor of parent, adding
// the edge parent -> t would close a cycle.
func (m *Manager) wouldCycleLocked(t, parent int) bool {
	visited := make(map[int]bool)
	var dfs func(int) bool
	dfs = func(cur int) bool {
		if cur == t {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		for p := range m.parents[cur] {
			if dfs(p) {
				return true
			}
		}
		return false
	}
	return dfs(parent)
}

// Finalize locks the graph and computes Roots()/Leaves(). Idempotent.
func (m *Manager) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return nil
	}
	m.roots = nil
	m.leaves = nil
	for id := range m.tasks {
		if len(m.parents[id]) == 0 {
			m.roots = append(m.roots, id)
		}
		if len(m.children[id]) == 0 {
			m.leaves = append(m.leaves, id)
		}
	}
	sort.Ints(m.roots)
	sort.Ints(m.leaves)
	m.finalized = true
	return nil
}

// Roots returns the ids of tasks with no parents.
func (m *Manager) Roots() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.roots))
	copy(out, m.roots)
	return out
}

// Leaves returns the ids of tasks with no children.
func (m *Manager) Leaves() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.leaves))
	copy(out, m.leaves)
	return out
}

// Children returns the ids of tasks that depend directly on id.
func (m *Manager) Children(id int) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, 0, len(m.children[id]))
	for c := range m.children[id] {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// Parents returns the ids of tasks that must complete before id.
func (m *Manager) Parents(id int) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, 0, len(m.parents[id]))
	for p := range m.parents[id] {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// NumTasks returns the number of registered tasks.
func (m *Manager) NumTasks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}
