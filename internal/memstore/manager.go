// Package memstore implements the Memory Manager (C2) and Memory Iterator
// (C3): the registry of agent types and their columnar variables, and the
// per-task cursor over a contiguous row range that transition functions use
// to read and write memory under an access-control list.
//
// The manager mirrors the registry style used elsewhere in this codebase
// for named, mutex-guarded collections (a map protected by sync.RWMutex,
// closed for writes once operation begins) rather than a bare package-level
// global: callers hold an explicit *Manager.
package memstore

import (
	"reflect"
	"sync"

	"github.com/flame2-go/flame2/internal/column"
	"github.com/flame2-go/flame2/internal/flame2err"
)

// Access is the permission level granted to a shadow for one variable.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

type agentEntry struct {
	order   []string
	columns map[string]*column.Column
}

// Manager is the registry of agent types and their variable columns. It has
// two phases: registration (RegisterAgent/RegisterVariable/HintPopulation
// are legal) and operation (GetColumn/GetPopulationSize/GetShadow are
// legal). HintPopulation on any agent, or the first GetShadow call across
// any agent, closes registration globally.
type Manager struct {
	mu     sync.RWMutex
	agents map[string]*agentEntry
	closed bool
}

// NewManager creates an empty Memory Manager.
func NewManager() *Manager {
	return &Manager{agents: make(map[string]*agentEntry)}
}

// RegisterAgent declares a new agent type. Fails with AlreadyExists on a
// duplicate name, AlreadyClosed once registration has ended.
func (m *Manager) RegisterAgent(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return flame2err.AlreadyClosed("Manager.RegisterAgent")
	}
	if _, ok := m.agents[name]; ok {
		return flame2err.AlreadyExists("Manager.RegisterAgent", name)
	}
	m.agents[name] = &agentEntry{columns: make(map[string]*column.Column)}
	return nil
}

// RegisterVariable declares a variable column on an already-registered
// agent. typ is the variable's scalar type (e.g. reflect.TypeOf(int64(0))).
func (m *Manager) RegisterVariable(agent, name string, typ reflect.Type) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return flame2err.AlreadyClosed("Manager.RegisterVariable")
	}
	ent, ok := m.agents[agent]
	if !ok {
		return flame2err.UnknownAgent("Manager.RegisterVariable", agent)
	}
	if _, ok := ent.columns[name]; ok {
		return flame2err.AlreadyExists("Manager.RegisterVariable", agent+"."+name)
	}
	ent.columns[name] = column.New(typ)
	ent.order = append(ent.order, name)
	return nil
}

// HintPopulation reserves capacity n on every column of agent and implicitly
// closes registration globally (matching the C++ source: the first
// observer handed out ends the registration phase).
func (m *Manager) HintPopulation(agent string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ent, ok := m.agents[agent]
	if !ok {
		return flame2err.UnknownAgent("Manager.HintPopulation", agent)
	}
	for _, col := range ent.columns {
		col.Reserve(n)
	}
	m.closed = true
	return nil
}

// GetColumn returns the column backing (agent, variable).
func (m *Manager) GetColumn(agent, variable string) (*column.Column, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ent, ok := m.agents[agent]
	if !ok {
		return nil, flame2err.UnknownAgent("Manager.GetColumn", agent)
	}
	col, ok := ent.columns[variable]
	if !ok {
		return nil, flame2err.UnknownVariable("Manager.GetColumn", agent, variable)
	}
	return col, nil
}

// GetPopulationSize returns agent's current row count (the equal length
// shared by all of its columns).
func (m *Manager) GetPopulationSize(agent string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ent, ok := m.agents[agent]
	if !ok {
		return 0, flame2err.UnknownAgent("Manager.GetPopulationSize", agent)
	}
	return m.populationSizeLocked(ent), nil
}

func (m *Manager) populationSizeLocked(ent *agentEntry) int {
	size := 0
	for _, name := range ent.order {
		size = ent.columns[name].Size()
		break
	}
	return size
}

// CheckColumnParity panics if agent's columns have diverged in length; the
// invariant is supposed to hold at every quiescent point outside a
// registration phase, and a violation indicates a framework bug rather
// than a user error, so it aborts the process like any other internal
// invariant failure (spec.md §7).
func (m *Manager) CheckColumnParity(agent string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.checkColumnParityLocked(agent)
}

func (m *Manager) checkColumnParityLocked(agent string) {
	ent, ok := m.agents[agent]
	if !ok || len(ent.order) == 0 {
		return
	}
	want := ent.columns[ent.order[0]].Size()
	for _, name := range ent.order[1:] {
		if got := ent.columns[name].Size(); got != want {
			panic("memstore: column parity violated for agent " + agent + " variable " + name)
		}
	}
}

// GetShadow returns a fresh AgentShadow for agent with an empty access
// list. Fails with UnknownAgent if agent was never registered.
func (m *Manager) GetShadow(agent string) (*Shadow, error) {
	m.mu.Lock()
	_, ok := m.agents[agent]
	m.closed = true
	m.mu.Unlock()
	if !ok {
		return nil, flame2err.UnknownAgent("Manager.GetShadow", agent)
	}
	return &Shadow{mgr: m, agent: agent, acl: make(map[string]Access)}, nil
}

// PushRow appends one row's worth of typed values onto agent's columns,
// used by population loaders (the add_int/add_double callbacks in
// spec.md §6). values must cover every registered variable by name.
func (m *Manager) PushRow(agent string, values map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ent, ok := m.agents[agent]
	if !ok {
		return flame2err.UnknownAgent("Manager.PushRow", agent)
	}
	for name, col := range ent.columns {
		v, ok := values[name]
		if !ok {
			return flame2err.InvalidOperation("Manager.PushRow", "missing value for variable "+name)
		}
		if err := col.PushBackAny(v); err != nil {
			return err
		}
	}
	m.checkColumnParityLocked(agent)
	return nil
}

// Variables returns the ordered list of variable names registered for
// agent.
func (m *Manager) Variables(agent string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ent, ok := m.agents[agent]
	if !ok {
		return nil, flame2err.UnknownAgent("Manager.Variables", agent)
	}
	out := make([]string, len(ent.order))
	copy(out, ent.order)
	return out, nil
}
