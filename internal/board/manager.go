package board

import (
	"reflect"
	"sync"

	"github.com/flame2-go/flame2/internal/flame2err"
)

// Manager is the singleton-style registry of (name, type) -> Board pairs,
// providing uniform Sync/Clear/writer/iterator access by message name.
type Manager struct {
	mu     sync.RWMutex
	boards map[string]*Board
}

// NewManager creates an empty board registry.
func NewManager() *Manager {
	return &Manager{boards: make(map[string]*Board)}
}

// Register declares a new message name with element type typ. Fails with
// AlreadyExists if name is already registered.
func (m *Manager) Register(name string, typ reflect.Type) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[name]; ok {
		return flame2err.AlreadyExists("board.Manager.Register", name)
	}
	m.boards[name] = New(typ)
	return nil
}

func (m *Manager) get(op, name string) (*Board, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.boards[name]
	if !ok {
		return nil, flame2err.UnknownMessage(op, name)
	}
	return b, nil
}

// GetWriter returns a fresh writer for message name.
func (m *Manager) GetWriter(name string) (*Writer, error) {
	b, err := m.get("board.Manager.GetWriter", name)
	if err != nil {
		return nil, err
	}
	return b.GetWriter(), nil
}

// Sync publishes all staged posts for message name.
func (m *Manager) Sync(name string) error {
	b, err := m.get("board.Manager.Sync", name)
	if err != nil {
		return err
	}
	return b.Sync()
}

// Clear empties message name's synced column and drops outstanding
// writers.
func (m *Manager) Clear(name string) error {
	b, err := m.get("board.Manager.Clear", name)
	if err != nil {
		return err
	}
	return b.Clear()
}

// GetMessages returns a cursor over message name's current snapshot.
func (m *Manager) GetMessages(name string) (*MessageIterator, error) {
	b, err := m.get("board.Manager.GetMessages", name)
	if err != nil {
		return nil, err
	}
	return b.GetMessages(), nil
}

// Count returns the number of synced messages for name.
func (m *Manager) Count(name string) (int, error) {
	b, err := m.get("board.Manager.Count", name)
	if err != nil {
		return 0, err
	}
	return b.Count(), nil
}
