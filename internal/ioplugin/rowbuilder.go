package ioplugin

import "github.com/flame2-go/flame2/internal/memstore"

// RowBuilder turns the per-cell AddInt/AddDouble calls a Loader makes
// into PushRow calls on mem: every concrete Loader visits one row's
// cells in full before moving to the next, so a row is flushed as soon
// as a variable repeats (or Flush is called explicitly for the final
// row).
type RowBuilder struct {
	mem  *memstore.Manager
	row  map[string]interface{}
	seen map[string]bool
}

// NewRowBuilder returns a RowBuilder that pushes completed rows onto
// mem.
func NewRowBuilder(mem *memstore.Manager) *RowBuilder {
	return &RowBuilder{mem: mem, row: make(map[string]interface{}), seen: make(map[string]bool)}
}

// Callbacks returns the LoadCallbacks to hand to a Loader's Load method.
func (b *RowBuilder) Callbacks(agent string) LoadCallbacks {
	return LoadCallbacks{
		AddInt: func(a, variable string, v int) error {
			return b.add(agent, variable, v)
		},
		AddDouble: func(a, variable string, v float64) error {
			return b.add(agent, variable, v)
		},
	}
}

func (b *RowBuilder) add(agent, variable string, v interface{}) error {
	if b.seen[variable] {
		if err := b.flush(agent); err != nil {
			return err
		}
	}
	b.row[variable] = v
	b.seen[variable] = true
	return nil
}

func (b *RowBuilder) flush(agent string) error {
	if len(b.row) == 0 {
		return nil
	}
	if err := b.mem.PushRow(agent, b.row); err != nil {
		return err
	}
	b.row = make(map[string]interface{})
	b.seen = make(map[string]bool)
	return nil
}

// Flush pushes any buffered partial row for agent. Call once after
// Load returns, to flush the final row (which has no following
// variable-repeat to trigger an automatic flush).
func (b *RowBuilder) Flush(agent string) error {
	return b.flush(agent)
}
