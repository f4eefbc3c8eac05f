package memstore

import (
	"github.com/flame2-go/flame2/internal/column"
	"github.com/flame2-go/flame2/internal/flame2err"
)

// Iterator is a cursor over a contiguous row range of one agent's columns,
// enforcing its shadow's read/write allow-list on every access. Iteration
// order equals physical row order; randomization is deliberately not
// offered at this layer, which is what lets two split sub-tasks over
// disjoint ranges run without contention.
type Iterator struct {
	shadow       *Shadow
	offset, count, pos int
}

// AtEnd reports whether the cursor has consumed the whole assigned range.
func (it *Iterator) AtEnd() bool { return it.pos == it.count }

// Step advances the cursor. Returns true iff it moved (was not already at
// end).
func (it *Iterator) Step() bool {
	if it.AtEnd() {
		return false
	}
	it.pos++
	return true
}

// Rewind resets the cursor to the start of its assigned range.
func (it *Iterator) Rewind() { it.pos = 0 }

// Offset returns the absolute row this cursor currently points at.
func (it *Iterator) Offset() int { return it.offset + it.pos }

func (it *Iterator) column(op, variable string) (*column.Column, Access, error) {
	access, ok := it.shadow.acl[variable]
	if !ok {
		return nil, 0, flame2err.AccessDenied(op, "variable "+variable+" not in task access list")
	}
	col, err := it.shadow.mgr.GetColumn(it.shadow.agent, variable)
	if err != nil {
		return nil, 0, err
	}
	return col, access, nil
}

// GetAny returns the element at the cursor's row in column variable as an
// untyped value, for callers that dispatch on the variable's registered
// type dynamically (population I/O plug-ins) instead of at compile time.
func (it *Iterator) GetAny(variable string) (interface{}, error) {
	col, _, err := it.column("memstore.GetAny", variable)
	if err != nil {
		return nil, err
	}
	if it.AtEnd() {
		return nil, flame2err.OutOfRange("memstore.GetAny", "iterator exhausted")
	}
	return col.RawAt(it.Offset())
}

// Get returns a copy of the element at the cursor's row in column
// variable. Fails with AccessDenied if variable is not in the shadow,
// MismatchedType if T does not match the column's element type, OutOfRange
// if AtEnd().
func Get[T any](it *Iterator, variable string) (T, error) {
	var zero T
	col, _, err := it.column("memstore.Get", variable)
	if err != nil {
		return zero, err
	}
	if it.AtEnd() {
		return zero, flame2err.OutOfRange("memstore.Get", "iterator exhausted")
	}
	return column.GetAt[T](col, it.Offset())
}

// Set overwrites the element at the cursor's row in column variable.
// Fails as Get does, plus AccessDenied if the shadow entry is ReadOnly.
func Set[T any](it *Iterator, variable string, value T) error {
	col, access, err := it.column("memstore.Set", variable)
	if err != nil {
		return err
	}
	if access != ReadWrite {
		return flame2err.AccessDenied("memstore.Set", "variable "+variable+" is read-only for this task")
	}
	if it.AtEnd() {
		return flame2err.OutOfRange("memstore.Set", "iterator exhausted")
	}
	return column.SetAt(col, it.Offset(), value)
}
