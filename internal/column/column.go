// Package column implements the type-erased growable columns (C1 in the
// design) that back every agent variable and message-board value. A column
// is a single contiguous slice of one runtime-registered type; the type is
// only known as a reflect.Type at construction, letting the Memory Manager
// and Message Board own columns of arbitrary registered types without being
// templated on them.
package column

import (
	"reflect"

	"github.com/flame2-go/flame2/internal/flame2err"
)

// Column is a contiguous, growable, type-tagged vector. The zero value is
// not usable; construct with New.
type Column struct {
	typ  reflect.Type
	data reflect.Value // addressable slice value, kind == reflect.Slice
}

// New creates an empty column holding elements of typ.
func New(typ reflect.Type) *Column {
	slice := reflect.MakeSlice(reflect.SliceOf(typ), 0, 0)
	ptr := reflect.New(slice.Type())
	ptr.Elem().Set(slice)
	return &Column{typ: typ, data: ptr.Elem()}
}

// NewFor creates an empty column typed after a sample value, e.g.
// column.NewFor(int64(0)) or column.NewFor(Location{}).
func NewFor(sample interface{}) *Column {
	return New(reflect.TypeOf(sample))
}

// Type returns the element type this column was constructed with.
func (c *Column) Type() reflect.Type { return c.typ }

// Size returns the number of elements.
func (c *Column) Size() int { return c.data.Len() }

// Empty reports whether the column holds no elements.
func (c *Column) Empty() bool { return c.Size() == 0 }

// Reserve grows the backing array's capacity to at least n, without
// changing Size().
func (c *Column) Reserve(n int) {
	if c.data.Cap() >= n {
		return
	}
	grown := reflect.MakeSlice(c.data.Type(), c.data.Len(), n)
	reflect.Copy(grown, c.data)
	c.data.Set(grown)
}

// Clear empties the column, keeping its capacity.
func (c *Column) Clear() {
	c.data.Set(c.data.Slice(0, 0))
}

// AppendFrom appends other's elements onto this column. Fails with
// MismatchedType if the two columns were not constructed with the same
// element type.
func (c *Column) AppendFrom(other *Column) error {
	if other.typ != c.typ {
		return flame2err.MismatchedType("Column.AppendFrom", c.typ, other.typ)
	}
	c.data.Set(reflect.AppendSlice(c.data, other.data))
	return nil
}

// CloneEmpty returns a new, empty column sharing this column's element
// type. Used by message boards to manufacture writer staging columns
// without the board being templated on the message type.
func (c *Column) CloneEmpty() *Column {
	return New(c.typ)
}

// RawAt returns the element at offset as an interface{}, along with
// OutOfRange if offset is beyond Size().
func (c *Column) RawAt(offset int) (interface{}, error) {
	if offset < 0 || offset >= c.Size() {
		return nil, flame2err.OutOfRange("Column.RawAt", "offset beyond column size")
	}
	return c.data.Index(offset).Interface(), nil
}

// RawStep returns the element at offset+1 and true, or nil and false if
// offset+1 is beyond Size(). It walks a column without knowing its
// element type; the message iterator backends index with RawAt instead.
func (c *Column) RawStep(offset int) (interface{}, bool) {
	next := offset + 1
	if next >= c.Size() {
		return nil, false
	}
	return c.data.Index(next).Interface(), true
}

// PushBackAny appends one element represented as a type-erased value.
// Fails with MismatchedType if the dynamic type of value does not match.
func (c *Column) PushBackAny(value interface{}) error {
	v := reflect.ValueOf(value)
	if v.Type() != c.typ {
		return flame2err.MismatchedType("Column.PushBackAny", reflect.New(c.typ).Elem().Interface(), value)
	}
	c.data.Set(reflect.Append(c.data, v))
	return nil
}

// GetAt returns a copy of the element at offset, typed as T. Fails with
// MismatchedType if T does not match the column's element type, or
// OutOfRange if offset is beyond Size().
func GetAt[T any](c *Column, offset int) (T, error) {
	var zero T
	if reflect.TypeOf(zero) != c.typ {
		return zero, flame2err.MismatchedType("column.GetAt", zero, reflect.New(c.typ).Elem().Interface())
	}
	if offset < 0 || offset >= c.Size() {
		return zero, flame2err.OutOfRange("column.GetAt", "offset beyond column size")
	}
	return c.data.Index(offset).Interface().(T), nil
}

// SetAt overwrites the element at offset. Fails with MismatchedType or
// OutOfRange under the same conditions as GetAt.
func SetAt[T any](c *Column, offset int, value T) error {
	if reflect.TypeOf(value) != c.typ {
		return flame2err.MismatchedType("column.SetAt", value, reflect.New(c.typ).Elem().Interface())
	}
	if offset < 0 || offset >= c.Size() {
		return flame2err.OutOfRange("column.SetAt", "offset beyond column size")
	}
	c.data.Index(offset).Set(reflect.ValueOf(value))
	return nil
}

// PushBack appends one strongly-typed element. Fails with MismatchedType
// if T does not match the column's element type.
func PushBack[T any](c *Column, value T) error {
	if reflect.TypeOf(value) != c.typ {
		return flame2err.MismatchedType("column.PushBack", value, reflect.New(c.typ).Elem().Interface())
	}
	c.data.Set(reflect.Append(c.data, reflect.ValueOf(value)))
	return nil
}
