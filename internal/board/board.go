// Package board implements the Message Board (C4) and Message Iterator
// (C5): a type-erased buffered pub/sub object with multi-writer staging
// and atomic Sync into a read-only snapshot, plus the cursor types used to
// read a synced snapshot back.
//
// The buffered-staging-then-atomic-publish shape mirrors this codebase's
// event bus (internal/eventbus): many producers write into independent
// buffers, a single synchronization point makes them visible to readers.
package board

import (
	"reflect"
	"sync"

	"github.com/flame2-go/flame2/internal/column"
	"github.com/flame2-go/flame2/internal/flame2err"
)

// Board owns one message type's main column plus the set of live writers
// staging posts against it.
type Board struct {
	mu      sync.Mutex
	typ     reflect.Type
	main    *column.Column
	writers []*Writer
}

// New creates an empty board for messages of type typ.
func New(typ reflect.Type) *Board {
	return &Board{typ: typ, main: column.New(typ)}
}

// Writer is a per-task, per-board staging buffer that accumulates posts
// until the next Sync or Clear, at which point it is disconnected.
type Writer struct {
	mu        sync.Mutex
	board     *Board
	staging   *column.Column
	connected bool
}

// GetWriter allocates a fresh staging column and returns a handle. Each
// worker that needs to post must call GetWriter itself; a single handle
// must not be shared across workers.
func (b *Board) GetWriter() *Writer {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := &Writer{board: b, staging: b.main.CloneEmpty(), connected: true}
	b.writers = append(b.writers, w)
	return w
}

// PostAny appends one type-erased message to the writer's staging column.
// Fails with MismatchedType if the dynamic type doesn't match the
// board's message type, or with InvalidOperation if the writer has
// already been disconnected by a Sync or Clear.
func (w *Writer) PostAny(msg interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return flame2err.InvalidOperation("Writer.Post", "writer is disconnected")
	}
	return w.staging.PushBackAny(msg)
}

// Post appends one strongly-typed message.
func Post[T any](w *Writer, msg T) error {
	return w.PostAny(msg)
}

// Sync reserves capacity for every outstanding writer's staged posts, then
// appends each writer's staging column into main in turn and disconnects
// it. Writers from the same board never interleave: each writer's whole
// block of posts lands contiguously, in the order writers were created.
func (b *Board) Sync() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := b.main.Size()
	for _, w := range b.writers {
		total += w.staging.Size()
	}
	b.main.Reserve(total)

	for _, w := range b.writers {
		w.mu.Lock()
		if err := b.main.AppendFrom(w.staging); err != nil {
			w.mu.Unlock()
			return err
		}
		w.connected = false
		w.staging = nil
		w.mu.Unlock()
	}
	b.writers = nil
	return nil
}

// Clear disconnects and drops all outstanding writers, then empties main.
// Message iterators obtained before Clear are invalid afterwards: they
// read the same main column, which is now empty, so Get on them fails
// with OutOfRange. It is the caller's responsibility, via the task DAG, to
// ensure no reader task is in flight when Clear runs.
func (b *Board) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.writers {
		w.mu.Lock()
		w.connected = false
		w.staging = nil
		w.mu.Unlock()
	}
	b.writers = nil
	b.main.Clear()
	return nil
}

// GetMessages returns a cursor over main as of this call; later Syncs do
// not affect iterators already issued.
func (b *Board) GetMessages() *MessageIterator {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &MessageIterator{backend: newRawWalkBackend(b.main, b.main.Size())}
}

// Count returns the number of synced messages currently in main.
func (b *Board) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.main.Size()
}
