package board

import (
	"math/rand"

	"github.com/flame2-go/flame2/internal/column"
	"github.com/flame2-go/flame2/internal/flame2err"
)

// backend is the swappable cursor implementation behind a MessageIterator.
// The default implementation walks the snapshotted column in physical
// order; Randomise swaps it for a permutation-backed implementation.
type backend interface {
	atEnd() bool
	count() int
	rewind()
	next() bool
	at() (interface{}, error)
	randomise() backend
}

// rawWalkBackend is immutable and not randomizable; calling randomise
// swaps the iterator to a permutationBackend over the same snapshot.
type rawWalkBackend struct {
	col *column.Column
	n   int
	pos int
}

func newRawWalkBackend(col *column.Column, n int) *rawWalkBackend {
	return &rawWalkBackend{col: col, n: n}
}

func (b *rawWalkBackend) atEnd() bool { return b.pos >= b.n }
func (b *rawWalkBackend) count() int  { return b.n }
func (b *rawWalkBackend) rewind()     { b.pos = 0 }

func (b *rawWalkBackend) next() bool {
	if b.pos+1 >= b.n {
		b.pos = b.n
		return false
	}
	b.pos++
	return true
}

func (b *rawWalkBackend) at() (interface{}, error) {
	if b.atEnd() {
		return nil, flame2err.OutOfRange("MessageIterator.Get", "iterator exhausted")
	}
	return b.col.RawAt(b.pos)
}

func (b *rawWalkBackend) randomise() backend {
	return newPermutationBackend(b.col, b.n)
}

// permutationBackend is mutable: its state is an index permutation over
// the same underlying snapshot, rebuilt on every Randomise call.
type permutationBackend struct {
	col  *column.Column
	perm []int
	pos  int
}

func newPermutationBackend(col *column.Column, n int) *permutationBackend {
	perm := rand.Perm(n)
	return &permutationBackend{col: col, perm: perm}
}

func (b *permutationBackend) atEnd() bool { return b.pos >= len(b.perm) }
func (b *permutationBackend) count() int  { return len(b.perm) }
func (b *permutationBackend) rewind()     { b.pos = 0 }

func (b *permutationBackend) next() bool {
	if b.pos+1 >= len(b.perm) {
		b.pos = len(b.perm)
		return false
	}
	b.pos++
	return true
}

func (b *permutationBackend) at() (interface{}, error) {
	if b.atEnd() {
		return nil, flame2err.OutOfRange("MessageIterator.Get", "iterator exhausted")
	}
	return b.col.RawAt(b.perm[b.pos])
}

func (b *permutationBackend) randomise() backend {
	return newPermutationBackend(b.col, len(b.perm))
}

// MessageIterator is a read-only, potentially randomizable cursor over a
// board's synced snapshot.
type MessageIterator struct {
	backend backend
}

// AtEnd reports whether the cursor has consumed the whole snapshot.
func (mi *MessageIterator) AtEnd() bool { return mi.backend.atEnd() }

// Count returns the number of messages in the snapshot.
func (mi *MessageIterator) Count() int { return mi.backend.count() }

// Rewind resets the cursor to the first message.
func (mi *MessageIterator) Rewind() { mi.backend.rewind() }

// Next advances the cursor. Returns true iff the cursor now points at a
// message; stepping past the last message moves it to the end and
// returns false.
func (mi *MessageIterator) Next() bool { return mi.backend.next() }

// Randomise swaps an immutable backend for a mutable, permutation-backed
// one and rewinds; calling it again on an already-randomized iterator
// reshuffles. Degrades iteration performance, as documented.
func (mi *MessageIterator) Randomise() {
	mi.backend = mi.backend.randomise()
	mi.backend.rewind()
}

// Get returns a copy of the current message. Fails with MismatchedType if
// T does not match the board's message type, or OutOfRange if AtEnd().
func Get[T any](mi *MessageIterator) (T, error) {
	var zero T
	v, err := mi.backend.at()
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, flame2err.MismatchedType("board.Get", zero, v)
	}
	return typed, nil
}
