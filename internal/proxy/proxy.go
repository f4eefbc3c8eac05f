// Package proxy implements the Access Proxy (C6): the object exposed to
// user transition functions as FLAME. It binds a Memory Iterator to a
// message-board client scoped to one task's ACL, and is the only surface
// through which user code touches memory or message boards.
package proxy

import (
	"github.com/flame2-go/flame2/internal/board"
	"github.com/flame2-go/flame2/internal/flame2err"
	"github.com/flame2-go/flame2/internal/memstore"
)

// Status is the value a transition function returns for one agent row.
type Status int

const (
	Alive Status = iota
	Dead
)

// BoardACL is the two-set message-board access list declared by an agent
// task: which message names it may read, and which it may post to.
type BoardACL struct {
	ReadMsgs map[string]bool
	PostMsgs map[string]bool
}

// Proxy mediates all memory and message access for one transition-function
// invocation. A new Proxy is constructed per task (not per row): the same
// Proxy is reused across every row in the assigned range, with It advanced
// by the caller between invocations.
type Proxy struct {
	It      *memstore.Iterator
	boards  *board.Manager
	acl     BoardACL
	writers map[string]*board.Writer
}

// New binds it and boards under acl.
func New(it *memstore.Iterator, boards *board.Manager, acl BoardACL) *Proxy {
	return &Proxy{It: it, boards: boards, acl: acl, writers: make(map[string]*board.Writer)}
}

// Get reads variable at the current cursor row.
func Get[T any](p *Proxy, variable string) (T, error) {
	return memstore.Get[T](p.It, variable)
}

// Set writes variable at the current cursor row. Requires ReadWrite access.
func Set[T any](p *Proxy, variable string, value T) error {
	return memstore.Set(p.It, variable, value)
}

// Post delegates to this task's writer for msgName. Fails with
// AccessDenied if the task declared no post permission for msgName.
func Post[T any](p *Proxy, msgName string, msg T) error {
	if !p.acl.PostMsgs[msgName] {
		return flame2err.AccessDenied("proxy.Post", "task has no post permission for message "+msgName)
	}
	w, err := p.writerFor(msgName)
	if err != nil {
		return err
	}
	return board.Post(w, msg)
}

// Messages returns a read-only iterator over msgName. Fails with
// AccessDenied if the task declared no read permission for msgName, or
// UnknownMessage if the name is not registered.
func (p *Proxy) Messages(msgName string) (*board.MessageIterator, error) {
	if !p.acl.ReadMsgs[msgName] {
		return nil, flame2err.AccessDenied("proxy.Messages", "task has no read permission for message "+msgName)
	}
	return p.boards.GetMessages(msgName)
}

func (p *Proxy) writerFor(msgName string) (*board.Writer, error) {
	if w, ok := p.writers[msgName]; ok {
		return w, nil
	}
	w, err := p.boards.GetWriter(msgName)
	if err != nil {
		return nil, err
	}
	p.writers[msgName] = w
	return w, nil
}
