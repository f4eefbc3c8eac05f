// Package taskgraph implements the Task Manager (C7): the registry of
// named tasks (agent / message-board / I/O) and their dependency DAG,
// finalization, and per-iteration ready/pending/assigned bookkeeping.
//
// The registry style — a dense-indexed slice plus a mutex-guarded map of
// auxiliary state — is the same shape this codebase uses for its task
// queue (compare the priority queue's id-indexed map over a slice).
package taskgraph

import (
	"github.com/flame2-go/flame2/internal/memstore"
	"github.com/flame2-go/flame2/internal/proxy"
)

// Kind identifies which variant a Task holds.
type Kind int

const (
	KindAgentFunction Kind = iota
	KindMessageBoardOp
	KindIoOp
)

func (k Kind) String() string {
	switch k {
	case KindAgentFunction:
		return "agent_function"
	case KindMessageBoardOp:
		return "message_board_op"
	case KindIoOp:
		return "io_op"
	default:
		return "unknown"
	}
}

// MBOp is a message-board task's operation.
type MBOp int

const (
	MBSync MBOp = iota
	MBClear
)

// IoKind is an I/O task's operation.
type IoKind int

const (
	IoInitOutput IoKind = iota
	IoWriteOne
	IoFinalizeOutput
)

// TransitionFunc is the user-code surface: invoked once per assigned agent
// row, with the cursor inside proxy.Proxy advanced by the caller between
// invocations.
type TransitionFunc func(*proxy.Proxy) proxy.Status

// AgentFunctionSpec describes an AgentFunction task.
type AgentFunctionSpec struct {
	Agent      string
	FnName     string
	Fn         TransitionFunc
	AccessList map[string]memstore.Access
	MBAcl      proxy.BoardACL
	Splittable bool
}

// MessageBoardOpSpec describes a MessageBoardOp task.
type MessageBoardOpSpec struct {
	Message string
	Op      MBOp
}

// IoOpSpec describes an IoOp task.
type IoOpSpec struct {
	Op       IoKind
	Agent    string
	Variable string
}

// Task is one node of the dependency DAG, identified by a dense integer id
// (its index in the Manager's task slice).
type Task struct {
	ID    int
	Name  string
	Kind  Kind
	Agent AgentFunctionSpec
	MB    MessageBoardOpSpec
	Io    IoOpSpec
}
