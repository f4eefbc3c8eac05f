// Package flame2err defines the typed error kinds shared across the
// execution core, so callers can test for a specific failure category with
// errors.As instead of string-matching a log prefix.
package flame2err

import (
	"errors"
	"fmt"
)

// Kind identifies a category of core failure.
type Kind string

const (
	KindUnknownAgent         Kind = "unknown_agent"
	KindUnknownVariable      Kind = "unknown_variable"
	KindUnknownMessage       Kind = "unknown_message"
	KindUnknownTask          Kind = "unknown_task"
	KindAlreadyExists        Kind = "already_exists"
	KindAlreadyClosed        Kind = "already_closed"
	KindMismatchedType       Kind = "mismatched_type"
	KindAccessDenied         Kind = "access_denied"
	KindOutOfRange           Kind = "out_of_range"
	KindInvalidOperation     Kind = "invalid_operation"
	KindWouldIntroduceCycle  Kind = "would_introduce_cycle"
	KindSelfDependency       Kind = "self_dependency"
	KindNoneAvailable        Kind = "none_available"
	KindNotImplemented       Kind = "not_implemented"
	KindTaskFailure          Kind = "task_failure"
)

// Error is the concrete error type returned by every core package.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "Column.AppendFrom"
	Err  error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, flame2err.Kind) style checks via a sentinel
// wrapper: errors.Is(err, &Error{Kind: KindAccessDenied}) matches any Error
// with the same Kind, ignoring Op/Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Is reports whether err is a *Error of the given Kind, unwrapping as
// errors.Is does.
func Is(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

func newErr(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func UnknownAgent(op, name string) *Error {
	return newErr(KindUnknownAgent, op, fmt.Errorf("agent %q not registered", name))
}

func UnknownVariable(op, agent, variable string) *Error {
	return newErr(KindUnknownVariable, op, fmt.Errorf("variable %q not registered on agent %q", variable, agent))
}

func UnknownMessage(op, name string) *Error {
	return newErr(KindUnknownMessage, op, fmt.Errorf("message %q not registered", name))
}

func UnknownTask(op string, id int) *Error {
	return newErr(KindUnknownTask, op, fmt.Errorf("task id %d not found", id))
}

func AlreadyExists(op, name string) *Error {
	return newErr(KindAlreadyExists, op, fmt.Errorf("%q already registered", name))
}

func AlreadyClosed(op string) *Error {
	return newErr(KindAlreadyClosed, op, fmt.Errorf("registration phase already closed"))
}

func MismatchedType(op string, want, got interface{}) *Error {
	return newErr(KindMismatchedType, op, fmt.Errorf("expected type %T, got %T", want, got))
}

func AccessDenied(op, detail string) *Error {
	return newErr(KindAccessDenied, op, fmt.Errorf("%s", detail))
}

func OutOfRange(op string, detail string) *Error {
	return newErr(KindOutOfRange, op, fmt.Errorf("%s", detail))
}

func InvalidOperation(op, detail string) *Error {
	return newErr(KindInvalidOperation, op, fmt.Errorf("%s", detail))
}

func WouldIntroduceCycle(op string, t, parent int) *Error {
	return newErr(KindWouldIntroduceCycle, op, fmt.Errorf("adding parent %d to task %d would introduce a cycle", parent, t))
}

func SelfDependency(op string, t int) *Error {
	return newErr(KindSelfDependency, op, fmt.Errorf("task %d cannot depend on itself", t))
}

func NoneAvailable(op string) *Error {
	return newErr(KindNoneAvailable, op, fmt.Errorf("no ready task available"))
}

func NotImplemented(op string) *Error {
	return newErr(KindNotImplemented, op, fmt.Errorf("not implemented"))
}

// TaskFailure wraps an error raised by user code inside a task, annotated
// with the agent/function/task identity for the driver thread.
type TaskFailure struct {
	Agent  string
	Fn     string
	TaskID int
	Offset int
	Err    error
}

func (e *TaskFailure) Error() string {
	return fmt.Sprintf("task %d (%s/%s, offset %d): %v", e.TaskID, e.Agent, e.Fn, e.Offset, e.Err)
}

func (e *TaskFailure) Unwrap() error { return e.Err }

func NewTaskFailure(agent, fn string, taskID, offset int, err error) *TaskFailure {
	return &TaskFailure{Agent: agent, Fn: fn, TaskID: taskID, Offset: offset, Err: err}
}
