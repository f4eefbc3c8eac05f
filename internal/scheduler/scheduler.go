package scheduler

import (
	"fmt"
	"sync"

	"github.com/flame2-go/flame2/internal/board"
	"github.com/flame2-go/flame2/internal/flame2err"
	"github.com/flame2-go/flame2/internal/logx"
	"github.com/flame2-go/flame2/internal/memstore"
	"github.com/flame2-go/flame2/internal/proxy"
	"github.com/flame2-go/flame2/internal/splitter"
	"github.com/flame2-go/flame2/internal/taskgraph"
)

// IoPlugin is the C12 extension point: a population I/O backend invoked
// by IoOp tasks. Concrete implementations (CSV, SQLite) live under
// internal/ioplugin.
type IoPlugin interface {
	InitOutput() error
	WriteOne(agent, variable string, it *memstore.Iterator) error
	FinalizeOutput() error
}

// Scheduler binds the Task Manager to the FIFO Splitting Queue and a
// fixed Worker Pool (C9), and owns the Memory/Board managers a running
// task needs to build its Access Proxy.
type Scheduler struct {
	tasks  *taskgraph.Manager
	mem    *memstore.Manager
	boards *board.Manager
	io     IoPlugin
	cfg    SplitConfig
	log    *logx.Logger

	deadMu sync.Mutex
	dead   map[string]map[int]bool // agent -> offsets reported Dead, compaction deferred

	errMu sync.Mutex
	errs  []error
}

// New builds a Scheduler. io may be nil if the model declares no IoOp
// tasks.
func New(tasks *taskgraph.Manager, mem *memstore.Manager, boards *board.Manager, io IoPlugin, cfg SplitConfig) *Scheduler {
	return &Scheduler{
		tasks:  tasks,
		mem:    mem,
		boards: boards,
		io:     io,
		cfg:    cfg,
		log:    logx.New("scheduler"),
		dead:   make(map[string]map[int]bool),
	}
}

// RunIteration resets the Task Manager's per-iteration state and drives
// it to completion using workers worker goroutines, enqueuing ready tasks
// as they appear and waking the driver loop whenever a task completes.
// It returns the first error raised by user code, if any; all user-code
// errors encountered are still collected and can be read with Errors.
func (s *Scheduler) RunIteration(workers int) error {
	s.tasks.IterReset()
	s.errs = nil

	wake := make(chan struct{}, 1)
	notify := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	queue := NewQueue()
	pool := NewPool(workers, queue, s.runSubtask, func(id int) {
		s.tasks.IterDone(id)
		notify()
	}, func(err error) {
		s.errMu.Lock()
		s.errs = append(s.errs, err)
		s.errMu.Unlock()
	})
	pool.Start()

	for !s.tasks.IterComplete() {
		for s.tasks.IterTaskAvailable() {
			id, err := s.tasks.IterPop()
			if err != nil {
				break
			}
			task, err := s.tasks.Task(id)
			if err != nil {
				s.errMu.Lock()
				s.errs = append(s.errs, err)
				s.errMu.Unlock()
				continue
			}
			population, splittable := s.populationOf(task)
			queue.Enqueue(id, population, splittable, s.cfg)
		}
		if s.tasks.IterComplete() {
			break
		}
		<-wake
	}
	pool.Stop()

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if len(s.errs) > 0 {
		return s.errs[0]
	}
	return nil
}

// Errors returns every user-code error raised during the most recent
// RunIteration call, in the order workers reported them.
func (s *Scheduler) Errors() []error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	out := make([]error, len(s.errs))
	copy(out, s.errs)
	return out
}

func (s *Scheduler) populationOf(task *taskgraph.Task) (population int, splittable bool) {
	if task.Kind != taskgraph.KindAgentFunction {
		return 0, false
	}
	n, err := s.mem.GetPopulationSize(task.Agent.Agent)
	if err != nil {
		return 0, false
	}
	return n, task.Agent.Splittable
}

func (s *Scheduler) runSubtask(id int, rng splitter.Range) error {
	task, err := s.tasks.Task(id)
	if err != nil {
		return err
	}
	switch task.Kind {
	case taskgraph.KindAgentFunction:
		return s.runAgentTask(task, rng)
	case taskgraph.KindMessageBoardOp:
		return s.runMessageBoardTask(task)
	case taskgraph.KindIoOp:
		return s.runIoTask(task)
	default:
		return flame2err.InvalidOperation("Scheduler.runSubtask", fmt.Sprintf("unknown task kind %v", task.Kind))
	}
}

func (s *Scheduler) runAgentTask(task *taskgraph.Task, rng splitter.Range) error {
	shadow, err := s.mem.GetShadow(task.Agent.Agent)
	if err != nil {
		return err
	}
	for v, access := range task.Agent.AccessList {
		shadow.Allow(v, access)
	}

	it, err := shadow.IterRange(rng.Offset, rng.Count)
	if err != nil {
		return err
	}

	p := proxy.New(it, s.boards, task.Agent.MBAcl)
	for !it.AtEnd() {
		offset := it.Offset()
		status, err := s.invoke(task, offset, p)
		if err != nil {
			return err
		}
		if status == proxy.Dead {
			s.markDead(task.Agent.Agent, offset)
		}
		if !it.Step() {
			break
		}
	}
	return nil
}

// invoke calls the transition function for one row, converting a panic
// raised by user code into a *flame2err.TaskFailure annotated with the
// agent, function, task id, and row offset, per the worker exception
// handling this core requires.
func (s *Scheduler) invoke(task *taskgraph.Task, offset int, p *proxy.Proxy) (status proxy.Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = flame2err.NewTaskFailure(task.Agent.Agent, task.Agent.FnName, task.ID, offset, fmt.Errorf("%v", r))
		}
	}()
	status = task.Agent.Fn(p)
	return status, nil
}

func (s *Scheduler) markDead(agent string, offset int) {
	s.deadMu.Lock()
	defer s.deadMu.Unlock()
	if s.dead[agent] == nil {
		s.dead[agent] = make(map[int]bool)
	}
	s.dead[agent][offset] = true
}

// DeadCount reports how many rows of agent have returned Dead status
// across all iterations. Compaction of dead rows out of the columns is
// not performed by this core; callers that need population shrinkage
// must do so between iterations via their own IoOp or driver logic.
func (s *Scheduler) DeadCount(agent string) int {
	s.deadMu.Lock()
	defer s.deadMu.Unlock()
	return len(s.dead[agent])
}

func (s *Scheduler) runMessageBoardTask(task *taskgraph.Task) error {
	switch task.MB.Op {
	case taskgraph.MBSync:
		return s.boards.Sync(task.MB.Message)
	case taskgraph.MBClear:
		return s.boards.Clear(task.MB.Message)
	default:
		return flame2err.InvalidOperation("Scheduler.runMessageBoardTask", "unknown MBOp")
	}
}

func (s *Scheduler) runIoTask(task *taskgraph.Task) error {
	if s.io == nil {
		return flame2err.InvalidOperation("Scheduler.runIoTask", "no IoPlugin configured")
	}
	switch task.Io.Op {
	case taskgraph.IoInitOutput:
		return s.io.InitOutput()
	case taskgraph.IoFinalizeOutput:
		return s.io.FinalizeOutput()
	case taskgraph.IoWriteOne:
		shadow, err := s.mem.GetShadow(task.Io.Agent)
		if err != nil {
			return err
		}
		shadow.Allow(task.Io.Variable, memstore.ReadOnly)
		it, err := shadow.Iter()
		if err != nil {
			return err
		}
		return s.io.WriteOne(task.Io.Agent, task.Io.Variable, it)
	default:
		return flame2err.InvalidOperation("Scheduler.runIoTask", "unknown IoKind")
	}
}
