package scheduler

import (
	"fmt"
	"sync"

	"github.com/flame2-go/flame2/internal/logx"
	"github.com/flame2-go/flame2/internal/splitter"
)

// RunFunc executes one sub-task: id identifies the logical task, rng is
// the (possibly partial) row range assigned to this hand-out. It must
// report any panic or error raised by user code rather than letting it
// cross the worker goroutine boundary.
type RunFunc func(id int, rng splitter.Range) error

// Pool runs a fixed number of worker goroutines draining a Queue. Each
// worker loops: get_next, run, task_done, following the worker loop this
// codebase uses for its WebSocket hub's single run-loop goroutine,
// generalized to N goroutines and a blocking pop.
type Pool struct {
	size    int
	queue   *Queue
	run     RunFunc
	done    func(id int)
	failure func(err error)
	log     *logx.Logger
	wg      sync.WaitGroup
}

// NewPool creates a pool of size workers. done is invoked once per
// logical task (after its last sub-task completes, if split) so the
// Scheduler can call Task Manager's IterDone. failure is invoked for any
// error RunFunc returns; the worker continues processing after reporting
// it.
func NewPool(size int, queue *Queue, run RunFunc, done func(id int), failure func(err error)) *Pool {
	return &Pool{
		size:    size,
		queue:   queue,
		run:     run,
		done:    done,
		failure: failure,
		log:     logx.New("scheduler"),
	}
}

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start() {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop enqueues one terminate sentinel per worker and waits for all of
// them to exit.
func (p *Pool) Stop() {
	for i := 0; i < p.size; i++ {
		p.queue.EnqueueTerminate()
	}
	p.wg.Wait()
}

func (p *Pool) worker(idx int) {
	defer p.wg.Done()
	for {
		st := p.queue.GetNext()
		if st.id == terminate {
			return
		}
		p.runOne(idx, st)
	}
}

func (p *Pool) runOne(idx int, st subtask) {
	defer func() {
		if r := recover(); r != nil {
			p.failure(fmt.Errorf("worker %d: task %d panicked: %v", idx, st.id, r))
			p.reportDone(st.id)
		}
	}()
	if err := p.run(st.id, st.rng); err != nil {
		p.failure(err)
	}
	p.reportDone(st.id)
}

func (p *Pool) reportDone(id int) {
	if p.queue.TaskDone(id) {
		p.done(id)
	}
}
