// Package scheduler implements the Scheduler, FIFO Splitting Queue, and
// Worker Pool (C9): it binds the Task Manager's per-iteration state to a
// fixed pool of workers, splitting splittable agent tasks and reporting
// completion back to the graph.
package scheduler

import (
	"sync"

	"github.com/flame2-go/flame2/internal/splitter"
)

// terminate is the sentinel id a worker observes to exit its loop.
const terminate = -1

// SplitConfig is the per-task-kind splitting configuration: the maximum
// number of sub-tasks and the minimum rows each sub-task must cover.
type SplitConfig struct {
	MaxTasksPerSplit int
	MinVectorSize    int
}

// subtask is one unit of work handed to a worker: either a whole task
// (Range covering [0, population)) or one disjoint slice of a split task.
type subtask struct {
	id    int
	split bool
	rng   splitter.Range
}

// Queue is the FIFO splitting queue described in spec.md §4.9: it holds
// task ids (each possibly exploded into several sub-task hand-outs via
// split_map) and wakes workers through a condition variable, the same
// shape as this codebase's task priority queue, generalized with split
// bookkeeping and blocking pop.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	fifo     []int
	splitMap map[int]*splitter.Handle
	ranges   map[int]splitter.Range // non-split tasks' implicit full range
	closed   bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{
		splitMap: make(map[int]*splitter.Handle),
		ranges:   make(map[int]splitter.Range),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue pushes id onto the FIFO. If splittable and population/cfg
// permit it, a split.Handle is computed and stored in split_map; callers
// should pull one sub-task per wake via GetNext for as many sub-tasks as
// NumSubtasks reports.
func (q *Queue) Enqueue(id, population int, splittable bool, cfg SplitConfig) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if splittable {
		if h, ok := splitter.Split(population, cfg.MaxTasksPerSplit, cfg.MinVectorSize); ok {
			q.splitMap[id] = h
			q.fifo = append(q.fifo, id)
			q.cond.Broadcast()
			return
		}
	}
	q.ranges[id] = splitter.Range{Offset: 0, Count: population}
	q.fifo = append(q.fifo, id)
	q.cond.Broadcast()
}

// EnqueueTerminate wakes exactly one worker to exit: queue.get_next()
// returning the sentinel id.
func (q *Queue) EnqueueTerminate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fifo = append(q.fifo, terminate)
	q.cond.Broadcast()
}

// GetNext blocks while the queue is empty and returns the next sub-task
// to run. The front task id is only popped off the FIFO once its last
// sub-task has been handed out (or immediately, for unsplit tasks).
func (q *Queue) GetNext() subtask {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		for len(q.fifo) == 0 {
			q.cond.Wait()
		}
		id := q.fifo[0]
		if id == terminate {
			q.fifo = q.fifo[1:]
			return subtask{id: terminate}
		}
		h, ok := q.splitMap[id]
		if !ok {
			q.fifo = q.fifo[1:]
			r := q.ranges[id]
			delete(q.ranges, id)
			return subtask{id: id, split: false, rng: r}
		}
		r, more := h.Next()
		if !more {
			// Every sub-task already handed out; this id is waiting on
			// completions, not further hand-outs. Drop it and retry.
			q.fifo = q.fifo[1:]
			continue
		}
		if u, _ := h.Counts(); u == 0 {
			q.fifo = q.fifo[1:]
		}
		return subtask{id: id, split: true, rng: r}
	}
}

// TaskDone reports one sub-task's completion. For a split task it
// decrements the split's running counter; the returned bool is true once
// every sub-task (and hand-out) of id has completed, meaning the caller
// should now report the whole logical task done to the Task Manager.
func (q *Queue) TaskDone(id int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	h, ok := q.splitMap[id]
	if !ok {
		return true
	}
	complete := h.Done()
	if complete {
		delete(q.splitMap, id)
	}
	return complete
}

// Len reports the number of FIFO entries (not sub-tasks) outstanding.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fifo)
}
