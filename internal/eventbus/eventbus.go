// Package eventbus implements the runtime's notification bus (C14): a
// pub/sub fan-out of lifecycle events (iteration start/end, task
// completion, agent death) to any number of subscribers, such as the
// status server (C13) and the optional NATS bridge (C15). The
// buffered-channel-with-retry-then-drop shape mirrors this codebase's
// own event bus.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/flame2-go/flame2/internal/logx"
)

// Kind identifies what happened.
type Kind string

const (
	KindIterationStart Kind = "iteration_start"
	KindIterationEnd   Kind = "iteration_end"
	KindTaskDone       Kind = "task_done"
	KindTaskFailed     Kind = "task_failed"
	KindAgentDied      Kind = "agent_died"
)

// Event is one notification published on the bus.
type Event struct {
	Kind      Kind
	RunID     string
	Iteration int
	TaskID    int
	TaskName  string
	Agent     string
	Detail    string
	At        time.Time
}

const (
	subscriberBuffer       = 256
	maxBackpressureRetries = 3
	backpressureRetryDelay = 10 * time.Millisecond
)

type subscription struct {
	ch chan Event
}

// Bus fans out Events to every live subscriber. The zero value is not
// usable; construct with New.
type Bus struct {
	mu      sync.RWMutex
	subs    map[*subscription]bool
	log     *logx.Logger
	dropped uint64
	runID   string
}

// New creates an empty bus, tagged with a fresh run identifier so every
// event it publishes can be correlated across the status server and the
// NATS bridge even when several runs share one log stream.
func New() *Bus {
	return &Bus{subs: make(map[*subscription]bool), log: logx.New("eventbus"), runID: uuid.New().String()}
}

// Subscribe registers a new listener and returns a channel of events. Call
// Unsubscribe with the same channel to stop receiving and release it.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &subscription{ch: make(chan Event, subscriberBuffer)}
	b.subs[sub] = true
	return sub.ch
}

// Unsubscribe removes ch from the fan-out set and closes it.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if sub.ch == ch {
			delete(b.subs, sub)
			close(sub.ch)
			return
		}
	}
}

// Publish fans event out to every current subscriber, retrying briefly
// against a full channel before dropping and logging.
func (b *Bus) Publish(event Event) {
	if event.RunID == "" {
		event.RunID = b.runID
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		b.sendWithBackpressure(sub, event)
	}
}

func (b *Bus) sendWithBackpressure(sub *subscription, event Event) {
	select {
	case sub.ch <- event:
		return
	default:
	}
	for retry := 1; retry <= maxBackpressureRetries; retry++ {
		time.Sleep(backpressureRetryDelay)
		select {
		case sub.ch <- event:
			return
		default:
		}
	}
	dropped := atomic.AddUint64(&b.dropped, 1)
	b.log.Warnf("dropped event kind=%s task=%d after %d retries (total dropped: %d)", event.Kind, event.TaskID, maxBackpressureRetries, dropped)
}

// DroppedCount returns the number of events dropped due to a
// persistently full subscriber channel.
func (b *Bus) DroppedCount() uint64 {
	return atomic.LoadUint64(&b.dropped)
}
