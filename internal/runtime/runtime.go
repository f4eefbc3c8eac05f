// Package runtime wires the Memory Manager, Message Board Manager, Task
// Manager, and Scheduler into a single handle (C10), plus the optional
// status server and NATS bridge. It is the explicit, non-global
// counterpart to the Default package-level wrapper in singleton.go.
package runtime

import (
	"context"
	"fmt"

	"github.com/flame2-go/flame2/internal/board"
	"github.com/flame2-go/flame2/internal/eventbus"
	"github.com/flame2-go/flame2/internal/logx"
	"github.com/flame2-go/flame2/internal/memstore"
	"github.com/flame2-go/flame2/internal/natsbridge"
	"github.com/flame2-go/flame2/internal/scheduler"
	"github.com/flame2-go/flame2/internal/statusserver"
	"github.com/flame2-go/flame2/internal/taskgraph"
)

// Runtime bundles the managers a driver needs to register a model,
// finalize its task graph, and run iterations. All of its fields are
// exported managers rather than hidden state, so a driver can keep
// calling their APIs directly (RegisterAgent, CreateAgentTask, and so
// on) exactly as it would without this wrapper.
type Runtime struct {
	Mem    *memstore.Manager
	Boards *board.Manager
	Tasks  *taskgraph.Manager
	Bus    *eventbus.Bus

	cfg    RunConfig
	log    *logx.Logger
	sched  *scheduler.Scheduler
	status *statusserver.Server
	bridge *natsbridge.Bridge

	iteration int
}

// New builds a Runtime from cfg. The scheduler is not constructed until
// Finalize, since it needs the IoPlugin and the Task Manager's finalized
// graph.
func New(cfg RunConfig) *Runtime {
	cfg.applyDefaults()
	return &Runtime{
		Mem:    memstore.NewManager(),
		Boards: board.NewManager(),
		Tasks:  taskgraph.NewManager(),
		Bus:    eventbus.New(),
		cfg:    cfg,
		log:    logx.New("runtime"),
	}
}

// Finalize closes the Task Manager's DAG to further edits, builds the
// Scheduler bound to io, and starts the optional status server and NATS
// bridge per the run configuration. Call this after step 3 of the
// configuration sequence (register agents/messages, create tasks and
// dependencies) and before the iteration loop.
func (r *Runtime) Finalize(io scheduler.IoPlugin) error {
	if err := r.Tasks.Finalize(); err != nil {
		return fmt.Errorf("runtime: finalize task graph: %w", err)
	}
	r.sched = scheduler.New(r.Tasks, r.Mem, r.Boards, io, scheduler.SplitConfig{
		MaxTasksPerSplit: r.cfg.MaxSplitTasks,
		MinVectorSize:    r.cfg.MinSplitSize,
	})

	if r.cfg.StatusAddr != "" {
		r.status = statusserver.New(r.cfg.StatusAddr, r.Tasks, r.Bus)
		r.status.Start()
		r.log.Infof("status server listening on %s", r.cfg.StatusAddr)
	}

	if r.cfg.NatsURL != "" {
		bridge, err := natsbridge.Connect(r.cfg.NatsURL, r.cfg.NatsSubject)
		if err != nil {
			r.log.Warnf("nats bridge disabled: %v", err)
		} else {
			bridge.Forward(r.Bus)
			r.bridge = bridge
			r.log.Infof("forwarding events to nats subject %s", r.cfg.NatsSubject)
		}
	}
	return nil
}

// RunIteration runs exactly one scheduling iteration (iter_reset, drain
// all ready tasks to completion) and publishes iteration lifecycle
// events on the bus.
func (r *Runtime) RunIteration() error {
	if r.sched == nil {
		return fmt.Errorf("runtime: RunIteration called before Finalize")
	}
	r.iteration++
	r.Bus.Publish(eventbus.Event{Kind: eventbus.KindIterationStart, Iteration: r.iteration})

	r.Tasks.IterReset()
	err := r.sched.RunIteration(r.cfg.Workers)

	for _, taskErr := range r.sched.Errors() {
		r.Bus.Publish(eventbus.Event{Kind: eventbus.KindTaskFailed, Iteration: r.iteration, Detail: taskErr.Error()})
	}
	r.Bus.Publish(eventbus.Event{Kind: eventbus.KindIterationEnd, Iteration: r.iteration})
	return err
}

// Scheduler exposes the underlying Scheduler once Finalize has run, for
// callers that need DeadCount or other scheduler-level introspection.
func (r *Runtime) Scheduler() *scheduler.Scheduler {
	return r.sched
}

// Close shuts down the optional status server and NATS bridge. Safe to
// call even when neither was started.
func (r *Runtime) Close(ctx context.Context) {
	if r.bridge != nil {
		r.bridge.Close()
	}
	if r.status != nil {
		if err := r.status.Shutdown(ctx); err != nil {
			r.log.Warnf("status server shutdown: %v", err)
		}
	}
}
