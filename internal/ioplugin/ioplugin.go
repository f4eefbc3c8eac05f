// Package ioplugin defines the population I/O extension points the core
// calls through (C12): an OutputPlugin backs the three IoOp hooks
// (InitOutput, WriteOne, FinalizeOutput), and a Loader drives population
// loading before the first iteration through two typed callbacks. Both
// the core and this package are deliberately ignorant of file formats;
// concrete formats live under this package's csv and sqlite subpackages.
package ioplugin

import "github.com/flame2-go/flame2/internal/memstore"

// OutputPlugin is the scheduler.IoPlugin contract, named here so concrete
// plug-ins depend only on this package rather than the scheduler.
type OutputPlugin interface {
	InitOutput() error
	WriteOne(agent, variable string, it *memstore.Iterator) error
	FinalizeOutput() error
}

// LoadCallbacks are the two typed setters a Loader calls while reading a
// population, one call per (row, variable). The driver binds these to a
// specific Manager/agent pair before handing them to a Loader.
type LoadCallbacks struct {
	AddInt    func(agent, variable string, v int) error
	AddDouble func(agent, variable string, v float64) error
}

// Loader reads an external population source and replays it through cb.
type Loader interface {
	Open(path string) error
	Load(agent string, cb LoadCallbacks) error
	Close() error
}

// WriteAgent drives out over every registered variable of agent, the
// same way the scheduler's IoWriteOne task kind does, for callers that
// write a final snapshot directly rather than through the task graph.
func WriteAgent(mem *memstore.Manager, agent string, out OutputPlugin) error {
	vars, err := mem.Variables(agent)
	if err != nil {
		return err
	}
	for _, v := range vars {
		shadow, err := mem.GetShadow(agent)
		if err != nil {
			return err
		}
		shadow.Allow(v, memstore.ReadOnly)
		it, err := shadow.Iter()
		if err != nil {
			return err
		}
		if err := out.WriteOne(agent, v, it); err != nil {
			return err
		}
	}
	return nil
}
