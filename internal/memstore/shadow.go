package memstore

import "github.com/flame2-go/flame2/internal/flame2err"

// Shadow is a per-task view over one agent type: a non-owning reference to
// the manager's columns plus an owned allow-list of variable accesses. A
// shadow starts with an empty access list; callers add entries with Allow.
type Shadow struct {
	mgr   *Manager
	agent string
	acl   map[string]Access
}

// Allow grants access to variable at the given level. Calling Allow again
// for the same variable overwrites the previous grant.
func (s *Shadow) Allow(variable string, access Access) {
	s.acl[variable] = access
}

// Agent returns the agent type this shadow views.
func (s *Shadow) Agent() string { return s.agent }

// Iter returns a Memory Iterator over the whole population of s.Agent().
func (s *Shadow) Iter() (*Iterator, error) {
	n, err := s.mgr.GetPopulationSize(s.agent)
	if err != nil {
		return nil, err
	}
	return s.IterRange(0, n)
}

// IterRange returns a Memory Iterator over the contiguous range
// [offset, offset+count). Used directly by split sub-tasks.
func (s *Shadow) IterRange(offset, count int) (*Iterator, error) {
	n, err := s.mgr.GetPopulationSize(s.agent)
	if err != nil {
		return nil, err
	}
	if offset < 0 || count < 0 || offset+count > n {
		return nil, flame2err.OutOfRange("Shadow.IterRange", "range beyond population size")
	}
	return &Iterator{shadow: s, offset: offset, count: count, pos: 0}, nil
}
