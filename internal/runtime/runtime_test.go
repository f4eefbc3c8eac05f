package runtime

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/flame2-go/flame2/internal/ioplugin/csv"
	"github.com/flame2-go/flame2/internal/memstore"
	"github.com/flame2-go/flame2/internal/proxy"
	"github.com/flame2-go/flame2/internal/taskgraph"
)

func incrementFn(p *proxy.Proxy) proxy.Status {
	n, err := proxy.Get[int](p, "count")
	if err != nil {
		return proxy.Dead
	}
	if err := proxy.Set(p, "count", n+1); err != nil {
		return proxy.Dead
	}
	return proxy.Alive
}

func agentIncrementSpec() taskgraph.AgentFunctionSpec {
	return taskgraph.AgentFunctionSpec{
		Agent:      "Counter",
		FnName:     "increment",
		Fn:         incrementFn,
		AccessList: map[string]memstore.Access{"count": memstore.ReadWrite},
	}
}

func TestRuntimeRunsIterations(t *testing.T) {
	rt := New(RunConfig{Workers: 2, MaxSplitTasks: 1, MinSplitSize: 1})
	if err := rt.Mem.RegisterAgent("Counter"); err != nil {
		t.Fatal(err)
	}
	if err := rt.Mem.RegisterVariable("Counter", "count", reflect.TypeOf(int(0))); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := rt.Mem.PushRow("Counter", map[string]interface{}{"count": 0}); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := rt.Tasks.CreateAgentTask("increment", agentIncrementSpec()); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	out := csv.New(filepath.Join(dir, "out"))
	if err := rt.Finalize(out); err != nil {
		t.Fatal(err)
	}
	defer rt.Close(context.Background())

	for i := 0; i < 3; i++ {
		if err := rt.RunIteration(); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
	}

	col, err := rt.Mem.GetColumn("Counter", "count")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < col.Size(); i++ {
		v, err := col.RawAt(i)
		if err != nil {
			t.Fatal(err)
		}
		if v.(int) != 3 {
			t.Errorf("row %d: count = %v, want 3", i, v)
		}
	}
}

func TestRuntimeRunIterationBeforeFinalizeFails(t *testing.T) {
	rt := New(RunConfig{})
	if err := rt.RunIteration(); err == nil {
		t.Error("expected error calling RunIteration before Finalize")
	}
}

func TestDefaultRuntimeRoundTrip(t *testing.T) {
	rt := New(RunConfig{})
	SetDefault(rt)
	if Default() != rt {
		t.Error("Default() did not return the installed Runtime")
	}
}
