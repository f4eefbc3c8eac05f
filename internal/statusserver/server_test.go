package statusserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flame2-go/flame2/internal/eventbus"
	"github.com/flame2-go/flame2/internal/proxy"
	"github.com/flame2-go/flame2/internal/taskgraph"
)

func noop(p *proxy.Proxy) proxy.Status { return proxy.Alive }

func TestHandleStatusReportsTaskCounts(t *testing.T) {
	tasks := taskgraph.NewManager()
	if _, err := tasks.CreateAgentTask("A", taskgraph.AgentFunctionSpec{Agent: "A", FnName: "f", Fn: noop}); err != nil {
		t.Fatal(err)
	}
	if err := tasks.Finalize(); err != nil {
		t.Fatal(err)
	}
	tasks.IterReset()

	bus := eventbus.New()
	srv := New("127.0.0.1:0", tasks, bus)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, req)

	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if snap.NumTasks != 1 {
		t.Errorf("NumTasks = %d, want 1", snap.NumTasks)
	}
	if snap.Ready != 1 {
		t.Errorf("Ready = %d, want 1", snap.Ready)
	}
}
