package scheduler

import (
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/flame2-go/flame2/internal/board"
	"github.com/flame2-go/flame2/internal/memstore"
	"github.com/flame2-go/flame2/internal/proxy"
	"github.com/flame2-go/flame2/internal/taskgraph"
)

// Location is the circles model's single message type.
type Location struct {
	ID int
	X  float64
	Y  float64
}

const stiffness = 0.1

func buildCirclesModel(t *testing.T) (*memstore.Manager, *board.Manager, *taskgraph.Manager) {
	t.Helper()
	mem := memstore.NewManager()
	if err := mem.RegisterAgent("Circle"); err != nil {
		t.Fatal(err)
	}
	intType := reflect.TypeOf(int(0))
	floatType := reflect.TypeOf(float64(0))
	for _, v := range []string{"id"} {
		if err := mem.RegisterVariable("Circle", v, intType); err != nil {
			t.Fatal(err)
		}
	}
	for _, v := range []string{"x", "y", "radius", "fx", "fy"} {
		if err := mem.RegisterVariable("Circle", v, floatType); err != nil {
			t.Fatal(err)
		}
	}
	rows := []struct {
		id   int
		x, y float64
	}{
		{0, 0, 0},
		{1, 1, 0},
		{2, 3, 0},
	}
	for _, r := range rows {
		err := mem.PushRow("Circle", map[string]interface{}{
			"id": r.id, "x": r.x, "y": r.y, "radius": 1.0, "fx": 0.0, "fy": 0.0,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	boards := board.NewManager()
	if err := boards.Register("location", reflect.TypeOf(Location{})); err != nil {
		t.Fatal(err)
	}

	tasks := taskgraph.NewManager()
	outID, err := tasks.CreateAgentTask("T_out", taskgraph.AgentFunctionSpec{
		Agent:  "Circle",
		FnName: "out",
		Fn:     outFn,
		AccessList: map[string]memstore.Access{
			"id": memstore.ReadOnly, "x": memstore.ReadOnly, "y": memstore.ReadOnly,
		},
		MBAcl: proxy.BoardACL{PostMsgs: map[string]bool{"location": true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	syncID, err := tasks.CreateMessageBoardTask("T_sync_location", taskgraph.MessageBoardOpSpec{
		Message: "location", Op: taskgraph.MBSync,
	})
	if err != nil {
		t.Fatal(err)
	}
	inID, err := tasks.CreateAgentTask("T_in", taskgraph.AgentFunctionSpec{
		Agent:  "Circle",
		FnName: "in",
		Fn:     inFn,
		AccessList: map[string]memstore.Access{
			"id": memstore.ReadOnly, "x": memstore.ReadOnly, "y": memstore.ReadOnly,
			"radius": memstore.ReadOnly, "fx": memstore.ReadWrite, "fy": memstore.ReadWrite,
		},
		MBAcl: proxy.BoardACL{ReadMsgs: map[string]bool{"location": true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	clearID, err := tasks.CreateMessageBoardTask("T_clear_location", taskgraph.MessageBoardOpSpec{
		Message: "location", Op: taskgraph.MBClear,
	})
	if err != nil {
		t.Fatal(err)
	}
	moveID, err := tasks.CreateAgentTask("T_move", taskgraph.AgentFunctionSpec{
		Agent:  "Circle",
		FnName: "move",
		Fn:     moveFn,
		AccessList: map[string]memstore.Access{
			"fx": memstore.ReadOnly, "fy": memstore.ReadOnly,
			"x": memstore.ReadWrite, "y": memstore.ReadWrite,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	mustDep := func(child, parent int) {
		if err := tasks.AddDependency(child, parent); err != nil {
			t.Fatal(err)
		}
	}
	mustDep(syncID, outID)
	mustDep(inID, syncID)
	mustDep(clearID, inID)
	mustDep(moveID, inID)

	if err := tasks.Finalize(); err != nil {
		t.Fatal(err)
	}
	return mem, boards, tasks
}

func outFn(p *proxy.Proxy) proxy.Status {
	id, _ := proxy.Get[int](p, "id")
	x, _ := proxy.Get[float64](p, "x")
	y, _ := proxy.Get[float64](p, "y")
	proxy.Post(p, "location", Location{ID: id, X: x, Y: y})
	return proxy.Alive
}

func inFn(p *proxy.Proxy) proxy.Status {
	id, _ := proxy.Get[int](p, "id")
	x, _ := proxy.Get[float64](p, "x")
	y, _ := proxy.Get[float64](p, "y")
	radius, _ := proxy.Get[float64](p, "radius")

	var fx, fy float64
	msgs, err := p.Messages("location")
	if err != nil {
		return proxy.Dead
	}
	for !msgs.AtEnd() {
		other, _ := board.Get[Location](msgs)
		if other.ID != id {
			dx, dy := x-other.X, y-other.Y
			dist := math.Hypot(dx, dy)
			if dist > 0 && dist < 2*radius {
				overlap := 2*radius - dist
				fx += stiffness * overlap * dx / dist
				fy += stiffness * overlap * dy / dist
			}
		}
		msgs.Next()
	}
	proxy.Set(p, "fx", fx)
	proxy.Set(p, "fy", fy)
	return proxy.Alive
}

func moveFn(p *proxy.Proxy) proxy.Status {
	fx, _ := proxy.Get[float64](p, "fx")
	fy, _ := proxy.Get[float64](p, "fy")
	x, _ := proxy.Get[float64](p, "x")
	y, _ := proxy.Get[float64](p, "y")
	proxy.Set(p, "x", x+fx)
	proxy.Set(p, "y", y+fy)
	return proxy.Alive
}

func approxEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCirclesModelOneIteration(t *testing.T) {
	mem, boards, tasks := buildCirclesModel(t)
	sched := New(tasks, mem, boards, nil, SplitConfig{MaxTasksPerSplit: 4, MinVectorSize: 20})

	if err := sched.RunIteration(2); err != nil {
		t.Fatalf("RunIteration failed: %v", err)
	}

	shadow, err := mem.GetShadow("Circle")
	if err != nil {
		t.Fatal(err)
	}
	shadow.Allow("x", memstore.ReadOnly)
	shadow.Allow("y", memstore.ReadOnly)
	it, err := shadow.Iter()
	if err != nil {
		t.Fatal(err)
	}

	want := []struct{ x, y float64 }{
		{-0.1, 0},
		{1.1, 0},
		{3, 0},
	}
	for i := 0; !it.AtEnd(); i++ {
		x, _ := memstore.Get[float64](it, "x")
		y, _ := memstore.Get[float64](it, "y")
		if !approxEqual(x, want[i].x) || !approxEqual(y, want[i].y) {
			t.Errorf("circle %d = (%v, %v), want (%v, %v)", i, x, y, want[i].x, want[i].y)
		}
		it.Step()
	}
}

func TestDiamondScheduleOrdering(t *testing.T) {
	mem := memstore.NewManager()
	mem.RegisterAgent("Dummy")
	mem.RegisterVariable("Dummy", "v", reflect.TypeOf(int(0)))
	mem.PushRow("Dummy", map[string]interface{}{"v": 0})

	boards := board.NewManager()
	tasks := taskgraph.NewManager()

	var orderMu sync.Mutex
	var order []string
	record := func(name string) taskgraph.TransitionFunc {
		return func(p *proxy.Proxy) proxy.Status {
			orderMu.Lock()
			order = append(order, name)
			orderMu.Unlock()
			return proxy.Alive
		}
	}

	spec := func(name string) taskgraph.AgentFunctionSpec {
		return taskgraph.AgentFunctionSpec{Agent: "Dummy", FnName: name, Fn: record(name)}
	}
	a, _ := tasks.CreateAgentTask("A", spec("A"))
	b, _ := tasks.CreateAgentTask("B", spec("B"))
	c, _ := tasks.CreateAgentTask("C", spec("C"))
	d, _ := tasks.CreateAgentTask("D", spec("D"))
	tasks.AddDependency(b, a)
	tasks.AddDependency(c, a)
	tasks.AddDependency(d, b)
	tasks.AddDependency(d, c)
	if err := tasks.Finalize(); err != nil {
		t.Fatal(err)
	}

	sched := New(tasks, mem, boards, nil, SplitConfig{})
	if err := sched.RunIteration(2); err != nil {
		t.Fatal(err)
	}

	if len(order) != 4 || order[0] != "A" || order[3] != "D" {
		t.Fatalf("order = %v, want A first, D last", order)
	}
	middle := map[string]bool{order[1]: true, order[2]: true}
	if !middle["B"] || !middle["C"] {
		t.Fatalf("order = %v, want B and C between A and D", order)
	}
}
