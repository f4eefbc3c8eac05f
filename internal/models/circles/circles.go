// Package circles implements the "bouncing circles" demo model used by
// cmd/flame2run when no population file is given: a flat 2D packing of
// repulsive disks that push each other apart until no two overlap. It
// is a minimal, complete example of wiring an agent, a message type,
// and a five-task dependency graph, not a scenario a caller is expected
// to extend.
package circles

import (
	"fmt"
	"math"
	"reflect"

	"github.com/flame2-go/flame2/internal/board"
	"github.com/flame2-go/flame2/internal/memstore"
	"github.com/flame2-go/flame2/internal/proxy"
	"github.com/flame2-go/flame2/internal/taskgraph"
)

// Location is posted by each circle and read back by every other circle
// to compute pairwise repulsion.
type Location struct {
	ID int
	X  float64
	Y  float64
}

// Stiffness scales the repulsion force applied when two circles overlap.
const Stiffness = 0.1

// Seed is one circle's initial placement.
type Seed struct {
	ID     int
	X, Y   float64
	Radius float64
}

// DefaultSeeds returns a small three-circle layout with one overlapping
// pair, the same starting point spec.md's worked example uses.
func DefaultSeeds() []Seed {
	return []Seed{
		{ID: 0, X: 0, Y: 0, Radius: 1},
		{ID: 1, X: 1, Y: 0, Radius: 1},
		{ID: 2, X: 3, Y: 0, Radius: 1},
	}
}

// Register declares the Circle agent and its variables on mem, pushes
// seeds as the initial population, declares the location message on
// boards, and builds the five-task out/sync/in/clear/move dependency
// graph on tasks. Callers still need to call tasks.Finalize().
func Register(mem *memstore.Manager, boards *board.Manager, tasks *taskgraph.Manager, seeds []Seed) error {
	if err := mem.RegisterAgent("Circle"); err != nil {
		return err
	}
	intType := reflect.TypeOf(int(0))
	floatType := reflect.TypeOf(float64(0))
	if err := mem.RegisterVariable("Circle", "id", intType); err != nil {
		return err
	}
	for _, v := range []string{"x", "y", "radius", "fx", "fy"} {
		if err := mem.RegisterVariable("Circle", v, floatType); err != nil {
			return err
		}
	}
	for _, s := range seeds {
		err := mem.PushRow("Circle", map[string]interface{}{
			"id": s.ID, "x": s.X, "y": s.Y, "radius": s.Radius, "fx": 0.0, "fy": 0.0,
		})
		if err != nil {
			return fmt.Errorf("circles: push seed %d: %w", s.ID, err)
		}
	}

	if err := boards.Register("location", reflect.TypeOf(Location{})); err != nil {
		return err
	}

	outID, err := tasks.CreateAgentTask("T_out", taskgraph.AgentFunctionSpec{
		Agent:  "Circle",
		FnName: "out",
		Fn:     outFn,
		AccessList: map[string]memstore.Access{
			"id": memstore.ReadOnly, "x": memstore.ReadOnly, "y": memstore.ReadOnly,
		},
		MBAcl:      proxy.BoardACL{PostMsgs: map[string]bool{"location": true}},
		Splittable: true,
	})
	if err != nil {
		return err
	}
	syncID, err := tasks.CreateMessageBoardTask("T_sync_location", taskgraph.MessageBoardOpSpec{
		Message: "location", Op: taskgraph.MBSync,
	})
	if err != nil {
		return err
	}
	inID, err := tasks.CreateAgentTask("T_in", taskgraph.AgentFunctionSpec{
		Agent:  "Circle",
		FnName: "in",
		Fn:     inFn,
		AccessList: map[string]memstore.Access{
			"id": memstore.ReadOnly, "x": memstore.ReadOnly, "y": memstore.ReadOnly,
			"radius": memstore.ReadOnly, "fx": memstore.ReadWrite, "fy": memstore.ReadWrite,
		},
		MBAcl:      proxy.BoardACL{ReadMsgs: map[string]bool{"location": true}},
		Splittable: true,
	})
	if err != nil {
		return err
	}
	clearID, err := tasks.CreateMessageBoardTask("T_clear_location", taskgraph.MessageBoardOpSpec{
		Message: "location", Op: taskgraph.MBClear,
	})
	if err != nil {
		return err
	}
	moveID, err := tasks.CreateAgentTask("T_move", taskgraph.AgentFunctionSpec{
		Agent:  "Circle",
		FnName: "move",
		Fn:     moveFn,
		AccessList: map[string]memstore.Access{
			"fx": memstore.ReadOnly, "fy": memstore.ReadOnly,
			"x": memstore.ReadWrite, "y": memstore.ReadWrite,
		},
		Splittable: true,
	})
	if err != nil {
		return err
	}

	for _, dep := range [][2]int{{syncID, outID}, {inID, syncID}, {clearID, inID}, {moveID, inID}} {
		if err := tasks.AddDependency(dep[0], dep[1]); err != nil {
			return err
		}
	}
	return nil
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
				fx += Stiffness * overlap * dx / dist
				fy += Stiffness * overlap * dy / dist
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
