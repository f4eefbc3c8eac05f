package memstore

import (
	"reflect"
	"testing"

	"github.com/flame2-go/flame2/internal/column"
)

func setupCircleAgent(t *testing.T) *Manager {
	t.Helper()
	m := NewManager()
	if err := m.RegisterAgent("Circle"); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}
	for _, v := range []string{"id", "x", "y", "radius", "fx", "fy"} {
		typ := reflect.TypeOf(float64(0))
		if v == "id" {
			typ = reflect.TypeOf(int64(0))
		}
		if err := m.RegisterVariable("Circle", v, typ); err != nil {
			t.Fatalf("RegisterVariable(%s): %v", v, err)
		}
	}
	return m
}

func TestRegisterAgentDuplicate(t *testing.T) {
	m := NewManager()
	if err := m.RegisterAgent("Circle"); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}
	if err := m.RegisterAgent("Circle"); err == nil {
		t.Fatal("expected AlreadyExists error")
	}
}

func TestRegisterVariableUnknownAgent(t *testing.T) {
	m := NewManager()
	if err := m.RegisterVariable("Circle", "x", reflect.TypeOf(float64(0))); err == nil {
		t.Fatal("expected UnknownAgent error")
	}
}

func TestHintPopulationClosesRegistration(t *testing.T) {
	m := setupCircleAgent(t)
	if err := m.HintPopulation("Circle", 10); err != nil {
		t.Fatalf("HintPopulation: %v", err)
	}
	if err := m.RegisterAgent("Square"); err == nil {
		t.Fatal("expected AlreadyClosed after HintPopulation")
	}
}

func TestGetShadowUnknownAgent(t *testing.T) {
	m := NewManager()
	if _, err := m.GetShadow("Circle"); err == nil {
		t.Fatal("expected UnknownAgent error")
	}
}

func TestPushRowAndIterate(t *testing.T) {
	m := setupCircleAgent(t)
	rows := []map[string]interface{}{
		{"id": int64(0), "x": 0.0, "y": 0.0, "radius": 1.0, "fx": 0.0, "fy": 0.0},
		{"id": int64(1), "x": 1.0, "y": 0.0, "radius": 1.0, "fx": 0.0, "fy": 0.0},
	}
	for _, r := range rows {
		if err := m.PushRow("Circle", r); err != nil {
			t.Fatalf("PushRow: %v", err)
		}
	}
	n, err := m.GetPopulationSize("Circle")
	if err != nil || n != 2 {
		t.Fatalf("GetPopulationSize = %d, %v", n, err)
	}

	shadow, err := m.GetShadow("Circle")
	if err != nil {
		t.Fatalf("GetShadow: %v", err)
	}
	shadow.Allow("x", ReadWrite)
	shadow.Allow("y", ReadOnly)

	it, err := shadow.Iter()
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}

	x0, err := Get[float64](it, "x")
	if err != nil || x0 != 0.0 {
		t.Fatalf("Get(x)=%v, %v", x0, err)
	}
	if err := Set(it, "x", 5.0); err != nil {
		t.Fatalf("Set(x): %v", err)
	}
	if err := Set(it, "y", 1.0); err == nil {
		t.Fatal("expected AccessDenied setting read-only variable y")
	}
	if _, err := Get[float64](it, "radius"); err == nil {
		t.Fatal("expected AccessDenied reading variable not in ACL")
	}

	if !it.Step() {
		t.Fatal("expected Step to advance")
	}
	x1, _ := Get[float64](it, "x")
	if x1 != 1.0 {
		t.Errorf("expected row 1's x == 1.0, got %v", x1)
	}
	if !it.Step() {
		t.Error("expected Step off the last row to advance to the end")
	}
	if !it.AtEnd() {
		t.Error("expected AtEnd after exhausting range")
	}
	if it.Step() {
		t.Error("expected Step at end of range to return false")
	}

	col, err := m.GetColumn("Circle", "x")
	if err != nil {
		t.Fatalf("GetColumn: %v", err)
	}
	if col.Size() != 2 {
		t.Fatalf("expected size 2, got %d", col.Size())
	}
}

func TestIterRangeSplitDisjoint(t *testing.T) {
	m := setupCircleAgent(t)
	for i := 0; i < 4; i++ {
		_ = m.PushRow("Circle", map[string]interface{}{
			"id": int64(i), "x": float64(i), "y": 0.0, "radius": 1.0, "fx": 0.0, "fy": 0.0,
		})
	}
	shadow, _ := m.GetShadow("Circle")
	shadow.Allow("x", ReadWrite)

	first, err := shadow.IterRange(0, 2)
	if err != nil {
		t.Fatalf("IterRange(0,2): %v", err)
	}
	second, err := shadow.IterRange(2, 2)
	if err != nil {
		t.Fatalf("IterRange(2,2): %v", err)
	}

	_ = Set(first, "x", 100.0)
	_ = Set(second, "x", 200.0)

	col, _ := m.GetColumn("Circle", "x")
	v0, _ := column.GetAt[float64](col, 0)
	v2, _ := column.GetAt[float64](col, 2)
	if v0 != 100.0 || v2 != 200.0 {
		t.Errorf("split writes landed wrong: v0=%v v2=%v", v0, v2)
	}
}

func TestIterRangeOutOfRange(t *testing.T) {
	m := setupCircleAgent(t)
	_ = m.PushRow("Circle", map[string]interface{}{
		"id": int64(0), "x": 0.0, "y": 0.0, "radius": 1.0, "fx": 0.0, "fy": 0.0,
	})
	shadow, _ := m.GetShadow("Circle")
	if _, err := shadow.IterRange(0, 5); err == nil {
		t.Fatal("expected OutOfRange error")
	}
}
