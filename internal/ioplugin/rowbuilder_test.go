package ioplugin

import (
	"reflect"
	"testing"

	"github.com/flame2-go/flame2/internal/memstore"
)

func TestRowBuilderFlushesOnVariableRepeat(t *testing.T) {
	mem := memstore.NewManager()
	if err := mem.RegisterAgent("Circle"); err != nil {
		t.Fatal(err)
	}
	if err := mem.RegisterVariable("Circle", "id", reflect.TypeOf(int(0))); err != nil {
		t.Fatal(err)
	}
	if err := mem.RegisterVariable("Circle", "x", reflect.TypeOf(float64(0))); err != nil {
		t.Fatal(err)
	}

	b := NewRowBuilder(mem)
	cb := b.Callbacks("Circle")
	if err := cb.AddInt("Circle", "id", 1); err != nil {
		t.Fatal(err)
	}
	if err := cb.AddDouble("Circle", "x", 1.5); err != nil {
		t.Fatal(err)
	}
	// "id" repeats: this should flush the first row before starting a
	// second.
	if err := cb.AddInt("Circle", "id", 2); err != nil {
		t.Fatal(err)
	}
	if err := cb.AddDouble("Circle", "x", 2.5); err != nil {
		t.Fatal(err)
	}
	if err := b.Flush("Circle"); err != nil {
		t.Fatal(err)
	}

	n, err := mem.GetPopulationSize("Circle")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("population size = %d, want 2", n)
	}

	col, err := mem.GetColumn("Circle", "id")
	if err != nil {
		t.Fatal(err)
	}
	v0, _ := col.RawAt(0)
	v1, _ := col.RawAt(1)
	if v0.(int) != 1 || v1.(int) != 2 {
		t.Errorf("ids = %v, %v, want 1, 2", v0, v1)
	}
}

func TestRowBuilderFlushOnEmptyRowIsNoop(t *testing.T) {
	mem := memstore.NewManager()
	if err := mem.RegisterAgent("Circle"); err != nil {
		t.Fatal(err)
	}
	b := NewRowBuilder(mem)
	if err := b.Flush("Circle"); err != nil {
		t.Fatal(err)
	}
}
