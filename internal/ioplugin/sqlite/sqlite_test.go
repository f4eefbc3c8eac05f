package sqlite

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/flame2-go/flame2/internal/ioplugin"
	"github.com/flame2-go/flame2/internal/memstore"
)

func buildPopulation(t *testing.T) *memstore.Manager {
	t.Helper()
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
	for i, x := range []float64{0, 1, 3} {
		if err := mem.PushRow("Circle", map[string]interface{}{"id": i, "x": x}); err != nil {
			t.Fatal(err)
		}
	}
	return mem
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	mem := buildPopulation(t)
	shadow, err := mem.GetShadow("Circle")
	if err != nil {
		t.Fatal(err)
	}
	shadow.Allow("id", memstore.ReadOnly)
	shadow.Allow("x", memstore.ReadOnly)

	path := filepath.Join(t.TempDir(), "out.db")
	plugin, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer plugin.Close()

	if err := plugin.InitOutput(); err != nil {
		t.Fatal(err)
	}
	for _, v := range []string{"id", "x"} {
		it, err := shadow.Iter()
		if err != nil {
			t.Fatal(err)
		}
		if err := plugin.WriteOne("Circle", v, it); err != nil {
			t.Fatal(err)
		}
	}
	if err := plugin.FinalizeOutput(); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader()
	if err := loader.Open(path); err != nil {
		t.Fatal(err)
	}
	defer loader.Close()

	var gotX []float64
	cb := ioplugin.LoadCallbacks{
		AddInt: func(agent, variable string, v int) error { return nil },
		AddDouble: func(agent, variable string, v float64) error {
			if variable == "x" {
				gotX = append(gotX, v)
			}
			return nil
		},
	}
	if err := loader.Load("Circle", cb); err != nil {
		t.Fatal(err)
	}
	if len(gotX) != 3 {
		t.Fatalf("got %d x values, want 3", len(gotX))
	}
}
