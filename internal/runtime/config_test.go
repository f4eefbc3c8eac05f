package runtime

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRunConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	yaml := "population: 100\niterations: 10\noutput_dir: ./out\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Population != 100 || cfg.Iterations != 10 {
		t.Errorf("unexpected parsed values: %+v", cfg)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers default = %d, want 1", cfg.Workers)
	}
	if cfg.MaxSplitTasks != 1 || cfg.MinSplitSize != 1 {
		t.Errorf("split defaults not applied: %+v", cfg)
	}
	if cfg.NatsSubject != "flame2.events" {
		t.Errorf("NatsSubject default = %q", cfg.NatsSubject)
	}
}

func TestLoadRunConfigMissingFile(t *testing.T) {
	if _, err := LoadRunConfig("/nonexistent/run.yaml"); err == nil {
		t.Error("expected error loading missing config file")
	}
}

func TestLoadRunConfigPreservesExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	yaml := "workers: 8\nmax_split_tasks: 4\nmin_split_size: 20\nstatus_addr: 127.0.0.1:9090\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 8 || cfg.MaxSplitTasks != 4 || cfg.MinSplitSize != 20 {
		t.Errorf("explicit values overwritten by defaults: %+v", cfg)
	}
	if cfg.StatusAddr != "127.0.0.1:9090" {
		t.Errorf("StatusAddr = %q", cfg.StatusAddr)
	}
}
