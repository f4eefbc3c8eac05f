// Command flame2run is a small demonstration driver: it wires the
// runtime per spec.md's five-step configuration sequence (register
// agents/messages, create tasks and dependencies, finalize, iterate)
// against either the built-in "circles" demo model or a population
// loaded from disk, and writes the final population state back out.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flame2-go/flame2/internal/ioplugin"
	"github.com/flame2-go/flame2/internal/ioplugin/csv"
	"github.com/flame2-go/flame2/internal/ioplugin/sqlite"
	"github.com/flame2-go/flame2/internal/models/circles"
	"github.com/flame2-go/flame2/internal/runtime"
	"github.com/flame2-go/flame2/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "YAML run configuration file (flags below are used if empty)")
	popDir := flag.String("population-dir", "", "directory/file to load the initial population from (demo circles model if empty)")
	format := flag.String("format", "csv", "population I/O format: csv or sqlite")
	outputDir := flag.String("output-dir", "./flame2-out", "directory/file to write final population state to")
	iterations := flag.Int("iterations", 10, "number of iterations to run")
	workers := flag.Int("workers", 4, "worker pool size")
	maxSplitTasks := flag.Int("max-split-tasks", 4, "maximum sub-tasks a splittable task is divided into")
	minSplitSize := flag.Int("min-split-size", 20, "minimum rows per sub-task before a task stops splitting")
	statusAddr := flag.String("status-addr", "", "address to serve the status/introspection server on (disabled if empty)")
	natsURL := flag.String("nats-url", "", "NATS server URL to forward lifecycle events to (disabled if empty)")
	flag.Parse()

	cfg, err := resolveConfig(*configPath, *iterations, *workers, *maxSplitTasks, *minSplitSize, *outputDir, *statusAddr, *natsURL)
	if err != nil {
		fail(err)
	}

	rt := runtime.New(*cfg)
	runtime.SetDefault(rt)

	if *popDir == "" {
		if err := circles.Register(rt.Mem, rt.Boards, rt.Tasks, circles.DefaultSeeds()); err != nil {
			fail(fmt.Errorf("registering demo model: %w", err))
		}
	} else {
		if err := circles.Register(rt.Mem, rt.Boards, rt.Tasks, nil); err != nil {
			fail(fmt.Errorf("registering model: %w", err))
		}
		if err := loadPopulation(rt, *format, *popDir); err != nil {
			fail(fmt.Errorf("loading population: %w", err))
		}
	}

	out, err := newOutputPlugin(*format, cfg.OutputDir)
	if err != nil {
		fail(err)
	}

	if err := rt.Finalize(out); err != nil {
		fail(err)
	}
	defer rt.Close(context.Background())

	if err := out.InitOutput(); err != nil {
		fail(fmt.Errorf("initializing output: %w", err))
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	if err := runIterations(rt, cfg.Iterations, shutdown); err != nil {
		fail(err)
	}

	if err := ioplugin.WriteAgent(rt.Mem, "Circle", out); err != nil {
		fail(fmt.Errorf("writing final population: %w", err))
	}
	if err := out.FinalizeOutput(); err != nil {
		fail(fmt.Errorf("writing final population: %w", err))
	}
	fmt.Println("run complete")
}

func runIterations(rt *runtime.Runtime, n int, shutdown <-chan os.Signal) error {
	done := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			select {
			case <-shutdown:
				done <- fmt.Errorf("interrupted after %d/%d iterations", i, n)
				return
			default:
			}
			if err := rt.RunIteration(); err != nil {
				done <- err
				return
			}
			fmt.Printf("iteration %d/%d complete\n", i+1, n)
		}
		done <- nil
	}()
	return <-done
}

func resolveConfig(configPath string, iterations, workers, maxSplitTasks, minSplitSize int, outputDir, statusAddr, natsURL string) (*runtime.RunConfig, error) {
	if configPath != "" {
		return runtime.LoadRunConfig(configPath)
	}
	cfg := runtime.RunConfig{
		Iterations:    iterations,
		Workers:       workers,
		MaxSplitTasks: maxSplitTasks,
		MinSplitSize:  minSplitSize,
		OutputDir:     outputDir,
		StatusAddr:    statusAddr,
		NatsURL:       natsURL,
	}
	return &cfg, nil
}

func newOutputPlugin(format, dir string) (scheduler.IoPlugin, error) {
	switch format {
	case "csv":
		return csv.New(dir), nil
	case "sqlite":
		return sqlite.New(dir)
	default:
		return nil, fmt.Errorf("unknown population format %q", format)
	}
}

func loadPopulation(rt *runtime.Runtime, format, path string) error {
	var loader ioplugin.Loader
	switch format {
	case "csv":
		loader = csv.NewLoader()
	case "sqlite":
		loader = sqlite.NewLoader()
	default:
		return fmt.Errorf("unknown population format %q", format)
	}
	if err := loader.Open(path); err != nil {
		return err
	}
	defer loader.Close()

	builder := ioplugin.NewRowBuilder(rt.Mem)
	if err := loader.Load("Circle", builder.Callbacks("Circle")); err != nil {
		return err
	}
	return builder.Flush("Circle")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "flame2run: %v\n", err)
	os.Exit(1)
}
