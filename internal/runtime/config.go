package runtime

import (
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfig is the YAML-serializable configuration for one simulation run.
// Zero values are filled in by applyDefaults before use.
type RunConfig struct {
	Population    int    `yaml:"population"`
	Iterations    int    `yaml:"iterations"`
	Workers       int    `yaml:"workers"`
	MaxSplitTasks int    `yaml:"max_split_tasks"`
	MinSplitSize  int    `yaml:"min_split_size"`
	OutputDir     string `yaml:"output_dir"`
	StatusAddr    string `yaml:"status_addr"`
	NatsURL       string `yaml:"nats_url"`
	NatsSubject   string `yaml:"nats_subject"`
}

// LoadRunConfig reads a YAML run configuration from path.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in zero-valued fields with sane single-process
// defaults, the way a driver calling LoadRunConfig would expect to run
// out of the box.
func (c *RunConfig) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.MaxSplitTasks <= 0 {
		c.MaxSplitTasks = 1
	}
	if c.MinSplitSize <= 0 {
		c.MinSplitSize = 1
	}
	if c.NatsSubject == "" {
		c.NatsSubject = "flame2.events"
	}
}
