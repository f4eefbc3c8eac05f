// Package csv implements the CSV population I/O plug-in (C12): one file
// per agent type, one row per population member, one column per
// variable written. Encoding uses the standard library's encoding/csv;
// no pack example wires a CSV/tabular library suited to writing (the
// format is trivial enough that stdlib is the idiomatic choice even
// among libraries that reach for third-party packages elsewhere, which
// is recorded in the grounding ledger rather than silently assumed).
package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/flame2-go/flame2/internal/ioplugin"
	"github.com/flame2-go/flame2/internal/logx"
	"github.com/flame2-go/flame2/internal/memstore"
)

// Plugin is an OutputPlugin that buffers one column of strings per
// (agent, variable) written, and flushes one file per agent on
// FinalizeOutput. Buffering is required because WriteOne is called once
// per variable, not once per agent: the plug-in cannot know it has seen
// every variable of an agent until FinalizeOutput.
type Plugin struct {
	dir string
	log *logx.Logger

	mu      sync.Mutex
	order   []string // agent names, in first-seen order
	columns map[string][]string          // agent -> variable names, in first-seen order
	values  map[string]map[string][]string // agent -> variable -> stringified rows
}

// New creates a plug-in that writes one "<agent>.csv" file per agent
// under dir.
func New(dir string) *Plugin {
	return &Plugin{
		dir:     dir,
		log:     logx.New("ioplugin/csv"),
		columns: make(map[string][]string),
		values:  make(map[string]map[string][]string),
	}
}

// InitOutput creates the output directory.
func (p *Plugin) InitOutput() error {
	return os.MkdirAll(p.dir, 0o755)
}

// WriteOne buffers the full column for (agent, variable).
func (p *Plugin) WriteOne(agent, variable string, it *memstore.Iterator) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, seen := p.values[agent]; !seen {
		p.order = append(p.order, agent)
		p.values[agent] = make(map[string][]string)
	}
	if _, seen := p.values[agent][variable]; !seen {
		p.columns[agent] = append(p.columns[agent], variable)
	}

	rows := make([]string, 0)
	it.Rewind()
	for !it.AtEnd() {
		v, err := it.GetAny(variable)
		if err != nil {
			return err
		}
		rows = append(rows, formatValue(v))
		it.Step()
	}
	p.values[agent][variable] = rows
	return nil
}

// FinalizeOutput writes one CSV file per agent seen, header row first.
func (p *Plugin) FinalizeOutput() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, agent := range p.order {
		if err := p.writeAgentFile(agent); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) writeAgentFile(agent string) error {
	vars := append([]string(nil), p.columns[agent]...)
	sort.Strings(vars)

	path := filepath.Join(p.dir, agent+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ioplugin/csv: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(vars); err != nil {
		return err
	}

	n := 0
	if len(vars) > 0 {
		n = len(p.values[agent][vars[0]])
	}
	for row := 0; row < n; row++ {
		record := make([]string, len(vars))
		for i, v := range vars {
			record[i] = p.values[agent][v][row]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	p.log.Infof("wrote %d rows for agent %s to %s", n, agent, path)
	return w.Error()
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case float64:
		// A whole-valued double gets a ".0" suffix so Loader does not
		// read it back as an int.
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if _, err := strconv.Atoi(s); err == nil {
			s += ".0"
		}
		return s
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Loader reads population rows back out of a directory of "<agent>.csv"
// files produced by Plugin, replaying them through ioplugin.LoadCallbacks.
// Column types are inferred per value: a value that parses as an integer
// loads via AddInt, otherwise AddDouble.
type Loader struct {
	dir string
}

// NewLoader creates a Loader rooted at dir.
func NewLoader() *Loader { return &Loader{} }

// Open records the source directory.
func (l *Loader) Open(path string) error {
	l.dir = path
	return nil
}

// Load reads "<agent>.csv" under the opened directory and replays every
// (row, variable) cell through cb.
func (l *Loader) Load(agent string, cb ioplugin.LoadCallbacks) error {
	path := filepath.Join(l.dir, agent+".csv")
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ioplugin/csv: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("ioplugin/csv: read header from %s: %w", path, err)
	}

	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		for i, cell := range record {
			variable := header[i]
			if iv, err := strconv.Atoi(cell); err == nil {
				if err := cb.AddInt(agent, variable, iv); err != nil {
					return err
				}
				continue
			}
			fv, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return fmt.Errorf("ioplugin/csv: cell %q in column %s is neither int nor double", cell, variable)
			}
			if err := cb.AddDouble(agent, variable, fv); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close is a no-op; Loader holds no open file handles between Load calls.
func (l *Loader) Close() error { return nil }
