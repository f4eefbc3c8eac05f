// Package sqlite implements the SQLite population I/O plug-in (C12): one
// table per agent type, one row per population member, created and
// migrated with the same embed-schema-then-migrate shape this codebase
// uses for its own memory database, swapped onto the pure-Go
// modernc.org/sqlite driver so the whole module stays cgo-free.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sort"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/flame2-go/flame2/internal/ioplugin"
	"github.com/flame2-go/flame2/internal/logx"
	"github.com/flame2-go/flame2/internal/memstore"
)

//go:embed schema.sql
var schemaSQL string

// Plugin is an OutputPlugin backed by a SQLite database: one table named
// after the agent, columns named after its variables. Like the CSV
// plug-in it must buffer per-variable writes until FinalizeOutput, since
// a table cannot be created (and its rows inserted) until every variable
// of the agent has been seen.
type Plugin struct {
	db  *sql.DB
	log *logx.Logger

	mu      sync.Mutex
	order   []string
	columns map[string][]string
	intCol  map[string]map[string]bool // agent -> variable -> column is INTEGER
	values  map[string]map[string][]interface{}
}

// New opens (creating if necessary) the SQLite database at path and
// ensures the bookkeeping schema exists.
func New(path string) (*Plugin, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("ioplugin/sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("ioplugin/sqlite: apply schema: %w", err)
	}
	return &Plugin{
		db:      db,
		log:     logx.New("ioplugin/sqlite"),
		columns: make(map[string][]string),
		intCol:  make(map[string]map[string]bool),
		values:  make(map[string]map[string][]interface{}),
	}, nil
}

// InitOutput is a no-op; the schema is already applied by New.
func (p *Plugin) InitOutput() error { return nil }

// WriteOne buffers the full column for (agent, variable).
func (p *Plugin) WriteOne(agent, variable string, it *memstore.Iterator) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, seen := p.values[agent]; !seen {
		p.order = append(p.order, agent)
		p.values[agent] = make(map[string][]interface{})
		p.intCol[agent] = make(map[string]bool)
	}
	if _, seen := p.values[agent][variable]; !seen {
		p.columns[agent] = append(p.columns[agent], variable)
	}

	var rows []interface{}
	it.Rewind()
	for !it.AtEnd() {
		v, err := it.GetAny(variable)
		if err != nil {
			return err
		}
		if _, ok := v.(int); ok {
			p.intCol[agent][variable] = true
		}
		rows = append(rows, v)
		it.Step()
	}
	p.values[agent][variable] = rows
	return nil
}

// FinalizeOutput creates one table per agent seen and bulk-inserts its
// buffered rows inside a transaction.
func (p *Plugin) FinalizeOutput() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, agent := range p.order {
		if err := p.flushAgent(agent); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) flushAgent(agent string) error {
	vars := append([]string(nil), p.columns[agent]...)
	sort.Strings(vars)

	cols := make([]string, len(vars))
	for i, v := range vars {
		typ := "REAL"
		if p.intCol[agent][v] {
			typ = "INTEGER"
		}
		cols[i] = fmt.Sprintf("%q %s", v, typ)
	}
	createStmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)", agent, joinComma(cols))

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("ioplugin/sqlite: begin: %w", err)
	}
	if _, err := tx.Exec(createStmt); err != nil {
		tx.Rollback()
		return fmt.Errorf("ioplugin/sqlite: create table %s: %w", agent, err)
	}

	placeholders := make([]string, len(vars))
	quoted := make([]string, len(vars))
	for i, v := range vars {
		placeholders[i] = "?"
		quoted[i] = fmt.Sprintf("%q", v)
	}
	insertStmt := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", agent, joinComma(quoted), joinComma(placeholders))

	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("ioplugin/sqlite: prepare insert for %s: %w", agent, err)
	}
	defer stmt.Close()

	n := 0
	if len(vars) > 0 {
		n = len(p.values[agent][vars[0]])
	}
	for row := 0; row < n; row++ {
		args := make([]interface{}, len(vars))
		for i, v := range vars {
			args[i] = p.values[agent][v][row]
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("ioplugin/sqlite: insert row %d for %s: %w", row, agent, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ioplugin/sqlite: commit %s: %w", agent, err)
	}
	p.log.Infof("wrote %d rows for agent %s", n, agent)
	return nil
}

func joinComma(parts []string) string {
	out := ""
	for i, s := range parts {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// Close closes the underlying database handle.
func (p *Plugin) Close() error {
	return p.db.Close()
}

// Loader reads population rows back out of agent tables created by
// Plugin, replaying them through ioplugin.LoadCallbacks.
type Loader struct {
	db *sql.DB
}

// NewLoader constructs an empty Loader; call Open to bind a database.
func NewLoader() *Loader { return &Loader{} }

// Open opens the SQLite database at path.
func (l *Loader) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("ioplugin/sqlite: open %s: %w", path, err)
	}
	l.db = db
	return nil
}

// Load reads every row of the agent's table and replays each cell
// through cb, dispatching on the column's declared SQLite type.
func (l *Loader) Load(agent string, cb ioplugin.LoadCallbacks) error {
	rows, err := l.db.Query(fmt.Sprintf("SELECT * FROM %q", agent))
	if err != nil {
		return fmt.Errorf("ioplugin/sqlite: query %s: %w", agent, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return err
	}

	for rows.Next() {
		dest := make([]interface{}, len(cols))
		for i := range dest {
			dest[i] = new(interface{})
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("ioplugin/sqlite: scan %s: %w", agent, err)
		}
		for i, col := range cols {
			v := *(dest[i].(*interface{}))
			if types[i].DatabaseTypeName() == "INTEGER" {
				iv, _ := toInt(v)
				if err := cb.AddInt(agent, col, iv); err != nil {
					return err
				}
			} else {
				fv, _ := toFloat(v)
				if err := cb.AddDouble(agent, col, fv); err != nil {
					return err
				}
			}
		}
	}
	return rows.Err()
}

// Close closes the underlying database handle.
func (l *Loader) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func toInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int64:
		return int(t), true
	case int:
		return t, true
	default:
		return 0, false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
