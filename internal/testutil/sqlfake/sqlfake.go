// Package sqlfake is an in-memory database/sql driver for tests. Queries are
// matched by exact text against canned results; execs are recorded.
package sqlfake

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
)

// Result is the canned answer to one query.
type Result struct {
	Columns []string
	Rows    [][]driver.Value
	Err     error
}

// Exec is a recorded statement execution.
type Exec struct {
	Query string
	Args  []driver.Value
}

// DB holds canned results and records execs.
type DB struct {
	mu        sync.Mutex
	results   map[string]Result
	execs     []Exec
	execErr   error
	commits   int
	rollbacks int
}

// Open returns a *sql.DB backed by a fresh fake.
func Open() (*sql.DB, *DB) {
	f := &DB{results: make(map[string]Result)}
	return sql.OpenDB(connector{f}), f
}

// On registers the result for query.
func (f *DB) On(query string, r Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[query] = r
}

// FailExec makes every subsequent exec return err.
func (f *DB) FailExec(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execErr = err
}

func (f *DB) Execs() []Exec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Exec(nil), f.execs...)
}

func (f *DB) Commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

func (f *DB) Rollbacks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rollbacks
}

type connector struct{ f *DB }

func (c connector) Connect(context.Context) (driver.Conn, error) { return &conn{f: c.f}, nil }
func (c connector) Driver() driver.Driver                        { return drv{} }

type drv struct{}

func (drv) Open(string) (driver.Conn, error) {
	return nil, fmt.Errorf("sqlfake: use Open")
}

type conn struct{ f *DB }

func (c *conn) Prepare(query string) (driver.Stmt, error) { return &stmt{f: c.f, query: query}, nil }
func (c *conn) Close() error                              { return nil }
func (c *conn) Begin() (driver.Tx, error)                 { return &tx{f: c.f}, nil }

type tx struct{ f *DB }

func (t *tx) Commit() error {
	t.f.mu.Lock()
	t.f.commits++
	t.f.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	t.f.mu.Lock()
	t.f.rollbacks++
	t.f.mu.Unlock()
	return nil
}

type stmt struct {
	f     *DB
	query string
}

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if s.f.execErr != nil {
		return nil, s.f.execErr
	}
	s.f.execs = append(s.f.execs, Exec{Query: s.query, Args: args})
	return driver.RowsAffected(1), nil
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	s.f.mu.Lock()
	r, ok := s.f.results[s.query]
	s.f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("sqlfake: no result registered for %q", s.query)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &rows{cols: r.Columns, data: r.Rows}, nil
}

type rows struct {
	cols []string
	data [][]driver.Value
	pos  int
}

func (r *rows) Columns() []string { return r.cols }
func (r *rows) Close() error      { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}
