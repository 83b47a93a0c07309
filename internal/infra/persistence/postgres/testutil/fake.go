// Package testutil fakes the PostgreSQL connection used by the settings
// store. Statements are recognized by shape, not parsed: the table DDL,
// the payload upsert, the point and list selects, and the delete.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var registered atomic.Int64

// Conn holds the fake plugin_settings table.
type Conn struct {
	mu         sync.Mutex
	Statements []string
	Payloads   map[string][]byte
	Updated    map[string]time.Time
	PingErr    error
	ExecErr    error
}

// Open registers a fresh fake driver and returns a pool bound to it.
func Open() (*sql.DB, *Conn) {
	conn := &Conn{Payloads: map[string][]byte{}, Updated: map[string]time.Time{}}
	name := fmt.Sprintf("fakepg-%d", registered.Add(1))
	sql.Register(name, fakeDriver{conn: conn})
	db, err := sql.Open(name, "")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type fakeDriver struct{ conn *Conn }

func (d fakeDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("fakepg: prepared statements unsupported: %s", query)
}

func (c *Conn) Close() error { return nil }

func (c *Conn) Begin() (driver.Tx, error) { return nil, errors.New("fakepg: transactions unsupported") }

func (c *Conn) Ping(context.Context) error { return c.PingErr }

func (c *Conn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statements = append(c.Statements, query)
	if c.ExecErr != nil {
		return nil, c.ExecErr
	}
	switch shape(query) {
	case "CREATE TABLE":
		return driver.RowsAffected(0), nil
	case "INSERT INTO":
		if len(args) != 3 {
			return nil, fmt.Errorf("fakepg: upsert wants 3 args, got %d", len(args))
		}
		handle, _ := args[0].Value.(string)
		payload, _ := args[1].Value.([]byte)
		c.Payloads[handle] = slices.Clone(payload)
		if ts, ok := args[2].Value.(time.Time); ok {
			c.Updated[handle] = ts
		}
		return driver.RowsAffected(1), nil
	case "DELETE FROM":
		handle, _ := firstArg(args).(string)
		if _, ok := c.Payloads[handle]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(c.Payloads, handle)
		delete(c.Updated, handle)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("fakepg: unexpected statement: %s", query)
}

func (c *Conn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statements = append(c.Statements, query)
	lower := strings.ToLower(query)
	switch {
	case strings.HasPrefix(lower, "select payload"):
		handle, _ := firstArg(args).(string)
		set := &resultSet{cols: []string{"payload"}}
		if p, ok := c.Payloads[handle]; ok {
			set.values = append(set.values, []driver.Value{slices.Clone(p)})
		}
		return set, nil
	case strings.HasPrefix(lower, "select handle"):
		handles := make([]string, 0, len(c.Payloads))
		for h := range c.Payloads {
			handles = append(handles, h)
		}
		slices.Sort(handles)
		set := &resultSet{cols: []string{"handle"}}
		for _, h := range handles {
			set.values = append(set.values, []driver.Value{h})
		}
		return set, nil
	}
	return nil, fmt.Errorf("fakepg: unexpected query: %s", query)
}

func shape(query string) string {
	fields := strings.Fields(strings.ToUpper(query))
	if len(fields) < 2 {
		return ""
	}
	return fields[0] + " " + fields[1]
}

func firstArg(args []driver.NamedValue) any {
	if len(args) == 0 {
		return nil
	}
	return args[0].Value
}

type resultSet struct {
	cols   []string
	values [][]driver.Value
	next   int
}

func (r *resultSet) Columns() []string { return r.cols }

func (r *resultSet) Close() error { return nil }

func (r *resultSet) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}
