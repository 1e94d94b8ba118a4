// Package pgxtest holds hand-written pgx stand-ins for repository tests.
package pgxtest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"brandpost/internal/infra"
)

type SimpleRow struct {
	scan func(dest ...any) error
}

func NewSimpleRow(scanner func(dest ...any) error) SimpleRow {
	return SimpleRow{scan: scanner}
}

func (r SimpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// ValuesRow scans the given values positionally into the destinations.
func ValuesRow(values ...any) SimpleRow {
	return NewSimpleRow(func(dest ...any) error { return Assign(dest, values...) })
}

// ErrRow fails every scan with err.
func ErrRow(err error) SimpleRow {
	return NewSimpleRow(func(...any) error { return err })
}

// Assign copies values into scan destinations. A nil value zeroes the target.
func Assign(dest []any, values ...any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("pgxtest: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("pgxtest: destination %d is not a pointer", i)
		}
		elem := target.Elem()
		if values[i] == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		switch {
		case v.Type().AssignableTo(elem.Type()):
			elem.Set(v)
		case v.Type().ConvertibleTo(elem.Type()):
			elem.Set(v.Convert(elem.Type()))
		case elem.Kind() == reflect.Pointer && v.Type().ConvertibleTo(elem.Type().Elem()):
			p := reflect.New(elem.Type().Elem())
			p.Elem().Set(v.Convert(elem.Type().Elem()))
			elem.Set(p)
		default:
			return fmt.Errorf("pgxtest: cannot assign %T to destination %d (%s)", values[i], i, elem.Type())
		}
	}
	return nil
}

type RowsBase struct{}

func (RowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (RowsBase) Conn() *pgx.Conn { return nil }

func (RowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (RowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (RowsBase) RawValues() [][]byte { return nil }

// Rows iterates over pre-built records.
type Rows struct {
	RowsBase
	records [][]any
	pos     int
	err     error
}

func NewRows(records ...[]any) *Rows {
	return &Rows{records: records, pos: -1}
}

// IDRows yields one single-column row per id.
func IDRows(ids ...string) *Rows {
	records := make([][]any, 0, len(ids))
	for _, id := range ids {
		records = append(records, []any{id})
	}
	return NewRows(records...)
}

func (r *Rows) Close() {}

func (r *Rows) Err() error { return r.err }

func (r *Rows) Next() bool {
	r.pos++
	return r.pos < len(r.records)
}

func (r *Rows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.records) {
		return fmt.Errorf("pgxtest: scan outside of rows")
	}
	return Assign(dest, r.records[r.pos]...)
}

// Call records one statement sent to the Executor.
type Call struct {
	Kind  string
	Query string
	Args  []any
	InTx  bool
}

// Executor is a scripted infra.Transactor. Handlers are matched by a
// substring of the query text; unmatched Exec calls affect one row.
type Executor struct {
	mu sync.Mutex

	RowFor  map[string]func(args ...any) pgx.Row
	RowsFor map[string]func(args ...any) (pgx.Rows, error)
	ExecFor map[string]func(args ...any) (pgconn.CommandTag, error)

	Calls     []Call
	Commits   int
	Rollbacks int
	inTx      bool
}

func NewExecutor() *Executor {
	return &Executor{
		RowFor:  map[string]func(args ...any) pgx.Row{},
		RowsFor: map[string]func(args ...any) (pgx.Rows, error){},
		ExecFor: map[string]func(args ...any) (pgconn.CommandTag, error){},
	}
}

func (e *Executor) record(kind, query string, args []any) {
	e.mu.Lock()
	e.Calls = append(e.Calls, Call{Kind: kind, Query: query, Args: args, InTx: e.inTx})
	e.mu.Unlock()
}

func (e *Executor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	e.record("exec", query, args)
	for key, fn := range e.ExecFor {
		if strings.Contains(query, key) {
			return fn(args...)
		}
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (e *Executor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	e.record("query_row", query, args)
	for key, fn := range e.RowFor {
		if strings.Contains(query, key) {
			return fn(args...)
		}
	}
	return NewSimpleRow(nil)
}

func (e *Executor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	e.record("query", query, args)
	for key, fn := range e.RowsFor {
		if strings.Contains(query, key) {
			return fn(args...)
		}
	}
	return NewRows(), nil
}

func (e *Executor) InTx(ctx context.Context, fn func(infra.SQLExecutor) error) error {
	e.mu.Lock()
	e.inTx = true
	e.mu.Unlock()
	err := fn(e)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inTx = false
	if err != nil {
		e.Rollbacks++
		return err
	}
	e.Commits++
	return nil
}

// Queries returns the recorded query texts in order.
func (e *Executor) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.Calls))
	for _, c := range e.Calls {
		out = append(out, c.Query)
	}
	return out
}

var _ infra.Transactor = (*Executor)(nil)
