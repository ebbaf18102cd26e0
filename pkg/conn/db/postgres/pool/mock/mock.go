package mock

import (
	"context"
	"errors"
	"reflect"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgproto3/v2"
	"github.com/jackc/pgx/v4"

	kpool "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/conn/db/postgres/pool"
)

// Queryer is a mock of kpool.Queryer.
//
// Set function fields in Impl to fake queries; Called counts usages.
type Queryer struct {
	Impl struct {
		Exec     func(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
		Query    func(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
		QueryRow func(ctx context.Context, sql string, args ...interface{}) pgx.Row
	}
	Called struct {
		Exec     uint64
		Query    uint64
		QueryRow uint64
	}
}

var _ kpool.Queryer = &Queryer{}

func NewQueryer() *Queryer {
	return &Queryer{}
}

func (m *Queryer) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	m.Called.Exec += 1
	if m.Impl.Exec == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Exec(ctx, sql, arguments...)
}

func (m *Queryer) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	m.Called.Query += 1
	if m.Impl.Query == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Query(ctx, sql, args...)
}

func (m *Queryer) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	m.Called.QueryRow += 1
	if m.Impl.QueryRow == nil {
		return Row(errors.New("[MOCK] not implemented"))
	}
	return m.Impl.QueryRow(ctx, sql, args...)
}

type fakeRow struct {
	values []interface{}
	err    error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.values) {
			break
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

// Row builds a pgx.Row. When the sole value is an error, Scan
// returns it; otherwise values are assigned to Scan's dests in order.
func Row(values ...interface{}) pgx.Row {
	if len(values) == 1 {
		if err, ok := values[0].(error); ok {
			return &fakeRow{err: err}
		}
	}
	return &fakeRow{values: values}
}

type fakeRows struct {
	rows   [][]interface{}
	cursor int
	err    error
}

// Rows builds a pgx.Rows yielding the given records.
func Rows(rows ...[]interface{}) pgx.Rows {
	return &fakeRows{rows: rows, cursor: -1}
}

var _ pgx.Rows = &fakeRows{}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return nil }
func (r *fakeRows) FieldDescriptions() []pgproto3.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }

func (r *fakeRows) Next() bool {
	r.cursor += 1
	return r.cursor < len(r.rows)
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	if r.cursor < 0 || len(r.rows) <= r.cursor {
		return errors.New("[MOCK] Scan without Next")
	}
	row := fakeRow{values: r.rows[r.cursor]}
	return row.Scan(dest...)
}

func (r *fakeRows) Values() ([]interface{}, error) {
	if r.cursor < 0 || len(r.rows) <= r.cursor {
		return nil, errors.New("[MOCK] Values without Next")
	}
	return r.rows[r.cursor], nil
}
