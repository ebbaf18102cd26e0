package schema_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v4"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/conn/db/postgres/pool/mock"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/schema"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/cmp"
)

var coreTables = []string{
	"django_migrations", "auth_user", "django_content_type",
	"auth_permission", "django_session",
}

func TestClassify(t *testing.T) {
	for name, testcase := range map[string]struct {
		total int
		core  int
		want  schema.Classification
	}{
		"empty database":              {0, 0, schema.Fresh},
		"all core tables":             {40, 5, schema.Established},
		"one core table missing":      {38, 4, schema.Established},
		"two core tables missing":     {20, 3, schema.Partial},
		"tables but no core at all":   {3, 0, schema.Partial},
		"single stray table":          {1, 0, schema.Partial},
		"core complete, few in total": {5, 5, schema.Established},
	} {
		t.Run(name, func(t *testing.T) {
			got := schema.Classify(testcase.total, testcase.core, len(coreTables))
			if got != testcase.want {
				t.Errorf("got %s, want %s", got, testcase.want)
			}
		})
	}
}

func TestInspect(t *testing.T) {
	conn := mock.NewQueryer()
	conn.Impl.QueryRow = func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
		if strings.Contains(sql, "table_name = ANY($1)") {
			if !cmp.SliceEq(args[0].([]string), coreTables) {
				t.Errorf("unexpected core table args: %v", args[0])
			}
			return mock.Row(3)
		}
		return mock.Row(20)
	}

	state, err := schema.Inspect(context.Background(), conn, coreTables)
	if err != nil {
		t.Fatal(err)
	}
	if state.TotalTables != 20 || state.CorePresent != 3 {
		t.Errorf("counts: got %d/%d", state.TotalTables, state.CorePresent)
	}
	if state.Classification != schema.Partial {
		t.Errorf("classification: got %s", state.Classification)
	}
	if conn.Called.QueryRow != 2 {
		t.Errorf("QueryRow calls: got %d", conn.Called.QueryRow)
	}
}

func TestVerifyTables(t *testing.T) {
	t.Run("it lists the tables which do not exist", func(t *testing.T) {
		conn := mock.NewQueryer()
		conn.Impl.Query = func(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
			return mock.Rows(
				[]interface{}{"django_migrations"},
				[]interface{}{"auth_user"},
				[]interface{}{"django_session"},
			), nil
		}

		missing, err := schema.VerifyTables(context.Background(), conn, coreTables)
		if err != nil {
			t.Fatal(err)
		}
		if !cmp.SliceEq(missing, []string{"django_content_type", "auth_permission"}) {
			t.Errorf("missing: got %v", missing)
		}
	})

	t.Run("it returns empty when everything exists", func(t *testing.T) {
		conn := mock.NewQueryer()
		conn.Impl.Query = func(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
			records := [][]interface{}{}
			for _, name := range coreTables {
				records = append(records, []interface{}{name})
			}
			return mock.Rows(records...), nil
		}

		missing, err := schema.VerifyTables(context.Background(), conn, coreTables)
		if err != nil {
			t.Fatal(err)
		}
		if len(missing) != 0 {
			t.Errorf("missing: got %v", missing)
		}
	})
}

func TestHasRows(t *testing.T) {
	conn := mock.NewQueryer()
	conn.Impl.QueryRow = func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
		if !strings.Contains(sql, `"auth_user"`) {
			t.Errorf("sentinel table should be quoted as identifier: %s", sql)
		}
		return mock.Row(true)
	}

	got, err := schema.HasRows(context.Background(), conn, "auth_user")
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("expected rows")
	}
}
