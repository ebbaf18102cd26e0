// Package schema inspects the live database layout and drives the
// migration strategy chosen from it.
package schema

import (
	"context"

	"github.com/jackc/pgx/v4"

	kpool "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/conn/db/postgres/pool"
)

type Classification string

const (
	// no tables at all; a plain migration is safe.
	Fresh Classification = "Fresh"

	// tables exist but the core set is incomplete; migration
	// bookkeeping may not match the actual layout.
	Partial Classification = "Partial"

	// (almost) all core tables are present.
	Established Classification = "Established"
)

// State is a snapshot of the public schema of the target database.
type State struct {
	TotalTables    int
	CorePresent    int
	Classification Classification
}

// Classify applies the three-way rule:
// no tables at all is Fresh, all core tables (allowing one missing)
// is Established, anything between is Partial.
//
// The one-missing allowance exists because a core table can appear in
// a migration which the previous deployment had not reached yet.
func Classify(totalTables int, corePresent int, coreCount int) Classification {
	if totalTables == 0 {
		return Fresh
	}
	if corePresent >= coreCount-1 {
		return Established
	}
	return Partial
}

// Inspect counts the tables in the public schema and how many of
// coreTables exist there.
func Inspect(ctx context.Context, conn kpool.Queryer, coreTables []string) (State, error) {
	total := 0
	if err := conn.QueryRow(
		ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public'`,
	).Scan(&total); err != nil {
		return State{}, err
	}

	core := 0
	if err := conn.QueryRow(
		ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ANY($1)`,
		coreTables,
	).Scan(&core); err != nil {
		return State{}, err
	}

	return State{
		TotalTables:    total,
		CorePresent:    core,
		Classification: Classify(total, core, len(coreTables)),
	}, nil
}

// VerifyTables returns the names from expected which do NOT exist in
// the public schema. An empty return means everything is in place.
func VerifyTables(ctx context.Context, conn kpool.Queryer, expected []string) ([]string, error) {
	rows, err := conn.Query(
		ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ANY($1)`,
		expected,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		name := ""
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	missing := []string{}
	for _, name := range expected {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// HasRows reports whether the table contains at least one row.
//
// Used as the seeding gate: a sentinel table with rows means the
// database has been seeded before.
func HasRows(ctx context.Context, conn kpool.Queryer, table string) (bool, error) {
	exists := false
	query := `SELECT EXISTS (SELECT 1 FROM ` + pgx.Identifier{table}.Sanitize() + `)`
	if err := conn.QueryRow(ctx, query).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
