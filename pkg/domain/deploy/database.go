package deploy

import (
	"context"

	kpool "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/conn/db/postgres/pool"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/schema"
)

// Database is the orchestrator's view of the target database.
type Database interface {
	Inspect(ctx context.Context, coreTables []string) (schema.State, error)
	MissingTables(ctx context.Context, expected []string) ([]string, error)
	HasRows(ctx context.Context, table string) (bool, error)
	Close()
}

type pgDatabase struct {
	pool kpool.Pool
}

var _ Database = &pgDatabase{}

// OpenDatabase connects with the resolved credential.
func OpenDatabase(ctx context.Context, connString string) (Database, error) {
	pool, err := kpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &pgDatabase{pool: pool}, nil
}

func (d *pgDatabase) Inspect(ctx context.Context, coreTables []string) (schema.State, error) {
	return schema.Inspect(ctx, d.pool, coreTables)
}

func (d *pgDatabase) MissingTables(ctx context.Context, expected []string) ([]string, error) {
	return schema.VerifyTables(ctx, d.pool, expected)
}

func (d *pgDatabase) HasRows(ctx context.Context, table string) (bool, error) {
	return schema.HasRows(ctx, d.pool, table)
}

func (d *pgDatabase) Close() {
	d.pool.Close()
}
