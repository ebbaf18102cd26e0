package migrate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/youta-t/flarc"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/common"
	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/schema"
	kerr "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/errors"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

type Flag struct {
	Direct bool `flag:"direct" help:"probe credentials by connecting directly instead of via a cluster Job."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"apply database migrations",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Classify the database schema (fresh, partial or established), pick the
matching migration strategy and run it as a cluster Job. An established
schema is stamped with --fake-initial before applying; a partially
migrated one is tried plainly first, then stamped as a fallback.
`),
	)
}

func Task() common.Task[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		cf common.CommonFlags,
		conf *configs.DeployConfig,
		cluster k8s.Cluster,
		cl flarc.Commandline[Flag],
		_ []any,
	) error {
		probe := common.NewProbe(cluster, conf, logger, cl.Flags().Direct)
		_, connString, err := common.ResolveCredential(ctx, logger, conf, cluster, probe)
		if err != nil {
			return kerr.Wrap(err)
		}

		database, err := deploy.OpenDatabase(ctx, connString)
		if err != nil {
			return kerr.WrapWithNote("cannot connect with the resolved credential", err)
		}
		defer database.Close()

		db := conf.Database()
		state, err := database.Inspect(ctx, db.CoreTables())
		if err != nil {
			return kerr.WrapWithNote("schema inspection failed", err)
		}
		logger.Printf(
			"schema: %s (%d tables, %d/%d core)",
			state.Classification, state.TotalTables, state.CorePresent, len(db.CoreTables()),
		)

		runner := schema.Runner{
			Cluster: cluster, Conf: conf, Logger: logger,
			CommitId: cf.CommitId, DatabaseURL: connString,
		}
		if err := runner.Migrate(ctx, state.Classification); err != nil {
			return err
		}

		if missing, err := database.MissingTables(ctx, db.VerifyTables()); err != nil {
			logger.Printf("warning: table verification failed: %s", err)
		} else if len(missing) != 0 {
			logger.Printf("warning: expected tables are missing after migration: %s", strings.Join(missing, ", "))
		}

		fmt.Fprintln(cl.Stdout(), "migrated")
		return nil
	}
}
