package seed

import (
	"context"
	"fmt"
	"log"

	"github.com/youta-t/flarc"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/common"
	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/deploy"
	kerr "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/errors"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

type Flag struct {
	Direct bool `flag:"direct" help:"probe credentials by connecting directly instead of via a cluster Job."`
	Force  bool `flag:"force" help:"seed even when the sentinel table already has rows."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"seed initial data",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Run the seed Job unless the sentinel table already has rows. Seeding a
database twice duplicates or clobbers live data, so the sentinel gate
is skipped only with --force.
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

		orch := &deploy.Orchestrator{
			Cluster: cluster, Conf: conf, Logger: logger,
			CommitId: cf.CommitId,
		}

		if !cl.Flags().Force {
			database, err := deploy.OpenDatabase(ctx, connString)
			if err != nil {
				return kerr.WrapWithNote("cannot connect with the resolved credential", err)
			}
			defer database.Close()

			sentinel := conf.Database().SeedSentinel()
			seeded, err := database.HasRows(ctx, sentinel)
			if err != nil {
				return kerr.WrapWithNote("cannot check the seed sentinel", err)
			}
			if seeded {
				fmt.Fprintf(cl.Stdout(), "%s already has rows; nothing to seed\n", sentinel)
				return nil
			}
		}

		if err := orch.RunSeed(ctx, connString); err != nil {
			return err
		}
		fmt.Fprintln(cl.Stdout(), "seeded")
		return nil
	}
}
