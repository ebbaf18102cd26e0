package deploy

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/youta-t/flarc"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/common"
	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	domdeploy "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/helmvalues"
	kerr "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/errors"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

type Flag struct {
	Direct  bool   `flag:"direct" help:"probe credentials by connecting directly instead of via a cluster Job."`
	Workdir string `flag:"workdir" metavar:"DIR" help:"checkout directory for the gitops repository. Empty means a temp dir."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"run the whole deployment pipeline",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Resolve a database credential, classify and migrate the schema,
materialize the app's env secret, publish helm values to the gitops
repository and seed initial data on first deployment.

Each stage depends on the one before it, except value publication:
once the cluster itself is deployed, a gitops failure is reported as
a warning instead of failing the run.
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
		workdir := cl.Flags().Workdir
		if workdir == "" {
			d, err := os.MkdirTemp("", "deployctl-gitops-*")
			if err != nil {
				return kerr.Wrap(err)
			}
			defer os.RemoveAll(d)
			workdir = d
		}

		orch := &domdeploy.Orchestrator{
			Cluster: cluster, Conf: conf, Logger: logger,

			CommitId:  cf.CommitId,
			ImageRepo: cf.ImageRepo,

			Probe:  common.NewProbe(cluster, conf, logger, cl.Flags().Direct),
			OpenDB: domdeploy.OpenDatabase,
			Propagator: &helmvalues.Propagator{
				Workdir:  workdir,
				Logger:   logger,
				Registry: helmvalues.NewRegistryChecker(),
			},
		}

		if err := orch.Run(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cl.Stdout(), "deployed")
		return nil
	}
}
