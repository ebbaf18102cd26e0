package secret

import (
	"context"
	"fmt"
	"log"

	"github.com/youta-t/flarc"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/common"
	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/envsecret"
	kerr "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/errors"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

type Flag struct {
	Direct bool `flag:"direct" help:"probe credentials by connecting directly instead of via a cluster Job."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"materialize the app's env secret",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Render the app's runtime environment (database URL, redis URLs, django
settings, ...) from the deploy config and the resolved database
credential, and replace the stored Secret with it wholesale. Keys
removed from the config do not survive from earlier deployments.
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
		cred, _, err := common.ResolveCredential(ctx, logger, conf, cluster, probe)
		if err != nil {
			return kerr.Wrap(err)
		}

		src := envsecret.SecretSource{
			AppName:    conf.App().Name(),
			SecretName: conf.App().SecretName(),
			CommitId:   cf.CommitId,
			Bundle:     envsecret.Build(conf, cred),
		}
		if _, err := envsecret.Apply(ctx, cluster, conf, src); err != nil {
			return kerr.WrapWithNote("cannot materialize the env secret", err)
		}

		fmt.Fprintf(cl.Stdout(), "secret %s: %d keys\n", src.SecretName, len(src.Bundle))
		return nil
	}
}
