package credentials

import (
	"context"
	"fmt"
	"log"

	"github.com/youta-t/flarc"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/common"
	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	kerr "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/errors"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

type Flag struct {
	Direct bool `flag:"direct" help:"probe by connecting to the database directly instead of running a cluster Job."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"find a working database credential",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Gather candidate database passwords from the cluster and the
environment, probe them in trust order and report the first one the
database accepts. The password itself is never printed; only its
owner, its origin and a fingerprint are.
`),
	)
}

func Task() common.Task[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		_ common.CommonFlags,
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

		fmt.Fprintf(
			cl.Stdout(), "user=%s source=%s fingerprint=%s\n",
			cred.User, cred.Source, cred.Fingerprint(),
		)
		return nil
	}
}
