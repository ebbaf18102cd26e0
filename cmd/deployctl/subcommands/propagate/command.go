package propagate

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/youta-t/flarc"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/common"
	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/helmvalues"
	kerr "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/errors"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

type Flag struct {
	Workdir string `flag:"workdir" metavar:"DIR" help:"checkout directory for the gitops repository. Empty means a temp dir."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"publish helm values to the gitops repository",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Rewrite image.repository, image.tag and imagePullSecrets in the gitops
repository's values file and push the change, preserving comments and
unrelated keys. When the push is rejected the checkout is resynced to
the remote branch and the release is committed once more.

Pushing to a repository other than the app's own requires GITOPS_TOKEN
to be set; this is checked before any network access.
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

		prop := &helmvalues.Propagator{
			Workdir:  workdir,
			Logger:   logger,
			Registry: helmvalues.NewRegistryChecker(),
		}

		err := prop.Propagate(
			ctx,
			helmvalues.CoordinatesFrom(conf),
			helmvalues.Release{
				AppName:     conf.App().Name(),
				CommitId:    cf.CommitId,
				ImageRepo:   cf.ImageRepo,
				ImageTag:    cf.CommitId,
				PullSecrets: conf.Gitops().PullSecrets(),
			},
		)
		if err != nil {
			return err
		}

		fmt.Fprintln(cl.Stdout(), "published")
		return nil
	}
}
