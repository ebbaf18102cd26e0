package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/youta-t/flarc"

	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/filewatch"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/kubeutil"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

// CommonFlags are shared by every deployctl subcommand.
//
// Defaults come from the process environment, so CI pipelines can set
// them once instead of repeating flags per invocation.
type CommonFlags struct {
	Config     string `flag:"config" metavar:"PATH" help:"deploy config file."`
	Namespace  string `flag:"namespace" metavar:"NAMESPACE" help:"override cluster.namespace from the config."`
	AppName    string `flag:"app-name" metavar:"NAME" help:"override app.name from the config."`
	SecretName string `flag:"secret-name" metavar:"NAME" help:"override app.secretName from the config."`
	Kubeconfig string `flag:"kubeconfig" metavar:"PATH" help:"path to kubeconfig. Empty means in-cluster or ~/.kube/config."`
	CommitId   string `flag:"commit-id" metavar:"ID" help:"commit id being deployed."`
	ImageRepo  string `flag:"image-repo" metavar:"REPO" help:"image repository being deployed."`
}

func DefaultCommonFlags() CommonFlags {
	config := os.Getenv("DEPLOYCTL_CONFIG")
	if config == "" {
		config = "deployctl.yaml"
	}
	return CommonFlags{
		Config:     config,
		Namespace:  os.Getenv("NAMESPACE"),
		AppName:    os.Getenv("APP_NAME"),
		SecretName: os.Getenv("SECRET_NAME"),
		CommitId:   os.Getenv("COMMIT_ID"),
		ImageRepo:  os.Getenv("IMAGE_REPO"),
	}
}

// LoadConfig reads, overrides and seals the deploy config.
//
// Secrets never come from flags: the override database password and
// the gitops token are read from DB_PASSWORD and GITOPS_TOKEN.
func (cf CommonFlags) LoadConfig() (*configs.DeployConfig, error) {
	m, err := configs.LoadDeployConfigMarshall(cf.Config)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", cf.Config, err)
	}

	if cf.Namespace != "" && m.Cluster != nil {
		m.Cluster.Namespace = cf.Namespace
	}
	if m.App != nil {
		if cf.AppName != "" {
			m.App.Name = cf.AppName
		}
		if cf.SecretName != "" {
			m.App.SecretName = cf.SecretName
		}
	}
	if m.Database != nil {
		m.Database.OverridePassword = os.Getenv("DB_PASSWORD")
	}
	if m.Gitops != nil {
		m.Gitops.Token = os.Getenv("GITOPS_TOKEN")
	}

	return configs.TrySeal(m), nil
}

// Task is a deployctl subcommand body, handed everything the common
// flags provide: a prefixed logger, the sealed config and the cluster.
type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	cf CommonFlags,
	conf *configs.DeployConfig,
	cluster k8s.Cluster,
	cl flarc.Commandline[T],
	params []any,
) error

// NewTask adapts a Task into a flarc.Task: it digs CommonFlags out of
// the group params, loads the config and attaches the cluster.
//
// The run is canceled when the config file is edited mid-flight;
// half-old half-new deployments are worse than a restart.
func NewTask[T any](task Task[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], pos []any) error {
		var cf CommonFlags
		found := false
		newpos := make([]any, 0, len(pos))
		for _, p := range pos {
			switch v := p.(type) {
			case CommonFlags:
				found = true
				cf = v
			default:
				newpos = append(newpos, p)
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		logger := log.New(cl.Stderr(), "", log.LstdFlags)
		logger.SetPrefix(fmt.Sprintf("[%s] ", cl.Fullname()))

		conf, err := cf.LoadConfig()
		if err != nil {
			return err
		}

		ctx, stopWatch, err := filewatch.UntilModifyContext(ctx, cf.Config)
		if err != nil {
			return err
		}
		defer stopWatch()

		clientset := kubeutil.ConnectToK8s(cf.Kubeconfig)
		cluster := k8s.AttachCluster(
			k8s.WrapK8sClient(clientset),
			conf.Cluster().Namespace(),
			conf.Cluster().Domain(),
		)

		return task(ctx, logger, cf, conf, cluster, cl, newpos)
	}
}
