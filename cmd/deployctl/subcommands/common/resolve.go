package common

import (
	"context"
	"log"

	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/credential"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

// NewProbe picks how to probe candidate credentials: a disposable
// cluster Job by default, a direct connection when the caller has
// network reach to the database service.
func NewProbe(
	cluster k8s.Cluster, conf *configs.DeployConfig, logger *log.Logger, direct bool,
) credential.Probe {
	if direct {
		return credential.NewConnProbe(conf)
	}
	return credential.NewJobProbe(cluster, conf, logger)
}

// ResolveCredential gathers candidates and probes them.
//
// Returns the accepted credential and its connection string.
func ResolveCredential(
	ctx context.Context,
	logger *log.Logger,
	conf *configs.DeployConfig,
	cluster k8s.Cluster,
	probe credential.Probe,
) (credential.Credential, string, error) {
	candidates := credential.Gather(ctx, cluster, conf, logger)
	db := conf.Database()

	resolver := credential.Resolver{Probe: probe, Logger: logger}
	cred, err := resolver.Resolve(ctx, candidates, []string{db.AppUser(), db.AdminUser()})
	if err != nil {
		return credential.Credential{}, "", err
	}

	connString := cred.URL(
		conf.Cluster().ServiceHost(db.Service()), db.Port(), db.Name(),
	)
	return cred, connString, nil
}
