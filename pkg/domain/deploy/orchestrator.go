// Package deploy sequences a whole deployment run: credential
// recovery, schema migration, secret materialization, gitops
// propagation and first-run seeding.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/credential"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/envsecret"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/helmvalues"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/schema"
	xe "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/errors"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/retry"
	wl "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/jobs"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

// ValuePropagator publishes a release to the gitops repository.
type ValuePropagator interface {
	Propagate(ctx context.Context, coords helmvalues.Coordinates, rel helmvalues.Release) error
}

// Orchestrator runs the deployment pipeline:
//
//	resolve credentials -> inspect schema -> migrate -> verify tables
//	-> materialize env secret -> propagate helm values -> seed (maybe)
//
// Each stage is a hard dependency of the next, except value
// propagation whose failure degrades to a warning: by then the
// deployment itself has already succeeded.
type Orchestrator struct {
	Cluster k8s.Cluster
	Conf    *configs.DeployConfig
	Logger  *log.Logger

	CommitId  string
	ImageRepo string

	Probe      credential.Probe
	OpenDB     func(ctx context.Context, connString string) (Database, error)
	Propagator ValuePropagator
}

func (o *Orchestrator) Run(ctx context.Context) error {
	// a missing gitops token would only surface at the very last
	// stage; check it before touching anything.
	if o.Conf.Gitops().CrossRepo() && o.Conf.Gitops().Token() == "" {
		return xe.Wrap(helmvalues.ErrMissingAuthorization)
	}

	cred, err := o.resolveCredentials(ctx)
	if err != nil {
		return err
	}

	db := o.Conf.Database()
	connString := cred.URL(
		o.Conf.Cluster().ServiceHost(db.Service()), db.Port(), db.Name(),
	)
	database, err := o.OpenDB(ctx, connString)
	if err != nil {
		return xe.WrapWithNote("cannot connect with the resolved credential", err)
	}
	defer database.Close()

	state, err := database.Inspect(ctx, db.CoreTables())
	if err != nil {
		return xe.WrapWithNote("schema inspection failed", err)
	}
	o.Logger.Printf(
		"schema: %s (%d tables, %d/%d core)",
		state.Classification, state.TotalTables, state.CorePresent, len(db.CoreTables()),
	)

	runner := schema.Runner{
		Cluster: o.Cluster, Conf: o.Conf, Logger: o.Logger,
		CommitId: o.CommitId, DatabaseURL: connString,
	}
	if err := runner.Migrate(ctx, state.Classification); err != nil {
		return err
	}

	if missing, err := database.MissingTables(ctx, db.VerifyTables()); err != nil {
		o.Logger.Printf("warning: table verification failed: %s", err)
	} else if len(missing) != 0 {
		// non-fatal: seeding fails loudly anyway if these matter.
		o.Logger.Printf("warning: expected tables are missing after migration: %s", strings.Join(missing, ", "))
	}

	if err := o.materializeSecret(ctx, cred); err != nil {
		return err
	}

	if err := o.propagate(ctx); err != nil {
		if !errors.Is(err, helmvalues.ErrPropagation) {
			return err
		}
		o.Logger.Printf("warning: deployment is done but helm values were not published: %s", err)
	}

	return o.seedIfEmpty(ctx, database, connString)
}

func (o *Orchestrator) resolveCredentials(ctx context.Context) (credential.Credential, error) {
	db := o.Conf.Database()
	candidates := credential.Gather(ctx, o.Cluster, o.Conf, o.Logger)
	resolver := credential.Resolver{Probe: o.Probe, Logger: o.Logger}
	return resolver.Resolve(ctx, candidates, []string{db.AppUser(), db.AdminUser()})
}

func (o *Orchestrator) materializeSecret(ctx context.Context, cred credential.Credential) error {
	src := envsecret.SecretSource{
		AppName:    o.Conf.App().Name(),
		SecretName: o.Conf.App().SecretName(),
		CommitId:   o.CommitId,
		Bundle:     envsecret.Build(o.Conf, cred),
	}
	if _, err := envsecret.Apply(ctx, o.Cluster, o.Conf, src); err != nil {
		return xe.WrapWithNote("cannot materialize the env secret", err)
	}
	o.Logger.Printf("materialized secret %s (%d keys)", src.SecretName, len(src.Bundle))
	return nil
}

func (o *Orchestrator) propagate(ctx context.Context) error {
	return o.Propagator.Propagate(
		ctx,
		helmvalues.CoordinatesFrom(o.Conf),
		helmvalues.Release{
			AppName:     o.Conf.App().Name(),
			CommitId:    o.CommitId,
			ImageRepo:   o.ImageRepo,
			ImageTag:    o.CommitId,
			PullSecrets: o.Conf.Gitops().PullSecrets(),
		},
	)
}

// seedIfEmpty runs the seed Job unless the sentinel table already has
// rows: seeding twice would duplicate or clobber live data.
func (o *Orchestrator) seedIfEmpty(ctx context.Context, database Database, connString string) error {
	sentinel := o.Conf.Database().SeedSentinel()
	seeded, err := database.HasRows(ctx, sentinel)
	if err != nil {
		return xe.WrapWithNote("cannot check the seed sentinel", err)
	}
	if seeded {
		o.Logger.Printf("%s already has rows; skipping seed", sentinel)
		return nil
	}
	return o.RunSeed(ctx, connString)
}

// RunSeed executes the seed Job and waits for it.
func (o *Orchestrator) RunSeed(ctx context.Context, connString string) error {
	src := jobs.SeedJobSource{
		AppName:     o.Conf.App().Name(),
		Suffix:      jobs.RandomSuffix(),
		CommitId:    o.CommitId,
		DatabaseURL: connString,
	}

	timeout := o.Conf.Jobs().Seed().Timeout()
	o.Logger.Printf("starting seed job %s (timeout: %s)", src.Instance(), timeout)

	result := <-o.Cluster.NewJob(
		ctx, retry.StaticBackoff(5*time.Second), src.Build(o.Conf),
		k8s.WithCheckpoint(k8s.JobHasFinished, time.Now().Add(timeout)),
	)

	j := result.Value
	if j != nil {
		defer func() {
			if err := j.Close(); err != nil {
				o.Logger.Printf("failed to delete seed job %s: %s", src.Instance(), err)
			}
		}()
	}

	if err := result.Err; err != nil {
		if errors.Is(err, wl.ErrDeadlineExceeded) {
			return xe.WrapWithNote(
				fmt.Sprintf("seed job %s did not finish in %s", src.Instance(), timeout), err,
			)
		}
		return err
	}

	if j.Status() == k8s.Succeeded {
		o.Logger.Printf("seed job %s succeeded", src.Instance())
		return nil
	}

	detail := ""
	if rc, err := j.Log(ctx, "seed"); err == nil {
		defer rc.Close()
		if buf, err := io.ReadAll(io.LimitReader(rc, 16*1024)); err == nil && len(buf) != 0 {
			detail = "\n" + strings.TrimSpace(string(buf))
		}
	}
	return xe.Wrap(fmt.Errorf("seed job %s failed%s", src.Instance(), detail))
}
