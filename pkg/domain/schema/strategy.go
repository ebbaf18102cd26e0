package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	xe "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/errors"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/retry"
	wl "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/jobs"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

// Mode is one way to invoke the migration command.
type Mode string

const (
	// plain migrate.
	Apply Mode = "apply"

	// migrate --fake-initial: record initial migrations as applied
	// without touching tables which already exist.
	FakeInitial Mode = "fake-initial"
)

// Args renders the mode as extra args for the migrate command.
func (m Mode) Args() []string {
	if m == FakeInitial {
		return []string{"--fake-initial"}
	}
	return nil
}

// PlanFor maps the schema classification to an ordered chain of
// migration modes. Later entries run only when the earlier failed.
//
// - Fresh: tables can be created from scratch; plain apply.
//
// - Established: the layout exists. Reconcile bookkeeping first
// (fake-initial), then apply whatever is genuinely new.
//
// - Partial: layout and bookkeeping may disagree; try the plain
// apply, fall back to fake-initial.
func PlanFor(c Classification) []Mode {
	switch c {
	case Fresh:
		return []Mode{Apply}
	case Established:
		return []Mode{FakeInitial, Apply}
	default:
		return []Mode{Apply, FakeInitial}
	}
}

// ErrSchemaInconsistent means a partially-migrated database rejected
// every migration mode; operator attention is needed rather than
// another retry.
var ErrSchemaInconsistent = errors.New(
	"schema is inconsistent: neither plain nor fake-initial migration succeeded",
)

// Runner executes migration Jobs in the cluster.
type Runner struct {
	Cluster k8s.Cluster
	Conf    *configs.DeployConfig
	Logger  *log.Logger

	CommitId    string
	DatabaseURL string
}

// Migrate runs the mode chain for the classification, stopping at the
// first success.
//
// On a Fresh database any failure is immediately fatal: there is
// nothing to reconcile, the migration itself is broken. On a Partial
// database exhausting the chain yields ErrSchemaInconsistent.
func (r Runner) Migrate(ctx context.Context, c Classification) error {
	plan := PlanFor(c)

	var lastErr error
	for _, mode := range plan {
		err := r.runOnce(ctx, mode)
		if err == nil {
			r.Logger.Printf("migration (%s) succeeded", mode)
			return nil
		}
		if c == Fresh {
			return err
		}
		r.Logger.Printf("migration (%s) failed: %s", mode, err)
		lastErr = err
	}

	if c == Partial {
		return xe.Wrap(fmt.Errorf("%w: %w", ErrSchemaInconsistent, lastErr))
	}
	return lastErr
}

func (r Runner) runOnce(ctx context.Context, mode Mode) error {
	src := jobs.MigrationJobSource{
		AppName:     r.Conf.App().Name(),
		Suffix:      jobs.RandomSuffix(),
		CommitId:    r.CommitId,
		DatabaseURL: r.DatabaseURL,
		ExtraArgs:   mode.Args(),
	}

	timeout := r.Conf.Jobs().Migration().Timeout()
	r.Logger.Printf("starting migration job %s (mode: %s, timeout: %s)", src.Instance(), mode, timeout)

	result := <-r.Cluster.NewJob(
		ctx, retry.StaticBackoff(5*time.Second), src.Build(r.Conf),
		k8s.WithCheckpoint(k8s.JobHasFinished, time.Now().Add(timeout)),
	)

	j := result.Value
	if j != nil {
		defer func() {
			if err := j.Close(); err != nil {
				r.Logger.Printf("failed to delete migration job %s: %s", src.Instance(), err)
			}
		}()
	}

	if err := result.Err; err != nil {
		if errors.Is(err, wl.ErrDeadlineExceeded) {
			return xe.WrapWithNote(
				fmt.Sprintf("migration job %s did not finish in %s", src.Instance(), timeout),
				err,
			)
		}
		return err
	}

	if j.Status() == k8s.Succeeded {
		return nil
	}

	exitCode, reason, ok := j.ExitCode("migrate")
	detail := "exit status unknown"
	if ok {
		detail = fmt.Sprintf("exit code %d (%s)", exitCode, reason)
	}
	return xe.Wrap(fmt.Errorf(
		"migration job %s failed: %s%s",
		src.Instance(), detail, r.captureLog(ctx, j),
	))
}

func (r Runner) captureLog(ctx context.Context, j k8s.Job) string {
	rc, err := j.Log(ctx, "migrate")
	if err != nil {
		return ""
	}
	defer rc.Close()

	buf, err := io.ReadAll(io.LimitReader(rc, 16*1024))
	if err != nil || len(buf) == 0 {
		return ""
	}
	return "\n" + strings.TrimSpace(string(buf))
}
