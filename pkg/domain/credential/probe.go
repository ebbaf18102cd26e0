package credential

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"

	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/retry"
	wl "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/jobs"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
)

// Probe tries to reach the database as user with password.
//
// # Returns
//
// - bool: true when the database accepted the credential.
// Rejection (bad password, unknown user) is `false, nil`.
//
// - error: non-nil only when the outcome is unknown
// (network failure, cluster trouble, ...).
type Probe interface {
	Probe(ctx context.Context, user string, password string) (bool, error)
}

func postgresURL(user string, password string, host string, port int32, dbname string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + dbname,
	}
	return u.String()
}

// IsAuthRejection reports whether err is the server refusing the
// credential, as opposed to not being reachable at all.
func IsAuthRejection(err error) bool {
	pgErr := &pgconn.PgError{}
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.InvalidPassword, pgerrcode.InvalidAuthorizationSpecification:
		return true
	}
	return false
}

type connProbe struct {
	host    string
	port    int32
	dbname  string
	timeout time.Duration
}

// NewConnProbe probes by connecting to the database directly.
//
// Usable when this process has network reach to the database service.
func NewConnProbe(conf *configs.DeployConfig) Probe {
	db := conf.Database()
	return &connProbe{
		host:    conf.Cluster().ServiceHost(db.Service()),
		port:    db.Port(),
		dbname:  db.Name(),
		timeout: conf.Jobs().Probe().Timeout(),
	}
}

func (p *connProbe) Probe(ctx context.Context, user string, password string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, postgresURL(user, password, p.host, p.port, p.dbname))
	if err != nil {
		if IsAuthRejection(err) {
			return false, nil
		}
		return false, err
	}
	defer conn.Close(ctx)

	one := 0
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return false, err
	}
	return true, nil
}

type jobProbe struct {
	cluster k8s.Cluster
	conf    *configs.DeployConfig
	logger  *log.Logger
}

// NewJobProbe probes with a disposable in-cluster Job wrapping psql.
//
// The Job is deleted whatever the outcome; its log is captured
// (best effort) before deletion when the probe does not succeed.
func NewJobProbe(cluster k8s.Cluster, conf *configs.DeployConfig, logger *log.Logger) Probe {
	return &jobProbe{cluster: cluster, conf: conf, logger: logger}
}

func (p *jobProbe) Probe(ctx context.Context, user string, password string) (bool, error) {
	src := jobs.ProbeJobSource{
		AppName:  p.conf.App().Name(),
		Suffix:   jobs.RandomSuffix(),
		User:     user,
		Password: password,
	}

	timeout := p.conf.Jobs().Probe().Timeout()
	result := <-p.cluster.NewJob(
		ctx, retry.StaticBackoff(time.Second), src.Build(p.conf),
		k8s.WithCheckpoint(k8s.JobHasFinished, time.Now().Add(timeout)),
	)

	j := result.Value
	if j != nil {
		defer func() {
			if err := j.Close(); err != nil {
				p.logger.Printf("failed to delete probe job %s: %s", src.Instance(), err)
			}
		}()
	}

	if err := result.Err; err != nil {
		if errors.Is(err, wl.ErrDeadlineExceeded) {
			// cannot reach the database in time with this credential.
			p.logger.Printf("probe %s timed out after %s", src.Instance(), timeout)
			return false, nil
		}
		return false, err
	}

	if j.Status() == k8s.Succeeded {
		return true, nil
	}

	p.captureLog(ctx, j)
	return false, nil
}

// psql diagnostics never echo the password, so the tail of the probe
// log is safe to surface.
func (p *jobProbe) captureLog(ctx context.Context, j k8s.Job) {
	rc, err := j.Log(ctx, "probe")
	if err != nil {
		p.logger.Printf("probe %s failed (log not available: %s)", j.Name(), err)
		return
	}
	defer rc.Close()

	buf, err := io.ReadAll(io.LimitReader(rc, 4*1024))
	if err != nil {
		p.logger.Printf("probe %s failed (log not readable: %s)", j.Name(), err)
		return
	}
	p.logger.Printf("probe %s failed: %s", j.Name(), strings.TrimSpace(string(buf)))
}
