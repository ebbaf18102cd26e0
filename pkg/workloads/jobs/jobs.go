// Package jobs builds k8s Job specs for the deployment pipeline stages.
//
// Each source is a metasource.ResourceBuilder: its fields identify the
// workload (labels, ObjectMeta) and Build() renders the pod spec from the
// sealed config.
package jobs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"

	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/pointer"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/slices"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/metasource"
)

// RandomSuffix generates a short unique-enough token for Job names,
// so repeated attempts never collide on ObjectMeta.Name.
func RandomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func pullSecrets(conf *configs.DeployConfig) []kubecore.LocalObjectReference {
	return slices.Map(
		conf.Gitops().PullSecrets(),
		func(name string) kubecore.LocalObjectReference {
			return kubecore.LocalObjectReference{Name: name}
		},
	)
}

// ProbeJobSource describes a disposable Job which tries to reach the
// database with a candidate password.
//
// The password goes into the pod env (PGPASSWORD) only; it never appears
// in labels, names nor logs of this process.
type ProbeJobSource struct {
	AppName string

	// unique per probe attempt; appended to the Job name.
	Suffix string

	User     string
	Password string
}

var _ metasource.ResourceBuilder[*configs.DeployConfig, *kubebatch.Job] = ProbeJobSource{}

func (p ProbeJobSource) Name() string {
	return p.AppName
}

func (p ProbeJobSource) Instance() string {
	return fmt.Sprintf("%s-credential-probe-%s", p.AppName, p.Suffix)
}

func (p ProbeJobSource) Component() string {
	return "credential-probe"
}

func (p ProbeJobSource) Id() string {
	return p.Suffix
}

func (p ProbeJobSource) IdType() string {
	return "attempt"
}

func (p ProbeJobSource) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(p, namespace)
}

func (p ProbeJobSource) Build(conf *configs.DeployConfig) *kubebatch.Job {
	db := conf.Database()
	host := conf.Cluster().ServiceHost(db.Service())
	deadline := int64(conf.Jobs().Probe().Timeout().Seconds())

	return &kubebatch.Job{
		ObjectMeta: p.ObjectMeta(conf.Cluster().Namespace()),
		Spec: kubebatch.JobSpec{
			BackoffLimit:          pointer.Ref[int32](0),
			ActiveDeadlineSeconds: &deadline,
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{Labels: metasource.ToLabels(p)},
				Spec: kubecore.PodSpec{
					RestartPolicy:    kubecore.RestartPolicyNever,
					ImagePullSecrets: pullSecrets(conf),
					Containers: []kubecore.Container{
						{
							Name:    "probe",
							Image:   conf.Jobs().Probe().Image(),
							Command: []string{"psql"},
							Args: []string{
								"--host", host,
								"--port", strconv.Itoa(int(db.Port())),
								"--username", p.User,
								"--dbname", db.Name(),
								"--command", "SELECT 1",
							},
							Env: []kubecore.EnvVar{
								{Name: "PGPASSWORD", Value: p.Password},
								{Name: "PGCONNECT_TIMEOUT", Value: "10"},
							},
						},
					},
				},
			},
		},
	}
}

// MigrationJobSource describes a Job running the app's schema migration.
//
// Env comes from the stored app secret (optional, it may not exist on the
// first deployment) overridden by DATABASE_URL built from the credential
// resolved in this run.
type MigrationJobSource struct {
	AppName string

	// unique per migration attempt; appended to the Job name.
	Suffix string

	CommitId string

	// connection string with the resolved credential.
	DatabaseURL string

	// extra args for the migrate command, e.g. "--fake-initial".
	ExtraArgs []string
}

var _ metasource.ResourceBuilder[*configs.DeployConfig, *kubebatch.Job] = MigrationJobSource{}

func (m MigrationJobSource) Name() string {
	return m.AppName
}

func (m MigrationJobSource) Instance() string {
	return fmt.Sprintf("%s-migration-%s", m.AppName, m.Suffix)
}

func (m MigrationJobSource) Component() string {
	return "migration"
}

func (m MigrationJobSource) Id() string {
	return m.CommitId
}

func (m MigrationJobSource) IdType() string {
	return "commit_id"
}

func (m MigrationJobSource) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(m, namespace)
}

func (m MigrationJobSource) Build(conf *configs.DeployConfig) *kubebatch.Job {
	deadline := int64(conf.Jobs().Migration().Timeout().Seconds())

	args := append(
		[]string{"manage.py", "migrate", "--noinput"},
		m.ExtraArgs...,
	)

	return &kubebatch.Job{
		ObjectMeta: m.ObjectMeta(conf.Cluster().Namespace()),
		Spec: kubebatch.JobSpec{
			BackoffLimit:          pointer.Ref[int32](0),
			ActiveDeadlineSeconds: &deadline,
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{Labels: metasource.ToLabels(m)},
				Spec: kubecore.PodSpec{
					RestartPolicy:    kubecore.RestartPolicyNever,
					ImagePullSecrets: pullSecrets(conf),
					Containers: []kubecore.Container{
						{
							Name:    "migrate",
							Image:   conf.Jobs().Migration().Image(),
							Command: []string{"python"},
							Args:    args,
							EnvFrom: []kubecore.EnvFromSource{
								{
									SecretRef: &kubecore.SecretEnvSource{
										LocalObjectReference: kubecore.LocalObjectReference{
											Name: conf.App().SecretName(),
										},
										Optional: pointer.Ref(true),
									},
								},
							},
							Env: []kubecore.EnvVar{
								{Name: "DATABASE_URL", Value: m.DatabaseURL},
								{Name: "DJANGO_SETTINGS_MODULE", Value: conf.App().SettingsModule()},
							},
						},
					},
				},
			},
		},
	}
}

// SeedJobSource describes a Job loading initial data into an empty database.
type SeedJobSource struct {
	AppName string

	// unique per attempt; appended to the Job name.
	Suffix string

	CommitId string

	// connection string with the resolved credential.
	DatabaseURL string

	// manage.py subcommand and its args. Defaults to {"seed"}.
	SeedArgs []string
}

var _ metasource.ResourceBuilder[*configs.DeployConfig, *kubebatch.Job] = SeedJobSource{}

func (s SeedJobSource) Name() string {
	return s.AppName
}

func (s SeedJobSource) Instance() string {
	return fmt.Sprintf("%s-seed-%s", s.AppName, s.Suffix)
}

func (s SeedJobSource) Component() string {
	return "seed"
}

func (s SeedJobSource) Id() string {
	return s.CommitId
}

func (s SeedJobSource) IdType() string {
	return "commit_id"
}

func (s SeedJobSource) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(s, namespace)
}

func (s SeedJobSource) Build(conf *configs.DeployConfig) *kubebatch.Job {
	deadline := int64(conf.Jobs().Seed().Timeout().Seconds())

	seedArgs := s.SeedArgs
	if len(seedArgs) == 0 {
		seedArgs = []string{"seed"}
	}
	args := append([]string{"manage.py"}, seedArgs...)

	return &kubebatch.Job{
		ObjectMeta: s.ObjectMeta(conf.Cluster().Namespace()),
		Spec: kubebatch.JobSpec{
			BackoffLimit:          pointer.Ref[int32](0),
			ActiveDeadlineSeconds: &deadline,
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{Labels: metasource.ToLabels(s)},
				Spec: kubecore.PodSpec{
					RestartPolicy:    kubecore.RestartPolicyNever,
					ImagePullSecrets: pullSecrets(conf),
					Containers: []kubecore.Container{
						{
							Name:    "seed",
							Image:   conf.Jobs().Seed().Image(),
							Command: []string{"python"},
							Args:    args,
							EnvFrom: []kubecore.EnvFromSource{
								{
									SecretRef: &kubecore.SecretEnvSource{
										LocalObjectReference: kubecore.LocalObjectReference{
											Name: conf.App().SecretName(),
										},
									},
								},
							},
							Env: []kubecore.EnvVar{
								{Name: "DATABASE_URL", Value: s.DatabaseURL},
								{Name: "DJANGO_SETTINGS_MODULE", Value: conf.App().SettingsModule()},
							},
						},
					},
				},
			},
		},
	}
}
