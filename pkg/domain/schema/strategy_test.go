package schema_test

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"

	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/schema"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/try"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s/mock"
)

func TestPlanFor(t *testing.T) {
	for name, testcase := range map[string]struct {
		classification schema.Classification
		want           []schema.Mode
	}{
		"fresh":       {schema.Fresh, []schema.Mode{schema.Apply}},
		"established": {schema.Established, []schema.Mode{schema.FakeInitial, schema.Apply}},
		"partial":     {schema.Partial, []schema.Mode{schema.Apply, schema.FakeInitial}},
	} {
		t.Run(name, func(t *testing.T) {
			got := schema.PlanFor(testcase.classification)
			if len(got) != len(testcase.want) {
				t.Fatalf("plan: got %v, want %v", got, testcase.want)
			}
			for i := range testcase.want {
				if got[i] != testcase.want[i] {
					t.Errorf("plan[%d]: got %s, want %s", i, got[i], testcase.want[i])
				}
			}
		})
	}
}

func runnerConfig(t *testing.T) *configs.DeployConfig {
	t.Helper()
	m := try.To(configs.Unmarshal([]byte(`
cluster:
    namespace: fake-namespace
app:
    name: erp-api
    secretName: erp-api-env
    secretKey: k
    settingsModule: config.settings.production
database:
    service: postgresql
    name: erpdb
    appUser: erp
    adminUser: postgres
    adminSecretName: postgresql
    coreTables:
        - django_migrations
    seedSentinel: auth_user
redis:
    service: redis-master
jobs:
    probe:
        image: postgres:16
    migration:
        image: app:latest
        timeout: 5s
    seed:
        image: app:latest
gitops:
    sourceRepo: erp-api
    targetRepo: erp-api
    remoteUrl: https://git.example.com/org/erp-api.git
`))).OrFatal(t)
	return configs.TrySeal(m)
}

func nullLogger() *log.Logger {
	return log.New(&strings.Builder{}, "", 0)
}

// modeOf recovers the migration mode from the job spec under creation.
func modeOf(j *kubebatch.Job) schema.Mode {
	for _, a := range j.Spec.Template.Spec.Containers[0].Args {
		if a == "--fake-initial" {
			return schema.FakeInitial
		}
	}
	return schema.Apply
}

// migrationCluster fakes a cluster where jobs in okModes succeed and
// every other migration job fails.
func migrationCluster(t *testing.T, okModes ...schema.Mode) (*mock.MockClient, k8s.Cluster, *[]schema.Mode) {
	t.Helper()
	cluster, client := mock.NewCluster()
	ran := &[]schema.Mode{}

	client.Impl.CreateJob = func(ctx context.Context, namespace string, j *kubebatch.Job) (*kubebatch.Job, error) {
		mode := modeOf(j)
		*ran = append(*ran, mode)

		finished := j.DeepCopy()
		finished.Spec.Selector = &kubeapimeta.LabelSelector{
			MatchLabels: map[string]string{"controller-uid": "deadbeef"},
		}
		condition := kubebatch.JobFailed
		for _, m := range okModes {
			if m == mode {
				condition = kubebatch.JobComplete
			}
		}
		finished.Status.Conditions = []kubebatch.JobCondition{
			{Type: condition, Status: "True"},
		}
		return finished, nil
	}
	client.Impl.FindPods = func(ctx context.Context, namespace string, ls k8s.LabelSelector) ([]kubecore.Pod, error) {
		return []kubecore.Pod{
			{
				ObjectMeta: kubeapimeta.ObjectMeta{Name: "migrate-pod", Namespace: namespace},
				Status: kubecore.PodStatus{
					Phase: kubecore.PodFailed,
					ContainerStatuses: []kubecore.ContainerStatus{
						{
							Name: "migrate",
							State: kubecore.ContainerState{
								Terminated: &kubecore.ContainerStateTerminated{
									ExitCode: 1, Reason: "Error",
								},
							},
						},
					},
				},
			},
		}, nil
	}
	client.Impl.DeleteJob = func(ctx context.Context, namespace string, name string) error {
		return nil
	}

	return client, cluster, ran
}

func TestRunner_Migrate(t *testing.T) {
	conf := runnerConfig(t)

	t.Run("fresh: plain apply succeeds", func(t *testing.T) {
		client, cluster, ran := migrationCluster(t, schema.Apply)
		r := schema.Runner{Cluster: cluster, Conf: conf, Logger: nullLogger(), CommitId: "abc123"}

		if err := r.Migrate(context.Background(), schema.Fresh); err != nil {
			t.Fatal(err)
		}
		if len(*ran) != 1 || (*ran)[0] != schema.Apply {
			t.Errorf("ran: got %v", *ran)
		}
		if client.Called.DeleteJob != 1 {
			t.Error("migration job must be deleted after use")
		}
	})

	t.Run("fresh: a failure is fatal without fallback", func(t *testing.T) {
		_, cluster, ran := migrationCluster(t) // nothing succeeds
		r := schema.Runner{Cluster: cluster, Conf: conf, Logger: nullLogger(), CommitId: "abc123"}

		err := r.Migrate(context.Background(), schema.Fresh)
		if err == nil {
			t.Fatal("expected an error")
		}
		if errors.Is(err, schema.ErrSchemaInconsistent) {
			t.Error("a fresh database failure is not an inconsistency")
		}
		if len(*ran) != 1 {
			t.Errorf("no fallback should run for fresh: %v", *ran)
		}
	})

	t.Run("established: fake-initial runs first, apply is not needed", func(t *testing.T) {
		_, cluster, ran := migrationCluster(t, schema.FakeInitial)
		r := schema.Runner{Cluster: cluster, Conf: conf, Logger: nullLogger(), CommitId: "abc123"}

		if err := r.Migrate(context.Background(), schema.Established); err != nil {
			t.Fatal(err)
		}
		if len(*ran) != 1 || (*ran)[0] != schema.FakeInitial {
			t.Errorf("ran: got %v", *ran)
		}
	})

	t.Run("partial: apply fails, fake-initial saves the run", func(t *testing.T) {
		_, cluster, ran := migrationCluster(t, schema.FakeInitial)
		r := schema.Runner{Cluster: cluster, Conf: conf, Logger: nullLogger(), CommitId: "abc123"}

		if err := r.Migrate(context.Background(), schema.Partial); err != nil {
			t.Fatal(err)
		}
		want := []schema.Mode{schema.Apply, schema.FakeInitial}
		if len(*ran) != 2 || (*ran)[0] != want[0] || (*ran)[1] != want[1] {
			t.Errorf("ran: got %v", *ran)
		}
	})

	t.Run("partial: double failure is ErrSchemaInconsistent", func(t *testing.T) {
		client, cluster, ran := migrationCluster(t) // nothing succeeds
		r := schema.Runner{Cluster: cluster, Conf: conf, Logger: nullLogger(), CommitId: "abc123"}

		err := r.Migrate(context.Background(), schema.Partial)
		if !errors.Is(err, schema.ErrSchemaInconsistent) {
			t.Fatalf("got %+v", err)
		}
		if len(*ran) != 2 {
			t.Errorf("ran: got %v", *ran)
		}
		if client.Called.DeleteJob != 2 {
			t.Error("every migration job must be deleted")
		}
	})
}
