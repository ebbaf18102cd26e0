package secret_test

import (
	"context"
	"log"
	"strings"
	"testing"

	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/common"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/internal/commandline"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/secret"
	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/try"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s/mock"
)

func testConfig(t *testing.T) *configs.DeployConfig {
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
        timeout: 5s
    migration:
        image: app:latest
    seed:
        image: app:latest
gitops:
    sourceRepo: erp-api
`))).OrFatal(t)
	return configs.TrySeal(m)
}

func probeCluster(t *testing.T) (k8s.Cluster, map[string]*kubecore.Secret) {
	t.Helper()
	cluster, client := mock.NewCluster()
	store := client.InMemorySecrets()

	store["postgresql"] = &kubecore.Secret{
		ObjectMeta: kubeapimeta.ObjectMeta{Name: "postgresql", Namespace: "fake-namespace"},
		Data:       map[string][]byte{"postgres-password": []byte("admin-pw")},
	}
	client.Impl.CreateJob = func(ctx context.Context, namespace string, j *kubebatch.Job) (*kubebatch.Job, error) {
		finished := j.DeepCopy()
		finished.Spec.Selector = &kubeapimeta.LabelSelector{
			MatchLabels: map[string]string{"controller-uid": "deadbeef"},
		}
		finished.Status.Conditions = []kubebatch.JobCondition{
			{Type: kubebatch.JobComplete, Status: "True"},
		}
		return finished, nil
	}
	client.Impl.FindPods = func(ctx context.Context, namespace string, ls k8s.LabelSelector) ([]kubecore.Pod, error) {
		return []kubecore.Pod{{Status: kubecore.PodStatus{Phase: kubecore.PodSucceeded}}}, nil
	}
	client.Impl.DeleteJob = func(ctx context.Context, namespace string, name string) error {
		return nil
	}

	return cluster, store
}

func TestSecretCommand(t *testing.T) {
	t.Run("it materializes the env secret from the resolved credential", func(t *testing.T) {
		conf := testConfig(t)
		cluster, store := probeCluster(t)

		stdout := &strings.Builder{}
		cl := commandline.MockCommandline[secret.Flag]{
			Fullname_: "deployctl secret",
			Stdout_:   stdout,
			Stderr_:   &strings.Builder{},
		}

		err := secret.Task()(
			context.Background(),
			log.New(&strings.Builder{}, "", 0),
			common.CommonFlags{CommitId: "abc123"},
			conf, cluster, cl, nil,
		)
		if err != nil {
			t.Fatal(err)
		}

		materialized, ok := store["erp-api-env"]
		if !ok {
			t.Fatal("env secret should be materialized")
		}
		if got := string(materialized.Data["DB_USER"]); got != "erp" {
			t.Errorf("DB_USER: got %s", got)
		}
		if got := string(materialized.Data["DB_PASSWORD"]); got != "admin-pw" {
			t.Errorf("DB_PASSWORD: got %s", got)
		}
		if got := materialized.ObjectMeta.Labels["deployctl/erp-api.commit_id"]; got != "abc123" {
			t.Errorf("commit label: got %s", got)
		}

		if !strings.Contains(stdout.String(), "secret erp-api-env") {
			t.Errorf("stdout should report the secret name: %s", stdout.String())
		}
	})
}
