package credentials_test

import (
	"context"
	"log"
	"strings"
	"testing"

	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/common"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/credentials"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/internal/commandline"
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

// probeCluster fakes a cluster whose probe jobs complete at once.
func probeCluster(t *testing.T) k8s.Cluster {
	t.Helper()
	cluster, client := mock.NewCluster()

	client.InMemorySecrets()["postgresql"] = &kubecore.Secret{
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

	return cluster
}

func TestCredentialsCommand(t *testing.T) {
	t.Run("it reports the accepted credential without its password", func(t *testing.T) {
		conf := testConfig(t)
		cluster := probeCluster(t)

		stdout := &strings.Builder{}
		cl := commandline.MockCommandline[credentials.Flag]{
			Fullname_: "deployctl credentials",
			Stdout_:   stdout,
			Stderr_:   &strings.Builder{},
		}

		err := credentials.Task()(
			context.Background(),
			log.New(&strings.Builder{}, "", 0),
			common.CommonFlags{},
			conf, cluster, cl, nil,
		)
		if err != nil {
			t.Fatal(err)
		}

		out := stdout.String()
		if !strings.Contains(out, "user=erp") {
			t.Errorf("output should name the app user: %s", out)
		}
		if !strings.Contains(out, "source=live-secret") {
			t.Errorf("output should name the source: %s", out)
		}
		if !strings.Contains(out, "fingerprint=") {
			t.Errorf("output should carry a fingerprint: %s", out)
		}
		if strings.Contains(out, "admin-pw") {
			t.Errorf("output must not disclose the password: %s", out)
		}
	})
}
