package jobs_test

import (
	"testing"

	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/cmp"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/try"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/jobs"
)

func testConfig(t *testing.T) *configs.DeployConfig {
	t.Helper()
	m := try.To(configs.Unmarshal([]byte(`
cluster:
    namespace: erp
    domain: example.local
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
        timeout: 45s
    migration:
        image: registry.example.com/erp-api:abc123
        timeout: 10m
    seed:
        image: registry.example.com/erp-api:abc123
        timeout: 10m
gitops:
    sourceRepo: erp-api
    targetRepo: erp-deploy
    remoteUrl: https://git.example.com/org/erp-deploy.git
    pullSecrets:
        - regcred
`))).OrFatal(t)
	return configs.TrySeal(m)
}

func TestProbeJobSource(t *testing.T) {
	conf := testConfig(t)
	src := jobs.ProbeJobSource{
		AppName:  "erp-api",
		Suffix:   "a1b2c3",
		User:     "erp",
		Password: "sup3rsecret",
	}

	j := src.Build(conf)

	if j.ObjectMeta.Name != "erp-api-credential-probe-a1b2c3" {
		t.Errorf("job name: got %s", j.ObjectMeta.Name)
	}
	if j.ObjectMeta.Namespace != "erp" {
		t.Errorf("namespace: got %s", j.ObjectMeta.Namespace)
	}
	if !cmp.MapLeq(
		map[string]string{
			"app.kubernetes.io/name":      "erp-api",
			"app.kubernetes.io/component": "credential-probe",
		},
		j.ObjectMeta.Labels,
	) {
		t.Errorf("labels: got %v", j.ObjectMeta.Labels)
	}
	if *j.Spec.BackoffLimit != 0 {
		t.Errorf("backoff limit: got %d", *j.Spec.BackoffLimit)
	}
	if *j.Spec.ActiveDeadlineSeconds != 45 {
		t.Errorf("deadline: got %d", *j.Spec.ActiveDeadlineSeconds)
	}

	pod := j.Spec.Template.Spec
	if pod.RestartPolicy != "Never" {
		t.Errorf("restart policy: got %s", pod.RestartPolicy)
	}
	if len(pod.ImagePullSecrets) != 1 || pod.ImagePullSecrets[0].Name != "regcred" {
		t.Errorf("pull secrets: got %v", pod.ImagePullSecrets)
	}
	c := pod.Containers[0]
	if c.Image != "postgres:16" {
		t.Errorf("image: got %s", c.Image)
	}
	if !cmp.SliceEq(c.Args, []string{
		"--host", "postgresql.erp.svc.example.local",
		"--port", "5432",
		"--username", "erp",
		"--dbname", "erpdb",
		"--command", "SELECT 1",
	}) {
		t.Errorf("args: got %v", c.Args)
	}
	password := ""
	for _, e := range c.Env {
		if e.Name == "PGPASSWORD" {
			password = e.Value
		}
	}
	if password != "sup3rsecret" {
		t.Error("PGPASSWORD should be set in the container env")
	}
}

func TestMigrationJobSource(t *testing.T) {
	conf := testConfig(t)

	t.Run("plain apply", func(t *testing.T) {
		src := jobs.MigrationJobSource{
			AppName:     "erp-api",
			Suffix:      "r1",
			CommitId:    "abc123",
			DatabaseURL: "postgresql://erp:pw@postgresql.erp.svc.example.local:5432/erpdb",
		}
		j := src.Build(conf)

		if j.ObjectMeta.Name != "erp-api-migration-r1" {
			t.Errorf("job name: got %s", j.ObjectMeta.Name)
		}
		if got := j.ObjectMeta.Labels["deployctl/erp-api.commit_id"]; got != "abc123" {
			t.Errorf("commit label: got %s", got)
		}
		if *j.Spec.ActiveDeadlineSeconds != 600 {
			t.Errorf("deadline: got %d", *j.Spec.ActiveDeadlineSeconds)
		}

		c := j.Spec.Template.Spec.Containers[0]
		if !cmp.SliceEq(c.Command, []string{"python"}) {
			t.Errorf("command: got %v", c.Command)
		}
		if !cmp.SliceEq(c.Args, []string{"manage.py", "migrate", "--noinput"}) {
			t.Errorf("args: got %v", c.Args)
		}
		if c.EnvFrom[0].SecretRef.Name != "erp-api-env" {
			t.Errorf("envFrom secret: got %s", c.EnvFrom[0].SecretRef.Name)
		}
		if !*c.EnvFrom[0].SecretRef.Optional {
			t.Error("app secret should be optional for migration")
		}
	})

	t.Run("fake-initial", func(t *testing.T) {
		src := jobs.MigrationJobSource{
			AppName:   "erp-api",
			Suffix:    "r2",
			CommitId:  "abc123",
			ExtraArgs: []string{"--fake-initial"},
		}
		j := src.Build(conf)

		c := j.Spec.Template.Spec.Containers[0]
		if !cmp.SliceEq(c.Args, []string{"manage.py", "migrate", "--noinput", "--fake-initial"}) {
			t.Errorf("args: got %v", c.Args)
		}
	})
}

func TestSeedJobSource(t *testing.T) {
	conf := testConfig(t)

	t.Run("default command", func(t *testing.T) {
		src := jobs.SeedJobSource{AppName: "erp-api", Suffix: "s1", CommitId: "abc123"}
		j := src.Build(conf)

		if j.ObjectMeta.Name != "erp-api-seed-s1" {
			t.Errorf("job name: got %s", j.ObjectMeta.Name)
		}
		c := j.Spec.Template.Spec.Containers[0]
		if !cmp.SliceEq(c.Args, []string{"manage.py", "seed"}) {
			t.Errorf("args: got %v", c.Args)
		}
	})

	t.Run("custom command", func(t *testing.T) {
		src := jobs.SeedJobSource{
			AppName: "erp-api", Suffix: "s2", CommitId: "abc123",
			SeedArgs: []string{"loaddata", "fixtures/base.json"},
		}
		j := src.Build(conf)

		c := j.Spec.Template.Spec.Containers[0]
		if !cmp.SliceEq(c.Args, []string{"manage.py", "loaddata", "fixtures/base.json"}) {
			t.Errorf("args: got %v", c.Args)
		}
	})
}
