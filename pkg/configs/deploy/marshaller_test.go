package deploy_test

import (
	"testing"
	"time"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/cmp"
)

const fullExample = `
cluster:
    namespace: erp
    domain: example.local
app:
    name: erp-api
    secretName: erp-api-env
    secretKey: django-insecure-fallback
    settingsModule: config.settings.production
    allowedHosts:
        - erp.example.com
    corsOrigins:
        - https://erp.example.com
    trustedOrigins:
        - https://erp.example.com
database:
    service: postgresql
    port: 15432
    name: erp
    appUser: erp
    adminUser: postgres
    adminSecretName: postgresql
    adminSecretKey: admin-password
    coreTables:
        - django_migrations
        - auth_user
    verifyTables:
        - auth_user
    seedSentinel: auth_user
redis:
    service: redis-master
    port: 16379
    password: hunter2
    brokerDb: 3
    resultDb: 4
    cacheDb: 5
jobs:
    probe:
        image: postgres:16
        timeout: 30s
    migration:
        image: registry.example.com/erp-api:abc123
        timeout: 5m
    seed:
        image: registry.example.com/erp-api:abc123
gitops:
    sourceRepo: erp-api
    targetRepo: erp-deploy
    remoteUrl: https://git.example.com/org/erp-deploy.git
    branch: release
    valuesPath: charts/erp/values.yaml
    pullSecrets:
        - regcred
`

func TestUnmarshal_and_TrySeal(t *testing.T) {
	t.Run("it parses a full config", func(t *testing.T) {
		m, err := deploy.Unmarshal([]byte(fullExample))
		if err != nil {
			t.Fatal(err)
		}
		conf := deploy.TrySeal(m)

		if conf.Cluster().Namespace() != "erp" {
			t.Errorf("namespace: got %s", conf.Cluster().Namespace())
		}
		if h := conf.Cluster().ServiceHost("postgresql"); h != "postgresql.erp.svc.example.local" {
			t.Errorf("service host: got %s", h)
		}
		if conf.App().Name() != "erp-api" {
			t.Errorf("app name: got %s", conf.App().Name())
		}
		if conf.App().StaticURL() != "/static/" {
			t.Errorf("static url default: got %s", conf.App().StaticURL())
		}
		db := conf.Database()
		if db.Port() != 15432 {
			t.Errorf("db port: got %d", db.Port())
		}
		if !cmp.SliceEq(db.CoreTables(), []string{"django_migrations", "auth_user"}) {
			t.Errorf("core tables: got %v", db.CoreTables())
		}
		if !cmp.SliceEq(db.VerifyTables(), []string{"auth_user"}) {
			t.Errorf("verify tables: got %v", db.VerifyTables())
		}
		r := conf.Redis()
		if r.BrokerDB() != 3 || r.ResultDB() != 4 || r.CacheDB() != 5 {
			t.Errorf("redis dbs: got %d/%d/%d", r.BrokerDB(), r.ResultDB(), r.CacheDB())
		}
		jobs := conf.Jobs()
		if jobs.Probe().Timeout() != 30*time.Second {
			t.Errorf("probe timeout: got %v", jobs.Probe().Timeout())
		}
		if jobs.Migration().Timeout() != 5*time.Minute {
			t.Errorf("migration timeout: got %v", jobs.Migration().Timeout())
		}
		if jobs.Seed().Timeout() != 600*time.Second {
			t.Errorf("seed timeout default: got %v", jobs.Seed().Timeout())
		}
		g := conf.Gitops()
		if !g.CrossRepo() {
			t.Error("gitops should be cross-repo")
		}
		if g.Branch() != "release" {
			t.Errorf("branch: got %s", g.Branch())
		}
	})

	t.Run("it applies defaults for omitted optional fields", func(t *testing.T) {
		minimal := `
cluster:
    namespace: erp
app:
    name: erp-api
    secretName: erp-api-env
    secretKey: k
    settingsModule: config.settings.production
database:
    service: postgresql
    name: erp
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
    seed:
        image: app:latest
gitops:
    sourceRepo: erp-api
    targetRepo: erp-api
    remoteUrl: https://git.example.com/org/erp-api.git
`
		m, err := deploy.Unmarshal([]byte(minimal))
		if err != nil {
			t.Fatal(err)
		}
		conf := deploy.TrySeal(m)

		if conf.Cluster().Domain() != "cluster.local" {
			t.Errorf("domain default: got %s", conf.Cluster().Domain())
		}
		if conf.Database().Port() != 5432 {
			t.Errorf("db port default: got %d", conf.Database().Port())
		}
		if conf.Database().AdminSecretKey() != "postgres-password" {
			t.Errorf("admin secret key default: got %s", conf.Database().AdminSecretKey())
		}
		if !cmp.SliceEq(conf.Database().VerifyTables(), []string{"django_migrations"}) {
			t.Errorf("verify tables should fall back to core tables: got %v", conf.Database().VerifyTables())
		}
		if conf.Redis().Port() != 6379 {
			t.Errorf("redis port default: got %d", conf.Redis().Port())
		}
		if conf.Redis().Password() != "" {
			t.Error("redis password should default to empty")
		}
		if conf.Jobs().Probe().Timeout() != 45*time.Second {
			t.Errorf("probe timeout default: got %v", conf.Jobs().Probe().Timeout())
		}
		if conf.Gitops().CrossRepo() {
			t.Error("same source and target repo is not cross-repo")
		}
		if conf.Gitops().Branch() != "main" {
			t.Errorf("branch default: got %s", conf.Gitops().Branch())
		}
		if conf.Gitops().ValuesPath() != "values.yaml" {
			t.Errorf("values path default: got %s", conf.Gitops().ValuesPath())
		}
	})

	t.Run("it panics when a required field is missing", func(t *testing.T) {
		noNamespace := `
cluster:
    domain: example.local
app:
    name: erp-api
    secretName: erp-api-env
    secretKey: k
    settingsModule: config.settings.production
database:
    service: postgresql
    name: erp
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
    seed:
        image: app:latest
gitops:
    sourceRepo: erp-api
    targetRepo: erp-api
    remoteUrl: https://git.example.com/org/erp-api.git
`
		m, err := deploy.Unmarshal([]byte(noNamespace))
		if err != nil {
			t.Fatal(err)
		}
		defer func() {
			if recover() == nil {
				t.Error("TrySeal should panic without cluster.namespace")
			}
		}()
		deploy.TrySeal(m)
	})

	t.Run("it panics when a section is missing", func(t *testing.T) {
		m, err := deploy.Unmarshal([]byte(`
cluster:
    namespace: erp
`))
		if err != nil {
			t.Fatal(err)
		}
		defer func() {
			if recover() == nil {
				t.Error("TrySeal should panic without app section")
			}
		}()
		deploy.TrySeal(m)
	})
}
