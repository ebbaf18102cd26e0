// Package envsecret renders the app's runtime environment as a k8s
// Secret and replaces the stored one wholesale.
package envsecret

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"

	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/domain/credential"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/metasource"
)

// Entry is one environment variable of the app.
type Entry struct {
	Key   string
	Value string
}

// Bundle is the full environment of the app, in a stable order.
type Bundle []Entry

// Get returns the value for key and whether it is present.
func (b Bundle) Get(key string) (string, bool) {
	for _, e := range b {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// ToSecretData renders the bundle as k8s Secret data.
func (b Bundle) ToSecretData() map[string][]byte {
	data := map[string][]byte{}
	for _, e := range b {
		data[e.Key] = []byte(e.Value)
	}
	return data
}

func redisURL(conf *configs.RedisConfig, host string, db int) string {
	u := url.URL{
		Scheme: "redis",
		Host:   fmt.Sprintf("%s:%d", host, conf.Port()),
		Path:   "/" + strconv.Itoa(db),
	}
	if p := conf.Password(); p != "" {
		u.User = url.UserPassword("", p)
	}
	return u.String()
}

// Build assembles the whole environment from the sealed config and the
// credential which passed the probe in this run.
func Build(conf *configs.DeployConfig, cred credential.Credential) Bundle {
	db := conf.Database()
	redis := conf.Redis()
	app := conf.App()

	dbHost := conf.Cluster().ServiceHost(db.Service())
	redisHost := conf.Cluster().ServiceHost(redis.Service())

	return Bundle{
		{"DATABASE_URL", cred.URL(dbHost, db.Port(), db.Name())},
		{"DB_HOST", dbHost},
		{"DB_PORT", strconv.Itoa(int(db.Port()))},
		{"DB_NAME", db.Name()},
		{"DB_USER", cred.User},
		{"DB_PASSWORD", cred.Password},

		{"CELERY_BROKER_URL", redisURL(redis, redisHost, redis.BrokerDB())},
		{"CELERY_RESULT_BACKEND", redisURL(redis, redisHost, redis.ResultDB())},
		{"CACHE_URL", redisURL(redis, redisHost, redis.CacheDB())},
		{"REDIS_HOST", redisHost},
		{"REDIS_PORT", strconv.Itoa(int(redis.Port()))},
		{"REDIS_PASSWORD", redis.Password()},

		{"SECRET_KEY", app.SecretKey()},
		{"DJANGO_SECRET_KEY", app.SecretKey()},
		{"DJANGO_SETTINGS_MODULE", app.SettingsModule()},
		{"DEBUG", "False"},
		{"ALLOWED_HOSTS", strings.Join(app.AllowedHosts(), ",")},
		{"CORS_ALLOWED_ORIGINS", strings.Join(app.CorsOrigins(), ",")},
		{"CSRF_TRUSTED_ORIGINS", strings.Join(app.TrustedOrigins(), ",")},

		{"STATIC_URL", app.StaticURL()},
		{"STATIC_ROOT", app.StaticRoot()},
		{"MEDIA_URL", app.MediaURL()},
		{"MEDIA_ROOT", app.MediaRoot()},
	}
}

// SecretSource renders a Bundle as the app's env Secret.
type SecretSource struct {
	AppName    string
	SecretName string
	CommitId   string
	Bundle     Bundle
}

var _ metasource.ResourceBuilder[*configs.DeployConfig, *kubecore.Secret] = SecretSource{}

func (s SecretSource) Name() string {
	return s.AppName
}

// Instance is the configured secret name: the app reads it by
// that fixed name, so no per-attempt suffix here.
func (s SecretSource) Instance() string {
	return s.SecretName
}

func (s SecretSource) Component() string {
	return "env-secret"
}

func (s SecretSource) Id() string {
	return s.CommitId
}

func (s SecretSource) IdType() string {
	return "commit_id"
}

func (s SecretSource) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(s, namespace)
}

func (s SecretSource) Build(conf *configs.DeployConfig) *kubecore.Secret {
	return &kubecore.Secret{
		ObjectMeta: s.ObjectMeta(conf.Cluster().Namespace()),
		Type:       kubecore.SecretTypeOpaque,
		Data:       s.Bundle.ToSecretData(),
	}
}

// Apply replaces the stored env secret with the bundle, wholesale.
//
// Delete-then-create, never a merge: a key removed from the bundle
// must not survive from an earlier deployment.
func Apply(
	ctx context.Context,
	cluster k8s.Cluster,
	conf *configs.DeployConfig,
	src SecretSource,
) (*kubecore.Secret, error) {
	return cluster.ReplaceSecret(ctx, src.Build(conf))
}
