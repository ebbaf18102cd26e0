package deploy

import (
	"fmt"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/deploy.XxxMarshall` are `Marshalled[*Xxx]`.
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

// Configuration of a deployment run.
//
// This type is a marshalling value and mutable.
// Consider using the immutable version, `DeployConfig`.
// You can get a `DeployConfig` instance with `TrySeal()`.
type DeployConfigMarshall struct {
	Cluster  *ClusterConfigMarshall  `yaml:"cluster"`
	App      *AppConfigMarshall      `yaml:"app"`
	Database *DatabaseConfigMarshall `yaml:"database"`
	Redis    *RedisConfigMarshall    `yaml:"redis"`
	Jobs     *JobsConfigMarshall     `yaml:"jobs"`
	Gitops   *GitopsConfigMarshall   `yaml:"gitops"`
}

var _ Marshalled[*DeployConfig] = &DeployConfigMarshall{}

func (m *DeployConfigMarshall) trySeal(path string) *DeployConfig {
	return &DeployConfig{
		cluster:  nonnil(m.Cluster, path+".cluster").trySeal(path + ".cluster"),
		app:      nonnil(m.App, path+".app").trySeal(path + ".app"),
		database: nonnil(m.Database, path+".database").trySeal(path + ".database"),
		redis:    nonnil(m.Redis, path+".redis").trySeal(path + ".redis"),
		jobs:     nonnil(m.Jobs, path+".jobs").trySeal(path + ".jobs"),
		gitops:   nonnil(m.Gitops, path+".gitops").trySeal(path + ".gitops"),
	}
}

type ClusterConfigMarshall struct {
	Namespace string `yaml:"namespace"`
	Domain    string `yaml:"domain,omitempty"`
}

func (m *ClusterConfigMarshall) trySeal(path string) *ClusterConfig {
	domain := m.Domain
	if domain == "" {
		domain = "cluster.local"
	}
	return &ClusterConfig{
		namespace: required(m.Namespace, path+".namespace"),
		domain:    domain,
	}
}

type AppConfigMarshall struct {
	Name           string   `yaml:"name"`
	SecretName     string   `yaml:"secretName"`
	SecretKey      string   `yaml:"secretKey"`
	SettingsModule string   `yaml:"settingsModule"`
	AllowedHosts   []string `yaml:"allowedHosts"`
	CorsOrigins    []string `yaml:"corsOrigins"`
	TrustedOrigins []string `yaml:"trustedOrigins"`
	StaticURL      string   `yaml:"staticUrl,omitempty"`
	StaticRoot     string   `yaml:"staticRoot,omitempty"`
	MediaURL       string   `yaml:"mediaUrl,omitempty"`
	MediaRoot      string   `yaml:"mediaRoot,omitempty"`
}

func (m *AppConfigMarshall) trySeal(path string) *AppConfig {
	return &AppConfig{
		name:           required(m.Name, path+".name"),
		secretName:     required(m.SecretName, path+".secretName"),
		secretKey:      required(m.SecretKey, path+".secretKey"),
		settingsModule: required(m.SettingsModule, path+".settingsModule"),
		allowedHosts:   m.AllowedHosts,
		corsOrigins:    m.CorsOrigins,
		trustedOrigins: m.TrustedOrigins,
		staticURL:      orElse(m.StaticURL, "/static/"),
		staticRoot:     orElse(m.StaticRoot, "/app/staticfiles"),
		mediaURL:       orElse(m.MediaURL, "/media/"),
		mediaRoot:      orElse(m.MediaRoot, "/app/media"),
	}
}

type DatabaseConfigMarshall struct {
	Service         string   `yaml:"service"`
	Port            int32    `yaml:"port,omitempty"`
	Name            string   `yaml:"name"`
	AppUser         string   `yaml:"appUser"`
	AdminUser       string   `yaml:"adminUser"`
	AdminSecretName string   `yaml:"adminSecretName"`
	AdminSecretKey  string   `yaml:"adminSecretKey,omitempty"`
	CoreTables      []string `yaml:"coreTables"`
	VerifyTables    []string `yaml:"verifyTables,omitempty"`
	SeedSentinel    string   `yaml:"seedSentinel"`

	// OverridePassword is not read from yaml; main injects it
	// from the process environment before sealing.
	OverridePassword string `yaml:"-"`
}

func (m *DatabaseConfigMarshall) trySeal(path string) *DatabaseConfig {
	port := m.Port
	if port == 0 {
		port = 5432
	}
	coreTables := m.CoreTables
	if len(coreTables) == 0 {
		panic(path + ".coreTables is required")
	}
	verifyTables := m.VerifyTables
	if len(verifyTables) == 0 {
		verifyTables = coreTables
	}
	return &DatabaseConfig{
		service:          required(m.Service, path+".service"),
		port:             port,
		name:             required(m.Name, path+".name"),
		appUser:          required(m.AppUser, path+".appUser"),
		adminUser:        required(m.AdminUser, path+".adminUser"),
		adminSecretName:  required(m.AdminSecretName, path+".adminSecretName"),
		adminSecretKey:   orElse(m.AdminSecretKey, "postgres-password"),
		overridePassword: m.OverridePassword,
		coreTables:       coreTables,
		verifyTables:     verifyTables,
		seedSentinel:     required(m.SeedSentinel, path+".seedSentinel"),
	}
}

type RedisConfigMarshall struct {
	Service  string `yaml:"service"`
	Port     int32  `yaml:"port,omitempty"`
	Password string `yaml:"password,omitempty"`
	BrokerDB *int   `yaml:"brokerDb,omitempty"`
	ResultDB *int   `yaml:"resultDb,omitempty"`
	CacheDB  *int   `yaml:"cacheDb,omitempty"`
}

func (m *RedisConfigMarshall) trySeal(path string) *RedisConfig {
	port := m.Port
	if port == 0 {
		port = 6379
	}
	return &RedisConfig{
		service:  required(m.Service, path+".service"),
		port:     port,
		password: m.Password,
		brokerDB: orElsePtr(m.BrokerDB, 0),
		resultDB: orElsePtr(m.ResultDB, 1),
		cacheDB:  orElsePtr(m.CacheDB, 2),
	}
}

type JobsConfigMarshall struct {
	Probe     *JobConfigMarshall `yaml:"probe"`
	Migration *JobConfigMarshall `yaml:"migration"`
	Seed      *JobConfigMarshall `yaml:"seed"`
}

func (m *JobsConfigMarshall) trySeal(path string) *JobsConfig {
	return &JobsConfig{
		probe:     nonnil(m.Probe, path+".probe").trySeal(path+".probe", 45*time.Second),
		migration: nonnil(m.Migration, path+".migration").trySeal(path+".migration", 600*time.Second),
		seed:      nonnil(m.Seed, path+".seed").trySeal(path+".seed", 600*time.Second),
	}
}

type JobConfigMarshall struct {
	Image   string `yaml:"image"`
	Timeout string `yaml:"timeout,omitempty"`
}

func (m *JobConfigMarshall) trySeal(path string, defaultTimeout time.Duration) *JobConfig {
	timeout := defaultTimeout
	if m.Timeout != "" {
		t, err := time.ParseDuration(m.Timeout)
		if err != nil {
			panic(fmt.Errorf("%s.timeout can not be parsed: %w", path, err))
		}
		timeout = t
	}
	return &JobConfig{
		image:   required(m.Image, path+".image"),
		timeout: timeout,
	}
}

type GitopsConfigMarshall struct {
	SourceRepo  string   `yaml:"sourceRepo"`
	TargetRepo  string   `yaml:"targetRepo"`
	RemoteURL   string   `yaml:"remoteUrl"`
	Branch      string   `yaml:"branch,omitempty"`
	ValuesPath  string   `yaml:"valuesPath,omitempty"`
	PullSecrets []string `yaml:"pullSecrets,omitempty"`

	// Token is not read from yaml; main injects it
	// from the process environment before sealing.
	Token string `yaml:"-"`
}

func (m *GitopsConfigMarshall) trySeal(path string) *GitopsConfig {
	return &GitopsConfig{
		sourceRepo:  required(m.SourceRepo, path+".sourceRepo"),
		targetRepo:  required(m.TargetRepo, path+".targetRepo"),
		remoteURL:   required(m.RemoteURL, path+".remoteUrl"),
		branch:      orElse(m.Branch, "main"),
		valuesPath:  orElse(m.ValuesPath, "values.yaml"),
		token:       m.Token,
		pullSecrets: m.PullSecrets,
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}

func orElse[T comparable](v T, fallback T) T {
	if v == *new(T) {
		return fallback
	}
	return v
}

func orElsePtr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
