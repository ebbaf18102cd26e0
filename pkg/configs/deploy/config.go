package deploy

import (
	"fmt"
	"time"
)

// Configuration for a deployment run.
//
// to get a `DeployConfig` instance, use `TrySeal()` on a DeployConfigMarshall.
type DeployConfig struct {
	cluster  *ClusterConfig
	app      *AppConfig
	database *DatabaseConfig
	redis    *RedisConfig
	jobs     *JobsConfig
	gitops   *GitopsConfig
}

// k8s coordinates where the application is deployed.
func (c *DeployConfig) Cluster() *ClusterConfig {
	return c.cluster
}

// Application identity and web-framework settings.
func (c *DeployConfig) App() *AppConfig {
	return c.app
}

// Primary database coordinates and credential sources.
func (c *DeployConfig) Database() *DatabaseConfig {
	return c.database
}

// Cache/broker coordinates.
func (c *DeployConfig) Redis() *RedisConfig {
	return c.redis
}

// Cluster-scheduled job settings (probe, migration, seed).
func (c *DeployConfig) Jobs() *JobsConfig {
	return c.jobs
}

// Cross-repository Helm value propagation settings.
func (c *DeployConfig) Gitops() *GitopsConfig {
	return c.gitops
}

type ClusterConfig struct {
	namespace string
	domain    string
}

// k8s namespace where the application is deployed.
func (c *ClusterConfig) Namespace() string {
	return c.namespace
}

// k8s internal domain. default = "cluster.local"
func (c *ClusterConfig) Domain() string {
	return c.domain
}

// ServiceHost templates the in-cluster DNS name of a Service.
func (c *ClusterConfig) ServiceHost(service string) string {
	return fmt.Sprintf("%s.%s.svc.%s", service, c.namespace, c.domain)
}

type AppConfig struct {
	name           string
	secretName     string
	secretKey      string
	settingsModule string
	allowedHosts   []string
	corsOrigins    []string
	trustedOrigins []string
	staticURL      string
	staticRoot     string
	mediaURL       string
	mediaRoot      string
}

// The application name. Used for job names and the Helm commit message.
func (a *AppConfig) Name() string {
	return a.name
}

// Name of the environment secret owned by this tool.
func (a *AppConfig) SecretName() string {
	return a.secretName
}

// The application signing key, as stored into the environment bundle.
func (a *AppConfig) SecretKey() string {
	return a.secretKey
}

// Settings-module identifier (e.g. "config.settings.production").
func (a *AppConfig) SettingsModule() string {
	return a.settingsModule
}

// Allow-listed hostnames: literal domains plus wildcard patterns
// for private network ranges.
func (a *AppConfig) AllowedHosts() []string {
	return a.allowedHosts
}

// Cross-origin allow-list.
func (a *AppConfig) CorsOrigins() []string {
	return a.corsOrigins
}

// Trusted-origin list for cross-site request checks.
func (a *AppConfig) TrustedOrigins() []string {
	return a.trustedOrigins
}

func (a *AppConfig) StaticURL() string {
	return a.staticURL
}

func (a *AppConfig) StaticRoot() string {
	return a.staticRoot
}

func (a *AppConfig) MediaURL() string {
	return a.mediaURL
}

func (a *AppConfig) MediaRoot() string {
	return a.mediaRoot
}

type DatabaseConfig struct {
	service          string
	port             int32
	name             string
	appUser          string
	adminUser        string
	adminSecretName  string
	adminSecretKey   string
	overridePassword string
	coreTables       []string
	verifyTables     []string
	seedSentinel     string
}

// Service name of the database inside the cluster.
func (d *DatabaseConfig) Service() string {
	return d.service
}

func (d *DatabaseConfig) Port() int32 {
	return d.port
}

// Database name.
func (d *DatabaseConfig) Name() string {
	return d.name
}

// The application role used at runtime.
func (d *DatabaseConfig) AppUser() string {
	return d.appUser
}

// The administrative fallback role.
func (d *DatabaseConfig) AdminUser() string {
	return d.adminUser
}

// Name of the cluster-managed secret holding the admin password.
func (d *DatabaseConfig) AdminSecretName() string {
	return d.adminSecretName
}

// Key of the admin password within AdminSecretName.
func (d *DatabaseConfig) AdminSecretKey() string {
	return d.adminSecretKey
}

// Explicit password override. Empty means "no override".
//
// This is the only place where an ambient environment value enters
// the configuration; it is injected by main, never read by components.
func (d *DatabaseConfig) OverridePassword() string {
	return d.overridePassword
}

// Tables whose presence marks a database as having been through
// at least one successful migration cycle.
func (d *DatabaseConfig) CoreTables() []string {
	return d.coreTables
}

// Tables expected to exist after a successful migration.
func (d *DatabaseConfig) VerifyTables() []string {
	return d.verifyTables
}

// Table whose row count gates the seeding step.
func (d *DatabaseConfig) SeedSentinel() string {
	return d.seedSentinel
}

type RedisConfig struct {
	service  string
	port     int32
	password string
	brokerDB int
	resultDB int
	cacheDB  int
}

// Service name of redis inside the cluster.
func (r *RedisConfig) Service() string {
	return r.service
}

func (r *RedisConfig) Port() int32 {
	return r.port
}

// Redis password. Empty means unauthenticated.
func (r *RedisConfig) Password() string {
	return r.password
}

// Logical database for the task broker.
func (r *RedisConfig) BrokerDB() int {
	return r.brokerDB
}

// Logical database for task results.
func (r *RedisConfig) ResultDB() int {
	return r.resultDB
}

// Logical database for the application cache.
func (r *RedisConfig) CacheDB() int {
	return r.cacheDB
}

type JobsConfig struct {
	probe     *JobConfig
	migration *JobConfig
	seed      *JobConfig
}

// Probe job: disposable single-shot authentication check.
func (j *JobsConfig) Probe() *JobConfig {
	return j.probe
}

// Migration job: applies the application schema.
func (j *JobsConfig) Migration() *JobConfig {
	return j.migration
}

// Seed job: loads initial data into an empty database.
func (j *JobsConfig) Seed() *JobConfig {
	return j.seed
}

type JobConfig struct {
	image   string
	timeout time.Duration
}

// Which image runs the job.
func (j *JobConfig) Image() string {
	return j.image
}

// Wait budget for the job, scheduling latency included.
func (j *JobConfig) Timeout() time.Duration {
	return j.timeout
}

type GitopsConfig struct {
	sourceRepo  string
	targetRepo  string
	remoteURL   string
	branch      string
	valuesPath  string
	token       string
	pullSecrets []string
}

// The repository this deployment was built from (e.g. "org/erp-api").
func (g *GitopsConfig) SourceRepo() string {
	return g.sourceRepo
}

// The repository holding the Helm value file (e.g. "org/devops-k8s").
func (g *GitopsConfig) TargetRepo() string {
	return g.targetRepo
}

// Clone URL of TargetRepo.
func (g *GitopsConfig) RemoteURL() string {
	return g.remoteURL
}

func (g *GitopsConfig) Branch() string {
	return g.branch
}

// Path of the value file within TargetRepo.
func (g *GitopsConfig) ValuesPath() string {
	return g.valuesPath
}

// Privileged cross-repository credential. Injected by main; empty
// means "not authorized" and blocks cross-repo propagation.
func (g *GitopsConfig) Token() string {
	return g.token
}

// Image pull secrets to record in the value file, if any.
func (g *GitopsConfig) PullSecrets() []string {
	return g.pullSecrets
}

// CrossRepo is true when the value file lives outside the source repository.
func (g *GitopsConfig) CrossRepo() bool {
	return g.targetRepo != "" && g.targetRepo != g.sourceRepo
}
