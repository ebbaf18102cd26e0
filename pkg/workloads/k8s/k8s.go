package k8s

import (
	"context"
	"errors"
	"io"
	"time"

	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"

	wl "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/retry"
)

// subset of k8s.Clientset
type K8sClient interface {
	GetJob(ctx context.Context, namespace string, name string) (*kubebatch.Job, error)
	CreateJob(ctx context.Context, namespace string, spec *kubebatch.Job) (*kubebatch.Job, error)
	DeleteJob(ctx context.Context, namespace string, name string) error

	CreatePod(ctx context.Context, namespace string, spec *kubecore.Pod) (*kubecore.Pod, error)
	GetPod(ctx context.Context, namespace string, name string) (*kubecore.Pod, error)
	DeletePod(ctx context.Context, namespace string, name string) error
	FindPods(ctx context.Context, namespace string, labelSelector LabelSelector) ([]kubecore.Pod, error)

	GetSecret(ctx context.Context, namespace string, name string) (*kubecore.Secret, error)
	CreateSecret(ctx context.Context, namespace string, spec *kubecore.Secret) (*kubecore.Secret, error)
	DeleteSecret(ctx context.Context, namespace string, name string) error

	Log(ctx context.Context, namespace string, podname string, container string) (io.ReadCloser, error)
}

// A wrapper for the type k8s.Clientset; because it does not prefer method chain-style invocations of that type.
type k8sClient struct {
	client *k8s.Clientset
}

// type check: k8sClient implements K8sClient
var _ K8sClient = &k8sClient{}

func (k *k8sClient) CreateJob(ctx context.Context, namespace string, job *kubebatch.Job) (*kubebatch.Job, error) {
	return k.client.BatchV1().Jobs(namespace).Create(ctx, job, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) GetJob(ctx context.Context, namespace string, name string) (*kubebatch.Job, error) {
	return k.client.BatchV1().Jobs(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) DeleteJob(ctx context.Context, namespace string, name string) error {
	foreground := kubeapimeta.DeletePropagationForeground
	zero := int64(0)
	return k.client.BatchV1().Jobs(namespace).Delete(ctx, name, kubeapimeta.DeleteOptions{
		GracePeriodSeconds: &zero,
		PropagationPolicy:  &foreground,
	})
}

func (k *k8sClient) CreatePod(ctx context.Context, namespace string, pod *kubecore.Pod) (*kubecore.Pod, error) {
	return k.client.CoreV1().Pods(namespace).Create(ctx, pod, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) GetPod(ctx context.Context, namespace string, name string) (*kubecore.Pod, error) {
	return k.client.CoreV1().Pods(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) DeletePod(ctx context.Context, namespace string, podname string) error {
	return k.client.CoreV1().Pods(namespace).Delete(ctx, podname, *kubeapimeta.NewDeleteOptions(0))
}

func (k *k8sClient) FindPods(ctx context.Context, namespace string, labels LabelSelector) ([]kubecore.Pod, error) {
	resp, err := k.client.CoreV1().Pods(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labels.QueryString(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) GetSecret(ctx context.Context, namespace string, name string) (*kubecore.Secret, error) {
	return k.client.CoreV1().Secrets(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateSecret(ctx context.Context, namespace string, spec *kubecore.Secret) (*kubecore.Secret, error) {
	return k.client.CoreV1().Secrets(namespace).Create(ctx, spec, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) DeleteSecret(ctx context.Context, namespace string, name string) error {
	return k.client.CoreV1().Secrets(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *k8sClient) Log(ctx context.Context, namespace string, podname string, container string) (io.ReadCloser, error) {
	return k.client.
		CoreV1().
		Pods(namespace).
		GetLogs(podname, &kubecore.PodLogOptions{Container: container, Follow: false}).
		Stream(ctx)
}

func WrapK8sClient(c *k8s.Clientset) K8sClient {
	return &k8sClient{client: c}
}

type JobStatus string

const (
	// no pods have been started.
	Pending JobStatus = "Pending"

	// at least one pod has started, and the job has not completed.
	Running JobStatus = "Running"

	// the job is succeeded.
	Succeeded JobStatus = "Succeeded"

	// the job is failed.
	Failed JobStatus = "Failed"
)

// abstraction of k8s job.
type Job interface {
	// the name of the job
	Name() string

	// the namespace where the job is placed in
	Namespace() string

	// how does the job progress, at least
	//
	// This value is just a SNAPSHOT of the job when you get the instance.
	// To refresh, you should get a new instance of `Job` with `Cluster.GetJob`.
	Status() JobStatus

	// ExitCode returns the exit code of the named container of the job.
	//
	// # Return
	//
	// - exitCode : the exit code of the container.
	//
	// - reason: the reason of the termination.
	//
	// - ok : true if the job has been stopped, false otherwise.
	ExitCode(container string) (uint8, string, bool)

	// Log gets the log stream of the job's container.
	Log(ctx context.Context, containerName string) (io.ReadCloser, error)

	// destroy the job. If the job is running or pending, it can be aborted.
	Close() error
}

type job struct {
	job    *kubebatch.Job
	pods   []kubecore.Pod
	client K8sClient
	close  func() error
}

var _ Job = &job{}

func (j *job) Name() string {
	return j.job.Name
}

func (j *job) Namespace() string {
	return j.job.Namespace
}

func (j *job) Status() JobStatus {
	for _, sc := range j.job.Status.Conditions {
		if sc.Status != "True" {
			continue
		}
		switch sc.Type {
		case kubebatch.JobComplete:
			return Succeeded
		case kubebatch.JobFailed:
			return Failed
		}
	}

	for _, p := range j.pods {
		// if at least one pod has been run, the job has been run.
		switch p.Status.Phase {
		case kubecore.PodRunning, kubecore.PodSucceeded, kubecore.PodFailed:
			return Running
		}
	}

	return Pending
}

func (j *job) Log(ctx context.Context, containerName string) (io.ReadCloser, error) {
	if len(j.pods) == 0 {
		return nil, errors.New("no pods")
	}
	pod := j.pods[0]
	return j.client.Log(ctx, pod.Namespace, pod.Name, containerName)
}

func (j *job) ExitCode(container string) (uint8, string, bool) {
	for _, p := range j.pods {
		for _, c := range p.Status.ContainerStatuses {
			if c.Name != container {
				continue
			}
			if term := c.State.Terminated; term != nil {
				return uint8(term.ExitCode), term.Reason, true
			}
			break
		}
	}
	return 0, "", false
}

func (j *job) Close() error {
	if j.close == nil {
		return nil
	}
	return j.close()
}

// Requirement is a function that checks if a k8s resource satisfies the requirement.
//
// # Return
//
// - error: When the value satisfies the requirement, return nil.
// If it is waiting to satisfy the requirement, return `retry.ErrRetry`.
// Otherwise, return error.
type Requirement[T any] func(value T) error

// WithCheckpoint wraps requirement with a deadline.
//
// Once the requirement has been satisfied, the deadline is no longer checked.
func WithCheckpoint[T any](requirement Requirement[T], deadline time.Time) Requirement[T] {
	satisfied := false
	return func(value T) error {
		if satisfied {
			return nil
		}
		if time.Now().After(deadline) {
			return wl.ErrDeadlineExceeded
		}

		err := requirement(value)
		if err != nil {
			return err
		}

		satisfied = true
		return nil
	}
}

func satisfyAll[T any](value T, req []Requirement[T]) error {
	for _, r := range req {
		if err := r(value); err != nil {
			return err
		}
	}
	return nil
}

type Cluster interface {
	Namespace() string
	Domain() string

	// Create new k8s job.
	//
	// # Args
	//
	// - ctx context.Context
	//
	// - backoff retry.Backoff: backoff policy to wait for the Job to satisfy requirements.
	//
	// - *kubebatch.Job: job specification
	//
	// - requirements ...Requirement[*kubebatch.Job]: requirements for the Job.
	// If not given, JobHasBeenCreated is used as default.
	//
	// # Return
	//
	// - retry.Promise[Job]: resolved when the Job is created & satisfies requirements.
	//
	// The Promise may have Error below:
	//
	// - workloads.ErrConflict: Job is already created.
	//
	// - workloads.ErrMissing: Job is missing after created until it meets requirements.
	//
	// - other errors come from Requirements and context.Context
	//
	// Whether or not the Promise has Error, the Job can be created.
	// So, you may need to Close() it.
	NewJob(context.Context, retry.Backoff, *kubebatch.Job, ...Requirement[*kubebatch.Job]) retry.Promise[Job]

	// Get existing k8s job. Same contract as NewJob, but it does not create.
	//
	// The Promise may have workloads.ErrMissing when the Job is not found.
	GetJob(context.Context, retry.Backoff, string, ...Requirement[*kubebatch.Job]) retry.Promise[Job]

	// GetSecret reads an existing Secret.
	//
	// When the Secret does not exist, it returns workloads.ErrMissing.
	GetSecret(ctx context.Context, name string) (*kubecore.Secret, error)

	// ReplaceSecret deletes the Secret at spec's name (if any), then creates spec.
	//
	// This is a full replace: keys absent from spec never survive.
	ReplaceSecret(ctx context.Context, spec *kubecore.Secret) (*kubecore.Secret, error)
}

type k8sCluster struct {
	client    K8sClient
	namespace string
	domain    string
}

// type check: k8sCluster implements Cluster
var _ Cluster = &k8sCluster{}

// Attach kubernetes cluster.
//
// args:
//   - client: k8s clientset
//   - namespace: k8s namespace
//   - domain: k8s-internal domain name. If empty string is passed, it uses `"cluster.local"` as default.
func AttachCluster(client K8sClient, namespace string, domain string) Cluster {
	if domain == "" {
		domain = "cluster.local"
	}
	return &k8sCluster{client: client, namespace: namespace, domain: domain}
}

func (c *k8sCluster) Namespace() string {
	return c.namespace
}

func (c *k8sCluster) Domain() string {
	return c.domain
}

var JobHasBeenCreated Requirement[*kubebatch.Job] = func(value *kubebatch.Job) error {
	return nil
}

// JobHasFinished requires the Job to be complete or failed, either way.
var JobHasFinished Requirement[*kubebatch.Job] = func(value *kubebatch.Job) error {
	for _, sc := range value.Status.Conditions {
		if sc.Status != "True" {
			continue
		}
		switch sc.Type {
		case kubebatch.JobComplete, kubebatch.JobFailed:
			return nil
		}
	}
	return retry.ErrRetry
}

func (c *k8sCluster) NewJob(
	ctx context.Context, p retry.Backoff, j *kubebatch.Job,
	requirements ...Requirement[*kubebatch.Job],
) retry.Promise[Job] {
	if len(requirements) == 0 {
		requirements = []Requirement[*kubebatch.Job]{JobHasBeenCreated}
	}

	select {
	case <-ctx.Done():
		return retry.Failed[Job](ctx.Err())
	default:
	}
	_job, err := c.client.CreateJob(ctx, c.namespace, j)
	if err != nil {
		if kubeerr.IsAlreadyExists(err) {
			return retry.Failed[Job](wl.NewConflictCausedBy("", err))
		}
		return retry.Failed[Job](err)
	}
	_close := func() error {
		return c.client.DeleteJob(
			context.Background(), c.namespace, _job.ObjectMeta.Name,
		)
	}

	if err := satisfyAll(_job, requirements); err == nil {
		pods, err := c.client.FindPods(
			ctx, c.namespace,
			LabelsToSelector(_job.Spec.Selector.MatchLabels),
		)
		if err != nil {
			pods = []kubecore.Pod{}
		}
		return retry.Ok[Job](&job{job: _job, pods: pods, client: c.client, close: _close})
	} else if !errors.Is(err, retry.ErrRetry) {
		return retry.Failed[Job](err)
	}

	return c.GetJob(ctx, p, _job.ObjectMeta.Name, requirements...)
}

func (c *k8sCluster) GetJob(
	ctx context.Context, p retry.Backoff, name string,
	requirements ...Requirement[*kubebatch.Job],
) retry.Promise[Job] {
	if len(requirements) == 0 {
		requirements = []Requirement[*kubebatch.Job]{JobHasBeenCreated}
	}
	_close := func() error {
		return c.client.DeleteJob(context.Background(), c.namespace, name)
	}

	return retry.Go(ctx, p, func() (Job, error) {
		_job, err := c.client.GetJob(ctx, c.namespace, name)
		ret := &job{
			job: _job, close: _close, client: c.client,
		}

		if err != nil {
			if kubeerr.IsNotFound(err) {
				return ret, wl.NewMissingCausedBy("", err)
			}
			return ret, err
		}

		if err := satisfyAll(_job, requirements); err != nil {
			return ret, err
		}

		pods, err := c.client.FindPods(
			ctx, c.namespace,
			LabelsToSelector(_job.Spec.Selector.MatchLabels),
		)
		if err == nil {
			ret.pods = pods
		}
		return ret, nil
	})
}

func (c *k8sCluster) GetSecret(ctx context.Context, name string) (*kubecore.Secret, error) {
	secret, err := c.client.GetSecret(ctx, c.namespace, name)
	if err != nil {
		if kubeerr.IsNotFound(err) {
			return nil, wl.NewMissingCausedBy(name, err)
		}
		return nil, err
	}
	return secret, nil
}

func (c *k8sCluster) ReplaceSecret(ctx context.Context, spec *kubecore.Secret) (*kubecore.Secret, error) {
	if err := c.client.DeleteSecret(ctx, c.namespace, spec.ObjectMeta.Name); err != nil {
		if !kubeerr.IsNotFound(err) {
			return nil, err
		}
	}
	return c.client.CreateSecret(ctx, c.namespace, spec)
}
