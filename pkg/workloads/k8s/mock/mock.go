package mock

import (
	"context"
	"errors"
	"io"

	k8s "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/workloads/k8s"
	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func notFound(name string) error {
	return kubeerr.NewNotFound(schema.GroupResource{Resource: "secrets"}, name)
}

func alreadyExists(name string) error {
	return kubeerr.NewAlreadyExists(schema.GroupResource{Resource: "secrets"}, name)
}

// get mocked k8s.Cluster
//
// # returns
//
//   - k8s.Cluster : using *MockClient as base client
//   - *MockClient : mock object.
//     you can fake k8s behaviours or spy its usage.
func NewCluster() (k8s.Cluster, *MockClient) {
	clientset := NewMockClient()

	namespace := "fake-namespace"
	domain := "fake.local"

	return k8s.AttachCluster(clientset, namespace, domain), clientset
}

type MockClient struct {
	Impl struct {
		GetJob    func(ctx context.Context, namespace string, name string) (*kubebatch.Job, error)
		CreateJob func(ctx context.Context, namespace string, job *kubebatch.Job) (*kubebatch.Job, error)
		DeleteJob func(ctx context.Context, namespace string, name string) error

		CreatePod func(ctx context.Context, namespace string, pod *kubecore.Pod) (*kubecore.Pod, error)
		GetPod    func(ctx context.Context, namespace string, name string) (*kubecore.Pod, error)
		DeletePod func(ctx context.Context, namespace string, name string) error
		FindPods  func(ctx context.Context, namespace string, ls k8s.LabelSelector) ([]kubecore.Pod, error)

		GetSecret    func(ctx context.Context, namespace string, name string) (*kubecore.Secret, error)
		CreateSecret func(ctx context.Context, namespace string, spec *kubecore.Secret) (*kubecore.Secret, error)
		DeleteSecret func(ctx context.Context, namespace string, name string) error

		Log func(ctx context.Context, namespace string, pod string, container string) (io.ReadCloser, error)
	}
	Called struct {
		GetJob    uint64
		CreateJob uint64
		DeleteJob uint64

		CreatePod uint64
		GetPod    uint64
		DeletePod uint64
		FindPods  uint64

		GetSecret    uint64
		CreateSecret uint64
		DeleteSecret uint64

		Log uint64
	}
}

// MockClient implements k8s.K8sClient
var _ k8s.K8sClient = &MockClient{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) GetJob(ctx context.Context, namespace string, name string) (*kubebatch.Job, error) {
	m.Called.GetJob += 1
	if m.Impl.GetJob == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetJob(ctx, namespace, name)
}
func (m *MockClient) CreateJob(ctx context.Context, namespace string, job *kubebatch.Job) (*kubebatch.Job, error) {
	m.Called.CreateJob += 1
	if m.Impl.CreateJob == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CreateJob(ctx, namespace, job)
}
func (m *MockClient) DeleteJob(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteJob += 1
	if m.Impl.DeleteJob == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeleteJob(ctx, namespace, name)
}
func (m *MockClient) CreatePod(ctx context.Context, namespace string, pod *kubecore.Pod) (*kubecore.Pod, error) {
	m.Called.CreatePod += 1
	if m.Impl.CreatePod == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CreatePod(ctx, namespace, pod)
}
func (m *MockClient) GetPod(ctx context.Context, namespace string, name string) (*kubecore.Pod, error) {
	m.Called.GetPod += 1
	if m.Impl.GetPod == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetPod(ctx, namespace, name)
}
func (m *MockClient) DeletePod(ctx context.Context, namespace string, name string) error {
	m.Called.DeletePod += 1
	if m.Impl.DeletePod == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeletePod(ctx, namespace, name)
}
func (m *MockClient) FindPods(ctx context.Context, namespace string, ls k8s.LabelSelector) ([]kubecore.Pod, error) {
	m.Called.FindPods += 1
	if m.Impl.FindPods == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.FindPods(ctx, namespace, ls)
}
func (m *MockClient) GetSecret(ctx context.Context, namespace string, name string) (*kubecore.Secret, error) {
	m.Called.GetSecret += 1
	if m.Impl.GetSecret == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetSecret(ctx, namespace, name)
}
func (m *MockClient) CreateSecret(ctx context.Context, namespace string, spec *kubecore.Secret) (*kubecore.Secret, error) {
	m.Called.CreateSecret += 1
	if m.Impl.CreateSecret == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CreateSecret(ctx, namespace, spec)
}
func (m *MockClient) DeleteSecret(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteSecret += 1
	if m.Impl.DeleteSecret == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeleteSecret(ctx, namespace, name)
}
func (m *MockClient) Log(ctx context.Context, namespace string, pod string, container string) (io.ReadCloser, error) {
	m.Called.Log += 1
	if m.Impl.Log == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Log(ctx, namespace, pod, container)
}

// InMemorySecrets installs Get/Create/DeleteSecret Impls backed by a map.
//
// The returned map reflects the store; mutate it to seed fixtures.
func (m *MockClient) InMemorySecrets() map[string]*kubecore.Secret {
	store := map[string]*kubecore.Secret{}

	m.Impl.GetSecret = func(ctx context.Context, namespace string, name string) (*kubecore.Secret, error) {
		if s, ok := store[name]; ok {
			return s, nil
		}
		return nil, notFound(name)
	}
	m.Impl.CreateSecret = func(ctx context.Context, namespace string, spec *kubecore.Secret) (*kubecore.Secret, error) {
		if _, ok := store[spec.ObjectMeta.Name]; ok {
			return nil, alreadyExists(spec.ObjectMeta.Name)
		}
		store[spec.ObjectMeta.Name] = spec
		return spec, nil
	}
	m.Impl.DeleteSecret = func(ctx context.Context, namespace string, name string) error {
		if _, ok := store[name]; !ok {
			return notFound(name)
		}
		delete(store, name)
		return nil
	}

	return store
}
