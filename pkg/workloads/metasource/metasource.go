package metasource

import (
	"fmt"

	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type SpecBuilder[C any, D any] interface {
	// Build k8s resource descriptor(s)
	Build(conf C) D
}

// deployctl workload metadata which is placed in the k8s cluster.
//
// ToLabels converts MetaSource to k8s labels.
type MetaSource interface {
	// The name of application/resource.
	//
	// If there are many resources running a same app, they may have same `Name()`.
	//
	// For `ObjectMeta.Name`, USE `Instance()`, NOT THIS.
	//
	// This is set as a value of k8s label "app.kubernetes.io/name".
	Name() string

	// This is set as a value of k8s label "app.kubernetes.io/instance"
	// AND ALSO `ObjectMeta.Name`.
	//
	// This identifies an instance from others sharing Name() and Component().
	Instance() string

	// Where is this positioned in the deployment pipeline.
	//
	// example: credential-probe, migration, seed, ...
	//
	// This is set as a value of k8s label "app.kubernetes.io/component".
	Component() string

	// Identifier of the deployment attempt this workload belongs to.
	Id() string

	// type of "Id()"
	//
	// example: commit_id, attempt_id, ...
	IdType() string

	// convert to ObjectMeta
	ObjectMeta(namespace string) kubeapimeta.ObjectMeta
}

type ResourceBuilder[C any, D any] interface {
	MetaSource
	SpecBuilder[C, D]
}

// ToLabels converts a MetaSource to k8s labels, including "recommended labels".
//
// https://kubernetes.io/docs/concepts/overview/working-with-objects/common-labels/
//
// deployctl specific labels are prefixed with "deployctl/":
//
// - "deployctl/${s.Name()}.${s.IdType()}" : s.Id()
func ToLabels(s MetaSource) map[string]string {
	prefix := fmt.Sprintf("deployctl/%s.", s.Name())

	return map[string]string{
		"app.kubernetes.io/name":       s.Name(),
		"app.kubernetes.io/instance":   s.Instance(),
		"app.kubernetes.io/component":  s.Component(),
		"app.kubernetes.io/part-of":    "bengobox-erp",
		"app.kubernetes.io/managed-by": "deployctl",

		prefix + s.IdType(): s.Id(),
	}
}

// ToObjectMeta is the default (and reference) implementation of MetaSource.ObjectMeta.
func ToObjectMeta(m MetaSource, namespace string) kubeapimeta.ObjectMeta {
	return kubeapimeta.ObjectMeta{
		Name:      m.Instance(),
		Namespace: namespace,
		Labels:    ToLabels(m),
	}
}
