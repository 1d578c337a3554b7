// Package provision wraps the cluster control plane. Each mutation is a
// synchronous request: success means the change was accepted, not that it
// has converged. Convergence is observed separately through the Wait
// methods, which delegate to kubewait.
package provision

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/util/retry"

	"github.com/volcutover/volcutover/pkg/errors"
	"github.com/volcutover/volcutover/pkg/kubewait"
	"github.com/volcutover/volcutover/pkg/manifest"
)

// Client is the provisioning surface the orchestrator drives. Mutations
// return once the control plane accepts them; Wait methods block until the
// asserted state is observed or the bound elapses.
type Client interface {
	CreateVolume(params manifest.VolumeParams) error
	DeleteVolume(name string) error
	ScaleWorkload(name string, replicas int32) error
	WorkloadReplicas(name string) (int32, error)
	DeployWorkload(params manifest.MigratorParams) error
	DeleteWorkload(name string) error

	WaitVolumeBound(ctx context.Context, name string) error
	WaitVolumeGone(ctx context.Context, name string) error
	WaitWorkloadReady(ctx context.Context, name string) error
	WaitWorkloadDown(ctx context.Context, name string) error

	WorkloadPod(name string) (string, error)
}

type clusterClient struct {
	kube      kubernetes.Interface
	namespace string
}

// New returns a Client that provisions against the given namespace.
func New(kube kubernetes.Interface, namespace string) Client {
	return clusterClient{kube, namespace}
}

// CreateVolume creates the claim described by params. Creating a name that
// already exists returns a Conflict without mutating the existing claim.
func (c clusterClient) CreateVolume(params manifest.VolumeParams) error {
	pvc, err := manifest.Volume(c.namespace, params)
	if err != nil {
		return err
	}

	pvcClient := c.kube.CoreV1().PersistentVolumeClaims(c.namespace)
	if _, err := pvcClient.Get(params.Name, metav1.GetOptions{}); err == nil {
		return errors.NewCondition(errors.ConditionConflict,
			"volume %q already exists", params.Name)
	} else if !kerrors.IsNotFound(err) {
		return errors.WithContext("get volume", asCondition(err))
	}

	if _, err := pvcClient.Create(pvc); err != nil {
		return errors.WithContext("create volume", asCondition(err))
	}
	return nil
}

// DeleteVolume deletes the named claim. Deleting an absent claim returns a
// NotFound signal rather than crashing; callers that don't care can match on
// the condition.
func (c clusterClient) DeleteVolume(name string) error {
	err := c.kube.CoreV1().PersistentVolumeClaims(c.namespace).
		Delete(name, &metav1.DeleteOptions{})
	if err != nil {
		return errors.WithContext("delete volume", asCondition(err))
	}
	return nil
}

func (c clusterClient) ScaleWorkload(name string, replicas int32) error {
	deployClient := c.kube.AppsV1().Deployments(c.namespace)
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		curr, err := deployClient.Get(name, metav1.GetOptions{})
		if err != nil {
			return err
		}

		curr.Spec.Replicas = &replicas
		_, err = deployClient.Update(curr)
		return err
	})
	if err != nil {
		return errors.WithContext("scale workload", asCondition(err))
	}
	return nil
}

// WorkloadReplicas returns the workload's desired replica count, so the
// orchestrator can record it before scaling down and restore it afterwards.
func (c clusterClient) WorkloadReplicas(name string) (int32, error) {
	curr, err := c.kube.AppsV1().Deployments(c.namespace).Get(name, metav1.GetOptions{})
	if err != nil {
		return 0, errors.WithContext("get workload", asCondition(err))
	}

	if curr.Spec.Replicas == nil {
		return 1, nil
	}
	return *curr.Spec.Replicas, nil
}

// DeployWorkload creates the migrator Deployment, or updates it in place if
// it already exists from a previous or aborted run.
func (c clusterClient) DeployWorkload(params manifest.MigratorParams) error {
	deployment := manifest.Migrator(c.namespace, params)

	deployClient := c.kube.AppsV1().Deployments(c.namespace)
	curr, err := deployClient.Get(deployment.Name, metav1.GetOptions{})
	if exists := err == nil; exists {
		deployment.ResourceVersion = curr.ResourceVersion
		_, err = deployClient.Update(deployment)
	} else {
		_, err = deployClient.Create(deployment)
	}
	if err != nil {
		return errors.WithContext("deploy workload", asCondition(err))
	}
	return nil
}

// DeleteWorkload removes the migrator Deployment. Deleting an absent
// workload returns NotFound.
func (c clusterClient) DeleteWorkload(name string) error {
	err := c.kube.AppsV1().Deployments(c.namespace).
		Delete(name, &metav1.DeleteOptions{})
	if err != nil {
		return errors.WithContext("delete workload", asCondition(err))
	}
	return nil
}

func (c clusterClient) WaitVolumeBound(ctx context.Context, name string) error {
	pvcClient := c.kube.CoreV1().PersistentVolumeClaims(c.namespace)
	err := kubewait.WaitForObject(ctx,
		func() (interface{}, error) {
			return pvcClient.Get(name, metav1.GetOptions{})
		},
		pvcClient.Watch,
		func(pvcIntf interface{}) bool {
			return pvcIntf.(*corev1.PersistentVolumeClaim).Status.Phase == corev1.ClaimBound
		})
	if err != nil {
		return errors.WithContext("wait for volume to bind", err)
	}
	return nil
}

func (c clusterClient) WaitVolumeGone(ctx context.Context, name string) error {
	pvcClient := c.kube.CoreV1().PersistentVolumeClaims(c.namespace)
	err := kubewait.WaitForDeletion(ctx,
		func() (bool, error) {
			_, err := pvcClient.Get(name, metav1.GetOptions{})
			switch {
			case kerrors.IsNotFound(err):
				return true, nil
			case err != nil:
				return false, asCondition(err)
			}
			return false, nil
		},
		pvcClient.Watch)
	if err != nil {
		return errors.WithContext("wait for volume deletion", err)
	}
	return nil
}

// WaitWorkloadReady blocks until every desired replica of the workload
// reports ready.
func (c clusterClient) WaitWorkloadReady(ctx context.Context, name string) error {
	deployClient := c.kube.AppsV1().Deployments(c.namespace)
	err := kubewait.WaitForObject(ctx,
		func() (interface{}, error) {
			return deployClient.Get(name, metav1.GetOptions{})
		},
		deployClient.Watch,
		func(deploymentIntf interface{}) bool {
			deployment := deploymentIntf.(*appsv1.Deployment)
			if deployment.Spec.Replicas == nil {
				return false
			}
			return deployment.Status.ReadyReplicas == *deployment.Spec.Replicas
		})
	if err != nil {
		return errors.WithContext("wait for workload readiness", err)
	}
	return nil
}

// WaitWorkloadDown blocks until the workload has no pods left, including
// terminating ones. The copy must not start while the previous writer could
// still be flushing to the claim.
func (c clusterClient) WaitWorkloadDown(ctx context.Context, name string) error {
	selector, err := c.workloadSelector(name)
	if err != nil {
		return err
	}

	podClient := c.kube.CoreV1().Pods(c.namespace)
	err = kubewait.WaitForObject(ctx,
		func() (interface{}, error) {
			return podClient.List(metav1.ListOptions{LabelSelector: selector})
		},
		podClient.Watch,
		func(podsIntf interface{}) bool {
			return len(podsIntf.(*corev1.PodList).Items) == 0
		})
	if err != nil {
		return errors.WithContext("wait for workload termination", err)
	}
	return nil
}

// WorkloadPod returns the name of a running, ready pod of the workload.
func (c clusterClient) WorkloadPod(name string) (string, error) {
	selector, err := c.workloadSelector(name)
	if err != nil {
		return "", err
	}

	pods, err := c.kube.CoreV1().Pods(c.namespace).
		List(metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return "", errors.WithContext("list pods", asCondition(err))
	}

	for _, pod := range pods.Items {
		if pod.Status.Phase != corev1.PodRunning {
			continue
		}
		for _, cond := range pod.Status.Conditions {
			if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
				return pod.Name, nil
			}
		}
	}
	return "", errors.NewCondition(errors.ConditionNotFound,
		"no ready pod for workload %q", name)
}

func (c clusterClient) workloadSelector(name string) (string, error) {
	deployment, err := c.kube.AppsV1().Deployments(c.namespace).
		Get(name, metav1.GetOptions{})
	if err != nil {
		return "", errors.WithContext("get workload", asCondition(err))
	}

	selector, err := metav1.LabelSelectorAsSelector(deployment.Spec.Selector)
	if err != nil {
		return "", errors.WithContext("parse workload selector", err)
	}
	return selector.String(), nil
}
