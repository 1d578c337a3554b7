// Package manifest builds the Kubernetes objects that a migration
// provisions. Manifests are constructed as typed structs rather than by
// rewriting template files, so every field is validated by the compiler and
// there is no temporary-file-and-rename step.
package manifest

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/volcutover/volcutover/pkg/errors"
)

const (
	// ManagedLabel marks every object this tool creates.
	ManagedLabel = "volcutover.io/managed"

	// WorkloadLabel associates a pod with its workload name. Used as the
	// selector for readiness and termination checks.
	WorkloadLabel = "volcutover.io/workload"

	// DataMountPath is where the migrator mounts the claim being migrated.
	DataMountPath = "/mnt/data"

	// ScratchMountPath is where the migrator mounts the temp claim.
	ScratchMountPath = "/mnt/scratch"
)

// VolumeParams describes a claim to provision.
type VolumeParams struct {
	Name         string
	StorageClass string
	Size         string
}

// Volume builds a PersistentVolumeClaim for the given parameters. The access
// mode is fixed to ReadWriteOnce: the migration design assumes single-writer
// semantics, with the host workload fully stopped during the copy.
func Volume(namespace string, params VolumeParams) (*corev1.PersistentVolumeClaim, error) {
	quantity, err := resource.ParseQuantity(params.Size)
	if err != nil {
		return nil, errors.WithContext("parse volume size", err)
	}

	persistentFs := corev1.PersistentVolumeFilesystem
	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: namespace,
			Name:      params.Name,
			Labels: map[string]string{
				ManagedLabel: "true",
			},
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{
				corev1.ReadWriteOnce,
			},
			Resources: corev1.ResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: quantity,
				},
			},
			VolumeMode: &persistentFs,
		},
	}

	if params.StorageClass != "" {
		pvc.Spec.StorageClassName = &params.StorageClass
	}
	return pvc, nil
}

// MigratorParams describes the helper workload that mounts both claims to
// perform the copy.
type MigratorParams struct {
	Name  string
	Image string

	// DataClaim is the claim whose name is preserved end-to-end. It backs
	// the original volume before the cutover and the new volume after.
	DataClaim string

	// ScratchClaim is the temp claim that holds the data during the cutover.
	ScratchClaim string
}

// Migrator builds the migrator Deployment. It is created with zero replicas:
// the orchestrator scales it up only for the copy phases. The container
// idles so the copy agent can be exec'd on demand.
func Migrator(namespace string, params MigratorParams) *appsv1.Deployment {
	replicas := int32(0)
	labels := map[string]string{
		ManagedLabel:  "true",
		WorkloadLabel: params.Name,
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: namespace,
			Name:      params.Name,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{
					WorkloadLabel: params.Name,
				},
			},
			// Recreate keeps two migrator pods from ever mounting the
			// ReadWriteOnce claims at the same time.
			Strategy: appsv1.DeploymentStrategy{
				Type: appsv1.RecreateDeploymentStrategyType,
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: labels,
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:    "migrator",
						Image:   params.Image,
						Command: []string{"sleep", "infinity"},
						VolumeMounts: []corev1.VolumeMount{
							{
								Name:      "data",
								MountPath: DataMountPath,
							},
							{
								Name:      "scratch",
								MountPath: ScratchMountPath,
							},
						},
						Resources: corev1.ResourceRequirements{
							Requests: corev1.ResourceList{
								"cpu":    resource.MustParse("100m"),
								"memory": resource.MustParse("64Mi"),
							},
						},
					}},
					Volumes: []corev1.Volume{
						{
							Name: "data",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: params.DataClaim,
								},
							},
						},
						{
							Name: "scratch",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: params.ScratchClaim,
								},
							},
						},
					},
					RestartPolicy: corev1.RestartPolicyAlways,
				},
			},
		},
	}
}
