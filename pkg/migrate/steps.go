package migrate

import (
	"context"

	"github.com/volcutover/volcutover/pkg/errors"
	"github.com/volcutover/volcutover/pkg/manifest"
	"github.com/volcutover/volcutover/pkg/names"
)

// Step is one ordered, named unit of the migration. Destructive steps
// require operator confirmation before their action is issued.
type Step struct {
	Name        string
	Destructive bool
	Run         func(ctx context.Context, o *Orchestrator) error
}

// Step names, in execution order. Exported so an aborted run can be resumed
// at a specific point.
const (
	StepScaleDownHost     = "scale-down-host"
	StepCreateTempVolume  = "create-temp-volume"
	StepDeployMigrator    = "deploy-migrator"
	StepCopyToTemp        = "copy-to-temp"
	StepStopMigrator      = "stop-migrator"
	StepDeleteOriginal    = "delete-original-volume"
	StepCreateNewVolume   = "create-new-volume"
	StepRestartMigrator   = "restart-migrator"
	StepCopyToNew         = "copy-to-new"
	StepStopMigratorAgain = "stop-migrator-again"
	StepScaleUpHost       = "scale-up-host"
	StepDeleteTempVolume  = "delete-temp-volume"
)

// Sequence returns the fixed step order. There is no dynamic reordering: the
// destructive delete of the original volume stays strictly after the
// operator-acknowledged copy off of it. That ordering is the core safety
// invariant of the whole workflow.
func Sequence() []Step {
	return []Step{
		{Name: StepScaleDownHost, Run: scaleDownHost},
		{Name: StepCreateTempVolume, Run: createTempVolume},
		{Name: StepDeployMigrator, Run: deployMigrator},
		{Name: StepCopyToTemp, Run: copyToTemp},
		{Name: StepStopMigrator, Run: stopMigrator},
		{Name: StepDeleteOriginal, Destructive: true, Run: deleteOriginal},
		{Name: StepCreateNewVolume, Run: createNewVolume},
		{Name: StepRestartMigrator, Run: restartMigrator},
		{Name: StepCopyToNew, Run: copyToNew},
		{Name: StepStopMigratorAgain, Run: stopMigrator},
		{Name: StepScaleUpHost, Run: scaleUpHost},
		{Name: StepDeleteTempVolume, Run: deleteTempVolume},
	}
}

// scaleDownHost records the host's replica count for the final restore, then
// stops it. The copy must not start while the host could still be writing.
func scaleDownHost(ctx context.Context, o *Orchestrator) error {
	replicas, err := o.Provisioner.WorkloadReplicas(o.Request.HostWorkload)
	if err != nil {
		return err
	}
	// Recorded unconditionally: a host that was already idle gets restored
	// to zero replicas, not to a default.
	o.State.HostReplicas = replicas

	if err := o.Provisioner.ScaleWorkload(o.Request.HostWorkload, 0); err != nil {
		return err
	}
	if err := o.Provisioner.WaitWorkloadDown(ctx, o.Request.HostWorkload); err != nil {
		return err
	}

	o.State.HostUp = false
	return nil
}

func createTempVolume(ctx context.Context, o *Orchestrator) error {
	params := manifest.VolumeParams{
		Name:         names.TempVolume(o.Request.Volume),
		StorageClass: o.Request.NewClass,
		Size:         o.Request.NewSize,
	}
	if err := o.Provisioner.CreateVolume(params); err != nil {
		return err
	}
	return o.Provisioner.WaitVolumeBound(ctx, params.Name)
}

func deployMigrator(ctx context.Context, o *Orchestrator) error {
	params := manifest.MigratorParams{
		Name:         o.Request.MigratorWorkload,
		Image:        o.Request.MigratorImage,
		DataClaim:    o.Request.Volume,
		ScratchClaim: names.TempVolume(o.Request.Volume),
	}
	if err := o.Provisioner.DeployWorkload(params); err != nil {
		return err
	}
	return startMigrator(ctx, o)
}

func copyToTemp(ctx context.Context, o *Orchestrator) error {
	return copyAndReview(o, manifest.DataMountPath, manifest.ScratchMountPath)
}

func stopMigrator(ctx context.Context, o *Orchestrator) error {
	if err := o.Provisioner.ScaleWorkload(o.Request.MigratorWorkload, 0); err != nil {
		return err
	}
	if err := o.Provisioner.WaitWorkloadDown(ctx, o.Request.MigratorWorkload); err != nil {
		return err
	}

	o.State.MigratorUp = false
	return nil
}

func deleteOriginal(ctx context.Context, o *Orchestrator) error {
	if err := o.Provisioner.DeleteVolume(o.Request.Volume); err != nil {
		return err
	}
	if err := o.Provisioner.WaitVolumeGone(ctx, o.Request.Volume); err != nil {
		return err
	}

	// The claim name no longer resolves to storage; the only copy of the
	// data is now on the temp volume.
	o.State.Binding = BindingTemp
	return nil
}

func createNewVolume(ctx context.Context, o *Orchestrator) error {
	params := manifest.VolumeParams{
		Name:         o.Request.Volume,
		StorageClass: o.Request.NewClass,
		Size:         o.Request.NewSize,
	}
	if err := o.Provisioner.CreateVolume(params); err != nil {
		return err
	}
	return o.Provisioner.WaitVolumeBound(ctx, params.Name)
}

// restartMigrator scales the migrator back up. The deployment spec is
// unchanged -- it references the claims by name, and the recreated claim
// kept its name -- so the pod now mounts the new volume at the data path.
func restartMigrator(ctx context.Context, o *Orchestrator) error {
	return startMigrator(ctx, o)
}

func copyToNew(ctx context.Context, o *Orchestrator) error {
	if err := copyAndReview(o, manifest.ScratchMountPath, manifest.DataMountPath); err != nil {
		return err
	}

	o.State.Binding = BindingNew
	return nil
}

func scaleUpHost(ctx context.Context, o *Orchestrator) error {
	if err := o.Provisioner.ScaleWorkload(o.Request.HostWorkload, o.State.HostReplicas); err != nil {
		return err
	}
	if err := o.Provisioner.WaitWorkloadReady(ctx, o.Request.HostWorkload); err != nil {
		return err
	}

	o.State.HostUp = true
	return nil
}

// deleteTempVolume is deliberately not gated on confirmation even though it
// is irreversible: the temp claim only ever held a transient copy of data
// that has already been copied onto, and acknowledged on, the new volume.
// A failure here does not roll back anything that came before.
func deleteTempVolume(ctx context.Context, o *Orchestrator) error {
	if err := o.Provisioner.DeleteVolume(names.TempVolume(o.Request.Volume)); err != nil {
		return err
	}
	return o.Provisioner.WaitVolumeGone(ctx, names.TempVolume(o.Request.Volume))
}

func startMigrator(ctx context.Context, o *Orchestrator) error {
	if err := o.Provisioner.ScaleWorkload(o.Request.MigratorWorkload, 1); err != nil {
		return err
	}
	if err := o.Provisioner.WaitWorkloadReady(ctx, o.Request.MigratorWorkload); err != nil {
		return err
	}

	o.State.MigratorUp = true
	return nil
}

// copyAndReview runs the agent and then holds for the operator to attest to
// having reviewed the copy log. For the copy off the original volume, this
// attestation is what later authorizes the destructive delete.
func copyAndReview(o *Orchestrator, src, dst string) error {
	pod, err := o.Provisioner.WorkloadPod(o.Request.MigratorWorkload)
	if err != nil {
		return err
	}

	if err := o.Syncer.Copy(pod, src, dst); err != nil {
		return err
	}

	acknowledged, err := o.Confirmer.Confirm(
		"Review the copy log above. Continue?")
	if err != nil {
		return errors.WithContext("confirm", err)
	}
	if !acknowledged {
		return errors.NewCondition(errors.ConditionOperatorDeclined,
			"copy log was not acknowledged")
	}
	return nil
}
