// Package migrate drives the checkpointed migration workflow: a fixed,
// ordered sequence of steps that de-provisions, provisions, and copies data
// against the cluster, gating destructive actions behind operator
// confirmation and every mutation behind a convergence check.
package migrate

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/volcutover/volcutover/pkg/errors"
	"github.com/volcutover/volcutover/pkg/manifest"
)

// Provisioner is the subset of the provisioning client the steps drive.
// Mutations return once accepted by the control plane; Wait methods block
// until the asserted state is observed or a bounded timeout elapses.
type Provisioner interface {
	CreateVolume(params manifest.VolumeParams) error
	DeleteVolume(name string) error
	ScaleWorkload(name string, replicas int32) error
	WorkloadReplicas(name string) (int32, error)
	DeployWorkload(params manifest.MigratorParams) error

	WaitVolumeBound(ctx context.Context, name string) error
	WaitVolumeGone(ctx context.Context, name string) error
	WaitWorkloadReady(ctx context.Context, name string) error
	WaitWorkloadDown(ctx context.Context, name string) error

	WorkloadPod(name string) (string, error)
}

// Syncer triggers the copy agent in the migrator pod.
type Syncer interface {
	Copy(pod, src, dst string) error
}

// Confirmer is the operator's confirmation gate. A real implementation
// prompts interactively; tests and --yes runs auto-confirm.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// Orchestrator executes the migration sequence for one validated Request.
// Exactly one Request runs at a time; steps execute strictly in order, and
// no step begins before the previous step's postcondition has converged.
type Orchestrator struct {
	Provisioner Provisioner
	Syncer      Syncer
	Confirmer   Confirmer
	Request     Request
	State       *RunState
}

// Run executes the full sequence from the first step.
func (o *Orchestrator) Run(ctx context.Context) error {
	return o.RunFrom(ctx, "")
}

// RunFrom executes the sequence starting at the named step, recording the
// earlier steps as completed without executing them. It is how an operator
// resumes an aborted run after diagnosing the cluster; the steps before the
// resume point are assumed to have converged in the previous run.
func (o *Orchestrator) RunFrom(ctx context.Context, fromStep string) error {
	if err := o.Request.Validate(); err != nil {
		return err
	}
	if o.State == nil {
		o.State = NewRunState()
	}

	steps := Sequence()
	start := 0
	if fromStep != "" {
		idx := -1
		for i, step := range steps {
			if step.Name == fromStep {
				idx = i
				break
			}
		}
		if idx < 0 {
			return errors.NewCondition(errors.ConditionValidation,
				"unknown step %q", fromStep)
		}

		for _, step := range steps[:idx] {
			o.State.Completed = append(o.State.Completed, step.Name)
		}
		start = idx
	}

	for _, step := range steps[start:] {
		// A cancellation between steps (operator interrupt) must halt the
		// sequence before the next action is issued, even if the previous
		// step's wait happened to succeed after the cancel.
		if ctx.Err() != nil {
			return o.abort(step, errors.NewCondition(errors.ConditionInterrupted,
				"run cancelled before step %q; no further actions were issued",
				step.Name))
		}

		logger := log.WithField("step", step.Name)
		logger.Info("Starting step")

		if step.Destructive {
			confirmed, err := o.Confirmer.Confirm(fmt.Sprintf(
				"Step %q is irreversible. Proceed?", step.Name))
			if err != nil {
				return o.abort(step, errors.WithContext("confirm", err))
			}
			if !confirmed {
				return o.abort(step, errors.NewCondition(
					errors.ConditionOperatorDeclined,
					"step %q was not confirmed", step.Name))
			}
		}

		if err := step.Run(ctx, o); err != nil {
			return o.abort(step, err)
		}

		o.State.Completed = append(o.State.Completed, step.Name)
		logger.Info("Step complete")
	}

	log.WithField("volume", o.Request.Volume).Info("Migration complete")
	return nil
}

// abort reports the failed step, the condition that caused the failure, and
// the last known-good state. The cluster is left as of the last completed
// step: a partially copied volume cannot be rolled back safely, so recovery
// is always an operator decision.
func (o *Orchestrator) abort(step Step, err error) error {
	condition, ok := errors.ConditionOf(err)
	if !ok {
		condition = "Error"
	}

	log.WithFields(log.Fields{
		"step":          step.Name,
		"condition":     condition,
		"lastCompleted": o.State.LastCompleted(),
	}).Error("Migration aborted")

	return errors.WithContext(
		fmt.Sprintf("migration aborted at step %q; the cluster was left as of "+
			"the last completed step (%s); no rollback was attempted, resume "+
			"with --from-step %s after inspecting the cluster",
			step.Name, o.State.LastCompleted(), step.Name),
		err)
}
