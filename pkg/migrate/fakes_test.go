package migrate_test

import (
	"context"
	"fmt"

	"github.com/volcutover/volcutover/pkg/errors"
	"github.com/volcutover/volcutover/pkg/manifest"
)

// fakeCluster simulates just enough of the control plane for the
// orchestrator: named volumes with content, workload replica counts, and the
// migrator deployment. Convergence is instant, and every call is recorded so
// tests can assert on ordering.
type fakeCluster struct {
	calls    []string
	volumes  map[string]*fakeVolume
	replicas map[string]int32
	migrator *manifest.MigratorParams

	// failOn maps a recorded call to the error it should return, once.
	failOn map[string]error
}

type fakeVolume struct {
	class string
	size  string
	files map[string]string
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		volumes:  map[string]*fakeVolume{},
		replicas: map[string]int32{},
		failOn:   map[string]error{},
	}
}

func (c *fakeCluster) record(format string, args ...interface{}) error {
	call := fmt.Sprintf(format, args...)
	c.calls = append(c.calls, call)
	if err, ok := c.failOn[call]; ok {
		delete(c.failOn, call)
		return err
	}
	return nil
}

func (c *fakeCluster) called(call string) bool {
	for _, recorded := range c.calls {
		if recorded == call {
			return true
		}
	}
	return false
}

func (c *fakeCluster) CreateVolume(params manifest.VolumeParams) error {
	if err := c.record("CreateVolume %s", params.Name); err != nil {
		return err
	}
	if _, ok := c.volumes[params.Name]; ok {
		return errors.NewCondition(errors.ConditionConflict,
			"volume %q already exists", params.Name)
	}

	c.volumes[params.Name] = &fakeVolume{
		class: params.StorageClass,
		size:  params.Size,
		files: map[string]string{},
	}
	return nil
}

func (c *fakeCluster) DeleteVolume(name string) error {
	if err := c.record("DeleteVolume %s", name); err != nil {
		return err
	}
	if _, ok := c.volumes[name]; !ok {
		return errors.NewCondition(errors.ConditionNotFound,
			"no volume %q", name)
	}

	delete(c.volumes, name)
	return nil
}

func (c *fakeCluster) ScaleWorkload(name string, replicas int32) error {
	if err := c.record("ScaleWorkload %s %d", name, replicas); err != nil {
		return err
	}
	c.replicas[name] = replicas
	return nil
}

func (c *fakeCluster) WorkloadReplicas(name string) (int32, error) {
	if err := c.record("WorkloadReplicas %s", name); err != nil {
		return 0, err
	}
	return c.replicas[name], nil
}

func (c *fakeCluster) DeployWorkload(params manifest.MigratorParams) error {
	if err := c.record("DeployWorkload %s", params.Name); err != nil {
		return err
	}

	deployed := params
	c.migrator = &deployed
	if _, ok := c.replicas[params.Name]; !ok {
		c.replicas[params.Name] = 0
	}
	return nil
}

func (c *fakeCluster) DeleteWorkload(name string) error {
	return c.record("DeleteWorkload %s", name)
}

func (c *fakeCluster) WaitVolumeBound(_ context.Context, name string) error {
	return c.record("WaitVolumeBound %s", name)
}

func (c *fakeCluster) WaitVolumeGone(_ context.Context, name string) error {
	return c.record("WaitVolumeGone %s", name)
}

func (c *fakeCluster) WaitWorkloadReady(_ context.Context, name string) error {
	return c.record("WaitWorkloadReady %s", name)
}

func (c *fakeCluster) WaitWorkloadDown(_ context.Context, name string) error {
	return c.record("WaitWorkloadDown %s", name)
}

func (c *fakeCluster) WorkloadPod(name string) (string, error) {
	if err := c.record("WorkloadPod %s", name); err != nil {
		return "", err
	}
	return name + "-pod", nil
}

// fakeSyncer resolves mount paths to claims through the deployed migrator
// params, and moves content between the fake volumes like the real agent
// moves files between mounts.
type fakeSyncer struct {
	cluster *fakeCluster
	err     error
}

func (s *fakeSyncer) Copy(pod, src, dst string) error {
	s.cluster.calls = append(s.cluster.calls, fmt.Sprintf("Copy %s %s", src, dst))
	if s.err != nil {
		return s.err
	}

	srcVolume := s.cluster.volumes[s.resolve(src)]
	dstVolume := s.cluster.volumes[s.resolve(dst)]
	if srcVolume == nil || dstVolume == nil {
		return errors.NewCondition(errors.ConditionSyncFailed,
			"claim not mounted in %q", pod)
	}

	for name, contents := range srcVolume.files {
		dstVolume.files[name] = contents
	}
	return nil
}

func (s *fakeSyncer) resolve(path string) string {
	if s.cluster.migrator == nil {
		return ""
	}
	switch path {
	case manifest.DataMountPath:
		return s.cluster.migrator.DataClaim
	case manifest.ScratchMountPath:
		return s.cluster.migrator.ScratchClaim
	}
	return ""
}

// fakeConfirmer answers the scripted responses in order, then defaults to
// yes. Prompts are recorded so tests can assert on the gates that fired.
type fakeConfirmer struct {
	prompts []string
	answers []bool
}

func (c *fakeConfirmer) Confirm(prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	if len(c.answers) == 0 {
		return true, nil
	}

	answer := c.answers[0]
	c.answers = c.answers[1:]
	return answer, nil
}

// cancellingConfirmer confirms the gate but cancels the run's context at the
// same time, simulating an operator hitting Ctrl-C right as a step finishes.
type cancellingConfirmer struct {
	cancel context.CancelFunc
}

func (c *cancellingConfirmer) Confirm(string) (bool, error) {
	c.cancel()
	return true, nil
}
