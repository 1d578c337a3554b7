// Package syncer triggers the copy agent inside the migrator pod and
// surfaces its result. The agent performs a one-way recursive copy and exits
// non-zero on any copy error; its log stream is echoed to the operator so
// the copy can be reviewed before the migration continues.
package syncer

import (
	"bytes"
	"io"

	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"

	"github.com/volcutover/volcutover/pkg/errors"
)

// agentCommand is the copy agent's binary inside the migrator image. The
// --force flag bypasses the agent's own interactive confirmation, since the
// orchestrator gates the copy itself.
const agentCommand = "volcutover-agent"

// Syncer invokes the copy agent in a pod for one source/destination pair.
type Syncer interface {
	Copy(pod, src, dst string) error
}

type podSyncer struct {
	kube       kubernetes.Interface
	restConfig *rest.Config
	namespace  string
	out        io.Writer
}

// New returns a Syncer that execs the agent over the API server's exec
// subresource, streaming the agent's output to out.
func New(kube kubernetes.Interface, restConfig *rest.Config, namespace string,
	out io.Writer) Syncer {
	return podSyncer{kube, restConfig, namespace, out}
}

// Copy runs the agent in the given pod, copying src into dst. A non-zero
// agent exit, a broken exec stream, or an error banner in the agent's output
// all surface as SyncFailed. The copy is never retried here: a blind retry
// could mask a partial failure, and copy correctness is what makes the later
// destructive steps safe.
func (s podSyncer) Copy(pod, src, dst string) error {
	log.WithFields(log.Fields{
		"pod": pod,
		"src": src,
		"dst": dst,
	}).Info("Starting copy")

	execOpts := corev1.PodExecOptions{
		Container: "migrator",
		// Trailing slashes make the agent copy directory contents rather
		// than the directory itself.
		Command: []string{agentCommand, "--force", src + "/", dst + "/"},
		Stdout:  true,
		Stderr:  true,
	}

	req := s.kube.CoreV1().RESTClient().Post().
		Resource("pods").
		SubResource("exec").
		Name(pod).
		Namespace(s.namespace).
		VersionedParams(&execOpts, scheme.ParameterCodec)
	exec, err := remotecommand.NewSPDYExecutor(s.restConfig, "POST", req.URL())
	if err != nil {
		return errors.WithContext("setup remote exec", err)
	}

	// Tee the agent's output so it can be scanned for the error banner after
	// the stream ends.
	var output bytes.Buffer
	err = exec.Stream(remotecommand.StreamOptions{
		Stdout: io.MultiWriter(s.out, &output),
		Stderr: io.MultiWriter(s.out, &output),
	})
	if err != nil {
		return errors.NewCondition(errors.ConditionSyncFailed,
			"copy agent failed: %s", err)
	}

	if line, found := findErrorBanner(output.String()); found {
		return errors.NewCondition(errors.ConditionSyncFailed,
			"copy agent reported an error: %s", line)
	}

	log.WithField("pod", pod).Info("Copy finished")
	return nil
}
