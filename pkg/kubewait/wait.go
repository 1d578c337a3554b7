// Package kubewait blocks until an asserted cluster state is observed, or a
// bounded timeout elapses.
package kubewait

import (
	"context"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/volcutover/volcutover/pkg/errors"
)

// DefaultTimeout bounds how long WaitForObject polls when the caller's
// context has no deadline of its own.
const DefaultTimeout = 5 * time.Minute

// pollInterval backstops the watch in case it drops events.
const pollInterval = 5 * time.Second

// WaitForObject polls the object returned by objectGetter until validator
// accepts it. It wakes up on watch events and on a ticker, so convergence is
// noticed promptly even if the watch misses an update. If the bound elapses
// first, a ConvergenceTimeout condition is returned rather than blocking
// indefinitely -- the orchestrator treats that as an abort trigger.
func WaitForObject(
	ctx context.Context,
	objectGetter func() (interface{}, error),
	watchFn func(metav1.ListOptions) (watch.Interface, error),
	validator func(interface{}) bool) error {

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	watcher, err := watchFn(metav1.ListOptions{})
	if err != nil {
		return errors.WithContext("watch", err)
	}
	defer watcher.Stop()

	watcherChan := watcher.ResultChan()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		obj, err := objectGetter()
		if err != nil {
			return errors.WithContext("get", err)
		}

		if validator(obj) {
			return nil
		}

		select {
		case <-watcherChan:
		case <-ticker.C:
		case <-ctx.Done():
			if ctx.Err() == context.Canceled {
				return errors.NewCondition(errors.ConditionInterrupted,
					"wait cancelled by the operator")
			}
			return errors.NewCondition(errors.ConditionConvergenceTimeout,
				"cluster did not converge to the expected state in time")
		}
	}
}

// WaitForDeletion polls until objectGetter reports the object gone, subject
// to the same bound as WaitForObject. The getter signals deletion by
// returning notFound == true.
func WaitForDeletion(
	ctx context.Context,
	objectGetter func() (notFound bool, err error),
	watchFn func(metav1.ListOptions) (watch.Interface, error)) error {

	return WaitForObject(ctx,
		func() (interface{}, error) {
			notFound, err := objectGetter()
			return notFound, err
		},
		watchFn,
		func(gone interface{}) bool {
			return gone.(bool)
		})
}
