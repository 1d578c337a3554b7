package kubewait_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/volcutover/volcutover/pkg/errors"
	"github.com/volcutover/volcutover/pkg/kubewait"
)

func fakeWatchFn(watcher *watch.FakeWatcher) func(metav1.ListOptions) (watch.Interface, error) {
	return func(metav1.ListOptions) (watch.Interface, error) {
		return watcher, nil
	}
}

func TestWaitAlreadyConverged(t *testing.T) {
	err := kubewait.WaitForObject(context.Background(),
		func() (interface{}, error) { return "converged", nil },
		fakeWatchFn(watch.NewFake()),
		func(interface{}) bool { return true })
	assert.NoError(t, err)
}

func TestWaitConvergesOnWatchEvent(t *testing.T) {
	var mu sync.Mutex
	converged := false

	watcher := watch.NewFake()
	go func() {
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		converged = true
		mu.Unlock()
		watcher.Add(&corev1.Pod{})
	}()

	err := kubewait.WaitForObject(context.Background(),
		func() (interface{}, error) {
			mu.Lock()
			defer mu.Unlock()
			return converged, nil
		},
		fakeWatchFn(watcher),
		func(obj interface{}) bool { return obj.(bool) })
	assert.NoError(t, err)
}

func TestWaitTimesOutAtBound(t *testing.T) {
	bound := 100 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), bound)
	defer cancel()

	start := time.Now()
	err := kubewait.WaitForObject(ctx,
		func() (interface{}, error) { return "never", nil },
		fakeWatchFn(watch.NewFake()),
		func(interface{}) bool { return false })

	require.Error(t, err)
	assert.True(t, errors.IsCondition(err, errors.ConditionConvergenceTimeout))
	// At or after the bound, never before.
	assert.True(t, time.Since(start) >= bound)
}

func TestWaitCancelledReportsInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kubewait.WaitForObject(ctx,
		func() (interface{}, error) { return "never", nil },
		fakeWatchFn(watch.NewFake()),
		func(interface{}) bool { return false })

	require.Error(t, err)
	// An operator cancel is not a timeout: the caller reports it as an
	// interrupt, not as the cluster failing to converge.
	assert.True(t, errors.IsCondition(err, errors.ConditionInterrupted))
	assert.False(t, errors.IsCondition(err, errors.ConditionConvergenceTimeout))
}

func TestWaitGetterError(t *testing.T) {
	getterErr := errors.New("api server down")
	err := kubewait.WaitForObject(context.Background(),
		func() (interface{}, error) { return nil, getterErr },
		fakeWatchFn(watch.NewFake()),
		func(interface{}) bool { return true })

	require.Error(t, err)
	assert.Equal(t, getterErr, errors.RootCause(err))
}

func TestWaitForDeletion(t *testing.T) {
	err := kubewait.WaitForDeletion(context.Background(),
		func() (bool, error) { return true, nil },
		fakeWatchFn(watch.NewFake()))
	assert.NoError(t, err)
}
