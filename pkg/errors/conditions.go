package errors

import "fmt"

// Condition classifies a failure surfaced by the control plane or the
// migration workflow. Conditions are the only error detail reported to the
// operator when a run aborts.
type Condition string

const (
	// ConditionValidation marks a request that was rejected before any
	// cluster mutation.
	ConditionValidation Condition = "ValidationError"

	// Control plane rejections.
	ConditionNotFound         Condition = "NotFound"
	ConditionConflict         Condition = "Conflict"
	ConditionPermissionDenied Condition = "PermissionDenied"
	ConditionUnavailable      Condition = "Unavailable"

	// ConditionConvergenceTimeout means an expected cluster state was never
	// observed within the waiter's bound.
	ConditionConvergenceTimeout Condition = "ConvergenceTimeout"

	// ConditionSyncFailed means the copy agent reported failure. Never
	// retried automatically -- a blind retry could mask a partial copy.
	ConditionSyncFailed Condition = "SyncFailed"

	// ConditionOperatorDeclined means a confirmation gate was refused.
	ConditionOperatorDeclined Condition = "OperatorDeclined"

	// ConditionInterrupted means the operator cancelled the run (e.g.
	// Ctrl-C). Distinct from ConvergenceTimeout: the cluster may well have
	// converged, the operator just asked to stop.
	ConditionInterrupted Condition = "Interrupted"
)

type conditionError struct {
	condition Condition
	message   string
}

func (err conditionError) Error() string {
	return fmt.Sprintf("%s: %s", err.condition, err.message)
}

// NewCondition returns an error carrying the given condition. The condition
// survives WithContext wrapping and can be recovered with ConditionOf.
func NewCondition(condition Condition, f string, args ...interface{}) error {
	return conditionError{condition, fmt.Sprintf(f, args...)}
}

// ConditionOf walks the error chain and returns the first condition found.
func ConditionOf(err error) (Condition, bool) {
	for {
		if condErr, ok := err.(conditionError); ok {
			return condErr.condition, true
		}

		cause, ok := Cause(err)
		if !ok {
			return "", false
		}
		err = cause
	}
}

// IsCondition reports whether any error in the chain carries the given
// condition.
func IsCondition(err error, condition Condition) bool {
	actual, ok := ConditionOf(err)
	return ok && actual == condition
}
