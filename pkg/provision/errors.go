package provision

import (
	kerrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/volcutover/volcutover/pkg/errors"
)

// asCondition maps control plane rejections onto the migration error
// taxonomy, so callers can react to the class of failure without importing
// apimachinery. Errors that don't fit the taxonomy pass through unchanged.
func asCondition(err error) error {
	switch {
	case err == nil:
		return nil
	case kerrors.IsNotFound(err):
		return errors.NewCondition(errors.ConditionNotFound, "%s", err)
	case kerrors.IsAlreadyExists(err), kerrors.IsConflict(err):
		return errors.NewCondition(errors.ConditionConflict, "%s", err)
	case kerrors.IsForbidden(err), kerrors.IsUnauthorized(err):
		return errors.NewCondition(errors.ConditionPermissionDenied, "%s", err)
	case kerrors.IsServiceUnavailable(err), kerrors.IsServerTimeout(err),
		kerrors.IsTimeout(err), kerrors.IsTooManyRequests(err):
		return errors.NewCondition(errors.ConditionUnavailable, "%s", err)
	default:
		return err
	}
}
