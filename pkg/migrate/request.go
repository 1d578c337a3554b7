package migrate

import (
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/volcutover/volcutover/pkg/errors"
)

// Request describes one volume migration. The volume's claim name is
// preserved end-to-end; only the storage class and size backing it change.
type Request struct {
	// HostWorkload owns the volume and is scaled to zero for the duration of
	// the copy.
	HostWorkload string

	// MigratorWorkload is the helper deployment that mounts both claims.
	MigratorWorkload string

	// Volume is the claim being migrated.
	Volume string

	// NewClass and NewSize are the target provisioning parameters.
	NewClass string
	NewSize  string

	// MigratorImage is the copy agent image the migrator runs.
	MigratorImage string
}

// Validate rejects incomplete requests. It runs before any cluster mutation,
// so a rejected request leaves the cluster untouched.
func (req Request) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"host workload", req.HostWorkload},
		{"migrator workload", req.MigratorWorkload},
		{"volume", req.Volume},
		{"new volume class", req.NewClass},
		{"new volume size", req.NewSize},
		{"migrator image", req.MigratorImage},
	}
	for _, field := range fields {
		if field.value == "" {
			return errors.NewCondition(errors.ConditionValidation,
				"%s must not be empty", field.name)
		}
	}

	if _, err := resource.ParseQuantity(req.NewSize); err != nil {
		return errors.NewCondition(errors.ConditionValidation,
			"new volume size %q is not a valid quantity: %s", req.NewSize, err)
	}
	return nil
}
