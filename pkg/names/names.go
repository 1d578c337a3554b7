// Package names derives the resource names used during a migration. All
// derived names are pure functions of the operator's input so that an
// aborted run can be resumed, or cleaned up, without any recorded state.
package names

// TempVolume returns the name of the throwaway claim that holds the data
// while the original claim is deleted and recreated. The derived name is the
// naming discipline that keeps the temp claim from colliding with
// operator-managed claims.
func TempVolume(volume string) string {
	return volume + "-tmp"
}

// Migrator returns the default name of the helper workload that mounts both
// claims to perform the copy. Used when the operator doesn't name one
// explicitly.
func Migrator(hostWorkload string) string {
	return hostWorkload + "-migrator"
}
