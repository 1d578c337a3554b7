package version

// Version is set at build time via -ldflags.
var Version = "latest"

// MigratorImage returns the migrator agent image for the given repo.
func MigratorImage(repo string) string {
	return repo + "/volcutover-migrator:" + Version
}
