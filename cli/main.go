package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/volcutover/volcutover/cli/build"
	"github.com/volcutover/volcutover/cli/clean"
	"github.com/volcutover/volcutover/cli/initialize"
	"github.com/volcutover/volcutover/cli/migrate"
	"github.com/volcutover/volcutover/cli/scale"
	"github.com/volcutover/volcutover/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "volcutover",
		Short:   "Migrate a persistent volume to a new storage class without renaming it",
		Version: version.Version,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		build.New(),
		clean.New(),
		initialize.New(),
		migrate.New(),
		scale.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
