package build

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/volcutover/volcutover/cli/envstore"
	imagebuild "github.com/volcutover/volcutover/pkg/build"
	"github.com/volcutover/volcutover/pkg/errors"
	"github.com/volcutover/volcutover/pkg/version"
)

func New() *cobra.Command {
	var envName, contextDir string
	var push bool
	cobraCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the migrator agent image",
		Run: func(_ *cobra.Command, _ []string) {
			if envName == "" {
				errors.HandleFatalError(errors.NewFriendlyError(
					"--env is required."))
			}

			if err := run(envName, contextDir, push); err != nil {
				errors.HandleFatalError(err)
			}
		},
	}
	cobraCmd.Flags().StringVar(&envName, "env", "",
		"Environment whose image repo the build is tagged for")
	cobraCmd.Flags().StringVar(&contextDir, "context", "./migrator",
		"Build context containing the migrator Dockerfile")
	cobraCmd.Flags().BoolVar(&push, "push", false,
		"Push the image after building")
	return cobraCmd
}

func run(envName, contextDir string, push bool) error {
	store, err := envstore.New()
	if err != nil {
		return errors.WithContext("load settings", err)
	}

	env, err := store.Get(envName)
	if err != nil {
		return err
	}

	builder, err := imagebuild.New()
	if err != nil {
		return err
	}

	image := version.MigratorImage(env.ImageRepo)
	fmt.Printf("Building %s...\n", image)
	if err := builder.Build(contextDir, image); err != nil {
		return err
	}

	if push {
		fmt.Printf("Pushing %s...\n", image)
		if err := builder.Push(image); err != nil {
			return err
		}
	}
	return nil
}
