package clean

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/volcutover/volcutover/cli/envstore"
	"github.com/volcutover/volcutover/pkg/errors"
	"github.com/volcutover/volcutover/pkg/names"
	"github.com/volcutover/volcutover/pkg/provision"
)

func New() *cobra.Command {
	var envName, migratorName, volume string
	cobraCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove leftovers from an aborted or finished migration",
		Run: func(_ *cobra.Command, _ []string) {
			// Like migrate, clean mutates the cluster, so the target
			// environment must be explicit.
			if envName == "" {
				errors.HandleFatalError(errors.NewFriendlyError(
					"--env is required for clean."))
			}
			if migratorName == "" && volume == "" {
				fmt.Fprintln(os.Stderr,
					"Nothing to clean. Give --migrator and/or --volume.")
				os.Exit(1)
			}

			if err := run(envName, migratorName, volume); err != nil {
				errors.HandleFatalError(err)
			}
		},
	}
	cobraCmd.Flags().StringVar(&envName, "env", "",
		"Target environment\nRequired, with no default")
	cobraCmd.Flags().StringVar(&migratorName, "migrator", "",
		"Migrator workload to remove")
	cobraCmd.Flags().StringVar(&volume, "volume", "",
		"Volume whose leftover temp claim should be removed")
	return cobraCmd
}

func run(envName, migratorName, volume string) error {
	store, err := envstore.New()
	if err != nil {
		return errors.WithContext("load settings", err)
	}

	env, err := store.Get(envName)
	if err != nil {
		return err
	}

	kubeClient, _, err := env.KubeClient()
	if err != nil {
		return errors.WithContext("get kube client", err)
	}

	client := provision.New(kubeClient, env.Namespace)

	// Already-absent leftovers are fine: clean is safe to re-run.
	if migratorName != "" {
		err := client.DeleteWorkload(migratorName)
		switch {
		case err == nil:
			fmt.Printf("Removed migrator %q.\n", migratorName)
		case errors.IsCondition(err, errors.ConditionNotFound):
		default:
			return err
		}
	}

	if volume != "" {
		tmpVolume := names.TempVolume(volume)
		err := client.DeleteVolume(tmpVolume)
		switch {
		case err == nil:
			if err := client.WaitVolumeGone(context.Background(), tmpVolume); err != nil {
				return err
			}
			fmt.Printf("Removed temp volume %q.\n", tmpVolume)
		case errors.IsCondition(err, errors.ConditionNotFound):
		default:
			return err
		}
	}

	return nil
}
