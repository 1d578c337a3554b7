package scale

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/volcutover/volcutover/cli/envstore"
	"github.com/volcutover/volcutover/pkg/errors"
	"github.com/volcutover/volcutover/pkg/provision"
)

func New() *cobra.Command {
	var envName string
	var replicas int32

	cobraCmd := &cobra.Command{
		Use:   "scale",
		Short: "Scale workloads up or down",
	}
	cobraCmd.PersistentFlags().StringVar(&envName, "env", "",
		"Target environment")

	upCmd := &cobra.Command{
		Use:   "up NAME...",
		Short: "Scale workloads up and wait for readiness",
		Run: func(_ *cobra.Command, names []string) {
			runDirection(envName, names, replicas)
		},
	}
	upCmd.Flags().Int32Var(&replicas, "replicas", 1,
		"Replica count to scale up to")

	downCmd := &cobra.Command{
		Use:   "down NAME...",
		Short: "Scale workloads to zero and wait for termination",
		Run: func(_ *cobra.Command, names []string) {
			runDirection(envName, names, 0)
		},
	}

	cobraCmd.AddCommand(upCmd, downCmd)
	return cobraCmd
}

func runDirection(envName string, names []string, replicas int32) {
	if envName == "" {
		errors.HandleFatalError(errors.NewFriendlyError("--env is required."))
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "At least one workload name must be given.")
		os.Exit(1)
	}

	if err := run(envName, names, replicas); err != nil {
		errors.HandleFatalError(err)
	}
}

func run(envName string, names []string, replicas int32) error {
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
	ctx := context.Background()
	for _, name := range names {
		if err := client.ScaleWorkload(name, replicas); err != nil {
			return errors.WithContext(fmt.Sprintf("scale %q", name), err)
		}

		if replicas == 0 {
			err = client.WaitWorkloadDown(ctx, name)
		} else {
			err = client.WaitWorkloadReady(ctx, name)
		}
		if err != nil {
			return errors.WithContext(fmt.Sprintf("wait for %q", name), err)
		}

		fmt.Printf("Workload %q is at %d replicas.\n", name, replicas)
	}
	return nil
}
