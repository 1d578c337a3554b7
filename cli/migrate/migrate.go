package migrate

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lithammer/dedent"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/volcutover/volcutover/cli/envstore"
	"github.com/volcutover/volcutover/pkg/errors"
	migration "github.com/volcutover/volcutover/pkg/migrate"
	"github.com/volcutover/volcutover/pkg/names"
	"github.com/volcutover/volcutover/pkg/provision"
	"github.com/volcutover/volcutover/pkg/syncer"
	"github.com/volcutover/volcutover/pkg/version"
)

func New() *cobra.Command {
	var envName, migratorName, fromStep string
	var autoConfirm bool
	var hostReplicas int32
	cobraCmd := &cobra.Command{
		Use:   "migrate HOST VOLUME CLASS SIZE",
		Short: "Migrate a volume to a new storage class and size",
		Long: dedent.Dedent(`
			Migrate the contents of VOLUME into a newly provisioned claim of
			the given CLASS and SIZE, preserving the claim's name.

			The workload HOST is scaled to zero for the duration of the copy,
			and restored to its previous replica count at the end. The data
			passes through a temporary claim named VOLUME-tmp, which is
			removed once the migration completes.

			Deleting the original volume requires explicit confirmation, and
			only after the copy off of it has been reviewed.`),
		Run: func(_ *cobra.Command, args []string) {
			if len(args) != 4 {
				fmt.Fprintln(os.Stderr,
					"The host workload, volume, new class, and new size must all be given.")
				os.Exit(1)
			}

			// No default environment: migrations are destructive, and a
			// defaulted target could hit the wrong cluster.
			if envName == "" {
				errors.HandleFatalError(errors.NewFriendlyError(
					"--env is required for migrate."))
			}

			err := run(runOptions{
				envName:      envName,
				host:         args[0],
				volume:       args[1],
				newClass:     args[2],
				newSize:      args[3],
				migratorName: migratorName,
				fromStep:     fromStep,
				autoConfirm:  autoConfirm,
				hostReplicas: hostReplicas,
			})
			if err != nil {
				errors.HandleFatalError(err)
			}
		},
	}
	cobraCmd.Flags().StringVar(&envName, "env", "",
		"Target environment\nRequired, with no default")
	cobraCmd.Flags().StringVar(&migratorName, "migrator", "",
		"Name of the migrator workload\nDefaults to HOST-migrator")
	cobraCmd.Flags().StringVar(&fromStep, "from-step", "",
		"Resume an aborted run at the named step")
	cobraCmd.Flags().BoolVar(&autoConfirm, "yes", false,
		"Answer yes to all confirmation gates")
	cobraCmd.Flags().Int32Var(&hostReplicas, "host-replicas", 0,
		"Replica count to restore the host to\n"+
			"Only needed when resuming past the scale-down step")
	return cobraCmd
}

type runOptions struct {
	envName      string
	host         string
	volume       string
	newClass     string
	newSize      string
	migratorName string
	fromStep     string
	autoConfirm  bool
	hostReplicas int32
}

func run(opts runOptions) error {
	store, err := envstore.New()
	if err != nil {
		return errors.WithContext("load settings", err)
	}

	env, err := store.Get(opts.envName)
	if err != nil {
		return err
	}

	kubeClient, restConfig, err := env.KubeClient()
	if err != nil {
		return errors.WithContext("get kube client", err)
	}

	if opts.migratorName == "" {
		opts.migratorName = names.Migrator(opts.host)
	}

	state := migration.NewRunState()
	if opts.hostReplicas > 0 {
		state.HostReplicas = opts.hostReplicas
	}

	var confirmer migration.Confirmer = terminalConfirmer{}
	if opts.autoConfirm {
		confirmer = autoConfirmer{}
	}

	orchestrator := &migration.Orchestrator{
		Provisioner: provision.New(kubeClient, env.Namespace),
		Syncer:      syncer.New(kubeClient, restConfig, env.Namespace, os.Stdout),
		Confirmer:   confirmer,
		Request: migration.Request{
			HostWorkload:     opts.host,
			MigratorWorkload: opts.migratorName,
			Volume:           opts.volume,
			NewClass:         opts.newClass,
			NewSize:          opts.newSize,
			MigratorImage:    version.MigratorImage(env.ImageRepo),
		},
		State: state,
	}

	// An interrupt cancels any in-flight convergence wait and halts the
	// sequence before the next step issues an action.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Interrupt received. Halting before the next step.")
		cancel()
	}()

	if err := orchestrator.RunFrom(ctx, opts.fromStep); err != nil {
		return err
	}

	fmt.Printf("Volume %q now has class %q and size %s.\n",
		opts.volume, opts.newClass, opts.newSize)
	return nil
}
