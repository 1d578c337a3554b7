package initialize

import (
	"fmt"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/volcutover/volcutover/cli/envstore"
	"github.com/volcutover/volcutover/pkg/errors"
)

func New() *cobra.Command {
	var envName, namespace, repo, kubeContext string
	cobraCmd := &cobra.Command{
		Use:   "init",
		Short: "Register an environment and prepare its namespace",
		Run: func(_ *cobra.Command, _ []string) {
			if envName == "" || namespace == "" || repo == "" {
				errors.HandleFatalError(errors.NewFriendlyError(
					"--env, --namespace, and --repo are required."))
			}

			if err := run(envName, namespace, repo, kubeContext); err != nil {
				errors.HandleFatalError(err)
			}
		},
	}
	cobraCmd.Flags().StringVar(&envName, "env", "",
		"Name to register the environment under")
	cobraCmd.Flags().StringVar(&namespace, "namespace", "",
		"Namespace migrations run in")
	cobraCmd.Flags().StringVar(&repo, "repo", "",
		"Image repo the migrator image is pushed to")
	cobraCmd.Flags().StringVar(&kubeContext, "kube-context", "",
		"Kubeconfig context to use\nDefaults to the kubeconfig's current context")
	return cobraCmd
}

func run(envName, namespace, repo, kubeContext string) error {
	store, err := envstore.New()
	if err != nil {
		return errors.WithContext("load settings", err)
	}

	env := envstore.Environment{
		Namespace:   namespace,
		ImageRepo:   repo,
		KubeContext: kubeContext,
	}

	kubeClient, _, err := env.KubeClient()
	if err != nil {
		return errors.WithContext("get kube client", err)
	}

	// Creating an existing namespace is fine: init is safe to re-run.
	_, err = kubeClient.CoreV1().Namespaces().Create(&corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: namespace},
	})
	if err != nil && !kerrors.IsAlreadyExists(err) {
		return errors.WithContext("create namespace", err)
	}

	store.Set(envName, env)
	if err := store.Save(); err != nil {
		return errors.WithContext("save settings", err)
	}

	fmt.Printf("Environment %q is ready.\n", envName)
	return nil
}
