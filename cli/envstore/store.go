// Package envstore persists the operator's environment contexts in
// ~/.volcutover.yaml. An environment pins a namespace, an image repo, and
// optionally a kubeconfig context, so that commands can't accidentally act
// against the wrong cluster.
package envstore

import (
	"fmt"
	"io/ioutil"
	"os"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/volcutover/volcutover/pkg/errors"
)

// Environment is one named target for migrations.
type Environment struct {
	Namespace string `json:"namespace"`
	ImageRepo string `json:"imageRepo"`

	// KubeContext overrides the kubeconfig's current context. Empty means
	// the kubeconfig default.
	KubeContext string `json:"kubeContext,omitempty"`
}

// Store is the full settings file.
type Store struct {
	Environments map[string]Environment `json:"environments"`
}

// New loads the settings file. A missing file is an empty store.
func New() (Store, error) {
	configPath, err := storePath()
	if err != nil {
		return Store{}, errors.WithContext("expand config path", err)
	}

	configBytes, err := ioutil.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return Store{}, errors.WithContext("read", err)
	}

	var store Store
	if err := yaml.Unmarshal(configBytes, &store); err != nil {
		return Store{}, errors.WithContext("parse yaml", err)
	}
	return store, nil
}

func (store Store) Save() error {
	configPath, err := storePath()
	if err != nil {
		return errors.WithContext("expand config path", err)
	}

	configBytes, err := yaml.Marshal(store)
	if err != nil {
		return errors.WithContext("marshal yaml", err)
	}

	if err := ioutil.WriteFile(configPath, configBytes, 0600); err != nil {
		return errors.WithContext("write", err)
	}
	return nil
}

// Set registers or replaces the named environment.
func (store *Store) Set(name string, env Environment) {
	if store.Environments == nil {
		store.Environments = map[string]Environment{}
	}
	store.Environments[name] = env
}

// Get returns the named environment, or a friendly error naming the
// environments that do exist.
func (store Store) Get(name string) (Environment, error) {
	env, ok := store.Environments[name]
	if !ok {
		known := make([]string, 0, len(store.Environments))
		for knownName := range store.Environments {
			known = append(known, knownName)
		}
		sort.Strings(known)

		if len(known) == 0 {
			return Environment{}, errors.NewFriendlyError(
				"No environments are configured. Run `volcutover init` first.")
		}
		return Environment{}, errors.NewFriendlyError(
			"Unknown environment %q. Configured environments: %s.",
			name, strings.Join(known, ", "))
	}
	return env, nil
}

// KubeClient returns a Kubernetes client for the environment, using the
// local kubeconfig with the environment's context override.
func (env Environment) KubeClient() (kubernetes.Interface, *rest.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	overrides := &clientcmd.ConfigOverrides{CurrentContext: env.KubeContext}
	kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	restConfig, err := kubeConfig.ClientConfig()
	if err != nil {
		return nil, nil, errors.WithContext("get rest config", err)
	}

	// Bump the default throttling since the convergence waiter polls the
	// control plane repeatedly during a run.
	restConfig.QPS = 100
	restConfig.Burst = 100

	kubeClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, nil, errors.WithContext("new kube client", err)
	}

	return kubeClient, restConfig, nil
}

func storePath() (string, error) {
	return homedir.Expand(fmt.Sprintf("~/%s", storeFile))
}

const storeFile = ".volcutover.yaml"
