package envstore_test

import (
	"io/ioutil"
	"os"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcutover/volcutover/cli/envstore"
)

// useTempHome points the settings store at a scratch home directory.
func useTempHome(t *testing.T) func() {
	dir, err := ioutil.TempDir("", "envstore")
	require.NoError(t, err)

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", dir)
	homedir.DisableCache = true

	return func() {
		os.Setenv("HOME", oldHome)
		homedir.DisableCache = false
		os.RemoveAll(dir)
	}
}

func TestRoundTrip(t *testing.T) {
	defer useTempHome(t)()

	var store envstore.Store
	store.Set("staging", envstore.Environment{
		Namespace:   "apps-staging",
		ImageRepo:   "registry.example.com/staging",
		KubeContext: "staging-cluster",
	})
	require.NoError(t, store.Save())

	loaded, err := envstore.New()
	require.NoError(t, err)
	assert.Equal(t, store, loaded)

	env, err := loaded.Get("staging")
	require.NoError(t, err)
	assert.Equal(t, "apps-staging", env.Namespace)
}

func TestMissingFileIsEmptyStore(t *testing.T) {
	defer useTempHome(t)()

	store, err := envstore.New()
	require.NoError(t, err)
	assert.Empty(t, store.Environments)
}

func TestGetUnknownEnvironment(t *testing.T) {
	defer useTempHome(t)()

	var store envstore.Store
	store.Set("staging", envstore.Environment{Namespace: "apps-staging"})
	store.Set("prod", envstore.Environment{Namespace: "apps-prod"})

	_, err := store.Get("dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prod, staging")
}

func TestGetWithNoEnvironments(t *testing.T) {
	defer useTempHome(t)()

	var store envstore.Store
	_, err := store.Get("dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volcutover init")
}
