// Package build builds and pushes the migrator agent image with the local
// Docker daemon. There is no interesting control flow here: a failed build
// surfaces the daemon's output and the operator re-runs it.
package build

import (
	"context"
	"encoding/base64"
	"os"
	"time"

	"github.com/docker/docker/api/types"
	docker "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/volcutover/volcutover/pkg/errors"
)

// Builder wraps the Docker daemon connection.
type Builder struct {
	client *docker.Client
}

// New connects to the local Docker daemon and validates that it responds.
func New() (*Builder, error) {
	dockerClient, err := docker.NewClientWithOpts(docker.FromEnv,
		docker.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.WithContext("create docker client", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := dockerClient.Ping(ctx); err != nil {
		return nil, errors.NewFriendlyError(
			"Failed to connect to the local Docker daemon.\n"+
				"Make sure Docker is running and try again.\n\n"+
				"The full error was:\n%s", err)
	}

	return &Builder{dockerClient}, nil
}

// Build builds the image from the given context directory.
func (b *Builder) Build(contextDir, image string) error {
	buildContextTar, err := makeTar(contextDir)
	if err != nil {
		return errors.WithContext("tar context", err)
	}

	buildResp, err := b.client.ImageBuild(context.TODO(), buildContextTar,
		types.ImageBuildOptions{
			Tags:       []string{image},
			Dockerfile: "Dockerfile",
			PullParent: true,
		})
	if err != nil {
		return errors.WithContext("start build", err)
	}
	defer buildResp.Body.Close()

	// Block until the build completes, and surface any errors that happen
	// during the build.
	err = jsonmessage.DisplayJSONMessagesStream(buildResp.Body, os.Stdout,
		os.Stdout.Fd(), false, nil)
	if err != nil {
		return errors.NewFriendlyError(
			"The migrator image build failed.\n"+
				"Make sure the context builds with `docker build`.\n\n"+
				"The full error was:\n%s", err)
	}
	return nil
}

// Push pushes the image to its registry. Credentials come from the
// VOLCUTOVER_REGISTRY_AUTH environment variable (a base64 auth config);
// without it the daemon's own credential store is used.
func (b *Builder) Push(image string) error {
	registryAuth := os.Getenv("VOLCUTOVER_REGISTRY_AUTH")
	if registryAuth == "" {
		registryAuth = base64.URLEncoding.EncodeToString([]byte("{}"))
	}

	pushResp, err := b.client.ImagePush(context.Background(), image,
		types.ImagePushOptions{RegistryAuth: registryAuth})
	if err != nil {
		return errors.WithContext("start image push", err)
	}
	defer pushResp.Close()

	err = jsonmessage.DisplayJSONMessagesStream(pushResp, os.Stdout,
		os.Stdout.Fd(), false, nil)
	if err != nil {
		return errors.WithContext("push image", err)
	}
	return nil
}
