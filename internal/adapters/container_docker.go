package adapters

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	cerrdefs "github.com/containerd/errdefs"
	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/moby/term"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

const (
	// InterruptedExitCode is reported when the caller cancels a running
	// environment, matching a shell's 128+SIGINT.
	InterruptedExitCode = 130
	containerStopGrace  = 10 * time.Second
)

// dockerAPI is the subset of the docker client the runtime needs.
type dockerAPI interface {
	ImageInspect(ctx context.Context, imageID string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerAttach(ctx context.Context, containerID string, options container.AttachOptions) (dockertypes.HijackedResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerKill(ctx context.Context, containerID string, signal string) error
	ContainerResize(ctx context.Context, containerID string, options container.ResizeOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

type DockerRuntimeAdapter struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	newClient func() (dockerAPI, error)
}

func NewDockerRuntimeAdapter() DockerRuntimeAdapter {
	return DockerRuntimeAdapter{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		newClient: func() (dockerAPI, error) {
			return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		},
	}
}

func (a DockerRuntimeAdapter) Run(ctx context.Context, descriptor types.BuildEnvironmentDescriptor) (types.ExitStatus, error) {
	if a.newClient == nil {
		return types.ExitStatus{}, launchError(descriptor, fmt.Errorf("docker client is not configured"))
	}
	cli, err := a.newClient()
	if err != nil {
		return types.ExitStatus{}, launchError(descriptor, err)
	}
	defer cli.Close()

	if err := a.ensureImage(ctx, cli, descriptor.Image); err != nil {
		return types.ExitStatus{}, launchError(descriptor, err)
	}

	interactive := descriptor.Mode == types.CommandModeInteractive
	stdinFd, stdinIsTerminal := term.GetFdInfo(a.Stdin)
	tty := interactive && stdinIsTerminal
	created, err := cli.ContainerCreate(ctx, &container.Config{
		Image:        descriptor.Image,
		Cmd:          descriptor.Command,
		WorkingDir:   descriptor.WorkingDir,
		User:         descriptor.User,
		Env:          descriptor.Env,
		Tty:          tty,
		OpenStdin:    interactive,
		StdinOnce:    interactive,
		AttachStdin:  interactive,
		AttachStdout: true,
		AttachStderr: true,
	}, &container.HostConfig{
		Mounts: toDockerMounts(descriptor.Mounts),
		Init:   boolPtr(true),
	}, nil, nil, "")
	if err != nil {
		return types.ExitStatus{}, launchError(descriptor, err)
	}
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), containerStopGrace)
		defer cancel()
		if err := cli.ContainerRemove(removeCtx, created.ID, container.RemoveOptions{Force: true}); err != nil && !cerrdefs.IsNotFound(err) {
			log.Ctx(ctx).Warn().Err(err).Str("container", created.ID).Msg("failed to remove container")
		}
	}()

	attach, err := cli.ContainerAttach(ctx, created.ID, container.AttachOptions{
		Stream: true,
		Stdin:  interactive,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return types.ExitStatus{}, launchError(descriptor, err)
	}
	defer attach.Close()

	outputDone := make(chan error, 1)
	go func() {
		var err error
		if tty {
			_, err = io.Copy(a.Stdout, attach.Reader)
		} else {
			_, err = stdcopy.StdCopy(a.Stdout, a.Stderr, attach.Reader)
		}
		outputDone <- err
	}()
	if interactive && a.Stdin != nil {
		go func() {
			_, _ = io.Copy(attach.Conn, a.Stdin)
			_ = attach.CloseWrite()
		}()
	}

	// Register the wait before starting so a fast exit is not missed.
	statusCh, waitErrCh := cli.ContainerWait(ctx, created.ID, container.WaitConditionNextExit)
	if err := cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return types.ExitStatus{}, launchError(descriptor, err)
	}
	log.Ctx(ctx).Debug().Str("container", created.ID).Str("image", descriptor.Image).Bool("tty", tty).Msg("environment started")

	if tty {
		state, err := term.SetRawTerminal(stdinFd)
		if err == nil {
			defer func() { _ = term.RestoreTerminal(stdinFd, state) }()
		}
		if size, err := term.GetWinsize(stdinFd); err == nil {
			_ = cli.ContainerResize(ctx, created.ID, container.ResizeOptions{Height: uint(size.Height), Width: uint(size.Width)})
		}
	}

	select {
	case <-ctx.Done():
		return a.interrupt(ctx, cli, created.ID), nil
	case err := <-waitErrCh:
		if ctx.Err() != nil {
			return a.interrupt(ctx, cli, created.ID), nil
		}
		return types.ExitStatus{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("lost track of environment %s", descriptor.Environment)).
			WithCause(err)
	case status := <-statusCh:
		a.drainOutput(ctx, outputDone)
		if status.Error != nil && status.Error.Message != "" {
			return types.ExitStatus{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("environment %s failed: %s", descriptor.Environment, status.Error.Message))
		}
		return types.ExitStatus{Code: int(status.StatusCode)}, nil
	}
}

// interrupt forwards SIGINT and gives the contained process a grace period.
func (a DockerRuntimeAdapter) interrupt(ctx context.Context, cli dockerAPI, id string) types.ExitStatus {
	killCtx, cancel := context.WithTimeout(context.Background(), containerStopGrace)
	defer cancel()
	if err := cli.ContainerKill(killCtx, id, "SIGINT"); err != nil && !cerrdefs.IsNotFound(err) {
		log.Ctx(ctx).Warn().Err(err).Str("container", id).Msg("failed to interrupt container")
	}
	statusCh, errCh := cli.ContainerWait(killCtx, id, container.WaitConditionNotRunning)
	select {
	case <-statusCh:
	case <-errCh:
	case <-killCtx.Done():
	}
	return types.ExitStatus{Code: InterruptedExitCode, Interrupted: true}
}

func (a DockerRuntimeAdapter) drainOutput(ctx context.Context, done <-chan error) {
	select {
	case err := <-done:
		if err != nil && err != io.EOF {
			log.Ctx(ctx).Debug().Err(err).Msg("output stream closed with error")
		}
	case <-time.After(containerStopGrace):
		log.Ctx(ctx).Warn().Msg("timed out waiting for container output")
	}
}

func (a DockerRuntimeAdapter) ensureImage(ctx context.Context, cli dockerAPI, ref string) error {
	if _, err := cli.ImageInspect(ctx, ref); err == nil {
		return nil
	} else if !cerrdefs.IsNotFound(err) {
		return err
	}
	log.Ctx(ctx).Info().Str("image", ref).Msg("pulling image")
	progress, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer progress.Close()
	_, err = io.Copy(io.Discard, progress)
	return err
}

func toDockerMounts(mounts []types.Mount) []mount.Mount {
	result := make([]mount.Mount, 0, len(mounts))
	for _, m := range mounts {
		result = append(result, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}
	return result
}

func launchError(descriptor types.BuildEnvironmentDescriptor, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to launch environment %s (%s)", descriptor.Environment, descriptor.Image)).
		WithCause(cause)
}

func boolPtr(value bool) *bool {
	return &value
}

var _ ports.ContainerRuntimePort = DockerRuntimeAdapter{}
