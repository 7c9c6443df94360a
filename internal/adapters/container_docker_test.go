package adapters

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

type fakeDocker struct {
	mu           sync.Mutex
	imagePresent bool
	pulled       []string
	config       *container.Config
	hostConfig   *container.HostConfig
	stdout       string
	stderr       string
	exitCode     int64
	blockExit    bool
	onStart      func()
	killed       []string
	removed      bool
	exitCh       chan container.WaitResponse
}

func newFakeDocker() *fakeDocker {
	return &fakeDocker{imagePresent: true, exitCh: make(chan container.WaitResponse, 1)}
}

func (f *fakeDocker) ImageInspect(_ context.Context, ref string, _ ...client.ImageInspectOption) (image.InspectResponse, error) {
	if !f.imagePresent {
		return image.InspectResponse{}, cerrdefs.ErrNotFound
	}
	return image.InspectResponse{ID: ref}, nil
}

func (f *fakeDocker) ImagePull(_ context.Context, ref string, _ image.PullOptions) (io.ReadCloser, error) {
	f.pulled = append(f.pulled, ref)
	return io.NopCloser(strings.NewReader("{\"status\":\"done\"}\n")), nil
}

func (f *fakeDocker) ContainerCreate(_ context.Context, config *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	f.config = config
	f.hostConfig = hostConfig
	return container.CreateResponse{ID: "c0ffee"}, nil
}

func (f *fakeDocker) ContainerAttach(_ context.Context, _ string, _ container.AttachOptions) (dockertypes.HijackedResponse, error) {
	local, remote := net.Pipe()
	go func() {
		defer remote.Close()
		if f.stdout != "" {
			_, _ = stdcopy.NewStdWriter(remote, stdcopy.Stdout).Write([]byte(f.stdout))
		}
		if f.stderr != "" {
			_, _ = stdcopy.NewStdWriter(remote, stdcopy.Stderr).Write([]byte(f.stderr))
		}
	}()
	return dockertypes.HijackedResponse{Conn: local, Reader: bufio.NewReader(local)}, nil
}

func (f *fakeDocker) ContainerStart(_ context.Context, _ string, _ container.StartOptions) error {
	if f.onStart != nil {
		f.onStart()
	}
	if !f.blockExit {
		f.exitCh <- container.WaitResponse{StatusCode: f.exitCode}
	}
	return nil
}

func (f *fakeDocker) ContainerWait(_ context.Context, _ string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	if condition == container.WaitConditionNotRunning {
		done := make(chan container.WaitResponse, 1)
		done <- container.WaitResponse{StatusCode: 130}
		return done, make(chan error)
	}
	return f.exitCh, make(chan error)
}

func (f *fakeDocker) ContainerKill(_ context.Context, _ string, signal string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, signal)
	return nil
}

func (f *fakeDocker) ContainerResize(context.Context, string, container.ResizeOptions) error {
	return nil
}

func (f *fakeDocker) ContainerRemove(_ context.Context, _ string, options container.RemoveOptions) error {
	f.removed = options.Force
	return nil
}

func (f *fakeDocker) Close() error {
	return nil
}

func runtimeWith(fake *fakeDocker, stdout io.Writer, stderr io.Writer) DockerRuntimeAdapter {
	return DockerRuntimeAdapter{
		Stdin:     bytes.NewReader(nil),
		Stdout:    stdout,
		Stderr:    stderr,
		newClient: func() (dockerAPI, error) { return fake, nil },
	}
}

func sampleDescriptor() types.BuildEnvironmentDescriptor {
	return types.BuildEnvironmentDescriptor{
		Environment: "centos",
		Image:       "edonusdevelopers/centos_build:latest",
		Mounts: []types.Mount{
			{Source: "/work/media-engine", Target: "/volume"},
			{Source: "/work/media-engine/INPUT", Target: "/volume/INPUT", ReadOnly: true},
		},
		WorkingDir: "/volume",
		User:       "1000:1000",
		Command:    []string{"./BUILD", "media-engine"},
		Mode:       types.CommandModeOneShot,
	}
}

func TestDockerRuntimeAdapter_RunPropagatesExitAndOutput(t *testing.T) {
	fake := newFakeDocker()
	fake.stdout = "compiling\n"
	fake.stderr = "warning: deprecated\n"
	fake.exitCode = 3
	var stdout, stderr bytes.Buffer

	status, err := runtimeWith(fake, &stdout, &stderr).Run(t.Context(), sampleDescriptor())
	require.NoError(t, err)
	assert.Equal(t, types.ExitStatus{Code: 3}, status)
	assert.Equal(t, "compiling\n", stdout.String())
	assert.Equal(t, "warning: deprecated\n", stderr.String())

	assert.Equal(t, []string{"./BUILD", "media-engine"}, []string(fake.config.Cmd))
	assert.Equal(t, "/volume", fake.config.WorkingDir)
	assert.Equal(t, "1000:1000", fake.config.User)
	assert.False(t, fake.config.Tty)
	assert.Equal(t, []mount.Mount{
		{Type: mount.TypeBind, Source: "/work/media-engine", Target: "/volume"},
		{Type: mount.TypeBind, Source: "/work/media-engine/INPUT", Target: "/volume/INPUT", ReadOnly: true},
	}, fake.hostConfig.Mounts)
	require.NotNil(t, fake.hostConfig.Init)
	assert.True(t, *fake.hostConfig.Init)
	assert.True(t, fake.removed)
	assert.Empty(t, fake.pulled)
}

func TestDockerRuntimeAdapter_PullsMissingImage(t *testing.T) {
	fake := newFakeDocker()
	fake.imagePresent = false

	status, err := runtimeWith(fake, io.Discard, io.Discard).Run(t.Context(), sampleDescriptor())
	require.NoError(t, err)
	assert.True(t, status.Success())
	assert.Equal(t, []string{"edonusdevelopers/centos_build:latest"}, fake.pulled)
}

func TestDockerRuntimeAdapter_InterruptForwardsSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	fake := newFakeDocker()
	fake.blockExit = true
	fake.onStart = cancel

	status, err := runtimeWith(fake, io.Discard, io.Discard).Run(ctx, sampleDescriptor())
	require.NoError(t, err)
	assert.Equal(t, types.ExitStatus{Code: InterruptedExitCode, Interrupted: true}, status)
	assert.Equal(t, []string{"SIGINT"}, fake.killed)
	assert.True(t, fake.removed)
}

func TestDockerRuntimeAdapter_LaunchFailure(t *testing.T) {
	runtime := DockerRuntimeAdapter{
		newClient: func() (dockerAPI, error) { return nil, assert.AnError },
	}
	_, err := runtime.Run(t.Context(), sampleDescriptor())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to launch environment centos")
}
