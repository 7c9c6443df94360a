//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vegizombie/lal-build-manager/internal/app"
	"github.com/vegizombie/lal-build-manager/internal/types"
	"github.com/vegizombie/lal-build-manager/tests/testutil"
)

const storeRoot = "/srv/artifacts"

func TestInstallFromHTTPStoreWithTestcontainers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers test in short mode")
	}

	ctx := t.Context()
	staging := t.TempDir()
	gtestBundle := filepath.Join(staging, "gtest.tar.gz")
	digest := testutil.WriteBundle(t, "gtest", "gtest 7", gtestBundle)
	digestFile := filepath.Join(staging, "gtest.tar.gz.sha256")
	require.NoError(t, os.WriteFile(digestFile, []byte(digest+"  gtest.tar.gz\n"), 0644))
	sslBundle := filepath.Join(staging, "ciscossl.tar.gz")
	testutil.WriteBundle(t, "ciscossl", "ciscossl 5", sslBundle)

	endpoint, cleanup := startArtifactStore(ctx, t, map[string]string{
		gtestBundle: storeRoot + "/gtest/7/gtest.tar.gz",
		digestFile:  storeRoot + "/gtest/7/gtest.tar.gz.sha256",
		sslBundle:   storeRoot + "/ciscossl/5/ciscossl.tar.gz",
	})
	t.Cleanup(cleanup)

	component := testutil.NewComponent(t, types.Manifest{
		Name:        "media-engine",
		Environment: "alpine",
		Dependencies: map[string]types.VersionRef{
			"gtest":    types.Published("7"),
			"ciscossl": types.Published("5"),
		},
	})

	cfg := app.DefaultConfig(t.TempDir())
	cfg.CacheDir = t.TempDir()
	cfg.Store.Endpoint = endpoint
	cfg.Store.TimeoutSec = 10
	cfg.Store.Retries = 2
	cfg.Store.RetryDelayMs = 100
	cfg.Environments = map[string]string{"alpine": "alpine:3.20"}
	service, err := app.NewService(cfg)
	require.NoError(t, err)

	result, err := service.Install(ctx, app.InstallRequest{Dir: component})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"ciscossl", "gtest"}, result.Installed)

	data, err := os.ReadFile(filepath.Join(component, app.InputDirName, "gtest", "gtest.txt"))
	require.NoError(t, err)
	require.Equal(t, "gtest 7", string(data))

	verify, err := service.Verify(ctx, app.VerifyRequest{Dir: component})
	require.NoError(t, err)
	require.Equal(t, 2, verify.Checked)

	_, err = service.Install(ctx, app.InstallRequest{Dir: component, Components: []string{"gtest=8"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "gtest")
}

func startArtifactStore(ctx context.Context, t *testing.T, files map[string]string) (string, func()) {
	t.Helper()
	var containerFiles []testcontainers.ContainerFile
	for host, target := range files {
		containerFiles = append(containerFiles, testcontainers.ContainerFile{
			HostFilePath:      host,
			ContainerFilePath: target,
			FileMode:          0644,
		})
	}
	req := testcontainers.ContainerRequest{
		Image:        "python:3.12-alpine",
		ExposedPorts: []string{"8081/tcp"},
		Files:        containerFiles,
		Cmd:          []string{"python", "-m", "http.server", "8081", "--directory", storeRoot},
		WaitingFor:   wait.ForListeningPort("8081/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8081/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(context.Background())
	}
	return endpoint, cleanup
}
