package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vegizombie/lal-build-manager/internal/adapters"
	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

type fakeRuntime struct {
	status types.ExitStatus
	seen   []types.BuildEnvironmentDescriptor
}

func (f *fakeRuntime) Run(_ context.Context, descriptor types.BuildEnvironmentDescriptor) (types.ExitStatus, error) {
	f.seen = append(f.seen, descriptor)
	return f.status, nil
}

type testEnv struct {
	service   Service
	runtime   *fakeRuntime
	component string
	storeRoot string
}

// newTestEnv wires the service against real filesystem adapters rooted in
// temp directories, with a directory store and a recording runtime.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	hintOutput = io.Discard
	cache := t.TempDir()
	storeRoot := t.TempDir()
	runtime := &fakeRuntime{}
	service := Service{
		Manifests:    adapters.NewManifestFileAdapter(),
		Workspace:    adapters.NewWorkspaceAdapter(),
		Stash:        adapters.NewStashDirAdapter(cache),
		Store:        adapters.NewStoreDirAdapter(storeRoot),
		Runtime:      runtime,
		Archive:      adapters.NewArchiveAdapter(),
		BuildRecords: adapters.NewOutputFileAdapter(),
		Trees: func(root string) ports.InputTreePort {
			return adapters.NewInputTreeAdapter(root)
		},
		Environments: map[string]string{"centos": "edonusdevelopers/centos_build"},
		Commands:     CommandConfig{}.withDefaults(),
		Clock: func() time.Time {
			return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		},
	}
	component := filepath.Join(t.TempDir(), "media-engine")
	require.NoError(t, os.MkdirAll(filepath.Join(component, ".git"), 0755))
	return testEnv{service: service, runtime: runtime, component: component, storeRoot: storeRoot}
}

func (e testEnv) writeManifest(t *testing.T, manifest types.Manifest) {
	t.Helper()
	require.NoError(t, adapters.NewManifestFileAdapter().Save(filepath.Join(e.component, ManifestFileName), manifest))
}

func (e testEnv) readManifest(t *testing.T) types.Manifest {
	t.Helper()
	manifest, err := adapters.NewManifestFileAdapter().Load(filepath.Join(e.component, ManifestFileName))
	require.NoError(t, err)
	return manifest
}

// publish places a bundle for name/version in the directory store.
func (e testEnv) publish(t *testing.T, name string, version string, content string) {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, name+".txt"), []byte(content), 0644))
	dest := filepath.Join(e.storeRoot, name, version, name+".tar.gz")
	require.NoError(t, adapters.NewArchiveAdapter().PackDirectory(src, dest))
}

// publishBuilt places a bundle that ships the build record it was produced
// with, as a component's OUTPUT does.
func (e testEnv) publishBuilt(t *testing.T, name string, version string, record types.BuildRecord) {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, name+".txt"), []byte(name+" v"+version), 0644))
	_, err := adapters.NewOutputFileAdapter().WriteBuildRecord(src, record)
	require.NoError(t, err)
	dest := filepath.Join(e.storeRoot, name, version, name+".tar.gz")
	require.NoError(t, adapters.NewArchiveAdapter().PackDirectory(src, dest))
}

// stash publishes a stash entry for name=label.
func (e testEnv) stash(t *testing.T, name string, label string, content string) {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, name+".txt"), []byte(content), 0644))
	_, err := e.service.Stash.Put(t.Context(), name, label, src)
	require.NoError(t, err)
}

func (e testEnv) installedContent(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.component, InputDirName, name, name+".txt"))
	require.NoError(t, err)
	return string(data)
}

func sampleManifest() types.Manifest {
	return types.Manifest{
		Name:        "media-engine",
		Environment: "centos",
		Dependencies: map[string]types.VersionRef{
			"ciscossl": types.Published("5"),
			"gtest":    types.Stashed("debug"),
		},
		DevDependencies: map[string]types.VersionRef{
			"mockserver": types.Published("9"),
		},
	}
}

func TestNewServiceRejectsUnknownBackend(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.Store.Backend = "ftp"
	_, err := NewService(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported store backend: ftp")
}

func TestNewServiceDefaults(t *testing.T) {
	service, err := NewService(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	require.Equal(t, []string{"./.lal/BUILD"}, service.Commands.Build)
	require.IsType(t, adapters.StoreHTTPAdapter{}, service.Store)
}
