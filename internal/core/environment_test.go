package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

type recordingRuntime struct {
	status types.ExitStatus
	seen   []types.BuildEnvironmentDescriptor
}

func (r *recordingRuntime) Run(_ context.Context, descriptor types.BuildEnvironmentDescriptor) (types.ExitStatus, error) {
	r.seen = append(r.seen, descriptor)
	return r.status, nil
}

func TestDescribeBuildsMounts(t *testing.T) {
	src := t.TempDir()
	env := NewEnvironmentCore(&recordingRuntime{}, map[string]string{"centos": "registry:5000/build/centos"})
	descriptor, err := env.Describe(t.Context(), sampleManifest(), EnvironmentRequest{
		SourceDir: src,
		Command:   []string{"./.lal/BUILD"},
		User:      "1000:1000",
	})
	require.NoError(t, err)

	assert.Equal(t, "registry:5000/build/centos:latest", descriptor.Image)
	assert.Equal(t, types.CommandModeOneShot, descriptor.Mode)
	assert.Equal(t, []types.Mount{
		{Source: src, Target: ContainerWorkDir},
		{Source: filepath.Join(src, "INPUT"), Target: ContainerInputDir, ReadOnly: true},
		{Source: filepath.Join(src, "OUTPUT"), Target: ContainerOutputDir},
	}, descriptor.Mounts)
}

func TestDescribeUnknownEnvironment(t *testing.T) {
	env := NewEnvironmentCore(&recordingRuntime{}, map[string]string{"xenial": "ubuntu:16.04"})
	_, err := env.Describe(t.Context(), sampleManifest(), EnvironmentRequest{SourceDir: t.TempDir(), Command: []string{"true"}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "environment not configured: centos")
}

func TestDescribeMatchesEnvironmentIgnoringCase(t *testing.T) {
	// Config keys arrive lowercased while manifests keep their own spelling.
	env := NewEnvironmentCore(&recordingRuntime{}, map[string]string{"centos": "centos:7"})
	manifest := sampleManifest()
	manifest.Environment = "CentOS"

	descriptor, err := env.Describe(t.Context(), manifest, EnvironmentRequest{SourceDir: t.TempDir(), Command: []string{"true"}})
	require.NoError(t, err)
	assert.Equal(t, "centos:7", descriptor.Image)
	assert.Equal(t, "CentOS", descriptor.Environment)
}

func TestLookupImage(t *testing.T) {
	catalog := map[string]string{"centos": "centos:7", "xenial": "  "}
	tests := []struct {
		name        string
		environment string
		want        string
		found       bool
	}{
		{name: "exact", environment: "centos", want: "centos:7", found: true},
		{name: "mixed case", environment: "CentOS", want: "centos:7", found: true},
		{name: "blank image", environment: "xenial"},
		{name: "unknown", environment: "alpine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image, ok := LookupImage(catalog, tt.environment)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, image)
		})
	}
}

func TestRunPassesExitCodeThrough(t *testing.T) {
	runtime := &recordingRuntime{status: types.ExitStatus{Code: 3}}
	env := NewEnvironmentCore(runtime, map[string]string{"centos": "centos:7"})
	descriptor, err := env.Describe(t.Context(), sampleManifest(), EnvironmentRequest{SourceDir: t.TempDir(), Command: []string{"make"}})
	require.NoError(t, err)

	status, err := env.Run(t.Context(), descriptor)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Code)
	assert.False(t, status.Success())
	require.Len(t, runtime.seen, 1)
}

func TestNormalizeImage(t *testing.T) {
	cases := map[string]string{
		"centos":                      "centos:latest",
		"centos:7":                    "centos:7",
		"registry:5000/team/centos":   "registry:5000/team/centos:latest",
		"registry:5000/team/centos:1": "registry:5000/team/centos:1",
		"alpine@sha256:abc":           "alpine@sha256:abc",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeImage(in), in)
	}
	assert.Equal(t, types.ContainerImage{Name: "registry:5000/team/centos", Tag: "latest"}, SplitImage("registry:5000/team/centos"))
}
