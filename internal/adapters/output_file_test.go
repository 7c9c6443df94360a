package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

func TestOutputFileAdapterWritesBuildRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "OUTPUT")
	record := types.BuildRecord{
		Name:        "media-engine",
		Version:     "12",
		Environment: "centos",
		Container:   types.ContainerImage{Name: "edonusdevelopers/centos_build", Tag: "latest"},
		Tool:        "lal",
		Dependencies: map[string]types.BuildRecord{
			"ciscossl": {
				Name:         "ciscossl",
				Version:      "5",
				Dependencies: map[string]types.BuildRecord{"zlib": {Name: "zlib", Version: "12"}},
			},
			"gtest": {Name: "gtest", Version: "stash:debug"},
		},
	}

	path, err := NewOutputFileAdapter().WriteBuildRecord(dir, record)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "lockfile.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded types.BuildRecord
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	if diff := cmp.Diff(record, decoded); diff != "" {
		t.Fatalf("unexpected build record (-want +got):\n%s", diff)
	}

	read, ok, err := NewOutputFileAdapter().ReadBuildRecord(dir)
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(record, read); diff != "" {
		t.Fatalf("unexpected build record (-want +got):\n%s", diff)
	}
}

func TestOutputFileAdapterReadBuildRecord(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := NewOutputFileAdapter().ReadBuildRecord(dir)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "lockfile.yaml"), []byte("name: [unterminated"), 0644))
	_, _, err = NewOutputFileAdapter().ReadBuildRecord(dir)
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestOutputFileAdapterRejectsEmptyDir(t *testing.T) {
	_, err := NewOutputFileAdapter().WriteBuildRecord("", types.BuildRecord{Name: "x"})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
