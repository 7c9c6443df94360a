package core

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

func TestValidateManifest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *types.Manifest)
		wantErr string
	}{
		{name: "valid", mutate: func(m *types.Manifest) {}},
		{
			name:    "missing name",
			mutate:  func(m *types.Manifest) { m.Name = "" },
			wantErr: "manifest name is required",
		},
		{
			name:    "duplicate across sets",
			mutate:  func(m *types.Manifest) { m.DevDependencies["ciscossl"] = types.Published("5") },
			wantErr: "duplicate dependency name: ciscossl",
		},
		{
			name:    "reserved environment",
			mutate:  func(m *types.Manifest) { m.Environment = "default" },
			wantErr: "invalid environment name",
		},
		{
			name:    "empty version",
			mutate:  func(m *types.Manifest) { m.Dependencies["zlib"] = types.Published("") },
			wantErr: "empty version for dependency zlib",
		},
		{
			name:    "version climbing out of the store",
			mutate:  func(m *types.Manifest) { m.Dependencies["zlib"] = types.Published("../../x") },
			wantErr: "invalid version for dependency zlib",
		},
		{
			name:    "stash label with separator",
			mutate:  func(m *types.Manifest) { m.Dependencies["gtest"] = types.Stashed("a/b") },
			wantErr: "invalid version for dependency gtest",
		},
		{
			name:    "dependency name with separator",
			mutate:  func(m *types.Manifest) { m.Dependencies["../zlib"] = types.Published("1") },
			wantErr: "invalid dependency name",
		},
		{
			name:   "empty environment is allowed until a build",
			mutate: func(m *types.Manifest) { m.Environment = "" },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			manifest := sampleManifest()
			tc.mutate(&manifest)
			_, err := ValidateManifest(t.Context(), manifest)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRequireEnvironment(t *testing.T) {
	manifest := sampleManifest()
	require.NoError(t, RequireEnvironment(manifest))

	manifest.Environment = ""
	err := RequireEnvironment(manifest)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestWithDependencyIsPure(t *testing.T) {
	original := sampleManifest()
	updated := WithDependency(t.Context(), original, "ciscossl", types.Published("6"), false)

	assert.Equal(t, types.Published("5"), original.Dependencies["ciscossl"])
	assert.Equal(t, types.Published("6"), updated.Dependencies["ciscossl"])
}

func TestWithDependencyMovesBetweenSets(t *testing.T) {
	updated := WithDependency(t.Context(), sampleManifest(), "mockserver", types.Published("9"), false)
	assert.Contains(t, updated.Dependencies, "mockserver")
	assert.NotContains(t, updated.DevDependencies, "mockserver")

	_, err := ValidateManifest(t.Context(), updated)
	require.NoError(t, err)
}

func TestWithoutDependency(t *testing.T) {
	updated, err := WithoutDependency(sampleManifest(), "mockserver", true)
	require.NoError(t, err)
	assert.Empty(t, updated.DevDependencies)

	_, err = WithoutDependency(sampleManifest(), "mockserver", false)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "component not found in manifest: mockserver")
}
