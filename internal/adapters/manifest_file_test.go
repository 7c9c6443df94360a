package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

func TestManifestFileAdapter_Load(t *testing.T) {
	want := types.Manifest{
		Name:        "media-engine",
		Environment: "centos",
		Dependencies: map[string]types.VersionRef{
			"ciscossl":      types.Published("5"),
			"libwebsockets": types.Published("2"),
			"gtest":         types.Stashed("debug"),
		},
		DevDependencies: map[string]types.VersionRef{
			"mockserver": types.Published("9"),
		},
	}
	tests := []struct {
		name     string
		fileName string
		content  string
	}{
		{
			name:     "json with string versions",
			fileName: "manifest.json",
			content: `{
  "name": "media-engine",
  "environment": "centos",
  "dependencies": {"ciscossl": "5", "libwebsockets": "2", "gtest": "gtest=debug"},
  "devDependencies": {"mockserver": "9"}
}`,
		},
		{
			name:     "json with numeric versions",
			fileName: "manifest.json",
			content: `{
  "name": "media-engine",
  "environment": "centos",
  "dependencies": {"ciscossl": 5, "libwebsockets": 2, "gtest": "gtest=debug"},
  "devDependencies": {"mockserver": 9}
}`,
		},
		{
			name:     "yaml",
			fileName: "manifest.yaml",
			content: `name: media-engine
environment: centos
dependencies:
  ciscossl: 5
  libwebsockets: "2"
  gtest: gtest=debug
devDependencies:
  mockserver: 9
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.fileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			got, err := NewManifestFileAdapter().Load(path)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("unexpected manifest (-want +got):\n%s", diff)
			}
		})
	}
}

func TestManifestFileAdapter_LoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  *string
		wantCode errbuilder.ErrCode
		wantMsg  string
	}{
		{name: "missing", content: nil, wantCode: errbuilder.CodeNotFound, wantMsg: "manifest not found"},
		{name: "empty", content: strPtr("  \n"), wantCode: errbuilder.CodeInvalidArgument, wantMsg: "malformed manifest"},
		{name: "broken json", content: strPtr(`{"name": "x", "dependencies": {`), wantCode: errbuilder.CodeInvalidArgument, wantMsg: "malformed manifest"},
		{name: "stash prefix mismatch", content: strPtr(`{"name": "x", "dependencies": {"gtest": "other=debug"}}`), wantCode: errbuilder.CodeInvalidArgument, wantMsg: "malformed manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "manifest.json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0644))
			}
			_, err := NewManifestFileAdapter().Load(path)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errbuilder.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestManifestFileAdapter_SaveRoundTrip(t *testing.T) {
	manifest := types.Manifest{
		Name: "media-engine",
		Dependencies: map[string]types.VersionRef{
			"ciscossl": types.Published("5"),
			"gtest":    types.Stashed("debug"),
		},
		DevDependencies: map[string]types.VersionRef{},
	}
	for _, fileName := range []string{"manifest.json", "manifest.yaml"} {
		t.Run(fileName, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), fileName)
			adapter := NewManifestFileAdapter()
			require.NoError(t, adapter.Save(path, manifest))

			got, err := adapter.Load(path)
			require.NoError(t, err)
			if diff := cmp.Diff(manifest, got); diff != "" {
				t.Fatalf("unexpected manifest after save (-want +got):\n%s", diff)
			}
		})
	}
}

func TestManifestFileAdapter_SerializeIsStable(t *testing.T) {
	manifest := types.Manifest{
		Name: "media-engine",
		Dependencies: map[string]types.VersionRef{
			"zlib":     types.Published("1"),
			"ciscossl": types.Published("5"),
		},
	}
	data, err := NewManifestFileAdapter().Serialize(manifest)
	require.NoError(t, err)
	want := `{
  "name": "media-engine",
  "dependencies": {
    "ciscossl": "5",
    "zlib": "1"
  },
  "devDependencies": {}
}
`
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Fatalf("unexpected serialization (-want +got):\n%s", diff)
	}
}

func strPtr(value string) *string {
	return &value
}
