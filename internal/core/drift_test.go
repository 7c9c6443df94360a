package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

func installed(refs map[string]types.VersionRef) types.InstalledTree {
	tree := types.InstalledTree{Root: "INPUT", Dependencies: map[string]types.InstalledDependency{}}
	for name, ref := range refs {
		tree.Dependencies[name] = types.InstalledDependency{Name: name, Ref: ref}
	}
	return tree
}

func TestDiffPartitionsDrift(t *testing.T) {
	tree := installed(map[string]types.VersionRef{
		"ciscossl":   types.Published("4"),
		"gtest":      types.Stashed("debug"),
		"openssl":    types.Published("1"),
		"mockserver": types.Published("9"),
	})
	got := Diff(sampleManifest(), tree, true)
	want := []types.DriftEntry{
		{Name: "ciscossl", Kind: types.DriftKindMismatched, Declared: types.Published("5"), Installed: types.Published("4")},
		{Name: "libwebsockets", Kind: types.DriftKindMissing, Declared: types.Published("2")},
		{Name: "openssl", Kind: types.DriftKindExtra, Installed: types.Published("1")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected drift (-want +got):\n%s", diff)
	}
}

func TestDiffEmptyWhenInSync(t *testing.T) {
	tree := installed(DeclaredDependencies(sampleManifest(), true))
	assert.Empty(t, Diff(sampleManifest(), tree, true))
}

func TestDiffDevDependenciesOptional(t *testing.T) {
	tree := installed(DeclaredDependencies(sampleManifest(), false))
	assert.Empty(t, Diff(sampleManifest(), tree, false))

	drift := Diff(sampleManifest(), tree, true)
	assert.Equal(t, []types.DriftEntry{{Name: "mockserver", Kind: types.DriftKindMissing, Declared: types.Published("9")}}, drift)
}

func TestStashedDependencies(t *testing.T) {
	tree := installed(DeclaredDependencies(sampleManifest(), true))
	assert.Equal(t, []string{"gtest"}, StashedDependencies(tree))
}

func TestDescribeDrift(t *testing.T) {
	line := DescribeDrift(types.DriftEntry{Name: "ciscossl", Kind: types.DriftKindMismatched, Declared: types.Published("5"), Installed: types.Stashed("asan")})
	assert.Equal(t, "ciscossl: installed stash:asan, declared 5", line)
}
