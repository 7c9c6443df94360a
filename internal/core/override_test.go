package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides([]string{"ciscossl=6", "ciscossl=asan", "zlib=1.2.13", ""})
	require.NoError(t, err)
	want := []types.OverrideSpec{
		{Name: "ciscossl", Ref: types.Published("6")},
		{Name: "ciscossl", Ref: types.Stashed("asan")},
		{Name: "zlib", Ref: types.Published("1.2.13")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected overrides (-want +got):\n%s", diff)
	}
}

func TestParseOverrideRejectsBareName(t *testing.T) {
	for _, raw := range []string{"ciscossl", "=6", "ciscossl="} {
		_, err := ParseOverride(raw)
		require.Error(t, err, raw)
	}
}
