package shared

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

func TestIsPublishedVersion(t *testing.T) {
	cases := map[string]bool{
		"6":      true,
		"12":     true,
		"1.2.3":  true,
		"asan":   false,
		"6a":     false,
		"":       false,
		".1":     false,
		"1.":     false,
		"1..2":   false,
		"v1.2.0": false,
	}
	for value, want := range cases {
		assert.Equal(t, want, IsPublishedVersion(value), value)
	}
}

func TestParseVersionRef(t *testing.T) {
	ref, err := ParseVersionRef("ciscossl", "5")
	require.NoError(t, err)
	assert.Equal(t, types.Published("5"), ref)

	ref, err = ParseVersionRef("ciscossl", "ciscossl=asan")
	require.NoError(t, err)
	assert.Equal(t, types.Stashed("asan"), ref)

	_, err = ParseVersionRef("ciscossl", "openssl=asan")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = ParseVersionRef("ciscossl", "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ciscossl")
}

func TestFormatVersionRefRoundTrip(t *testing.T) {
	for _, ref := range []types.VersionRef{types.Published("7"), types.Stashed("debug")} {
		parsed, err := ParseVersionRef("zlib", FormatVersionRef("zlib", ref))
		require.NoError(t, err)
		assert.Equal(t, ref, parsed)
	}
}

func TestSortedKeys(t *testing.T) {
	keys := SortedKeys(map[string]int{"b": 1, "a": 2, "c": 3})
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}
