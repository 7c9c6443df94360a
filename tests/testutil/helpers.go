// Package testutil provides shared test helpers used by the integration
// tests.
package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegizombie/lal-build-manager/internal/adapters"
	"github.com/vegizombie/lal-build-manager/internal/app"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// NewComponent creates a component checkout (a directory with a .git
// marker) holding the given manifest and returns its root.
func NewComponent(t *testing.T, manifest types.Manifest) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), manifest.Name)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	require.NoError(t, adapters.NewManifestFileAdapter().Save(filepath.Join(root, app.ManifestFileName), manifest))
	return root
}

// WriteBundle packs a single file named <name>.txt holding content into a
// gzip tarball at dest and returns the bundle's sha256.
func WriteBundle(t *testing.T, name string, content string, dest string) string {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, name+".txt"), []byte(content), 0644))
	require.NoError(t, adapters.NewArchiveAdapter().PackDirectory(src, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
