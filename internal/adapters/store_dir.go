package adapters

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// StoreDirAdapter reads published bundles from a directory laid out like the
// remote store: <root>/<name>/<version>/<name>.tar.gz with an optional
// sha256 sibling.
type StoreDirAdapter struct {
	Root string
}

func NewStoreDirAdapter(root string) StoreDirAdapter {
	return StoreDirAdapter{Root: root}
}

func (a StoreDirAdapter) Fetch(_ context.Context, name string, version string) (types.ArtifactBundle, error) {
	if strings.TrimSpace(a.Root) == "" {
		return types.ArtifactBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("artifact store directory is empty")
	}
	if err := validateArtifactKey(name, version); err != nil {
		return types.ArtifactBundle{}, err
	}
	path := filepath.Join(a.Root, name, version, name+".tar.gz")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.ArtifactBundle{}, artifactNotFound(name, version, err)
		}
		return types.ArtifactBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("fetch failed for %s %s", name, version)).
			WithCause(err)
	}
	expected, err := readDigestFile(path + ".sha256")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return types.ArtifactBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read bundle digest").
			WithCause(err)
	}
	actual, err := hashFile(path)
	if err != nil {
		return types.ArtifactBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("fetch failed for %s %s", name, version)).
			WithCause(err)
	}
	if expected != "" && !strings.EqualFold(expected, actual) {
		return types.ArtifactBundle{}, integrityError(name, version)
	}
	return types.ArtifactBundle{Name: name, Version: version, Path: path, Digest: actual}, nil
}

func artifactNotFound(name string, version string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("artifact not found: %s %s", name, version)).
		WithCause(cause)
}

var _ ports.ArtifactStorePort = StoreDirAdapter{}
