package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// BundleCacheAdapter keeps downloaded bundles under
// <cache>/globals/<name>/<version>. Published versions are immutable, so a
// verified cached bundle never needs to be fetched again.
type BundleCacheAdapter struct {
	Root string
}

func NewBundleCacheAdapter(cacheRoot string) BundleCacheAdapter {
	return BundleCacheAdapter{Root: filepath.Join(cacheRoot, "globals")}
}

// validateArtifactKey keeps name and version to a single directory level so
// neither the store layout nor the cache can be escaped.
func validateArtifactKey(name string, version string) error {
	if err := validateDependencyName(name); err != nil {
		return err
	}
	if !shared.IsPathSegment(version) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid version for %s: %q", name, version))
	}
	return nil
}

func (c BundleCacheAdapter) bundlePath(name string, version string) string {
	return filepath.Join(c.Root, name, version, name+".tar.gz")
}

// Lookup returns a cached bundle whose content still matches its recorded
// digest. A mismatching entry is evicted.
func (c BundleCacheAdapter) Lookup(ctx context.Context, name string, version string) (types.ArtifactBundle, bool) {
	path := c.bundlePath(name, version)
	recorded, err := readDigestFile(path + ".sha256")
	if err != nil || recorded == "" {
		return types.ArtifactBundle{}, false
	}
	actual, err := hashFile(path)
	if err != nil {
		return types.ArtifactBundle{}, false
	}
	if !strings.EqualFold(actual, recorded) {
		log.Ctx(ctx).Warn().Str("dependency", name).Str("version", version).Msg("evicting corrupt cached bundle")
		_ = os.Remove(path)
		_ = os.Remove(path + ".sha256")
		return types.ArtifactBundle{}, false
	}
	return types.ArtifactBundle{Name: name, Version: version, Path: path, Digest: recorded}, true
}

// Store streams body into the cache. When expected is set the content must
// hash to it, otherwise nothing is kept and an integrity error is returned.
func (c BundleCacheAdapter) Store(name string, version string, body io.Reader, expected string) (types.ArtifactBundle, error) {
	path := c.bundlePath(name, version)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return types.ArtifactBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create cache directory").
			WithCause(err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return types.ArtifactBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create download file").
			WithCause(err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), body); err != nil {
		return types.ArtifactBundle{}, transferError(name, version, err)
	}
	if err := tmp.Close(); err != nil {
		return types.ArtifactBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to close download file").
			WithCause(err)
	}
	actual := hex.EncodeToString(hasher.Sum(nil))
	expected = strings.TrimSpace(expected)
	if expected != "" && !strings.EqualFold(expected, actual) {
		return types.ArtifactBundle{}, integrityError(name, version)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return types.ArtifactBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to store bundle in cache").
			WithCause(err)
	}
	success = true
	if err := writeFileAtomic(path+".sha256", []byte(actual+"\n"), 0644); err != nil {
		return types.ArtifactBundle{}, err
	}
	if expected == "" {
		expected = actual
	}
	return types.ArtifactBundle{Name: name, Version: version, Path: path, Digest: strings.ToLower(expected)}, nil
}

// readDigestFile reads a sha256sum style file: the first field is the digest.
func readDigestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], nil
}

func integrityError(name string, version string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("integrity check failed for %s %s", name, version))
}

func transferError(name string, version string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("transfer interrupted for %s %s", name, version)).
		WithCause(cause)
}
