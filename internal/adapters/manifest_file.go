package adapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// manifestDocument is the on-disk shape. Values stay strings so that both
// "5" and 5 decode, and "name=label" stash references survive a round trip.
type manifestDocument struct {
	Name            string            `yaml:"name" json:"name"`
	Dependencies    map[string]string `yaml:"dependencies" json:"dependencies"`
	DevDependencies map[string]string `yaml:"devDependencies" json:"devDependencies"`
	Environment     string            `yaml:"environment,omitempty" json:"environment,omitempty"`
}

type ManifestFileAdapter struct{}

func NewManifestFileAdapter() ManifestFileAdapter {
	return ManifestFileAdapter{}
}

func (a ManifestFileAdapter) Load(path string) (types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Manifest{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("manifest not found: %s", path)).
				WithCause(err)
		}
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read manifest").
			WithCause(err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return types.Manifest{}, malformedManifest(path, errors.New("document is empty"))
	}
	// JSON is a subset of YAML, so one decoder serves both formats.
	var doc manifestDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return types.Manifest{}, malformedManifest(path, err)
	}
	manifest := types.Manifest{
		Name:            strings.TrimSpace(doc.Name),
		Environment:     strings.TrimSpace(doc.Environment),
		Dependencies:    map[string]types.VersionRef{},
		DevDependencies: map[string]types.VersionRef{},
	}
	if err := decodeRefs(doc.Dependencies, manifest.Dependencies); err != nil {
		return types.Manifest{}, malformedManifest(path, err)
	}
	if err := decodeRefs(doc.DevDependencies, manifest.DevDependencies); err != nil {
		return types.Manifest{}, malformedManifest(path, err)
	}
	return manifest, nil
}

func (a ManifestFileAdapter) Save(path string, manifest types.Manifest) error {
	data, err := a.encode(path, manifest)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, 0644)
}

func (a ManifestFileAdapter) Serialize(manifest types.Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(toDocument(manifest), "", "  ")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to serialize manifest").
			WithCause(err)
	}
	return append(data, '\n'), nil
}

func (a ManifestFileAdapter) encode(path string, manifest types.Manifest) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(toDocument(manifest))
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to serialize manifest").
				WithCause(err)
		}
		return data, nil
	default:
		return a.Serialize(manifest)
	}
}

func toDocument(manifest types.Manifest) manifestDocument {
	doc := manifestDocument{
		Name:            manifest.Name,
		Environment:     manifest.Environment,
		Dependencies:    map[string]string{},
		DevDependencies: map[string]string{},
	}
	for name, ref := range manifest.Dependencies {
		doc.Dependencies[name] = shared.FormatVersionRef(name, ref)
	}
	for name, ref := range manifest.DevDependencies {
		doc.DevDependencies[name] = shared.FormatVersionRef(name, ref)
	}
	return doc
}

func decodeRefs(raw map[string]string, into map[string]types.VersionRef) error {
	for _, name := range shared.SortedKeys(raw) {
		ref, err := shared.ParseVersionRef(name, raw[name])
		if err != nil {
			return err
		}
		into[name] = ref
	}
	return nil
}

func malformedManifest(path string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("malformed manifest %s: %v", path, cause)).
		WithCause(cause)
}

var _ ports.ManifestPort = ManifestFileAdapter{}
