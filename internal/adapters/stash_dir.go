package adapters

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

const (
	stashObjectsDir   = ".objects"
	stashContentDir   = "content"
	stashMetadataFile = "entry.yaml"
	// Replaced objects are kept this long so a reader that resolved the old
	// label can finish copying.
	stashObjectGrace = 10 * time.Minute
)

type stashMetadata struct {
	Component string    `yaml:"component"`
	Label     string    `yaml:"label"`
	Source    string    `yaml:"source"`
	Digest    string    `yaml:"digest"`
	CreatedAt time.Time `yaml:"created_at"`
}

// StashDirAdapter stores each entry as an immutable object directory and
// publishes it by atomically renaming a symlink named after the label.
//
//	<root>/<component>/<label> -> .objects/<id>
//	<root>/<component>/.objects/<id>/{content/,entry.yaml}
type StashDirAdapter struct {
	Root  string
	Clock func() time.Time
}

func NewStashDirAdapter(cacheRoot string) StashDirAdapter {
	return StashDirAdapter{
		Root:  filepath.Join(cacheRoot, "stash"),
		Clock: time.Now,
	}
}

func (a StashDirAdapter) Put(ctx context.Context, component string, label string, sourceDir string) (types.StashEntry, error) {
	if err := validateStashKey(component, label); err != nil {
		return types.StashEntry{}, err
	}
	source, err := filepath.Abs(sourceDir)
	if err != nil {
		return types.StashEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid stash source").
			WithCause(err)
	}
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		return types.StashEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("nothing to stash: %s is not a directory", sourceDir))
	}

	componentDir := filepath.Join(a.Root, component)
	objectID := uuid.NewString()
	objectRel := filepath.Join(stashObjectsDir, objectID)
	objectDir := filepath.Join(componentDir, objectRel)
	if err := os.MkdirAll(objectDir, 0755); err != nil {
		return types.StashEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create stash object").
			WithCause(err)
	}
	success := false
	defer func() {
		if !success {
			_ = os.RemoveAll(objectDir)
		}
	}()

	contentDir := filepath.Join(objectDir, stashContentDir)
	if err := copyTree(source, contentDir); err != nil {
		return types.StashEntry{}, err
	}
	digest, err := digestTree(contentDir)
	if err != nil {
		return types.StashEntry{}, err
	}
	meta := stashMetadata{
		Component: component,
		Label:     label,
		Source:    source,
		Digest:    digest,
		CreatedAt: a.now(),
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return types.StashEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode stash metadata").
			WithCause(err)
	}
	if err := writeFileAtomic(filepath.Join(objectDir, stashMetadataFile), data, 0644); err != nil {
		return types.StashEntry{}, err
	}

	labelPath := filepath.Join(componentDir, label)
	previous, _ := os.Readlink(labelPath)
	tmpLink := filepath.Join(componentDir, ".link-"+objectID)
	if err := os.Symlink(objectRel, tmpLink); err != nil {
		return types.StashEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage stash entry").
			WithCause(err)
	}
	if err := os.Rename(tmpLink, labelPath); err != nil {
		_ = os.Remove(tmpLink)
		return types.StashEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to publish stash entry %s=%s", component, label)).
			WithCause(err)
	}
	success = true
	log.Ctx(ctx).Info().Str("component", component).Str("label", label).Str("digest", digest).Msg("stashed")

	a.collectGarbage(ctx, componentDir, previous)
	return types.StashEntry{
		Component: component,
		Label:     label,
		Path:      contentDir,
		Source:    source,
		Digest:    digest,
		CreatedAt: meta.CreatedAt,
	}, nil
}

// Get resolves the label once, so the returned path keeps pointing at the
// same immutable object even if the label is restashed afterwards.
func (a StashDirAdapter) Get(ctx context.Context, component string, label string) (types.StashEntry, error) {
	if err := validateStashKey(component, label); err != nil {
		return types.StashEntry{}, err
	}
	componentDir := filepath.Join(a.Root, component)
	target, err := os.Readlink(filepath.Join(componentDir, label))
	if err != nil {
		return types.StashEntry{}, stashNotFound(component, label, err)
	}
	objectDir := filepath.Join(componentDir, target)
	data, err := os.ReadFile(filepath.Join(objectDir, stashMetadataFile))
	if err != nil {
		return types.StashEntry{}, stashNotFound(component, label, err)
	}
	var meta stashMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return types.StashEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("corrupt stash entry %s=%s", component, label)).
			WithCause(err)
	}
	contentDir := filepath.Join(objectDir, stashContentDir)
	if info, err := os.Stat(contentDir); err != nil || !info.IsDir() {
		return types.StashEntry{}, stashNotFound(component, label, err)
	}
	log.Ctx(ctx).Debug().Str("component", component).Str("label", label).Str("object", target).Msg("stash entry resolved")
	return types.StashEntry{
		Component: component,
		Label:     label,
		Path:      contentDir,
		Source:    meta.Source,
		Digest:    meta.Digest,
		CreatedAt: meta.CreatedAt,
	}, nil
}

func (a StashDirAdapter) List(_ context.Context, component string) ([]string, error) {
	if err := validateStashName("component", component); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(a.Root, component))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to list stash").
			WithCause(err)
	}
	var labels []string
	for _, entry := range entries {
		if shared.IsHiddenName(entry.Name()) || entry.Type()&fs.ModeSymlink == 0 {
			continue
		}
		labels = append(labels, entry.Name())
	}
	return labels, nil
}

// collectGarbage removes objects no label points at once their metadata is
// older than the grace period. The object that was just replaced is always
// kept for this round.
func (a StashDirAdapter) collectGarbage(ctx context.Context, componentDir string, justReplaced string) {
	live := map[string]struct{}{}
	if justReplaced != "" {
		live[filepath.Base(justReplaced)] = struct{}{}
	}
	entries, err := os.ReadDir(componentDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.Type()&fs.ModeSymlink == 0 {
			continue
		}
		if target, err := os.Readlink(filepath.Join(componentDir, entry.Name())); err == nil {
			live[filepath.Base(target)] = struct{}{}
		}
	}
	objects, err := os.ReadDir(filepath.Join(componentDir, stashObjectsDir))
	if err != nil {
		return
	}
	cutoff := a.now().Add(-stashObjectGrace)
	for _, object := range objects {
		if _, ok := live[object.Name()]; ok {
			continue
		}
		path := filepath.Join(componentDir, stashObjectsDir, object.Name())
		// entry.yaml is written after the copy finishes, so an object
		// without one may still be filling up.
		info, err := os.Stat(filepath.Join(path, stashMetadataFile))
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("object", path).Msg("failed to remove stale stash object")
		}
	}
}

func (a StashDirAdapter) now() time.Time {
	if a.Clock == nil {
		return time.Now().UTC()
	}
	return a.Clock().UTC()
}

func validateStashKey(component string, label string) error {
	if err := validateStashName("component", component); err != nil {
		return err
	}
	if err := validateStashName("label", label); err != nil {
		return err
	}
	if shared.IsPublishedVersion(label) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid stash label: %s looks like a published version", label))
	}
	return nil
}

func validateStashName(kind string, value string) error {
	if strings.TrimSpace(value) == "" || shared.IsHiddenName(value) || strings.ContainsAny(value, "/\\=") {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid stash %s: %q", kind, value))
	}
	return nil
}

func stashNotFound(component string, label string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("stash entry not found: %s=%s", component, label)).
		WithCause(cause)
}

var _ ports.StashPort = StashDirAdapter{}
