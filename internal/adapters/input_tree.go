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
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// sidecarFileName records which ref is installed. It lives inside the
// dependency directory so one rename publishes content and record together.
const sidecarFileName = ".lalinstall.yaml"

type InputTreeAdapter struct {
	Root string
}

func NewInputTreeAdapter(root string) InputTreeAdapter {
	return InputTreeAdapter{Root: root}
}

func (a InputTreeAdapter) Read(ctx context.Context) (types.InstalledTree, error) {
	tree := types.InstalledTree{Root: a.Root, Dependencies: map[string]types.InstalledDependency{}}
	entries, err := os.ReadDir(a.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return tree, nil
		}
		return types.InstalledTree{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read input tree").
			WithCause(err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || shared.IsHiddenName(entry.Name()) {
			continue
		}
		dep, err := readSidecar(filepath.Join(a.Root, entry.Name(), sidecarFileName))
		if errors.Is(err, fs.ErrNotExist) {
			log.Ctx(ctx).Warn().Str("dependency", entry.Name()).Msg("installed dependency has no install record")
			tree.Dependencies[entry.Name()] = types.InstalledDependency{Name: entry.Name()}
			continue
		}
		if err != nil {
			return types.InstalledTree{}, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("corrupt install record for %s; remove %s and install again", entry.Name(), a.Root)).
				WithCause(err)
		}
		dep.Name = entry.Name()
		tree.Dependencies[entry.Name()] = dep
	}
	return tree, nil
}

func (a InputTreeAdapter) Stage(ctx context.Context) (string, error) {
	if err := os.MkdirAll(a.Root, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create input tree").
			WithCause(err)
	}
	staging, err := os.MkdirTemp(a.Root, ".staging-")
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create staging area").
			WithCause(err)
	}
	log.Ctx(ctx).Debug().Str("staging", staging).Msg("staging area created")
	return staging, nil
}

func (a InputTreeAdapter) StageBundle(_ context.Context, staging string, name string, bundlePath string) (string, error) {
	dest, err := a.stagedPath(staging, name)
	if err != nil {
		return "", err
	}
	return unpackBundle(bundlePath, dest)
}

func (a InputTreeAdapter) StageDirectory(_ context.Context, staging string, name string, sourceDir string) (string, error) {
	dest, err := a.stagedPath(staging, name)
	if err != nil {
		return "", err
	}
	if err := copyTree(sourceDir, dest); err != nil {
		return "", err
	}
	return digestTree(dest)
}

// Commit writes each sidecar and swaps the staged directories into place.
// Replaced directories are parked in a trash area until every swap has
// succeeded; on failure they are moved back.
func (a InputTreeAdapter) Commit(ctx context.Context, staging string, deps []types.InstalledDependency) error {
	for _, dep := range deps {
		staged, err := a.stagedPath(staging, dep.Name)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(dep)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to encode install record").
				WithCause(err)
		}
		if err := writeFileAtomic(filepath.Join(staged, sidecarFileName), data, 0644); err != nil {
			return err
		}
	}

	trash := filepath.Join(a.Root, ".trash-"+uuid.NewString())
	var swapped []swapRecord
	for _, dep := range deps {
		record := swapRecord{name: dep.Name, final: filepath.Join(a.Root, dep.Name)}
		if pathExists(record.final) {
			if err := os.MkdirAll(trash, 0755); err != nil {
				return a.rollback(ctx, swapped, trash, err)
			}
			record.parked = filepath.Join(trash, dep.Name)
			if err := os.Rename(record.final, record.parked); err != nil {
				return a.rollback(ctx, swapped, trash, err)
			}
		}
		swapped = append(swapped, record)
		if err := os.Rename(filepath.Join(staging, dep.Name), record.final); err != nil {
			return a.rollback(ctx, swapped, trash, err)
		}
		log.Ctx(ctx).Debug().Str("dependency", dep.Name).Str("ref", dep.Ref.String()).Msg("installed")
	}
	if err := os.RemoveAll(trash); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("trash", trash).Msg("failed to remove replaced dependencies")
	}
	return nil
}

type swapRecord struct {
	name   string
	final  string
	parked string
}

func (a InputTreeAdapter) rollback(ctx context.Context, swapped []swapRecord, trash string, cause error) error {
	for i := len(swapped) - 1; i >= 0; i-- {
		record := swapped[i]
		if err := os.RemoveAll(record.final); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("dependency", record.name).Msg("rollback failed")
			continue
		}
		if record.parked == "" {
			continue
		}
		if err := os.Rename(record.parked, record.final); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("dependency", record.name).Msg("rollback failed")
		}
	}
	_ = os.RemoveAll(trash)
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("incomplete install: input tree restored to its previous state").
		WithCause(cause)
}

func (a InputTreeAdapter) Discard(staging string) error {
	if strings.TrimSpace(staging) == "" {
		return nil
	}
	return os.RemoveAll(staging)
}

func (a InputTreeAdapter) Remove(ctx context.Context, names []string) ([]string, error) {
	var removed []string
	for _, name := range names {
		path, err := a.dependencyPath(name)
		if err != nil {
			return removed, err
		}
		if !pathExists(path) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return removed, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to remove %s", path)).
				WithCause(err)
		}
		log.Ctx(ctx).Debug().Str("dependency", name).Msg("removed")
		removed = append(removed, name)
	}
	return removed, nil
}

func (a InputTreeAdapter) stagedPath(staging string, name string) (string, error) {
	if err := validateDependencyName(name); err != nil {
		return "", err
	}
	return filepath.Join(staging, name), nil
}

func (a InputTreeAdapter) dependencyPath(name string) (string, error) {
	if err := validateDependencyName(name); err != nil {
		return "", err
	}
	return filepath.Join(a.Root, name), nil
}

func validateDependencyName(name string) error {
	if strings.TrimSpace(name) == "" || shared.IsHiddenName(name) || strings.ContainsAny(name, "/\\") {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid dependency name: %q", name))
	}
	return nil
}

func readSidecar(path string) (types.InstalledDependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.InstalledDependency{}, err
	}
	var dep types.InstalledDependency
	if err := yaml.Unmarshal(data, &dep); err != nil {
		return types.InstalledDependency{}, err
	}
	return dep, nil
}

var _ ports.InputTreePort = InputTreeAdapter{}
