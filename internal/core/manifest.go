package core

import (
	"context"
	"fmt"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// ReservedEnvironment cannot be used as a manifest environment.
const ReservedEnvironment = "default"

func ValidateManifest(ctx context.Context, manifest types.Manifest) (types.Manifest, error) {
	if strings.TrimSpace(manifest.Name) == "" {
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest name is required")
	}
	for _, group := range []map[string]types.VersionRef{manifest.Dependencies, manifest.DevDependencies} {
		for _, name := range shared.SortedKeys(group) {
			if err := validateDependency(name, group[name]); err != nil {
				return types.Manifest{}, err
			}
		}
	}
	for _, name := range shared.SortedKeys(manifest.Dependencies) {
		if _, ok := manifest.DevDependencies[name]; ok {
			return types.Manifest{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("duplicate dependency name: %s", name))
		}
	}
	if manifest.Environment == ReservedEnvironment {
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid environment name: %s is reserved", ReservedEnvironment))
	}
	log.Ctx(ctx).Debug().
		Str("component", manifest.Name).
		Int("dependencies", len(manifest.Dependencies)).
		Int("dev_dependencies", len(manifest.DevDependencies)).
		Msg("manifest validated")
	return manifest, nil
}

func validateDependency(name string, ref types.VersionRef) error {
	if strings.TrimSpace(name) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("dependency name is empty")
	}
	if strings.TrimSpace(ref.Value) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("empty version for dependency %s", name))
	}
	if !shared.IsPathSegment(name) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid dependency name: %q", name))
	}
	if !shared.IsPathSegment(ref.Value) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid version for dependency %s: %q", name, ref.Value))
	}
	return nil
}

// RequireEnvironment is checked before any build environment is launched.
func RequireEnvironment(manifest types.Manifest) error {
	env := strings.TrimSpace(manifest.Environment)
	if env == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid environment name: %s declares no environment", manifest.Name))
	}
	if env == ReservedEnvironment {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid environment name: %s is reserved", ReservedEnvironment))
	}
	return nil
}

// WithDependency returns a copy of manifest with name pinned to ref in the
// selected set. The name is dropped from the other set so a dependency is
// never declared twice.
func WithDependency(ctx context.Context, manifest types.Manifest, name string, ref types.VersionRef, isDev bool) types.Manifest {
	assert.NotEmpty(ctx, name, "dependency name must be set")
	updated := cloneManifest(manifest)
	if isDev {
		updated.DevDependencies[name] = ref
		delete(updated.Dependencies, name)
	} else {
		updated.Dependencies[name] = ref
		delete(updated.DevDependencies, name)
	}
	return updated
}

func WithoutDependency(manifest types.Manifest, name string, isDev bool) (types.Manifest, error) {
	updated := cloneManifest(manifest)
	target := updated.Dependencies
	if isDev {
		target = updated.DevDependencies
	}
	if _, ok := target[name]; !ok {
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("component not found in manifest: %s", name))
	}
	delete(target, name)
	return updated, nil
}

// DeclaredDependencies merges the regular set with, optionally, the dev set.
func DeclaredDependencies(manifest types.Manifest, includeDev bool) map[string]types.VersionRef {
	merged := make(map[string]types.VersionRef, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name, ref := range manifest.Dependencies {
		merged[name] = ref
	}
	if includeDev {
		for name, ref := range manifest.DevDependencies {
			merged[name] = ref
		}
	}
	return merged
}

func cloneManifest(manifest types.Manifest) types.Manifest {
	updated := manifest
	updated.Dependencies = cloneRefs(manifest.Dependencies)
	updated.DevDependencies = cloneRefs(manifest.DevDependencies)
	return updated
}

func cloneRefs(refs map[string]types.VersionRef) map[string]types.VersionRef {
	cloned := make(map[string]types.VersionRef, len(refs))
	for name, ref := range refs {
		cloned[name] = ref
	}
	return cloned
}
