package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

type InstallerCore struct {
	Store     ports.ArtifactStorePort
	Stash     ports.StashPort
	Tree      ports.InputTreePort
	Manifests ports.ManifestPort
	Clock     func() time.Time
}

type InstallOptions struct {
	Force        bool
	Save         bool
	SaveDev      bool
	Manifest     types.Manifest
	ManifestPath string
}

type InstallResult struct {
	Tree      types.InstalledTree
	Installed []string
	Reused    []string
	Saved     bool
}

func NewInstallerCore(store ports.ArtifactStorePort, stash ports.StashPort, tree ports.InputTreePort, manifests ports.ManifestPort) InstallerCore {
	return InstallerCore{
		Store:     store,
		Stash:     stash,
		Tree:      tree,
		Manifests: manifests,
		Clock:     time.Now,
	}
}

// Execute materializes plan into the input tree. Every entry is fetched and
// verified into a staging area before anything in the tree is replaced, so a
// failure leaves the tree and the manifest exactly as they were.
func (i InstallerCore) Execute(ctx context.Context, plan types.InstallPlan, opts InstallOptions) (InstallResult, error) {
	if i.Store == nil || i.Stash == nil || i.Tree == nil {
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("installer requires store, stash and tree ports")
	}
	if (opts.Save || opts.SaveDev) && (i.Manifests == nil || strings.TrimSpace(opts.ManifestPath) == "") {
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("saving requires a manifest path")
	}
	current, err := i.Tree.Read(ctx)
	if err != nil {
		return InstallResult{}, err
	}

	result := InstallResult{}
	var pending []types.PlanEntry
	for _, entry := range plan.Entries {
		if !opts.Force && canReuse(entry, current) {
			log.Ctx(ctx).Info().Str("dependency", entry.Name).Str("version", entry.Ref.Value).Msg("reuse")
			result.Reused = append(result.Reused, entry.Name)
			continue
		}
		pending = append(pending, entry)
	}

	if len(pending) > 0 {
		if err := i.install(ctx, pending); err != nil {
			return InstallResult{}, err
		}
		for _, entry := range pending {
			result.Installed = append(result.Installed, entry.Name)
		}
	}

	if opts.Save || opts.SaveDev {
		updated := pinInstalled(ctx, opts.Manifest, plan, opts.SaveDev)
		if err := i.Manifests.Save(opts.ManifestPath, updated); err != nil {
			return InstallResult{}, err
		}
		result.Saved = true
	}

	result.Tree, err = i.Tree.Read(ctx)
	if err != nil {
		return InstallResult{}, err
	}
	return result, nil
}

func (i InstallerCore) install(ctx context.Context, entries []types.PlanEntry) error {
	staging, err := i.Tree.Stage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := i.Tree.Discard(staging); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("staging", staging).Msg("failed to remove staging area")
		}
	}()

	staged := make([]types.InstalledDependency, 0, len(entries))
	for _, entry := range entries {
		log.Ctx(ctx).Info().Str("dependency", entry.Name).Str("source", entry.Location).Msg("fetch")
		dep, err := i.stage(ctx, staging, entry)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("dependency", entry.Name).Msg("install aborted, input tree left unchanged")
			return err
		}
		staged = append(staged, dep)
	}
	return i.Tree.Commit(ctx, staging, staged)
}

func (i InstallerCore) stage(ctx context.Context, staging string, entry types.PlanEntry) (types.InstalledDependency, error) {
	var expected, actual string
	switch entry.Ref.Kind {
	case types.RefKindStashed:
		stashed, err := i.Stash.Get(ctx, entry.Name, entry.Ref.Value)
		if err != nil {
			return types.InstalledDependency{}, err
		}
		actual, err = i.Tree.StageDirectory(ctx, staging, entry.Name, stashed.Path)
		if err != nil {
			return types.InstalledDependency{}, err
		}
		expected = stashed.Digest
	default:
		bundle, err := i.Store.Fetch(ctx, entry.Name, entry.Ref.Value)
		if err != nil {
			return types.InstalledDependency{}, err
		}
		actual, err = i.Tree.StageBundle(ctx, staging, entry.Name, bundle.Path)
		if err != nil {
			return types.InstalledDependency{}, err
		}
		expected = bundle.Digest
	}
	if expected != "" && !strings.EqualFold(expected, actual) {
		return types.InstalledDependency{}, IntegrityError(entry.Name, entry.Ref)
	}
	return types.InstalledDependency{
		Name:        entry.Name,
		Ref:         entry.Ref,
		Digest:      actual,
		InstalledAt: i.now(),
	}, nil
}

func (i InstallerCore) now() time.Time {
	if i.Clock == nil {
		return time.Now().UTC()
	}
	return i.Clock().UTC()
}

// IntegrityError names the dependency and the version or label that failed
// verification.
func IntegrityError(name string, ref types.VersionRef) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("integrity check failed for %s %s", name, ref))
}

// Stashed entries are always recopied: a label can be restashed at any time.
func canReuse(entry types.PlanEntry, tree types.InstalledTree) bool {
	if entry.Ref.IsStashed() {
		return false
	}
	installed, ok := tree.Dependencies[entry.Name]
	return ok && installed.Ref == entry.Ref
}

// pinInstalled records every planned ref in the manifest. Names already
// declared stay in their current set; new names go to the dev set when
// saveDev is set.
func pinInstalled(ctx context.Context, manifest types.Manifest, plan types.InstallPlan, saveDev bool) types.Manifest {
	updated := manifest
	for _, entry := range plan.Entries {
		if ref, ok := updated.Dependencies[entry.Name]; ok {
			if ref != entry.Ref {
				updated = WithDependency(ctx, updated, entry.Name, entry.Ref, false)
			}
			continue
		}
		if ref, ok := updated.DevDependencies[entry.Name]; ok {
			if ref != entry.Ref {
				updated = WithDependency(ctx, updated, entry.Name, entry.Ref, true)
			}
			continue
		}
		updated = WithDependency(ctx, updated, entry.Name, entry.Ref, saveDev)
	}
	return updated
}
