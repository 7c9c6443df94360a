package app

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/vegizombie/lal-build-manager/internal/core"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// Install resolves the manifest, optionally narrowed to the named
// components, and materializes the result into INPUT. With Save or SaveDev
// the installed pins are written back to the manifest, which is also how a
// new dependency is introduced.
func (s Service) Install(ctx context.Context, req InstallRequest) (InstallResult, error) {
	if req.Save && req.SaveDev {
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("--save and --save-dev are mutually exclusive")
	}
	comp, err := s.locate(req.Dir)
	if err != nil {
		return InstallResult{}, err
	}
	manifest, err := core.ValidateManifest(ctx, comp.Manifest)
	if err != nil {
		return InstallResult{}, err
	}
	overrides, err := core.ParseOverrides(req.Components)
	if err != nil {
		return InstallResult{}, err
	}

	resolver := core.NewResolverCore()
	saving := req.Save || req.SaveDev
	if saving {
		manifest = resolver.DeclareOverrides(ctx, manifest, overrides, req.SaveDev)
	}
	plan, err := resolver.Resolve(ctx, manifest, overrides, req.Dev || req.SaveDev)
	if err != nil {
		return InstallResult{}, err
	}
	if len(overrides) > 0 {
		plan = restrictPlan(plan, overrides)
	}

	installer := core.NewInstallerCore(s.Store, s.Stash, s.tree(comp.inputDir()), s.Manifests)
	if s.Clock != nil {
		installer.Clock = s.Clock
	}
	result, err := installer.Execute(ctx, plan, core.InstallOptions{
		Force:        req.Force,
		Save:         req.Save,
		SaveDev:      req.SaveDev,
		Manifest:     manifest,
		ManifestPath: comp.ManifestPath,
	})
	if err != nil {
		return InstallResult{}, err
	}
	return InstallResult{
		ManifestPath: comp.ManifestPath,
		Installed:    result.Installed,
		Reused:       result.Reused,
		Saved:        result.Saved,
	}, nil
}

// restrictPlan keeps only the entries the caller named explicitly.
func restrictPlan(plan types.InstallPlan, overrides []types.OverrideSpec) types.InstallPlan {
	named := make(map[string]struct{}, len(overrides))
	for _, override := range overrides {
		named[override.Name] = struct{}{}
	}
	restricted := types.InstallPlan{}
	for _, entry := range plan.Entries {
		if _, ok := named[entry.Name]; ok {
			restricted.Entries = append(restricted.Entries, entry)
		}
	}
	return restricted
}
