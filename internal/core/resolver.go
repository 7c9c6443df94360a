package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

type ResolverCore struct{}

func NewResolverCore() ResolverCore {
	return ResolverCore{}
}

// Resolve picks one source per dependency: the override when one names the
// dependency, otherwise the declared pin. Overrides may target dev
// dependencies even when they are not otherwise selected.
func (r ResolverCore) Resolve(ctx context.Context, manifest types.Manifest, overrides []types.OverrideSpec, includeDev bool) (types.InstallPlan, error) {
	selected := DeclaredDependencies(manifest, includeDev)
	declared := DeclaredDependencies(manifest, true)

	overrideMap, err := mapOverrides(overrides)
	if err != nil {
		return types.InstallPlan{}, err
	}
	for _, name := range shared.SortedKeys(overrideMap) {
		if _, ok := declared[name]; !ok {
			return types.InstallPlan{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unknown override target: %s", name))
		}
		ref := overrideMap[name]
		if current, ok := selected[name]; ok && current != ref {
			log.Ctx(ctx).Debug().
				Str("dependency", name).
				Str("declared", current.String()).
				Str("override", ref.String()).
				Msg("override applied")
		}
		selected[name] = ref
	}

	plan := types.InstallPlan{Entries: make([]types.PlanEntry, 0, len(selected))}
	for name, ref := range selected {
		plan.Entries = append(plan.Entries, planEntry(name, ref))
	}
	sort.Slice(plan.Entries, func(i, j int) bool {
		return plan.Entries[i].Name < plan.Entries[j].Name
	})
	log.Ctx(ctx).Debug().Int("entries", len(plan.Entries)).Msg("resolver completed")
	return plan, nil
}

// DeclareOverrides adds override targets that the manifest does not declare
// yet, so the save path can introduce new dependencies. Existing pins are
// left alone; Resolve applies the override values.
func (r ResolverCore) DeclareOverrides(ctx context.Context, manifest types.Manifest, overrides []types.OverrideSpec, isDev bool) types.Manifest {
	declared := DeclaredDependencies(manifest, true)
	updated := manifest
	for _, override := range overrides {
		if _, ok := declared[override.Name]; ok {
			continue
		}
		updated = WithDependency(ctx, updated, override.Name, override.Ref, isDev)
		declared[override.Name] = override.Ref
	}
	return updated
}

func mapOverrides(overrides []types.OverrideSpec) (map[string]types.VersionRef, error) {
	result := make(map[string]types.VersionRef, len(overrides))
	for _, override := range overrides {
		if existing, ok := result[override.Name]; ok && existing != override.Ref {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("conflicting overrides for %s: %s and %s", override.Name, existing, override.Ref))
		}
		result[override.Name] = override.Ref
	}
	return result, nil
}

func planEntry(name string, ref types.VersionRef) types.PlanEntry {
	if ref.IsStashed() {
		return types.PlanEntry{
			Name:     name,
			Ref:      ref,
			Source:   types.PlanSourceStash,
			Location: fmt.Sprintf("stash:%s=%s", name, ref.Value),
		}
	}
	return types.PlanEntry{
		Name:     name,
		Ref:      ref,
		Source:   types.PlanSourceRemote,
		Location: fmt.Sprintf("%s/%s", name, ref.Value),
	}
}
