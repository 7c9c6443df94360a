package app

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/core"
)

// Remove deletes installed dependencies. When saving, every name must be
// declared in the chosen set; the manifest is only written once that holds.
func (s Service) Remove(ctx context.Context, req RemoveRequest) (RemoveResult, error) {
	if len(req.Components) == 0 {
		return RemoveResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no components given")
	}
	if req.Save && req.SaveDev {
		return RemoveResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("--save and --save-dev are mutually exclusive")
	}
	comp, err := s.locate(req.Dir)
	if err != nil {
		return RemoveResult{}, err
	}

	result := RemoveResult{}
	if req.Save || req.SaveDev {
		updated := comp.Manifest
		for _, name := range req.Components {
			updated, err = core.WithoutDependency(updated, name, req.SaveDev)
			if err != nil {
				return RemoveResult{}, err
			}
		}
		if err := s.Manifests.Save(comp.ManifestPath, updated); err != nil {
			return RemoveResult{}, err
		}
		result.Saved = true
	}

	removed, err := s.tree(comp.inputDir()).Remove(ctx, req.Components)
	if err != nil {
		return RemoveResult{}, err
	}
	result.Removed = removed
	log.Ctx(ctx).Info().Strs("removed", removed).Bool("saved", result.Saved).Msg("remove completed")
	return result, nil
}
