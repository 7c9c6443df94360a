package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/core"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// Init writes a fresh manifest for the component in req.Dir.
func (s Service) Init(ctx context.Context, req InitRequest) (InitResult, error) {
	dir := strings.TrimSpace(req.Dir)
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return InitResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid component directory").
			WithCause(err)
	}
	path := filepath.Join(root, ManifestFileName)
	if _, err := os.Stat(path); err == nil && !req.Force {
		return InitResult{}, errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("manifest already exists: %s", path))
	}

	environment := strings.TrimSpace(req.Environment)
	if environment != "" {
		if _, ok := core.LookupImage(s.Environments, environment); !ok {
			return InitResult{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("environment not configured: %s", environment))
		}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = filepath.Base(root)
	}
	manifest, err := core.ValidateManifest(ctx, types.Manifest{
		Name:            name,
		Environment:     environment,
		Dependencies:    map[string]types.VersionRef{},
		DevDependencies: map[string]types.VersionRef{},
	})
	if err != nil {
		return InitResult{}, err
	}
	if err := s.Manifests.Save(path, manifest); err != nil {
		return InitResult{}, err
	}
	log.Ctx(ctx).Info().Str("component", name).Str("manifest", path).Msg("initialized")
	return InitResult{ManifestPath: path, Manifest: manifest}, nil
}
