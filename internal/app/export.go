package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/core"
)

// Export writes a dependency as <dir>/<name>.tar.gz: the published bundle
// as fetched, or a tarball of the stash entry.
func (s Service) Export(ctx context.Context, req ExportRequest) (ExportResult, error) {
	spec, err := core.ParseOverride(req.Component)
	if err != nil {
		return ExportResult{}, err
	}
	dir := strings.TrimSpace(req.OutputDir)
	if dir == "" {
		dir = "."
	}
	dest := filepath.Join(dir, spec.Name+".tar.gz")

	if spec.Ref.IsStashed() {
		entry, err := s.Stash.Get(ctx, spec.Name, spec.Ref.Value)
		if err != nil {
			return ExportResult{}, err
		}
		if err := s.Archive.PackDirectory(entry.Path, dest); err != nil {
			return ExportResult{}, err
		}
	} else {
		bundle, err := s.Store.Fetch(ctx, spec.Name, spec.Ref.Value)
		if err != nil {
			return ExportResult{}, err
		}
		if err := s.Archive.CopyBundle(bundle.Path, dest); err != nil {
			return ExportResult{}, err
		}
	}
	log.Ctx(ctx).Info().Str("component", spec.Name).Str("ref", spec.Ref.String()).Str("path", dest).Msg("exported")
	return ExportResult{Path: dest, Ref: spec.Ref}, nil
}
