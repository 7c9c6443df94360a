package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/vegizombie/lal-build-manager/internal/core"
	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

func (s Service) Status(ctx context.Context, req StatusRequest) (StatusResult, error) {
	comp, err := s.locate(req.Dir)
	if err != nil {
		return StatusResult{}, err
	}
	tree, err := s.tree(comp.inputDir()).Read(ctx)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{
		Manifest:  comp.Manifest,
		Installed: tree,
		Drift:     core.Diff(comp.Manifest, tree, req.Dev),
	}, nil
}

// Verify passes only for a tree that could be used for a release build:
// it matches the manifest and contains nothing from the stash.
func (s Service) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	comp, err := s.locate(req.Dir)
	if err != nil {
		return VerifyResult{}, err
	}
	if _, err := core.ValidateManifest(ctx, comp.Manifest); err != nil {
		return VerifyResult{}, err
	}
	tree, err := s.tree(comp.inputDir()).Read(ctx)
	if err != nil {
		return VerifyResult{}, err
	}
	if drift := core.Diff(comp.Manifest, tree, req.Dev); len(drift) > 0 {
		return VerifyResult{}, driftError(drift)
	}
	if stashed := core.StashedDependencies(tree); len(stashed) > 0 {
		return VerifyResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("stashed dependencies present: %s", strings.Join(stashed, ", ")))
	}
	deps, err := s.dependencyRecords(comp.inputDir(), tree)
	if err != nil {
		return VerifyResult{}, err
	}
	if conflicts := core.MultipleVersions(deps); len(conflicts) > 0 {
		parts := make([]string, 0, len(conflicts))
		for _, name := range shared.SortedKeys(conflicts) {
			parts = append(parts, fmt.Sprintf("%s (%s)", name, strings.Join(conflicts[name], ", ")))
		}
		return VerifyResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("multiple versions in use: %s", strings.Join(parts, "; ")))
	}
	return VerifyResult{Checked: len(tree.Dependencies)}, nil
}

// dependencyRecords nests the build record each installed artifact shipped
// with, if any.
func (s Service) dependencyRecords(inputDir string, tree types.InstalledTree) (map[string]types.BuildRecord, error) {
	shipped := map[string]types.BuildRecord{}
	for name := range tree.Dependencies {
		record, ok, err := s.BuildRecords.ReadBuildRecord(filepath.Join(inputDir, name))
		if err != nil {
			return nil, err
		}
		if ok {
			shipped[name] = record
		}
	}
	return core.NestDependencyRecords(tree, shipped), nil
}
