package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/core"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

const buildTool = "lal"

// Run executes a build, test, shell or arbitrary command inside the
// component's configured environment. A non-zero exit inside the container
// is reported in the result, not as an error.
func (s Service) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	comp, err := s.locate(req.Dir)
	if err != nil {
		return RunResult{}, err
	}
	manifest, err := core.ValidateManifest(ctx, comp.Manifest)
	if err != nil {
		return RunResult{}, err
	}
	command, mode, err := s.commandFor(req)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{}
	var tree types.InstalledTree
	if req.Kind == RunKindBuild || req.Kind == RunKindTest {
		tree, err = s.tree(comp.inputDir()).Read(ctx)
		if err != nil {
			return RunResult{}, err
		}
		result.Drift = core.Diff(manifest, tree, req.Kind == RunKindTest)
		if len(result.Drift) > 0 {
			if req.Strict {
				return RunResult{}, driftError(result.Drift)
			}
			for _, entry := range result.Drift {
				log.Ctx(ctx).Warn().Str("dependency", entry.Name).Str("kind", string(entry.Kind)).Msg(core.DescribeDrift(entry))
			}
			emitHints(driftHints(result.Drift))
		}
	}

	for _, dir := range []string{comp.inputDir(), comp.outputDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return RunResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to create %s", dir)).
				WithCause(err)
		}
	}

	environment := core.NewEnvironmentCore(s.Runtime, s.Environments)
	descriptor, err := environment.Describe(ctx, manifest, core.EnvironmentRequest{
		SourceDir: comp.Root,
		InputDir:  comp.inputDir(),
		OutputDir: comp.outputDir(),
		User:      runUser(req.User),
		Env:       req.Env,
		Command:   command,
		Mode:      mode,
	})
	if err != nil {
		return RunResult{}, err
	}
	result.Environment = descriptor.Environment
	result.Image = descriptor.Image

	status, err := environment.Run(ctx, descriptor)
	if err != nil {
		return RunResult{}, err
	}
	result.Status = status
	if req.Kind != RunKindBuild || !status.Success() {
		return result, nil
	}

	tool := buildTool
	if v := strings.TrimSpace(req.ToolVersion); v != "" {
		tool = fmt.Sprintf("%s %s", buildTool, v)
	}
	deps, err := s.dependencyRecords(comp.inputDir(), tree)
	if err != nil {
		return RunResult{}, err
	}
	record := core.NewBuildRecord(manifest, descriptor, deps, buildVersion(req.Version), tool)
	result.RecordPath, err = s.BuildRecords.WriteBuildRecord(comp.outputDir(), record)
	if err != nil {
		return RunResult{}, err
	}
	log.Ctx(ctx).Info().Str("component", manifest.Name).Str("version", record.Version).Str("record", result.RecordPath).Msg("build recorded")
	return result, nil
}

func (s Service) commandFor(req RunRequest) ([]string, types.CommandMode, error) {
	commands := s.Commands.withDefaults()
	mode := types.CommandModeOneShot
	if req.Interactive {
		mode = types.CommandModeInteractive
	}
	switch req.Kind {
	case RunKindBuild:
		return appendArgs(commands.Build, req.Args), mode, nil
	case RunKindTest:
		return appendArgs(commands.Test, req.Args), mode, nil
	case RunKindShell:
		return appendArgs(commands.Shell, req.Args), types.CommandModeInteractive, nil
	case RunKindExec:
		if len(req.Args) == 0 {
			return nil, "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("command is empty")
		}
		return append([]string(nil), req.Args...), mode, nil
	default:
		return nil, "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown run kind: %s", req.Kind))
	}
}

func appendArgs(base []string, args []string) []string {
	command := make([]string, 0, len(base)+len(args))
	command = append(command, base...)
	return append(command, args...)
}

// buildVersion marks unversioned builds so they are never mistaken for
// published ones.
func buildVersion(version string) string {
	if v := strings.TrimSpace(version); v != "" {
		return v
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "EXPERIMENTAL+" + id[:12]
}

func runUser(user string) string {
	if u := strings.TrimSpace(user); u != "" {
		return u
	}
	return fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
}
